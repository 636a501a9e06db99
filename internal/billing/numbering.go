package billing

import (
	"context"
	"fmt"
	"time"

	log "github.com/sirupsen/logrus"
	"github.com/ukydev/apartment-management/internal/apperr"
	"github.com/ukydev/apartment-management/internal/db"
)

// maxNumberAttempts bounds the collision loop in NumberAllocator.Next.
const maxNumberAttempts = 10

// NumberAllocator hands out BILL-YYYYMM-NNNN numbers scoped to the month of
// creation. The sequence comes from an atomic per-month counter; the
// existence check guards against numbers created before the counter existed
// or inserted by hand.
type NumberAllocator struct {
	counters db.CounterCollection
	bills    db.BillCollection
}

// NewNumberAllocator creates an allocator backed by the per-month counters.
func NewNumberAllocator(counters db.CounterCollection, bills db.BillCollection) *NumberAllocator {
	return &NumberAllocator{counters: counters, bills: bills}
}

// Prefix returns the counter key for the month containing t.
func Prefix(t time.Time) string {
	return "BILL-" + t.Format("200601")
}

// Next returns an unused bill number for the month of at.
func (a *NumberAllocator) Next(ctx context.Context, at time.Time) (string, error) {
	prefix := Prefix(at)
	for attempt := 1; attempt <= maxNumberAttempts; attempt++ {
		seq, err := a.counters.NextSequence(ctx, prefix)
		if err != nil {
			return "", fmt.Errorf("next sequence for %s: %w", prefix, err)
		}
		number := fmt.Sprintf("%s-%04d", prefix, seq)

		exists, err := a.bills.BillNumberExists(ctx, number)
		if err != nil {
			return "", err
		}
		if !exists {
			return number, nil
		}
		log.WithFields(log.Fields{"bill_number": number, "attempt": attempt}).Warn("Bill number already taken, retrying")
	}
	return "", apperr.Conflict("could not allocate a bill number for %s after %d attempts", prefix, maxNumberAttempts)
}
