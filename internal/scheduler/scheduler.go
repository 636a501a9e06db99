// Package scheduler runs the recurring billing and lease jobs.
package scheduler

import (
	"context"
	"fmt"
	"time"

	"github.com/robfig/cron"
	log "github.com/sirupsen/logrus"
	"github.com/ukydev/apartment-management/internal/billing"
	"github.com/ukydev/apartment-management/internal/db"
	"github.com/ukydev/apartment-management/internal/models"
	"github.com/ukydev/apartment-management/internal/notify"
)

const (
	leaseWarningDays = 10
	jobTimeout       = 10 * time.Minute
)

// Sweeper bills abandoned carts.
type Sweeper interface {
	Run(ctx context.Context) (*billing.SweepResult, error)
}

// OverdueFlagger marks late bills and reminds their tenants.
type OverdueFlagger interface {
	FlagOverdue(ctx context.Context, now time.Time) (int, error)
	SendReminders(ctx context.Context) (int, error)
}

// LeaseRefresher persists lease statuses that went stale as time passed.
type LeaseRefresher interface {
	RefreshLeaseStatuses(ctx context.Context) (int, error)
}

// Specs are six-field cron expressions, seconds first.
type Specs struct {
	Billing     string
	Lease       string
	LeaseStatus string
	Overdue     string
}

type Scheduler struct {
	cron       *cron.Cron
	specs      Specs
	sweeper    Sweeper
	overdue    OverdueFlagger
	leases     LeaseRefresher
	users      db.UserCollection
	dispatcher notify.Dispatcher
	now        func() time.Time
}

// New creates a scheduler. Nothing runs until Start.
func New(specs Specs, sweeper Sweeper, overdue OverdueFlagger, leases LeaseRefresher, users db.UserCollection, dispatcher notify.Dispatcher) *Scheduler {
	return &Scheduler{
		cron:       cron.New(),
		specs:      specs,
		sweeper:    sweeper,
		overdue:    overdue,
		leases:     leases,
		users:      users,
		dispatcher: dispatcher,
		now:        time.Now,
	}
}

// Start registers every job and starts the cron runner.
func (s *Scheduler) Start() error {
	jobs := []struct {
		name string
		spec string
		run  func(ctx context.Context) error
	}{
		{"monthly-sweep", s.specs.Billing, func(ctx context.Context) error { _, err := s.MonthlySweep(ctx); return err }},
		{"lease-expiry", s.specs.Lease, func(ctx context.Context) error { _, err := s.LeaseExpiry(ctx); return err }},
		{"lease-status", s.specs.LeaseStatus, s.LeaseStatus},
		{"overdue-bills", s.specs.Overdue, s.Overdue},
	}
	for _, job := range jobs {
		job := job
		if err := s.cron.AddFunc(job.spec, func() { s.run(job.name, job.run) }); err != nil {
			return fmt.Errorf("schedule %s %q: %w", job.name, job.spec, err)
		}
		log.WithFields(log.Fields{"job": job.name, "spec": job.spec}).Info("Scheduled job")
	}
	s.cron.Start()
	return nil
}

func (s *Scheduler) Stop() {
	s.cron.Stop()
}

func (s *Scheduler) run(name string, fn func(ctx context.Context) error) {
	ctx, cancel := context.WithTimeout(context.Background(), jobTimeout)
	defer cancel()
	started := time.Now()
	logger := log.WithField("job", name)
	if err := fn(ctx); err != nil {
		logger.WithError(err).Error("Scheduled job failed")
		return
	}
	logger.WithField("took", time.Since(started).String()).Info("Scheduled job finished")
}

// MonthlySweep runs the cart sweep on the last day of the month only. The
// cron expression fires on days 28-31 because cron cannot express "last day".
func (s *Scheduler) MonthlySweep(ctx context.Context) (*billing.SweepResult, error) {
	now := s.now()
	if !isLastDayOfMonth(now) {
		log.WithField("date", now.Format("2006-01-02")).Debug("Not the last day of the month, skipping sweep")
		return nil, nil
	}
	return s.sweeper.Run(ctx)
}

func isLastDayOfMonth(t time.Time) bool {
	return t.AddDate(0, 0, 1).Day() == 1
}

// LeaseExpiry warns active tenants whose lease ends exactly ten days from now.
// It returns how many warnings were delivered.
func (s *Scheduler) LeaseExpiry(ctx context.Context) (int, error) {
	from, to := db.DayRange(s.now().AddDate(0, 0, leaseWarningDays))
	active := true
	tenants, err := s.users.FindUsers(ctx, db.UserFilter{
		Role:         models.RoleTenant,
		IsActive:     &active,
		LeaseEndFrom: &from,
		LeaseEndTo:   &to,
	})
	if err != nil {
		return 0, err
	}

	sent := 0
	for i := range tenants {
		tenant := &tenants[i]
		if err := s.dispatcher.Dispatch(ctx, notify.LeaseExpiryMessage(tenant, leaseWarningDays)); err != nil {
			log.WithError(err).WithField("tenant_id", tenant.ID.Hex()).Warn("Failed to send lease expiry warning")
			continue
		}
		sent++
	}
	log.WithFields(log.Fields{"matched": len(tenants), "sent": sent}).Info("Lease expiry warnings processed")
	return sent, nil
}

// LeaseStatus moves tenants whose lease started or ended since their last
// write to the right status.
func (s *Scheduler) LeaseStatus(ctx context.Context) error {
	updated, err := s.leases.RefreshLeaseStatuses(ctx)
	if err != nil {
		return fmt.Errorf("refresh lease statuses: %w", err)
	}
	log.WithField("updated", updated).Info("Lease statuses refreshed")
	return nil
}

// Overdue flags late bills and then sends reminders for them.
func (s *Scheduler) Overdue(ctx context.Context) error {
	flagged, err := s.overdue.FlagOverdue(ctx, s.now())
	if err != nil {
		return fmt.Errorf("flag overdue bills: %w", err)
	}
	reminded, err := s.overdue.SendReminders(ctx)
	if err != nil {
		return fmt.Errorf("send reminders: %w", err)
	}
	log.WithFields(log.Fields{"flagged": flagged, "reminded": reminded}).Info("Overdue bills processed")
	return nil
}
