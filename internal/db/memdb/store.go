// Package memdb is an in-memory implementation of every db collection.
// Documents are kept BSON-encoded so reads never alias stored state, and
// transactions restore a snapshot on error. All access is serialized, which
// gives transactions serializable isolation.
package memdb

import (
	"bytes"
	"context"
	"sort"
	"sync"

	"github.com/ukydev/apartment-management/internal/db"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

type txKey struct{}

// Store holds every collection in memory.
type Store struct {
	txMu sync.Mutex
	mu   sync.Mutex
	docs map[string]map[primitive.ObjectID][]byte
	seqs map[string]int64
}

// New returns an empty store.
func New() *Store {
	return &Store{
		docs: make(map[string]map[primitive.ObjectID][]byte),
		seqs: make(map[string]int64),
	}
}

// Stores exposes the store through the db interfaces.
func (s *Store) Stores() *db.Stores {
	return &db.Stores{
		Tx:           s,
		Users:        s,
		Apartments:   s,
		Beverages:    s,
		Carts:        s,
		Consumptions: s,
		Bills:        s,
		Counters:     s,
		Maintenance:  s,
		Leaves:       s,
		Reservations: s,
	}
}

// RunInTx runs fn with exclusive access and rolls back every write if fn fails.
func (s *Store) RunInTx(ctx context.Context, fn func(ctx context.Context) error) error {
	if s.inTx(ctx) {
		return fn(ctx)
	}
	s.txMu.Lock()
	defer s.txMu.Unlock()

	s.mu.Lock()
	snap := s.snapshot()
	s.mu.Unlock()

	if err := fn(context.WithValue(ctx, txKey{}, s)); err != nil {
		s.mu.Lock()
		s.docs, s.seqs = snap.docs, snap.seqs
		s.mu.Unlock()
		return err
	}
	return nil
}

func (s *Store) inTx(ctx context.Context) bool {
	owner, _ := ctx.Value(txKey{}).(*Store)
	return owner == s
}

// lock serializes an operation against running transactions.
func (s *Store) lock(ctx context.Context) func() {
	if s.inTx(ctx) {
		s.mu.Lock()
		return s.mu.Unlock
	}
	s.txMu.Lock()
	s.mu.Lock()
	return func() {
		s.mu.Unlock()
		s.txMu.Unlock()
	}
}

type snapshot struct {
	docs map[string]map[primitive.ObjectID][]byte
	seqs map[string]int64
}

func (s *Store) snapshot() snapshot {
	docs := make(map[string]map[primitive.ObjectID][]byte, len(s.docs))
	for name, coll := range s.docs {
		c := make(map[primitive.ObjectID][]byte, len(coll))
		for id, b := range coll {
			c[id] = b
		}
		docs[name] = c
	}
	seqs := make(map[string]int64, len(s.seqs))
	for k, v := range s.seqs {
		seqs[k] = v
	}
	return snapshot{docs: docs, seqs: seqs}
}

func (s *Store) collection(name string) map[primitive.ObjectID][]byte {
	c, ok := s.docs[name]
	if !ok {
		c = make(map[primitive.ObjectID][]byte)
		s.docs[name] = c
	}
	return c
}

func put[T any](s *Store, coll string, id primitive.ObjectID, doc *T) error {
	b, err := bson.Marshal(doc)
	if err != nil {
		return err
	}
	s.collection(coll)[id] = b
	return nil
}

func get[T any](s *Store, coll string, id primitive.ObjectID) (*T, bool, error) {
	b, ok := s.collection(coll)[id]
	if !ok {
		return nil, false, nil
	}
	var out T
	if err := bson.Unmarshal(b, &out); err != nil {
		return nil, false, err
	}
	return &out, true, nil
}

func has(s *Store, coll string, id primitive.ObjectID) bool {
	_, ok := s.collection(coll)[id]
	return ok
}

// scan decodes every document of coll that keep accepts, newest id first.
func scan[T any](s *Store, coll string, keep func(*T) bool) ([]T, error) {
	c := s.collection(coll)
	ids := make([]primitive.ObjectID, 0, len(c))
	for id := range c {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool { return bytes.Compare(ids[i][:], ids[j][:]) > 0 })

	out := []T{}
	for _, id := range ids {
		var doc T
		if err := bson.Unmarshal(c[id], &doc); err != nil {
			return nil, err
		}
		if keep == nil || keep(&doc) {
			out = append(out, doc)
		}
	}
	return out, nil
}

// NextSequence increments and returns the sequence for key.
func (s *Store) NextSequence(ctx context.Context, key string) (int64, error) {
	defer s.lock(ctx)()
	s.seqs[key]++
	return s.seqs[key], nil
}
