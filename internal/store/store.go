// Package store keeps the procurement records in process memory. Collections
// are registered once at startup and every mutation runs inside WithTx, which
// holds the single writer lock and rolls the whole store back on error.
package store

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sort"
	"sync"
	"time"
)

var (
	// ErrNotFound indicates the id has no record in the collection.
	ErrNotFound = errors.New("store: record not found")
	// ErrVersionConflict is returned when an update carries a stale version.
	ErrVersionConflict = errors.New("store: version conflict")
)

type table interface {
	dump() (json.RawMessage, error)
	load(raw json.RawMessage) error
	reset()
	size() int
}

type txKey struct{}

// Snapshot is a serialised copy of every registered collection.
type Snapshot struct {
	Seq     int64                      `json:"seq"`
	TakenAt time.Time                  `json:"taken_at"`
	Tables  map[string]json.RawMessage `json:"tables"`
}

// CommitHook observes the state left by a committed transaction.
type CommitHook func(ctx context.Context, snap Snapshot)

// Store coordinates access to the registered collections.
type Store struct {
	mu     sync.RWMutex
	tables map[string]table
	hooks  []CommitHook
	seq    int64
	now    func() time.Time
}

// New constructs an empty Store.
func New() *Store {
	return &Store{tables: make(map[string]table), now: time.Now}
}

// OnCommit registers a hook invoked after every successful transaction.
// Hooks run outside the lock and must not block for long.
func (s *Store) OnCommit(hook CommitHook) {
	if hook == nil {
		return
	}
	s.mu.Lock()
	s.hooks = append(s.hooks, hook)
	s.mu.Unlock()
}

// WithTx runs fn under the writer lock. Any error returned by fn restores
// every collection to the state it had before the call. Nested calls that
// receive the transaction context join the outer transaction.
func (s *Store) WithTx(ctx context.Context, fn func(ctx context.Context) error) error {
	if s.inTx(ctx) {
		return fn(ctx)
	}
	snap, hooks, err := s.runTx(ctx, fn)
	if err != nil {
		return err
	}
	for _, hook := range hooks {
		hook(ctx, snap)
	}
	return nil
}

func (s *Store) runTx(ctx context.Context, fn func(context.Context) error) (snap Snapshot, hooks []CommitHook, err error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	backup, err := s.captureLocked()
	if err != nil {
		return Snapshot{}, nil, fmt.Errorf("store: capture: %w", err)
	}
	committed := false
	defer func() {
		if committed {
			return
		}
		if restoreErr := s.restoreLocked(backup); restoreErr != nil {
			err = errors.Join(err, fmt.Errorf("store: rollback: %w", restoreErr))
		}
	}()

	if err = fn(context.WithValue(ctx, txKey{}, s)); err != nil {
		return Snapshot{}, nil, err
	}
	committed = true
	s.seq++
	if len(s.hooks) == 0 {
		return Snapshot{}, nil, nil
	}
	snap, captureErr := s.captureLocked()
	if captureErr != nil {
		// The transaction stays committed; observers simply miss this state.
		return Snapshot{}, nil, nil
	}
	return snap, append([]CommitHook(nil), s.hooks...), nil
}

// Read runs fn under the reader lock, or directly when ctx already carries
// a transaction of this store.
func (s *Store) Read(ctx context.Context, fn func() error) error {
	if s.inTx(ctx) {
		return fn()
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	return fn()
}

// InTx reports whether ctx belongs to a running transaction of this store.
func (s *Store) InTx(ctx context.Context) bool {
	return s.inTx(ctx)
}

func (s *Store) inTx(ctx context.Context) bool {
	if ctx == nil {
		return false
	}
	owner, _ := ctx.Value(txKey{}).(*Store)
	return owner == s
}

// Snapshot captures every collection.
func (s *Store) Snapshot(ctx context.Context) (Snapshot, error) {
	var snap Snapshot
	err := s.Read(ctx, func() error {
		var err error
		snap, err = s.captureLocked()
		return err
	})
	return snap, err
}

// Restore replaces the contents of every registered collection with snap.
// Collections absent from snap are emptied.
func (s *Store) Restore(ctx context.Context, snap Snapshot) error {
	return s.WithTx(ctx, func(context.Context) error {
		if err := s.restoreLocked(snap); err != nil {
			return err
		}
		if snap.Seq > s.seq {
			s.seq = snap.Seq
		}
		return nil
	})
}

// Empty reports whether no collection holds any record.
func (s *Store) Empty(ctx context.Context) bool {
	empty := true
	_ = s.Read(ctx, func() error {
		for _, t := range s.tables {
			if t.size() > 0 {
				empty = false
				return nil
			}
		}
		return nil
	})
	return empty
}

// Tables lists the registered collection names in order.
func (s *Store) Tables() []string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	names := make([]string, 0, len(s.tables))
	for name := range s.tables {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

func (s *Store) captureLocked() (Snapshot, error) {
	snap := Snapshot{
		Seq:     s.seq,
		TakenAt: s.now().UTC(),
		Tables:  make(map[string]json.RawMessage, len(s.tables)),
	}
	for name, t := range s.tables {
		raw, err := t.dump()
		if err != nil {
			return Snapshot{}, fmt.Errorf("%s: %w", name, err)
		}
		snap.Tables[name] = raw
	}
	return snap, nil
}

func (s *Store) restoreLocked(snap Snapshot) error {
	for name, t := range s.tables {
		raw, ok := snap.Tables[name]
		if !ok {
			t.reset()
			continue
		}
		if err := t.load(raw); err != nil {
			return fmt.Errorf("%s: %w", name, err)
		}
	}
	return nil
}
