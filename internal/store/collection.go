package store

import (
	"encoding/json"
	"fmt"
	"slices"
)

// Meta carries the identity and optimistic-lock version of a record.
type Meta struct {
	ID      int64 `json:"id"`
	Version int64 `json:"version"`
}

// GetID returns the record id.
func (m *Meta) GetID() int64 { return m.ID }

// SetID assigns the record id.
func (m *Meta) SetID(id int64) { m.ID = id }

// GetVersion returns the record version.
func (m *Meta) GetVersion() int64 { return m.Version }

// SetVersion assigns the record version.
func (m *Meta) SetVersion(v int64) { m.Version = v }

// Record is implemented by any struct embedding Meta.
type Record interface {
	GetID() int64
	SetID(id int64)
	GetVersion() int64
	SetVersion(v int64)
}

// Entity constrains P to be the pointer type of a Record value T.
type Entity[T any] interface {
	*T
	Record
}

// Collection is an ordered set of records of one kind. Its methods do not
// lock; callers go through Store.Read or Store.WithTx. Records are deep
// copied on the way in and out, so the only way to change a stored record
// is Update.
type Collection[T any, P Entity[T]] struct {
	name  string
	items []T
}

// Register returns the collection stored under name, creating it on first
// use. Registering the same name with another record type panics.
func Register[T any, P Entity[T]](s *Store, name string) *Collection[T, P] {
	s.mu.Lock()
	defer s.mu.Unlock()
	if existing, ok := s.tables[name]; ok {
		c, ok := existing.(*Collection[T, P])
		if !ok {
			panic(fmt.Sprintf("store: collection %q registered with a different record type", name))
		}
		return c
	}
	c := &Collection[T, P]{name: name}
	s.tables[name] = c
	return c
}

// Name returns the collection name.
func (c *Collection[T, P]) Name() string { return c.name }

// Add assigns the next id (highest existing id + 1) and version 1.
func (c *Collection[T, P]) Add(rec T) T {
	p := P(&rec)
	p.SetID(c.nextID())
	p.SetVersion(1)
	c.items = append(c.items, clone(rec))
	return rec
}

// Put inserts rec keeping its id, replacing any record with the same id.
func (c *Collection[T, P]) Put(rec T) T {
	p := P(&rec)
	if p.GetID() == 0 {
		return c.Add(rec)
	}
	if p.GetVersion() == 0 {
		p.SetVersion(1)
	}
	if i := c.index(p.GetID()); i >= 0 {
		c.items[i] = clone(rec)
		return rec
	}
	c.items = append(c.items, clone(rec))
	return rec
}

// Find returns the record with id.
func (c *Collection[T, P]) Find(id int64) (T, bool) {
	if i := c.index(id); i >= 0 {
		return clone(c.items[i]), true
	}
	var zero T
	return zero, false
}

// FindBy returns the first record matching pred.
func (c *Collection[T, P]) FindBy(pred func(T) bool) (T, bool) {
	for _, rec := range c.items {
		if pred(rec) {
			return clone(rec), true
		}
	}
	var zero T
	return zero, false
}

// Update applies fn to a copy of the record and stores the result with the
// version incremented. A non-zero version must match the stored one.
func (c *Collection[T, P]) Update(id, version int64, fn func(P) error) (T, error) {
	var zero T
	i := c.index(id)
	if i < 0 {
		return zero, fmt.Errorf("%w: %s %d", ErrNotFound, c.name, id)
	}
	rec := clone(c.items[i])
	p := P(&rec)
	current := p.GetVersion()
	if version != 0 && version != current {
		return zero, fmt.Errorf("%w: %s %d is at version %d, got %d", ErrVersionConflict, c.name, id, current, version)
	}
	if err := fn(p); err != nil {
		return zero, err
	}
	p.SetID(id)
	p.SetVersion(current + 1)
	c.items[i] = clone(rec)
	return rec, nil
}

// Delete removes the record with id and reports whether it existed.
func (c *Collection[T, P]) Delete(id int64) bool {
	i := c.index(id)
	if i < 0 {
		return false
	}
	c.items = slices.Delete(c.items, i, i+1)
	return true
}

// List returns the records in insertion order.
func (c *Collection[T, P]) List() []T {
	out := make([]T, len(c.items))
	for i, rec := range c.items {
		out[i] = clone(rec)
	}
	return out
}

// Filter returns the records matching pred in insertion order.
func (c *Collection[T, P]) Filter(pred func(T) bool) []T {
	out := make([]T, 0)
	for _, rec := range c.items {
		if pred(rec) {
			out = append(out, clone(rec))
		}
	}
	return out
}

// Count returns the number of records matching pred.
func (c *Collection[T, P]) Count(pred func(T) bool) int {
	n := 0
	for _, rec := range c.items {
		if pred(rec) {
			n++
		}
	}
	return n
}

// Any reports whether a record matches pred.
func (c *Collection[T, P]) Any(pred func(T) bool) bool {
	_, ok := c.FindBy(pred)
	return ok
}

// Len returns the number of records.
func (c *Collection[T, P]) Len() int { return len(c.items) }

func (c *Collection[T, P]) index(id int64) int {
	for i := range c.items {
		if P(&c.items[i]).GetID() == id {
			return i
		}
	}
	return -1
}

func (c *Collection[T, P]) nextID() int64 {
	var highest int64
	for i := range c.items {
		if id := P(&c.items[i]).GetID(); id > highest {
			highest = id
		}
	}
	return highest + 1
}

func (c *Collection[T, P]) dump() (json.RawMessage, error) {
	items := c.items
	if items == nil {
		items = []T{}
	}
	return json.Marshal(items)
}

func (c *Collection[T, P]) load(raw json.RawMessage) error {
	var items []T
	if err := json.Unmarshal(raw, &items); err != nil {
		return err
	}
	c.items = items
	return nil
}

func (c *Collection[T, P]) reset() { c.items = nil }

func (c *Collection[T, P]) size() int { return len(c.items) }
