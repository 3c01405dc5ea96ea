// Package optimistic applies local changes before the server confirms them and rolls them back
// when the server refuses. Each mutation bumps a version; a failed commit restores its snapshot
// only if no other mutation touched the value in between, so a slow failure never clobbers a
// newer state. MutateField narrows that check to one part of the value, so mutations of
// different parts roll back independently.
package optimistic

import (
	"context"
	"sync"
)

// Store holds a value of type T together with its version.
type Store[T any] struct {
	mu      sync.RWMutex
	value   T
	version uint64
	// epoch changes only when the whole value is replaced.
	epoch  uint64
	fields map[string]uint64
}

// New creates a Store holding initial.
func New[T any](initial T) *Store[T] {
	return &Store[T]{value: initial}
}

// Get returns the current value.
func (s *Store[T]) Get() T {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.value
}

// Version returns the number of changes applied so far.
func (s *Store[T]) Version() uint64 {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.version
}

// Set replaces the value, e.g. after a fetch, superseding any in-flight mutation.
func (s *Store[T]) Set(v T) {
	s.mu.Lock()
	s.value = v
	s.version++
	s.epoch++
	s.mu.Unlock()
}

// Update applies fn to the current value under the lock.
func (s *Store[T]) Update(fn func(T) T) T {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.value = fn(s.value)
	s.version++
	return s.value
}

// Mutate applies transform immediately and then runs commit without holding the lock.
// When commit fails the snapshot taken before transform is restored, unless the value changed
// since; the commit error is returned either way. When commit succeeds and reconcile is not nil,
// reconcile merges the commit result into the value, again only if the value did not change.
func Mutate[T, R any](ctx context.Context, s *Store[T], transform func(T) T, commit func(context.Context) (R, error), reconcile func(T, R) T) (R, error) {
	s.mu.Lock()
	snapshot := s.value
	s.value = transform(s.value)
	s.version++
	mine := s.version
	s.mu.Unlock()

	res, err := commit(ctx)

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.version != mine {
		return res, err
	}
	if err != nil {
		s.value = snapshot
		s.version++
		return res, err
	}
	if reconcile != nil {
		s.value = reconcile(s.value, res)
		s.version++
	}
	return res, nil
}

// Field names one part of a value that is mutated on its own. Restore copies that part from
// snapshot into current and leaves everything else of current alone.
type Field[T any] struct {
	Key     string
	Restore func(current, snapshot T) T
}

// MutateField is Mutate for one field. A failed commit restores only the field, and is skipped
// when a later mutation of the same field or a Set happened in between; changes to other fields
// do not block it. Reconcile must also touch only the field.
func MutateField[T, R any](ctx context.Context, s *Store[T], field Field[T], transform func(T) T, commit func(context.Context) (R, error), reconcile func(T, R) T) (R, error) {
	s.mu.Lock()
	snapshot := s.value
	s.value = transform(s.value)
	s.version++
	if s.fields == nil {
		s.fields = map[string]uint64{}
	}
	s.fields[field.Key]++
	mine, epoch := s.fields[field.Key], s.epoch
	s.mu.Unlock()

	res, err := commit(ctx)

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.epoch != epoch || s.fields[field.Key] != mine {
		return res, err
	}
	if err != nil {
		s.value = field.Restore(s.value, snapshot)
		s.version++
		return res, err
	}
	if reconcile != nil {
		s.value = reconcile(s.value, res)
		s.version++
	}
	return res, nil
}
