package crud

import (
	"context"
	"sync"

	"github.com/artpar/erpkit/core/form"
)

// Optimistic holds a locally cached value that is changed before the
// backend confirms the change and restored if the backend refuses.
type Optimistic[T any] struct {
	mu    sync.Mutex
	value T
	clone func(T) T
}

// NewOptimistic wraps initial. clone copies a value deeply enough that
// local changes never reach the snapshot; nil means values are copied by
// assignment.
func NewOptimistic[T any](initial T, clone func(T) T) *Optimistic[T] {
	if clone == nil {
		clone = func(v T) T { return v }
	}
	return &Optimistic[T]{value: initial, clone: clone}
}

// Value returns the current value.
func (o *Optimistic[T]) Value() T {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.value
}

// Set replaces the value, e.g. after a refetch.
func (o *Optimistic[T]) Set(v T) {
	o.mu.Lock()
	o.value = v
	o.mu.Unlock()
}

// Apply snapshots the value, applies local, then calls remote. When remote
// fails the snapshot is restored and the returned message is the error text
// or form.FallbackMessage.
func (o *Optimistic[T]) Apply(ctx context.Context, local func(T) T, remote func(ctx context.Context) error) (string, error) {
	o.mu.Lock()
	snapshot := o.clone(o.value)
	o.value = local(o.clone(o.value))
	o.mu.Unlock()

	if err := remote(ctx); err != nil {
		o.mu.Lock()
		o.value = snapshot
		o.mu.Unlock()
		return Message(err), err
	}
	return "", nil
}

// Message returns the text shown to the user for a failed mutation.
func Message(err error) string {
	if err == nil {
		return ""
	}
	if msg := err.Error(); msg != "" {
		return msg
	}
	return form.FallbackMessage
}

// CloneRows copies a row slice and each row map.
func CloneRows[R ~map[string]any](rows []R) []R {
	out := make([]R, len(rows))
	for i, r := range rows {
		c := make(R, len(r))
		for k, v := range r {
			c[k] = v
		}
		out[i] = c
	}
	return out
}
