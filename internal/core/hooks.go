package core

import (
	"context"
	"sync"
)

// PreStoreHook is called for every field record before it is inserted.
// It may modify rec; later hooks see the modification.
type PreStoreHook interface {
	BeforeStore(ctx context.Context, in *Submitted, submissionID int64, field FieldDefinition, rec *FieldRecord) error
}

// PostStoreHook is called once after all field records of a submission are stored.
type PostStoreHook interface {
	AfterStore(ctx context.Context, in *Submitted, submissionID int64, fields []FieldDefinition) error
}

// PreStoreFunc adapts a function to PreStoreHook.
type PreStoreFunc func(ctx context.Context, in *Submitted, submissionID int64, field FieldDefinition, rec *FieldRecord) error

func (f PreStoreFunc) BeforeStore(ctx context.Context, in *Submitted, submissionID int64, field FieldDefinition, rec *FieldRecord) error {
	return f(ctx, in, submissionID, field, rec)
}

// PostStoreFunc adapts a function to PostStoreHook.
type PostStoreFunc func(ctx context.Context, in *Submitted, submissionID int64, fields []FieldDefinition) error

func (f PostStoreFunc) AfterStore(ctx context.Context, in *Submitted, submissionID int64, fields []FieldDefinition) error {
	return f(ctx, in, submissionID, fields)
}

// Hooks holds pre-store and post-store handlers in registration order.
// The zero value is ready to use.
type Hooks struct {
	mu   sync.RWMutex
	pre  []PreStoreHook
	post []PostStoreHook
}

// OnPreStore registers a pre-store hook.
func (h *Hooks) OnPreStore(hook PreStoreHook) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.pre = append(h.pre, hook)
}

// OnPostStore registers a post-store hook.
func (h *Hooks) OnPostStore(hook PostStoreHook) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.post = append(h.post, hook)
}

func (h *Hooks) preStore() []PreStoreHook {
	if h == nil {
		return nil
	}
	h.mu.RLock()
	defer h.mu.RUnlock()
	return append([]PreStoreHook(nil), h.pre...)
}

func (h *Hooks) postStore() []PostStoreHook {
	if h == nil {
		return nil
	}
	h.mu.RLock()
	defer h.mu.RUnlock()
	return append([]PostStoreHook(nil), h.post...)
}
