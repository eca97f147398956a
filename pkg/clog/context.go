package clog

import (
	"context"
	"maps"
	"sync"
)

const (
	ErrorAttributeKey = "error.message"
	StackAttributeKey = "error.stack"
)

type ctxSlogKey struct{}

// attributeSet collects attributes for the lifetime of one request so that the
// access log line carries everything the handlers learned.
type attributeSet struct {
	mu    sync.RWMutex
	attrs map[string]any
}

func ContextWithSlog(ctx context.Context) context.Context {
	return context.WithValue(ctx, ctxSlogKey{}, &attributeSet{attrs: make(map[string]any)})
}

func attributeSetFrom(ctx context.Context) *attributeSet {
	s, _ := ctx.Value(ctxSlogKey{}).(*attributeSet)
	return s
}

func AddAttribute(ctx context.Context, key string, value any) {
	s := attributeSetFrom(ctx)
	if s == nil {
		return
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.attrs[key] = value
}

func AddAttributes(ctx context.Context, attrs map[string]any) {
	s := attributeSetFrom(ctx)
	if s == nil {
		return
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	maps.Copy(s.attrs, attrs)
}

func GetAttributes(ctx context.Context) map[string]any {
	s := attributeSetFrom(ctx)
	if s == nil {
		return nil
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	return maps.Clone(s.attrs)
}

func getAttribute[T any](ctx context.Context, key string) T {
	var zero T
	s := attributeSetFrom(ctx)
	if s == nil {
		return zero
	}
	s.mu.RLock()
	v, ok := s.attrs[key]
	s.mu.RUnlock()
	if !ok {
		return zero
	}
	t, ok := v.(T)
	if !ok {
		return zero
	}
	return t
}

func AddError(ctx context.Context, err error) {
	AddAttribute(ctx, ErrorAttributeKey, err)
}

func GetError(ctx context.Context) error {
	return getAttribute[error](ctx, ErrorAttributeKey)
}

func AddStack(ctx context.Context, stack string) {
	AddAttribute(ctx, StackAttributeKey, stack)
}

func GetStack(ctx context.Context) string {
	return getAttribute[string](ctx, StackAttributeKey)
}
