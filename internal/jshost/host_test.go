package jshost

import (
	"context"
	"errors"
	"testing"

	"closuregen/internal/inspector"
	"closuregen/internal/jsvalue"
)

func TestIntrospectCachesBySource(t *testing.T) {
	r := jsvalue.NewRealm()
	h, err := New(r, WithParseCacheSize(8))
	if err != nil {
		t.Fatalf("new: %v", err)
	}
	src := "function (a) { return a + k; }"
	f1 := r.NewFunction(src, nil)
	f2 := r.NewFunction(src, nil)

	i1, err := h.Introspect(context.Background(), f1)
	if err != nil {
		t.Fatalf("introspect: %v", err)
	}
	i2, err := h.Introspect(context.Background(), f2)
	if err != nil {
		t.Fatalf("introspect: %v", err)
	}
	if i1 != i2 {
		t.Fatalf("identical sources should share one parse")
	}
	if h.Len() != 1 {
		t.Fatalf("cache len: got=%d want=1", h.Len())
	}
}

func TestIntrospectNative(t *testing.T) {
	r := jsvalue.NewRealm()
	h, _ := New(r)
	_, err := h.Introspect(context.Background(), r.NewNative("push"))
	if !errors.Is(err, inspector.ErrNativeCode) {
		t.Fatalf("native: got=%v want=ErrNativeCode", err)
	}
}

func TestResolveCaptured(t *testing.T) {
	r := jsvalue.NewRealm()
	h, _ := New(r)
	outer := jsvalue.NewScope(nil).Declare("x", jsvalue.Number(1))
	inner := jsvalue.NewScope(outer).Declare("y", jsvalue.String("y"))
	fn := r.NewFunction("() => x + y + Math.max(1, 2)", inner)

	ctx := context.Background()
	v, err := h.ResolveCaptured(ctx, fn, "x")
	if err != nil || v != jsvalue.Number(1) {
		t.Fatalf("x: got=%v,%v want=1", v, err)
	}
	if _, err := h.ResolveCaptured(ctx, fn, "Math"); !errors.Is(err, inspector.ErrGlobal) {
		t.Fatalf("Math: got=%v want=ErrGlobal", err)
	}
	if _, err := h.ResolveCaptured(ctx, fn, "missing"); !errors.Is(err, inspector.ErrNotCaptured) {
		t.Fatalf("missing: got=%v want=ErrNotCaptured", err)
	}
}
