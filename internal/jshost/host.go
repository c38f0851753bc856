// Package jshost implements the inspector's Host over the jsvalue heap.
package jshost

import (
	"context"
	"fmt"

	"github.com/hashicorp/golang-lru/v2"

	"closuregen/internal/inspector"
	"closuregen/internal/introspect"
	"closuregen/internal/jsvalue"
)

const DefaultParseCacheSize = 1024

// Host parses function sources once per distinct text and resolves captured
// variables through closure scopes.
type Host struct {
	realm   *jsvalue.Realm
	parsed  *lru.Cache[string, *introspect.Info]
	options []introspect.Option
}

type Option func(*config)

type config struct {
	cacheSize int
	policy    introspect.Policy
}

func WithParseCacheSize(n int) Option {
	return func(c *config) { c.cacheSize = n }
}

func WithPolicy(p introspect.Policy) Option {
	return func(c *config) { c.policy = p }
}

func New(realm *jsvalue.Realm, opts ...Option) (*Host, error) {
	c := config{cacheSize: DefaultParseCacheSize}
	for _, opt := range opts {
		opt(&c)
	}
	if c.cacheSize <= 0 {
		c.cacheSize = DefaultParseCacheSize
	}
	cache, err := lru.New[string, *introspect.Info](c.cacheSize)
	if err != nil {
		return nil, err
	}
	h := &Host{realm: realm, parsed: cache}
	if c.policy != nil {
		h.options = append(h.options, introspect.WithPolicy(c.policy))
	}
	return h, nil
}

func (h *Host) Realm() *jsvalue.Realm { return h.realm }

// Introspect returns the parsed form of fn's source. Results are shared
// between callers and must not be modified.
func (h *Host) Introspect(_ context.Context, fn *jsvalue.Object) (*introspect.Info, error) {
	f := fn.Function()
	if f == nil {
		return nil, fmt.Errorf("jshost: %s is not a function", fn.Class())
	}
	if f.Native {
		return nil, inspector.ErrNativeCode
	}
	if info, ok := h.parsed.Get(f.Source); ok {
		return info, nil
	}
	info, err := introspect.Parse(f.Source, h.options...)
	if err != nil {
		return nil, err
	}
	h.parsed.Add(f.Source, info)
	return info, nil
}

// ResolveCaptured looks name up in the scope fn was created in.
func (h *Host) ResolveCaptured(_ context.Context, fn *jsvalue.Object, name string) (jsvalue.Value, error) {
	f := fn.Function()
	if f == nil {
		return nil, fmt.Errorf("jshost: %s is not a function", fn.Class())
	}
	if f.Scope != nil {
		if v, ok := f.Scope.Lookup(name); ok {
			return v, nil
		}
	}
	if h.realm.IsGlobal(name) {
		return nil, inspector.ErrGlobal
	}
	return nil, inspector.ErrNotCaptured
}

// Len reports how many parsed sources are cached.
func (h *Host) Len() int { return h.parsed.Len() }
