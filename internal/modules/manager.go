// Package modules is the boundary a build tool talks to: it registers
// values under virtual module ids, generates their source in the background
// and hands the text out once it is ready.
package modules

import (
	"context"
	"errors"
	"fmt"
	"log"
	"strconv"
	"strings"
	"sync"
	"time"

	"closuregen/internal/inspector"
	"closuregen/internal/jsvalue"
	"closuregen/internal/registry"
	"closuregen/internal/serializer"
)

const (
	DefaultPrefix       = "virtual:closuregen/"
	DefaultCacheEntries = 256
	DefaultCacheTTL     = 10 * time.Minute
)

var ErrUnknownModule = errors.New("unknown module id")

// NamedValue is one const export.
type NamedValue struct {
	Name  string
	Value jsvalue.Value
}

// Options lists what a module exports. Default and Assign are mutually
// exclusive.
type Options struct {
	Const   []NamedValue
	Default jsvalue.Value
	Assign  jsvalue.Value
}

// Generated is the text of a finished module.
type Generated struct {
	ID   string
	Text string
}

// Pending is a module whose generation may still be running.
type Pending struct {
	id   string
	done chan struct{}
	out  *Generated
	err  error
}

func (p *Pending) ID() string { return p.id }

// Done is closed once the module settled.
func (p *Pending) Done() <-chan struct{} { return p.done }

// Wait blocks until the module settled or ctx is done.
func (p *Pending) Wait(ctx context.Context) (*Generated, error) {
	select {
	case <-p.done:
		return p.out, p.err
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

type Config struct {
	Prefix       string
	CacheEntries int
	CacheBytes   int
	CacheTTL     time.Duration
}

// Manager owns the registrations. Every run inspects against its own fork
// of the sealed base registry.
type Manager struct {
	host   inspector.Host
	realm  *jsvalue.Realm
	base   *registry.Registry
	prefix string

	ctx    context.Context
	cancel context.CancelFunc

	mu sync.Mutex
	// pending holds every module that has not been loaded yet, running or
	// settled.
	pending map[string]*Pending
	settled *settledCache
	next    int

	events *broker
	wg     sync.WaitGroup
}

// New creates a manager. base is sealed if it is not already; the host is
// shared by all runs and must be safe for concurrent use.
func New(host inspector.Host, base *registry.Registry, cfg Config) (*Manager, error) {
	if host == nil {
		return nil, fmt.Errorf("modules: host is required")
	}
	if base == nil {
		return nil, fmt.Errorf("modules: base registry is required")
	}
	if !base.Sealed() {
		base.Seal()
	}
	prefix := strings.TrimSpace(cfg.Prefix)
	if prefix == "" {
		prefix = DefaultPrefix
	}
	ctx, cancel := context.WithCancel(context.Background())
	return &Manager{
		host:    host,
		realm:   host.Realm(),
		base:    base,
		prefix:  prefix,
		ctx:     ctx,
		cancel:  cancel,
		pending: make(map[string]*Pending),
		settled: newSettledCache(cfg.CacheEntries, cfg.CacheBytes, cfg.CacheTTL),
		events:  newBroker(),
	}, nil
}

func (m *Manager) Prefix() string { return m.prefix }

// Realm is the realm registered values must come from.
func (m *Manager) Realm() *jsvalue.Realm { return m.realm }

// Register schedules generation under a fresh id and returns the id.
func (m *Manager) Register(opts Options) string {
	m.mu.Lock()
	m.next++
	id := m.prefix + strconv.Itoa(m.next)
	m.mu.Unlock()
	m.Prepare(id, opts)
	return id
}

// Prepare schedules generation under id. A previous result for the same id
// is replaced.
func (m *Manager) Prepare(id string, opts Options) *Pending {
	p := &Pending{id: id, done: make(chan struct{})}
	m.mu.Lock()
	m.pending[id] = p
	m.mu.Unlock()
	m.settled.remove(id)

	m.wg.Add(1)
	go func() {
		defer m.wg.Done()
		m.run(p, opts)
	}()
	return p
}

// Resolve reports whether id names a registered module.
func (m *Manager) Resolve(id string) bool {
	_, ok := m.lookup(id)
	return ok
}

// Load waits for the module and returns its text. A result stays
// available until its first load; after that it lives in the settled
// cache and may be evicted or expire.
func (m *Manager) Load(ctx context.Context, id string) (*Generated, error) {
	p, ok := m.lookup(id)
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrUnknownModule, id)
	}
	out, err := p.Wait(ctx)
	m.loaded(p)
	return out, err
}

// Subscribe streams settle events until ctx is done.
func (m *Manager) Subscribe(ctx context.Context) <-chan Event {
	return m.events.subscribe(ctx, 32)
}

// Close aborts running generations and waits for them to finish.
func (m *Manager) Close() {
	m.cancel()
	m.wg.Wait()
}

// loaded hands a settled module over to the settled cache.
func (m *Manager) loaded(p *Pending) {
	select {
	case <-p.done:
	default:
		return
	}
	m.mu.Lock()
	if m.pending[p.id] == p {
		delete(m.pending, p.id)
		m.settled.put(p)
	}
	m.mu.Unlock()
}

func (m *Manager) lookup(id string) (*Pending, bool) {
	m.mu.Lock()
	p, ok := m.pending[id]
	m.mu.Unlock()
	if ok {
		return p, true
	}
	return m.settled.get(id)
}

func (m *Manager) run(p *Pending, opts Options) {
	start := time.Now()
	text, err := m.generate(m.ctx, opts)
	if err != nil {
		p.err = fmt.Errorf("module %s: %w", p.id, err)
		log.Printf("modules: %v", p.err)
	} else {
		p.out = &Generated{ID: p.id, Text: text}
		log.Printf("modules: %s generated (%d bytes, %s)", p.id, len(text), time.Since(start).Round(time.Microsecond))
	}
	close(p.done)

	ev := Event{Kind: EventReady, ID: p.id}
	if p.err != nil {
		ev.Kind = EventFailed
		ev.Message = p.err.Error()
	} else {
		ev.Bytes = len(p.out.Text)
	}
	m.events.publish(ev)
}

func (m *Manager) generate(ctx context.Context, opts Options) (string, error) {
	in := inspector.New(m.host, m.base.Fork())
	var exports serializer.Exports
	for _, c := range opts.Const {
		if !serializer.IsIdentifier(c.Name) {
			return "", &serializer.SerializationError{Export: c.Name, Err: serializer.ErrInvalidExportName}
		}
		e, err := in.Inspect(ctx, c.Value)
		if err != nil {
			return "", fmt.Errorf("export %s: %w", c.Name, err)
		}
		exports.Const = append(exports.Const, serializer.Export{Name: c.Name, Entry: e})
	}
	if opts.Default != nil {
		e, err := in.Inspect(ctx, opts.Default)
		if err != nil {
			return "", fmt.Errorf("default export: %w", err)
		}
		exports.Default = e
	}
	if opts.Assign != nil {
		e, err := in.Inspect(ctx, opts.Assign)
		if err != nil {
			return "", fmt.Errorf("assign export: %w", err)
		}
		exports.Assign = e
	}
	out, err := serializer.Serialize(exports, serializer.WithReserved(m.realm.GlobalNames()...))
	if err != nil {
		return "", err
	}
	return out.Text, nil
}
