// Package inspector walks live heap values into entry graphs.
//
// Every object is registered before its children are visited, so a child
// that refers back to an ancestor receives the ancestor's pending entry and
// the walk terminates on cyclic graphs.
package inspector

import (
	"context"
	"errors"
	"math"

	"closuregen/internal/entry"
	"closuregen/internal/introspect"
	"closuregen/internal/jsvalue"
	"closuregen/internal/registry"
)

// Host supplies what cannot be read off the heap directly: a function's
// parsed source and the current values of the variables it closes over.
type Host interface {
	Introspect(ctx context.Context, fn *jsvalue.Object) (*introspect.Info, error)
	ResolveCaptured(ctx context.Context, fn *jsvalue.Object, name string) (jsvalue.Value, error)
	Realm() *jsvalue.Realm
}

// Inspector is single-use per run and not safe for concurrent use.
type Inspector struct {
	host  Host
	realm *jsvalue.Realm
	reg   *registry.Registry

	dedup  bool
	simple map[simpleKey]*entry.Entry

	walking map[*jsvalue.Object]bool
	homes   map[*jsvalue.Object]*jsvalue.Object
	frames  []Frame
}

type simpleKey struct {
	code     string
	usesThis bool
}

type Option func(*Inspector)

// WithoutSimpleDedup keeps one entry per simple function object instead of
// sharing entries between functions with identical code.
func WithoutSimpleDedup() Option {
	return func(in *Inspector) { in.dedup = false }
}

func New(host Host, reg *registry.Registry, opts ...Option) *Inspector {
	in := &Inspector{
		host:    host,
		realm:   host.Realm(),
		reg:     reg,
		dedup:   true,
		simple:  make(map[simpleKey]*entry.Entry),
		walking: make(map[*jsvalue.Object]bool),
		homes:   make(map[*jsvalue.Object]*jsvalue.Object),
	}
	for _, opt := range opts {
		opt(in)
	}
	return in
}

// Registry returns the registry the inspector fills.
func (in *Inspector) Registry() *registry.Registry { return in.reg }

// Inspect returns the entry describing v.
func (in *Inspector) Inspect(ctx context.Context, v jsvalue.Value) (*entry.Entry, error) {
	in.frames = in.frames[:0]
	return in.inspect(ctx, v)
}

func (in *Inspector) inspect(ctx context.Context, v jsvalue.Value) (*entry.Entry, error) {
	switch v := v.(type) {
	case nil, jsvalue.Undefined:
		return entry.JSON(entry.Undefined{}), nil
	case jsvalue.Null:
		return entry.JSON(nil), nil
	case jsvalue.Number:
		return numberEntry(v), nil
	case jsvalue.Bool:
		return entry.JSON(bool(v)), nil
	case jsvalue.String:
		return entry.JSON(string(v)), nil
	case *jsvalue.Symbol:
		return in.tracked(ctx, v, func() (*entry.Entry, error) { return symbolEntry(v), nil })
	case *jsvalue.Object:
		if e := in.reg.Lookup(v); e != nil {
			if c := e.Canonical(); c.Kind == entry.KindObject && !in.walking[v] {
				if err := in.rewalk(ctx, v, c.Object); err != nil {
					return nil, err
				}
			}
			return e, nil
		}
		return in.tracked(ctx, v, func() (*entry.Entry, error) { return in.dispatch(ctx, v) })
	}
	return nil, in.fail(errors.New("unsupported value"))
}

// tracked registers a placeholder for key, builds the entry and resolves the
// placeholder to it.
func (in *Inspector) tracked(ctx context.Context, key any, build func() (*entry.Entry, error)) (*entry.Entry, error) {
	if e := in.reg.Lookup(key); e != nil {
		return e, nil
	}
	p, err := in.reg.PreparedLookup(key)
	if err != nil {
		return nil, in.fail(err)
	}
	res, err := build()
	if err != nil {
		return nil, err
	}
	if err := in.reg.Add(key, res); err != nil {
		return nil, in.fail(err)
	}
	return p, nil
}

func (in *Inspector) dispatch(ctx context.Context, o *jsvalue.Object) (*entry.Entry, error) {
	in.walking[o] = true
	defer delete(in.walking, o)

	switch o.Class() {
	case jsvalue.ClassFunction:
		return in.function(ctx, o)
	case jsvalue.ClassArray:
		return in.array(ctx, o)
	case jsvalue.ClassRegExp:
		src, flags := o.RegExp()
		return entry.RegExp(src, flags), nil
	case jsvalue.ClassPromise:
		return in.promise(ctx, o)
	case jsvalue.ClassModule:
		return entry.Module(entry.ModuleStar, o.Specifier()), nil
	default:
		return in.object(ctx, o)
	}
}

func (in *Inspector) promise(ctx context.Context, o *jsvalue.Object) (*entry.Entry, error) {
	v, err := o.Await(ctx)
	if err != nil {
		if ctx.Err() != nil {
			return nil, in.fail(err)
		}
		return nil, in.fail(errors.Join(ErrRejectedPromise, err))
	}
	inner, err := in.inspect(ctx, v)
	if err != nil {
		return nil, err
	}
	return entry.Promise(inner), nil
}

func numberEntry(n jsvalue.Number) *entry.Entry {
	f := float64(n)
	switch {
	case math.IsNaN(f):
		return entry.Expr("NaN")
	case math.IsInf(f, 1):
		return entry.Expr("Infinity")
	case math.IsInf(f, -1):
		return entry.Expr("-Infinity")
	case f == 0 && math.Signbit(f):
		return entry.Expr("-0")
	case f == 0:
		return entry.Expr("0")
	}
	return entry.JSON(f)
}

func symbolEntry(s *jsvalue.Symbol) *entry.Entry {
	switch s.Kind {
	case jsvalue.SymbolRegistered:
		return entry.Symbol(entry.SymbolGlobal, s.Description)
	case jsvalue.SymbolWellKnown:
		return entry.Symbol(entry.SymbolWellKnown, s.Description)
	default:
		return entry.Symbol(entry.SymbolUnique, s.Description)
	}
}

func (in *Inspector) push(kind FrameKind, name string) {
	in.frames = append(in.frames, Frame{Kind: kind, Name: name})
}

func (in *Inspector) pop() { in.frames = in.frames[:len(in.frames)-1] }

// fail wraps err with the current frames unless it already carries them.
func (in *Inspector) fail(err error) error {
	var ie *InspectionError
	if errors.As(err, &ie) {
		return err
	}
	return &InspectionError{Frames: append([]Frame(nil), in.frames...), Err: err}
}
