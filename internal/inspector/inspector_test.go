package inspector_test

import (
	"context"
	"errors"
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"closuregen/internal/entry"
	"closuregen/internal/inspector"
	"closuregen/internal/jshost"
	"closuregen/internal/jsvalue"
	"closuregen/internal/wellknown"
)

func newInspector(t *testing.T, r *jsvalue.Realm, opts ...inspector.Option) *inspector.Inspector {
	t.Helper()
	host, err := jshost.New(r)
	require.NoError(t, err)
	base, err := wellknown.NewBase(r)
	require.NoError(t, err)
	return inspector.New(host, base.Fork(), opts...)
}

func inspect(t *testing.T, in *inspector.Inspector, v jsvalue.Value) *entry.Entry {
	t.Helper()
	e, err := in.Inspect(context.Background(), v)
	require.NoError(t, err)
	return e.Canonical()
}

func TestInspectPrimitives(t *testing.T) {
	r := jsvalue.NewRealm()
	in := newInspector(t, r)

	tests := []struct {
		name string
		v    jsvalue.Value
		kind entry.Kind
		code string
		json any
	}{
		{"undefined", jsvalue.Undefined{}, entry.KindJSON, "", entry.Undefined{}},
		{"null", jsvalue.Null{}, entry.KindJSON, "", nil},
		{"number", jsvalue.Number(1.5), entry.KindJSON, "", 1.5},
		{"string", jsvalue.String("s"), entry.KindJSON, "", "s"},
		{"bool", jsvalue.Bool(true), entry.KindJSON, "", true},
		{"nan", jsvalue.Number(math.NaN()), entry.KindExpr, "NaN", nil},
		{"negative zero", jsvalue.Number(math.Copysign(0, -1)), entry.KindExpr, "-0", nil},
		{"infinity", jsvalue.Number(math.Inf(-1)), entry.KindExpr, "-Infinity", nil},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			e := inspect(t, in, tt.v)
			require.Equal(t, tt.kind, e.Kind)
			if tt.kind == entry.KindExpr {
				assert.Equal(t, tt.code, e.Code)
			} else {
				assert.Equal(t, tt.json, e.JSON)
			}
		})
	}
}

func TestInspectSharedAndCyclic(t *testing.T) {
	r := jsvalue.NewRealm()
	in := newInspector(t, r)

	shared := r.NewObject()
	pair := r.NewArray(shared, shared)
	e := inspect(t, in, pair)
	require.Equal(t, entry.KindArray, e.Kind)
	assert.True(t, entry.Same(e.Array.At(0), e.Array.At(1)))
	assert.True(t, e.Array.Complex())

	self := r.NewArray()
	self.Push(self)
	e = inspect(t, in, self)
	assert.True(t, entry.Same(e, e.Array.At(0)))
	assert.False(t, e.Array.At(0).IsPending())
}

func TestInspectSparseArray(t *testing.T) {
	r := jsvalue.NewRealm()
	in := newInspector(t, r)

	arr := r.NewArray()
	arr.SetLength(200)
	arr.SetName("50", jsvalue.String("a"))
	arr.SetName("199", jsvalue.String("b"))
	arr.SetName("tag", jsvalue.Bool(true))

	e := inspect(t, in, arr)
	assert.Equal(t, 200, e.Array.Length)
	assert.Equal(t, 2, e.Array.Count())
	assert.Equal(t, 1, e.Array.Env.Len())
	assert.Nil(t, e.Array.Proto)
	assert.Nil(t, e.Array.At(51))
	assert.Equal(t, "b", e.Array.At(199).Canonical().JSON)
}

func TestInspectHugeSparseArray(t *testing.T) {
	r := jsvalue.NewRealm()
	in := newInspector(t, r)

	arr := r.NewArray()
	arr.SetLength(1<<32 - 2)
	arr.SetName("4294967292", jsvalue.Number(7))

	e := inspect(t, in, arr)
	assert.Equal(t, 1<<32-2, e.Array.Length)
	require.Len(t, e.Array.Elements, 1)
	assert.Equal(t, 4294967292, e.Array.Elements[0].Index)
	assert.Equal(t, 7.0, e.Array.Elements[0].Value.Canonical().JSON)
}

func TestInspectDescriptorsAndSymbols(t *testing.T) {
	r := jsvalue.NewRealm()
	in := newInspector(t, r)

	o := r.NewObject()
	o.DefineProperty(jsvalue.Key("foo"), jsvalue.Property{Value: jsvalue.String("bar")})
	o.Set(jsvalue.SymbolKey(r.SymbolFor("app")), jsvalue.Number(1))
	o.Set(jsvalue.SymbolKey(r.WellKnownSymbol("toStringTag")), jsvalue.String("Thing"))

	e := inspect(t, in, o)
	require.Equal(t, entry.KindObject, e.Kind)
	assert.True(t, e.Object.Complex())
	props := e.Object.Env.Properties()
	require.Len(t, props, 3)

	assert.Equal(t, "foo", props[0].Key.Name)
	assert.False(t, props[0].Info.Simple())
	assert.False(t, props[0].Info.Enumerable || props[0].Info.Writable || props[0].Info.Configurable)

	require.True(t, props[1].Key.IsSymbol())
	assert.Equal(t, entry.SymbolGlobal, props[1].Key.Symbol.SymbolKind)
	assert.Equal(t, entry.SymbolWellKnown, props[2].Key.Symbol.SymbolKind)
}

func TestInspectPrototypes(t *testing.T) {
	r := jsvalue.NewRealm()
	in := newInspector(t, r)

	parent := r.NewObject()
	child := r.NewObjectWithProto(parent)
	bare := r.NewObjectWithProto(nil)

	e := inspect(t, in, child)
	require.NotNil(t, e.Object.Proto)
	assert.Equal(t, entry.KindObject, e.Object.Proto.Canonical().Kind)

	e = inspect(t, in, bare)
	require.NotNil(t, e.Object.Proto)
	assert.Equal(t, entry.KindJSON, e.Object.Proto.Kind)
	assert.Nil(t, e.Object.Proto.JSON)

	assert.Nil(t, inspect(t, in, r.NewObject()).Object.Proto)
}

func TestInspectRewalkUnionsProperties(t *testing.T) {
	r := jsvalue.NewRealm()
	in := newInspector(t, r)

	o := r.NewObject()
	o.SetName("a", jsvalue.Number(1))
	first, err := in.Inspect(context.Background(), o)
	require.NoError(t, err)

	o.SetName("b", jsvalue.Number(2))
	second, err := in.Inspect(context.Background(), o)
	require.NoError(t, err)

	assert.True(t, entry.Same(first, second))
	assert.Equal(t, 2, second.Canonical().Object.Env.Len())
}

func TestInspectWellKnownValues(t *testing.T) {
	r := jsvalue.NewRealm()
	in := newInspector(t, r)

	push := r.ArrayPrototype.Get(jsvalue.Key("push"))
	e := inspect(t, in, push)
	assert.Equal(t, entry.KindExpr, e.Kind)
	assert.Equal(t, "Array.prototype.push", e.Code)
}

func TestInspectFunctionCaptures(t *testing.T) {
	r := jsvalue.NewRealm()
	in := newInspector(t, r)

	counter := r.NewObject()
	counter.SetName("n", jsvalue.Number(0))
	scope := jsvalue.NewScope(nil).
		Declare("counter", counter).
		Declare("step", jsvalue.Number(2))
	fn := r.NewFunction("() => { counter.n += step; return Math.max(counter.n, 0); }", scope)

	e := inspect(t, in, fn)
	require.Equal(t, entry.KindFunction, e.Kind)
	f := e.Function
	assert.True(t, f.Arrow)
	assert.False(t, f.Simple())

	names := make([]string, 0)
	for _, p := range f.Captured.Properties() {
		names = append(names, p.Key.Name)
	}
	assert.Equal(t, []string{"counter", "step"}, names, "globals are not captured")
	assert.Equal(t, []string{"Math"}, f.Free)
}

func TestInspectOptionalCaptureDropped(t *testing.T) {
	r := jsvalue.NewRealm()
	in := newInspector(t, r)

	fn := r.NewFunction("(c) => c ? maybe : 0", jsvalue.NewScope(nil))
	e := inspect(t, in, fn)
	assert.Equal(t, 0, e.Function.Captured.Len())
	assert.True(t, e.Function.Simple())
	assert.Equal(t, []string{"maybe"}, e.Function.Free)
}

func TestInspectRequiredCaptureFails(t *testing.T) {
	r := jsvalue.NewRealm()
	in := newInspector(t, r)

	holder := r.NewObject()
	holder.SetName("run", r.NewFunction("function run() { return missing + 1; }", jsvalue.NewScope(nil)))

	_, err := in.Inspect(context.Background(), holder)
	require.Error(t, err)
	assert.True(t, errors.Is(err, inspector.ErrUnresolvedCapture))

	var ie *inspector.InspectionError
	require.True(t, errors.As(err, &ie))
	assert.Equal(t, []inspector.Frame{
		{Kind: inspector.FrameProperty, Name: "run"},
		{Kind: inspector.FrameFunction, Name: "run"},
		{Kind: inspector.FrameVariable, Name: "missing"},
	}, ie.Frames)
	assert.Contains(t, err.Error(), "property run > function run > variable missing")
}

func TestInspectNativeFails(t *testing.T) {
	r := jsvalue.NewRealm()
	in := newInspector(t, r)

	o := r.NewObject()
	o.SetName("cb", r.NewNative("hostCallback"))
	_, err := in.Inspect(context.Background(), o)
	assert.True(t, errors.Is(err, inspector.ErrNativeCode))
	assert.Contains(t, err.Error(), "function hostCallback")
}

func TestInspectSelfReference(t *testing.T) {
	r := jsvalue.NewRealm()
	in := newInspector(t, r)

	fn := r.NewConstructor("function fact(n) { return n <= 1 ? 1 : n * fact(n - 1); }", jsvalue.NewScope(nil))
	e := inspect(t, in, fn)
	f := e.Function
	assert.Equal(t, "fact", f.Name)
	assert.Equal(t, "function (n) { return n <= 1 ? 1 : n * fact(n - 1); }", f.Code)
	self, ok := f.Captured.Get(entry.NameKey("fact"))
	require.True(t, ok)
	assert.True(t, entry.Same(self.Value, e))
	assert.Nil(t, f.Prototype, "default prototype is recreated by the declaration")
}

func TestInspectSimpleFunctionDedup(t *testing.T) {
	r := jsvalue.NewRealm()
	src := "function (a) { return a * 2; }"
	f1 := r.NewFunction(src, nil)
	f2 := r.NewFunction(src, nil)

	in := newInspector(t, r)
	a := inspect(t, in, r.NewArray(f1, f2))
	assert.True(t, entry.Same(a.Array.At(0), a.Array.At(1)))

	in = newInspector(t, r, inspector.WithoutSimpleDedup())
	a = inspect(t, in, r.NewArray(f1, f2))
	assert.False(t, entry.Same(a.Array.At(0), a.Array.At(1)))
}

func TestInspectConstructorPrototype(t *testing.T) {
	r := jsvalue.NewRealm()
	in := newInspector(t, r)

	point := r.NewConstructor("function Point(x) { this.x = x; }", jsvalue.NewScope(nil))
	proto := point.Get(jsvalue.Key("prototype")).(*jsvalue.Object)
	proto.DefineProperty(jsvalue.Key("getX"), jsvalue.Property{
		Value:        r.NewFunction("function () { return this.x; }", nil),
		Writable:     true,
		Configurable: true,
	})

	e := inspect(t, in, point)
	require.NotNil(t, e.Function.Prototype)
	pe := e.Function.Prototype.Canonical()
	assert.True(t, entry.Same(pe.Object.PrototypeOf, e))
	assert.False(t, pe.Object.Env.Has(entry.NameKey("constructor")), "back-link is implied")
	assert.True(t, pe.Object.Env.Has(entry.NameKey("getX")))
}

func TestInspectDerivedClassBindsSuper(t *testing.T) {
	r := jsvalue.NewRealm()
	in := newInspector(t, r)

	scope := jsvalue.NewScope(nil)
	base := r.NewClass("class Base { greet() { return 'hi'; } }", scope, nil)
	baseProto := base.Get(jsvalue.Key("prototype")).(*jsvalue.Object)
	baseProto.DefineProperty(jsvalue.Key("greet"), jsvalue.Property{
		Value: r.NewFunction("greet() { return 'hi'; }", scope), Writable: true, Configurable: true,
	})
	scope.Declare("Base", base)

	loud := r.NewClass("class Loud extends Base { greet() { return super.greet() + '!'; } }", scope, base)
	loudProto := loud.Get(jsvalue.Key("prototype")).(*jsvalue.Object)
	greet := r.NewFunction("greet() { return super.greet() + '!'; }", scope)
	loudProto.DefineProperty(jsvalue.Key("greet"), jsvalue.Property{Value: greet, Writable: true, Configurable: true})
	scope.Declare("Loud", loud)

	e := inspect(t, in, loud)
	f := e.Function
	assert.True(t, f.Class)
	assert.True(t, f.Extends)
	assert.Equal(t, "Base", f.SuperName)
	assert.Nil(t, f.Proto, "extends sets the constructor's prototype")

	be, ok := f.Captured.Get(entry.NameKey("Base"))
	require.True(t, ok)
	require.NotNil(t, f.Prototype)
	pe := f.Prototype.Canonical()
	assert.Nil(t, pe.Object.Proto, "extends links the prototype objects")

	method, ok := pe.Object.Env.Get(entry.NameKey("greet"))
	require.True(t, ok)
	mf := method.Value.Canonical().Function
	assert.Equal(t, "function () { return __super.greet.call(this) + '!'; }", mf.Code)

	sup, ok := mf.Captured.Get(entry.NameKey("__super"))
	require.True(t, ok)
	baseEntry := be.Value.Canonical()
	require.NotNil(t, baseEntry.Function.Prototype)
	assert.True(t, entry.Same(sup.Value, baseEntry.Function.Prototype), "super resolves to Base.prototype")
}

func TestInspectPromise(t *testing.T) {
	r := jsvalue.NewRealm()
	in := newInspector(t, r)

	e := inspect(t, in, r.ResolvedPromise(jsvalue.Number(5)))
	require.Equal(t, entry.KindPromise, e.Kind)
	assert.Equal(t, 5.0, e.Inner.Canonical().JSON)

	rejected := r.NewPromise()
	rejected.Reject(errors.New("boom"))
	_, err := in.Inspect(context.Background(), rejected)
	assert.True(t, errors.Is(err, inspector.ErrRejectedPromise))
	assert.Contains(t, err.Error(), "boom")
}

func TestInspectPendingPromiseHonorsContext(t *testing.T) {
	r := jsvalue.NewRealm()
	in := newInspector(t, r)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := in.Inspect(ctx, r.NewPromise())
	assert.True(t, errors.Is(err, context.Canceled))
	assert.False(t, errors.Is(err, inspector.ErrRejectedPromise))
}

func TestInspectModuleNamespace(t *testing.T) {
	r := jsvalue.NewRealm()
	def := r.NewObject()
	ns := r.NewModuleNamespace("virtual:lib", map[string]jsvalue.Value{"default": def})

	host, err := jshost.New(r)
	require.NoError(t, err)
	base, err := wellknown.NewBase(r, ns)
	require.NoError(t, err)
	in := inspector.New(host, base.Fork())

	e := inspect(t, in, ns)
	assert.Equal(t, entry.KindModule, e.Kind)
	assert.Equal(t, entry.ModuleStar, e.ModuleKind)

	e = inspect(t, in, def)
	assert.Equal(t, entry.ModuleDefault, e.ModuleKind)
	assert.Equal(t, "virtual:lib", e.Reference)
}
