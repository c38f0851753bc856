package jsvalue

import (
	"context"
	"errors"
	"testing"
	"time"
)

func TestOwnKeysOrder(t *testing.T) {
	r := NewRealm()
	sym := NewSymbol("tag")
	o := r.NewObject()
	o.SetName("b", Number(1))
	o.Set(SymbolKey(sym), Number(2))
	o.SetName("10", Number(3))
	o.SetName("a", Number(4))
	o.SetName("2", Number(5))

	got := o.OwnKeys()
	want := []PropertyKey{Key("2"), Key("10"), Key("b"), Key("a"), SymbolKey(sym)}
	if len(got) != len(want) {
		t.Fatalf("keys: got=%v want=%v", got, want)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("key %d: got=%v want=%v", i, got[i], want[i])
		}
	}
}

func TestArrayLengthTracksIndices(t *testing.T) {
	r := NewRealm()
	a := r.NewArray(Number(1), Number(2))
	a.SetName("9", String("x"))
	if a.Length() != 10 {
		t.Fatalf("length: got=%d want=10", a.Length())
	}
	a.SetLength(1)
	if a.Length() != 1 {
		t.Fatalf("length after truncate: got=%d want=1", a.Length())
	}
	if _, ok := a.GetOwn(Key("9")); ok {
		t.Fatalf("index 9 survived truncation")
	}
	if got := a.Index(0); got != Number(1) {
		t.Fatalf("index 0: got=%v want=1", got)
	}
}

func TestSetRespectsWritable(t *testing.T) {
	r := NewRealm()
	o := r.NewObject()
	o.DefineProperty(Key("foo"), Property{Value: String("bar")})
	o.SetName("foo", String("baz"))
	if got := o.Get(Key("foo")); got != String("bar") {
		t.Fatalf("non-writable property changed: got=%v", got)
	}
}

func TestScopeLookupWalksParents(t *testing.T) {
	outer := NewScope(nil).Declare("x", Number(1))
	inner := NewScope(outer).Declare("y", Number(2))
	if v, ok := inner.Lookup("x"); !ok || v != Number(1) {
		t.Fatalf("x: got=%v,%v want=1,true", v, ok)
	}
	if _, ok := inner.Lookup("z"); ok {
		t.Fatalf("z should not resolve")
	}
	if !inner.Assign("x", Number(5)) {
		t.Fatalf("assign x failed")
	}
	if v, _ := outer.Lookup("x"); v != Number(5) {
		t.Fatalf("outer x: got=%v want=5", v)
	}
}

func TestClassPrototypeChain(t *testing.T) {
	r := NewRealm()
	base := r.NewClass("class Base {}", nil, nil)
	derived := r.NewClass("class Derived extends Base {}", nil, base)
	if derived.Proto() != base {
		t.Fatalf("derived [[Prototype]] should be base")
	}
	dp := derived.Get(Key("prototype")).(*Object)
	bp := base.Get(Key("prototype")).(*Object)
	if dp.Proto() != bp {
		t.Fatalf("derived.prototype should inherit from base.prototype")
	}
	p, _ := derived.GetOwn(Key("prototype"))
	if p.Writable {
		t.Fatalf("class prototype must not be writable")
	}
}

func TestFromJSONPreservesOrder(t *testing.T) {
	r := NewRealm()
	v, err := r.FromJSON([]byte(`{"z":1,"a":[true,null,"s"],"m":{"k":-2.5}}`))
	if err != nil {
		t.Fatalf("FromJSON: %v", err)
	}
	o := v.(*Object)
	keys := o.OwnKeys()
	if len(keys) != 3 || keys[0].Name != "z" || keys[1].Name != "a" || keys[2].Name != "m" {
		t.Fatalf("keys: got=%v", keys)
	}
	arr := o.Get(Key("a")).(*Object)
	if arr.Length() != 3 || arr.Index(1) != (Null{}) {
		t.Fatalf("array: len=%d [1]=%v", arr.Length(), arr.Index(1))
	}
	if _, err := r.FromJSON([]byte(`[1] 2`)); err == nil {
		t.Fatalf("expected trailing data error")
	}
}

func TestPromiseAwait(t *testing.T) {
	r := NewRealm()
	p := r.NewPromise()
	if _, err := p.Settled(); !errors.Is(err, ErrPromisePending) {
		t.Fatalf("settled: got=%v want=ErrPromisePending", err)
	}
	go p.Resolve(String("done"))
	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	v, err := p.Await(ctx)
	if err != nil || v != String("done") {
		t.Fatalf("await: got=%v,%v", v, err)
	}
}
