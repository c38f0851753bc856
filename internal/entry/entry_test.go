package entry

import (
	"testing"
)

func TestResolvePendingInPlace(t *testing.T) {
	p := Pending()
	holder := []*Entry{p}

	arr := NewArrayData()
	arr.Push(p)
	target := NewArray(arr)
	if err := p.Resolve(target); err != nil {
		t.Fatalf("resolve: %v", err)
	}
	if holder[0].Kind != KindArray {
		t.Fatalf("kind: got=%s want=array", holder[0].Kind)
	}
	if !Same(holder[0], target) {
		t.Fatalf("resolved placeholder should be the same node as the target")
	}
	if err := p.Resolve(JSON(1.0)); err == nil {
		t.Fatalf("second resolve should fail")
	}
}

func TestResolveChainsThroughPendingTarget(t *testing.T) {
	a := Pending()
	b := Pending()
	if err := a.Resolve(b); err != nil {
		t.Fatalf("resolve a->b: %v", err)
	}
	if !a.IsPending() {
		t.Fatalf("a should still be pending while b is")
	}
	fin := JSON("x")
	if err := b.Resolve(fin); err != nil {
		t.Fatalf("resolve b: %v", err)
	}
	if a.Canonical() != fin {
		t.Fatalf("a should reach the final entry")
	}
}

func TestArrayComplexity(t *testing.T) {
	tests := []struct {
		name string
		arr  func() *Array
		want bool
	}{
		{
			name: "dense numbers",
			arr: func() *Array {
				return &Array{Elements: []Element{{0, JSON(1.0)}, {1, JSON(2.0)}}, Length: 2, Env: NewEnv()}
			},
			want: false,
		},
		{
			name: "sparse",
			arr: func() *Array {
				return &Array{Elements: []Element{{1, JSON(2.0)}}, Length: 2, Env: NewEnv()}
			},
			want: true,
		},
		{
			name: "trailing holes",
			arr: func() *Array {
				return &Array{Elements: []Element{{0, JSON(1.0)}}, Length: 5, Env: NewEnv()}
			},
			want: true,
		},
		{
			name: "nested object",
			arr: func() *Array {
				return &Array{Elements: []Element{{0, NewObject(NewObjectData())}}, Length: 1, Env: NewEnv()}
			},
			want: true,
		},
		{
			name: "extra property",
			arr: func() *Array {
				a := &Array{Elements: []Element{{0, JSON(1.0)}}, Length: 1, Env: NewEnv()}
				a.Env.Set(&Property{Key: NameKey("foo"), Info: SimpleInfo(), Value: JSON(true)})
				return a
			},
			want: true,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.arr().Complex(); got != tt.want {
				t.Fatalf("Complex: got=%v want=%v", got, tt.want)
			}
		})
	}
}

func TestObjectComplexity(t *testing.T) {
	o := NewObjectData()
	o.Env.Set(&Property{Key: NameKey("a"), Info: SimpleInfo(), Value: JSON(1.0)})
	if o.Complex() {
		t.Fatalf("plain object should not be complex")
	}
	o.Env.Set(&Property{Key: NameKey("b"), Info: PropertyInfo{HasValue: true}, Value: JSON("bar")})
	if !o.Complex() {
		t.Fatalf("non-simple descriptor should make object complex")
	}

	q := NewObjectData()
	q.Env.Set(&Property{Key: NameKey("__proto__"), Info: SimpleInfo(), Value: JSON(1.0)})
	if !q.Complex() {
		t.Fatalf("__proto__ key should make object complex")
	}
}

func TestFunctionSimple(t *testing.T) {
	f := NewFunctionData()
	f.Code = "() => 1"
	if !f.Simple() || !InlineSafe(NewFunction(f)) {
		t.Fatalf("function without captures should be simple")
	}
	f.Captured.Set(&Property{Key: NameKey("x"), Info: SimpleInfo(), Value: JSON(1.0)})
	if f.Simple() {
		t.Fatalf("function with captures should not be simple")
	}
}

func TestArraySetKeepsIndicesSorted(t *testing.T) {
	a := NewArrayData()
	a.Set(1<<32-3, JSON("far"))
	a.Set(5, JSON("mid"))
	a.Set(0, JSON("first"))
	a.Set(5, JSON("again"))

	if a.Count() != 3 {
		t.Fatalf("count: got=%d want=3", a.Count())
	}
	if a.Length != 1<<32-2 {
		t.Fatalf("length: got=%d want=%d", a.Length, 1<<32-2)
	}
	for i, want := range []int{0, 5, 1<<32 - 3} {
		if got := a.Elements[i].Index; got != want {
			t.Fatalf("index %d: got=%d want=%d", i, got, want)
		}
	}
	if got := a.At(5).JSON; got != "again" {
		t.Fatalf("At(5): got=%v want=again", got)
	}
	if a.At(4) != nil {
		t.Fatalf("At(4): want hole")
	}
	if a.End() != 1<<32-2 {
		t.Fatalf("End: got=%d", a.End())
	}
}
