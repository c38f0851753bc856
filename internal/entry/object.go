package entry

import "sort"

// PropKey is a property key: a string name or a symbol entry.
type PropKey struct {
	Name   string
	Symbol *Entry
}

func NameKey(name string) PropKey { return PropKey{Name: name} }

func SymbolKey(sym *Entry) PropKey { return PropKey{Symbol: sym.Canonical()} }

func (k PropKey) IsSymbol() bool { return k.Symbol != nil }

// PropertyInfo is descriptor metadata.
type PropertyInfo struct {
	Configurable bool
	Enumerable   bool
	Writable     bool
	Get          *Entry
	Set          *Entry
	HasValue     bool
}

// SimpleInfo describes a property created by plain assignment.
func SimpleInfo() PropertyInfo {
	return PropertyInfo{Configurable: true, Enumerable: true, Writable: true, HasValue: true}
}

// Simple reports whether the property can be written as a plain field.
func (p PropertyInfo) Simple() bool {
	return p.Configurable && p.Enumerable && p.Writable && p.Get == nil && p.Set == nil
}

// Property pairs descriptor metadata with the value entry.
type Property struct {
	Key   PropKey
	Info  PropertyInfo
	Value *Entry
}

// Env is an insertion-ordered property map.
type Env struct {
	keys  []PropKey
	props map[PropKey]*Property
}

func NewEnv() *Env {
	return &Env{props: make(map[PropKey]*Property)}
}

// Set adds or replaces the property under p.Key.
func (e *Env) Set(p *Property) {
	if _, ok := e.props[p.Key]; !ok {
		e.keys = append(e.keys, p.Key)
	}
	e.props[p.Key] = p
}

func (e *Env) Get(k PropKey) (*Property, bool) {
	if e == nil {
		return nil, false
	}
	p, ok := e.props[k]
	return p, ok
}

func (e *Env) Has(k PropKey) bool {
	_, ok := e.Get(k)
	return ok
}

func (e *Env) Len() int {
	if e == nil {
		return 0
	}
	return len(e.keys)
}

// Properties returns the properties in insertion order.
func (e *Env) Properties() []*Property {
	if e == nil {
		return nil
	}
	out := make([]*Property, 0, len(e.keys))
	for _, k := range e.keys {
		out = append(out, e.props[k])
	}
	return out
}

// Object is an inspected object.
type Object struct {
	// Proto is nil when the prototype is the default for the object's
	// kind. A json(null) entry stands for a null prototype.
	Proto *Entry
	Env   *Env
	// PrototypeOf links a function's prototype object back to the function.
	PrototypeOf *Entry
}

func NewObjectData() *Object { return &Object{Env: NewEnv()} }

// Function is an inspected function.
type Function struct {
	Object

	// Code is an expression evaluating to the function, declared name
	// stripped.
	Code     string
	Captured *Env
	// Free lists names the code references without a captured binding:
	// realm globals and optional variables left to resolve at runtime.
	Free []string

	UsesNonLexicalThis bool
	Name               string
	ParamCount         int

	Arrow bool
	Async bool
	Class bool
	// Extends marks derived classes; SuperName is the captured variable
	// holding the parent class when the heritage is a plain identifier.
	Extends   bool
	SuperName string

	// Prototype is the function's own prototype object when it carries more
	// than the default constructor back-link.
	Prototype *Entry
	// This is the lexical this captured by an arrow function.
	This *Entry
}

func NewFunctionData() *Function {
	return &Function{Object: Object{Env: NewEnv()}, Captured: NewEnv()}
}

// Simple reports whether the function is fully described by its code.
func (f *Function) Simple() bool {
	return f.Captured.Len() == 0 && f.Env.Len() == 0 && f.Proto == nil && f.Prototype == nil && f.This == nil
}

// Element is one set index of an array.
type Element struct {
	Index int
	Value *Entry
}

// Array is an inspected array. Elements lists the set indices in ascending
// order; every other index below Length is a hole.
type Array struct {
	Elements []Element
	Length   int
	// Env holds the non-index own properties.
	Env *Env
	// Proto is nil for Array.prototype.
	Proto *Entry
}

func NewArrayData() *Array { return &Array{Env: NewEnv()} }

// Push appends v at index Length.
func (a *Array) Push(vs ...*Entry) {
	for _, v := range vs {
		a.Elements = append(a.Elements, Element{Index: a.Length, Value: v})
		a.Length++
	}
}

// Set stores v at index i, growing Length when needed.
func (a *Array) Set(i int, v *Entry) {
	n := len(a.Elements)
	if n == 0 || a.Elements[n-1].Index < i {
		a.Elements = append(a.Elements, Element{Index: i, Value: v})
	} else {
		j := sort.Search(n, func(k int) bool { return a.Elements[k].Index >= i })
		if a.Elements[j].Index == i {
			a.Elements[j].Value = v
		} else {
			a.Elements = append(a.Elements, Element{})
			copy(a.Elements[j+1:], a.Elements[j:])
			a.Elements[j] = Element{Index: i, Value: v}
		}
	}
	if i >= a.Length {
		a.Length = i + 1
	}
}

// At returns the entry at index i, or nil for a hole.
func (a *Array) At(i int) *Entry {
	j := sort.Search(len(a.Elements), func(k int) bool { return a.Elements[k].Index >= i })
	if j < len(a.Elements) && a.Elements[j].Index == i {
		return a.Elements[j].Value
	}
	return nil
}

// End is one past the highest set index.
func (a *Array) End() int {
	if n := len(a.Elements); n > 0 {
		return a.Elements[n-1].Index + 1
	}
	return 0
}
