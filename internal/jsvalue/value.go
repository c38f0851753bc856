// Package jsvalue is the live heap that closuregen serializes: a small
// JavaScript object model with prototypes, property descriptors, closures
// over lexical scopes, symbols, promises and module namespaces.
package jsvalue

import (
	"math"
	"strconv"
)

// Value is any value living in the heap. Primitives are plain Go types,
// reference values are *Object and *Symbol.
type Value interface {
	isValue()
}

type Undefined struct{}

type Null struct{}

type Number float64

type String string

type Bool bool

func (Undefined) isValue() {}
func (Null) isValue()      {}
func (Number) isValue()    {}
func (String) isValue()    {}
func (Bool) isValue()      {}
func (*Object) isValue()   {}
func (*Symbol) isValue()   {}

// IsNullish reports whether v is null or undefined (a nil Value counts as
// undefined).
func IsNullish(v Value) bool {
	switch v.(type) {
	case nil, Undefined, Null:
		return true
	}
	return false
}

// IsNegativeZero reports whether n is -0.
func (n Number) IsNegativeZero() bool {
	f := float64(n)
	return f == 0 && math.Signbit(f)
}

// SymbolKind tells how a symbol can be recreated.
type SymbolKind int

const (
	// SymbolUnique is a symbol created by Symbol(description).
	SymbolUnique SymbolKind = iota
	// SymbolRegistered is a symbol from the global registry, Symbol.for(key).
	SymbolRegistered
	// SymbolWellKnown is one of the Symbol.<name> intrinsics.
	SymbolWellKnown
)

// Symbol is a symbol value. Identity is pointer identity.
type Symbol struct {
	Kind        SymbolKind
	Description string
}

// NewSymbol creates a fresh unique symbol.
func NewSymbol(description string) *Symbol {
	return &Symbol{Kind: SymbolUnique, Description: description}
}

func (s *Symbol) String() string {
	if s == nil {
		return "Symbol()"
	}
	switch s.Kind {
	case SymbolWellKnown:
		return "Symbol." + s.Description
	case SymbolRegistered:
		return "Symbol.for(" + strconv.Quote(s.Description) + ")"
	default:
		return "Symbol(" + s.Description + ")"
	}
}

// PropertyKey is either a string name or a symbol.
type PropertyKey struct {
	Name   string
	Symbol *Symbol
}

// Key returns a string property key.
func Key(name string) PropertyKey { return PropertyKey{Name: name} }

// SymbolKey returns a symbol property key.
func SymbolKey(s *Symbol) PropertyKey { return PropertyKey{Symbol: s} }

func (k PropertyKey) IsSymbol() bool { return k.Symbol != nil }

func (k PropertyKey) String() string {
	if k.Symbol != nil {
		return "[" + k.Symbol.String() + "]"
	}
	return k.Name
}

// ArrayIndex reports whether the key is a canonical array index and returns it.
func (k PropertyKey) ArrayIndex() (int, bool) {
	if k.Symbol != nil || k.Name == "" {
		return 0, false
	}
	if len(k.Name) > 1 && k.Name[0] == '0' {
		return 0, false
	}
	n, err := strconv.ParseUint(k.Name, 10, 32)
	if err != nil || n == math.MaxUint32 {
		return 0, false
	}
	return int(n), true
}

var (
	nanValue = Number(math.NaN())
	infValue = Number(math.Inf(1))
)
