// Package entry defines the nodes of an inspected value graph.
//
// An Entry is created once per live value and referenced by pointer. The
// pending kind reserves a slot while the value's children are inspected;
// Resolve later turns it into the final entry in place so every holder of
// the placeholder observes the result.
package entry

import (
	"fmt"
)

type Kind int

const (
	KindPending Kind = iota
	KindJSON
	KindRegExp
	KindFunction
	KindObject
	KindArray
	KindModule
	KindPromise
	KindExpr
	KindSymbol
)

var kindNames = [...]string{
	KindPending:  "pending",
	KindJSON:     "json",
	KindRegExp:   "regexp",
	KindFunction: "function",
	KindObject:   "object",
	KindArray:    "array",
	KindModule:   "module",
	KindPromise:  "promise",
	KindExpr:     "expr",
	KindSymbol:   "symbol",
}

func (k Kind) String() string {
	if int(k) < len(kindNames) {
		return kindNames[k]
	}
	return fmt.Sprintf("kind(%d)", int(k))
}

// Undefined is the json payload for the undefined value.
type Undefined struct{}

type ModuleKind int

const (
	ModuleDefault ModuleKind = iota
	ModuleStar
)

type SymbolKind int

const (
	SymbolUnique SymbolKind = iota
	SymbolGlobal
	SymbolWellKnown
)

// Entry is one node of the graph. Only the fields matching Kind are set.
type Entry struct {
	Kind Kind

	// JSON payload: nil, Undefined, bool, float64, string, []any or
	// map[string]any.
	JSON any

	Source string
	Flags  string

	Function *Function
	Object   *Object
	Array    *Array

	ModuleKind ModuleKind
	Reference  string

	Inner *Entry

	Code string

	SymbolKind SymbolKind
	SymbolName string

	canon *Entry
}

func Pending() *Entry { return &Entry{Kind: KindPending} }

func JSON(v any) *Entry { return &Entry{Kind: KindJSON, JSON: v} }

func RegExp(source, flags string) *Entry {
	return &Entry{Kind: KindRegExp, Source: source, Flags: flags}
}

func NewFunction(f *Function) *Entry { return &Entry{Kind: KindFunction, Function: f} }

func NewObject(o *Object) *Entry { return &Entry{Kind: KindObject, Object: o} }

func NewArray(a *Array) *Entry { return &Entry{Kind: KindArray, Array: a} }

func Module(kind ModuleKind, reference string) *Entry {
	return &Entry{Kind: KindModule, ModuleKind: kind, Reference: reference}
}

func Promise(inner *Entry) *Entry { return &Entry{Kind: KindPromise, Inner: inner} }

func Expr(code string) *Entry { return &Entry{Kind: KindExpr, Code: code} }

func Symbol(kind SymbolKind, name string) *Entry {
	return &Entry{Kind: KindSymbol, SymbolKind: kind, SymbolName: name}
}

func (e *Entry) IsPending() bool {
	e = e.Canonical()
	return e != nil && e.Kind == KindPending
}

// Resolve turns a pending placeholder into to. The placeholder takes over
// to's payload and remembers to as its canonical entry.
func (e *Entry) Resolve(to *Entry) error {
	if e.Kind != KindPending {
		return fmt.Errorf("entry: resolve on %s entry", e.Kind)
	}
	if to == nil || to == e {
		return fmt.Errorf("entry: invalid resolution target")
	}
	target := to.Canonical()
	*e = *target
	e.canon = target
	return nil
}

// Canonical follows resolution links to the entry that owns the payload.
func (e *Entry) Canonical() *Entry {
	for e != nil && e.canon != nil {
		e = e.canon
	}
	return e
}

// Same reports whether a and b denote the same node.
func Same(a, b *Entry) bool { return a.Canonical() == b.Canonical() }

func (e *Entry) String() string {
	e = e.Canonical()
	if e == nil {
		return "<nil>"
	}
	switch e.Kind {
	case KindJSON:
		return fmt.Sprintf("json(%v)", e.JSON)
	case KindRegExp:
		return fmt.Sprintf("regexp(/%s/%s)", e.Source, e.Flags)
	case KindExpr:
		return fmt.Sprintf("expr(%s)", e.Code)
	case KindModule:
		if e.ModuleKind == ModuleStar {
			return fmt.Sprintf("module(* %s)", e.Reference)
		}
		return fmt.Sprintf("module(default %s)", e.Reference)
	case KindSymbol:
		return fmt.Sprintf("symbol(%s)", e.SymbolName)
	case KindFunction:
		if e.Function != nil && e.Function.Name != "" {
			return "function(" + e.Function.Name + ")"
		}
		return "function"
	default:
		return e.Kind.String()
	}
}
