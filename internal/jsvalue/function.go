package jsvalue

import (
	"strconv"
)

// Function is the callable part of a function object. The heap does not run
// code; it only keeps what is needed to rebuild the function elsewhere.
type Function struct {
	// Source is the text Function.prototype.toString would report.
	Source string
	// Scope is the environment the closure was created in.
	Scope *Scope
	// Native marks host functions whose source is not available.
	Native bool
	// NativeName is the name a native function reports.
	NativeName string
	// Async marks async functions, whose default prototype differs.
	Async bool
}

// Scope is a lexical environment. Lookups walk the parent chain.
type Scope struct {
	parent *Scope
	names  []string
	vars   map[string]Value
}

func NewScope(parent *Scope) *Scope {
	return &Scope{parent: parent, vars: make(map[string]Value)}
}

func (s *Scope) Parent() *Scope { return s.parent }

// Declare binds name in this scope, shadowing outer bindings.
func (s *Scope) Declare(name string, v Value) *Scope {
	if _, ok := s.vars[name]; !ok {
		s.names = append(s.names, name)
	}
	s.vars[name] = v
	return s
}

// Assign updates the nearest binding of name. It reports false when no
// scope declares it.
func (s *Scope) Assign(name string, v Value) bool {
	for cur := s; cur != nil; cur = cur.parent {
		if _, ok := cur.vars[name]; ok {
			cur.vars[name] = v
			return true
		}
	}
	return false
}

// Lookup resolves name through the scope chain.
func (s *Scope) Lookup(name string) (Value, bool) {
	for cur := s; cur != nil; cur = cur.parent {
		if v, ok := cur.vars[name]; ok {
			return v, true
		}
	}
	return nil, false
}

// Names lists the bindings declared directly in s, in declaration order.
func (s *Scope) Names() []string {
	return append([]string(nil), s.names...)
}

func itoa(i int) string { return strconv.Itoa(i) }
