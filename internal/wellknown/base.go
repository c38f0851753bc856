// Package wellknown builds the sealed base registry shared by every run.
//
// The base maps realm intrinsics to expressions naming them, so generated
// modules reference Object.prototype or Array.prototype.push directly
// instead of trying to rebuild them.
package wellknown

import (
	"fmt"
	"regexp"

	"closuregen/internal/entry"
	"closuregen/internal/jsvalue"
	"closuregen/internal/registry"
)

// maxDepth bounds the walk below each global: Array, Array.prototype,
// Array.prototype.push.
const maxDepth = 3

var identRe = regexp.MustCompile(`^[A-Za-z_$][A-Za-z0-9_$]*$`)

// NewBase returns a sealed registry holding the realm's intrinsics, the
// well-known symbols and the given module namespaces.
func NewBase(realm *jsvalue.Realm, namespaces ...*jsvalue.Object) (*registry.Registry, error) {
	reg := registry.New()
	b := builder{reg: reg}
	if err := b.add(realm.Global, "globalThis"); err != nil {
		return nil, err
	}
	for _, name := range realm.GlobalNames() {
		prop, _ := realm.Global.GetOwn(jsvalue.Key(name))
		if o, ok := prop.Value.(*jsvalue.Object); ok {
			if err := b.walk(o, name, 1); err != nil {
				return nil, err
			}
		}
	}
	for _, name := range jsvalue.WellKnownSymbolNames {
		if s := realm.WellKnownSymbol(name); s != nil {
			if err := b.add(s, ""); err != nil {
				return nil, err
			}
		}
	}
	for _, ns := range namespaces {
		if err := SeedModule(reg, ns); err != nil {
			return nil, err
		}
	}
	reg.Seal()
	return reg, nil
}

type builder struct {
	reg *registry.Registry
}

func (b builder) add(key any, code string) error {
	if b.reg.Lookup(key) != nil {
		return nil
	}
	var e *entry.Entry
	switch k := key.(type) {
	case *jsvalue.Symbol:
		e = entry.Symbol(entry.SymbolWellKnown, k.Description)
	default:
		e = entry.Expr(code)
	}
	return b.reg.Add(key, e)
}

func (b builder) walk(o *jsvalue.Object, path string, depth int) error {
	if b.reg.Lookup(o) != nil {
		return nil
	}
	if err := b.add(o, path); err != nil {
		return err
	}
	if depth >= maxDepth {
		return nil
	}
	for _, k := range o.OwnKeys() {
		if k.IsSymbol() {
			continue
		}
		prop, _ := o.GetOwn(k)
		child, ok := prop.Value.(*jsvalue.Object)
		if !ok {
			continue
		}
		if err := b.walk(child, member(path, k.Name), depth+1); err != nil {
			return err
		}
	}
	return nil
}

func member(path, name string) string {
	if identRe.MatchString(name) {
		return path + "." + name
	}
	return fmt.Sprintf("%s[%q]", path, name)
}

// SeedModule maps a module namespace object to a star import of its
// specifier and its default export to a default import.
func SeedModule(reg *registry.Registry, ns *jsvalue.Object) error {
	if ns.Class() != jsvalue.ClassModule {
		return fmt.Errorf("wellknown: %s is not a module namespace", ns.Class())
	}
	spec := ns.Specifier()
	if err := reg.Add(ns, entry.Module(entry.ModuleStar, spec)); err != nil {
		return err
	}
	if p, ok := ns.GetOwn(jsvalue.Key("default")); ok {
		if o, ok := p.Value.(*jsvalue.Object); ok && reg.Lookup(o) == nil {
			return reg.Add(o, entry.Module(entry.ModuleDefault, spec))
		}
	}
	return nil
}
