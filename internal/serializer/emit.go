package serializer

import (
	"fmt"
	"strconv"
	"strings"

	"closuregen/internal/entry"
)

func (s *serializer) object(e *entry.Entry, hint string) (string, error) {
	o := e.Object
	if o.PrototypeOf != nil {
		owner, err := s.ref(o.PrototypeOf, "")
		if err != nil {
			return "", err
		}
		if name, ok := s.refs[e]; ok {
			return name, nil
		}
		name := s.declare(e, owner+"Prototype")
		s.emit("const %s = %s.prototype;", name, owner)
		return name, s.fillPrototype(e, name)
	}

	if !o.Complex() {
		parts := make([]string, 0, o.Env.Len())
		for _, p := range o.Env.Properties() {
			v, err := s.ref(p.Value, p.Key.Name)
			if err != nil {
				return "", err
			}
			parts = append(parts, propertyName(p.Key.Name)+": "+v)
		}
		if name, ok := s.refs[e]; ok {
			return name, nil
		}
		name := s.declare(e, pick(hint, "obj"))
		if len(parts) == 0 {
			s.emit("const %s = {};", name)
		} else {
			s.emit("const %s = { %s };", name, strings.Join(parts, ", "))
		}
		return name, nil
	}

	init := "{}"
	if o.Proto != nil {
		proto, err := s.ref(o.Proto, "proto")
		if err != nil {
			return "", err
		}
		if name, ok := s.refs[e]; ok {
			return name, nil
		}
		init = fmt.Sprintf("Object.create(%s)", proto)
	}
	name := s.declare(e, pick(hint, "obj"))
	s.emit("const %s = %s;", name, init)
	return name, s.fill(name, o.Env, o.Proto == nil)
}

// fillPrototype writes the contents of a function's prototype object, which
// already exists once the function is declared.
func (s *serializer) fillPrototype(e *entry.Entry, name string) error {
	o := e.Object
	if o.Proto != nil {
		proto, err := s.ref(o.Proto, "proto")
		if err != nil {
			return err
		}
		s.emit("Object.setPrototypeOf(%s, %s);", name, proto)
	}
	return s.fill(name, o.Env, false)
}

// fill writes one statement per property. Plain assignment is only used when
// nothing on the prototype chain can intercept it.
func (s *serializer) fill(target string, env *entry.Env, assignable bool) error {
	for _, p := range env.Properties() {
		if err := s.property(target, p, assignable); err != nil {
			return err
		}
	}
	return nil
}

func (s *serializer) property(target string, p *entry.Property, assignable bool) error {
	var access, key string
	hint := p.Key.Name
	if p.Key.IsSymbol() {
		sym, err := s.ref(p.Key.Symbol, "")
		if err != nil {
			return err
		}
		access = target + "[" + sym + "]"
		key = sym
		hint = sym + "Value"
	} else {
		access = member(target, p.Key.Name)
		key = quote(p.Key.Name)
	}

	if assignable && p.Info.Simple() && p.Key.Name != "__proto__" {
		v, err := s.ref(p.Value, hint)
		if err != nil {
			return err
		}
		s.emit("%s = %s;", access, v)
		return nil
	}

	var fields []string
	if p.Info.HasValue {
		v, err := s.ref(p.Value, hint)
		if err != nil {
			return err
		}
		fields = append(fields, "value: "+v, "writable: "+strconv.FormatBool(p.Info.Writable))
	}
	if p.Info.Get != nil {
		g, err := s.ref(p.Info.Get, "get_"+hint)
		if err != nil {
			return err
		}
		fields = append(fields, "get: "+g)
	}
	if p.Info.Set != nil {
		st, err := s.ref(p.Info.Set, "set_"+hint)
		if err != nil {
			return err
		}
		fields = append(fields, "set: "+st)
	}
	fields = append(fields,
		"enumerable: "+strconv.FormatBool(p.Info.Enumerable),
		"configurable: "+strconv.FormatBool(p.Info.Configurable))
	s.emit("Object.defineProperty(%s, %s, { %s });", target, key, strings.Join(fields, ", "))
	return nil
}

func (s *serializer) array(e *entry.Entry, hint string) (string, error) {
	a := e.Array
	if !a.Complex() {
		parts := make([]string, len(a.Elements))
		for i, el := range a.Elements {
			v, err := s.ref(el.Value, "item")
			if err != nil {
				return "", err
			}
			parts[i] = v
		}
		if name, ok := s.refs[e]; ok {
			return name, nil
		}
		name := s.declare(e, pick(hint, "array"))
		s.emit("const %s = [%s];", name, strings.Join(parts, ", "))
		return name, nil
	}

	name := s.declare(e, pick(hint, "array"))
	s.emit("const %s = [];", name)
	if a.Proto != nil {
		proto, err := s.ref(a.Proto, "proto")
		if err != nil {
			return "", err
		}
		s.emit("Object.setPrototypeOf(%s, %s);", name, proto)
	}
	for _, el := range a.Elements {
		v, err := s.ref(el.Value, "item")
		if err != nil {
			return "", err
		}
		s.emit("%s[%d] = %s;", name, el.Index, v)
	}
	if a.Length != a.End() {
		s.emit("%s.length = %d;", name, a.Length)
	}
	return name, s.fill(name, a.Env, a.Proto == nil)
}

// function writes a function declaration. Captured variables live in a
// wrapper scope; they are assigned through a binder after the declaration
// so their values may refer back to the function.
func (s *serializer) function(e *entry.Entry, hint string) (string, error) {
	f := e.Function
	hint = pick(f.Name, pick(hint, "func"))

	if f.Simple() {
		key := simpleKey{code: f.Code, usesThis: f.UsesNonLexicalThis}
		if name, ok := s.simple[key]; ok {
			s.refs[e] = name
			return name, nil
		}
		name := s.declare(e, hint)
		s.simple[key] = name
		s.emit("const %s = %s;", name, f.Code)
		return name, nil
	}

	// Values needed while the declaration itself runs: the lexical this of
	// an arrow and the parent of a derived class.
	var (
		thisRef    string
		earlyNames []string
		earlyRefs  []string
	)
	early := make(map[string]bool)
	if !s.preparing[e] {
		s.preparing[e] = true
		if f.This != nil {
			r, err := s.ref(f.This, "this")
			if err != nil {
				return "", err
			}
			thisRef = r
		}
		if f.Class && f.Extends {
			for _, p := range f.Captured.Properties() {
				n := p.Key.Name
				if n == f.Name || (f.SuperName != "" && n != f.SuperName) || s.preparing[p.Value.Canonical()] {
					continue
				}
				r, err := s.ref(p.Value, n)
				if err != nil {
					return "", err
				}
				early[n] = true
				earlyNames = append(earlyNames, n)
				earlyRefs = append(earlyRefs, r)
			}
		}
		delete(s.preparing, e)
		if name, ok := s.refs[e]; ok {
			return name, nil
		}
	} else if f.This != nil {
		// Reached again while resolving its own this: the arrow is written
		// with an undefined this rather than looping.
		thisRef = "undefined"
	}

	var late []*entry.Property
	for _, p := range f.Captured.Properties() {
		if !early[p.Key.Name] {
			late = append(late, p)
		}
	}

	name := s.declare(e, hint)
	call := "(" + strings.Join(earlyRefs, ", ") + ")"
	if thisRef != "" {
		call = ".call(" + strings.Join(append([]string{thisRef}, earlyRefs...), ", ") + ")"
	}
	params := strings.Join(earlyNames, ", ")

	var bind string
	switch {
	case len(late) == 0 && len(earlyNames) == 0 && thisRef == "":
		s.emit("const %s = %s;", name, f.Code)
	case len(late) == 0:
		s.emit("const %s = (function (%s) { return %s; })%s;", name, params, f.Code, call)
	default:
		bind = s.names.generate(name + "_bind")
		vars := make([]string, len(late))
		taken := make(map[string]bool, len(f.Captured.Properties()))
		for _, p := range f.Captured.Properties() {
			taken[p.Key.Name] = true
		}
		args := make([]string, len(late))
		assigns := make([]string, len(late))
		for i, p := range late {
			vars[i] = p.Key.Name
			args[i] = binderParam(i, taken)
			assigns[i] = fmt.Sprintf("%s = %s;", p.Key.Name, args[i])
		}
		s.emit("const [%s, %s] = (function (%s) { let %s; return [%s, (%s) => { %s }]; })%s;",
			name, bind, params, strings.Join(vars, ", "), f.Code,
			strings.Join(args, ", "), strings.Join(assigns, " "), call)
	}

	if err := s.functionPrototype(e, name); err != nil {
		return "", err
	}
	if f.Proto != nil {
		proto, err := s.ref(f.Proto, "proto")
		if err != nil {
			return "", err
		}
		s.emit("Object.setPrototypeOf(%s, %s);", name, proto)
	}
	if err := s.fill(name, f.Env, false); err != nil {
		return "", err
	}

	if bind != "" {
		refs := make([]string, len(late))
		for i, p := range late {
			r, err := s.ref(p.Value, p.Key.Name)
			if err != nil {
				return "", err
			}
			refs[i] = r
		}
		s.emit("%s(%s);", bind, strings.Join(refs, ", "))
	}
	return name, nil
}

// functionPrototype aliases the function's own prototype object, which the
// declaration created, and writes its members.
func (s *serializer) functionPrototype(e *entry.Entry, name string) error {
	f := e.Function
	if f.Prototype == nil {
		return nil
	}
	pe := f.Prototype.Canonical()
	if pe.Kind == entry.KindObject && pe.Object.PrototypeOf != nil && entry.Same(pe.Object.PrototypeOf, e) {
		if _, done := s.refs[pe]; done {
			return nil
		}
		pname := s.declare(pe, name+"Prototype")
		s.emit("const %s = %s.prototype;", pname, name)
		return s.fillPrototype(pe, pname)
	}
	r, err := s.ref(pe, name+"Prototype")
	if err != nil {
		return err
	}
	s.emit("%s.prototype = %s;", name, r)
	return nil
}

func binderParam(i int, taken map[string]bool) string {
	p := "v" + strconv.Itoa(i)
	for taken[p] {
		p = "_" + p
	}
	return p
}
