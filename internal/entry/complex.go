package entry

// InlineSafe reports whether e can be referenced from a container literal
// without risking a reference to a variable that is still being built.
func InlineSafe(e *Entry) bool {
	e = e.Canonical()
	if e == nil {
		return true
	}
	switch e.Kind {
	case KindJSON, KindExpr, KindModule, KindSymbol:
		return true
	case KindFunction:
		return e.Function.Simple()
	case KindPromise:
		return InlineSafe(e.Inner)
	default:
		return false
	}
}

// Complex reports whether the array must be built index by index: it is
// sparse, carries extra properties, or holds identity-bearing elements.
func (a *Array) Complex() bool {
	if a.Proto != nil || a.Env.Len() > 0 || len(a.Elements) != a.Length {
		return true
	}
	for _, el := range a.Elements {
		if !InlineSafe(el.Value) {
			return true
		}
	}
	return false
}

// Count is the number of set indices.
func (a *Array) Count() int { return len(a.Elements) }

// Complex reports whether the object must be declared empty and filled by
// separate statements.
func (o *Object) Complex() bool {
	if o.Proto != nil || o.PrototypeOf != nil {
		return true
	}
	for _, p := range o.Env.Properties() {
		if p.Key.IsSymbol() || p.Key.Name == "__proto__" || !p.Info.Simple() {
			return true
		}
		if !InlineSafe(p.Value) {
			return true
		}
	}
	return false
}
