package entry

// Walk calls visit once for every canonical entry reachable from roots.
func Walk(visit func(*Entry), roots ...*Entry) {
	seen := make(map[*Entry]bool)
	stack := make([]*Entry, 0, len(roots))
	push := func(e *Entry) {
		if e = e.Canonical(); e != nil && !seen[e] {
			seen[e] = true
			stack = append(stack, e)
		}
	}
	env := func(env *Env) {
		for _, p := range env.Properties() {
			push(p.Key.Symbol)
			push(p.Value)
			push(p.Info.Get)
			push(p.Info.Set)
		}
	}
	for _, r := range roots {
		push(r)
	}
	for len(stack) > 0 {
		e := stack[len(stack)-1]
		stack = stack[:len(stack)-1]
		visit(e)
		switch e.Kind {
		case KindObject:
			push(e.Object.Proto)
			push(e.Object.PrototypeOf)
			env(e.Object.Env)
		case KindArray:
			push(e.Array.Proto)
			for _, el := range e.Array.Elements {
				push(el.Value)
			}
			env(e.Array.Env)
		case KindFunction:
			f := e.Function
			push(f.Proto)
			push(f.PrototypeOf)
			push(f.Prototype)
			push(f.This)
			env(f.Env)
			env(f.Captured)
		case KindPromise:
			push(e.Inner)
		}
	}
}
