package jsvalue

import (
	"sort"
)

// WellKnownSymbolNames are the Symbol.<name> intrinsics every realm carries.
var WellKnownSymbolNames = []string{
	"asyncIterator",
	"hasInstance",
	"isConcatSpreadable",
	"iterator",
	"match",
	"matchAll",
	"replace",
	"search",
	"species",
	"split",
	"toPrimitive",
	"toStringTag",
	"unscopables",
}

// Realm owns the intrinsic objects values are linked to.
type Realm struct {
	ObjectPrototype        *Object
	FunctionPrototype      *Object
	AsyncFunctionPrototype *Object
	ArrayPrototype         *Object
	RegExpPrototype        *Object
	PromisePrototype       *Object
	ErrorPrototype         *Object

	Global *Object

	wellKnown map[string]*Symbol
	registry  map[string]*Symbol
}

// NewRealm builds a realm with the standard global bindings.
func NewRealm() *Realm {
	r := &Realm{
		wellKnown: make(map[string]*Symbol, len(WellKnownSymbolNames)),
		registry:  make(map[string]*Symbol),
	}
	r.ObjectPrototype = newObject(ClassObject, nil)
	r.FunctionPrototype = newObject(ClassFunction, r.ObjectPrototype)
	r.FunctionPrototype.fn = &Function{Native: true}
	r.AsyncFunctionPrototype = newObject(ClassObject, r.FunctionPrototype)
	r.ArrayPrototype = newObject(ClassArray, r.ObjectPrototype)
	r.RegExpPrototype = newObject(ClassObject, r.ObjectPrototype)
	r.PromisePrototype = newObject(ClassObject, r.ObjectPrototype)
	r.ErrorPrototype = newObject(ClassObject, r.ObjectPrototype)
	for _, name := range WellKnownSymbolNames {
		r.wellKnown[name] = &Symbol{Kind: SymbolWellKnown, Description: name}
	}

	g := newObject(ClassObject, r.ObjectPrototype)
	r.Global = g

	r.installConstructor("Object", r.ObjectPrototype,
		[]string{"assign", "create", "defineProperty", "entries", "freeze", "getOwnPropertyDescriptor", "getPrototypeOf", "keys", "setPrototypeOf", "values"},
		[]string{"hasOwnProperty", "isPrototypeOf", "toString", "valueOf"})
	r.installConstructor("Function", r.FunctionPrototype, nil,
		[]string{"apply", "bind", "call", "toString"})
	r.installConstructor("Array", r.ArrayPrototype,
		[]string{"from", "isArray", "of"},
		[]string{"concat", "filter", "forEach", "includes", "indexOf", "join", "map", "pop", "push", "reduce", "slice", "some", "sort"})
	r.installConstructor("RegExp", r.RegExpPrototype, nil,
		[]string{"exec", "test", "toString"})
	r.installConstructor("Promise", r.PromisePrototype,
		[]string{"all", "race", "reject", "resolve"},
		[]string{"catch", "finally", "then"})
	r.installConstructor("Error", r.ErrorPrototype, nil, []string{"toString"})
	r.installConstructor("Number", newObject(ClassObject, r.ObjectPrototype),
		[]string{"isFinite", "isInteger", "isNaN", "parseFloat", "parseInt"},
		[]string{"toFixed", "toString"})
	r.installConstructor("String", newObject(ClassObject, r.ObjectPrototype),
		[]string{"fromCharCode", "raw"},
		[]string{"includes", "slice", "split", "toLowerCase", "toUpperCase", "trim"})
	r.installConstructor("Boolean", newObject(ClassObject, r.ObjectPrototype), nil, []string{"toString"})

	symbolCtor := r.installConstructor("Symbol", newObject(ClassObject, r.ObjectPrototype),
		[]string{"for", "keyFor"}, []string{"toString"})
	for _, name := range WellKnownSymbolNames {
		symbolCtor.DefineProperty(Key(name), Property{Value: r.wellKnown[name]})
	}

	r.installNamespace("Math", "abs", "ceil", "floor", "max", "min", "pow", "random", "round", "sqrt")
	r.installNamespace("JSON", "parse", "stringify")
	r.installNamespace("Reflect", "apply", "construct", "defineProperty", "get", "ownKeys", "set")
	r.installNamespace("console", "error", "info", "log", "warn")
	for _, name := range []string{"isFinite", "isNaN", "parseFloat", "parseInt", "setTimeout", "clearTimeout"} {
		g.DefineProperty(Key(name), hiddenData(r.NewNative(name)))
	}

	g.DefineProperty(Key("NaN"), Property{Value: nanValue})
	g.DefineProperty(Key("Infinity"), Property{Value: infValue})
	g.DefineProperty(Key("undefined"), Property{Value: Undefined{}})
	g.DefineProperty(Key("globalThis"), hiddenData(g))
	return r
}

func hiddenData(v Value) Property {
	return Property{Value: v, Writable: true, Configurable: true}
}

func (r *Realm) installConstructor(name string, proto *Object, statics, methods []string) *Object {
	ctor := r.NewNative(name)
	ctor.DefineProperty(Key("prototype"), Property{Value: proto})
	proto.DefineProperty(Key("constructor"), hiddenData(ctor))
	for _, m := range statics {
		ctor.DefineProperty(Key(m), hiddenData(r.NewNative(m)))
	}
	for _, m := range methods {
		proto.DefineProperty(Key(m), hiddenData(r.NewNative(m)))
	}
	r.Global.DefineProperty(Key(name), hiddenData(ctor))
	return ctor
}

func (r *Realm) installNamespace(name string, methods ...string) *Object {
	ns := r.NewObject()
	for _, m := range methods {
		ns.DefineProperty(Key(m), hiddenData(r.NewNative(m)))
	}
	r.Global.DefineProperty(Key(name), hiddenData(ns))
	return ns
}

// GlobalNames lists the string-keyed global bindings.
func (r *Realm) GlobalNames() []string {
	keys := r.Global.OwnKeys()
	out := make([]string, 0, len(keys))
	for _, k := range keys {
		if !k.IsSymbol() {
			out = append(out, k.Name)
		}
	}
	return out
}

// IsGlobal reports whether name is bound on the global object.
func (r *Realm) IsGlobal(name string) bool {
	_, ok := r.Global.GetOwn(Key(name))
	return ok
}

// WellKnownSymbol returns Symbol.<name>, or nil.
func (r *Realm) WellKnownSymbol(name string) *Symbol { return r.wellKnown[name] }

// SymbolFor returns the registered symbol for key, creating it on first use.
func (r *Realm) SymbolFor(key string) *Symbol {
	if s, ok := r.registry[key]; ok {
		return s
	}
	s := &Symbol{Kind: SymbolRegistered, Description: key}
	r.registry[key] = s
	return s
}

// DefaultPrototype is the [[Prototype]] an object of o's kind gets when
// nothing overrides it.
func (r *Realm) DefaultPrototype(o *Object) *Object {
	switch o.class {
	case ClassArray:
		return r.ArrayPrototype
	case ClassFunction:
		if o.fn != nil && o.fn.Async {
			return r.AsyncFunctionPrototype
		}
		return r.FunctionPrototype
	case ClassRegExp:
		return r.RegExpPrototype
	case ClassPromise:
		return r.PromisePrototype
	case ClassModule:
		return nil
	default:
		return r.ObjectPrototype
	}
}

func (r *Realm) NewObject() *Object { return newObject(ClassObject, r.ObjectPrototype) }

// NewObjectWithProto creates an ordinary object; a nil proto gives a null
// prototype.
func (r *Realm) NewObjectWithProto(proto *Object) *Object { return newObject(ClassObject, proto) }

func (r *Realm) NewArray(vs ...Value) *Object {
	a := newObject(ClassArray, r.ArrayPrototype)
	a.Push(vs...)
	return a
}

// NewFunction creates an arrow function, method or other function without a
// prototype property.
func (r *Realm) NewFunction(source string, scope *Scope) *Object {
	f := newObject(ClassFunction, r.FunctionPrototype)
	f.fn = &Function{Source: source, Scope: scope}
	return f
}

// NewAsyncFunction creates an async function.
func (r *Realm) NewAsyncFunction(source string, scope *Scope) *Object {
	f := newObject(ClassFunction, r.AsyncFunctionPrototype)
	f.fn = &Function{Source: source, Scope: scope, Async: true}
	return f
}

// NewConstructor creates an ordinary function with its default prototype
// object, as a function declaration or expression would.
func (r *Realm) NewConstructor(source string, scope *Scope) *Object {
	f := r.NewFunction(source, scope)
	proto := r.NewObject()
	proto.DefineProperty(Key("constructor"), hiddenData(f))
	f.DefineProperty(Key("prototype"), Property{Value: proto, Writable: true})
	return f
}

// NewClass creates a class constructor. parent is the extended class or nil.
func (r *Realm) NewClass(source string, scope *Scope, parent *Object) *Object {
	f := r.NewFunction(source, scope)
	protoParent := r.ObjectPrototype
	if parent != nil {
		f.proto = parent
		if pp, ok := parent.Get(Key("prototype")).(*Object); ok {
			protoParent = pp
		}
	}
	proto := newObject(ClassObject, protoParent)
	proto.DefineProperty(Key("constructor"), hiddenData(f))
	f.DefineProperty(Key("prototype"), Property{Value: proto})
	return f
}

// NewNative creates a host function that cannot be inspected.
func (r *Realm) NewNative(name string) *Object {
	f := newObject(ClassFunction, r.FunctionPrototype)
	f.fn = &Function{Native: true, NativeName: name, Source: "function " + name + "() { [native code] }"}
	return f
}

func (r *Realm) NewRegExp(source, flags string) *Object {
	o := newObject(ClassRegExp, r.RegExpPrototype)
	o.source = source
	o.flags = flags
	return o
}

// NewPromise creates a pending promise; settle it with Resolve or Reject.
func (r *Realm) NewPromise() *Object {
	o := newObject(ClassPromise, r.PromisePrototype)
	o.promise = &promiseState{done: make(chan struct{})}
	return o
}

// ResolvedPromise creates a promise already fulfilled with v.
func (r *Realm) ResolvedPromise(v Value) *Object {
	o := r.NewPromise()
	o.Resolve(v)
	return o
}

// NewModuleNamespace creates the namespace object of an external module.
// Exports are laid out in sorted order like a real namespace.
func (r *Realm) NewModuleNamespace(specifier string, exports map[string]Value) *Object {
	o := newObject(ClassModule, nil)
	o.specifier = specifier
	names := make([]string, 0, len(exports))
	for name := range exports {
		names = append(names, name)
	}
	sort.Strings(names)
	for _, name := range names {
		o.DefineProperty(Key(name), Property{Value: exports[name], Writable: true, Enumerable: true})
	}
	return o
}
