package jsvalue

import (
	"sort"
)

// Class is the internal kind of an object.
type Class int

const (
	ClassObject Class = iota
	ClassArray
	ClassFunction
	ClassRegExp
	ClassPromise
	ClassModule
)

func (c Class) String() string {
	switch c {
	case ClassArray:
		return "Array"
	case ClassFunction:
		return "Function"
	case ClassRegExp:
		return "RegExp"
	case ClassPromise:
		return "Promise"
	case ClassModule:
		return "Module"
	default:
		return "Object"
	}
}

// Property is an own property descriptor. Accessor properties carry Getter
// and/or Setter and ignore Value and Writable.
type Property struct {
	Value        Value
	Getter       *Object
	Setter       *Object
	Accessor     bool
	Writable     bool
	Enumerable   bool
	Configurable bool
}

// DataProperty is the descriptor a plain assignment creates.
func DataProperty(v Value) Property {
	return Property{Value: v, Writable: true, Enumerable: true, Configurable: true}
}

// Object is a heap object. The zero value is not usable; objects are created
// through a Realm so that their prototype links to its intrinsics.
type Object struct {
	class Class
	proto *Object
	props map[PropertyKey]*Property
	order []PropertyKey

	length int

	fn        *Function
	source    string
	flags     string
	promise   *promiseState
	specifier string
}

func newObject(class Class, proto *Object) *Object {
	return &Object{
		class: class,
		proto: proto,
		props: make(map[PropertyKey]*Property),
	}
}

func (o *Object) Class() Class { return o.class }

// Proto returns the [[Prototype]]; nil means a null prototype.
func (o *Object) Proto() *Object { return o.proto }

func (o *Object) SetProto(p *Object) { o.proto = p }

func (o *Object) IsArray() bool    { return o.class == ClassArray }
func (o *Object) IsFunction() bool { return o.class == ClassFunction }

// GetOwn returns the own property descriptor for key.
func (o *Object) GetOwn(key PropertyKey) (Property, bool) {
	p, ok := o.props[key]
	if !ok {
		return Property{}, false
	}
	return *p, true
}

// Get reads a data property through the prototype chain. Accessors are not
// invoked; their getter object is returned instead.
func (o *Object) Get(key PropertyKey) Value {
	for cur := o; cur != nil; cur = cur.proto {
		if p, ok := cur.props[key]; ok {
			if p.Accessor {
				if p.Getter == nil {
					return Undefined{}
				}
				return p.Getter
			}
			if p.Value == nil {
				return Undefined{}
			}
			return p.Value
		}
	}
	return Undefined{}
}

// Set assigns an own data property, creating a simple one when missing.
// Non-writable and accessor properties are left untouched.
func (o *Object) Set(key PropertyKey, v Value) {
	if p, ok := o.props[key]; ok {
		if p.Accessor || !p.Writable {
			return
		}
		p.Value = v
		return
	}
	o.DefineProperty(key, DataProperty(v))
}

// SetName is shorthand for Set(Key(name), v).
func (o *Object) SetName(name string, v Value) { o.Set(Key(name), v) }

// DefineProperty creates or replaces an own property.
func (o *Object) DefineProperty(key PropertyKey, p Property) {
	if _, ok := o.props[key]; !ok {
		o.order = append(o.order, key)
	}
	cp := p
	o.props[key] = &cp
	if o.class == ClassArray {
		if idx, ok := key.ArrayIndex(); ok && idx >= o.length {
			o.length = idx + 1
		}
	}
}

// Delete removes an own property.
func (o *Object) Delete(key PropertyKey) bool {
	if _, ok := o.props[key]; !ok {
		return false
	}
	delete(o.props, key)
	for i, k := range o.order {
		if k == key {
			o.order = append(o.order[:i], o.order[i+1:]...)
			break
		}
	}
	return true
}

// OwnKeys lists own property keys in ECMAScript order: array indices
// ascending, then string keys in insertion order, then symbols in insertion
// order. The implicit length of arrays is not listed.
func (o *Object) OwnKeys() []PropertyKey {
	var (
		indices []PropertyKey
		names   []PropertyKey
		symbols []PropertyKey
	)
	for _, k := range o.order {
		switch {
		case k.Symbol != nil:
			symbols = append(symbols, k)
		default:
			if _, ok := k.ArrayIndex(); ok {
				indices = append(indices, k)
			} else {
				names = append(names, k)
			}
		}
	}
	sort.SliceStable(indices, func(i, j int) bool {
		a, _ := indices[i].ArrayIndex()
		b, _ := indices[j].ArrayIndex()
		return a < b
	})
	out := make([]PropertyKey, 0, len(o.order))
	out = append(out, indices...)
	out = append(out, names...)
	return append(out, symbols...)
}

// Length is the logical length of an array.
func (o *Object) Length() int { return o.length }

// SetLength truncates or extends an array. Truncation deletes indices past n.
func (o *Object) SetLength(n int) {
	if n < 0 {
		n = 0
	}
	if n < o.length {
		for _, k := range append([]PropertyKey(nil), o.order...) {
			if idx, ok := k.ArrayIndex(); ok && idx >= n {
				o.Delete(k)
			}
		}
	}
	o.length = n
}

// Push appends elements to an array.
func (o *Object) Push(vs ...Value) {
	for _, v := range vs {
		o.Set(Key(itoa(o.length)), v)
	}
}

// Index reads an array element.
func (o *Object) Index(i int) Value { return o.Get(Key(itoa(i))) }

// Function returns the callable data of a function object.
func (o *Object) Function() *Function { return o.fn }

// RegExp returns the pattern source and flags of a regexp object.
func (o *Object) RegExp() (source, flags string) { return o.source, o.flags }

// Specifier is the module reference of a module namespace object.
func (o *Object) Specifier() string { return o.specifier }
