package inspector

import (
	"context"
	"strconv"

	"closuregen/internal/entry"
	"closuregen/internal/jsvalue"
)

func (in *Inspector) object(ctx context.Context, o *jsvalue.Object) (*entry.Entry, error) {
	data := entry.NewObjectData()

	var ctor *jsvalue.Object
	if c, ok := prototypeOwner(o); ok {
		ctor = c
		in.push(FrameProperty, "constructor")
		fe, err := in.inspect(ctx, c)
		in.pop()
		if err != nil {
			return nil, err
		}
		data.PrototypeOf = fe
	}

	if o.Proto() != in.naturalProto(o, ctor) {
		pe, err := in.protoEntry(ctx, o)
		if err != nil {
			return nil, err
		}
		data.Proto = pe
	}

	skip := func(k jsvalue.PropertyKey) bool {
		return ctor != nil && isBackLink(o, k, ctor)
	}
	if err := in.properties(ctx, o, data.Env, skip); err != nil {
		return nil, err
	}
	return entry.NewObject(data), nil
}

// rewalk adds properties that appeared on an already inspected object, so
// the entry covers the union of what every request saw.
func (in *Inspector) rewalk(ctx context.Context, o *jsvalue.Object, data *entry.Object) error {
	in.walking[o] = true
	defer delete(in.walking, o)
	var skip func(jsvalue.PropertyKey) bool
	if ctor, ok := prototypeOwner(o); ok {
		skip = func(k jsvalue.PropertyKey) bool { return isBackLink(o, k, ctor) }
	}
	return in.properties(ctx, o, data.Env, skip)
}

// prototypeOwner reports the function whose prototype property is o,
// following the constructor back-link.
func prototypeOwner(o *jsvalue.Object) (*jsvalue.Object, bool) {
	p, ok := o.GetOwn(jsvalue.Key("constructor"))
	if !ok || p.Accessor {
		return nil, false
	}
	ctor, ok := p.Value.(*jsvalue.Object)
	if !ok || !ctor.IsFunction() {
		return nil, false
	}
	pp, ok := ctor.GetOwn(jsvalue.Key("prototype"))
	if !ok || pp.Value != jsvalue.Value(o) {
		return nil, false
	}
	return ctor, true
}

// isBackLink reports whether k is the constructor property a function's
// prototype object starts with.
func isBackLink(o *jsvalue.Object, k jsvalue.PropertyKey, ctor *jsvalue.Object) bool {
	if k.IsSymbol() || k.Name != "constructor" {
		return false
	}
	p, _ := o.GetOwn(k)
	return p.Value == jsvalue.Value(ctor) && p.Writable && p.Configurable && !p.Enumerable
}

// naturalProto is the [[Prototype]] reloading would give o without any
// explicit statement.
func (in *Inspector) naturalProto(o *jsvalue.Object, ctor *jsvalue.Object) *jsvalue.Object {
	if ctor != nil {
		if parent := ctor.Proto(); parent != nil && parent != in.realm.FunctionPrototype {
			if pp, ok := parent.Get(jsvalue.Key("prototype")).(*jsvalue.Object); ok {
				return pp
			}
		}
		return in.realm.ObjectPrototype
	}
	return in.realm.DefaultPrototype(o)
}

func (in *Inspector) protoEntry(ctx context.Context, o *jsvalue.Object) (*entry.Entry, error) {
	p := o.Proto()
	if p == nil {
		return entry.JSON(nil), nil
	}
	in.push(FramePrototype, "")
	defer in.pop()
	return in.inspect(ctx, p)
}

func (in *Inspector) properties(ctx context.Context, o *jsvalue.Object, env *entry.Env, skip func(jsvalue.PropertyKey) bool) error {
	for _, k := range o.OwnKeys() {
		if skip != nil && skip(k) {
			continue
		}
		key, err := in.key(ctx, k)
		if err != nil {
			return err
		}
		if env.Has(key) {
			continue
		}
		prop, _ := o.GetOwn(k)
		in.push(FrameProperty, k.String())
		p, err := in.property(ctx, o, key, prop)
		in.pop()
		if err != nil {
			return err
		}
		env.Set(p)
	}
	return nil
}

func (in *Inspector) key(ctx context.Context, k jsvalue.PropertyKey) (entry.PropKey, error) {
	if !k.IsSymbol() {
		return entry.NameKey(k.Name), nil
	}
	se, err := in.inspect(ctx, k.Symbol)
	if err != nil {
		return entry.PropKey{}, err
	}
	return entry.SymbolKey(se), nil
}

// property inspects one descriptor. Functions found on o remember o as their
// home object, which is where super lookups start.
func (in *Inspector) property(ctx context.Context, home *jsvalue.Object, key entry.PropKey, prop jsvalue.Property) (*entry.Property, error) {
	info := entry.PropertyInfo{
		Configurable: prop.Configurable,
		Enumerable:   prop.Enumerable,
		Writable:     prop.Writable && !prop.Accessor,
		HasValue:     !prop.Accessor,
	}
	if prop.Accessor {
		var err error
		if prop.Getter != nil {
			in.setHome(prop.Getter, home)
			if info.Get, err = in.inspect(ctx, prop.Getter); err != nil {
				return nil, err
			}
		}
		if prop.Setter != nil {
			in.setHome(prop.Setter, home)
			if info.Set, err = in.inspect(ctx, prop.Setter); err != nil {
				return nil, err
			}
		}
		return &entry.Property{Key: key, Info: info}, nil
	}
	if fn, ok := prop.Value.(*jsvalue.Object); ok && fn.IsFunction() {
		in.setHome(fn, home)
	}
	v, err := in.inspect(ctx, prop.Value)
	if err != nil {
		return nil, err
	}
	return &entry.Property{Key: key, Info: info, Value: v}, nil
}

func (in *Inspector) setHome(fn, home *jsvalue.Object) {
	if _, ok := in.homes[fn]; !ok {
		in.homes[fn] = home
	}
}

func (in *Inspector) array(ctx context.Context, o *jsvalue.Object) (*entry.Entry, error) {
	data := entry.NewArrayData()
	data.Length = o.Length()
	if o.Proto() != in.realm.ArrayPrototype {
		pe, err := in.protoEntry(ctx, o)
		if err != nil {
			return nil, err
		}
		data.Proto = pe
	}
	for _, k := range o.OwnKeys() {
		prop, _ := o.GetOwn(k)
		idx, isIndex := k.ArrayIndex()
		if isIndex && idx < data.Length && !prop.Accessor && prop.Writable && prop.Enumerable && prop.Configurable {
			in.push(FrameIndex, strconv.Itoa(idx))
			v, err := in.inspect(ctx, prop.Value)
			in.pop()
			if err != nil {
				return nil, err
			}
			data.Elements = append(data.Elements, entry.Element{Index: idx, Value: v})
			continue
		}
		key, err := in.key(ctx, k)
		if err != nil {
			return nil, err
		}
		in.push(FrameProperty, k.String())
		p, err := in.property(ctx, o, key, prop)
		in.pop()
		if err != nil {
			return nil, err
		}
		data.Env.Set(p)
	}
	return entry.NewArray(data), nil
}
