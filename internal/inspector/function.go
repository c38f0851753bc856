package inspector

import (
	"context"
	"errors"
	"fmt"

	"closuregen/internal/entry"
	"closuregen/internal/introspect"
	"closuregen/internal/jsvalue"
)

func (in *Inspector) function(ctx context.Context, o *jsvalue.Object) (*entry.Entry, error) {
	fn := o.Function()
	if fn == nil || fn.Native {
		name := ""
		if fn != nil {
			name = fn.NativeName
		}
		in.push(FrameFunction, name)
		defer in.pop()
		return nil, in.fail(ErrNativeCode)
	}

	info, err := in.host.Introspect(ctx, o)
	if err != nil {
		in.push(FrameFunction, "")
		defer in.pop()
		return nil, in.fail(err)
	}
	in.push(FrameFunction, info.Name)
	defer in.pop()

	data := entry.NewFunctionData()
	data.Code = info.Source
	data.Name = info.Name
	data.ParamCount = info.ParamCount
	data.UsesNonLexicalThis = info.UsesNonLexicalThis
	data.Arrow = info.Arrow
	data.Async = info.Async
	data.Class = info.Class
	data.Extends = info.Extends
	data.SuperName = info.SuperName

	if err := in.captured(ctx, o, info, data); err != nil {
		return nil, err
	}

	if info.UsesLexicalThis {
		v, err := in.host.ResolveCaptured(ctx, o, "this")
		switch {
		case err == nil:
			in.push(FrameVariable, "this")
			data.This, err = in.inspect(ctx, v)
			in.pop()
			if err != nil {
				return nil, err
			}
		case !errors.Is(err, ErrNotCaptured) && !errors.Is(err, ErrGlobal):
			return nil, in.fail(err)
		}
	}

	if p := o.Proto(); p != in.realm.DefaultPrototype(o) && !(info.Class && info.Extends) {
		if data.Proto, err = in.protoEntry(ctx, o); err != nil {
			return nil, err
		}
	}

	skip := func(k jsvalue.PropertyKey) bool { return !k.IsSymbol() && k.Name == "prototype" }
	if err := in.properties(ctx, o, data.Env, skip); err != nil {
		return nil, err
	}

	if proto, ok := in.customPrototype(o, info); ok {
		in.push(FrameProperty, "prototype")
		data.Prototype, err = in.inspect(ctx, proto)
		in.pop()
		if err != nil {
			return nil, err
		}
	}

	e := entry.NewFunction(data)
	if in.dedup && data.Simple() {
		key := simpleKey{code: data.Code, usesThis: data.UsesNonLexicalThis}
		if prev, ok := in.simple[key]; ok {
			return prev, nil
		}
		in.simple[key] = e
	}
	return e, nil
}

// captured resolves every free variable of the function. Required ones must
// resolve; optional ones are dropped when they do not.
func (in *Inspector) captured(ctx context.Context, o *jsvalue.Object, info *introspect.Info, data *entry.Function) error {
	resolve := func(name string, required bool) error {
		switch {
		case name == info.Name && !info.Method:
			self := in.reg.Lookup(o)
			if self == nil {
				return in.fail(fmt.Errorf("function %s is not registered", name))
			}
			data.Captured.Set(capturedProperty(name, self))
			return nil
		case name == introspect.SuperBinding:
			return in.superBinding(ctx, o, data)
		}

		v, err := in.host.ResolveCaptured(ctx, o, name)
		if err != nil {
			switch {
			case errors.Is(err, ErrGlobal), errors.Is(err, ErrNotCaptured) && !required:
				data.Free = append(data.Free, name)
				return nil
			case errors.Is(err, ErrNotCaptured):
				in.push(FrameVariable, name)
				defer in.pop()
				return in.fail(ErrUnresolvedCapture)
			}
			return in.fail(err)
		}
		in.push(FrameVariable, name)
		ve, err := in.inspect(ctx, v)
		in.pop()
		if err != nil {
			return err
		}
		data.Captured.Set(capturedProperty(name, ve))
		return nil
	}

	for _, name := range info.Required {
		if err := resolve(name, true); err != nil {
			return err
		}
	}
	for _, name := range info.Optional {
		if err := resolve(name, false); err != nil {
			return err
		}
	}
	return nil
}

// superBinding binds __super to the prototype of the object the member was
// found on: the parent prototype for class methods, the parent class for
// static members.
func (in *Inspector) superBinding(ctx context.Context, o *jsvalue.Object, data *entry.Function) error {
	base := in.realm.ObjectPrototype
	if home, ok := in.homes[o]; ok {
		base = home.Proto()
	}
	in.push(FrameVariable, introspect.SuperBinding)
	defer in.pop()
	var v jsvalue.Value = jsvalue.Null{}
	if base != nil {
		v = base
	}
	se, err := in.inspect(ctx, v)
	if err != nil {
		return err
	}
	data.Captured.Set(capturedProperty(introspect.SuperBinding, se))
	return nil
}

func capturedProperty(name string, v *entry.Entry) *entry.Property {
	return &entry.Property{Key: entry.NameKey(name), Info: entry.SimpleInfo(), Value: v}
}

// customPrototype returns the function's prototype object when reloading
// the code alone would not reproduce it.
func (in *Inspector) customPrototype(o *jsvalue.Object, info *introspect.Info) (*jsvalue.Object, bool) {
	if info.Async || info.Arrow || info.Method {
		return nil, false
	}
	p, ok := o.GetOwn(jsvalue.Key("prototype"))
	if !ok || p.Accessor {
		return nil, false
	}
	proto, ok := p.Value.(*jsvalue.Object)
	if !ok {
		return nil, false
	}
	owner, ok := prototypeOwner(proto)
	if !ok || owner != o {
		return proto, true
	}
	keys := proto.OwnKeys()
	if len(keys) != 1 || !isBackLink(proto, keys[0], o) {
		return proto, true
	}
	return proto, proto.Proto() != in.naturalProto(proto, o)
}
