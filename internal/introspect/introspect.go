// Package introspect reads a function's source text back into the facts
// the inspector needs: normalised expression code, declared name, parameter
// count, free variables split into required and optional, and this/super
// usage.
package introspect

import (
	"errors"
	"fmt"
	"sort"
	"strings"

	"github.com/dop251/goja/ast"
	"github.com/dop251/goja/parser"
)

// SuperBinding is the captured variable member bodies use instead of super.
const SuperBinding = "__super"

var ErrNotFunction = errors.New("source is not a function, arrow, class or method")

// ParseError reports source text that cannot be read back as a function.
type ParseError struct {
	Source string
	Err    error
}

func (e *ParseError) Error() string {
	src := e.Source
	if len(src) > 60 {
		src = src[:57] + "..."
	}
	return fmt.Sprintf("introspect: cannot parse %q: %v", src, e.Err)
}

func (e *ParseError) Unwrap() error { return e.Err }

// Info describes one function.
type Info struct {
	// Source is an expression evaluating to an equivalent function, with
	// the declared name removed and super references rewritten.
	Source string
	// Name is the declared name of a function or class; methods have none.
	Name string
	// MethodKey is the property key of a method source, when known.
	MethodKey string

	Arrow     bool
	Async     bool
	Generator bool
	Class     bool
	Method    bool
	Extends   bool
	// SuperName is the heritage of a class when it is a plain identifier.
	SuperName string

	ParamCount int

	// Required and Optional list free variables in order of first use.
	Required []string
	Optional []string

	UsesNonLexicalThis bool
	UsesLexicalThis    bool
	UsesSuper          bool
}

// Captured returns Required followed by Optional.
func (i *Info) Captured() []string {
	out := make([]string, 0, len(i.Required)+len(i.Optional))
	out = append(out, i.Required...)
	return append(out, i.Optional...)
}

// Use is one reference to a free variable.
type Use struct {
	// Conditional is set when the reference sits in a branch that may not
	// run: if/else arms, ternary arms, the right side of && || ??, loop
	// bodies, switch cases and catch clauses.
	Conditional bool
	// Typeof is set for `typeof name`, which tolerates unbound names.
	Typeof bool
}

// Policy decides whether a free variable must resolve for inspection to
// succeed.
type Policy func(name string, uses []Use) bool

// DefaultPolicy requires every variable used at least once outside a
// conditional branch or typeof.
func DefaultPolicy(name string, uses []Use) bool {
	for _, u := range uses {
		if !u.Conditional && !u.Typeof {
			return true
		}
	}
	return false
}

// RequireAll treats every free variable as required.
func RequireAll(string, []Use) bool { return true }

type options struct {
	policy Policy
}

type Option func(*options)

func WithPolicy(p Policy) Option {
	return func(o *options) {
		if p != nil {
			o.policy = p
		}
	}
}

// Parse introspects function source as reported by Function.prototype.toString.
func Parse(source string, opts ...Option) (*Info, error) {
	o := options{policy: DefaultPolicy}
	for _, fn := range opts {
		fn(&o)
	}
	src := strings.TrimSpace(source)
	if src == "" {
		return nil, &ParseError{Source: source, Err: ErrNotFunction}
	}
	if strings.Contains(src, "[native code]") {
		return nil, &ParseError{Source: source, Err: errors.New("native code")}
	}

	if info, err := parseExpression(src, o); err == nil {
		return info, nil
	} else if !errors.Is(err, errSyntax) {
		return nil, &ParseError{Source: source, Err: err}
	}
	info, err := parseMethod(src, o)
	if err != nil {
		return nil, &ParseError{Source: source, Err: err}
	}
	return info, nil
}

var errSyntax = errors.New("syntax error")

type syntaxError struct{ err error }

func (e *syntaxError) Error() string        { return e.err.Error() }
func (e *syntaxError) Is(target error) bool { return target == errSyntax }

func parseWrapped(prefix, src, suffix string) (ast.Expression, error) {
	prog, err := parser.ParseFile(nil, "", prefix+src+suffix, 0)
	if err != nil {
		return nil, &syntaxError{err: err}
	}
	if len(prog.Body) != 1 {
		return nil, &syntaxError{err: ErrNotFunction}
	}
	stmt, ok := prog.Body[0].(*ast.ExpressionStatement)
	if !ok {
		return nil, &syntaxError{err: ErrNotFunction}
	}
	return stmt.Expression, nil
}

func parseExpression(src string, o options) (*Info, error) {
	const prefix = "("
	expr, err := parseWrapped(prefix, src, "\n)")
	if err != nil {
		return nil, err
	}
	t := text{src: src, base: len(prefix)}
	switch fn := expr.(type) {
	case *ast.FunctionLiteral:
		return analyzeFunction(t, fn, o), nil
	case *ast.ArrowFunctionLiteral:
		return analyzeArrow(t, fn, o), nil
	case *ast.ClassLiteral:
		return analyzeClass(t, fn, o), nil
	}
	return nil, &syntaxError{err: ErrNotFunction}
}

func parseMethod(src string, o options) (*Info, error) {
	const prefix = "({"
	expr, err := parseWrapped(prefix, src, "\n})")
	if err != nil {
		return nil, err
	}
	lit, ok := expr.(*ast.ObjectLiteral)
	if !ok || len(lit.Value) != 1 {
		return nil, ErrNotFunction
	}
	prop, ok := lit.Value[0].(*ast.PropertyKeyed)
	if !ok {
		return nil, ErrNotFunction
	}
	fn, ok := prop.Value.(*ast.FunctionLiteral)
	if !ok {
		return nil, ErrNotFunction
	}
	t := text{src: src, base: len(prefix)}
	info := analyzeMethod(t, fn, o)
	if !prop.Computed {
		info.MethodKey = keyName(prop.Key)
	}
	return info, nil
}

// text maps parser positions back to offsets in the original source.
type text struct {
	src  string
	base int
}

func (t text) off(idx int) int {
	o := idx - 1 - t.base
	if o < 0 {
		return 0
	}
	if o > len(t.src) {
		return len(t.src)
	}
	return o
}

type edit struct {
	start, end int
	repl       string
}

// apply performs non-overlapping edits and returns the new text along with
// the total length change.
func apply(src string, edits []edit) (string, int) {
	sort.Slice(edits, func(i, j int) bool { return edits[i].start > edits[j].start })
	delta := 0
	for _, e := range edits {
		src = src[:e.start] + e.repl + src[e.end:]
		delta += len(e.repl) - (e.end - e.start)
	}
	return src, delta
}

func keyName(e ast.Expression) string {
	switch k := e.(type) {
	case *ast.Identifier:
		return k.Name.String()
	case *ast.StringLiteral:
		return k.Value.String()
	case *ast.NumberLiteral:
		return k.Literal
	}
	return ""
}

func paramCount(pl *ast.ParameterList) int {
	if pl == nil {
		return 0
	}
	n := 0
	for _, b := range pl.List {
		if b.Initializer != nil {
			break
		}
		n++
	}
	return n
}

func analyzeFunction(t text, fn *ast.FunctionLiteral, o options) *Info {
	a := newAnalyzer(t)
	root := newScope(nil, true)
	root.declare("arguments")
	a.params(fn.ParameterList, root)
	a.statements(fn.Body.List, root)

	info := &Info{
		Async:              fn.Async,
		Generator:          fn.Generator,
		ParamCount:         paramCount(fn.ParameterList),
		UsesNonLexicalThis: a.thisUse,
	}
	info.Source = t.src
	if fn.Name != nil {
		info.Name = fn.Name.Name.String()
		info.Source, _ = apply(t.src, []edit{{
			start: t.off(int(fn.Name.Idx0())),
			end:   t.off(int(fn.Name.Idx1())),
		}})
	}
	a.finish(info, o)
	return info
}

func analyzeArrow(t text, fn *ast.ArrowFunctionLiteral, o options) *Info {
	a := newAnalyzer(t)
	root := newScope(nil, true)
	a.params(fn.ParameterList, root)
	a.concise(fn.Body, root)

	info := &Info{
		Source:          t.src,
		Arrow:           true,
		Async:           fn.Async,
		ParamCount:      paramCount(fn.ParameterList),
		UsesLexicalThis: a.thisUse,
	}
	a.exclude["arguments"] = true
	a.finish(info, o)
	return info
}

func analyzeClass(t text, c *ast.ClassLiteral, o options) *Info {
	a := newAnalyzer(t)
	root := newScope(nil, true)
	a.node(c.SuperClass, root)
	a.classBody(c, root)

	info := &Info{
		Source:  t.src,
		Class:   true,
		Extends: c.SuperClass != nil,
	}
	if id, ok := c.SuperClass.(*ast.Identifier); ok {
		info.SuperName = id.Name.String()
	}
	for _, el := range c.Body {
		if m, ok := el.(*ast.MethodDefinition); ok && !m.Static && !m.Computed && keyName(m.Key) == "constructor" {
			info.ParamCount = paramCount(m.Body.ParameterList)
		}
	}
	if c.Name != nil {
		info.Name = c.Name.Name.String()
		info.Source, _ = apply(t.src, []edit{{
			start: t.off(int(c.Name.Idx0())),
			end:   t.off(int(c.Name.Idx1())),
		}})
	}
	a.finish(info, o)
	return info
}

// analyzeMethod turns method shorthand into a function expression. super
// references are rewritten to SuperBinding so the body stays valid outside
// the class or object literal it was written in.
func analyzeMethod(t text, fn *ast.FunctionLiteral, o options) *Info {
	a := newAnalyzer(t)
	root := newScope(nil, true)
	root.declare("arguments")
	a.params(fn.ParameterList, root)
	a.statements(fn.Body.List, root)

	start := t.off(int(fn.ParameterList.Idx0()))
	end := t.off(int(fn.Body.Idx1()))
	rewritten, delta := apply(t.src, a.superEdits)

	var b strings.Builder
	if fn.Async {
		b.WriteString("async ")
	}
	b.WriteString("function")
	if fn.Generator {
		b.WriteString("*")
	}
	b.WriteString(" ")
	if end+delta > len(rewritten) {
		end = len(rewritten) - delta
	}
	b.WriteString(rewritten[start : end+delta])

	info := &Info{
		Source:             b.String(),
		Method:             true,
		Async:              fn.Async,
		Generator:          fn.Generator,
		ParamCount:         paramCount(fn.ParameterList),
		UsesNonLexicalThis: a.thisUse,
		UsesSuper:          len(a.superEdits) > 0,
	}
	a.finish(info, o)
	if info.UsesSuper {
		info.Required = append(info.Required, SuperBinding)
	}
	return info
}
