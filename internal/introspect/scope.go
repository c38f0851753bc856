package introspect

import (
	"reflect"

	"github.com/dop251/goja/ast"
	"github.com/dop251/goja/token"
)

type scope struct {
	parent *scope
	// fn marks scopes that receive var declarations.
	fn    bool
	decls map[string]bool
}

func newScope(parent *scope, fn bool) *scope {
	return &scope{parent: parent, fn: fn, decls: make(map[string]bool)}
}

func (s *scope) declare(name string) { s.decls[name] = true }

func (s *scope) varScope() *scope {
	cur := s
	for !cur.fn && cur.parent != nil {
		cur = cur.parent
	}
	return cur
}

func (s *scope) binds(name string) bool {
	for cur := s; cur != nil; cur = cur.parent {
		if cur.decls[name] {
			return true
		}
	}
	return false
}

type reference struct {
	name string
	sc   *scope
	use  Use
}

// analyzer walks one root function. Identifier references are collected
// with the scope they occur in and resolved after the walk, so hoisted
// declarations bind references that precede them.
type analyzer struct {
	t       text
	refs    []reference
	cond    int
	fnDepth int
	thisUse bool
	exclude map[string]bool

	superEdits []edit
}

func newAnalyzer(t text) *analyzer {
	return &analyzer{t: t, exclude: make(map[string]bool)}
}

func (a *analyzer) use(name string, sc *scope, typeof bool) {
	a.refs = append(a.refs, reference{
		name: name,
		sc:   sc,
		use:  Use{Conditional: a.cond > 0, Typeof: typeof},
	})
}

// finish resolves references and fills Required and Optional.
func (a *analyzer) finish(info *Info, o options) {
	var order []string
	uses := make(map[string][]Use)
	for _, r := range a.refs {
		if a.exclude[r.name] || r.sc.binds(r.name) {
			continue
		}
		if _, ok := uses[r.name]; !ok {
			order = append(order, r.name)
		}
		uses[r.name] = append(uses[r.name], r.use)
	}
	for _, name := range order {
		if o.policy(name, uses[name]) {
			info.Required = append(info.Required, name)
		} else {
			info.Optional = append(info.Optional, name)
		}
	}
}

func (a *analyzer) conditional(fn func()) {
	a.cond++
	fn()
	a.cond--
}

func (a *analyzer) statements(list []ast.Statement, sc *scope) {
	for _, st := range list {
		a.node(st, sc)
	}
}

func (a *analyzer) params(pl *ast.ParameterList, fs *scope) {
	if pl == nil {
		return
	}
	for _, b := range pl.List {
		a.declarePattern(b.Target, fs)
		a.node(b.Initializer, fs)
	}
	if pl.Rest != nil {
		a.declarePattern(pl.Rest, fs)
	}
}

func (a *analyzer) concise(body ast.ConciseBody, fs *scope) {
	switch b := body.(type) {
	case *ast.BlockStatement:
		a.statements(b.List, fs)
	case *ast.ExpressionBody:
		a.node(b.Expression, fs)
	}
}

func (a *analyzer) function(fn *ast.FunctionLiteral, sc *scope) {
	if fn == nil {
		return
	}
	a.fnDepth++
	fs := newScope(sc, true)
	fs.declare("arguments")
	if fn.Name != nil {
		fs.declare(fn.Name.Name.String())
	}
	a.params(fn.ParameterList, fs)
	if fn.Body != nil {
		a.statements(fn.Body.List, fs)
	}
	a.fnDepth--
}

func (a *analyzer) arrow(fn *ast.ArrowFunctionLiteral, sc *scope) {
	fs := newScope(sc, true)
	a.params(fn.ParameterList, fs)
	a.concise(fn.Body, fs)
}

// classBody walks members. Member bodies and field initialisers run with
// their own this.
func (a *analyzer) classBody(c *ast.ClassLiteral, cs *scope) {
	for _, el := range c.Body {
		switch m := el.(type) {
		case *ast.MethodDefinition:
			if m.Computed {
				a.node(m.Key, cs)
			}
			a.function(m.Body, cs)
		case *ast.FieldDefinition:
			if m.Computed {
				a.node(m.Key, cs)
			}
			a.fnDepth++
			a.node(m.Initializer, cs)
			a.fnDepth--
		case *ast.ClassStaticBlock:
			a.fnDepth++
			if m.Block != nil {
				a.statements(m.Block.List, newScope(cs, true))
			}
			a.fnDepth--
		}
	}
}

func (a *analyzer) class(c *ast.ClassLiteral, sc *scope) {
	if c == nil {
		return
	}
	a.node(c.SuperClass, sc)
	cs := newScope(sc, false)
	if c.Name != nil {
		cs.declare(c.Name.Name.String())
	}
	a.classBody(c, cs)
}

// declarePattern binds every name a binding target introduces and walks the
// expressions nested in it.
func (a *analyzer) declarePattern(target ast.Node, sc *scope) {
	if isNil(target) {
		return
	}
	switch p := target.(type) {
	case *ast.Identifier:
		sc.declare(p.Name.String())
	case *ast.ArrayPattern:
		for _, el := range p.Elements {
			a.declarePattern(el, sc)
		}
		a.declarePattern(p.Rest, sc)
	case *ast.ObjectPattern:
		for _, prop := range p.Properties {
			switch prop := prop.(type) {
			case *ast.PropertyShort:
				sc.declare(prop.Name.Name.String())
				a.node(prop.Initializer, sc)
			case *ast.PropertyKeyed:
				if prop.Computed {
					a.node(prop.Key, sc)
				}
				a.declarePattern(prop.Value, sc)
			default:
				if pn, ok := prop.(ast.Node); ok {
					a.node(pn, sc)
				}
			}
		}
		a.declarePattern(p.Rest, sc)
	case *ast.AssignExpression:
		a.declarePattern(p.Left, sc)
		a.node(p.Right, sc)
	default:
		a.node(target, sc)
	}
}

func (a *analyzer) bindings(list []*ast.Binding, decl, sc *scope) {
	for _, b := range list {
		a.declarePattern(b.Target, decl)
		a.node(b.Initializer, sc)
	}
}

func (a *analyzer) superSite(s *ast.SuperExpression) {
	if a.fnDepth > 0 {
		return
	}
	start := a.t.off(int(s.Idx0()))
	a.superEdits = append(a.superEdits, edit{start: start, end: start + len("super"), repl: SuperBinding})
}

func (a *analyzer) call(c *ast.CallExpression, sc *scope) {
	var superCall bool
	switch callee := c.Callee.(type) {
	case *ast.DotExpression:
		_, superCall = callee.Left.(*ast.SuperExpression)
	case *ast.BracketExpression:
		_, superCall = callee.Left.(*ast.SuperExpression)
	}
	a.node(c.Callee, sc)
	if superCall && a.fnDepth == 0 {
		// __super.m(args) would run m with __super as this.
		open := a.t.off(int(c.LeftParenthesis))
		repl := ".call(this"
		if len(c.ArgumentList) > 0 {
			repl += ", "
		}
		a.superEdits = append(a.superEdits, edit{start: open, end: open + 1, repl: repl})
		a.thisUse = true
	}
	for _, arg := range c.ArgumentList {
		a.node(arg, sc)
	}
}

func (a *analyzer) node(n ast.Node, sc *scope) {
	if isNil(n) {
		return
	}
	switch n := n.(type) {
	case *ast.Identifier:
		a.use(n.Name.String(), sc, false)
	case *ast.ThisExpression:
		if a.fnDepth == 0 {
			a.thisUse = true
		}
	case *ast.SuperExpression:
		a.superSite(n)
	case *ast.MetaProperty, *ast.PrivateIdentifier, *ast.BranchStatement:
	case *ast.DotExpression:
		a.node(n.Left, sc)
	case *ast.PrivateDotExpression:
		a.node(n.Left, sc)
	case *ast.CallExpression:
		a.call(n, sc)

	case *ast.FunctionLiteral:
		a.function(n, sc)
	case *ast.ArrowFunctionLiteral:
		a.arrow(n, sc)
	case *ast.ClassLiteral:
		a.class(n, sc)
	case *ast.FunctionDeclaration:
		if n.Function != nil && n.Function.Name != nil {
			sc.declare(n.Function.Name.Name.String())
		}
		a.function(n.Function, sc)
	case *ast.ClassDeclaration:
		if n.Class != nil && n.Class.Name != nil {
			sc.declare(n.Class.Name.Name.String())
		}
		a.class(n.Class, sc)

	case *ast.PropertyShort:
		a.use(n.Name.Name.String(), sc, false)
		a.node(n.Initializer, sc)
	case *ast.PropertyKeyed:
		if n.Computed {
			a.node(n.Key, sc)
		}
		a.node(n.Value, sc)

	case *ast.UnaryExpression:
		if id, ok := n.Operand.(*ast.Identifier); ok && n.Operator == token.TYPEOF {
			a.use(id.Name.String(), sc, true)
			return
		}
		a.node(n.Operand, sc)
	case *ast.BinaryExpression:
		a.node(n.Left, sc)
		switch n.Operator {
		case token.LOGICAL_AND, token.LOGICAL_OR, token.COALESCE:
			a.conditional(func() { a.node(n.Right, sc) })
		default:
			a.node(n.Right, sc)
		}
	case *ast.ConditionalExpression:
		a.node(n.Test, sc)
		a.conditional(func() {
			a.node(n.Consequent, sc)
			a.node(n.Alternate, sc)
		})

	case *ast.BlockStatement:
		a.statements(n.List, newScope(sc, false))
	case *ast.VariableStatement:
		a.bindings(n.List, sc.varScope(), sc)
	case *ast.LexicalDeclaration:
		a.bindings(n.List, sc, sc)
	case *ast.IfStatement:
		a.node(n.Test, sc)
		a.conditional(func() {
			a.node(n.Consequent, sc)
			a.node(n.Alternate, sc)
		})
	case *ast.WhileStatement:
		a.node(n.Test, sc)
		a.conditional(func() { a.node(n.Body, sc) })
	case *ast.DoWhileStatement:
		a.node(n.Body, sc)
		a.node(n.Test, sc)
	case *ast.ForStatement:
		ls := newScope(sc, false)
		switch init := n.Initializer.(type) {
		case *ast.ForLoopInitializerExpression:
			a.node(init.Expression, ls)
		case *ast.ForLoopInitializerVarDeclList:
			a.bindings(init.List, sc.varScope(), ls)
		case *ast.ForLoopInitializerLexicalDecl:
			a.bindings(init.LexicalDeclaration.List, ls, ls)
		}
		a.node(n.Test, ls)
		a.conditional(func() {
			a.node(n.Update, ls)
			a.node(n.Body, ls)
		})
	case *ast.ForInStatement:
		a.forInto(n.Into, n.Source, n.Body, sc)
	case *ast.ForOfStatement:
		a.forInto(n.Into, n.Source, n.Body, sc)
	case *ast.SwitchStatement:
		a.node(n.Discriminant, sc)
		bs := newScope(sc, false)
		a.conditional(func() {
			for _, c := range n.Body {
				a.node(c.Test, bs)
				a.statements(c.Consequent, bs)
			}
		})
	case *ast.TryStatement:
		a.node(n.Body, sc)
		if n.Catch != nil {
			cs := newScope(sc, false)
			a.declarePattern(n.Catch.Parameter, cs)
			a.conditional(func() { a.node(n.Catch.Body, cs) })
		}
		a.node(n.Finally, sc)
	case *ast.LabelledStatement:
		a.node(n.Statement, sc)

	default:
		a.children(n, sc)
	}
}

func (a *analyzer) forInto(into ast.ForInto, source ast.Expression, body ast.Statement, sc *scope) {
	ls := newScope(sc, false)
	switch into := into.(type) {
	case *ast.ForIntoVar:
		if into.Binding != nil {
			a.bindings([]*ast.Binding{into.Binding}, sc.varScope(), ls)
		}
	case *ast.ForDeclaration:
		a.declarePattern(into.Target, ls)
	case *ast.ForIntoExpression:
		a.node(into.Expression, ls)
	}
	a.node(source, sc)
	a.conditional(func() { a.node(body, ls) })
}

var nodeType = reflect.TypeOf((*ast.Node)(nil)).Elem()

// children walks every node-valued field of n. Nodes that bind names or
// carry non-reference identifiers are handled by node before falling back
// here.
func (a *analyzer) children(n ast.Node, sc *scope) {
	v := reflect.ValueOf(n)
	if v.Kind() != reflect.Ptr {
		return
	}
	v = v.Elem()
	if v.Kind() != reflect.Struct {
		return
	}
	for i := 0; i < v.NumField(); i++ {
		if !v.Type().Field(i).IsExported() {
			continue
		}
		a.field(v.Field(i), sc)
	}
}

func (a *analyzer) field(f reflect.Value, sc *scope) {
	switch f.Kind() {
	case reflect.Ptr, reflect.Interface:
		if f.IsNil() || (f.Kind() == reflect.Ptr && !f.Type().Implements(nodeType)) {
			return
		}
		if n, ok := f.Interface().(ast.Node); ok {
			a.node(n, sc)
		}
	case reflect.Slice:
		for i := 0; i < f.Len(); i++ {
			a.field(f.Index(i), sc)
		}
	}
}

func isNil(n any) bool {
	if n == nil {
		return true
	}
	v := reflect.ValueOf(n)
	switch v.Kind() {
	case reflect.Ptr, reflect.Interface, reflect.Map, reflect.Slice:
		return v.IsNil()
	}
	return false
}
