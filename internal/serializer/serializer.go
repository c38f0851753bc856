// Package serializer turns entry graphs into ES module source.
//
// The output has three sections: imports for module entries, declarations
// and mutations in dependency order, then exports. Identity-bearing values
// get a variable before their contents are written, so cyclic graphs are
// emitted as "declare, then fill".
package serializer

import (
	"errors"
	"fmt"
	"path"
	"strings"

	"closuregen/internal/entry"
)

var (
	ErrInvalidExportName  = errors.New("export name is not a legal identifier")
	ErrDuplicateExport    = errors.New("export name is used twice")
	ErrConflictingExports = errors.New("default and assign exports are mutually exclusive")
	ErrPendingEntry       = errors.New("entry is still pending")
)

// SerializationError reports an export that cannot be written.
type SerializationError struct {
	Export string
	Err    error
}

func (e *SerializationError) Error() string {
	if e.Export == "" {
		return fmt.Sprintf("serializer: %v", e.Err)
	}
	return fmt.Sprintf("serializer: export %q: %v", e.Export, e.Err)
}

func (e *SerializationError) Unwrap() error { return e.Err }

type Export struct {
	Name  string
	Entry *entry.Entry
}

// Exports describes the module's export surface. Default and Assign are
// mutually exclusive.
type Exports struct {
	Const   []Export
	Default *entry.Entry
	Assign  *entry.Entry
}

type Output struct {
	Text string
}

type Option func(*options)

type options struct {
	reserved []string
}

// WithReserved keeps generated variables from shadowing names such as the
// realm's globals, which function bodies may reference.
func WithReserved(names ...string) Option {
	return func(o *options) { o.reserved = append(o.reserved, names...) }
}

// Serialize writes one module exporting the given entries.
func Serialize(exports Exports, opts ...Option) (*Output, error) {
	var o options
	for _, opt := range opts {
		opt(&o)
	}
	if exports.Default != nil && exports.Assign != nil {
		return nil, &SerializationError{Err: ErrConflictingExports}
	}
	reserved := append([]string{"Object", "Symbol", "Promise"}, o.reserved...)
	seen := make(map[string]bool, len(exports.Const))
	for _, ex := range exports.Const {
		if !IsIdentifier(ex.Name) {
			return nil, &SerializationError{Export: ex.Name, Err: ErrInvalidExportName}
		}
		if seen[ex.Name] {
			return nil, &SerializationError{Export: ex.Name, Err: ErrDuplicateExport}
		}
		seen[ex.Name] = true
		reserved = append(reserved, ex.Name)
	}

	roots := []*entry.Entry{exports.Default, exports.Assign}
	for _, ex := range exports.Const {
		roots = append(roots, ex.Entry)
	}
	entry.Walk(func(e *entry.Entry) {
		if e.Kind == entry.KindFunction {
			reserved = append(reserved, e.Function.Free...)
		}
	}, roots...)

	s := newSerializer(reserved)
	var exportLines []string
	for _, ex := range exports.Const {
		ref, err := s.ref(ex.Entry, ex.Name)
		if err != nil {
			return nil, &SerializationError{Export: ex.Name, Err: err}
		}
		exportLines = append(exportLines, fmt.Sprintf("export const %s = %s;", ex.Name, ref))
	}
	if exports.Default != nil {
		ref, err := s.ref(exports.Default, "defaultExport")
		if err != nil {
			return nil, &SerializationError{Export: "default", Err: err}
		}
		exportLines = append(exportLines, fmt.Sprintf("export default %s;", ref))
	}
	if exports.Assign != nil {
		ref, err := s.ref(exports.Assign, "assignExport")
		if err != nil {
			return nil, &SerializationError{Export: "=", Err: err}
		}
		exportLines = append(exportLines, fmt.Sprintf("export = %s;", ref))
	}

	var b strings.Builder
	for _, section := range [][]string{s.imports, s.stmts, exportLines} {
		for _, line := range section {
			b.WriteString(line)
			b.WriteByte('\n')
		}
	}
	return &Output{Text: b.String()}, nil
}

type simpleKey struct {
	code     string
	usesThis bool
}

type serializer struct {
	names *namer
	// refs maps canonical entries to the variable holding them. A name is
	// recorded as soon as its declaration statement is written.
	refs      map[*entry.Entry]string
	simple    map[simpleKey]string
	preparing map[*entry.Entry]bool

	imports []string
	stmts   []string
}

func newSerializer(reserved []string) *serializer {
	return &serializer{
		names:     newNamer(reserved...),
		refs:      make(map[*entry.Entry]string),
		simple:    make(map[simpleKey]string),
		preparing: make(map[*entry.Entry]bool),
	}
}

func (s *serializer) emit(format string, args ...any) {
	s.stmts = append(s.stmts, fmt.Sprintf(format, args...))
}

func (s *serializer) declare(e *entry.Entry, hint string) string {
	name := s.names.generate(hint)
	s.refs[e] = name
	return name
}

// ref returns an expression referring to e, writing whatever declarations
// that requires.
func (s *serializer) ref(e *entry.Entry, hint string) (string, error) {
	c := e.Canonical()
	if c == nil {
		return "undefined", nil
	}
	if name, ok := s.refs[c]; ok {
		return name, nil
	}
	switch c.Kind {
	case entry.KindPending:
		return "", ErrPendingEntry
	case entry.KindJSON:
		return literal(c.JSON)
	case entry.KindExpr:
		return c.Code, nil
	case entry.KindRegExp:
		name := s.declare(c, pick(hint, "regexp"))
		s.emit("const %s = %s;", name, regexpLiteral(c.Source, c.Flags))
		return name, nil
	case entry.KindSymbol:
		return s.symbol(c, hint), nil
	case entry.KindModule:
		return s.module(c), nil
	case entry.KindPromise:
		inner, err := s.ref(c.Inner, pick(hint, "promise")+"Value")
		if err != nil {
			return "", err
		}
		if name, ok := s.refs[c]; ok {
			return name, nil
		}
		name := s.declare(c, pick(hint, "promise"))
		s.emit("const %s = Promise.resolve(%s);", name, inner)
		return name, nil
	case entry.KindFunction:
		return s.function(c, hint)
	case entry.KindObject:
		return s.object(c, hint)
	case entry.KindArray:
		return s.array(c, hint)
	}
	return "", fmt.Errorf("unknown entry kind %s", c.Kind)
}

func (s *serializer) symbol(c *entry.Entry, hint string) string {
	var init string
	switch c.SymbolKind {
	case entry.SymbolGlobal:
		init = fmt.Sprintf("Symbol.for(%s)", quote(c.SymbolName))
	case entry.SymbolWellKnown:
		init = member("Symbol", c.SymbolName)
	default:
		if c.SymbolName == "" {
			init = "Symbol()"
		} else {
			init = fmt.Sprintf("Symbol(%s)", quote(c.SymbolName))
		}
	}
	name := s.declare(c, pick(hint, pick(c.SymbolName, "symbol")))
	s.emit("const %s = %s;", name, init)
	return name
}

func (s *serializer) module(c *entry.Entry) string {
	base := path.Base(c.Reference)
	if i := strings.LastIndexByte(base, ':'); i >= 0 {
		base = base[i+1:]
	}
	base = strings.TrimSuffix(base, path.Ext(base))
	name := s.declare(c, pick(base, "module"))
	if c.ModuleKind == entry.ModuleStar {
		s.imports = append(s.imports, fmt.Sprintf("import * as %s from %s;", name, singleQuote(c.Reference)))
	} else {
		s.imports = append(s.imports, fmt.Sprintf("import %s from %s;", name, singleQuote(c.Reference)))
	}
	return name
}

func pick(hint, fallback string) string {
	if identifierFrom(hint) == "v" && fallback != "" {
		return fallback
	}
	return hint
}
