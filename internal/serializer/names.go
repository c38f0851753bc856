package serializer

import (
	"fmt"
	"regexp"
	"strings"
)

var identRe = regexp.MustCompile(`^[A-Za-z_$][A-Za-z0-9_$]*$`)

var reservedWords = map[string]struct{}{}

func init() {
	for _, w := range strings.Fields(`
		await break case catch class const continue debugger default delete do
		else enum export extends false finally for function if implements import
		in instanceof interface let new null package private protected public
		return static super switch this throw true try typeof var void while
		with yield arguments eval undefined NaN Infinity globalThis`) {
		reservedWords[w] = struct{}{}
	}
}

// IsIdentifier reports whether name can be bound with const.
func IsIdentifier(name string) bool {
	if !identRe.MatchString(name) {
		return false
	}
	_, reserved := reservedWords[name]
	return !reserved
}

// namer hands out module-level variable names. The first request for a base
// name gets it unchanged; later ones get "<base>_N".
type namer struct {
	used    map[string]struct{}
	counter map[string]int
}

func newNamer(reserved ...string) *namer {
	n := &namer{
		used:    make(map[string]struct{}, len(reserved)+len(reservedWords)+16),
		counter: make(map[string]int),
	}
	for w := range reservedWords {
		n.used[w] = struct{}{}
	}
	for _, name := range reserved {
		if name = strings.TrimSpace(name); name != "" {
			n.used[name] = struct{}{}
		}
	}
	return n
}

// generate returns an unused identifier derived from hint.
func (n *namer) generate(hint string) string {
	base := identifierFrom(hint)
	if _, ok := n.used[base]; !ok {
		n.used[base] = struct{}{}
		n.counter[base] = 1
		return base
	}
	i := n.counter[base]
	if i < 1 {
		i = 1
	}
	for {
		i++
		candidate := fmt.Sprintf("%s_%d", base, i)
		if _, exists := n.used[candidate]; exists {
			continue
		}
		n.used[candidate] = struct{}{}
		n.counter[base] = i
		return candidate
	}
}

// identifierFrom strips characters that cannot appear in an identifier and
// the leading underscores generated names would otherwise pile up.
func identifierFrom(hint string) string {
	var b strings.Builder
	for _, r := range hint {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9', r == '_', r == '$':
			b.WriteRune(r)
		}
	}
	out := strings.TrimLeft(b.String(), "_")
	if out == "" {
		return "v"
	}
	if out[0] >= '0' && out[0] <= '9' {
		out = "v" + out
	}
	return out
}
