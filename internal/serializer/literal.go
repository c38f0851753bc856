package serializer

import (
	"encoding/json"
	"fmt"
	"math"
	"sort"
	"strings"
	"unicode/utf8"

	"closuregen/internal/entry"
)

// quote returns s as a double-quoted string literal. Strings are WTF-8:
// an encoded lone surrogate is written back as its \uXXXX code unit. Other
// bytes that are not UTF-8 have no code unit and become U+FFFD.
func quote(s string) string {
	var b strings.Builder
	b.Grow(len(s) + 2)
	b.WriteByte('"')
	for i := 0; i < len(s); {
		r, size := utf8.DecodeRuneInString(s[i:])
		if r == utf8.RuneError && size == 1 {
			if u, ok := surrogate(s[i:]); ok {
				fmt.Fprintf(&b, "\\u%04X", u)
				i += 3
				continue
			}
			b.WriteString(`\uFFFD`)
			i++
			continue
		}
		i += size
		switch r {
		case '"':
			b.WriteString(`\"`)
		case '\\':
			b.WriteString(`\\`)
		case '\n':
			b.WriteString(`\n`)
		case '\r':
			b.WriteString(`\r`)
		case '\t':
			b.WriteString(`\t`)
		case '\b':
			b.WriteString(`\b`)
		case '\f':
			b.WriteString(`\f`)
		case '\u2028', '\u2029':
			fmt.Fprintf(&b, "\\u%04X", r)
		default:
			if r < 0x20 || r == 0x7f {
				fmt.Fprintf(&b, "\\u%04X", r)
			} else {
				b.WriteRune(r)
			}
		}
	}
	b.WriteByte('"')
	return b.String()
}

// surrogate decodes a three-byte WTF-8 surrogate (ED A0..BF 80..BF).
func surrogate(s string) (uint16, bool) {
	if len(s) < 3 || s[0] != 0xED || s[1] < 0xA0 || s[1] > 0xBF || s[2] < 0x80 || s[2] > 0xBF {
		return 0, false
	}
	return 0xD000 | uint16(s[1]&0x3F)<<6 | uint16(s[2]&0x3F), true
}

// singleQuote is used for import specifiers.
func singleQuote(s string) string {
	r := strings.NewReplacer(`\`, `\\`, `'`, `\'`, "\n", `\n`, "\r", `\r`)
	return "'" + r.Replace(s) + "'"
}

func number(f float64) (string, error) {
	if math.IsNaN(f) || math.IsInf(f, 0) {
		return "", fmt.Errorf("non-finite number %v in json entry", f)
	}
	if f == 0 && math.Signbit(f) {
		return "-0", nil
	}
	out, err := json.Marshal(f)
	if err != nil {
		return "", err
	}
	return string(out), nil
}

// literal renders a json payload.
func literal(v any) (string, error) {
	switch v := v.(type) {
	case nil:
		return "null", nil
	case entry.Undefined:
		return "undefined", nil
	case bool:
		if v {
			return "true", nil
		}
		return "false", nil
	case float64:
		return number(v)
	case int:
		return number(float64(v))
	case string:
		return quote(v), nil
	case []any:
		parts := make([]string, len(v))
		for i, el := range v {
			s, err := literal(el)
			if err != nil {
				return "", err
			}
			parts[i] = s
		}
		return "[" + strings.Join(parts, ", ") + "]", nil
	case map[string]any:
		keys := make([]string, 0, len(v))
		for k := range v {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		parts := make([]string, len(keys))
		for i, k := range keys {
			s, err := literal(v[k])
			if err != nil {
				return "", err
			}
			parts[i] = propertyName(k) + ": " + s
		}
		if len(parts) == 0 {
			return "{}", nil
		}
		return "{ " + strings.Join(parts, ", ") + " }", nil
	}
	return "", fmt.Errorf("unsupported json payload %T", v)
}

// propertyName renders a key for an object literal.
func propertyName(k string) string {
	if identRe.MatchString(k) {
		return k
	}
	return quote(k)
}

// member renders a property access on target.
func member(target, k string) string {
	if identRe.MatchString(k) {
		return target + "." + k
	}
	return target + "[" + quote(k) + "]"
}

// regexpLiteral escapes unescaped slashes outside character classes.
func regexpLiteral(source, flags string) string {
	if source == "" {
		source = "(?:)"
	}
	var b strings.Builder
	b.WriteByte('/')
	inClass, escaped := false, false
	for _, r := range source {
		switch {
		case escaped:
			escaped = false
		case r == '\\':
			escaped = true
		case r == '[':
			inClass = true
		case r == ']':
			inClass = false
		case r == '/' && !inClass:
			b.WriteByte('\\')
		case r == '\n':
			b.WriteString(`\n`)
			continue
		}
		b.WriteRune(r)
	}
	b.WriteByte('/')
	b.WriteString(flags)
	return b.String()
}
