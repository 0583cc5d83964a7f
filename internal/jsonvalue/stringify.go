// file: internal/jsonvalue/stringify.go
package jsonvalue

import (
	"strconv"
	"strings"
)

// Stringify serializes v to JSON. format selects pretty-printing
// (indentation, ": " key separator, a newline after each opening bracket
// and after each entry, none after the closing bracket) over the
// default compact form, following
// original_source/lsp/json/json.cpp's stringifyImplementation.
func Stringify(v Value, format bool) string {
	var b strings.Builder
	stringify(&b, v, 0, format)
	return b.String()
}

// Compact serializes v without any whitespace. This is what C2 writes on
// the wire.
func Compact(v Value) string {
	return Stringify(v, false)
}

// Pretty serializes v with indentation, for logging and debugging.
func Pretty(v Value) string {
	return Stringify(v, true)
}

const indentUnit = "\t"

func indent(level int) string {
	if level <= 0 {
		return ""
	}
	return strings.Repeat(indentUnit, level)
}

func stringify(b *strings.Builder, v Value, level int, format bool) {
	switch v.kind {
	case KindNull:
		b.WriteString("null")
	case KindBoolean:
		if v.boolean {
			b.WriteString("true")
		} else {
			b.WriteString("false")
		}
	case KindInteger:
		b.WriteString(strconv.FormatInt(v.integer, 10))
	case KindDecimal:
		b.WriteString(formatDecimal(v.decimal))
	case KindString:
		b.WriteString(toStringLiteral(v.str))
	case KindArray:
		stringifyArray(b, v.array, level, format)
	case KindObject:
		stringifyObject(b, v.object, level, format)
	}
}

func stringifyArray(b *strings.Builder, items []Value, level int, format bool) {
	if len(items) == 0 {
		b.WriteString("[]")
		return
	}
	b.WriteByte('[')
	if format {
		b.WriteByte('\n')
	}
	for i, item := range items {
		if format {
			b.WriteString(indent(level + 1))
		}
		stringify(b, item, level+1, format)
		if i != len(items)-1 {
			b.WriteByte(',')
		}
		if format {
			b.WriteByte('\n')
		}
	}
	if format {
		b.WriteString(indent(level))
	}
	b.WriteByte(']')
}

func stringifyObject(b *strings.Builder, o *Object, level int, format bool) {
	keys := o.Keys()
	if len(keys) == 0 {
		b.WriteString("{}")
		return
	}
	b.WriteByte('{')
	if format {
		b.WriteByte('\n')
	}
	for i, k := range keys {
		if format {
			b.WriteString(indent(level + 1))
		}
		b.WriteString(toStringLiteral(k))
		b.WriteByte(':')
		if format {
			b.WriteByte(' ')
		}
		v, _ := o.Get(k)
		stringify(b, v, level+1, format)
		if i != len(keys)-1 {
			b.WriteByte(',')
		}
		if format {
			b.WriteByte('\n')
		}
	}
	if format {
		b.WriteString(indent(level))
	}
	b.WriteByte('}')
}

// formatDecimal renders f trimmed to one fractional digit minimum:
// 1.500 -> "1.5", but never all the way down to "1." (a bare trailing dot).
func formatDecimal(f float64) string {
	s := strconv.FormatFloat(f, 'f', -1, 64)
	if !strings.Contains(s, ".") {
		s += ".0"
		return s
	}
	for len(s) > 0 && s[len(s)-1] == '0' {
		// Never trim past the single digit right after the decimal point.
		if s[len(s)-2] == '.' {
			break
		}
		s = s[:len(s)-1]
	}
	return s
}

// toStringLiteral renders s as a quoted JSON string literal, escaping the
// same character set as original_source/lsp/json/json.cpp's toStringLiteral.
func toStringLiteral(s string) string {
	var b strings.Builder
	b.Grow(len(s) + 2)
	b.WriteByte('"')
	for i := 0; i < len(s); i++ {
		c := s[i]
		switch c {
		case 0:
			b.WriteString(`\0`)
		case 7:
			b.WriteString(`\a`)
		case 8:
			b.WriteString(`\b`)
		case '\t':
			b.WriteString(`\t`)
		case '\n':
			b.WriteString(`\n`)
		case 11:
			b.WriteString(`\v`)
		case 12:
			b.WriteString(`\f`)
		case '\r':
			b.WriteString(`\r`)
		case '"':
			b.WriteString(`\"`)
		case '\\':
			b.WriteString(`\\`)
		default:
			b.WriteByte(c)
		}
	}
	b.WriteByte('"')
	return b.String()
}
