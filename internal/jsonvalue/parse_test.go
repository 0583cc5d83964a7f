// file: internal/jsonvalue/parse_test.go
package jsonvalue

import (
	"testing"
)

func TestParseRoundTrip(t *testing.T) {
	cases := []string{
		`null`,
		`true`,
		`false`,
		`42`,
		`-7`,
		`1.5`,
		`"hello"`,
		`[]`,
		`{}`,
		`[1,2,3]`,
		`{"a":1,"b":[true,null,"x"]}`,
		`{"jsonrpc":"2.0","id":1,"method":"initialize","params":{"rootUri":"file:///tmp","capabilities":{}}}`,
	}
	for _, in := range cases {
		v, err := ParseString(in)
		if err != nil {
			t.Fatalf("ParseString(%q) error: %v", in, err)
		}
		out := Compact(v)
		v2, err := ParseString(out)
		if err != nil {
			t.Fatalf("re-parse of %q failed: %v", out, err)
		}
		if !Equal(v, v2) {
			t.Fatalf("round trip mismatch for %q: got %q", in, out)
		}
	}
}

func TestParseDuplicateKeyIsError(t *testing.T) {
	_, err := ParseString(`{"a":1,"a":2}`)
	if err == nil {
		t.Fatal("expected duplicate key error")
	}
	pe, ok := err.(*ParseError)
	if !ok {
		t.Fatalf("expected *ParseError, got %T", err)
	}
	if pe.Offset == 0 {
		t.Fatal("expected a non-zero offset pointing at the duplicate key")
	}
}

func TestParseTrailingCommaInObject(t *testing.T) {
	if _, err := ParseString(`{"a":1,}`); err == nil {
		t.Fatal("expected trailing comma error")
	}
}

func TestParseTrailingCommaInArray(t *testing.T) {
	if _, err := ParseString(`[1,2,]`); err == nil {
		t.Fatal("expected trailing comma error")
	}
}

func TestParseUnexpectedEOF(t *testing.T) {
	if _, err := ParseString(`{"a":`); err == nil {
		t.Fatal("expected unexpected-end-of-input error")
	}
}

func TestParseTrailingCharacters(t *testing.T) {
	if _, err := ParseString(`1 2`); err == nil {
		t.Fatal("expected trailing characters error")
	}
}

func TestParseIntegerOverflowBecomesDecimal(t *testing.T) {
	v, err := ParseString(`99999999999999999999`)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if v.Kind() != KindDecimal {
		t.Fatalf("expected overflowing integer literal to parse as Decimal, got %s", v.Kind())
	}
}

func TestParseUnicodeEscape(t *testing.T) {
	v, err := ParseString("\"caf\\u00e9\"")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if v.Str() != "café" {
		t.Fatalf("got %q, want %q", v.Str(), "café")
	}
}

func TestParseUnicodeEscapeSequence(t *testing.T) {
	v, err := ParseString("\"\\u00e9\"")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if v.Str() != "é" {
		t.Fatalf("got %q, want %q", v.Str(), "é")
	}
}

func TestParseInvalidUnicodeEscapeKeptLiteral(t *testing.T) {
	v, err := ParseString(`"\uZZZZ"`)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if v.Str() != `\uZZZZ` {
		t.Fatalf("got %q, want literal %q", v.Str(), `\uZZZZ`)
	}
}

func TestParseEscapeSet(t *testing.T) {
	v, err := ParseString(`"\t\n\r\\\""`)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if v.Str() != "\t\n\r\\\"" {
		t.Fatalf("escape decoding mismatch: %q", v.Str())
	}
}
