// file: internal/jsonvalue/stringify_test.go
package jsonvalue

import "testing"

func TestCompactOmitsWhitespace(t *testing.T) {
	o := NewObject()
	o.Set("a", Int(1))
	got := Compact(Obj(o))
	want := `{"a":1}`
	if got != want {
		t.Fatalf("Compact() = %q, want %q", got, want)
	}
}

func TestDecimalTrailingZerosTrimmed(t *testing.T) {
	got := Compact(Float(1.5))
	if got != "1.5" {
		t.Fatalf("Compact(1.5) = %q, want %q", got, "1.5")
	}
}

func TestDecimalWholeNumberKeepsOneFractionDigit(t *testing.T) {
	got := Compact(Float(2))
	if got != "2.0" {
		t.Fatalf("Compact(2.0) = %q, want %q", got, "2.0")
	}
}

func TestStringEscaping(t *testing.T) {
	got := Compact(Str("a\tb\nc\"d\\e"))
	want := `"a\tb\nc\"d\\e"`
	if got != want {
		t.Fatalf("Compact(string) = %q, want %q", got, want)
	}
}

func TestPrettyIndentsNestedStructures(t *testing.T) {
	o := NewObject()
	o.Set("a", Arr(Int(1), Int(2)))
	got := Pretty(Obj(o))
	want := "{\n\t\"a\": [\n\t\t1,\n\t\t2\n\t]\n}"
	if got != want {
		t.Fatalf("Pretty() = %q, want %q", got, want)
	}
}
