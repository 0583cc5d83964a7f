// file: internal/jsonvalue/value_test.go
package jsonvalue

import "testing"

func TestObjectPreservesInsertionOrder(t *testing.T) {
	o := NewObject()
	o.Set("z", Int(1))
	o.Set("a", Int(2))
	o.Set("m", Int(3))

	got := o.Keys()
	want := []string{"z", "a", "m"}
	if len(got) != len(want) {
		t.Fatalf("Keys() = %v, want %v", got, want)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("Keys()[%d] = %q, want %q", i, got[i], want[i])
		}
	}
}

func TestObjectOverwriteKeepsPosition(t *testing.T) {
	o := NewObject()
	o.Set("a", Int(1))
	o.Set("b", Int(2))
	o.Set("a", Int(99))

	if got := o.Keys(); len(got) != 2 || got[0] != "a" || got[1] != "b" {
		t.Fatalf("Keys() = %v, want [a b]", got)
	}
	v, ok := o.Get("a")
	if !ok || v.Int() != 99 {
		t.Fatalf("Get(a) = %v, %v, want 99, true", v, ok)
	}
}

func TestEqualDistinguishesIntegerFromDecimal(t *testing.T) {
	if Equal(Int(1), Float(1)) {
		t.Fatal("Integer(1) must not equal Decimal(1): disjoint variants")
	}
}

func TestEqualArrayIsOrderSensitive(t *testing.T) {
	a := Arr(Int(1), Int(2))
	b := Arr(Int(2), Int(1))
	if Equal(a, b) {
		t.Fatal("array equality must be pointwise order-sensitive")
	}
}

func TestEqualObjectIsOrderInsensitive(t *testing.T) {
	o1 := NewObject()
	o1.Set("a", Int(1))
	o1.Set("b", Int(2))
	o2 := NewObject()
	o2.Set("b", Int(2))
	o2.Set("a", Int(1))
	if !Equal(Obj(o1), Obj(o2)) {
		t.Fatal("object equality must be by key-set, independent of insertion order")
	}
}

func TestIsNumberUnion(t *testing.T) {
	if !Int(1).IsNumber() || !Float(1.5).IsNumber() {
		t.Fatal("Integer and Decimal must both report IsNumber()")
	}
	if Str("1").IsNumber() || Bool(true).IsNumber() {
		t.Fatal("non-numeric kinds must not report IsNumber()")
	}
}
