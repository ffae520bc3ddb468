package ident

import "testing"

func TestCanonicalRoundTrip(t *testing.T) {
	cases := []string{"Population", "my var.sub", "a.b.c", "ALREADY_lower"}
	for _, c := range cases {
		once := Canonical(c)
		twice := Canonical(once)
		if once != twice {
			t.Errorf("Canonical not idempotent for %q: %q vs %q", c, once, twice)
		}
	}
}

func TestCanonicalEquivalence(t *testing.T) {
	cases := [][2]string{
		{"My Var", "my_var"},
		{"my var", "My_Var"},
		{"a.b", "A·B"},
		{"Stock Name", "stock_name"},
	}
	for _, pair := range cases {
		if !Equal(pair[0], pair[1]) {
			t.Errorf("expected %q and %q to be canonically equal", pair[0], pair[1])
		}
	}
}

func TestCanonicalDistinguishesDifferentNames(t *testing.T) {
	if Equal("foo", "bar") {
		t.Errorf("foo and bar must not be canonically equal")
	}
}

func TestJoin(t *testing.T) {
	got := Join("Inner1", "Out Flow")
	want := "inner1·out_flow"
	if got != want {
		t.Errorf("Join() = %q, want %q", got, want)
	}
}
