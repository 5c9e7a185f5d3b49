package postgres

import "testing"

func TestLikePatternEscapesWildcards(t *testing.T) {
	tests := map[string]string{
		"guitar":  "%guitar%",
		"50%":     `%50\%%`,
		"a_b":     `%a\_b%`,
		`back\sl`: `%back\\sl%`,
	}
	for in, want := range tests {
		if got := likePattern(in); got != want {
			t.Errorf("likePattern(%q) = %q, want %q", in, got, want)
		}
	}
}

func TestValidID(t *testing.T) {
	if !validID("3f2c1d9e-8a7b-4c6d-9e0f-1a2b3c4d5e6f") {
		t.Fatalf("expected uuid to be valid")
	}
	for _, s := range []string{"", "swap-1", "123"} {
		if validID(s) {
			t.Errorf("validID(%q) should be false", s)
		}
	}
}
