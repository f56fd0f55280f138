package utils

import (
	"strconv"
	"testing"
)

func TestSlugify(t *testing.T) {
	cases := []struct {
		in   string
		want string
	}{
		{"Ravi's Garments", "ravi-s-garments"},
		{"  Spaced  Out  ", "spaced-out"},
		{"UPPER case 123", "upper-case-123"},
		{"---", ""},
		{"веб shop", "shop"},
	}
	for _, c := range cases {
		if got := Slugify(c.in); got != c.want {
			t.Errorf("Slugify(%q) = %q, want %q", c.in, got, c.want)
		}
	}
}

func TestRandomCodeIsSixDigits(t *testing.T) {
	for i := 0; i < 1000; i++ {
		code := RandomCode()
		if len(code) != 6 {
			t.Fatalf("code %q is not 6 characters", code)
		}
		n, err := strconv.Atoi(code)
		if err != nil {
			t.Fatalf("code %q is not numeric: %v", code, err)
		}
		if n < 100000 || n > 999999 {
			t.Fatalf("code %d out of range", n)
		}
	}
}
