package utils

import "testing"

func TestNormalizePhone(t *testing.T) {
	cases := []struct {
		in   string
		want string
	}{
		{"9876543210", "+919876543210"},
		{"+919876543210", "+919876543210"},
		{"+91 98765 43210", "+919876543210"},
		{"98765-43210", "+919876543210"},
		{"(987) 654-3210", "+919876543210"},
		{"  9876543210  ", "+919876543210"},
		{"", ""},
		{"abc", ""},
	}
	for _, c := range cases {
		if got := NormalizePhone(c.in, "+91"); got != c.want {
			t.Errorf("NormalizePhone(%q) = %q, want %q", c.in, got, c.want)
		}
	}
}

func TestValidPhone(t *testing.T) {
	if !ValidPhone("+919876543210", "+91") {
		t.Error("expected 10-digit local part to be valid")
	}
	if ValidPhone("+91987654321", "+91") {
		t.Error("9 local digits should be invalid")
	}
	if ValidPhone("+9198765432100", "+91") {
		t.Error("11 local digits should be invalid")
	}
	if ValidPhone("9876543210", "+91") {
		t.Error("missing country code should be invalid")
	}
	if ValidPhone("", "+91") {
		t.Error("empty phone should be invalid")
	}
}
