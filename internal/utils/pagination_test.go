package utils

import "testing"

func TestAtoiDefault(t *testing.T) {
	cases := []struct {
		s    string
		def  int
		want int
	}{
		{"", 10, 10},
		{"42", 0, 42},
		{"-13", 1, -13},
		{"0012", 99, 12},
		{"x", 5, 5},
		{" 42", 7, 7},
		{"999999999999999999999999", -1, -1},
	}

	for _, tc := range cases {
		if got := AtoiDefault(tc.s, tc.def); got != tc.want {
			t.Fatalf("AtoiDefault(%q, %d) = %d; want %d", tc.s, tc.def, got, tc.want)
		}
	}
}

func TestClampLimit(t *testing.T) {
	cases := []struct {
		s    string
		want int
	}{
		{"", 20},
		{"x", 20},
		{"0", 1},
		{"-3", 1},
		{"50", 50},
		{"1000", 100},
	}
	for _, tc := range cases {
		if got := ClampLimit(tc.s, 20, 100); got != tc.want {
			t.Fatalf("ClampLimit(%q) = %d; want %d", tc.s, got, tc.want)
		}
	}
}
