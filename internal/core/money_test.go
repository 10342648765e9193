package core

import "testing"

func TestParseFrancs(t *testing.T) {
	cases := []struct {
		in  string
		out int64
		ok  bool
	}{
		{"500", 500, true},
		{"500.0", 500, true},
		{"500,0", 500, true},
		{"499.5", 500, true}, // half-up rounding
		{"499.4", 499, true},
		{" 2500 ", 2500, true},
		{"-1", 0, false},
		{"0", 0, false},
		{"abc", 0, false},
		{"1.2.3", 0, false},
		{"", 0, false},
	}
	for _, tc := range cases {
		got, err := ParseFrancs(tc.in)
		if tc.ok {
			if err != nil || got != tc.out {
				t.Fatalf("%q expected %d, got %d (err=%v)", tc.in, tc.out, got, err)
			}
		} else {
			if err == nil {
				t.Fatalf("%q expected error", tc.in)
			}
		}
	}
}

func TestMoneyString(t *testing.T) {
	cases := []struct {
		m    Money
		want string
	}{
		{Money{Francs: 2500}, "2500"},
		{Money{Francs: 0}, "0"},
		{Money{Francs: 1500000}, "1500000"}, // no thousands separator
	}
	for _, tc := range cases {
		if got := tc.m.String(); got != tc.want {
			t.Fatalf("%d expected %q, got %q", tc.m.Francs, tc.want, got)
		}
	}
}

func TestMoneyValidate(t *testing.T) {
	if err := (Money{Francs: 1}).Validate(); err != nil {
		t.Fatalf("expected ok, got %v", err)
	}
	if err := (Money{Francs: 0}).Validate(); err == nil {
		t.Fatalf("expected error for zero")
	}
}
