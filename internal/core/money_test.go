package core

import "testing"

func TestParseAmount(t *testing.T) {
	cases := []struct {
		in   string
		want string
		ok   bool
	}{
		{"12.34", "12.34", true},
		{"12,34", "12.34", true},
		{"-50", "-50", true},
		{"-0.5", "-0.5", true},
		{"+3", "3", true},
		{"0", "0", true},
		{" 7 ", "7", true},
		{"", "", false},
		{"abc", "", false},
		{"1.2.3", "", false},
	}
	for i, tc := range cases {
		got, err := ParseAmount(tc.in)
		if tc.ok && err != nil {
			t.Fatalf("case %d (%q) expected ok, got %v", i, tc.in, err)
		}
		if !tc.ok {
			if err == nil {
				t.Fatalf("case %d (%q) expected error", i, tc.in)
			}
			continue
		}
		if got.String() != tc.want {
			t.Fatalf("case %d (%q) got %s, want %s", i, tc.in, got, tc.want)
		}
	}
}
