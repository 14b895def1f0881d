package config

import "testing"

func TestParseWei(t *testing.T) {
	cases := map[string]string{
		"10000000000000000000": "10000000000000000000",
		"10 ether":             "10000000000000000000",
		"10ether":              "10000000000000000000",
		"0.5 ETH":              "500000000000000000",
		"5 gwei":               "5000000000",
		"42 wei":               "42",
	}
	for in, want := range cases {
		got, err := ParseWei(in)
		if err != nil {
			t.Fatalf("ParseWei(%q) error: %v", in, err)
		}
		if got.String() != want {
			t.Fatalf("ParseWei(%q) = %s, want %s", in, got, want)
		}
	}
}

func TestParseWeiRejects(t *testing.T) {
	for _, in := range []string{"", "abc", "-1", "1.5 wei", "3 dogecoin", "1/2"} {
		if _, err := ParseWei(in); err == nil {
			t.Fatalf("expected error for %q", in)
		}
	}
}
