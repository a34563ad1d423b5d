package strx

import "testing"

func TestTruncate(t *testing.T) {
	cases := []struct {
		in   string
		n    int
		want string
	}{
		{"FA-18C_hornet", 24, "FA-18C_hornet"},
		{"abcdef", 3, "abc"},
		{"abc", 0, ""},
		{"aé", 2, "a"},
	}
	for _, c := range cases {
		if got := Truncate(c.in, c.n); got != c.want {
			t.Fatalf("Truncate(%q, %d) = %q, want %q", c.in, c.n, got, c.want)
		}
	}
}

func TestCoalesce(t *testing.T) {
	if Coalesce("", "d") != "d" || Coalesce("s", "d") != "s" {
		t.Fatal("Coalesce")
	}
}
