package idgen

import "testing"

func TestNewIsTwelveHexChars(t *testing.T) {
	for i := 0; i < 50; i++ {
		id, err := New()
		if err != nil {
			t.Fatalf("New: %v", err)
		}
		if len(id) != 12 {
			t.Fatalf("id %q: want length 12, got %d", id, len(id))
		}
		for _, r := range id {
			if !((r >= '0' && r <= '9') || (r >= 'a' && r <= 'f')) {
				t.Fatalf("id %q: non-hex rune %q", id, r)
			}
		}
	}
}

func TestShortCommit(t *testing.T) {
	cases := []struct{ in, want string }{
		{"abcdef0123456789", "abcdef01"},
		{"abc", "abc"},
		{"", ""},
	}
	for _, c := range cases {
		if got := ShortCommit(c.in); got != c.want {
			t.Errorf("ShortCommit(%q) = %q, want %q", c.in, got, c.want)
		}
	}
}

func TestShortBranch(t *testing.T) {
	cases := []struct{ in, want string }{
		{"main", "main"},
		{"feature/xyz", "feature/xyz"},
		{"feature/a-very-long-branch-name", "feature/a..."},
	}
	for _, c := range cases {
		if got := ShortBranch(c.in); got != c.want {
			t.Errorf("ShortBranch(%q) = %q, want %q", c.in, got, c.want)
		}
	}
}
