package scm

import "testing"

func TestExtractRepoPath(t *testing.T) {
	cases := []struct {
		in      string
		want    string
		wantErr bool
	}{
		{"https://github.com/acme/widgets.git", "acme/widgets", false},
		{"https://github.com/acme/widgets", "acme/widgets", false},
		{"https://github.com/acme/widgets.git?ref=main", "acme/widgets", false},
		{"git@github.com:acme/widgets.git", "acme/widgets", false},
		{"github.com/acme/widgets", "acme/widgets", false},
		{"github.com/acme/widgets/", "acme/widgets", false},
		{"", "", true},
		{"   ", "", true},
		{"justaword", "", true},
		{"https://github.com/acme", "", true},
		{"has space/in/it", "", true},
	}
	for _, c := range cases {
		got, err := ExtractRepoPath(c.in)
		if c.wantErr {
			if err == nil {
				t.Errorf("ExtractRepoPath(%q) = %q, want error", c.in, got)
			}
			continue
		}
		if err != nil {
			t.Errorf("ExtractRepoPath(%q): unexpected error %v", c.in, err)
			continue
		}
		if got != c.want {
			t.Errorf("ExtractRepoPath(%q) = %q, want %q", c.in, got, c.want)
		}
	}
}
