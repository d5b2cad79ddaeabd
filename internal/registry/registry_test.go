package registry

import (
	"os"
	"path/filepath"
	"testing"
)

func newTestRegistry(t *testing.T) *Registry {
	t.Helper()
	dir := t.TempDir()
	t.Setenv("FLEET_HOME", dir)
	return &Registry{watches: make(map[string]*Watch), path: filepath.Join(dir, "registry.json")}
}

func TestAddOrUpdateIsIdempotentForUnchangedBranches(t *testing.T) {
	r := newTestRegistry(t)

	w1, err := r.AddOrUpdate("id-1", "/repo/a", "acme/a", "git@host:acme/a.git", []string{"main"})
	if err != nil {
		t.Fatalf("AddOrUpdate: %v", err)
	}
	if err := r.SetLastCommit(w1.ID, "main", "abc123"); err != nil {
		t.Fatalf("SetLastCommit: %v", err)
	}

	w2, err := r.AddOrUpdate("id-2", "/repo/a", "acme/a", "git@host:acme/a.git", []string{"main"})
	if err != nil {
		t.Fatalf("AddOrUpdate (re-register): %v", err)
	}

	if w2.ID != w1.ID {
		t.Fatalf("id changed on re-registration: %s != %s", w2.ID, w1.ID)
	}
	if w2.LastCommit["main"] != "abc123" {
		t.Fatalf("last_commit not preserved: got %q", w2.LastCommit["main"])
	}
}

func TestAddOrUpdateDropsLastCommitWhenBranchesChange(t *testing.T) {
	r := newTestRegistry(t)

	w1, err := r.AddOrUpdate("id-1", "/repo/a", "acme/a", "git@host:acme/a.git", []string{"main"})
	if err != nil {
		t.Fatalf("AddOrUpdate: %v", err)
	}
	if err := r.SetLastCommit(w1.ID, "main", "abc123"); err != nil {
		t.Fatalf("SetLastCommit: %v", err)
	}

	w2, err := r.AddOrUpdate("id-2", "/repo/a", "acme/a", "git@host:acme/a.git", []string{"main", "dev"})
	if err != nil {
		t.Fatalf("AddOrUpdate (branch change): %v", err)
	}
	if len(w2.LastCommit) != 0 {
		t.Fatalf("expected last_commit reset on branch-selector change, got %v", w2.LastCommit)
	}
}

func TestRemoveIsComplete(t *testing.T) {
	r := newTestRegistry(t)
	w, err := r.AddOrUpdate("id-1", "/repo/a", "acme/a", "git@host:acme/a.git", []string{"main"})
	if err != nil {
		t.Fatalf("AddOrUpdate: %v", err)
	}

	if err := r.Remove(w.ID); err != nil {
		t.Fatalf("Remove: %v", err)
	}
	if _, ok := r.Get(w.ID); ok {
		t.Fatalf("watch still present after Remove")
	}

	data, err := os.ReadFile(r.path)
	if err != nil {
		t.Fatalf("reading registry file: %v", err)
	}
	if string(data) != "[]" || len(r.watches) != 0 {
		t.Fatalf("registry file not empty after Remove: %s", data)
	}
}
