// Package registry is the in-memory, RW-locked set of registered watches,
// persisted as pretty-printed JSON. Grounded on the daemon's AppState plus
// daemon/server.rs's handle_add_watch / handle_rm_watch semantics.
package registry

import (
	"encoding/json"
	"fmt"
	"os"
	"sync"

	"github.com/re-cinq/fleetd/internal/engine"
	"github.com/re-cinq/fleetd/internal/fileutil"
	"github.com/re-cinq/fleetd/internal/logging"
)

// Watch is one registered project being watched. LastCommit is keyed by
// branch name so a watch over several branches (or a resolved wildcard)
// tracks each one's tip independently.
type Watch struct {
	ID         string            `json:"id"`
	ProjectDir string            `json:"project_dir"`
	RepoName   string            `json:"repo_name"`
	RemoteURL  string            `json:"remote_url"`
	Branches   []string          `json:"branches"`
	LastCommit map[string]string `json:"last_commit"`
	Paused     bool              `json:"paused"`
}

// Registry is the daemon's watch set.
type Registry struct {
	mu      sync.RWMutex
	watches map[string]*Watch
	path    string
}

// Load reads the persisted registry from disk, starting empty if the file
// doesn't exist yet.
func Load() (*Registry, error) {
	path := fileutil.RegistryPath()
	r := &Registry{watches: make(map[string]*Watch), path: path}

	data, err := os.ReadFile(path)
	if os.IsNotExist(err) {
		return r, nil
	}
	if err != nil {
		return nil, fmt.Errorf("reading registry: %w", err)
	}

	var list []*Watch
	if err := json.Unmarshal(data, &list); err != nil {
		return nil, fmt.Errorf("parsing registry: %w", err)
	}
	for _, w := range list {
		r.watches[w.ID] = w
	}
	return r, nil
}

// save persists the registry as pretty JSON via an atomic rename, so a
// crash mid-write never corrupts the file readers see.
func (r *Registry) save() error {
	list := make([]*Watch, 0, len(r.watches))
	for _, w := range r.watches {
		list = append(list, w)
	}
	data, err := json.MarshalIndent(list, "", "  ")
	if err != nil {
		return fmt.Errorf("marshaling registry: %w", err)
	}

	if err := fileutil.EnsureDir(fileutil.DataDir()); err != nil {
		return err
	}
	tmp := r.path + ".tmp"
	if err := os.WriteFile(tmp, data, 0644); err != nil {
		return fmt.Errorf("writing registry tmp file: %w", err)
	}
	return os.Rename(tmp, r.path)
}

// findByProjectDir returns the existing watch registered for a project dir,
// if any. Callers must hold r.mu.
func (r *Registry) findByProjectDir(dir string) *Watch {
	for _, w := range r.watches {
		if w.ProjectDir == dir {
			return w
		}
	}
	return nil
}

// AddOrUpdate registers a watch for projectDir, reusing the existing id and
// last-seen commit when one is already registered for that directory (the
// idempotent re-registration behavior of handle_add_watch: same project,
// same id, branch list changes are accepted but last_commit survives only
// when the branch selector is unchanged).
func (r *Registry) AddOrUpdate(id, projectDir, repoName, remoteURL string, branches []string) (*Watch, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	existing := r.findByProjectDir(projectDir)
	w := &Watch{
		ID:         id,
		ProjectDir: projectDir,
		RepoName:   repoName,
		RemoteURL:  remoteURL,
		Branches:   branches,
	}
	if existing != nil {
		w.ID = existing.ID
		w.Paused = existing.Paused
		if sameBranches(existing.Branches, branches) {
			w.LastCommit = existing.LastCommit
		}
		delete(r.watches, existing.ID)
	}
	if w.LastCommit == nil {
		w.LastCommit = make(map[string]string)
	}
	r.watches[w.ID] = w
	if err := r.save(); err != nil {
		return nil, err
	}
	return w, nil
}

func sameBranches(a, b []string) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}

// Get returns the watch with the given id, matching by repo name as a
// fallback (fleet logs/run default to the current repo's name).
func (r *Registry) Get(idOrName string) (*Watch, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	if w, ok := r.watches[idOrName]; ok {
		return w, true
	}
	for _, w := range r.watches {
		if w.RepoName == idOrName {
			return w, true
		}
	}
	return nil, false
}

// List returns all watches, or only the unpaused ones when all is false.
func (r *Registry) List(all bool) []*Watch {
	r.mu.RLock()
	defer r.mu.RUnlock()
	var out []*Watch
	for _, w := range r.watches {
		if all || !w.Paused {
			out = append(out, w)
		}
	}
	return out
}

// SetPaused toggles a watch's paused flag (Stop/Up) and persists it.
func (r *Registry) SetPaused(id string, paused bool) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	w, ok := r.watches[id]
	if !ok {
		return fmt.Errorf("no watch with id %q", id)
	}
	w.Paused = paused
	return r.save()
}

// SetLastCommit updates a watch's last-seen remote commit for one branch.
func (r *Registry) SetLastCommit(id, branch, commit string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	w, ok := r.watches[id]
	if !ok {
		return fmt.Errorf("no watch with id %q", id)
	}
	if w.LastCommit == nil {
		w.LastCommit = make(map[string]string)
	}
	w.LastCommit[branch] = commit
	return r.save()
}

// Remove deletes a watch and its associated logs/metrics, matching
// handle_rm_watch's "rm completeness": registry entry, log file, and
// metrics file are all removed together.
func (r *Registry) Remove(id string) error {
	r.mu.Lock()
	w, ok := r.watches[id]
	if !ok {
		r.mu.Unlock()
		return fmt.Errorf("no watch with id %q", id)
	}
	delete(r.watches, id)
	err := r.save()
	r.mu.Unlock()
	if err != nil {
		return err
	}

	if err := logging.RemoveByID(id); err != nil {
		return fmt.Errorf("removing log for %s: %w", id, err)
	}
	if err := engine.RemoveByProjectID(id); err != nil {
		return fmt.Errorf("removing metrics for %s: %w", id, err)
	}
	return nil
}

// Snapshot returns a copy of all watches for the startup staleness check
// (see StartupDiagnostics).
func (r *Registry) Snapshot() []*Watch {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]*Watch, 0, len(r.watches))
	for _, w := range r.watches {
		cp := *w
		cp.Branches = append([]string(nil), w.Branches...)
		cp.LastCommit = make(map[string]string, len(w.LastCommit))
		for k, v := range w.LastCommit {
			cp.LastCommit[k] = v
		}
		out = append(out, &cp)
	}
	return out
}
