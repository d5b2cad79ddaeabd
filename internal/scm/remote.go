package scm

import (
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/go-git/go-git/v5"
	"github.com/go-git/go-git/v5/config"
	"github.com/go-git/go-git/v5/plumbing"
)

// Remote is the thin source-control adapter: resolving a branch's tip
// commit and enumerating branches on a remote, both without a local
// checkout.
type Remote struct {
	URL string
}

// NewRemote returns a Remote adapter for the given remote URL (any form
// ExtractRepoPath accepts).
func NewRemote(url string) *Remote {
	return &Remote{URL: url}
}

// retry constants implement exponential backoff for remote listing
// failures. Every listing error is retried; transient and permanent
// failures are not told apart.
const (
	retryInitialDelay = 200 * time.Millisecond
	retryMaxAttempts  = 4
	retryMultiplier   = 2
)

var sleepFunc = time.Sleep

func (r *Remote) listRefs() ([]*plumbing.Reference, error) {
	remote := git.NewRemote(nil, &config.RemoteConfig{
		Name: "origin",
		URLs: []string{r.URL},
	})

	delay := retryInitialDelay
	var lastErr error
	for attempt := 0; attempt < retryMaxAttempts; attempt++ {
		refs, err := remote.List(&git.ListOptions{})
		if err == nil {
			return refs, nil
		}
		lastErr = err
		if attempt == retryMaxAttempts-1 {
			break
		}
		sleepFunc(delay)
		delay *= retryMultiplier
	}
	return nil, fmt.Errorf("listing refs for %s: %w", r.URL, lastErr)
}

// HeadCommit resolves the tip commit hash of the given branch on the
// remote.
func (r *Remote) HeadCommit(branch string) (string, error) {
	refs, err := r.listRefs()
	if err != nil {
		return "", err
	}
	target := "refs/heads/" + branch
	for _, ref := range refs {
		if ref.Name().String() == target {
			return ref.Hash().String(), nil
		}
	}
	return "", fmt.Errorf("branch %q not found on remote %s", branch, r.URL)
}

// Branches enumerates the remote's branch names, stripped of the
// refs/heads/ prefix, sorted for stable output.
func (r *Remote) Branches() ([]string, error) {
	refs, err := r.listRefs()
	if err != nil {
		return nil, err
	}
	var names []string
	for _, ref := range refs {
		if name, ok := strings.CutPrefix(ref.Name().String(), "refs/heads/"); ok {
			names = append(names, name)
		}
	}
	sort.Strings(names)
	return names, nil
}

// DefaultBranch returns the branch HEAD points at on the remote.
func (r *Remote) DefaultBranch() (string, error) {
	refs, err := r.listRefs()
	if err != nil {
		return "", err
	}
	for _, ref := range refs {
		if ref.Name() == plumbing.HEAD && ref.Type() == plumbing.SymbolicReference {
			return strings.TrimPrefix(ref.Target().String(), "refs/heads/"), nil
		}
	}
	return "", fmt.Errorf("remote %s has no HEAD reference", r.URL)
}
