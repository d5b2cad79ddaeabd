// Package scm is the source-control adapter: resolving a remote's tip
// commit for a branch, enumerating remote branches, and normalizing remote
// URLs into a bare "owner/repo" path for display.
package scm

import (
	"fmt"
	"strings"
)

// ExtractRepoPath normalizes a git remote URL into its "owner/repo" path,
// ported from the daemon's extract_repo_path: it accepts scheme URLs
// (https://host/owner/repo.git), SCP-like syntax (git@host:owner/repo.git),
// and bare host/owner/repo forms.
func ExtractRepoPath(remote string) (string, error) {
	s := strings.TrimSpace(remote)
	if s == "" {
		return "", fmt.Errorf("empty remote")
	}

	if idx := strings.Index(s, "://"); idx != -1 {
		afterScheme := s[idx+3:]
		slashIdx := strings.Index(afterScheme, "/")
		if slashIdx == -1 {
			return "", fmt.Errorf("no '/' found after scheme in remote URL")
		}
		path := afterScheme[slashIdx:]
		if cut := strings.IndexAny(path, "?#"); cut != -1 {
			path = path[:cut]
		}
		return normalizeGitPath(path)
	}

	if idx := strings.LastIndex(s, ":"); idx != -1 {
		path := s[idx+1:]
		return normalizeGitPath(path)
	}

	if strings.Contains(s, "/") && !strings.Contains(s, " ") {
		slashIdx := strings.Index(s, "/")
		path := s[slashIdx:]
		return normalizeGitPath(path)
	}

	return "", fmt.Errorf("failed to extract repo remote path")
}

func normalizeGitPath(p string) (string, error) {
	path := strings.Trim(p, "/")
	if cut := strings.IndexAny(path, "?#"); cut != -1 {
		path = path[:cut]
	}
	path = strings.TrimRight(path, "/")
	path = strings.TrimSuffix(path, ".git")
	path = strings.TrimRight(path, "/")

	var segments []string
	for _, seg := range strings.Split(path, "/") {
		if seg != "" {
			segments = append(segments, seg)
		}
	}
	if len(segments) < 2 {
		return "", fmt.Errorf("incorrect remote path: %s", path)
	}
	return strings.Join(segments, "/"), nil
}
