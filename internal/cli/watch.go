package cli

import (
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"

	"github.com/re-cinq/fleetd/internal/config"
	"github.com/re-cinq/fleetd/internal/ipc"
	"github.com/re-cinq/fleetd/internal/scm"
)

var watchBranch string

var watchCmd = &cobra.Command{
	Use:   "watch",
	Short: "Register the current project with fleetd",
	RunE: func(cmd *cobra.Command, args []string) error {
		req, err := buildAddWatchRequest(watchBranch)
		if err != nil {
			return err
		}
		resp, err := ipc.Send(req)
		if err != nil {
			return err
		}
		if resp.Type == ipc.RespError {
			return fmt.Errorf("%s", resp.Error)
		}
		fmt.Println(resp.Message)
		return nil
	},
}

func init() {
	watchCmd.Flags().StringVar(&watchBranch, "branch", "", "branch to watch (defaults to the remote's default branch)")
}

// buildAddWatchRequest validates fleet.yml, loads it, resolves the branch
// to watch (CLI flag > config.branch > remote default), and builds an
// AddWatch request.
func buildAddWatchRequest(branchFlag string) (ipc.Request, error) {
	const configPath = "fleet.yml"
	if _, err := os.Stat(configPath); err != nil {
		return ipc.Request{}, fmt.Errorf("file %q missing from current directory", configPath)
	}

	cfg, err := config.Load(configPath)
	if err != nil {
		return ipc.Request{}, err
	}
	if errs := config.Validate(cfg); len(errs) > 0 {
		return ipc.Request{}, fmt.Errorf("invalid config: %s", errs[0])
	}

	remoteURL, err := originURL()
	if err != nil {
		return ipc.Request{}, err
	}

	branch := branchFlag
	if branch == "" {
		branch = cfg.Branch
	}
	if branch == "" {
		branch, err = scm.NewRemote(remoteURL).DefaultBranch()
		if err != nil {
			return ipc.Request{}, fmt.Errorf("resolving default branch: %w", err)
		}
	}

	dir, err := os.Getwd()
	if err != nil {
		return ipc.Request{}, err
	}
	dir, err = filepath.Abs(dir)
	if err != nil {
		return ipc.Request{}, err
	}

	return ipc.Request{
		Action:     ipc.ActionAddWatch,
		ProjectDir: dir,
		Branches:   []string{branch},
		RemoteURL:  remoteURL,
	}, nil
}

func originURL() (string, error) {
	out, err := exec.Command("git", "remote", "get-url", "origin").CombinedOutput()
	if err != nil {
		return "", fmt.Errorf("resolving origin remote: %s", strings.TrimSpace(string(out)))
	}
	return strings.TrimSpace(string(out)), nil
}
