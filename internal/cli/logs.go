package cli

import (
	"fmt"
	"os"
	"os/exec"

	"github.com/spf13/cobra"

	"github.com/re-cinq/fleetd/internal/ipc"
	"github.com/re-cinq/fleetd/internal/scm"
)

var logsFollow bool
var logsTail int

var logsCmd = &cobra.Command{
	Use:   "logs [id-or-name]",
	Short: "Show a watch's log (defaults to the current repo)",
	Args:  cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		id := ""
		if len(args) == 1 {
			id = args[0]
		} else {
			remoteURL, err := originURL()
			if err != nil {
				return err
			}
			repoName, err := scm.ExtractRepoPath(remoteURL)
			if err != nil {
				return err
			}
			id = repoName
		}

		resp, err := ipc.Send(ipc.Request{Action: ipc.ActionLogsWatches, ID: id, Follow: logsFollow})
		if err != nil {
			return err
		}
		if resp.Type == ipc.RespError {
			return fmt.Errorf("%s", resp.Error)
		}

		// The daemon only resolves the watch and returns its log path; the
		// client opens the file itself, matching LogsWatches(id, f) in the
		// original's daemon/server.rs.
		if _, err := os.Stat(resp.LogPath); os.IsNotExist(err) {
			return fmt.Errorf("no log file found at %s", resp.LogPath)
		}

		tailArgs := []string{"-n", fmt.Sprintf("%d", logsTail)}
		if resp.Follow {
			tailArgs = append(tailArgs, "-f")
		}
		tailArgs = append(tailArgs, resp.LogPath)

		tailCmd := exec.Command("tail", tailArgs...)
		tailCmd.Stdout = os.Stdout
		tailCmd.Stderr = os.Stderr
		return tailCmd.Run()
	},
}

func init() {
	logsCmd.Flags().BoolVarP(&logsFollow, "follow", "f", false, "Follow log output (like tail -f)")
	logsCmd.Flags().IntVarP(&logsTail, "tail", "n", 50, "Number of lines to show")
}
