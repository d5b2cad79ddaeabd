package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/re-cinq/fleetd/internal/ipc"
)

var stopCmd = &cobra.Command{
	Use:   "stop <id>",
	Short: "Pause a watch",
	Args:  cobra.ExactArgs(1),
	RunE:  simpleIDCommand(ipc.ActionStopWatch),
}

var upCmd = &cobra.Command{
	Use:   "up <id>",
	Short: "Resume a paused watch",
	Args:  cobra.ExactArgs(1),
	RunE:  simpleIDCommand(ipc.ActionUpWatch),
}

var rmCmd = &cobra.Command{
	Use:   "rm <id>",
	Short: "Remove a watch along with its logs and metrics",
	Args:  cobra.ExactArgs(1),
	RunE:  simpleIDCommand(ipc.ActionRmWatch),
}

var runCmd = &cobra.Command{
	Use:   "run <id>",
	Short: "Run a watch's pipeline once against the current snapshot",
	Args:  cobra.ExactArgs(1),
	RunE:  simpleIDCommand(ipc.ActionRunPipeline),
}

// simpleIDCommand builds the RunE for commands that send a single-id
// request and print the resulting Success/Error response.
func simpleIDCommand(action string) func(*cobra.Command, []string) error {
	return func(cmd *cobra.Command, args []string) error {
		resp, err := ipc.Send(ipc.Request{Action: action, ID: args[0]})
		if err != nil {
			return err
		}
		switch resp.Type {
		case ipc.RespError:
			return fmt.Errorf("%s", resp.Error)
		case ipc.RespIgnore:
			fmt.Println("pipeline started, streaming to fleet logs")
		default:
			fmt.Println(resp.Message)
		}
		return nil
	}
}
