package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/re-cinq/fleetd/internal/ipc"
)

var psAll bool

var psCmd = &cobra.Command{
	Use:   "ps",
	Short: "List registered watches",
	RunE: func(cmd *cobra.Command, args []string) error {
		resp, err := ipc.Send(ipc.Request{Action: ipc.ActionListWatches, All: psAll})
		if err != nil {
			return err
		}
		if resp.Type == ipc.RespError {
			return fmt.Errorf("%s", resp.Error)
		}
		fmt.Print(ipc.RenderWatches(resp.Watches))
		return nil
	},
}

func init() {
	psCmd.Flags().BoolVarP(&psAll, "all", "a", false, "include paused watches")
}
