package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/re-cinq/fleetd/internal/stats"
)

// statsCmd reads metrics files directly from disk rather than going
// through the daemon.
var statsCmd = &cobra.Command{
	Use:   "stats",
	Short: "Show aggregated per-project pipeline statistics",
	RunE: func(cmd *cobra.Command, args []string) error {
		rows, err := stats.LoadAll()
		if err != nil {
			return err
		}
		if len(rows) == 0 {
			fmt.Println("no pipeline runs recorded yet")
			return nil
		}
		fmt.Print(stats.Render(rows))
		return nil
	},
}
