package cli

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/re-cinq/fleetd/internal/config"
)

var validateCmd = &cobra.Command{
	Use:   "validate [config-file]",
	Short: "Validate a fleet.yml configuration file",
	Args:  cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		path := "fleet.yml"
		if len(args) == 1 {
			path = args[0]
		}

		cfg, err := config.Load(path)
		if err != nil {
			return err
		}
		if errs := config.Validate(cfg); len(errs) > 0 {
			msgs := make([]string, len(errs))
			for i, e := range errs {
				msgs[i] = e.Error()
			}
			return fmt.Errorf("invalid config:\n  %s", strings.Join(msgs, "\n  "))
		}

		fmt.Println("configuration is valid.")
		return nil
	},
}
