package cli

import (
	"fmt"
	"sort"

	"github.com/spf13/cobra"

	"github.com/re-cinq/fleetd/internal/config"
)

var graphCmd = &cobra.Command{
	Use:   "graph [config-file]",
	Short: "Visualize the pipeline's job dependency graph",
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
			return fmt.Errorf("invalid config: %s", errs[0])
		}
		printJobGraph(cfg)
		return nil
	},
}

// printJobGraph renders the needs-based job DAG as an indented tree rooted
// at every job with no dependencies. A job can have multiple roots and
// multiple dependents, so each dependent appears once under every job it
// needs.
func printJobGraph(cfg *config.Config) {
	downstream := make(map[string][]string)
	var roots []string
	for name, job := range cfg.Pipeline.Jobs {
		if len(job.Needs) == 0 {
			roots = append(roots, name)
		}
		for _, need := range job.Needs {
			downstream[need] = append(downstream[need], name)
		}
	}
	sort.Strings(roots)
	for name := range downstream {
		sort.Strings(downstream[name])
	}

	for _, root := range roots {
		fmt.Println(root)
		printBranch(cfg, downstream, root, "")
	}
}

func printBranch(cfg *config.Config, downstream map[string][]string, name, prefix string) {
	children := downstream[name]
	for i, child := range children {
		isLast := i == len(children)-1
		connector := "├── "
		childPrefix := prefix + "│   "
		if isLast {
			connector = "└── "
			childPrefix = prefix + "    "
		}
		fmt.Printf("%s%s%s\n", prefix, connector, child)
		printBranch(cfg, downstream, child, childPrefix)
	}
}
