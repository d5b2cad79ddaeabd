// Command fleetd is the daemon: it loads the watch registry, drives the
// supervisor poll loop, serves the Unix-socket IPC API, and exports
// Prometheus metrics, all until SIGINT/SIGTERM.
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"github.com/re-cinq/fleetd/internal/engine"
	"github.com/re-cinq/fleetd/internal/fileutil"
	"github.com/re-cinq/fleetd/internal/ipc"
	"github.com/re-cinq/fleetd/internal/registry"
	"github.com/re-cinq/fleetd/internal/supervisor"
)

var (
	runOnce      bool
	metricsAddr  string
	pollInterval time.Duration
)

var rootCmd = &cobra.Command{
	Use:   "fleetd",
	Short: "Watch git remotes and run dependency-graph job pipelines",
	RunE: func(cmd *cobra.Command, args []string) error {
		return runDaemon()
	},
}

func init() {
	rootCmd.Flags().BoolVar(&runOnce, "once", false, "Check every watch once and exit")
	rootCmd.Flags().StringVar(&metricsAddr, "metrics-addr", "127.0.0.1:9090", "Address to serve Prometheus /metrics on")
	rootCmd.Flags().DurationVar(&pollInterval, "poll-interval", supervisor.DefaultPollInterval, "How often to check watched remotes for new commits")
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func runDaemon() error {
	reg, err := registry.Load()
	if err != nil {
		return fmt.Errorf("loading registry: %w", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		sig := <-sigCh
		fmt.Printf("\nfleetd: received %s, shutting down...\n", sig)
		cancel()
	}()

	fmt.Printf("fleetd starting (socket %s, poll interval %s)\n", fileutil.SocketPath(), pollInterval)

	sup := supervisor.New(reg)
	sup.PollInterval = pollInterval

	if runOnce {
		return sup.Run(ctx, true)
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		return sup.Run(gctx, false)
	})
	g.Go(func() error {
		return ipc.ListenAndServe(gctx, reg)
	})
	g.Go(func() error {
		return engine.ServeMetrics(gctx, metricsAddr)
	})

	if err := g.Wait(); err != nil && gctx.Err() == nil {
		return err
	}
	fmt.Println("fleetd stopped")
	return nil
}
