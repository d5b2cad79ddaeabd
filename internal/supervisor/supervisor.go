// Package supervisor is the watch loop: on each tick it walks every
// registered (unpaused) watch, checks the remote's branch tip against the
// last seen commit, and runs the pipeline on change.
package supervisor

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/re-cinq/fleetd/internal/config"
	"github.com/re-cinq/fleetd/internal/engine"
	"github.com/re-cinq/fleetd/internal/logging"
	"github.com/re-cinq/fleetd/internal/registry"
	"github.com/re-cinq/fleetd/internal/scm"
)

// DefaultPollInterval is how often the supervisor checks remote tips.
const DefaultPollInterval = 15 * time.Second

// Supervisor owns the registry and drives the watch/pipeline loop.
type Supervisor struct {
	Registry     *registry.Registry
	PollInterval time.Duration
}

// New returns a Supervisor over the given registry, polling at
// DefaultPollInterval. Override Supervisor.PollInterval before calling Run
// to use a different period.
func New(reg *registry.Registry) *Supervisor {
	return &Supervisor{Registry: reg, PollInterval: DefaultPollInterval}
}

// Run ticks forever (or once, when once is true) until ctx is cancelled.
// A failing watch is logged and skipped — one project's pipeline error
// never stops the supervisor from checking the rest, matching the
// original's non-fatal per-project error handling.
func (s *Supervisor) Run(ctx context.Context, once bool) error {
	StartupDiagnostics(s.Registry)

	if once {
		s.tickAll(ctx)
		return nil
	}

	ticker := time.NewTicker(s.PollInterval)
	defer ticker.Stop()
	for {
		s.tickAll(ctx)
		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
		}
	}
}

func (s *Supervisor) tickAll(ctx context.Context) {
	watches := s.Registry.Snapshot()
	active := 0
	for _, w := range watches {
		if !w.Paused {
			active++
		}
	}
	engine.ActiveWatches.Set(float64(active))

	for _, w := range watches {
		if w.Paused {
			continue
		}
		if err := s.tickOne(ctx, w); err != nil {
			fmt.Printf("fleetd: watch %s (%s): %s\n", w.ID, w.RepoName, err)
		}
	}
}

// tickOne checks every branch a watch follows for a new commit and, if any
// one of them advanced, runs the pipeline once. last_commit advances before
// the pipeline result is known: a permanently failing pipeline will not be
// retried forever against the same commit. Only the first changed branch
// is treated as dirty per tick; the rest are picked up on a later tick if
// they also moved.
func (s *Supervisor) tickOne(ctx context.Context, w *registry.Watch) error {
	remote := scm.NewRemote(w.RemoteURL)
	branches := w.Branches
	if len(branches) == 0 {
		branches = []string{"main"}
	}

	dirty := ""
	var tip string
	for _, branch := range branches {
		t, err := remote.HeadCommit(branch)
		if err != nil {
			fmt.Printf("fleetd: watch %s (%s): resolving tip of %q: %s\n", w.ID, w.RepoName, branch, err)
			continue
		}
		if t != w.LastCommit[branch] {
			dirty, tip = branch, t
			break
		}
	}
	if dirty == "" {
		return nil
	}

	if err := s.Registry.SetLastCommit(w.ID, dirty, tip); err != nil {
		return fmt.Errorf("advancing last_commit: %w", err)
	}

	cfgPath := w.ProjectDir + "/fleet.yml"
	cfg, err := config.Load(cfgPath)
	if err != nil {
		return fmt.Errorf("loading %s: %w", cfgPath, err)
	}
	if errs := config.Validate(cfg); len(errs) > 0 {
		return fmt.Errorf("invalid %s: %s", cfgPath, errs[0])
	}
	if err := config.ResolveEnv(cfg); err != nil {
		return fmt.Errorf("resolving env: %w", err)
	}

	log, err := logging.New(w.ID)
	if err != nil {
		return fmt.Errorf("opening log: %w", err)
	}
	defer log.Close()

	rc := &engine.RunContext{
		ProjectID:   w.ID,
		ProjectName: w.RepoName,
		Dir:         w.ProjectDir,
		Config:      cfg,
		Log:         log,
	}
	_, err = engine.RunPipeline(ctx, rc)
	return err
}

// StartupDiagnostics scans every watch's log for a JOB START with no
// matching pipeline-finalize marker after it — a run interrupted by a
// daemon crash — and logs a warning.
func StartupDiagnostics(reg *registry.Registry) {
	for _, w := range reg.Snapshot() {
		lines, err := logging.Tail(w.ID, 50)
		if err != nil {
			continue
		}
		if looksInterrupted(lines) {
			fmt.Printf("fleetd: watch %s (%s) log ends mid-pipeline from a previous run; resuming fresh\n", w.ID, w.RepoName)
		}
	}
}

func looksInterrupted(lines []string) bool {
	lastStart, lastFinalize := -1, -1
	for i, l := range lines {
		if strings.Contains(l, "JOB START") {
			lastStart = i
		}
		if strings.Contains(l, "pipeline succeeded") || strings.Contains(l, "pipeline failed") {
			lastFinalize = i
		}
	}
	return lastStart > lastFinalize
}
