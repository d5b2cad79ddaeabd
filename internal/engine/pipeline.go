package engine

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/re-cinq/fleetd/internal/config"
	"github.com/re-cinq/fleetd/internal/logging"
	"github.com/re-cinq/fleetd/internal/notify"
)

// RunContext carries everything one pipeline run needs: the project
// identity for metrics/logging, the working directory steps run in, and
// the parsed config.
type RunContext struct {
	ProjectID   string
	ProjectName string
	Dir         string
	Config      *config.Config
	Log         *logging.Logger
}

// RunPipeline runs the full job DAG to completion: build the graph, drain
// the ready queue in errgroup-joined batches (one batch per wavefront),
// running each newly-ready job's steps in order, and failing the whole
// pipeline fast on the first job error.
func RunPipeline(ctx context.Context, rc *RunContext) (*ExecMetrics, error) {
	metrics := NewExecMetrics(rc.ProjectID, rc.ProjectName)
	rc.Log.Info(fmt.Sprintf("pipeline started for %s", rc.ProjectName))

	graph, err := BuildGraph(rc.Config.Pipeline.Jobs)
	if err != nil {
		rc.Log.Error(fmt.Sprintf("invalid pipeline: %s", err))
		return metrics, fmt.Errorf("building dependency graph: %w", err)
	}

	tmpDir, err := os.MkdirTemp("", "fleet-pipe-")
	if err != nil {
		return metrics, fmt.Errorf("creating pipe temp dir: %w", err)
	}
	defer os.RemoveAll(tmpDir)

	registry := buildPipeRegistry(rc.Config.Pipeline.Jobs, tmpDir, func(target string) string {
		return filepath.Join(tmpDir, uniqueName(target))
	})

	ready := graph.ReadyQueue()
	runErr := drainReadyQueue(ctx, rc, graph, registry, metrics, ready)

	totalMemKB := totalSystemMemKB()
	metrics.Finalize(totalMemKB)

	if err := metrics.Save(); err != nil {
		rc.Log.Warning(fmt.Sprintf("saving metrics: %s", err))
	}

	if runErr != nil {
		PipelineRuns.WithLabelValues("failure").Inc()
		rc.Log.Error(fmt.Sprintf("pipeline failed: %s", runErr))
		if rc.Config.Pipeline.Notifications.Has("failure") {
			notify.SendFailure(rc.Config.Pipeline.Notifications.Channels, rc.ProjectName, runErr)
		}
		return metrics, runErr
	}

	PipelineRuns.WithLabelValues("success").Inc()
	rc.Log.Info("pipeline succeeded")
	if rc.Config.Pipeline.Notifications.Has("success") {
		notify.SendSuccess(rc.Config.Pipeline.Notifications.Channels, rc.ProjectName, notify.Metrics{
			DurationMs: metrics.DurationMs,
			CPUUsage:   metrics.CPUUsage,
			MemUsage:   metrics.MemUsage,
			MemUsageKB: metrics.MemUsageKB,
		})
	}
	return metrics, nil
}

// drainReadyQueue runs successive batches of ready jobs until the queue is
// empty or a job fails. Each batch is joined with an errgroup.Group: every
// job in the batch runs concurrently, in-flight siblings are allowed to
// finish even after one fails (no group-level cancellation propagates into
// already-started jobs), and the first error aborts scheduling further
// batches.
func drainReadyQueue(ctx context.Context, rc *RunContext, graph *Graph, registry *pipeRegistry, metrics *ExecMetrics, initial []string) error {
	queue := initial
	ran := 0
	var graphMu sync.Mutex // serializes UpdateDependents across a batch's jobs

	for len(queue) > 0 {
		batch := queue
		queue = nil

		var g errgroup.Group
		newlyReady := make(chan []string, len(batch))

		for _, name := range batch {
			name := name
			job := rc.Config.Pipeline.Jobs[name]
			g.Go(func() error {
				// ctx (not a group-derived context) is deliberate: a sibling
				// job's failure must not cancel this job's in-flight steps,
				// only the outer caller's cancellation should.
				if err := runJob(ctx, rc, registry, metrics, name, job); err != nil {
					return fmt.Errorf("job %q: %w", name, err)
				}
				graphMu.Lock()
				ready := graph.UpdateDependents(name)
				graphMu.Unlock()
				newlyReady <- ready
				return nil
			})
		}

		if err := g.Wait(); err != nil {
			close(newlyReady)
			return err
		}
		close(newlyReady)
		for batchReady := range newlyReady {
			queue = append(queue, batchReady...)
		}
		ran += len(batch)
	}

	if ran != graph.Len() {
		return fmt.Errorf("pipeline stalled: %d of %d jobs never became ready (check needs for unreachable jobs)", graph.Len()-ran, graph.Len())
	}
	return nil
}

// runJob executes every step of one job in order, recording job-level
// metrics.
func runJob(ctx context.Context, rc *RunContext, registry *pipeRegistry, metrics *ExecMetrics, name string, job config.Job) error {
	metrics.JobStarted(name)
	rc.Log.JobStart(name)
	started := time.Now()

	timeout := rc.Config.Timeout.Duration()

	var lastCPU float64
	var lastMem uint64
	for i, step := range job.Steps {
		strat := registry.strategyFor(name, job, i, len(job.Steps))
		res, err := runStep(ctx, rc.Log, rc.Dir, step, strat, job.Env, timeout)
		lastCPU, lastMem = res.cpuPercent, res.memKB
		if err != nil {
			metrics.JobFinished(name, JobFailed, lastCPU, lastMem)
			JobDuration.WithLabelValues("failure").Observe(time.Since(started).Seconds())
			rc.Log.JobEnd(fmt.Sprintf("%s failed: %s", name, err))
			return err
		}
	}

	metrics.JobFinished(name, JobSucceeded, lastCPU, lastMem)
	JobDuration.WithLabelValues("success").Observe(time.Since(started).Seconds())
	rc.Log.JobEnd(fmt.Sprintf("%s succeeded", name))
	return nil
}

func uniqueName(target string) string {
	sum := 0
	for _, r := range target {
		sum = sum*31 + int(r)
	}
	return fmt.Sprintf("pipe-%x", uint32(sum))
}
