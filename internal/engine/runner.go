package engine

import (
	"bytes"
	"context"
	"fmt"
	"os"
	"os/exec"
	"time"

	"github.com/re-cinq/fleetd/internal/config"
	"github.com/re-cinq/fleetd/internal/logging"
)

// stepResult is what running one step produced, including the resource
// samples needed to roll up into the job's JobMetrics.
type stepResult struct {
	cpuPercent float64
	memKB      uint64
}

// runStep executes one Cmd according to its resolved OutputStrategy,
// writing stdout/stderr into the job's log file (or a pipe temp file), and
// sampling the child's CPU/RSS concurrently with the wait.
func runStep(ctx context.Context, log *logging.Logger, dir string, step config.Cmd, strat OutputStrategy, env map[string]string, timeout time.Duration) (stepResult, error) {
	if step.Container != "" {
		return runContainerStep(ctx, log, dir, step, env, timeout)
	}

	cmd := exec.Command("sh", "-c", step.Cmd)
	cmd.Dir = dir
	cmd.Env = mergeEnv(env)

	var stdoutFile, stdinFile *os.File
	var err error

	switch strat.Kind {
	case ToPipeOut:
		stdoutFile, err = os.Create(strat.PipePath)
		if err != nil {
			return stepResult{}, fmt.Errorf("creating pipe out file: %w", err)
		}
		defer stdoutFile.Close()
		cmd.Stdout = stdoutFile
	case ToPipeIn:
		stdinFile, err = os.Open(strat.PipePath)
		if err != nil {
			return stepResult{}, fmt.Errorf("opening pipe in file: %w", err)
		}
		defer stdinFile.Close()
		cmd.Stdin = stdinFile
		cmd.Stdout = &logWriter{log: log}
	default:
		cmd.Stdout = &logWriter{log: log}
	}
	cmd.Stderr = &logWriter{log: log, isErr: true}

	if !step.IsBlocking() {
		// Fire-and-forget: no timeout, no sampling.
		if err := cmd.Start(); err != nil {
			return stepResult{}, fmt.Errorf("starting background step: %w", err)
		}
		go cmd.Wait()
		return stepResult{}, nil
	}

	if err := cmd.Start(); err != nil {
		return stepResult{}, fmt.Errorf("starting step: %w", err)
	}

	sampleCtx, cancelSample := context.WithCancel(ctx)
	sampleDone := make(chan stepResult, 1)
	go func() {
		cpu, memKB := sampleProcess(sampleCtx, int32(cmd.Process.Pid))
		sampleDone <- stepResult{cpuPercent: cpu, memKB: memKB}
	}()

	waitErr := waitWithTimeout(ctx, cmd, timeout)
	cancelSample()
	res := <-sampleDone
	return res, waitErr
}

// waitWithTimeout waits for cmd to exit, killing it if timeout elapses
// first (a zero timeout means no deadline).
func waitWithTimeout(ctx context.Context, cmd *exec.Cmd, timeout time.Duration) error {
	done := make(chan error, 1)
	go func() { done <- cmd.Wait() }()

	if timeout <= 0 {
		select {
		case err := <-done:
			return err
		case <-ctx.Done():
			_ = cmd.Process.Kill()
			<-done
			return ctx.Err()
		}
	}

	timer := time.NewTimer(timeout)
	defer timer.Stop()
	select {
	case err := <-done:
		return err
	case <-timer.C:
		_ = cmd.Process.Kill()
		<-done
		return fmt.Errorf("step timed out after %s", timeout)
	case <-ctx.Done():
		_ = cmd.Process.Kill()
		<-done
		return ctx.Err()
	}
}

func mergeEnv(env map[string]string) []string {
	merged := os.Environ()
	for k, v := range env {
		merged = append(merged, k+"="+v)
	}
	return merged
}

// logWriter adapts the per-watch Logger to an io.Writer for a running
// step's combined stdout/stderr, buffering to whole lines so the log
// keeps its one-line-per-entry shape.
type logWriter struct {
	log   *logging.Logger
	isErr bool
	buf   bytes.Buffer
}

func (w *logWriter) Write(p []byte) (int, error) {
	w.buf.Write(p)
	for {
		line, err := w.buf.ReadString('\n')
		if err != nil {
			// Incomplete line — put it back for the next Write.
			w.buf.Reset()
			w.buf.WriteString(line)
			break
		}
		line = line[:len(line)-1]
		if w.isErr {
			w.log.Warning(line)
		} else {
			w.log.Info(line)
		}
	}
	return len(p), nil
}
