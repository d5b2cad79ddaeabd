package engine

import (
	"github.com/re-cinq/fleetd/internal/config"
)

// OutputKind distinguishes how a step's stdout/stderr and stdin are wired.
type OutputKind int

const (
	// ToFiles redirects stdout and stderr to the job's log files. The default.
	ToFiles OutputKind = iota
	// ToPipeOut redirects stdout to a temp file another job's step will
	// consume as stdin; stderr still goes to the log file.
	ToPipeOut
	// ToPipeIn reads stdin from a temp file a producing job wrote, with
	// stdout/stderr still going to the log files.
	ToPipeIn
)

// OutputStrategy is the resolved I/O wiring for one step.
type OutputStrategy struct {
	Kind     OutputKind
	PipePath string // temp file path, set for ToPipeOut and ToPipeIn
}

// pipeRegistry maps a producer job's name to the temp file its last step
// writes to and its consumer reads from, scoped to one pipeline run and
// populated up front since job/step shapes are known statically from
// config. A job's `pipe` field names the producer it reads from — not a
// command string — so the registry is keyed by job name, resolved once at
// build time against the pipeline's job map.
type pipeRegistry struct {
	pathByProducer map[string]string
}

// buildPipeRegistry scans every job for a declared Pipe producer reference
// and allocates that producer a temp file path, keyed by the producer's job
// name. config.Validate rejects more than one consumer claiming the same
// producer, so each producer gets exactly one path.
func buildPipeRegistry(jobs map[string]config.Job, tempDir string, pathFor func(producer string) string) *pipeRegistry {
	reg := &pipeRegistry{pathByProducer: make(map[string]string)}
	for _, job := range jobs {
		if job.Pipe == "" {
			continue
		}
		if _, ok := reg.pathByProducer[job.Pipe]; !ok {
			reg.pathByProducer[job.Pipe] = pathFor(job.Pipe)
		}
	}
	return reg
}

// strategyFor resolves the output strategy for one step of the job named
// name. A job's last step is the one that writes to the pipe file when some
// other job names it as a producer (ToPipeOut); a job's first step reads
// from its own declared producer's pipe file when one was allocated
// (ToPipeIn). Everything else defaults to ToFiles.
func (r *pipeRegistry) strategyFor(name string, job config.Job, stepIndex, stepCount int) OutputStrategy {
	if stepIndex == stepCount-1 {
		if path, ok := r.pathByProducer[name]; ok {
			return OutputStrategy{Kind: ToPipeOut, PipePath: path}
		}
	}
	if stepIndex == 0 && job.Pipe != "" {
		if path, ok := r.pathByProducer[job.Pipe]; ok {
			return OutputStrategy{Kind: ToPipeIn, PipePath: path}
		}
	}
	return OutputStrategy{Kind: ToFiles}
}
