package engine

import (
	"testing"

	"github.com/re-cinq/fleetd/internal/config"
)

func TestPipeRegistryProducerConsumerPairing(t *testing.T) {
	jobs := map[string]config.Job{
		"producer": {
			Steps: []config.Cmd{{Cmd: "cat app.log"}},
		},
		"consumer": {
			Pipe:  "producer",
			Steps: []config.Cmd{{Cmd: "grep ERROR"}},
		},
	}
	reg := buildPipeRegistry(jobs, t.TempDir(), func(producer string) string {
		return "/tmp/pipe-" + producer
	})

	producerJob := jobs["producer"]
	strat := reg.strategyFor("producer", producerJob, 0, len(producerJob.Steps))
	if strat.Kind != ToPipeOut {
		t.Fatalf("producer step: want ToPipeOut, got %v", strat.Kind)
	}

	consumerJob := jobs["consumer"]
	cstrat := reg.strategyFor("consumer", consumerJob, 0, len(consumerJob.Steps))
	if cstrat.Kind != ToPipeIn {
		t.Fatalf("consumer step: want ToPipeIn, got %v", cstrat.Kind)
	}
	if strat.PipePath != cstrat.PipePath {
		t.Fatalf("producer and consumer should share the same pipe path: %q vs %q", strat.PipePath, cstrat.PipePath)
	}
}

func TestStrategyDefaultsToFiles(t *testing.T) {
	jobs := map[string]config.Job{
		"plain": {Steps: []config.Cmd{{Cmd: "go build ./..."}}},
	}
	reg := buildPipeRegistry(jobs, t.TempDir(), func(target string) string { return target })
	job := jobs["plain"]
	strat := reg.strategyFor("plain", job, 0, len(job.Steps))
	if strat.Kind != ToFiles {
		t.Fatalf("want ToFiles, got %v", strat.Kind)
	}
}
