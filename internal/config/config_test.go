package config

import "testing"

func TestParseAndValidate(t *testing.T) {
	yml := []byte(`
pipeline:
  jobs:
    build:
      steps:
        - cmd: "go build ./..."
    test:
      needs: ["build"]
      steps:
        - cmd: "go test ./..."
`)
	cfg, err := parse(yml)
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	if errs := Validate(cfg); len(errs) != 0 {
		t.Fatalf("Validate: unexpected errors: %v", errs)
	}
}

func TestValidateRejectsUnknownNeed(t *testing.T) {
	yml := []byte(`
pipeline:
  jobs:
    test:
      needs: ["missing"]
      steps:
        - cmd: "go test ./..."
`)
	cfg, err := parse(yml)
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	errs := Validate(cfg)
	if len(errs) == 0 {
		t.Fatalf("expected validation error for unknown need")
	}
}

func TestDetectCyclesFindsCycle(t *testing.T) {
	jobs := map[string]Job{
		"a": {Needs: []string{"b"}},
		"b": {Needs: []string{"c"}},
		"c": {Needs: []string{"a"}},
	}
	if err := DetectCycles(jobs); err == nil {
		t.Fatalf("expected cycle detection error")
	}
}

func TestDetectCyclesAcceptsDAG(t *testing.T) {
	jobs := map[string]Job{
		"a": {},
		"b": {Needs: []string{"a"}},
		"c": {Needs: []string{"a", "b"}},
	}
	if err := DetectCycles(jobs); err != nil {
		t.Fatalf("unexpected cycle error: %v", err)
	}
}

func TestDetectCyclesFindsPipeOnlyCycle(t *testing.T) {
	jobs := map[string]Job{
		"a": {Pipe: "b"},
		"b": {Pipe: "a"},
	}
	if err := DetectCycles(jobs); err == nil {
		t.Fatalf("expected cycle detection error for a pipe-only cycle")
	}
}

func TestValidateRejectsUnknownPipeTarget(t *testing.T) {
	yml := []byte(`
pipeline:
  jobs:
    consumer:
      pipe: "missing"
      steps:
        - cmd: "grep ERROR"
`)
	cfg, err := parse(yml)
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	errs := Validate(cfg)
	if len(errs) == 0 {
		t.Fatalf("expected validation error for unknown pipe target")
	}
}

func TestValidateRejectsSharedPipeProducer(t *testing.T) {
	yml := []byte(`
pipeline:
  jobs:
    producer:
      steps:
        - cmd: "cat app.log"
    consumer1:
      pipe: "producer"
      steps:
        - cmd: "grep ERROR"
    consumer2:
      pipe: "producer"
      steps:
        - cmd: "grep WARN"
`)
	cfg, err := parse(yml)
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	errs := Validate(cfg)
	if len(errs) == 0 {
		t.Fatalf("expected validation error for a producer claimed by two consumers")
	}
}

func TestEffectiveDepsIncludesPipeProducer(t *testing.T) {
	job := Job{Needs: []string{"lint"}, Pipe: "build"}
	deps := job.EffectiveDeps()
	if len(deps) != 2 || deps[0] != "lint" || deps[1] != "build" {
		t.Fatalf("want [lint build], got %v", deps)
	}

	dup := Job{Needs: []string{"build"}, Pipe: "build"}
	if deps := dup.EffectiveDeps(); len(deps) != 1 {
		t.Fatalf("pipe already present in needs should not duplicate, got %v", deps)
	}
}

func TestCmdIsBlockingDefaultsTrue(t *testing.T) {
	c := Cmd{Cmd: "echo hi"}
	if !c.IsBlocking() {
		t.Fatalf("expected default blocking = true")
	}
	f := false
	c.Blocking = &f
	if c.IsBlocking() {
		t.Fatalf("expected explicit blocking = false to stick")
	}
}
