package engine

import (
	"testing"

	"github.com/re-cinq/fleetd/internal/config"
)

func TestBuildGraphReadyQueueRootsOnly(t *testing.T) {
	jobs := map[string]config.Job{
		"build": {},
		"test":  {Needs: []string{"build"}},
		"lint":  {},
	}
	g, err := BuildGraph(jobs)
	if err != nil {
		t.Fatalf("BuildGraph: %v", err)
	}
	ready := g.ReadyQueue()
	if len(ready) != 2 {
		t.Fatalf("want 2 ready jobs (build, lint), got %v", ready)
	}
}

func TestUpdateDependentsUnlocksDiamond(t *testing.T) {
	jobs := map[string]config.Job{
		"a": {},
		"b": {Needs: []string{"a"}},
		"c": {Needs: []string{"a"}},
		"d": {Needs: []string{"b", "c"}},
	}
	g, err := BuildGraph(jobs)
	if err != nil {
		t.Fatalf("BuildGraph: %v", err)
	}
	ready := g.UpdateDependents("a")
	if len(ready) != 2 {
		t.Fatalf("want b and c ready after a completes, got %v", ready)
	}
	if ready := g.UpdateDependents("b"); len(ready) != 0 {
		t.Fatalf("d should not be ready until c also completes, got %v", ready)
	}
	if ready := g.UpdateDependents("c"); len(ready) != 1 || ready[0] != "d" {
		t.Fatalf("want d ready after b and c complete, got %v", ready)
	}
}

func TestBuildGraphRejectsCycle(t *testing.T) {
	jobs := map[string]config.Job{
		"a": {Needs: []string{"b"}},
		"b": {Needs: []string{"a"}},
	}
	if _, err := BuildGraph(jobs); err == nil {
		t.Fatalf("expected cycle error")
	}
}

func TestBuildGraphRejectsUnknownNeed(t *testing.T) {
	jobs := map[string]config.Job{
		"a": {Needs: []string{"ghost"}},
	}
	if _, err := BuildGraph(jobs); err == nil {
		t.Fatalf("expected unknown-need error")
	}
}
