// Package engine runs one pipeline (fleet.yml's job DAG) to completion:
// building the dependency graph, scheduling ready jobs in parallel batches,
// running each job's steps with the right output strategy, sampling
// resource usage, and persisting metrics.
package engine

import (
	"fmt"

	"github.com/re-cinq/fleetd/internal/config"
)

// node is one job's position in the dependency graph.
type node struct {
	name          string
	needs         []string
	dependents    []string
	remainingDeps int
}

// Graph is the job dependency DAG for one pipeline run.
type Graph struct {
	nodes map[string]*node
	order []string // order BuildGraph added jobs in; follows map iteration, so it varies between runs
}

// BuildGraph constructs the dependency graph from a pipeline's jobs,
// rejecting unknown `needs`/`pipe` references and dependency cycles. A
// job's `pipe` producer is folded in alongside its `needs` (see
// config.Job.EffectiveDeps) so a consumer can never be scheduled before the
// job whose output it reads. Cycle detection reuses config.DetectCycles
// (three-color DFS).
func BuildGraph(jobs map[string]config.Job) (*Graph, error) {
	if err := config.DetectCycles(jobs); err != nil {
		return nil, err
	}

	g := &Graph{nodes: make(map[string]*node, len(jobs))}
	for name, job := range jobs {
		g.nodes[name] = &node{name: name, needs: job.EffectiveDeps()}
		g.order = append(g.order, name)
	}
	for name, n := range g.nodes {
		for _, dep := range n.needs {
			depNode, ok := g.nodes[dep]
			if !ok {
				return nil, fmt.Errorf("job %q needs unknown job %q", name, dep)
			}
			depNode.dependents = append(depNode.dependents, name)
			n.remainingDeps++
		}
	}
	return g, nil
}

// ReadyQueue returns the jobs with no unmet dependencies, in the graph's
// insertion order, as the initial batch to run.
func (g *Graph) ReadyQueue() []string {
	var ready []string
	for _, name := range g.order {
		if g.nodes[name].remainingDeps == 0 {
			ready = append(ready, name)
		}
	}
	return ready
}

// UpdateDependents decrements the remaining-dependency count of every job
// that depends on the given completed job, returning the subset that
// became ready as a result (remainingDeps reached zero).
func (g *Graph) UpdateDependents(completed string) []string {
	var newlyReady []string
	for _, depName := range g.nodes[completed].dependents {
		dn := g.nodes[depName]
		dn.remainingDeps--
		if dn.remainingDeps == 0 {
			newlyReady = append(newlyReady, depName)
		}
	}
	return newlyReady
}

// Len returns the number of jobs in the graph.
func (g *Graph) Len() int { return len(g.nodes) }
