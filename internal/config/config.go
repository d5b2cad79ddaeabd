// Package config loads and validates fleet.yml, the project pipeline
// definition: a DAG of named jobs, each a sequence of shell or container
// steps, plus notification channels.
package config

import (
	"fmt"
	"os"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// Config is the parsed contents of fleet.yml.
type Config struct {
	Pipeline Pipeline `yaml:"pipeline"`
	Branches []string `yaml:"branches,omitempty"`
	Branch   string   `yaml:"branch,omitempty"`
	Timeout  Duration `yaml:"timeout,omitempty"`
}

// Pipeline is the named job graph plus its notification settings.
type Pipeline struct {
	Jobs          map[string]Job `yaml:"jobs"`
	Notifications Notification   `yaml:"notifications,omitempty"`
}

// Job is one node of the dependency graph: the jobs it needs to have
// finished before it starts, the producer job whose last step's stdout it
// consumes as stdin, and the ordered steps that make up its body.
type Job struct {
	Needs []string          `yaml:"needs,omitempty"`
	Pipe  string            `yaml:"pipe,omitempty"`
	Env   map[string]string `yaml:"env,omitempty"`
	Steps []Cmd             `yaml:"steps"`
}

// EffectiveDeps returns the job names this job must wait on before it can
// start: its declared `needs`, plus its `pipe` producer (if set and not
// already present), since a job consuming another job's output can't start
// before that output exists.
func (j Job) EffectiveDeps() []string {
	deps := append([]string(nil), j.Needs...)
	if j.Pipe == "" {
		return deps
	}
	for _, d := range deps {
		if d == j.Pipe {
			return deps
		}
	}
	return append(deps, j.Pipe)
}

// Cmd is a single step: a shell command, optionally run inside a container
// image instead of the host, optionally backgrounded (non-blocking).
type Cmd struct {
	Cmd       string `yaml:"cmd"`
	Blocking  *bool  `yaml:"blocking,omitempty"`
	Container string `yaml:"container,omitempty"`
}

// IsBlocking reports whether the step runner should wait for this step to
// exit before moving to the next one. Defaults to true.
func (c Cmd) IsBlocking() bool {
	if c.Blocking == nil {
		return true
	}
	return *c.Blocking
}

// Notification configures outbound webhook alerts for pipeline outcomes.
type Notification struct {
	On        []string     `yaml:"on,omitempty"`
	Channels  []NotifyChan `yaml:"channels,omitempty"`
	Thumbnail string       `yaml:"thumbnail,omitempty"`
}

// NotifyChan is one outbound notification target.
type NotifyChan struct {
	Service string `yaml:"service"`
	URL     string `yaml:"url"`
}

// Has reports whether notifications are enabled for the given outcome
// ("success" or "failure").
func (n Notification) Has(outcome string) bool {
	for _, o := range n.On {
		if o == outcome {
			return true
		}
	}
	return false
}

// Duration wraps time.Duration for YAML unmarshaling from strings like "30s".
type Duration time.Duration

func (d *Duration) UnmarshalYAML(unmarshal func(interface{}) error) error {
	var s string
	if err := unmarshal(&s); err != nil {
		return err
	}
	parsed, err := time.ParseDuration(s)
	if err != nil {
		return err
	}
	*d = Duration(parsed)
	return nil
}

func (d Duration) Duration() time.Duration {
	return time.Duration(d)
}

// Load reads and parses fleet.yml from path. It does not resolve
// ${VAR}/$VAR references in step commands or env maps; callers that need
// them resolved call ResolveEnv on the result.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading config: %w", err)
	}
	return parse(data)
}

func parse(data []byte) (*Config, error) {
	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("parsing YAML: %w", err)
	}
	return &cfg, nil
}

// Validate checks structural invariants: at least one job, every `needs`
// name exists, every `pipe` name references a distinct declared job, no
// producer is claimed by more than one consumer, and the dependency graph
// (built from `needs` and `pipe`) is acyclic.
func Validate(cfg *Config) []error {
	var errs []error

	if len(cfg.Pipeline.Jobs) == 0 {
		errs = append(errs, fmt.Errorf("pipeline.jobs: at least one job is required"))
	}

	producerClaimedBy := make(map[string]string, len(cfg.Pipeline.Jobs))
	for name, job := range cfg.Pipeline.Jobs {
		if len(job.Steps) == 0 {
			errs = append(errs, fmt.Errorf("job %q: at least one step is required", name))
		}
		for _, need := range job.Needs {
			if _, ok := cfg.Pipeline.Jobs[need]; !ok {
				errs = append(errs, fmt.Errorf("job %q: needs unknown job %q", name, need))
			}
		}
		if job.Pipe != "" {
			if job.Pipe == name {
				errs = append(errs, fmt.Errorf("job %q: pipe cannot reference itself", name))
			} else if _, ok := cfg.Pipeline.Jobs[job.Pipe]; !ok {
				errs = append(errs, fmt.Errorf("job %q: pipe references unknown job %q", name, job.Pipe))
			} else if other, claimed := producerClaimedBy[job.Pipe]; claimed {
				errs = append(errs, fmt.Errorf("job %q: pipe producer %q is already consumed by job %q", name, job.Pipe, other))
			} else {
				producerClaimedBy[job.Pipe] = name
			}
		}
		for i, step := range job.Steps {
			if strings.TrimSpace(step.Cmd) == "" {
				errs = append(errs, fmt.Errorf("job %q step %d: cmd is required", name, i))
			}
		}
	}

	if err := DetectCycles(cfg.Pipeline.Jobs); err != nil {
		errs = append(errs, err)
	}

	for _, ch := range cfg.Pipeline.Notifications.Channels {
		if ch.Service == "" || ch.URL == "" {
			errs = append(errs, fmt.Errorf("notifications.channels: service and url are required"))
		}
	}

	return errs
}

// DetectCycles walks the effective-dependency adjacency (`needs` plus any
// `pipe` producer) with a three-color DFS over the job graph.
func DetectCycles(jobs map[string]Job) error {
	const (
		white = 0
		gray  = 1
		black = 2
	)
	color := make(map[string]int, len(jobs))

	var visit func(name string) error
	visit = func(name string) error {
		color[name] = gray
		for _, dep := range jobs[name].EffectiveDeps() {
			if color[dep] == gray {
				return fmt.Errorf("Cycle detected: %s -> %s", name, dep)
			}
			if color[dep] == white {
				if err := visit(dep); err != nil {
					return err
				}
			}
		}
		color[name] = black
		return nil
	}

	for name := range jobs {
		if color[name] == white {
			if err := visit(name); err != nil {
				return err
			}
		}
	}
	return nil
}
