package config

import (
	"fmt"
	"os"
	"regexp"

	"github.com/AlecAivazis/survey/v2"
	"golang.org/x/term"
)

// envRef matches ${NAME} or $NAME references inside a job's env values and
// step commands.
var envRef = regexp.MustCompile(`\$\{([A-Za-z_][A-Za-z0-9_]*)\}|\$([A-Za-z_][A-Za-z0-9_]*)`)

// ResolveEnv walks every job's env map and step command, substituting
// ${NAME}/$NAME references against the daemon process environment. A
// reference missing from the environment is prompted for interactively when
// stdin is a terminal (github.com/AlecAivazis/survey/v2), and is otherwise a
// hard load error — fleetd must never silently run a step with an unset
// credential.
func ResolveEnv(cfg *Config) error {
	resolved := make(map[string]string)

	resolve := func(name string) (string, error) {
		if v, ok := resolved[name]; ok {
			return v, nil
		}
		if v, ok := os.LookupEnv(name); ok {
			resolved[name] = v
			return v, nil
		}
		if !term.IsTerminal(int(os.Stdin.Fd())) {
			return "", fmt.Errorf("required env var %q is not set and stdin is not a terminal", name)
		}
		var v string
		prompt := &survey.Password{Message: fmt.Sprintf("value for $%s:", name)}
		if err := survey.AskOne(prompt, &v); err != nil {
			return "", fmt.Errorf("prompting for %q: %w", name, err)
		}
		resolved[name] = v
		return v, nil
	}

	substitute := func(s string) (string, error) {
		var outerErr error
		out := envRef.ReplaceAllStringFunc(s, func(match string) string {
			groups := envRef.FindStringSubmatch(match)
			name := groups[1]
			if name == "" {
				name = groups[2]
			}
			v, err := resolve(name)
			if err != nil && outerErr == nil {
				outerErr = err
			}
			return v
		})
		if outerErr != nil {
			return "", outerErr
		}
		return out, nil
	}

	for jobName, job := range cfg.Pipeline.Jobs {
		for k, v := range job.Env {
			nv, err := substitute(v)
			if err != nil {
				return fmt.Errorf("job %q env %q: %w", jobName, k, err)
			}
			job.Env[k] = nv
		}
		for i, step := range job.Steps {
			nv, err := substitute(step.Cmd)
			if err != nil {
				return fmt.Errorf("job %q step %d: %w", jobName, i, err)
			}
			step.Cmd = nv
			job.Steps[i] = step
		}
		cfg.Pipeline.Jobs[jobName] = job
	}
	return nil
}
