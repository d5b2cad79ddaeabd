package acceptance_test

import (
	"strings"
	"time"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/re-cinq/fleetd/internal/config"
	"github.com/re-cinq/fleetd/internal/engine"
)

var _ = Describe("pipeline scenarios", func() {
	It("S1 — runs a four-job chain in dependency order", func() {
		log, err := runPipelineYAML(`
pipeline:
  jobs:
    j1: {steps: [{cmd: "echo j1"}]}
    j2: {needs: [j1], steps: [{cmd: "echo j2"}]}
    j3: {needs: [j2], steps: [{cmd: "echo j3"}]}
    j4: {needs: [j3], steps: [{cmd: "echo j4"}]}
`)
		Expect(err).NotTo(HaveOccurred())
		for _, tok := range []string{"j1", "j2", "j3", "j4"} {
			Expect(log).To(ContainSubstring(tok))
		}
		idx := func(s string) int { return strings.Index(log, s) }
		Expect(idx("j1")).To(BeNumerically("<", idx("j2")))
		Expect(idx("j2")).To(BeNumerically("<", idx("j3")))
		Expect(idx("j3")).To(BeNumerically("<", idx("j4")))
	})

	It("S2 — runs a diamond with correct partial order", func() {
		log, err := runPipelineYAML(`
pipeline:
  jobs:
    j1: {steps: [{cmd: "echo j1"}]}
    j2: {needs: [j1], steps: [{cmd: "echo j2"}]}
    j3: {needs: [j1], steps: [{cmd: "echo j3"}]}
    j4: {needs: [j2, j3], steps: [{cmd: "echo j4"}]}
`)
		Expect(err).NotTo(HaveOccurred())
		idx := func(s string) int { return strings.Index(log, s) }
		Expect(idx("j1")).To(BeNumerically("<", idx("j2")))
		Expect(idx("j1")).To(BeNumerically("<", idx("j3")))
		Expect(idx("j2")).To(BeNumerically("<", idx("j4")))
		Expect(idx("j3")).To(BeNumerically("<", idx("j4")))
	})

	It("S3 — fails fast: a dependent job never runs its steps", func() {
		log, err := runPipelineYAML(`
pipeline:
  jobs:
    j1: {steps: [{cmd: "exit 1"}]}
    j2: {needs: [j1], steps: [{cmd: "echo X"}]}
`)
		Expect(err).To(HaveOccurred())
		Expect(log).NotTo(ContainSubstring("X"))
	})

	It("S4 — rejects a two-job cycle", func() {
		cfg := &config.Config{Pipeline: config.Pipeline{Jobs: map[string]config.Job{
			"j1": {Needs: []string{"j2"}, Steps: []config.Cmd{{Cmd: "echo j1"}}},
			"j2": {Needs: []string{"j1"}, Steps: []config.Cmd{{Cmd: "echo j2"}}},
		}}}
		errs := config.Validate(cfg)
		Expect(errs).NotTo(BeEmpty())
		found := false
		for _, e := range errs {
			if strings.Contains(e.Error(), "Cycle detected") {
				found = true
			}
		}
		Expect(found).To(BeTrue())

		_, err := engine.BuildGraph(cfg.Pipeline.Jobs)
		Expect(err).To(HaveOccurred())
		Expect(err.Error()).To(ContainSubstring("Cycle detected"))
	})

	It("S5 — a step exceeding the configured timeout fails within ~3s", func() {
		start := time.Now()
		_, err := runPipelineYAML(`
pipeline:
  jobs:
    j1: {steps: [{cmd: "sleep 5"}]}
timeout: 2s
`)
		Expect(err).To(HaveOccurred())
		Expect(time.Since(start)).To(BeNumerically("<=", 3500*time.Millisecond))
	})

	It("S6 — injects declared job env into the step process", func() {
		log, err := runPipelineYAML(`
pipeline:
  jobs:
    j1:
      env:
        CUSTOM_ENV: VALUE123
      steps: [{cmd: "env"}]
`)
		Expect(err).NotTo(HaveOccurred())
		Expect(log).To(ContainSubstring("VALUE123"))
	})
})
