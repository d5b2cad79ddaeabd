package acceptance_test

import (
	"context"
	"os"
	"path/filepath"

	. "github.com/onsi/gomega"

	"github.com/re-cinq/fleetd/internal/config"
	"github.com/re-cinq/fleetd/internal/engine"
	"github.com/re-cinq/fleetd/internal/idgen"
	"github.com/re-cinq/fleetd/internal/logging"
)

// runPipelineYAML parses the given fleet.yml body, runs it against a fresh
// project directory, and returns the full log contents plus the run error
// (nil on success).
func runPipelineYAML(yamlBody string) (string, error) {
	id, err := idgen.New()
	Expect(err).NotTo(HaveOccurred())

	dir, err := os.MkdirTemp("", "fleet-proj-*")
	Expect(err).NotTo(HaveOccurred())
	defer os.RemoveAll(dir)

	cfgPath := filepath.Join(dir, "fleet.yml")
	Expect(os.WriteFile(cfgPath, []byte(yamlBody), 0o644)).To(Succeed())

	cfg, err := config.Load(cfgPath)
	Expect(err).NotTo(HaveOccurred())
	Expect(config.Validate(cfg)).To(BeEmpty())
	Expect(config.ResolveEnv(cfg)).To(Succeed())

	log, err := logging.New(id)
	Expect(err).NotTo(HaveOccurred())
	defer log.Close()

	rc := &engine.RunContext{
		ProjectID:   id,
		ProjectName: "acceptance-" + id,
		Dir:         dir,
		Config:      cfg,
		Log:         log,
	}

	_, runErr := engine.RunPipeline(context.Background(), rc)

	data, readErr := os.ReadFile(log.Path())
	Expect(readErr).NotTo(HaveOccurred())

	_ = logging.RemoveByID(id)
	_ = engine.RemoveByProjectID(id)

	return string(data), runErr
}
