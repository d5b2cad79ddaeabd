// Package acceptance_test exercises engine.RunPipeline end to end against
// the chain/diamond/fail-fast/cycle/timeout/env-injection scenarios — here
// the "binary" under test is the pipeline engine itself, invoked in-process
// with a per-test temp project dir and an isolated FLEET_HOME, since a real
// scenario requires only a local directory and no git remote.
package acceptance_test

import (
	"os"
	"testing"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
)

func TestAcceptance(t *testing.T) {
	RegisterFailHandler(Fail)
	RunSpecs(t, "Pipeline Acceptance Suite")
}

var fleetHome string

var _ = BeforeSuite(func() {
	var err error
	fleetHome, err = os.MkdirTemp("", "fleet-acceptance-home-*")
	Expect(err).NotTo(HaveOccurred())
	Expect(os.Setenv("FLEET_HOME", fleetHome)).To(Succeed())
})

var _ = AfterSuite(func() {
	os.RemoveAll(fleetHome)
})
