//go:build mage

package main

import (
	"flag"
	"fmt"
	"os"
	"path/filepath"

	"github.com/magefile/mage/mg"
	"github.com/magefile/mage/sh"
)

// Test groups the test targets.
type Test mg.Namespace

// envTestDSN points the hosted sync tests at a Postgres database; they
// skip when it is unset.
const envTestDSN = "NEURONOTES_TEST_DSN"

// All runs every test.
func (Test) All() error {
	return sh.RunV(binGo, "test", "./...")
}

// Unit runs the tests in short mode, skipping slow timing tests.
func (Test) Unit() error {
	return sh.RunV(binGo, "test", "-short", "./...")
}

// Race runs every test with the race detector.
func (Test) Race() error {
	return sh.RunV(binGo, "test", "-race", "./...")
}

// Cover writes a coverage profile to bin/coverage.out and prints the
// per-function summary.
func (Test) Cover() error {
	if err := os.MkdirAll(binaryDir, 0o755); err != nil {
		return err
	}
	profile := filepath.Join(binaryDir, "coverage.out")
	if err := sh.RunV(binGo, "test", "-coverprofile", profile, "./..."); err != nil {
		return err
	}
	return sh.RunV(binGo, "tool", "cover", "-func", profile)
}

// Postgres starts a throwaway Postgres container and runs the hosted sync
// tests against it. Flags: --image to pick the server image, --keep to
// leave the container running afterwards.
func (Test) Postgres() error {
	fs := flag.NewFlagSet("test:postgres", flag.ContinueOnError)
	image := fs.String("image", pgDefaultImage, "postgres image")
	keep := fs.Bool("keep", false, "leave the container running")
	parseTargetFlags(fs)

	rt := containerRuntime()
	if rt == "" {
		return fmt.Errorf("no container runtime found (tried podman, docker)")
	}
	if err := startPostgres(rt, *image); err != nil {
		return err
	}
	if !*keep {
		defer stopPostgres(rt)
	}
	env := map[string]string{envTestDSN: pgTestDSN}
	return sh.RunWithV(env, binGo, "test", "-count=1", "-run", "Postgres", "./internal/remotesync/...", "./internal/schema/...")
}
