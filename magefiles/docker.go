//go:build mage

package main

import (
	"fmt"
	"os"
	"os/exec"
	"strings"
	"time"
)

// Throwaway Postgres used by test:postgres.
const (
	pgContainerName = "neuronotes-pg-test"
	pgDefaultImage  = "postgres:16-alpine"
	pgHostPort      = "55432"
	pgPassword      = "neuronotes"
	pgTestDSN       = "postgres://postgres:" + pgPassword + "@127.0.0.1:" + pgHostPort + "/postgres?sslmode=disable"
)

// containerRuntime returns "podman" or "docker" if a working runtime
// is available, or "" if neither is usable. It checks both that the
// binary exists on PATH and that it can connect to its daemon/machine.
func containerRuntime() string {
	for _, name := range []string{"podman", "docker"} {
		if _, err := exec.LookPath(name); err != nil {
			continue
		}
		if exec.Command(name, "info").Run() != nil {
			fmt.Fprintf(os.Stderr, "WARNING: %s found on PATH but not usable (is the daemon/machine running?)\n", name)
			continue
		}
		return name
	}
	return ""
}

// startPostgres runs a fresh Postgres container and waits until it
// accepts connections.
func startPostgres(rt, image string) error {
	stopPostgres(rt)
	fmt.Fprintf(os.Stderr, "Starting %s...\n", image)
	cmd := exec.Command(rt, "run", "-d", "--rm",
		"--name", pgContainerName,
		"-e", "POSTGRES_PASSWORD="+pgPassword,
		"-p", pgHostPort+":5432",
		image)
	cmd.Stderr = os.Stderr
	if err := cmd.Run(); err != nil {
		return fmt.Errorf("starting postgres container: %w", err)
	}

	deadline := time.Now().Add(60 * time.Second)
	for time.Now().Before(deadline) {
		out, err := exec.Command(rt, "exec", pgContainerName, "pg_isready", "-U", "postgres").CombinedOutput()
		if err == nil && strings.Contains(string(out), "accepting connections") {
			return nil
		}
		time.Sleep(time.Second)
	}
	stopPostgres(rt)
	return fmt.Errorf("postgres did not become ready within 60s")
}

// stopPostgres removes the test container. Errors are ignored because
// the container may not exist.
func stopPostgres(rt string) {
	_ = exec.Command(rt, "rm", "-f", pgContainerName).Run()
}
