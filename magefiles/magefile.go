//go:build mage

// Package main provides build targets for the neuronotes project using Mage.
//
// Usage:
//
//	mage build              Compile the neuronotes binary to bin/
//	mage install            Install neuronotes to GOPATH/bin
//	mage clean              Remove build artifacts
//	mage lint               Run golangci-lint
//	mage test:all           Run all tests
//	mage test:unit          Run tests in short mode
//	mage test:race          Run all tests with the race detector
//	mage test:cover         Write coverage to bin/coverage.out
//	mage test:postgres      Run the hosted sync tests against a throwaway Postgres
//	mage stats              Print Go LOC and documentation word counts
package main

import (
	"os"
	"path/filepath"

	"github.com/magefile/mage/mg"
	"github.com/magefile/mage/sh"
)

// Binary names.
const (
	binGo   = "go"
	binLint = "golangci-lint"
)

const (
	binaryName = "neuronotes"
	binaryDir  = "bin"
	cmdDir     = "./cmd/neuronotes"
)

// Build compiles the neuronotes binary to bin/.
func Build() error {
	if err := os.MkdirAll(binaryDir, 0o755); err != nil {
		return err
	}
	return sh.RunV(binGo, "build", "-v", "-o", filepath.Join(binaryDir, binaryName), cmdDir)
}

// Clean removes build artifacts.
func Clean() error {
	if err := os.RemoveAll(binaryDir); err != nil {
		return err
	}
	return sh.RunV(binGo, "clean")
}

// Install builds and copies the binary to GOPATH/bin.
func Install() error {
	mg.Deps(Build)
	gopath, err := sh.Output(binGo, "env", "GOPATH")
	if err != nil {
		return err
	}
	src := filepath.Join(binaryDir, binaryName)
	dst := filepath.Join(gopath, "bin", binaryName)
	return sh.Copy(dst, src)
}

// Lint runs golangci-lint.
func Lint() error {
	return sh.RunV(binLint, "run", "./...")
}
