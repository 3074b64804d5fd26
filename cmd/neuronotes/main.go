// Package main provides the neuronotes CLI.
package main

import "github.com/mesh-intelligence/neuronotes/internal/cli"

func main() {
	cli.Execute()
}
