package cli

import (
	"fmt"

	"github.com/spf13/cobra"
)

// Version is the neuronotes release.
const Version = "0.3.0"

const modulePath = "github.com/mesh-intelligence/neuronotes"

func newVersionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print the neuronotes version",
		RunE: func(cmd *cobra.Command, args []string) error {
			fmt.Fprintf(cmd.OutOrStdout(), "neuronotes v%s\nmodule: %s\n", Version, modulePath)
			return nil
		},
	}
}
