package cli

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"
)

// Version for Go-compiled builds that didn't go through a release
// pipeline. Distributed binaries override it with ldflags:
//
//	-X github.com/gantry-dev/gantry/internal/cli.version=...
var version = "0.1.0-dev"
var commitSHA string

type versionCmd struct{}

func newVersionCmd() *versionCmd { return &versionCmd{} }

func (c *versionCmd) register() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "print the gantry version",
	}
}

func (c *versionCmd) run(_ context.Context, _ []string) error {
	if commitSHA != "" {
		fmt.Printf("gantry v%s (%s)\n", version, commitSHA)
		return nil
	}
	fmt.Printf("gantry v%s\n", version)
	return nil
}
