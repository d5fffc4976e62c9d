package cli

import (
	"context"

	"github.com/spf13/cobra"

	"github.com/gantry-dev/gantry/pkg/logger"
)

type downCmd struct{}

func newDownCmd() *downCmd { return &downCmd{} }

func (c *downCmd) register() *cobra.Command {
	return &cobra.Command{
		Use:   "down [target...]",
		Short: "delete the kubernetes entities declared by manifest targets",
		Long: `Down renders every manifest target in scope (without image digests) and
deletes its entities from the cluster, dependents before dependencies.
Image build records survive, so a later apply reuses cached builds.`,
	}
}

func (c *downCmd) run(ctx context.Context, args []string) error {
	result, graph, err := loadTargets(ctx, args)
	if err != nil {
		return err
	}
	runner, err := wireRunner(result)
	if err != nil {
		return err
	}

	summary, err := runner.Down(ctx, graph)
	if err != nil {
		return err
	}
	summary.Print(logger.Get(ctx))
	return summaryError(summary)
}
