package cli

import (
	"context"

	"github.com/spf13/cobra"

	"github.com/gantry-dev/gantry/pkg/logger"
)

type applyCmd struct{}

func newApplyCmd() *applyCmd { return &applyCmd{} }

func (c *applyCmd) register() *cobra.Command {
	return &cobra.Command{
		Use:   "apply [target...]",
		Short: "build stale images and apply their manifests to the cluster",
		Long: `Apply is the full pipeline: resolve the graph, rebuild what changed,
bind the fresh image digests into the manifests, and apply them in
dependency order. Targets whose inputs are unchanged are left alone.`,
	}
}

func (c *applyCmd) run(ctx context.Context, args []string) error {
	result, graph, err := loadTargets(ctx, args)
	if err != nil {
		return err
	}
	runner, err := wireRunner(result)
	if err != nil {
		return err
	}

	summary, err := runner.Apply(ctx, graph)
	if err != nil {
		return err
	}
	summary.Print(logger.Get(ctx))
	return summaryError(summary)
}
