package cli

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/gantry-dev/gantry/internal/engine"
	"github.com/gantry-dev/gantry/pkg/logger"
)

type buildCmd struct{}

func newBuildCmd() *buildCmd { return &buildCmd{} }

func (c *buildCmd) register() *cobra.Command {
	return &cobra.Command{
		Use:   "build [target...]",
		Short: "build the stale images without touching any cluster",
	}
}

func (c *buildCmd) run(ctx context.Context, args []string) error {
	result, graph, err := loadTargets(ctx, args)
	if err != nil {
		return err
	}
	runner, err := wireRunner(result)
	if err != nil {
		return err
	}

	summary, err := runner.Build(ctx, graph)
	if err != nil {
		return err
	}
	summary.Print(logger.Get(ctx))
	return summaryError(summary)
}

// summaryError maps a finished run's failures to the right exit code.
// The summary already printed the details, so the message stays short.
func summaryError(summary *engine.RunSummary) error {
	failed := summary.Failed()
	if len(failed) == 0 {
		return nil
	}
	msg := fmt.Sprintf("%d target(s) failed", len(failed))
	switch {
	case summary.HasApplyFailures():
		return exitError{code: exitCodeApply, msg: msg}
	case summary.HasBuildFailures():
		return exitError{code: exitCodeBuild, msg: msg}
	default:
		return exitError{code: exitCodeStructural, msg: msg}
	}
}
