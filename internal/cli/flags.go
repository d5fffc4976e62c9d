package cli

import (
	"context"
	"os"

	"github.com/spf13/cobra"

	"github.com/gantry-dev/gantry/internal/gantryfile"
	"github.com/gantry-dev/gantry/pkg/model"
)

var gantryfilePath string
var cacheDir string
var kubeconfigPath string
var buildParallelism int

func addFileFlags(cmd *cobra.Command) {
	cmd.PersistentFlags().StringVarP(&gantryfilePath, "file", "f", "./"+gantryfile.FileName,
		"Path to the root Gantryfile")
	cmd.PersistentFlags().StringVar(&cacheDir, "cache-dir", os.Getenv("GANTRY_CACHE_DIR"),
		"Directory for build and apply records (default: $GANTRY_CACHE_DIR, else a per-workspace dir under the XDG cache home)")
	cmd.PersistentFlags().StringVar(&kubeconfigPath, "kubeconfig", "",
		"Path to the kubeconfig file (default: standard KUBECONFIG resolution)")
	cmd.PersistentFlags().IntVar(&buildParallelism, "build-parallelism", 0,
		"Max concurrent image builds (default: number of CPUs, capped at 4)")
}

// loadTargets loads the Gantryfile tree and scopes the graph to the targets
// named on the command line. No arguments means every declared target.
func loadTargets(ctx context.Context, args []string) (gantryfile.Result, *model.TargetGraph, error) {
	labels := make([]model.Label, 0, len(args))
	for _, arg := range args {
		lbl, err := model.ParseLabel(arg)
		if err != nil {
			return gantryfile.Result{}, nil, err
		}
		labels = append(labels, lbl)
	}

	result, err := gantryfile.Load(ctx, gantryfilePath, labels)
	if err != nil {
		return gantryfile.Result{}, nil, err
	}
	if len(labels) == 0 {
		return result, result.Graph, nil
	}

	roots := make([]model.TargetID, 0, len(labels))
	for _, lbl := range labels {
		id, err := result.TargetID(lbl)
		if err != nil {
			return gantryfile.Result{}, nil, err
		}
		roots = append(roots, id)
	}
	graph, err := result.Graph.Subgraph(roots)
	if err != nil {
		return gantryfile.Result{}, nil, err
	}
	return result, graph, nil
}
