package cli

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"text/tabwriter"

	"github.com/pkg/errors"
	"github.com/spf13/cobra"
	"sigs.k8s.io/yaml"
)

type resolveCmd struct {
	output string
}

func newResolveCmd() *resolveCmd { return &resolveCmd{} }

func (c *resolveCmd) register() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "resolve [target...]",
		Short: "show the resolved plan without building or applying anything",
		Long: `Resolve loads the Gantryfiles, orders the targets, and reports which
ones are stale against the cache. It has no side effects: nothing builds,
nothing touches a cluster.`,
	}
	cmd.Flags().StringVarP(&c.output, "output", "o", "table", "Output format: table, yaml or json")
	return cmd
}

// planEntry is one row of resolve output, shared by all output formats.
type planEntry struct {
	ID          string `json:"id"`
	Type        string `json:"type"`
	Stale       bool   `json:"stale"`
	Fingerprint string `json:"fingerprint"`
	Ref         string `json:"ref,omitempty"`
}

func (c *resolveCmd) run(ctx context.Context, args []string) error {
	result, graph, err := loadTargets(ctx, args)
	if err != nil {
		return err
	}

	runner, err := wireRunner(result)
	if err != nil {
		return err
	}
	plan, err := runner.Resolve(graph)
	if err != nil {
		return err
	}

	entries := make([]planEntry, 0, len(plan.Order))
	for _, t := range plan.Order {
		id := t.ID()
		entry := planEntry{
			ID:          string(id.Name),
			Type:        string(id.Type),
			Stale:       plan.Stale(id),
			Fingerprint: plan.Fingerprints[id].ShortString(),
		}
		if record, ok := plan.Records[id]; ok {
			entry.Ref = record.Ref
		}
		entries = append(entries, entry)
	}

	return printEntries(entries, c.output)
}

func printEntries(entries []planEntry, format string) error {
	switch format {
	case "table":
		w := tabwriter.NewWriter(os.Stdout, 0, 8, 2, ' ', 0)
		fmt.Fprintln(w, "TARGET\tTYPE\tSTALE\tFINGERPRINT\tREF")
		for _, e := range entries {
			fmt.Fprintf(w, "%s\t%s\t%v\t%s\t%s\n", e.ID, e.Type, e.Stale, e.Fingerprint, e.Ref)
		}
		return w.Flush()
	case "yaml":
		data, err := yaml.Marshal(entries)
		if err != nil {
			return err
		}
		_, err = os.Stdout.Write(data)
		return err
	case "json":
		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		return enc.Encode(entries)
	default:
		return errors.Errorf("unknown output format %q (want table, yaml or json)", format)
	}
}
