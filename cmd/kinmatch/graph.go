package main

import (
	"fmt"
	"os"
	"text/tabwriter"

	"github.com/spf13/cobra"
)

var graphCmd = &cobra.Command{
	Use:   "graph <profile-id>",
	Short: "Show the connection graph around a profile",
	Long: `Expand stored connections breadth-first from a profile.

Examples:
  kinmatch graph 12
  kinmatch graph 12 --max-depth 2 --min-score 70 --json`,
	Args: cobra.ExactArgs(1),
	RunE: runGraph,
}

func init() {
	rootCmd.AddCommand(graphCmd)
	graphCmd.Flags().Float64("min-score", 50, "Minimum similarity an edge needs, 0-100")
	graphCmd.Flags().Int("max-depth", 3, "Maximum hops from the profile")
}

func runGraph(cmd *cobra.Command, args []string) error {
	id, err := parseID(args[0])
	if err != nil {
		return err
	}
	minScore, err := minScoreFlag(cmd, cfg.Query.MinScore)
	if err != nil {
		return err
	}
	depth := cfg.Query.MaxDepth
	if cmd.Flags().Changed("max-depth") {
		depth = mustGetInt(cmd, "max-depth")
	}

	ctx := cmd.Context()
	svc, err := openService(ctx)
	if err != nil {
		return err
	}
	defer svc.Close()

	view, err := svc.ConnectionGraph(ctx, id, minScore, depth)
	if err != nil {
		return err
	}
	if mustGetBool(cmd, "json") {
		return printJSON(view)
	}
	fmt.Printf("Graph around profile %d: %d nodes, %d edges\n\n", view.Root, len(view.Nodes), len(view.Edges))
	w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "FROM\tTO\tSCORE\tSTRENGTH\tTYPE\tDEPTH")
	for _, e := range view.Edges {
		fmt.Fprintf(w, "%d\t%d\t%s\t%s\t%s\t%d\n",
			e.Connection.UserA, e.Connection.UserB,
			pct(e.Connection.Result.OverallScore),
			e.Connection.Strength(),
			e.Connection.Type,
			e.Depth,
		)
	}
	w.Flush()
	return nil
}
