package main

import (
	"fmt"
	"os"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/ZanzyTHEbar/kinmatch-libsql-go/internal/apptype"
	"github.com/ZanzyTHEbar/kinmatch-libsql-go/pkg/kinship"
)

var matchesCmd = &cobra.Command{
	Use:   "matches <profile-id>",
	Short: "List a profile's strongest connections",
	Long: `List stored connections of a profile, best first.

Examples:
  # Stored matches scoring at least 50%
  kinmatch matches 12

  # Re-run matching first, then list everything above 30%
  kinmatch matches 12 --run --min-score 30 --limit 50

  # Re-run matching storing every compared candidate
  kinmatch matches 12 --run --min-store-score 0`,
	Args: cobra.ExactArgs(1),
	RunE: runMatches,
}

func init() {
	rootCmd.AddCommand(matchesCmd)
	matchesCmd.Flags().Float64("min-score", 50, "Minimum similarity, 0-100")
	matchesCmd.Flags().Int("limit", 20, "Maximum matches to list (0 = no limit)")
	matchesCmd.Flags().Bool("run", false, "Run matching before listing")
	matchesCmd.Flags().Float64("min-store-score", 0, "With --run, minimum similarity (0-100) a result needs to be stored (default from configuration)")
}

func runMatches(cmd *cobra.Command, args []string) error {
	id, err := parseID(args[0])
	if err != nil {
		return err
	}
	minScore, err := minScoreFlag(cmd, cfg.Query.MinScore)
	if err != nil {
		return err
	}
	var runOpts kinship.MatchOptions
	if cmd.Flags().Changed("min-store-score") {
		p := mustGetFloat64(cmd, "min-store-score")
		if p < 0 || p > 100 {
			return fmt.Errorf("--min-store-score %v is outside 0-100", p)
		}
		minStore := p / 100
		runOpts.MinStoreScore = &minStore
	}
	limit := cfg.Query.MatchLimit
	if cmd.Flags().Changed("limit") {
		limit = mustGetInt(cmd, "limit")
	}

	ctx := cmd.Context()
	svc, err := openService(ctx)
	if err != nil {
		return err
	}
	defer svc.Close()

	if mustGetBool(cmd, "run") {
		if _, err := svc.RunMatching(ctx, id, runOpts); err != nil {
			return err
		}
	}
	conns, err := svc.TopMatches(ctx, id, minScore, limit)
	if err != nil {
		return err
	}
	if mustGetBool(cmd, "json") {
		return printJSON(conns)
	}
	if len(conns) == 0 {
		fmt.Println("No matches found")
		return nil
	}
	printConnections(id, conns)
	return nil
}

func printConnections(subject int64, conns []apptype.Connection) {
	w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "PROFILE\tOVERALL\tFACE\tVOICE\tINFO\tCONFIDENCE\tTYPE")
	for _, c := range conns {
		fmt.Fprintf(w, "%d\t%s\t%s\t%s\t%s\t%s\t%s\n",
			c.Counterpart(subject),
			pct(c.Result.OverallScore),
			pct(c.Result.FacialScore),
			pct(c.Result.VoiceScore),
			pct(c.Result.InformationScore),
			c.Result.Confidence,
			c.Type,
		)
	}
	w.Flush()
}
