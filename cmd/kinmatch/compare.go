package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/ZanzyTHEbar/kinmatch-libsql-go/internal/apptype"
)

var compareCmd = &cobra.Command{
	Use:   "compare <profile-a> <profile-b>",
	Short: "Score two registered profiles",
	Long: `Compare two registered profiles on face, voice and identity data.

Examples:
  kinmatch compare 12 40
  kinmatch compare 12 40 --store --json`,
	Args: cobra.ExactArgs(2),
	RunE: runCompare,
}

func init() {
	rootCmd.AddCommand(compareCmd)
	compareCmd.Flags().Bool("store", false, "Store the result as a connection")
}

func runCompare(cmd *cobra.Command, args []string) error {
	a, err := parseID(args[0])
	if err != nil {
		return err
	}
	b, err := parseID(args[1])
	if err != nil {
		return err
	}
	ctx := cmd.Context()
	svc, err := openService(ctx)
	if err != nil {
		return err
	}
	defer svc.Close()

	var res apptype.SimilarityResult
	if mustGetBool(cmd, "store") {
		conn, err := svc.CompareAndStore(ctx, a, b)
		if err != nil {
			return err
		}
		res = conn.Result
	} else if res, err = svc.Compare(ctx, a, b); err != nil {
		return err
	}
	if mustGetBool(cmd, "json") {
		return printJSON(res)
	}
	fmt.Printf("Profiles %d and %d\n", a, b)
	fmt.Printf("  Overall:     %s (%s confidence)\n", pct(res.OverallScore), res.Confidence)
	fmt.Printf("  Face:        %s\n", pct(res.FacialScore))
	fmt.Printf("  Voice:       %s\n", pct(res.VoiceScore))
	fmt.Printf("  Information: %s\n", pct(res.InformationScore))
	return nil
}
