package main

import (
	"fmt"
	"os"
	"strings"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/ZanzyTHEbar/kinmatch-libsql-go/pkg/kinship"
)

var searchCmd = &cobra.Command{
	Use:   "search [text]",
	Short: "Find registered profiles",
	Long: `Search profiles by name, place of birth or last known location,
optionally narrowed to a birth year or an age.

Examples:
  kinmatch search silva
  kinmatch search lisbon --birth-year 1990
  kinmatch search --age 40 --limit 50 --json`,
	Args: cobra.MaximumNArgs(1),
	RunE: runSearch,
}

func init() {
	rootCmd.AddCommand(searchCmd)
	searchCmd.Flags().Int("birth-year", 0, "Only profiles born in this year")
	searchCmd.Flags().Int("age", 0, "Only profiles born in the current year minus this age")
	searchCmd.Flags().Int("limit", 10, "Maximum results")
	searchCmd.Flags().Int("offset", 0, "Results to skip")
}

func runSearch(cmd *cobra.Command, args []string) error {
	q := kinship.SearchQuery{
		Text:      strings.Join(args, " "),
		BirthYear: mustGetInt(cmd, "birth-year"),
		Limit:     mustGetInt(cmd, "limit"),
		Offset:    mustGetInt(cmd, "offset"),
	}
	if cmd.Flags().Changed("age") {
		age := mustGetInt(cmd, "age")
		q.Age = &age
	}

	ctx := cmd.Context()
	svc, err := openService(ctx)
	if err != nil {
		return err
	}
	defer svc.Close()

	profiles, err := svc.SearchProfiles(ctx, q)
	if err != nil {
		return err
	}
	if mustGetBool(cmd, "json") {
		return printJSON(profiles)
	}
	if len(profiles) == 0 {
		fmt.Println("No profiles found.")
		return nil
	}
	w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "ID\tNAME\tBORN\tPLACE OF BIRTH\tLAST KNOWN LOCATION")
	for _, p := range profiles {
		born := ""
		if p.Identity.DateOfBirth != nil {
			born = p.Identity.DateOfBirth.Format("2006-01-02")
		}
		fmt.Fprintf(w, "%d\t%s\t%s\t%s\t%s\n",
			p.ID, p.Identity.FullName(), born, p.Identity.PlaceOfBirth, p.LastKnownLocation)
	}
	w.Flush()
	return nil
}
