package main

import (
	"encoding/json"
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"

	"github.com/ZanzyTHEbar/kinmatch-libsql-go/internal/apptype"
	"github.com/ZanzyTHEbar/kinmatch-libsql-go/pkg/kinship"
)

var registerCmd = &cobra.Command{
	Use:   "register <profile.json>",
	Short: "Register a profile from a JSON file (use - for stdin)",
	Long: `Register or replace a profile. The file holds a profile object:

  {"identity": {"firstName": "Ana", "lastName": "Silva", "dateOfBirth": "1990-04-02T00:00:00Z"},
   "faceDescriptor": [0.12, -0.03, ...]}

Use --match to run matching right after registration.`,
	Args: cobra.ExactArgs(1),
	RunE: runRegister,
}

func init() {
	rootCmd.AddCommand(registerCmd)
	registerCmd.Flags().Bool("match", false, "Run matching for the new profile")
}

func readProfile(path string) (apptype.Profile, error) {
	var r io.Reader = os.Stdin
	if path != "-" {
		f, err := os.Open(path)
		if err != nil {
			return apptype.Profile{}, err
		}
		defer f.Close()
		r = f
	}
	var p apptype.Profile
	if err := json.NewDecoder(r).Decode(&p); err != nil {
		return p, fmt.Errorf("decode profile: %w", err)
	}
	return p, nil
}

func runRegister(cmd *cobra.Command, args []string) error {
	p, err := readProfile(args[0])
	if err != nil {
		return err
	}
	ctx := cmd.Context()
	svc, err := openService(ctx)
	if err != nil {
		return err
	}
	defer svc.Close()

	saved, err := svc.RegisterProfile(ctx, p)
	if err != nil {
		return err
	}
	var conns []apptype.Connection
	if mustGetBool(cmd, "match") {
		if conns, err = svc.RunMatching(ctx, saved.ID, kinship.MatchOptions{}); err != nil {
			return err
		}
	}
	if mustGetBool(cmd, "json") {
		return printJSON(map[string]any{"profile": saved, "matches": conns})
	}
	fmt.Printf("Registered profile %d (%s)\n", saved.ID, saved.Identity.FullName())
	if len(conns) > 0 {
		printConnections(saved.ID, conns)
	}
	return nil
}
