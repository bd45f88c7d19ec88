package main

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/ZanzyTHEbar/kinmatch-libsql-go/internal/apptype"
)

var reviewCmd = &cobra.Command{
	Use:   "review <profile-a> <profile-b> <potential|verified|rejected>",
	Short: "Record a review decision on a stored connection",
	Args:  cobra.ExactArgs(3),
	RunE: func(cmd *cobra.Command, args []string) error {
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

		conn, err := svc.SetConnectionType(ctx, a, b, apptype.ConnectionType(strings.ToLower(args[2])))
		if err != nil {
			return err
		}
		if mustGetBool(cmd, "json") {
			return printJSON(conn)
		}
		fmt.Printf("Connection %d-%d is now %s\n", conn.UserA, conn.UserB, conn.Type)
		return nil
	},
}

var statsCmd = &cobra.Command{
	Use:   "stats",
	Short: "Summarize stored connections",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, _ []string) error {
		ctx := cmd.Context()
		svc, err := openService(ctx)
		if err != nil {
			return err
		}
		defer svc.Close()

		stats, err := svc.Stats(ctx)
		if err != nil {
			return err
		}
		if mustGetBool(cmd, "json") {
			return printJSON(stats)
		}
		fmt.Printf("Connections:      %d\n", stats.TotalConnections)
		fmt.Printf("High confidence:  %d\n", stats.HighConfidenceMatches)
		for _, t := range []apptype.ConnectionType{apptype.ConnectionPotential, apptype.ConnectionVerified, apptype.ConnectionRejected} {
			fmt.Printf("  %-10s %d\n", t, stats.ByType[t])
		}
		return nil
	},
}

func init() {
	rootCmd.AddCommand(reviewCmd)
	rootCmd.AddCommand(statsCmd)
}
