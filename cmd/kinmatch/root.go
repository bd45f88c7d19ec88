package main

import (
	"context"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/ZanzyTHEbar/kinmatch-libsql-go/internal/config"
	"github.com/ZanzyTHEbar/kinmatch-libsql-go/pkg/kinship"
)

var (
	configPath string
	envFiles   []string

	// cfg is loaded before any subcommand runs.
	cfg *config.Config
)

var rootCmd = &cobra.Command{
	Use:   "kinmatch",
	Short: "Match people to likely relatives by face, voice and identity data",
	Long: `kinmatch scores registered people against each other on face descriptors,
voice prints and personal details, stores the resulting connections in libSQL
and explores the connection graph around a person.

Configuration is layered: built-in defaults, an optional YAML file (--config),
.env files, the environment (LIBSQL_URL, KINMATCH_*, METRICS_*) and finally
command-line flags.`,
	SilenceUsage:      true,
	PersistentPreRunE: loadConfig,
}

func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func init() {
	rootCmd.PersistentFlags().StringVar(&configPath, "config", "", "Path to a YAML config file")
	rootCmd.PersistentFlags().StringSliceVar(&envFiles, "env-file", nil, "Optional .env files to load (default .env)")
	rootCmd.PersistentFlags().String("libsql-url", "", "libSQL database URL (default file:./kinmatch.db)")
	rootCmd.PersistentFlags().String("auth-token", "", "Authentication token for remote databases")
	rootCmd.PersistentFlags().String("features-url", "", "libSQL database supplying vectors missing from the registry")
	rootCmd.PersistentFlags().Bool("json", false, "Output as JSON")
}

func loadConfig(cmd *cobra.Command, _ []string) error {
	loaded, err := config.Load(configPath, envFiles...)
	if err != nil {
		return err
	}
	flags := cmd.Flags()
	if flags.Changed("libsql-url") {
		loaded.Database.URL = mustGetString(cmd, "libsql-url")
	}
	if flags.Changed("auth-token") {
		loaded.Database.AuthToken = mustGetString(cmd, "auth-token")
	}
	if flags.Changed("features-url") {
		loaded.Matching.FeaturesURL = mustGetString(cmd, "features-url")
	}
	if err := loaded.Validate(); err != nil {
		return err
	}
	cfg = loaded
	return nil
}

// openService opens the engine described by cfg.
func openService(ctx context.Context) (*kinship.Service, error) {
	return kinship.NewService(ctx, &kinship.Config{
		URL:               cfg.Database.URL,
		AuthToken:         cfg.Database.AuthToken,
		MaxOpenConns:      cfg.Database.MaxOpenConns,
		MaxIdleConns:      cfg.Database.MaxIdleConns,
		ConnMaxIdleSec:    cfg.Database.ConnMaxIdleSec,
		ConnMaxLifeSec:    cfg.Database.ConnMaxLifeSec,
		FeaturesURL:       cfg.Matching.FeaturesURL,
		FeaturesAuthToken: cfg.Database.AuthToken,
		Candidates:        cfg.Matching.Candidates,
		MinStoreScore:     cfg.Matching.MinStoreScore,
		FaceDims:          cfg.Matching.FaceDims,
		VoiceDims:         cfg.Matching.VoiceDims,
		DimsMode:          cfg.Matching.DimsMode,
	})
}
