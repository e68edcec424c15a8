package main

import (
	"context"
	"fmt"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/peerlink/backend/internal/config"
	"github.com/peerlink/backend/internal/fbapp"
	"github.com/peerlink/backend/internal/repository"
)

const app = "peerlink-admin"

// Actual version can be specified in build command.
var version = "unknown"

var rootCmd = &cobra.Command{
	Use:           app,
	Short:         "peerlink-admin runs maintenance tasks against the PeerLink store",
	SilenceUsage:  true,
	PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
		_ = godotenv.Load()
		return nil
	},
}

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print the version",
	Run: func(cmd *cobra.Command, _ []string) {
		fmt.Fprintf(cmd.OutOrStdout(), "%s version: %s\n", app, version)
	},
}

// Execute executes the root command.
func Execute() error {
	return rootCmd.Execute()
}

func init() {
	rootCmd.PersistentFlags().BoolP("debug", "d", false, "verbose/debug output")
	rootCmd.AddCommand(versionCmd)
}

func newLogger(cmd *cobra.Command) (*zap.Logger, error) {
	debug, _ := cmd.Flags().GetBool("debug")
	if debug {
		return zap.NewDevelopment()
	}
	return zap.NewProduction()
}

// openStore loads config and opens the configured backend.
func openStore(ctx context.Context, cmd *cobra.Command) (*repository.Backend, *zap.Logger, error) {
	logger, err := newLogger(cmd)
	if err != nil {
		return nil, nil, err
	}

	cfg, err := config.Load()
	if err != nil {
		return nil, nil, err
	}

	var fb *fbapp.App
	if cfg.Store.Type == "firestore" {
		fb, err = fbapp.New(ctx, logger, cfg.Firebase.ProjectID, cfg.Firebase.CredentialsFile)
		if err != nil {
			return nil, nil, err
		}
	}

	backend, err := repository.Open(ctx, cfg, fb, logger)
	if err != nil {
		return nil, nil, err
	}
	return backend, logger, nil
}
