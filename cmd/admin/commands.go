package main

import (
	"encoding/json"
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/peerlink/backend/internal/auth"
	"github.com/peerlink/backend/internal/config"
	"github.com/peerlink/backend/internal/domain"
	"github.com/peerlink/backend/internal/repository"
	"github.com/peerlink/backend/pkg/validator"
)

var migrateCmd = &cobra.Command{
	Use:   "migrate",
	Short: "Apply PostgreSQL schema migrations",
	RunE: func(cmd *cobra.Command, _ []string) error {
		cfg, err := config.Load()
		if err != nil {
			return err
		}
		logger, err := newLogger(cmd)
		if err != nil {
			return err
		}
		defer logger.Sync()

		pool, err := repository.NewPool(cmd.Context(), cfg.Store.DatabaseURL)
		if err != nil {
			return err
		}
		defer pool.Close()

		return repository.Migrate(cmd.Context(), pool, logger)
	},
}

var tokenCmd = &cobra.Command{
	Use:   "token",
	Short: "Issue a development bearer token for AUTH_MODE=jwt",
	RunE: func(cmd *cobra.Command, _ []string) error {
		userID, _ := cmd.Flags().GetString("user")
		email, _ := cmd.Flags().GetString("email")
		if !validator.ValidateUserID(userID) {
			return errors.New("--user must be a valid user id")
		}

		cfg, err := config.Load()
		if err != nil {
			return err
		}
		if cfg.Auth.Mode != "jwt" {
			return fmt.Errorf("tokens can only be issued with AUTH_MODE=jwt, got %q", cfg.Auth.Mode)
		}

		token, err := auth.NewJWTManager(cfg.Auth.JWTSecret, cfg.Auth.JWTIssuer, cfg.Auth.JWTExpiry).
			GenerateToken(userID, email)
		if err != nil {
			return err
		}
		fmt.Fprintln(cmd.OutOrStdout(), token)
		return nil
	},
}

var rankCmd = &cobra.Command{
	Use:   "rank",
	Short: "Print the ranked candidates for a user",
	RunE: func(cmd *cobra.Command, _ []string) error {
		userID, _ := cmd.Flags().GetString("user")

		backend, logger, err := openStore(cmd.Context(), cmd)
		if err != nil {
			return err
		}
		defer backend.Close()
		defer logger.Sync()

		requester, err := domain.NewProfileService(backend.Store).GetProfile(cmd.Context(), userID)
		if err != nil {
			return fmt.Errorf("load profile %s: %w", userID, err)
		}

		tiers, err := domain.NewMatchService(backend.Store, logger).RankTiers(cmd.Context(), requester)
		if err != nil {
			return err
		}
		return printJSON(cmd, tiers)
	},
}

var statusCmd = &cobra.Command{
	Use:   "status <userA> <userB>",
	Short: "Print the connection status of a pair as seen by userA",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		backend, logger, err := openStore(cmd.Context(), cmd)
		if err != nil {
			return err
		}
		defer backend.Close()
		defer logger.Sync()

		chats := domain.NewChatService(backend.Store, logger)
		view, err := domain.NewConnectionService(backend.Store, chats, logger).GetStatus(cmd.Context(), args[0], args[1])
		if err != nil {
			return err
		}
		return printJSON(cmd, view)
	},
}

func printJSON(cmd *cobra.Command, v interface{}) error {
	enc := json.NewEncoder(cmd.OutOrStdout())
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

func init() {
	tokenCmd.Flags().StringP("user", "u", "", "user id to put in the token subject")
	tokenCmd.Flags().StringP("email", "e", "", "optional email claim")
	_ = tokenCmd.MarkFlagRequired("user")

	rankCmd.Flags().StringP("user", "u", "", "requesting user id")
	_ = rankCmd.MarkFlagRequired("user")

	rootCmd.AddCommand(migrateCmd, tokenCmd, rankCmd, statusCmd)
}
