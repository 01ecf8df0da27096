package main

import (
	"context"
	"errors"
	"fmt"
	"os"

	"token-ledger/config"
	pgStorage "token-ledger/internal/adapter/storage/postgres"
	"token-ledger/internal/core/domain"
	"token-ledger/internal/core/ports"
	"token-ledger/internal/service"
	"token-ledger/pkg/logger"

	"github.com/spf13/cobra"
)

const passwordEnv = "TLG_PRINCIPAL_PASSWORD"

func newPrincipalCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "principal",
		Short: "Manage login principals",
	}
	cmd.AddCommand(newPrincipalAddCmd())
	return cmd
}

// newPrincipalAddCmd binds a login to an existing account. Its main use is
// giving the configured owner a way to authenticate.
func newPrincipalAddCmd() *cobra.Command {
	var (
		username string
		account  string
	)
	cmd := &cobra.Command{
		Use:   "add",
		Short: "Create a principal bound to an account (default: ledger.owner)",
		Long:  "Create a principal bound to an account. The password is read from " + passwordEnv + ".",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := config.Load(configPath, cmd.Flags())
			if err != nil {
				return err
			}
			if account == "" {
				account = cfg.Ledger.Owner
			}
			accountID, err := domain.ParseAccountID(account)
			if err != nil {
				return fmt.Errorf("--account: %w", err)
			}
			password := os.Getenv(passwordEnv)
			if password == "" {
				return errors.New(passwordEnv + " is not set")
			}

			ctx := cmd.Context()
			log, closer := logger.FromConfig(cfg.Log)
			defer closer.Close()

			pool, err := pgStorage.NewPool(ctx, cfg.Database, log)
			if err != nil {
				return fmt.Errorf("connecting to PostgreSQL: %w", err)
			}
			defer pool.Close()
			if err := pgStorage.EnsureSchema(ctx, pool); err != nil {
				return err
			}

			hashSvc := service.NewArgon2HashService(hashParams(cfg.Hash))
			resp, err := addPrincipal(ctx, pgStorage.NewPrincipalRepo(pool), hashSvc, username, password, accountID)
			if err != nil {
				return err
			}
			_, err = fmt.Fprintf(cmd.OutOrStdout(), "principal %s bound to account %s\n", resp.PrincipalID, resp.AccountID)
			return err
		},
	}
	config.RegisterFlags(cmd.Flags())
	cmd.Flags().StringVar(&username, "username", "", "login name")
	cmd.Flags().StringVar(&account, "account", "", "hex account id (default ledger.owner)")
	_ = cmd.MarkFlagRequired("username")
	return cmd
}

func addPrincipal(
	ctx context.Context,
	repo ports.PrincipalRepository,
	hashSvc ports.HashService,
	username, password string,
	accountID domain.AccountID,
) (*ports.RegisterResponse, error) {
	// No tokens are issued here, so the token service is left out.
	authSvc := service.NewAuthService(repo, hashSvc, nil)
	return authSvc.Register(ctx, ports.RegisterRequest{
		Username:  username,
		Password:  password,
		AccountID: &accountID,
	})
}
