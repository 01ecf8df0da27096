package main

import (
	"fmt"

	"token-ledger/internal/core/domain"

	"github.com/spf13/cobra"
)

func newAccountCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "account",
		Short: "Account id utilities",
	}
	cmd.AddCommand(newAccountNewCmd(), newAccountCheckCmd())
	return cmd
}

// newAccountNewCmd prints fresh random account ids, e.g. for ledger.owner.
func newAccountNewCmd() *cobra.Command {
	var count int
	cmd := &cobra.Command{
		Use:   "new",
		Short: "Generate random account ids",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if count < 1 {
				return fmt.Errorf("--count must be positive, got %d", count)
			}
			for i := 0; i < count; i++ {
				id, err := domain.NewAccountID()
				if err != nil {
					return err
				}
				if _, err := fmt.Fprintln(cmd.OutOrStdout(), id); err != nil {
					return err
				}
			}
			return nil
		},
	}
	cmd.Flags().IntVarP(&count, "count", "n", 1, "number of ids to generate")
	return cmd
}

func newAccountCheckCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "check <account-id>",
		Short: "Validate an account id and print its canonical form",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := domain.ParseAccountID(args[0])
			if err != nil {
				return err
			}
			_, err = fmt.Fprintln(cmd.OutOrStdout(), id)
			return err
		},
	}
}
