package cli

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/mixelka/mailnotify/internal/database"
)

func newAccountCmd(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "account",
		Short: "Enable, disable or delete accounts",
	}

	toggle := func(use, short string, enabled bool) *cobra.Command {
		return &cobra.Command{
			Use:   use + " <account-id>",
			Short: short,
			Args:  cobra.ExactArgs(1),
			RunE: func(cmd *cobra.Command, args []string) error {
				id, err := parseID(args[0])
				if err != nil {
					return err
				}
				if err := a.db.SetAccountEnabled(cmd.Context(), id, enabled); err != nil {
					return accountError(id, err)
				}
				fmt.Fprintf(cmd.OutOrStdout(), "account %d %sd\n", id, use)
				return nil
			},
		}
	}

	deleteCmd := &cobra.Command{
		Use:   "delete <account-id>",
		Short: "Delete an account together with its scoped rules",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parseID(args[0])
			if err != nil {
				return err
			}
			if err := a.db.DeleteAccount(cmd.Context(), id); err != nil {
				return accountError(id, err)
			}
			fmt.Fprintf(cmd.OutOrStdout(), "account %d deleted\n", id)
			return nil
		},
	}

	cmd.AddCommand(
		toggle("enable", "Enable polling of an account", true),
		toggle("disable", "Disable polling of an account", false),
		deleteCmd,
	)
	return cmd
}

func accountError(id int64, err error) error {
	if errors.Is(err, database.ErrNotFound) {
		return fmt.Errorf("account %d not found", id)
	}
	return err
}
