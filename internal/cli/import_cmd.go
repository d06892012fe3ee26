package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/mixelka/mailnotify/internal/config"
)

func newImportCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "import <file.yaml>",
		Short: "Upsert webhooks, formats, accounts and rules from a YAML file",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			seed, err := config.LoadSeed(args[0])
			if err != nil {
				return err
			}
			passwords, err := a.passwords()
			if err != nil {
				return err
			}

			result, err := a.db.ImportSeed(cmd.Context(), seed, passwords.Seal)
			if err != nil {
				return err
			}

			fmt.Fprintf(cmd.OutOrStdout(), "imported %d webhooks, %d formats, %d accounts, %d rules\n",
				result.Webhooks, result.Formats, result.Accounts, result.Rules)
			if passwords != nil {
				fmt.Fprintln(cmd.OutOrStdout(), "account passwords stored encrypted")
			}
			return nil
		},
	}
}
