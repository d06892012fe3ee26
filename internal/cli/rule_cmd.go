package cli

import (
	"errors"
	"fmt"
	"strconv"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/mixelka/mailnotify/internal/database"
)

func newRuleCmd(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "rule",
		Short: "List, enable, disable or reorder rules",
	}

	listCmd := &cobra.Command{
		Use:   "list",
		Short: "List rules in evaluation order",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ruleSet, err := a.db.ListRules(cmd.Context())
			if err != nil {
				return err
			}
			tw := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
			fmt.Fprintln(tw, "ID\tPOSITION\tNAME\tENABLED\tACCOUNT\tWEBHOOK\tCONDITIONS")
			for _, r := range ruleSet {
				webhook := "-"
				if r.Webhook != nil {
					webhook = r.Webhook.Name
				}
				fmt.Fprintf(tw, "%d\t%d\t%s\t%t\t%s\t%s\t%d\n",
					r.ID, r.Position, r.Name, r.Enabled, optionalID(r.AccountID), webhook, len(r.Conditions))
			}
			return tw.Flush()
		},
	}

	toggle := func(use, short string, enabled bool) *cobra.Command {
		return &cobra.Command{
			Use:   use + " <rule-id>",
			Short: short,
			Args:  cobra.ExactArgs(1),
			RunE: func(cmd *cobra.Command, args []string) error {
				id, err := parseID(args[0])
				if err != nil {
					return err
				}
				if err := a.db.SetRuleEnabled(cmd.Context(), id, enabled); err != nil {
					return ruleError(id, err)
				}
				fmt.Fprintf(cmd.OutOrStdout(), "rule %d %sd\n", id, use)
				return nil
			},
		}
	}

	moveCmd := &cobra.Command{
		Use:   "move <rule-id> <position>",
		Short: "Change the evaluation position of a rule",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parseID(args[0])
			if err != nil {
				return err
			}
			position, err := strconv.Atoi(args[1])
			if err != nil {
				return fmt.Errorf("invalid position %q: %w", args[1], err)
			}
			if err := a.db.SetRulePosition(cmd.Context(), id, position); err != nil {
				return ruleError(id, err)
			}
			fmt.Fprintf(cmd.OutOrStdout(), "rule %d moved to position %d\n", id, position)
			return nil
		},
	}

	cmd.AddCommand(
		listCmd,
		toggle("enable", "Enable a rule", true),
		toggle("disable", "Disable a rule", false),
		moveCmd,
	)
	return cmd
}

func ruleError(id int64, err error) error {
	if errors.Is(err, database.ErrNotFound) {
		return fmt.Errorf("rule %d not found", id)
	}
	return err
}
