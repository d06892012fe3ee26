package cli

import (
	"fmt"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"

	"github.com/mixelka/mailnotify/internal/database"
	"github.com/mixelka/mailnotify/internal/worker"
)

func newFailuresCmd(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "failures",
		Short: "Inspect and maintain the failure log",
	}

	var limit int
	listCmd := &cobra.Command{
		Use:   "list",
		Short: "List recent failures, newest first",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			logs, err := a.db.ListFailures(cmd.Context(), limit)
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			if len(logs) == 0 {
				fmt.Fprintln(out, "no failures recorded")
				return nil
			}

			tw := tabwriter.NewWriter(out, 0, 4, 2, ' ', 0)
			fmt.Fprintln(tw, "TIME\tACCOUNT\tRULE\tSUBJECT\tERROR")
			for _, f := range logs {
				fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%s\n",
					f.CreatedAt.Format(time.DateTime),
					optionalID(f.AccountID),
					optionalID(f.RuleID),
					optionalString(f.Subject),
					f.ErrorMessage,
				)
			}
			return tw.Flush()
		},
	}
	listCmd.Flags().IntVar(&limit, "limit", database.DefaultFailureListLimit, "maximum number of entries")

	clearCmd := &cobra.Command{
		Use:   "clear",
		Short: "Delete every failure log entry",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			n, err := a.db.ClearFailures(cmd.Context())
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "deleted %d failure entries\n", n)
			return nil
		},
	}

	cleanupCmd := &cobra.Command{
		Use:   "cleanup",
		Short: "Delete failure entries older than 30 days",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			n, err := a.db.PurgeFailuresBefore(cmd.Context(), time.Now().Add(-worker.FailureRetention))
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "purged %d old failure entries\n", n)
			return nil
		},
	}

	cmd.AddCommand(listCmd, clearCmd, cleanupCmd)
	return cmd
}

func optionalID(id *int64) string {
	if id == nil {
		return "-"
	}
	return fmt.Sprint(*id)
}

func optionalString(s *string) string {
	if s == nil || *s == "" {
		return "-"
	}
	return *s
}
