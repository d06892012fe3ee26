package cli

import (
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"

	"github.com/mixelka/mailnotify/internal/database"
	"github.com/mixelka/mailnotify/internal/status"
	"github.com/mixelka/mailnotify/pkg/models"
)

func newPauseCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "pause",
		Short: "Pause polling; the running worker idles until resumed",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.updateState(cmd, func(s *models.WorkerState) error {
				s.IsRunning = false
				return nil
			}, "worker paused")
		},
	}
}

func newResumeCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "resume",
		Short: "Resume polling",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.updateState(cmd, func(s *models.WorkerState) error {
				s.IsRunning = true
				return nil
			}, "worker resumed")
		},
	}
}

func newIntervalCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "interval <seconds>",
		Short: fmt.Sprintf("Set the poll interval (minimum %d seconds)", models.MinPollInterval),
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			seconds, err := strconv.Atoi(args[0])
			if err != nil {
				return fmt.Errorf("invalid interval %q: %w", args[0], err)
			}
			seconds = models.ClampPollInterval(seconds)
			return a.updateState(cmd, func(s *models.WorkerState) error {
				s.PollInterval = seconds
				return nil
			}, fmt.Sprintf("poll interval set to %ds", seconds))
		},
	}
}

func newTimezoneCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "timezone <IANA name>",
		Short: "Set the timezone used to display cursors",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if _, err := time.LoadLocation(args[0]); err != nil {
				return fmt.Errorf("unknown timezone %q: %w", args[0], err)
			}
			return a.updateState(cmd, func(s *models.WorkerState) error {
				s.DisplayTimezone = args[0]
				return nil
			}, "display timezone set to "+args[0])
		},
	}
}

func (a *app) updateState(cmd *cobra.Command, mutate func(*models.WorkerState) error, done string) error {
	ctx := cmd.Context()
	state, err := a.db.LoadWorkerState(ctx, a.cfg.PollIntervalSeconds())
	if err != nil {
		return err
	}
	if err := mutate(state); err != nil {
		return err
	}
	if err := a.db.SaveWorkerState(ctx, state); err != nil {
		return err
	}
	fmt.Fprintln(cmd.OutOrStdout(), done)
	return nil
}

func newTriggerCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "trigger <account-id>",
		Short: "Poll one account on the next worker cycle",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parseID(args[0])
			if err != nil {
				return err
			}
			ctx := cmd.Context()
			account, err := a.db.GetAccountByID(ctx, id)
			if errors.Is(err, database.ErrNotFound) {
				return fmt.Errorf("account %d not found", id)
			}
			if err != nil {
				return err
			}
			if _, err := a.db.EnqueueTrigger(ctx, id); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "poll of %s queued\n", account.Name)
			return nil
		},
	}
}

func newStatusCmd(a *app) *cobra.Command {
	var asJSON bool

	cmd := &cobra.Command{
		Use:   "status",
		Short: "Show worker state and account cursors",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			report, err := status.Snapshot(cmd.Context(), a.db, a.cfg.PollIntervalSeconds())
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			if asJSON {
				enc := json.NewEncoder(out)
				enc.SetIndent("", "  ")
				return enc.Encode(report)
			}

			state := "paused"
			if report.IsRunning {
				state = "running"
			}
			fmt.Fprintf(out, "Worker: %s, every %ds, timezone %s\n\n", state, report.PollInterval, report.DisplayTimezone)

			tw := tabwriter.NewWriter(out, 0, 4, 2, ' ', 0)
			fmt.Fprintln(tw, "ID\tNAME\tPROTOCOL\tENABLED\tLAST PROCESSED")
			for _, acc := range report.Accounts {
				fmt.Fprintf(tw, "%d\t%s\t%s\t%t\t%s\n", acc.ID, acc.Name, acc.Protocol, acc.Enabled, acc.LastProcessedDisplay)
			}
			return tw.Flush()
		},
	}
	cmd.Flags().BoolVar(&asJSON, "json", false, "print the report as JSON")
	return cmd
}

func parseID(s string) (int64, error) {
	id, err := strconv.ParseInt(s, 10, 64)
	if err != nil || id <= 0 {
		return 0, fmt.Errorf("invalid id %q", s)
	}
	return id, nil
}
