package cli

import (
	"context"
	"fmt"
	"log/slog"
	"os"

	"github.com/spf13/cobra"

	"github.com/mixelka/mailnotify/internal/config"
	"github.com/mixelka/mailnotify/internal/crypto"
	"github.com/mixelka/mailnotify/internal/database"
)

// app holds what every subcommand shares once the root command has loaded it
type app struct {
	cfg    *config.Config
	db     *database.DB
	logger *slog.Logger
}

// NewRootCmd builds the mailnotify command tree
func NewRootCmd() *cobra.Command {
	a := &app{}

	rootCmd := &cobra.Command{
		Use:   "mailnotify",
		Short: "Mailbox poller that forwards matching mail to webhooks",
		Long: `mailnotify polls IMAP and POP3 mailboxes, evaluates every new message
against an ordered rule list and posts an embed to the first matching rule's webhook.

Examples:
  mailnotify import seed.yaml     # load accounts, rules, webhooks and formats
  mailnotify run                  # start the worker and the status endpoint
  mailnotify pause                # stop polling without stopping the process
  mailnotify trigger 3            # poll account 3 on the next cycle
  mailnotify rule move 2 0        # evaluate rule 2 before the others
  mailnotify failures list        # show recent delivery and fetch failures`,
		SilenceUsage: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return a.open(cmd.Context())
		},
		PersistentPostRun: func(cmd *cobra.Command, args []string) {
			a.close()
		},
	}

	rootCmd.AddCommand(
		newRunCmd(a),
		newPauseCmd(a),
		newResumeCmd(a),
		newIntervalCmd(a),
		newTimezoneCmd(a),
		newTriggerCmd(a),
		newStatusCmd(a),
		newFailuresCmd(a),
		newImportCmd(a),
		newAccountCmd(a),
		newRuleCmd(a),
	)
	return rootCmd
}

// Execute runs the CLI and exits non-zero on failure
func Execute() {
	if err := NewRootCmd().ExecuteContext(context.Background()); err != nil {
		os.Exit(1)
	}
}

func (a *app) open(ctx context.Context) error {
	cfg, err := config.Load()
	if err != nil {
		return err
	}
	a.cfg = cfg
	a.logger = setupLogger(cfg.LogLevel, cfg.LogFormat)

	db, err := database.Open(cfg)
	if err != nil {
		return err
	}
	if err := db.Migrate(ctx); err != nil {
		db.Close()
		return err
	}
	a.db = db
	return nil
}

func (a *app) close() {
	if a.db != nil {
		a.db.Close()
		a.db = nil
	}
}

// passwords returns the configured cipher, nil when encryption is disabled
func (a *app) passwords() (*crypto.PasswordCipher, error) {
	if !a.cfg.EncryptionEnabled() {
		return nil, nil
	}
	c, err := crypto.NewPasswordCipher(a.cfg.EncryptionKey)
	if err != nil {
		return nil, fmt.Errorf("failed to init password cipher: %w", err)
	}
	return c, nil
}
