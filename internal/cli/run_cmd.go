package cli

import (
	"context"
	"errors"
	"log/slog"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/mixelka/mailnotify/internal/email"
	"github.com/mixelka/mailnotify/internal/notify"
	"github.com/mixelka/mailnotify/internal/rules"
	"github.com/mixelka/mailnotify/internal/status"
	"github.com/mixelka/mailnotify/internal/worker"
)

func newRunCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "run",
		Short: "Run the polling worker and the status endpoint",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.run(cmd.Context())
		},
	}
}

func (a *app) run(parent context.Context) error {
	logger := a.logger
	logger.Info("starting mailnotify")

	passwords, err := a.passwords()
	if err != nil {
		return err
	}

	// Create components
	fetchers := email.NewRegistry(a.cfg.MailTimeout, logger)
	engine := rules.NewEngine(logger)
	webhooks := notify.NewWebhookClient(notify.DefaultTimeout)
	dispatcher := notify.NewDispatcher(engine, webhooks, a.db, logger)
	w := worker.New(a.db, fetchers, dispatcher, passwords, a.cfg.PollIntervalSeconds(), logger)

	// Setup graceful shutdown
	ctx, stop := signal.NotifyContext(parent, syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	serverDone := make(chan struct{})
	if a.cfg.StatusAddr != "" {
		srv := status.NewServer(a.cfg.StatusAddr, a.db, a.cfg.PollIntervalSeconds(), logger)
		serverDone = serveInBackground(ctx, srv, logger.With("addr", a.cfg.StatusAddr))
	} else {
		close(serverDone)
	}

	err = w.Run(ctx)
	stop()
	<-serverDone

	if errors.Is(err, context.Canceled) {
		logger.Info("mailnotify stopped")
		return nil
	}
	return err
}

type server interface {
	Run(ctx context.Context) error
}

// serveInBackground runs srv until ctx ends. A failure such as a taken port is
// logged immediately; the returned channel closes once srv has stopped.
func serveInBackground(ctx context.Context, srv server, logger *slog.Logger) chan struct{} {
	done := make(chan struct{})
	go func() {
		defer close(done)
		if err := srv.Run(ctx); err != nil {
			logger.Error("status server failed, worker keeps running", "error", err)
		}
	}()
	return done
}
