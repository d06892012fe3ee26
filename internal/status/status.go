package status

import (
	"context"
	"fmt"
	"time"
	_ "time/tzdata" // Display zones resolve in minimal containers

	"github.com/mixelka/mailnotify/pkg/models"
)

// Store is the read-only persistence the status surface needs
type Store interface {
	GetWorkerState(ctx context.Context, defaultInterval int) (*models.WorkerState, error)
	ListAccounts(ctx context.Context) ([]*models.Account, error)
	ListFailures(ctx context.Context, limit int) ([]*models.FailureLog, error)
}

// Report worker control state and per-account cursors
type Report struct {
	IsRunning       bool            `json:"is_running"`
	PollInterval    int             `json:"poll_interval"`
	DisplayTimezone string          `json:"display_timezone"`
	Accounts        []AccountStatus `json:"accounts"`
}

// AccountStatus cursor of one account
type AccountStatus struct {
	ID                   int64      `json:"id"`
	Name                 string     `json:"name"`
	Protocol             string     `json:"protocol"`
	Enabled              bool       `json:"enabled"`
	LastProcessed        *time.Time `json:"last_processed"`
	LastProcessedDisplay string     `json:"last_processed_display"`
}

// Snapshot collects the current report
func Snapshot(ctx context.Context, store Store, defaultInterval int) (*Report, error) {
	state, err := store.GetWorkerState(ctx, defaultInterval)
	if err != nil {
		return nil, err
	}
	accounts, err := store.ListAccounts(ctx)
	if err != nil {
		return nil, err
	}

	loc := state.Location()
	report := &Report{
		IsRunning:       state.IsRunning,
		PollInterval:    models.ClampPollInterval(state.PollInterval),
		DisplayTimezone: loc.String(),
		Accounts:        make([]AccountStatus, 0, len(accounts)),
	}
	for _, a := range accounts {
		report.Accounts = append(report.Accounts, AccountStatus{
			ID:                   a.ID,
			Name:                 a.Name,
			Protocol:             string(a.Protocol),
			Enabled:              a.Enabled,
			LastProcessed:        a.LastProcessedDate,
			LastProcessedDisplay: FormatInZone(a.LastProcessedDate, loc),
		})
	}
	return report, nil
}

// FormatInZone renders t in loc with the zone name appended, or "-" for nil
func FormatInZone(t *time.Time, loc *time.Location) string {
	if t == nil {
		return "-"
	}
	if loc == nil {
		loc = time.UTC
	}
	return fmt.Sprintf("%s (%s)", t.In(loc).Format(time.DateTime), loc.String())
}
