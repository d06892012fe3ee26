package models

import "time"

const (
	// MinPollInterval lowest accepted poll interval in seconds
	MinPollInterval = 10
	// DefaultPollInterval poll interval used when none is configured
	DefaultPollInterval = 60
)

// WorkerState global worker control record
type WorkerState struct {
	ID              int64     `db:"id"`
	IsRunning       bool      `db:"is_running"`
	PollInterval    int       `db:"poll_interval"` // Seconds
	DisplayTimezone string    `db:"display_timezone"`
	UpdatedAt       time.Time `db:"updated_at"`
}

// Interval returns the poll interval, never below MinPollInterval
func (s *WorkerState) Interval() time.Duration {
	return time.Duration(ClampPollInterval(s.PollInterval)) * time.Second
}

// Location returns the display timezone, UTC when unset or unknown
func (s *WorkerState) Location() *time.Location {
	if s.DisplayTimezone == "" {
		return time.UTC
	}
	loc, err := time.LoadLocation(s.DisplayTimezone)
	if err != nil {
		return time.UTC
	}
	return loc
}

// ClampPollInterval enforces the minimum poll interval
func ClampPollInterval(seconds int) int {
	if seconds < MinPollInterval {
		return MinPollInterval
	}
	return seconds
}

// WorkerTrigger request for an out-of-cycle poll of one account
type WorkerTrigger struct {
	ID          int64     `db:"id"`
	AccountID   int64     `db:"account_id"`
	RequestedAt time.Time `db:"requested_at"`
}
