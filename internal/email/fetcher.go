package email

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"slices"
	"time"

	"github.com/mixelka/mailnotify/pkg/models"
)

// ErrUnsupportedProtocol is returned when no fetcher is registered for a protocol
var ErrUnsupportedProtocol = errors.New("unsupported protocol")

// cursorLookback widens the server-side search to absorb clock and timezone skew
const cursorLookback = 24 * time.Hour

// Params connection parameters of one mailbox
type Params struct {
	Host     string
	Port     int
	Username string
	Password string
	Security models.SecurityMode
	Mailbox  string // IMAP only
}

// Address returns host:port
func (p Params) Address() string {
	return fmt.Sprintf("%s:%d", p.Host, p.Port)
}

// ParamsFor builds connection parameters for an account with an already decrypted password
func ParamsFor(account *models.Account, password string) Params {
	return Params{
		Host:     account.Host,
		Port:     account.ResolvedPort(),
		Username: account.Username,
		Password: password,
		Security: account.Security,
		Mailbox:  account.MailboxName(),
	}
}

// Seen reports whether a stable message identifier was already processed
type Seen interface {
	Contains(id string) bool
}

// Fetcher retrieves messages newer than a cursor, sorted ascending by timestamp.
// A nil cursor returns no messages.
type Fetcher interface {
	Fetch(ctx context.Context, params Params, cursor *time.Time, seen Seen) ([]*models.Message, error)
}

// Registry selects a fetcher by protocol
type Registry map[models.Protocol]Fetcher

// NewRegistry creates a registry with the IMAP and POP3 fetchers
func NewRegistry(timeout time.Duration, logger *slog.Logger) Registry {
	return Registry{
		models.ProtocolIMAP: NewIMAPFetcher(timeout, logger),
		models.ProtocolPOP3: NewPOP3Fetcher(timeout, logger),
	}
}

// For returns the fetcher for a protocol
func (r Registry) For(p models.Protocol) (Fetcher, error) {
	f, ok := r[p]
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrUnsupportedProtocol, p)
	}
	return f, nil
}

// sortByTimestamp orders messages chronologically, keeping server order for ties
func sortByTimestamp(msgs []*models.Message) {
	slices.SortStableFunc(msgs, func(a, b *models.Message) int {
		return a.Timestamp.Compare(b.Timestamp)
	})
}

type noneSeen struct{}

func (noneSeen) Contains(string) bool { return false }
