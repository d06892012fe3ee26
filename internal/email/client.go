package email

import (
	"bytes"
	"context"
	"crypto/tls"
	"fmt"
	"io"
	"log/slog"
	"net"
	"strconv"
	"time"

	"github.com/emersion/go-imap"
	"github.com/emersion/go-imap/client"

	"github.com/mixelka/mailnotify/pkg/models"
)

// imapItem is one fetched message: UID, server arrival time and raw header block
type imapItem struct {
	UID          uint32
	InternalDate time.Time
	Header       []byte
}

// imapSession is the subset of an IMAP session the fetcher needs
type imapSession interface {
	SearchSince(since time.Time) ([]uint32, error)
	FetchHeaders(uids []uint32) ([]imapItem, error)
	Close() error
}

// IMAPFetcher fetches new message headers from an IMAP mailbox
type IMAPFetcher struct {
	timeout time.Duration
	logger  *slog.Logger
	dial    func(ctx context.Context, params Params) (imapSession, error)
}

// NewIMAPFetcher creates a new IMAP fetcher
func NewIMAPFetcher(timeout time.Duration, logger *slog.Logger) *IMAPFetcher {
	f := &IMAPFetcher{
		timeout: timeout,
		logger:  logger.With("protocol", models.ProtocolIMAP),
	}
	f.dial = f.connect
	return f
}

// Fetch returns messages whose arrival time is strictly after cursor.
// The server is asked for everything since one day before the cursor and the
// exact comparison happens client side.
func (f *IMAPFetcher) Fetch(ctx context.Context, params Params, cursor *time.Time, _ Seen) ([]*models.Message, error) {
	if cursor == nil {
		return nil, nil
	}

	sess, err := f.dial(ctx, params)
	if err != nil {
		return nil, err
	}
	defer sess.Close()

	uids, err := sess.SearchSince(cursor.Add(-cursorLookback))
	if err != nil {
		return nil, fmt.Errorf("failed to search: %w", err)
	}
	if len(uids) == 0 {
		return nil, nil
	}

	items, err := sess.FetchHeaders(uids)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch: %w", err)
	}

	return selectIMAPMessages(items, *cursor, f.logger), nil
}

// selectIMAPMessages parses headers, keeps messages newer than cursor and sorts them
func selectIMAPMessages(items []imapItem, cursor time.Time, logger *slog.Logger) []*models.Message {
	msgs := make([]*models.Message, 0, len(items))
	for _, item := range items {
		if len(bytes.TrimSpace(item.Header)) == 0 {
			logger.Warn("skipping message without header data", "uid", item.UID)
			continue
		}
		h, err := parseHeader(item.Header)
		if err != nil {
			logger.Warn("skipping message with unreadable header", "uid", item.UID, "error", err)
			continue
		}

		ts := item.InternalDate
		if ts.IsZero() {
			ts, err = h.Date()
			if err != nil || ts.IsZero() {
				logger.Warn("skipping message without usable timestamp", "uid", item.UID)
				continue
			}
		}
		if !ts.After(cursor) {
			continue
		}

		msg := messageFromHeader(h)
		msg.NativeID = strconv.FormatUint(uint64(item.UID), 10)
		msg.Timestamp = ts.UTC()
		msgs = append(msgs, msg)
	}

	sortByTimestamp(msgs)
	return msgs
}

// connect dials, authenticates and selects the mailbox read-only
func (f *IMAPFetcher) connect(ctx context.Context, params Params) (imapSession, error) {
	dialer := &net.Dialer{Timeout: f.timeout}
	tlsConfig := &tls.Config{ServerName: params.Host}
	addr := params.Address()

	var (
		c   *client.Client
		err error
	)
	switch params.Security {
	case models.SecuritySSL:
		c, err = client.DialWithDialerTLS(dialer, addr, tlsConfig)
	default:
		c, err = client.DialWithDialer(dialer, addr)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to connect to %s: %w", addr, err)
	}

	c.Timeout = f.timeout
	c.ErrorLog = slog.NewLogLogger(f.logger.Handler(), slog.LevelWarn)
	sess := &imapConn{c: c, stop: context.AfterFunc(ctx, func() { c.Terminate() })}

	if params.Security == models.SecurityStartTLS {
		if err := c.StartTLS(tlsConfig); err != nil {
			sess.Close()
			return nil, fmt.Errorf("failed to start TLS: %w", err)
		}
	}

	if err := c.Login(params.Username, params.Password); err != nil {
		sess.Close()
		return nil, fmt.Errorf("failed to login: %w", err)
	}

	if _, err := c.Select(params.Mailbox, true); err != nil {
		sess.Close()
		return nil, fmt.Errorf("failed to select %s: %w", params.Mailbox, err)
	}

	return sess, nil
}

// imapConn adapts a go-imap client to imapSession
type imapConn struct {
	c    *client.Client
	stop func() bool
}

func (s *imapConn) SearchSince(since time.Time) ([]uint32, error) {
	criteria := imap.NewSearchCriteria()
	criteria.Since = since
	return s.c.UidSearch(criteria)
}

func (s *imapConn) FetchHeaders(uids []uint32) ([]imapItem, error) {
	seqSet := new(imap.SeqSet)
	seqSet.AddNum(uids...)

	section := &imap.BodySectionName{
		BodyPartName: imap.BodyPartName{Specifier: imap.HeaderSpecifier},
		Peek:         true,
	}
	items := []imap.FetchItem{imap.FetchUid, imap.FetchInternalDate, section.FetchItem()}

	messages := make(chan *imap.Message, 100)
	done := make(chan error, 1)

	go func() {
		done <- s.c.UidFetch(seqSet, items, messages)
	}()

	var out []imapItem
	for msg := range messages {
		item := imapItem{UID: msg.Uid, InternalDate: msg.InternalDate}
		// Header stays empty when the section is missing or unreadable
		if body := msg.GetBody(section); body != nil {
			if raw, err := io.ReadAll(body); err == nil {
				item.Header = raw
			}
		}
		out = append(out, item)
	}

	if err := <-done; err != nil {
		return out, err
	}
	return out, nil
}

func (s *imapConn) Close() error {
	s.stop()
	if err := s.c.Logout(); err != nil {
		return s.c.Terminate()
	}
	return nil
}
