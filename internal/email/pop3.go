package email

import (
	"bufio"
	"context"
	"crypto/tls"
	"fmt"
	"log/slog"
	"net"
	"strings"
	"sync"
	"time"

	"github.com/emersion/go-message"
	"github.com/emersion/go-message/mail"
	pop3client "github.com/knadh/go-pop3"

	"github.com/mixelka/mailnotify/pkg/models"
)

// SyntheticID derives a stable message identifier from a POP3 UIDL
func SyntheticID(uidl string) string {
	return "pop3:" + uidl
}

// pop3Entry is one mailbox listing entry: session-local number and UIDL
type pop3Entry struct {
	Num int
	UID string
}

// pop3Session is the subset of a POP3 session the fetcher needs
type pop3Session interface {
	List() ([]pop3Entry, error)
	Top(num int) (*message.Entity, error)
	Close() error
}

// POP3Fetcher fetches new message headers from a POP3 mailbox
type POP3Fetcher struct {
	timeout time.Duration
	logger  *slog.Logger
	dial    func(ctx context.Context, params Params) (pop3Session, error)
}

// NewPOP3Fetcher creates a new POP3 fetcher
func NewPOP3Fetcher(timeout time.Duration, logger *slog.Logger) *POP3Fetcher {
	f := &POP3Fetcher{
		timeout: timeout,
		logger:  logger.With("protocol", models.ProtocolPOP3),
	}
	f.dial = f.connect
	return f
}

// Fetch lists the mailbox and returns headers of messages that are not in seen
// and whose Date header is strictly after cursor.
func (f *POP3Fetcher) Fetch(ctx context.Context, params Params, cursor *time.Time, seen Seen) ([]*models.Message, error) {
	if cursor == nil {
		return nil, nil
	}
	if seen == nil {
		seen = noneSeen{}
	}

	sess, err := f.dial(ctx, params)
	if err != nil {
		return nil, err
	}
	defer sess.Close()

	entries, err := sess.List()
	if err != nil {
		return nil, fmt.Errorf("failed to list messages: %w", err)
	}

	var msgs []*models.Message
	for _, e := range entries {
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		if seen.Contains(e.UID) || seen.Contains(SyntheticID(e.UID)) {
			continue
		}

		entity, err := sess.Top(e.Num)
		if err != nil {
			f.logger.Warn("skipping message, TOP failed", "uidl", e.UID, "error", err)
			continue
		}

		msg, err := pop3Message(e, mail.Header{Header: entity.Header})
		if err != nil {
			f.logger.Warn("skipping message without usable timestamp", "uidl", e.UID, "error", err)
			continue
		}
		if !msg.Timestamp.After(*cursor) {
			continue
		}
		msgs = append(msgs, msg)
	}

	sortByTimestamp(msgs)
	return msgs, nil
}

// pop3Message builds a message from a listing entry and its header.
// Messages without a Message-ID get a synthetic one derived from the UIDL.
func pop3Message(e pop3Entry, h mail.Header) (*models.Message, error) {
	ts, err := h.Date()
	if err != nil {
		return nil, err
	}
	if ts.IsZero() {
		return nil, fmt.Errorf("missing Date header")
	}

	msg := messageFromHeader(h)
	msg.NativeID = e.UID
	msg.Timestamp = ts.UTC()
	if msg.MessageID == "" {
		msg.MessageID = SyntheticID(e.UID)
	}
	return msg, nil
}

// connect dials and authenticates
func (f *POP3Fetcher) connect(ctx context.Context, params Params) (pop3Session, error) {
	d := &pop3Dialer{
		host:     params.Host,
		timeout:  f.timeout,
		startTLS: params.Security == models.SecurityStartTLS,
	}

	client := pop3client.New(pop3client.Opt{
		Host:        params.Host,
		Port:        params.Port,
		DialTimeout: f.timeout,
		Dialer:      d,
		TLSEnabled:  params.Security == models.SecuritySSL,
	})

	stop := context.AfterFunc(ctx, d.abort)

	conn, err := client.NewConn()
	if err != nil {
		stop()
		d.abort()
		return nil, fmt.Errorf("failed to connect to %s: %w", params.Address(), err)
	}
	sess := &pop3Conn{conn: conn, stop: stop}

	if err := conn.Auth(params.Username, params.Password); err != nil {
		sess.Close()
		return nil, fmt.Errorf("failed to login: %w", err)
	}
	return sess, nil
}

// pop3Conn adapts a go-pop3 connection to pop3Session
type pop3Conn struct {
	conn *pop3client.Conn
	stop func() bool
}

func (s *pop3Conn) List() ([]pop3Entry, error) {
	ids, err := s.conn.Uidl(0)
	if err != nil {
		return nil, err
	}
	out := make([]pop3Entry, 0, len(ids))
	for _, id := range ids {
		out = append(out, pop3Entry{Num: id.ID, UID: id.UID})
	}
	return out, nil
}

func (s *pop3Conn) Top(num int) (*message.Entity, error) {
	return s.conn.Top(num, 0)
}

func (s *pop3Conn) Close() error {
	s.stop()
	return s.conn.Quit()
}

// pop3Dialer applies per-operation deadlines and optionally upgrades the
// connection with STLS before the client reads the greeting.
type pop3Dialer struct {
	host     string
	timeout  time.Duration
	startTLS bool

	mu   sync.Mutex
	conn net.Conn
}

func (d *pop3Dialer) Dial(network, addr string) (net.Conn, error) {
	raw, err := (&net.Dialer{Timeout: d.timeout}).Dial(network, addr)
	if err != nil {
		return nil, err
	}
	d.mu.Lock()
	d.conn = raw
	d.mu.Unlock()

	var conn net.Conn = &deadlineConn{Conn: raw, timeout: d.timeout}
	if d.startTLS {
		conn, err = upgradeSTLS(conn, d.host)
		if err != nil {
			raw.Close()
			return nil, err
		}
	}
	return conn, nil
}

// abort closes the underlying connection, unblocking any pending I/O
func (d *pop3Dialer) abort() {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.conn != nil {
		d.conn.Close()
	}
}

// upgradeSTLS consumes the greeting, negotiates STLS and replays the greeting
// over the TLS connection so the POP3 client sees a normal session start.
func upgradeSTLS(conn net.Conn, host string) (net.Conn, error) {
	r := bufio.NewReader(conn)

	greeting, err := r.ReadString('\n')
	if err != nil {
		return nil, fmt.Errorf("failed to read greeting: %w", err)
	}
	if !strings.HasPrefix(greeting, "+OK") {
		return nil, fmt.Errorf("unexpected greeting: %s", strings.TrimSpace(greeting))
	}

	if _, err := conn.Write([]byte("STLS\r\n")); err != nil {
		return nil, fmt.Errorf("failed to send STLS: %w", err)
	}
	resp, err := r.ReadString('\n')
	if err != nil {
		return nil, fmt.Errorf("failed to read STLS response: %w", err)
	}
	if !strings.HasPrefix(resp, "+OK") {
		return nil, fmt.Errorf("server refused STLS: %s", strings.TrimSpace(resp))
	}
	if r.Buffered() > 0 {
		return nil, fmt.Errorf("unexpected data before TLS handshake")
	}

	tlsConn := tls.Client(conn, &tls.Config{ServerName: host})
	if err := tlsConn.Handshake(); err != nil {
		return nil, fmt.Errorf("TLS handshake failed: %w", err)
	}
	return &replayConn{Conn: tlsConn, pending: []byte(greeting)}, nil
}

// replayConn serves pending bytes before reading from the wrapped connection
type replayConn struct {
	net.Conn
	pending []byte
}

func (c *replayConn) Read(p []byte) (int, error) {
	if len(c.pending) > 0 {
		n := copy(p, c.pending)
		c.pending = c.pending[n:]
		return n, nil
	}
	return c.Conn.Read(p)
}

// deadlineConn refreshes the deadline before every read and write
type deadlineConn struct {
	net.Conn
	timeout time.Duration
}

func (c *deadlineConn) Read(p []byte) (int, error) {
	if c.timeout > 0 {
		_ = c.Conn.SetReadDeadline(time.Now().Add(c.timeout))
	}
	return c.Conn.Read(p)
}

func (c *deadlineConn) Write(p []byte) (int, error) {
	if c.timeout > 0 {
		_ = c.Conn.SetWriteDeadline(time.Now().Add(c.timeout))
	}
	return c.Conn.Write(p)
}
