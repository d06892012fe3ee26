package models

import (
	"errors"
	"fmt"
	"time"
)

// ErrInvalidProtocol is returned for an unknown protocol tag
var ErrInvalidProtocol = errors.New("invalid protocol")

// ErrInvalidSecurityMode is returned for an unknown security mode tag
var ErrInvalidSecurityMode = errors.New("invalid security mode")

// Protocol mail retrieval protocol
type Protocol string

const (
	ProtocolIMAP Protocol = "imap"
	ProtocolPOP3 Protocol = "pop3"
)

// ParseProtocol validates a protocol tag
func ParseProtocol(s string) (Protocol, error) {
	switch p := Protocol(s); p {
	case ProtocolIMAP, ProtocolPOP3:
		return p, nil
	}
	return "", fmt.Errorf("%w: %q", ErrInvalidProtocol, s)
}

// SecurityMode transport security of a mailbox connection
type SecurityMode string

const (
	SecurityNone     SecurityMode = "none"
	SecurityStartTLS SecurityMode = "starttls"
	SecuritySSL      SecurityMode = "ssl"
)

// ParseSecurityMode validates a security mode tag
func ParseSecurityMode(s string) (SecurityMode, error) {
	switch m := SecurityMode(s); m {
	case SecurityNone, SecurityStartTLS, SecuritySSL:
		return m, nil
	}
	return "", fmt.Errorf("%w: %q", ErrInvalidSecurityMode, s)
}

// Account represents a polled mailbox
type Account struct {
	ID                  int64        `db:"id"`
	Name                string       `db:"name"`
	Host                string       `db:"host"`
	Port                int          `db:"port"`
	Username            string       `db:"username"`
	Password            string       `db:"password"` // Plain or "enc:" prefixed
	Security            SecurityMode `db:"security"`
	Mailbox             string       `db:"mailbox_name"` // IMAP only
	Protocol            Protocol     `db:"protocol"`
	Enabled             bool         `db:"enabled"`
	LastProcessedDate   *time.Time   `db:"last_processed_date"`   // nil = never initialized
	ProcessedMessageIDs string       `db:"processed_message_ids"` // JSON array, oldest first
	LastUID             uint32       `db:"last_uid"`              // Deprecated, never read for selection
	CreatedAt           time.Time    `db:"created_at"`
	UpdatedAt           time.Time    `db:"updated_at"`
}

// MailboxName returns the IMAP mailbox, defaulting to INBOX
func (a *Account) MailboxName() string {
	if a.Mailbox == "" {
		return "INBOX"
	}
	return a.Mailbox
}

// Address returns host:port, resolving a zero port to the protocol default
func (a *Account) Address() string {
	return fmt.Sprintf("%s:%d", a.Host, a.ResolvedPort())
}

// ResolvedPort returns the configured port or the protocol default
func (a *Account) ResolvedPort() int {
	if a.Port != 0 {
		return a.Port
	}
	return DefaultPort(a.Protocol, a.Security)
}

// DefaultPort returns the well-known port for a protocol and security mode
func DefaultPort(p Protocol, mode SecurityMode) int {
	switch p {
	case ProtocolPOP3:
		if mode == SecuritySSL {
			return 995
		}
		return 110
	default:
		if mode == SecuritySSL {
			return 993
		}
		return 143
	}
}
