package email

import (
	"fmt"
	"strings"

	"github.com/mixelka/mailnotify/pkg/models"
)

// Mail hosts of popular providers, by protocol
var knownHosts = map[models.Protocol]map[string]string{
	models.ProtocolIMAP: {
		"gmail.com":      "imap.gmail.com",
		"googlemail.com": "imap.gmail.com",
		"outlook.com":    "outlook.office365.com",
		"hotmail.com":    "outlook.office365.com",
		"live.com":       "outlook.office365.com",
		"yahoo.com":      "imap.mail.yahoo.com",
		"yandex.ru":      "imap.yandex.ru",
		"yandex.com":     "imap.yandex.com",
		"mail.ru":        "imap.mail.ru",
		"icloud.com":     "imap.mail.me.com",
		"me.com":         "imap.mail.me.com",
		"aol.com":        "imap.aol.com",
		"zoho.com":       "imap.zoho.com",
		"fastmail.com":   "imap.fastmail.com",
		"gmx.com":        "imap.gmx.com",
		"gmx.de":         "imap.gmx.net",
		"web.de":         "imap.web.de",
	},
	models.ProtocolPOP3: {
		"gmail.com":      "pop.gmail.com",
		"googlemail.com": "pop.gmail.com",
		"outlook.com":    "outlook.office365.com",
		"hotmail.com":    "outlook.office365.com",
		"live.com":       "outlook.office365.com",
		"yahoo.com":      "pop.mail.yahoo.com",
		"yandex.ru":      "pop.yandex.ru",
		"yandex.com":     "pop.yandex.com",
		"mail.ru":        "pop.mail.ru",
		"aol.com":        "pop.aol.com",
		"zoho.com":       "pop.zoho.com",
		"fastmail.com":   "pop.fastmail.com",
		"gmx.com":        "pop.gmx.com",
		"gmx.de":         "pop.gmx.net",
		"web.de":         "pop3.web.de",
	},
}

// ResolveHost guesses the mail host for a login address when none is configured.
// Known providers are looked up first, otherwise "imap.<domain>" or "pop.<domain>".
func ResolveHost(protocol models.Protocol, address string) (string, error) {
	domain := GetDomainFromEmail(address)
	if domain == "" {
		return "", fmt.Errorf("cannot derive host from %q: not an email address", address)
	}

	if host, ok := knownHosts[protocol][domain]; ok {
		return host, nil
	}

	switch protocol {
	case models.ProtocolIMAP:
		return "imap." + domain, nil
	case models.ProtocolPOP3:
		return "pop." + domain, nil
	}
	return "", fmt.Errorf("%w: %q", ErrUnsupportedProtocol, protocol)
}

// GetDomainFromEmail extracts domain from email address
func GetDomainFromEmail(email string) string {
	parts := strings.Split(email, "@")
	if len(parts) != 2 || parts[1] == "" {
		return ""
	}
	return strings.ToLower(parts[1])
}
