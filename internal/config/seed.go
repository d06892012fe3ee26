package config

import (
	"fmt"
	"os"

	"go.yaml.in/yaml/v4"

	"github.com/mixelka/mailnotify/internal/email"
	"github.com/mixelka/mailnotify/pkg/models"
)

// Seed is a YAML document describing accounts, rules and their targets.
type Seed struct {
	Webhooks []SeedWebhook `yaml:"webhooks"`
	Formats  []SeedFormat  `yaml:"formats"`
	Accounts []SeedAccount `yaml:"accounts"`
	Rules    []SeedRule    `yaml:"rules"`
}

// SeedWebhook describes one webhook endpoint.
type SeedWebhook struct {
	Name string `yaml:"name"`
	URL  string `yaml:"url"`
}

// SeedFormat describes one notification template.
type SeedFormat struct {
	Name     string `yaml:"name"`
	Template string `yaml:"template"`
}

// SeedAccount describes one monitored mailbox.
type SeedAccount struct {
	Name     string `yaml:"name"`
	Protocol string `yaml:"protocol"` // "imap" or "pop3"
	Host     string `yaml:"host"`     // Derived from username when empty
	Port     int    `yaml:"port"`
	Username string `yaml:"username"`
	Password string `yaml:"password"`
	Security string `yaml:"security"` // "none", "starttls" or "ssl"
	Mailbox  string `yaml:"mailbox"`
	Enabled  *bool  `yaml:"enabled"`
}

// SeedRule describes one rule; Account, Webhook and Format refer to names.
type SeedRule struct {
	Name       string          `yaml:"name"`
	Position   int             `yaml:"position"`
	Enabled    *bool           `yaml:"enabled"`
	Account    string          `yaml:"account"`
	Webhook    string          `yaml:"webhook"`
	Format     string          `yaml:"format"`
	Conditions []SeedCondition `yaml:"conditions"`
}

// SeedCondition describes one rule condition.
type SeedCondition struct {
	Field   string `yaml:"field"`
	Match   string `yaml:"match"`
	Pattern string `yaml:"pattern"`
}

// IsEnabled returns the enabled flag, defaulting to true.
func (a *SeedAccount) IsEnabled() bool {
	return a.Enabled == nil || *a.Enabled
}

// IsEnabled returns the enabled flag, defaulting to true.
func (r *SeedRule) IsEnabled() bool {
	return r.Enabled == nil || *r.Enabled
}

// LoadSeed reads and validates a YAML seed file.
func LoadSeed(path string) (*Seed, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read seed file: %w", err)
	}
	return ParseSeed(data)
}

// ParseSeed parses and validates a YAML seed document.
func ParseSeed(data []byte) (*Seed, error) {
	seed := &Seed{}
	if err := yaml.Unmarshal(data, seed); err != nil {
		return nil, fmt.Errorf("parse seed: %w", err)
	}
	if err := seed.validate(); err != nil {
		return nil, fmt.Errorf("validate seed: %w", err)
	}
	return seed, nil
}

func (s *Seed) validate() error {
	webhooks := make(map[string]bool, len(s.Webhooks))
	for i, w := range s.Webhooks {
		if w.Name == "" || w.URL == "" {
			return fmt.Errorf("webhook #%d: name and url are required", i)
		}
		webhooks[w.Name] = true
	}

	formats := make(map[string]bool, len(s.Formats))
	for i, f := range s.Formats {
		if f.Name == "" {
			return fmt.Errorf("format #%d: name is required", i)
		}
		formats[f.Name] = true
	}

	accounts := make(map[string]bool, len(s.Accounts))
	for i := range s.Accounts {
		a := &s.Accounts[i]
		label := a.Name
		if label == "" {
			return fmt.Errorf("account #%d: name is required", i)
		}
		if a.Protocol == "" {
			a.Protocol = string(models.ProtocolIMAP)
		}
		protocol, err := models.ParseProtocol(a.Protocol)
		if err != nil {
			return fmt.Errorf("account %s: %w", label, err)
		}
		if a.Security == "" {
			a.Security = string(models.SecuritySSL)
		}
		if _, err := models.ParseSecurityMode(a.Security); err != nil {
			return fmt.Errorf("account %s: %w", label, err)
		}
		if a.Username == "" {
			return fmt.Errorf("account %s: username is required", label)
		}
		if a.Host == "" {
			host, err := email.ResolveHost(protocol, a.Username)
			if err != nil {
				return fmt.Errorf("account %s: host is required: %w", label, err)
			}
			a.Host = host
		}
		accounts[a.Name] = true
	}

	for i, r := range s.Rules {
		label := r.Name
		if label == "" {
			return fmt.Errorf("rule #%d: name is required", i)
		}
		if r.Account != "" && !accounts[r.Account] {
			return fmt.Errorf("rule %s: unknown account %q", label, r.Account)
		}
		if r.Webhook != "" && !webhooks[r.Webhook] {
			return fmt.Errorf("rule %s: unknown webhook %q", label, r.Webhook)
		}
		if r.Format != "" && !formats[r.Format] {
			return fmt.Errorf("rule %s: unknown format %q", label, r.Format)
		}
		for j, c := range r.Conditions {
			if _, err := models.ParseField(c.Field); err != nil {
				return fmt.Errorf("rule %s condition #%d: %w", label, j, err)
			}
			if _, err := models.ParseMatchType(c.Match); err != nil {
				return fmt.Errorf("rule %s condition #%d: %w", label, j, err)
			}
		}
	}
	return nil
}
