package config

import (
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/mixelka/mailnotify/pkg/models"
)

const sampleSeed = `
webhooks:
  - name: ops
    url: https://discord.example/api/webhooks/1/abc
formats:
  - name: short
    template: "{account_name}: {subject}"
accounts:
  - name: work
    host: imap.example.com
    username: me@example.com
    password: secret
  - name: legacy
    protocol: pop3
    security: starttls
    username: me@gmail.com
    password: secret
    enabled: false
rules:
  - name: alerts
    position: 1
    account: work
    webhook: ops
    format: short
    conditions:
      - field: subject
        match: prefix
        pattern: "[ALERT]"
      - field: from
        match: suffix
        pattern: "@example.com"
`

func TestParseSeedAppliesDefaults(t *testing.T) {
	seed, err := ParseSeed([]byte(sampleSeed))
	if err != nil {
		t.Fatalf("ParseSeed: %v", err)
	}

	work := seed.Accounts[0]
	if work.Protocol != "imap" || work.Security != "ssl" || !work.IsEnabled() {
		t.Errorf("work defaults = %+v", work)
	}

	legacy := seed.Accounts[1]
	if legacy.Host != "pop.gmail.com" {
		t.Errorf("legacy host = %q", legacy.Host)
	}
	if legacy.IsEnabled() {
		t.Error("legacy should be disabled")
	}

	rule := seed.Rules[0]
	if !rule.IsEnabled() || len(rule.Conditions) != 2 || rule.Conditions[0].Pattern != "[ALERT]" {
		t.Errorf("rule = %+v", rule)
	}
}

func TestParseSeedRejectsInvalidDocuments(t *testing.T) {
	tests := []struct {
		name    string
		doc     string
		wantErr error
		substr  string
	}{
		{
			name:    "bad protocol",
			doc:     "accounts:\n  - {name: a, host: h, username: u, protocol: smtp}\n",
			wantErr: models.ErrInvalidProtocol,
		},
		{
			name:    "bad security",
			doc:     "accounts:\n  - {name: a, host: h, username: u, security: tls}\n",
			wantErr: models.ErrInvalidSecurityMode,
		},
		{
			name:    "bad field",
			doc:     "rules:\n  - name: r\n    conditions:\n      - {field: cc, match: prefix, pattern: x}\n",
			wantErr: models.ErrInvalidField,
		},
		{
			name:    "bad match type",
			doc:     "rules:\n  - name: r\n    conditions:\n      - {field: from, match: glob, pattern: x}\n",
			wantErr: models.ErrInvalidMatchType,
		},
		{
			name:   "unknown webhook reference",
			doc:    "rules:\n  - {name: r, webhook: missing}\n",
			substr: "unknown webhook",
		},
		{
			name:   "host cannot be derived",
			doc:    "accounts:\n  - {name: a, username: plainuser}\n",
			substr: "host is required",
		},
		{
			name:   "malformed yaml",
			doc:    "accounts: [",
			substr: "parse seed",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := ParseSeed([]byte(tt.doc))
			if err == nil {
				t.Fatal("expected error")
			}
			if tt.wantErr != nil && !errors.Is(err, tt.wantErr) {
				t.Errorf("err = %v, want %v", err, tt.wantErr)
			}
			if tt.substr != "" && !strings.Contains(err.Error(), tt.substr) {
				t.Errorf("err = %v, want substring %q", err, tt.substr)
			}
		})
	}
}

func TestLoadSeedFromFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "seed.yaml")
	if err := os.WriteFile(path, []byte(sampleSeed), 0o600); err != nil {
		t.Fatal(err)
	}
	seed, err := LoadSeed(path)
	if err != nil {
		t.Fatalf("LoadSeed: %v", err)
	}
	if len(seed.Webhooks) != 1 || len(seed.Formats) != 1 || len(seed.Accounts) != 2 || len(seed.Rules) != 1 {
		t.Fatalf("seed = %+v", seed)
	}

	if _, err := LoadSeed(filepath.Join(t.TempDir(), "missing.yaml")); err == nil {
		t.Fatal("expected error for missing file")
	}
}
