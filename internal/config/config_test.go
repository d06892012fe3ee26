package config

import (
	"testing"
	"time"
)

func TestLoadDefaults(t *testing.T) {
	chdir(t, t.TempDir())

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.DatabasePath != "./data/mailnotify.db" || cfg.UsePostgres() {
		t.Errorf("database = %q / %q", cfg.DatabasePath, cfg.DatabaseURL)
	}
	if cfg.PollIntervalSeconds() != 60 || cfg.MailTimeout != 30*time.Second {
		t.Errorf("timings = %s / %s", cfg.PollInterval, cfg.MailTimeout)
	}
	if cfg.EncryptionEnabled() {
		t.Error("encryption should be off by default")
	}
}

func TestLoadValidation(t *testing.T) {
	tests := []struct {
		name string
		env  map[string]string
		ok   bool
	}{
		{"postgres dsn", map[string]string{"DATABASE_URL": "postgres://u:p@localhost/db"}, true},
		{"non postgres dsn", map[string]string{"DATABASE_URL": "mysql://u@localhost/db"}, false},
		{"short key", map[string]string{"ENCRYPTION_KEY": "short"}, false},
		{"valid key", map[string]string{"ENCRYPTION_KEY": "0123456789abcdef0123456789abcdef"}, true},
		{"zero timeout", map[string]string{"MAIL_TIMEOUT": "0s"}, false},
		{"bad duration", map[string]string{"POLL_INTERVAL": "soon"}, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			chdir(t, t.TempDir())
			for k, v := range tt.env {
				t.Setenv(k, v)
			}
			_, err := Load()
			if (err == nil) != tt.ok {
				t.Fatalf("Load err = %v, want ok=%v", err, tt.ok)
			}
		})
	}
}
