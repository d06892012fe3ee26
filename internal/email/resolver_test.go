package email

import (
	"errors"
	"testing"

	"github.com/mixelka/mailnotify/pkg/models"
)

func TestResolveHost(t *testing.T) {
	tests := []struct {
		protocol models.Protocol
		address  string
		want     string
	}{
		{models.ProtocolIMAP, "someone@Gmail.com", "imap.gmail.com"},
		{models.ProtocolPOP3, "someone@gmail.com", "pop.gmail.com"},
		{models.ProtocolIMAP, "someone@corp.example", "imap.corp.example"},
		{models.ProtocolPOP3, "someone@corp.example", "pop.corp.example"},
	}
	for _, tt := range tests {
		got, err := ResolveHost(tt.protocol, tt.address)
		if err != nil || got != tt.want {
			t.Errorf("ResolveHost(%s, %s) = %q, %v; want %q", tt.protocol, tt.address, got, err, tt.want)
		}
	}

	if _, err := ResolveHost(models.ProtocolIMAP, "not-an-address"); err == nil {
		t.Error("expected error for plain username")
	}
	if _, err := ResolveHost(models.Protocol("smtp"), "a@b.c"); !errors.Is(err, ErrUnsupportedProtocol) {
		t.Errorf("err = %v", err)
	}
}
