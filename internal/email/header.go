package email

import (
	"bytes"
	"fmt"
	"strings"

	"github.com/emersion/go-message"
	"github.com/emersion/go-message/mail"

	"github.com/mixelka/mailnotify/pkg/models"
)

// parseHeader parses a raw header block
func parseHeader(raw []byte) (mail.Header, error) {
	if !bytes.HasSuffix(raw, []byte("\r\n\r\n")) && !bytes.HasSuffix(raw, []byte("\n\n")) {
		raw = append(append([]byte{}, raw...), "\r\n\r\n"...)
	}
	entity, err := message.Read(bytes.NewReader(raw))
	if err != nil && !message.IsUnknownCharset(err) && !message.IsUnknownEncoding(err) {
		return mail.Header{}, fmt.Errorf("failed to parse header: %w", err)
	}
	if entity == nil {
		return mail.Header{}, fmt.Errorf("failed to parse header: empty entity")
	}
	return mail.Header{Header: entity.Header}, nil
}

// messageFromHeader fills the header derived fields of a message
func messageFromHeader(h mail.Header) *models.Message {
	return &models.Message{
		From:      firstAddress(h, "From"),
		To:        addressList(h, "To"),
		Subject:   decodedText(h, "Subject"),
		Date:      strings.TrimSpace(h.Get("Date")),
		MessageID: strings.TrimSpace(h.Get("Message-Id")),
	}
}

// firstAddress returns the bare address of the first mailbox, or the decoded text
func firstAddress(h mail.Header, key string) string {
	addrs, err := h.AddressList(key)
	if err == nil && len(addrs) > 0 {
		return addrs[0].Address
	}
	return decodedText(h, key)
}

// addressList returns the bare addresses joined by ", ", or the decoded text
func addressList(h mail.Header, key string) string {
	addrs, err := h.AddressList(key)
	if err != nil || len(addrs) == 0 {
		return decodedText(h, key)
	}
	out := make([]string, 0, len(addrs))
	for _, a := range addrs {
		out = append(out, a.Address)
	}
	return strings.Join(out, ", ")
}

func decodedText(h mail.Header, key string) string {
	text, err := h.Text(key)
	if err != nil {
		return strings.TrimSpace(h.Get(key))
	}
	return strings.TrimSpace(text)
}
