package models

import "time"

// Message represents the headers of a fetched email
type Message struct {
	NativeID  string    // IMAP UID or POP3 UIDL
	From      string    // Decoded From header
	To        string    // Decoded To header
	Subject   string    // Decoded Subject header
	Date      string    // Raw Date header
	MessageID string    // Stable identifier, may be empty
	Timestamp time.Time // Server receipt time (IMAP) or Date header (POP3)
}
