package models

import "time"

// FailureLog records a failed delivery or protocol error
type FailureLog struct {
	ID           int64     `db:"id" json:"id"`
	AccountID    *int64    `db:"account_id" json:"account_id,omitempty"`
	RuleID       *int64    `db:"rule_id" json:"rule_id,omitempty"`
	MessageID    *string   `db:"message_id" json:"message_id,omitempty"`
	FromAddress  *string   `db:"from_address" json:"from_address,omitempty"`
	Subject      *string   `db:"subject" json:"subject,omitempty"`
	ErrorMessage string    `db:"error_message" json:"error_message"`
	CreatedAt    time.Time `db:"created_at" json:"created_at"`
}
