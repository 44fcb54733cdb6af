package models

import (
	"time"
)

// EventLog represents an entry in the auth audit trail
type EventLog struct {
	ID          int64         `json:"id"`
	Type        EEventLogType `json:"type"`
	Description string        `json:"description"`
	UserID      *string       `json:"userId,omitempty"`
	Email       *string       `json:"email,omitempty"`
	CreatedAt   *time.Time    `json:"createdAt,omitempty"`
}
