package models

import "time"

// Violation is one entry of the moderation ledger
type Violation struct {
	UserID           string
	Username         string
	Timestamp        time.Time
	MessageContent   string
	MessageDeleted   bool
	NotificationSent bool
}
