package domain

import "time"

// PollResult is the delta returned to a polling client. Clients must use
// Timestamp as the next since value.
type PollResult struct {
	Timestamp      time.Time       `json:"timestamp"`
	NewMessages    []Message       `json:"new_messages"`
	UnreadCount    int             `json:"unread_count"`
	OnlineContacts []OnlineContact `json:"online_contacts"`
}
