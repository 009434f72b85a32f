package domain

import "time"

// AccountCreatedEvent is emitted after a sign-up persists a pending account.
type AccountCreatedEvent struct {
	EventID   string
	AccountID string
	Name      string
	Email     string
	CreatedAt time.Time
	Metadata  map[string]any
}

// AccountActivatedEvent is emitted after an activation code is redeemed.
type AccountActivatedEvent struct {
	EventID     string
	AccountID   string
	ActivatedAt time.Time
	Metadata    map[string]any
}

// AccountDeletedEvent is emitted after an administrative deletion.
type AccountDeletedEvent struct {
	EventID   string
	AccountID string
	DeletedAt time.Time
	Metadata  map[string]any
}
