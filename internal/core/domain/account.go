package domain

import "time"

// Account mirrors the persisted representation in the accounts table.
type Account struct {
	ID           string
	Name         string
	Email        string
	PasswordHash string
	Activated    bool
	CreatedAt    time.Time
}

// SignUpRequest carries the data submitted by a prospective account holder.
// It is transient input and is never persisted as such.
type SignUpRequest struct {
	ID                   string
	Name                 string
	Email                string
	Password             string
	ConfirmPassword      string
	CaptchaKey           string
	CaptchaValue         string
	ActivationServiceURL string
}

// ActivationToken maps a hashed activation code to the account it activates.
// The raw code travels only inside the activation email.
type ActivationToken struct {
	ID        string
	AccountID string
	TokenHash string
	CreatedAt time.Time
	ExpiresAt time.Time
	UsedAt    *time.Time
}

// Consumed reports whether the token has already been redeemed.
func (t ActivationToken) Consumed() bool {
	return t.UsedAt != nil
}

// Expired reports whether the token is past its expiry at the given instant.
func (t ActivationToken) Expired(now time.Time) bool {
	return now.After(t.ExpiresAt)
}
