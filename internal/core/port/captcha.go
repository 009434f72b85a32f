package port

import "context"

// CaptchaService issues and verifies visual challenges.
type CaptchaService interface {
	// Generate produces a fresh opaque key and a rendered challenge image.
	Generate(ctx context.Context) (key string, image []byte, err error)
	// Verify reports whether value matches the answer associated with key.
	// An unknown or expired key verifies false rather than failing.
	Verify(ctx context.Context, key, value string) bool
}
