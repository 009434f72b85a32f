package port

import "context"

// Mailer delivers a single outbound message per call. No retries are
// performed at this boundary.
type Mailer interface {
	Send(ctx context.Context, to, subject, htmlBody string) error
}
