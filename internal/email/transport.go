// Package email is the outbound transactional email transport (component B):
// a stateless client that POSTs a send-email request and classifies the
// result as success, transient failure, or permanent failure. Template
// rendering and retry policy live with callers; this package only knows how
// to put a message on the wire.
package email

import "context"

// Message is a single outbound email. HTMLBody and TextBody carry the same
// content in two renderings — callers (internal/subscription,
// internal/delivery) are responsible for keeping any embedded links
// identical between the two.
type Message struct {
	From     string
	To       string
	Subject  string
	HTMLBody string
	TextBody string
}

// Transport sends a single Message. Implementations distinguish permanent
// failures (bad recipient, malformed request) from transient ones (network
// error, provider 5xx) only insofar as the caller's logging cares; the
// delivery worker (component I) treats every error the same way: log and
// drop the task.
type Transport interface {
	Send(ctx context.Context, msg Message) error
}
