// Package mailer delivers transactional email: the Dispatcher contract, an
// Amazon SES v2 implementation, a log-only implementation for development,
// and the HTML templates used by the session service.
package mailer

import (
	"context"
	"errors"
)

// ErrEmptyRecipient is returned when Send is called without a recipient.
var ErrEmptyRecipient = errors.New("mailer: empty recipient")

// Dispatcher sends a single HTML message.
type Dispatcher interface {
	Send(ctx context.Context, to, subject, html string) error
}
