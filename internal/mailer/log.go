package mailer

import (
	"context"

	"github.com/dmitrijs2005/authkeeper/internal/logging"
)

// LogDispatcher writes messages to the logger instead of delivering them.
// The body is logged at debug level only.
type LogDispatcher struct {
	logger logging.Logger
}

func NewLogDispatcher(logger logging.Logger) *LogDispatcher {
	return &LogDispatcher{logger: logger.With("module", "mailer")}
}

func (d *LogDispatcher) Send(ctx context.Context, to, subject, html string) error {
	if to == "" {
		return ErrEmptyRecipient
	}
	d.logger.Info(ctx, "email dispatched", "to", to, "subject", subject, "bytes", len(html))
	d.logger.Debug(ctx, "email body", "to", to, "html", html)
	return nil
}
