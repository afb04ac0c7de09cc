package mailer

import (
	"context"

	"github.com/sirupsen/logrus"
)

// Message is one outbound email.
type Message struct {
	To      string
	Subject string
	Body    string
}

// Mailer sends guest-facing emails. Sends are best effort; callers must
// not fail their operation when a send fails.
type Mailer interface {
	Send(ctx context.Context, msg Message) error
}

// LogMailer writes outbound mail to the application log instead of
// delivering it. Used in development and in tests.
type LogMailer struct {
	logger *logrus.Logger
	from   string
}

// NewLogMailer creates a LogMailer.
func NewLogMailer(logger *logrus.Logger, from string) *LogMailer {
	return &LogMailer{logger: logger, from: from}
}

// Send logs the message and reports success.
func (m *LogMailer) Send(_ context.Context, msg Message) error {
	m.logger.WithFields(logrus.Fields{
		"from":    m.from,
		"to":      msg.To,
		"subject": msg.Subject,
	}).Info("Outbound email (log delivery)")
	return nil
}
