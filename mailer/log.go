package mailer

import (
	"context"
	"log/slog"

	goAccount "github.com/MrEthical07/goAccount"
)

// LogDispatcher writes verification codes to a logger instead of sending
// them. It is meant for local development only.
type LogDispatcher struct {
	logger *slog.Logger
}

func NewLogDispatcher(logger *slog.Logger) *LogDispatcher {
	if logger == nil {
		logger = slog.Default()
	}
	return &LogDispatcher{logger: logger.With("component", "mailer")}
}

func (d *LogDispatcher) SendVerificationCode(ctx context.Context, msg goAccount.VerificationMessage) error {
	d.logger.InfoContext(ctx, "verification code",
		"to", msg.To,
		"name", msg.Name,
		"code", msg.Code,
		"expires_at", msg.ExpiresAt,
	)
	return nil
}

var (
	_ goAccount.EmailDispatcher = (*LogDispatcher)(nil)
	_ goAccount.EmailDispatcher = (*SMTPDispatcher)(nil)
)
