package authcore

import (
	"context"
	"log/slog"

	"github.com/panyam/authcore/providers"
)

// ConsoleEmailSender is a development sender that logs sign-in links
// instead of mailing them.
type ConsoleEmailSender struct {
	Logger *slog.Logger
}

func (c *ConsoleEmailSender) SendVerificationRequest(ctx context.Context, req providers.VerificationRequest) error {
	logger := c.Logger
	if logger == nil {
		logger = slog.Default()
	}
	logger.InfoContext(ctx, "=== EMAIL: Sign in ===",
		"to", req.Identifier,
		"from", req.Provider.From,
		"subject", "Sign in to your account",
		"link", req.URL,
		"expires", req.Expires,
	)
	return nil
}
