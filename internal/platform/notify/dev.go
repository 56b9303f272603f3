package notify

import (
	"context"

	"github.com/smartdoor/doorman/pkg/logger"
)

// Dev writes notifications to the structured logger instead of sending
// them. Default in development so OTPs stay visible in the logs.
type Dev struct{}

func NewDev() *Dev {
	return &Dev{}
}

func (Dev) Dispatch(ctx context.Context, n Notification) error {
	logger.InfoContext(ctx, "[DEV] notification",
		"kind", n.Kind,
		"recipient", n.Recipient,
		"subject", n.Subject,
		"body", n.Body,
	)
	return nil
}
