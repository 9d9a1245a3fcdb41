// Package webhookapi defines the port interface for the upstream webhook
// registration API.
package webhookapi

import (
	"context"

	"github.com/toastx/shredr-fun/internal/domain/webhook"
)

// API manages webhooks registered with the upstream provider.
type API interface {
	CreateWebhook(ctx context.Context, w *webhook.Webhook) (*webhook.Webhook, error)
	GetWebhook(ctx context.Context, id string) (*webhook.Webhook, error)
	EditWebhook(ctx context.Context, w *webhook.Webhook) (*webhook.Webhook, error)
}
