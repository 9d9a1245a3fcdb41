package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"go.opentelemetry.io/otel/codes"

	cfotel "github.com/toastx/shredr-fun/internal/adapter/otel"
	"github.com/toastx/shredr-fun/internal/domain"
	"github.com/toastx/shredr-fun/internal/domain/webhook"
	"github.com/toastx/shredr-fun/internal/port/webhookapi"
)

// ErrUpstreamNotConfigured is returned when no webhook API client is set.
var ErrUpstreamNotConfigured = errors.New("webhook API is not configured")

// WebhookService manages the upstream webhooks that deliver notifications
// to this service.
type WebhookService struct {
	api        webhookapi.API
	authHeader string
}

// NewWebhookService creates a WebhookService. authHeader, when set, is
// registered on created webhooks so deliveries carry it back.
func NewWebhookService(api webhookapi.API, authHeader string) *WebhookService {
	return &WebhookService{api: api, authHeader: authHeader}
}

// Create registers a new upstream webhook.
func (s *WebhookService) Create(ctx context.Context, req webhook.CreateRequest) (*webhook.Webhook, error) {
	if err := req.Validate(); err != nil {
		return nil, err
	}
	if s.api == nil {
		return nil, ErrUpstreamNotConfigured
	}

	ctx, span := cfotel.StartUpstreamSpan(ctx, "create")
	defer span.End()

	w := webhook.FromCreateRequest(req)
	w.AuthHeader = s.authHeader
	created, err := s.api.CreateWebhook(ctx, &w)
	if err != nil {
		span.SetStatus(codes.Error, err.Error())
		return nil, err
	}
	slog.InfoContext(ctx, "webhook created", "webhook_id", created.WebhookID, "type", created.WebhookType)
	return created, nil
}

// Get fetches an upstream webhook by ID.
func (s *WebhookService) Get(ctx context.Context, id string) (*webhook.Webhook, error) {
	if id == "" {
		return nil, fmt.Errorf("%w: webhook_id is required", domain.ErrValidation)
	}
	if s.api == nil {
		return nil, ErrUpstreamNotConfigured
	}

	ctx, span := cfotel.StartUpstreamSpan(ctx, "get")
	defer span.End()

	w, err := s.api.GetWebhook(ctx, id)
	if err != nil {
		span.SetStatus(codes.Error, err.Error())
		return nil, err
	}
	return w, nil
}

// AddAddresses appends account addresses to an existing webhook.
func (s *WebhookService) AddAddresses(ctx context.Context, req webhook.AddressRequest) (*webhook.Webhook, error) {
	return s.editAddresses(ctx, "add_addresses", req, (*webhook.Webhook).AppendAddresses)
}

// RemoveAddresses drops account addresses from an existing webhook.
func (s *WebhookService) RemoveAddresses(ctx context.Context, req webhook.AddressRequest) (*webhook.Webhook, error) {
	return s.editAddresses(ctx, "remove_addresses", req, (*webhook.Webhook).RemoveAddresses)
}

// editAddresses fetches the webhook, applies edit and writes it back.
func (s *WebhookService) editAddresses(ctx context.Context, op string, req webhook.AddressRequest, edit func(*webhook.Webhook, []string)) (*webhook.Webhook, error) {
	if err := req.Validate(); err != nil {
		return nil, err
	}
	if s.api == nil {
		return nil, ErrUpstreamNotConfigured
	}

	ctx, span := cfotel.StartUpstreamSpan(ctx, op)
	defer span.End()

	w, err := s.api.GetWebhook(ctx, req.WebhookID)
	if err != nil {
		span.SetStatus(codes.Error, err.Error())
		return nil, err
	}
	before := len(w.AccountAddresses)
	edit(w, req.Addresses)

	updated, err := s.api.EditWebhook(ctx, w)
	if err != nil {
		span.SetStatus(codes.Error, err.Error())
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	slog.InfoContext(ctx, "webhook addresses updated", "webhook_id", req.WebhookID, "op", op,
		"before", before, "after", len(updated.AccountAddresses))
	return updated, nil
}
