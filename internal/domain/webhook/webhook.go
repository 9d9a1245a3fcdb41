// Package webhook defines the Helius webhook management types: the requests
// this service accepts and the objects exchanged with the Helius API.
package webhook

import (
	"fmt"
	"net/url"
	"slices"

	"github.com/toastx/shredr-fun/internal/domain"
)

// Webhook types understood by Helius.
const (
	TypeEnhanced       = "enhanced"
	TypeEnhancedDevnet = "enhancedDevnet"
	TypeRaw            = "raw"
	TypeRawDevnet      = "rawDevnet"
	TypeDiscord        = "discord"
	TypeDiscordDevnet  = "discordDevnet"
)

// Transaction status filters.
const (
	StatusAll     = "all"
	StatusSuccess = "success"
	StatusFailed  = "failed"
)

var (
	validTypes    = []string{TypeEnhanced, TypeEnhancedDevnet, TypeRaw, TypeRawDevnet, TypeDiscord, TypeDiscordDevnet}
	validStatuses = []string{StatusAll, StatusSuccess, StatusFailed}
)

// CreateRequest is the body of POST /webhook/create.
type CreateRequest struct {
	WebhookURL       string   `json:"webhook_url"`
	TransactionTypes []string `json:"transaction_types"`
	AccountAddresses []string `json:"account_addresses"`
	WebhookType      string   `json:"webhook_type"`
	Encoding         string   `json:"encoding"`
	TxnStatus        string   `json:"txn_status"`
}

// Validate checks the request before it is sent upstream.
func (r CreateRequest) Validate() error {
	u, err := url.Parse(r.WebhookURL)
	if r.WebhookURL == "" || err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		return fmt.Errorf("%w: webhook_url must be an absolute http(s) URL", domain.ErrValidation)
	}
	if len(r.TransactionTypes) == 0 {
		return fmt.Errorf("%w: transaction_types is required", domain.ErrValidation)
	}
	if !slices.Contains(validTypes, r.WebhookType) {
		return fmt.Errorf("%w: unknown webhook_type %q", domain.ErrValidation, r.WebhookType)
	}
	if r.TxnStatus != "" && !slices.Contains(validStatuses, r.TxnStatus) {
		return fmt.Errorf("%w: unknown txn_status %q", domain.ErrValidation, r.TxnStatus)
	}
	return nil
}

// AddressRequest is the body of POST and DELETE /webhook/address.
type AddressRequest struct {
	WebhookID string   `json:"webhook_id"`
	Addresses []string `json:"addresses"`
}

// Validate checks that a webhook and at least one address are named.
func (r AddressRequest) Validate() error {
	if r.WebhookID == "" {
		return fmt.Errorf("%w: webhook_id is required", domain.ErrValidation)
	}
	if len(r.Addresses) == 0 {
		return fmt.Errorf("%w: addresses is required", domain.ErrValidation)
	}
	return nil
}

// Webhook is a webhook as returned and accepted by the Helius API.
type Webhook struct {
	WebhookID        string   `json:"webhookID,omitempty"`
	Wallet           string   `json:"wallet,omitempty"`
	WebhookURL       string   `json:"webhookURL"`
	TransactionTypes []string `json:"transactionTypes"`
	AccountAddresses []string `json:"accountAddresses"`
	WebhookType      string   `json:"webhookType"`
	AuthHeader       string   `json:"authHeader,omitempty"`
	Encoding         string   `json:"encoding,omitempty"`
	TxnStatus        string   `json:"txnStatus,omitempty"`
}

// FromCreateRequest maps an inbound request onto the upstream shape.
func FromCreateRequest(r CreateRequest) Webhook {
	return Webhook{
		WebhookURL:       r.WebhookURL,
		TransactionTypes: r.TransactionTypes,
		AccountAddresses: r.AccountAddresses,
		WebhookType:      r.WebhookType,
		Encoding:         r.Encoding,
		TxnStatus:        r.TxnStatus,
	}
}

// AppendAddresses adds addrs not already present, keeping order.
func (w *Webhook) AppendAddresses(addrs []string) {
	for _, a := range addrs {
		if !slices.Contains(w.AccountAddresses, a) {
			w.AccountAddresses = append(w.AccountAddresses, a)
		}
	}
}

// RemoveAddresses drops every address in addrs.
func (w *Webhook) RemoveAddresses(addrs []string) {
	w.AccountAddresses = slices.DeleteFunc(w.AccountAddresses, func(a string) bool {
		return slices.Contains(addrs, a)
	})
}

// Response is the envelope returned by the webhook endpoints.
type Response struct {
	Message string `json:"message"`
}
