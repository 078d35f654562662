// Package gateway holds the uniform interface to the pluggable payment
// providers. One implementation per provider; the reconciliation logic on
// top never sees provider-specific shapes, only normalized results and the
// error sentinels below.
package gateway

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"travel-booking/pkg/utils"

	"go.uber.org/zap"
)

const (
	Midtrans = "midtrans"
	Xendit   = "xendit"
)

var (
	// ErrUnavailable covers transport failures, timeouts and 5xx answers.
	// Always safe for the caller to retry; no state was persisted.
	ErrUnavailable = errors.New("payment gateway unavailable")

	// ErrNotFound means the gateway no longer knows the reference.
	ErrNotFound = errors.New("gateway reference not found")

	// ErrInvalidAmount is a caller bug, never retryable.
	ErrInvalidAmount = errors.New("invalid payment amount")
)

// CreateResult is the normalized outcome of issuing an order at a provider.
type CreateResult struct {
	// CheckoutRef is the opaque redirect/checkout reference the end user is
	// sent to (a URL for hosted checkout, an invoice link for VA invoices).
	CheckoutRef string
	ExpiresAt   time.Time
}

// StatusResult carries the provider's current view of an order. Status is the
// provider's own code; mapping to local statuses happens in the
// reconciliation engine, not here.
type StatusResult struct {
	Status     string
	RawPayload []byte
}

// Adapter is implemented once per supported provider. Adapters do not
// de-duplicate creations; that is the reconciliation engine's job.
type Adapter interface {
	Name() string
	CreateAttempt(ctx context.Context, orderRef string, amount int64) (*CreateResult, error)
	QueryStatus(ctx context.Context, orderRef string) (*StatusResult, error)
}

// New selects the configured provider.
func New(config utils.GatewayConfig, window time.Duration, log *zap.Logger) (Adapter, error) {
	client := &http.Client{Timeout: time.Duration(config.TimeoutSeconds) * time.Second}

	switch config.Provider {
	case Midtrans:
		return NewMidtransAdapter(config.MidtransBaseURL, config.MidtransServerKey, window, client, log), nil
	case Xendit:
		return NewXenditAdapter(config.XenditBaseURL, config.XenditAPIKey, window, client, log), nil
	default:
		return nil, fmt.Errorf("unknown payment gateway %q", config.Provider)
	}
}
