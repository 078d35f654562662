package gateway

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"go.uber.org/zap"
)

// midtransAdapter drives the hosted-checkout (Snap) flow: the order is
// registered up front and the user is redirected to the returned URL.
type midtransAdapter struct {
	baseURL   string
	serverKey string
	window    time.Duration
	client    *http.Client
	log       *zap.Logger
}

func NewMidtransAdapter(baseURL, serverKey string, window time.Duration, client *http.Client, log *zap.Logger) Adapter {
	return &midtransAdapter{
		baseURL:   baseURL,
		serverKey: serverKey,
		window:    window,
		client:    client,
		log:       log.With(zap.String("gateway", Midtrans)),
	}
}

func (a *midtransAdapter) Name() string { return Midtrans }

type midtransSnapRequest struct {
	TransactionDetails struct {
		OrderID     string `json:"order_id"`
		GrossAmount int64  `json:"gross_amount"`
	} `json:"transaction_details"`
	Expiry struct {
		Unit     string `json:"unit"`
		Duration int    `json:"duration"`
	} `json:"expiry"`
}

type midtransSnapResponse struct {
	Token       string `json:"token"`
	RedirectURL string `json:"redirect_url"`
}

func (a *midtransAdapter) CreateAttempt(ctx context.Context, orderRef string, amount int64) (*CreateResult, error) {
	if amount <= 0 {
		return nil, fmt.Errorf("amount %d: %w", amount, ErrInvalidAmount)
	}

	var payload midtransSnapRequest
	payload.TransactionDetails.OrderID = orderRef
	payload.TransactionDetails.GrossAmount = amount
	payload.Expiry.Unit = "second"
	payload.Expiry.Duration = int(a.window.Seconds())

	body, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("encode snap request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, a.baseURL+"/snap/v1/transactions", bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("build snap request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.SetBasicAuth(a.serverKey, "")

	resp, err := a.client.Do(req)
	if err != nil {
		a.log.Warn("Snap transaction call failed", zap.Error(err), zap.String("order_ref", orderRef))
		return nil, fmt.Errorf("create order %s: %w", orderRef, ErrUnavailable)
	}
	defer resp.Body.Close()

	raw, _ := io.ReadAll(resp.Body)

	switch {
	case resp.StatusCode >= 500:
		a.log.Warn("Snap transaction rejected by server",
			zap.Int("status", resp.StatusCode),
			zap.String("order_ref", orderRef),
		)
		return nil, fmt.Errorf("create order %s (HTTP %d): %w", orderRef, resp.StatusCode, ErrUnavailable)
	case resp.StatusCode >= 400:
		return nil, fmt.Errorf("create order %s (HTTP %d): %w", orderRef, resp.StatusCode, ErrInvalidAmount)
	}

	var snap midtransSnapResponse
	if err := json.Unmarshal(raw, &snap); err != nil {
		return nil, fmt.Errorf("decode snap response for %s: %w", orderRef, err)
	}

	// The validity window is applied uniformly regardless of what the
	// provider echoes back.
	return &CreateResult{
		CheckoutRef: snap.RedirectURL,
		ExpiresAt:   time.Now().Add(a.window),
	}, nil
}

type midtransStatusResponse struct {
	TransactionStatus string `json:"transaction_status"`
	StatusCode        string `json:"status_code"`
}

func (a *midtransAdapter) QueryStatus(ctx context.Context, orderRef string) (*StatusResult, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, a.baseURL+"/v2/"+orderRef+"/status", nil)
	if err != nil {
		return nil, fmt.Errorf("build status request: %w", err)
	}
	req.SetBasicAuth(a.serverKey, "")

	resp, err := a.client.Do(req)
	if err != nil {
		a.log.Warn("Status query call failed", zap.Error(err), zap.String("order_ref", orderRef))
		return nil, fmt.Errorf("query order %s: %w", orderRef, ErrUnavailable)
	}
	defer resp.Body.Close()

	raw, _ := io.ReadAll(resp.Body)

	switch {
	case resp.StatusCode >= 500:
		return nil, fmt.Errorf("query order %s (HTTP %d): %w", orderRef, resp.StatusCode, ErrUnavailable)
	case resp.StatusCode == http.StatusNotFound:
		return nil, fmt.Errorf("query order %s: %w", orderRef, ErrNotFound)
	case resp.StatusCode >= 400:
		return nil, fmt.Errorf("query order %s: unexpected HTTP %d", orderRef, resp.StatusCode)
	}

	var status midtransStatusResponse
	if err := json.Unmarshal(raw, &status); err != nil {
		return nil, fmt.Errorf("decode status response for %s: %w", orderRef, err)
	}

	return &StatusResult{Status: status.TransactionStatus, RawPayload: raw}, nil
}
