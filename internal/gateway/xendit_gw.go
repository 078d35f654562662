package gateway

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"

	"go.uber.org/zap"
)

// xenditAdapter drives the virtual-account invoice flow: an invoice is
// issued and the user pays it out of band; we learn the outcome via webhook
// or by polling.
type xenditAdapter struct {
	baseURL string
	apiKey  string
	window  time.Duration
	client  *http.Client
	log     *zap.Logger
}

func NewXenditAdapter(baseURL, apiKey string, window time.Duration, client *http.Client, log *zap.Logger) Adapter {
	return &xenditAdapter{
		baseURL: baseURL,
		apiKey:  apiKey,
		window:  window,
		client:  client,
		log:     log.With(zap.String("gateway", Xendit)),
	}
}

func (a *xenditAdapter) Name() string { return Xendit }

type xenditInvoiceRequest struct {
	ExternalID      string `json:"external_id"`
	Amount          int64  `json:"amount"`
	InvoiceDuration int    `json:"invoice_duration"`
}

type xenditInvoice struct {
	ID         string `json:"id"`
	ExternalID string `json:"external_id"`
	Status     string `json:"status"`
	InvoiceURL string `json:"invoice_url"`
}

func (a *xenditAdapter) CreateAttempt(ctx context.Context, orderRef string, amount int64) (*CreateResult, error) {
	if amount <= 0 {
		return nil, fmt.Errorf("amount %d: %w", amount, ErrInvalidAmount)
	}

	body, err := json.Marshal(xenditInvoiceRequest{
		ExternalID:      orderRef,
		Amount:          amount,
		InvoiceDuration: int(a.window.Seconds()),
	})
	if err != nil {
		return nil, fmt.Errorf("encode invoice request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, a.baseURL+"/v2/invoices", bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("build invoice request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.SetBasicAuth(a.apiKey, "")

	resp, err := a.client.Do(req)
	if err != nil {
		a.log.Warn("Invoice call failed", zap.Error(err), zap.String("order_ref", orderRef))
		return nil, fmt.Errorf("create invoice %s: %w", orderRef, ErrUnavailable)
	}
	defer resp.Body.Close()

	raw, _ := io.ReadAll(resp.Body)

	switch {
	case resp.StatusCode >= 500:
		a.log.Warn("Invoice rejected by server",
			zap.Int("status", resp.StatusCode),
			zap.String("order_ref", orderRef),
		)
		return nil, fmt.Errorf("create invoice %s (HTTP %d): %w", orderRef, resp.StatusCode, ErrUnavailable)
	case resp.StatusCode >= 400:
		return nil, fmt.Errorf("create invoice %s (HTTP %d): %w", orderRef, resp.StatusCode, ErrInvalidAmount)
	}

	var invoice xenditInvoice
	if err := json.Unmarshal(raw, &invoice); err != nil {
		return nil, fmt.Errorf("decode invoice response for %s: %w", orderRef, err)
	}

	return &CreateResult{
		CheckoutRef: invoice.InvoiceURL,
		ExpiresAt:   time.Now().Add(a.window),
	}, nil
}

func (a *xenditAdapter) QueryStatus(ctx context.Context, orderRef string) (*StatusResult, error) {
	endpoint := a.baseURL + "/v2/invoices?external_id=" + url.QueryEscape(orderRef)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, fmt.Errorf("build invoice query: %w", err)
	}
	req.SetBasicAuth(a.apiKey, "")

	resp, err := a.client.Do(req)
	if err != nil {
		a.log.Warn("Invoice query call failed", zap.Error(err), zap.String("order_ref", orderRef))
		return nil, fmt.Errorf("query invoice %s: %w", orderRef, ErrUnavailable)
	}
	defer resp.Body.Close()

	raw, _ := io.ReadAll(resp.Body)

	switch {
	case resp.StatusCode >= 500:
		return nil, fmt.Errorf("query invoice %s (HTTP %d): %w", orderRef, resp.StatusCode, ErrUnavailable)
	case resp.StatusCode == http.StatusNotFound:
		return nil, fmt.Errorf("query invoice %s: %w", orderRef, ErrNotFound)
	case resp.StatusCode >= 400:
		return nil, fmt.Errorf("query invoice %s: unexpected HTTP %d", orderRef, resp.StatusCode)
	}

	var invoices []xenditInvoice
	if err := json.Unmarshal(raw, &invoices); err != nil {
		return nil, fmt.Errorf("decode invoice list for %s: %w", orderRef, err)
	}
	if len(invoices) == 0 {
		return nil, fmt.Errorf("query invoice %s: %w", orderRef, ErrNotFound)
	}

	return &StatusResult{Status: invoices[0].Status, RawPayload: raw}, nil
}
