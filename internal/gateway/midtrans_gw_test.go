package gateway_test

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"travel-booking/internal/gateway"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func newMidtrans(t *testing.T, srv *httptest.Server) gateway.Adapter {
	t.Helper()
	return gateway.NewMidtransAdapter(srv.URL, "server-key", 15*time.Minute, srv.Client(), zap.NewNop())
}

func TestMidtransCreateAttempt_Success(t *testing.T) {
	var gotPath, gotAuth string
	var gotBody map[string]any

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.Path
		gotAuth, _, _ = r.BasicAuth()
		json.NewDecoder(r.Body).Decode(&gotBody)

		json.NewEncoder(w).Encode(map[string]string{
			"token":        "snap-token",
			"redirect_url": "https://app.sandbox.midtrans.com/snap/v4/redirection/snap-token",
		})
	}))
	defer srv.Close()

	adapter := newMidtrans(t, srv)
	before := time.Now()

	result, err := adapter.CreateAttempt(context.Background(), "PAY-20260901-1", 250000)

	require.NoError(t, err)
	assert.Equal(t, "https://app.sandbox.midtrans.com/snap/v4/redirection/snap-token", result.CheckoutRef)
	assert.WithinDuration(t, before.Add(15*time.Minute), result.ExpiresAt, 5*time.Second)

	assert.Equal(t, "/snap/v1/transactions", gotPath)
	assert.Equal(t, "server-key", gotAuth)

	details := gotBody["transaction_details"].(map[string]any)
	assert.Equal(t, "PAY-20260901-1", details["order_id"])
	assert.Equal(t, float64(250000), details["gross_amount"])
}

func TestMidtransCreateAttempt_RejectsNonPositiveAmount(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		t.Error("gateway must not be called for an invalid amount")
	}))
	defer srv.Close()

	adapter := newMidtrans(t, srv)

	_, err := adapter.CreateAttempt(context.Background(), "PAY-1", 0)
	assert.True(t, errors.Is(err, gateway.ErrInvalidAmount))

	_, err = adapter.CreateAttempt(context.Background(), "PAY-2", -100)
	assert.True(t, errors.Is(err, gateway.ErrInvalidAmount))
}

func TestMidtransCreateAttempt_ServerErrorIsUnavailable(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
	}))
	defer srv.Close()

	adapter := newMidtrans(t, srv)

	_, err := adapter.CreateAttempt(context.Background(), "PAY-1", 100000)

	assert.True(t, errors.Is(err, gateway.ErrUnavailable))
}

func TestMidtransCreateAttempt_ClientErrorIsInvalidAmount(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadRequest)
	}))
	defer srv.Close()

	adapter := newMidtrans(t, srv)

	_, err := adapter.CreateAttempt(context.Background(), "PAY-1", 100000)

	assert.True(t, errors.Is(err, gateway.ErrInvalidAmount))
}

func TestMidtransCreateAttempt_TransportFailureIsUnavailable(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	client := srv.Client()
	srv.Close() // connection refused from here on

	adapter := gateway.NewMidtransAdapter(srv.URL, "server-key", 15*time.Minute, client, zap.NewNop())

	_, err := adapter.CreateAttempt(context.Background(), "PAY-1", 100000)

	assert.True(t, errors.Is(err, gateway.ErrUnavailable))
}

func TestMidtransQueryStatus_Success(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/v2/PAY-1/status", r.URL.Path)
		json.NewEncoder(w).Encode(map[string]string{
			"transaction_status": "settlement",
			"status_code":        "200",
		})
	}))
	defer srv.Close()

	adapter := newMidtrans(t, srv)

	result, err := adapter.QueryStatus(context.Background(), "PAY-1")

	require.NoError(t, err)
	assert.Equal(t, "settlement", result.Status)
	assert.NotEmpty(t, result.RawPayload)
}

func TestMidtransQueryStatus_UnknownRef(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
	}))
	defer srv.Close()

	adapter := newMidtrans(t, srv)

	_, err := adapter.QueryStatus(context.Background(), "PAY-GONE")

	assert.True(t, errors.Is(err, gateway.ErrNotFound))
}

func TestMidtransQueryStatus_ServerErrorIsUnavailable(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer srv.Close()

	adapter := newMidtrans(t, srv)

	_, err := adapter.QueryStatus(context.Background(), "PAY-1")

	assert.True(t, errors.Is(err, gateway.ErrUnavailable))
}
