package payout

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/clipboost/clipboost-backend/pkg/config"
)

func TestNewClientRequiresBaseURL(t *testing.T) {
	_, err := NewClient(context.Background(), config.PayoutConfig{}, nil)
	assert.Error(t, err)
}

func TestCreatePayout(t *testing.T) {
	withdrawalID := uuid.New()
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "/v1/payouts", r.URL.Path)
		assert.Equal(t, withdrawalID.String(), r.Header.Get("Idempotency-Key"))

		var body map[string]any
		require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		assert.EqualValues(t, 5000, body["amount_cents"])

		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(map[string]string{"payout_id": "po_123"})
	}))
	defer server.Close()

	client, err := NewClient(context.Background(), config.PayoutConfig{BaseURL: server.URL, Timeout: time.Second}, nil)
	require.NoError(t, err)

	payoutID, err := client.CreatePayout(context.Background(), uuid.New(), 5000, withdrawalID)
	require.NoError(t, err)
	assert.Equal(t, "po_123", payoutID)
}

func TestCreatePayoutProviderError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
	}))
	defer server.Close()

	client, err := NewClient(context.Background(), config.PayoutConfig{BaseURL: server.URL}, nil)
	require.NoError(t, err)

	_, err = client.CreatePayout(context.Background(), uuid.New(), 100, uuid.New())
	assert.Error(t, err)
}

func TestCreatePayoutRejectsNonPositiveAmount(t *testing.T) {
	client, err := NewClient(context.Background(), config.PayoutConfig{BaseURL: "http://localhost:1"}, nil)
	require.NoError(t, err)

	_, err = client.CreatePayout(context.Background(), uuid.New(), 0, uuid.New())
	assert.Error(t, err)
}
