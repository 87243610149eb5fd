package payout

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/clipboost/clipboost-backend/pkg/config"
	"github.com/clipboost/clipboost-backend/pkg/logger"
)

const defaultTimeout = 10 * time.Second

var errBaseURLRequired = errors.New("payout provider base url is required")

// Provider is the collaborator contract the withdrawal state machine calls.
// Invocations happen outside any database transaction; completion is made
// idempotent by keying on the returned payout id.
type Provider interface {
	CreatePayout(ctx context.Context, userID uuid.UUID, amountCents int64, withdrawalRequestID uuid.UUID) (string, error)
}

// Client talks to the external payout provider over HTTP.
type Client struct {
	baseURL string
	apiKey  string
	http    *http.Client
}

// NewClient builds a payout provider client with the configured timeout.
func NewClient(ctx context.Context, cfg config.PayoutConfig, logg *logger.Logger) (*Client, error) {
	baseURL := strings.TrimRight(strings.TrimSpace(cfg.BaseURL), "/")
	if baseURL == "" {
		return nil, errBaseURLRequired
	}

	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = defaultTimeout
	}

	if logg != nil {
		logg.Info(ctx, "payout provider client initialized")
	}

	return &Client{
		baseURL: baseURL,
		apiKey:  strings.TrimSpace(cfg.APIKey),
		http:    &http.Client{Timeout: timeout},
	}, nil
}

type createPayoutRequest struct {
	UserID              uuid.UUID `json:"user_id"`
	AmountCents         int64     `json:"amount_cents"`
	WithdrawalRequestID uuid.UUID `json:"withdrawal_request_id"`
}

type createPayoutResponse struct {
	PayoutID string `json:"payout_id"`
}

// CreatePayout asks the provider to move amountCents to the user and returns
// the provider's payout reference.
func (c *Client) CreatePayout(ctx context.Context, userID uuid.UUID, amountCents int64, withdrawalRequestID uuid.UUID) (string, error) {
	if amountCents <= 0 {
		return "", fmt.Errorf("payout amount must be positive")
	}

	body, err := json.Marshal(createPayoutRequest{
		UserID:              userID,
		AmountCents:         amountCents,
		WithdrawalRequestID: withdrawalRequestID,
	})
	if err != nil {
		return "", fmt.Errorf("encode payout request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/v1/payouts", bytes.NewReader(body))
	if err != nil {
		return "", fmt.Errorf("build payout request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	if c.apiKey != "" {
		req.Header.Set("Authorization", "Bearer "+c.apiKey)
	}
	// Duplicate deliveries settle idempotently downstream, keyed on the
	// withdrawal request id.
	req.Header.Set("Idempotency-Key", withdrawalRequestID.String())

	resp, err := c.http.Do(req)
	if err != nil {
		return "", fmt.Errorf("payout provider call: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return "", fmt.Errorf("payout provider returned status %d", resp.StatusCode)
	}

	var decoded createPayoutResponse
	if err := json.NewDecoder(resp.Body).Decode(&decoded); err != nil {
		return "", fmt.Errorf("decode payout response: %w", err)
	}
	if strings.TrimSpace(decoded.PayoutID) == "" {
		return "", fmt.Errorf("payout provider returned empty payout id")
	}
	return decoded.PayoutID, nil
}
