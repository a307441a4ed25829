package payment

import (
	"bytes"
	"context"
	"crypto/sha512"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/sirupsen/logrus"
)

// EnvironmentURLs maps gateway environment names to their endpoint URLs
var EnvironmentURLs = map[string]string{
	"sandbox":    "https://sandbox.gateway.voicetransit.lk/v1",
	"production": "https://gateway.voicetransit.lk/v1",
}

// HTTPGatewayConfig holds credentials and endpoint selection for the real
// payment processor.
type HTTPGatewayConfig struct {
	Environment    string // "sandbox" or "production"
	BaseURL        string // overrides EnvironmentURLs when set
	MerchantKey    string
	MerchantSecret string
	Timeout        time.Duration
}

// HTTPGateway talks to the hosted payment processor over JSON. Every
// request carries the caller's idempotency key in a header; the processor
// deduplicates on it server-side.
type HTTPGateway struct {
	config HTTPGatewayConfig
	logger *logrus.Logger
	client *http.Client
}

type chargeRequest struct {
	MerchantKey string `json:"merchantKey"`
	Amount      string `json:"amount"`
	Currency    string `json:"currencyCode"`
	CheckValue  string `json:"checkValue"`
}

type chargeResponse struct {
	Status           string `json:"status"` // "approved", "declined", "error"
	AuthorizationRef string `json:"authorizationRef"`
	CaptureRef       string `json:"captureRef,omitempty"`
	Message          string `json:"message,omitempty"`
}

// NewHTTPGateway creates a gateway client for the configured environment
func NewHTTPGateway(cfg HTTPGatewayConfig, logger *logrus.Logger) *HTTPGateway {
	return &HTTPGateway{
		config: cfg,
		logger: logger,
		client: &http.Client{
			Timeout: cfg.Timeout,
		},
	}
}

// checkValue builds the SHA-512 request signature:
// hash1 = SHA512(merchantSecret) uppercase hex,
// then SHA512("merchantKey|amount|currency|hash1") uppercase hex.
func (g *HTTPGateway) checkValue(amount, currency string) string {
	hash1 := sha512.Sum512([]byte(g.config.MerchantSecret))
	hash1Hex := strings.ToUpper(hex.EncodeToString(hash1[:]))

	data := fmt.Sprintf("%s|%s|%s|%s", g.config.MerchantKey, amount, currency, hash1Hex)
	hash2 := sha512.Sum512([]byte(data))
	return strings.ToUpper(hex.EncodeToString(hash2[:]))
}

func (g *HTTPGateway) endpoint() string {
	if g.config.BaseURL != "" {
		return g.config.BaseURL
	}
	if url, ok := EnvironmentURLs[g.config.Environment]; ok {
		return url
	}
	return EnvironmentURLs["sandbox"]
}

// Authorize implements Gateway
func (g *HTTPGateway) Authorize(ctx context.Context, idempotencyKey string, amount float64, currency string) (*Charge, error) {
	amountStr := fmt.Sprintf("%.2f", amount)
	request := &chargeRequest{
		MerchantKey: g.config.MerchantKey,
		Amount:      amountStr,
		Currency:    currency,
		CheckValue:  g.checkValue(amountStr, currency),
	}

	response, err := g.post(ctx, "/authorizations", idempotencyKey, request)
	if err != nil {
		return nil, err
	}

	switch response.Status {
	case "approved":
		return &Charge{
			AuthorizationRef: response.AuthorizationRef,
			Amount:           amount,
			Currency:         currency,
		}, nil
	case "declined":
		return nil, ErrDeclined
	default:
		return nil, fmt.Errorf("authorization failed: %s", response.Message)
	}
}

// Capture implements Gateway
func (g *HTTPGateway) Capture(ctx context.Context, idempotencyKey string) (*Charge, error) {
	response, err := g.post(ctx, "/captures", idempotencyKey, map[string]string{
		"merchantKey": g.config.MerchantKey,
	})
	if err != nil {
		return nil, err
	}

	switch response.Status {
	case "approved":
		return &Charge{
			AuthorizationRef: response.AuthorizationRef,
			CaptureRef:       response.CaptureRef,
			Captured:         true,
		}, nil
	case "declined":
		return nil, ErrDeclined
	case "not_found":
		return nil, ErrNotFound
	default:
		return nil, fmt.Errorf("capture failed: %s", response.Message)
	}
}

// Void implements Gateway
func (g *HTTPGateway) Void(ctx context.Context, idempotencyKey string) error {
	response, err := g.post(ctx, "/voids", idempotencyKey, map[string]string{
		"merchantKey": g.config.MerchantKey,
	})
	if err != nil {
		return err
	}
	if response.Status != "approved" {
		return fmt.Errorf("void failed: %s", response.Message)
	}
	return nil
}

func (g *HTTPGateway) post(ctx context.Context, path, idempotencyKey string, body interface{}) (*chargeResponse, error) {
	jsonBody, err := json.Marshal(body)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, g.endpoint()+path, bytes.NewBuffer(jsonBody))
	if err != nil {
		return nil, fmt.Errorf("failed to build request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Idempotency-Key", idempotencyKey)

	resp, err := g.client.Do(req)
	if err != nil {
		// A transport failure leaves the outcome unknown
		g.logger.WithError(err).WithField("path", path).Error("Payment gateway request failed")
		return nil, ErrTimeout
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, ErrTimeout
	}

	if resp.StatusCode == http.StatusGatewayTimeout || resp.StatusCode == http.StatusServiceUnavailable {
		return nil, ErrTimeout
	}
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("payment gateway returned status %d: %s", resp.StatusCode, string(respBody))
	}

	var response chargeResponse
	if err := json.Unmarshal(respBody, &response); err != nil {
		return nil, fmt.Errorf("failed to parse response: %w", err)
	}

	g.logger.WithFields(logrus.Fields{
		"path":   path,
		"status": response.Status,
	}).Debug("Payment gateway response received")

	return &response, nil
}
