package payment

import (
	"bytes"
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

// GatewayConfig holds HTTP gateway configuration
type GatewayConfig struct {
	BaseURL    string
	MerchantID string
	SecretKey  string
	Currency   string
	Timeout    time.Duration
}

// GatewayProvider talks to an HTTP payment gateway. Amounts leave the platform as
// decimal strings with two fraction digits.
type GatewayProvider struct {
	httpClient *http.Client
	config     GatewayConfig
}

type gatewayRequest struct {
	MerchantID string            `json:"merchant_id"`
	Amount     string            `json:"amount"`
	Currency   string            `json:"currency"`
	Method     string            `json:"method"`
	OrderID    string            `json:"order_id"`
	Details    map[string]string `json:"details,omitempty"`
}

type gatewayResponse struct {
	PaymentID string `json:"payment_id"`
	Status    string `json:"status"`
}

// NewGatewayProvider creates an HTTP gateway provider
func NewGatewayProvider(cfg GatewayConfig) *GatewayProvider {
	if cfg.Timeout == 0 {
		cfg.Timeout = 30 * time.Second
	}
	if cfg.Currency == "" {
		cfg.Currency = "KZT"
	}
	return &GatewayProvider{
		httpClient: &http.Client{Timeout: cfg.Timeout},
		config:     cfg,
	}
}

func (p *GatewayProvider) Name() string { return ProviderGateway }

func (p *GatewayProvider) CreateTopUp(ctx context.Context, req Request) (*Result, error) {
	return p.call(ctx, "/api/v1/topups", req)
}

func (p *GatewayProvider) CreateWithdrawal(ctx context.Context, req Request) (*Result, error) {
	return p.call(ctx, "/api/v1/withdrawals", req)
}

// FormatAmount renders minor units as a two-digit decimal string.
func FormatAmount(minor int64) string {
	return decimal.New(minor, -2).StringFixed(2)
}

func (p *GatewayProvider) call(ctx context.Context, path string, req Request) (*Result, error) {
	if err := req.Validate(); err != nil {
		return nil, err
	}
	if p == nil || p.httpClient == nil {
		return nil, fmt.Errorf("payment gateway is not initialized")
	}
	if strings.TrimSpace(p.config.BaseURL) == "" {
		return nil, fmt.Errorf("payment gateway config error: base_url is empty")
	}
	if strings.TrimSpace(p.config.MerchantID) == "" {
		return nil, fmt.Errorf("payment gateway config error: merchant_id is empty")
	}

	body, err := json.Marshal(gatewayRequest{
		MerchantID: p.config.MerchantID,
		Amount:     FormatAmount(req.Amount),
		Currency:   p.config.Currency,
		Method:     req.Method,
		OrderID:    req.Reference,
		Details:    req.Details,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to encode gateway request: %w", err)
	}

	ctx, cancel := context.WithTimeout(ctx, p.config.Timeout)
	defer cancel()

	url := strings.TrimRight(p.config.BaseURL, "/") + path
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("gateway call failed: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("Authorization", "Bearer "+p.config.MerchantID)
	httpReq.Header.Set("X-Signature", p.sign(body))

	resp, err := p.httpClient.Do(httpReq)
	if err != nil {
		return nil, fmt.Errorf("gateway call failed: %w", err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("gateway call failed: %w", err)
	}

	if resp.StatusCode == http.StatusPaymentRequired || resp.StatusCode == http.StatusUnprocessableEntity {
		return &Result{Success: false, Status: StatusFailed}, nil
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, fmt.Errorf("gateway returned non-2xx status: %d, body: %s", resp.StatusCode, string(raw))
	}

	var out gatewayResponse
	if err := json.Unmarshal(raw, &out); err != nil {
		return nil, fmt.Errorf("failed to parse gateway response: %w", err)
	}

	status := MapStatus(out.Status)
	return &Result{
		Success:    status == StatusCompleted,
		GatewayRef: out.PaymentID,
		Status:     status,
	}, nil
}

func (p *GatewayProvider) sign(body []byte) string {
	mac := hmac.New(sha256.New, []byte(p.config.SecretKey))
	mac.Write(body)
	return hex.EncodeToString(mac.Sum(nil))
}
