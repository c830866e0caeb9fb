// internal/domain/producer/partner.go
package producer

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/goccy/go-json"
	"github.com/sirupsen/logrus"

	"github.com/your-org/farmshop-backend/internal/config"
)

// partnerClient is the single Client implementation, parameterized by a
// configuration record. API URL and key present means API mode, otherwise
// orders go out as structured emails. Registering a new producer is a
// config entry, not new code.
type partnerClient struct {
	cfg        config.ProducerConfig
	httpClient *http.Client
	mailer     Mailer
	logger     *logrus.Logger
}

// NewPartnerClient creates a producer client for one partner configuration.
func NewPartnerClient(cfg config.ProducerConfig, timeout time.Duration, mailer Mailer, logger *logrus.Logger) Client {
	if timeout <= 0 {
		timeout = 15 * time.Second
	}
	return &partnerClient{
		cfg: cfg,
		httpClient: &http.Client{
			Timeout: timeout,
		},
		mailer: mailer,
		logger: logger,
	}
}

// Method reports how this partner receives orders.
func (c *partnerClient) Method() Method {
	if c.cfg.APIBaseURL != "" && c.cfg.APIKey != "" {
		return MethodAPI
	}
	return MethodEmail
}

// SendOrder hands one producer-scoped order to the partner. All ordinary
// failures come back inside the DispatchResult.
func (c *partnerClient) SendOrder(ctx context.Context, payload OrderPayload) DispatchResult {
	switch c.Method() {
	case MethodAPI:
		return c.sendViaAPI(ctx, payload)
	default:
		return c.sendViaEmail(ctx, payload)
	}
}

// apiOrderResponse is the minimal shape expected from a partner API.
type apiOrderResponse struct {
	ID      string `json:"id"`
	OrderID string `json:"order_id"`
	Status  string `json:"status"`
}

func (c *partnerClient) sendViaAPI(ctx context.Context, payload OrderPayload) DispatchResult {
	result := DispatchResult{Method: MethodAPI}

	body, err := json.Marshal(payload)
	if err != nil {
		result.Error = fmt.Sprintf("failed to marshal order payload: %v", err)
		return result
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.cfg.APIBaseURL+"/orders", bytes.NewReader(body))
	if err != nil {
		result.Error = fmt.Sprintf("failed to create request: %v", err)
		return result
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+c.cfg.APIKey)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		result.Error = fmt.Sprintf("producer API unreachable: %v", err)
		return result
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		result.Error = fmt.Sprintf("failed to read producer API response: %v", err)
		return result
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		result.Error = fmt.Sprintf("producer API returned status %d: %s", resp.StatusCode, string(respBody))
		return result
	}

	var orderResp apiOrderResponse
	if err := json.Unmarshal(respBody, &orderResp); err != nil {
		result.Error = fmt.Sprintf("failed to parse producer API response: %v", err)
		return result
	}

	externalID := orderResp.ID
	if externalID == "" {
		externalID = orderResp.OrderID
	}
	if externalID == "" {
		result.Error = "producer API response contains no order id"
		return result
	}

	result.Success = true
	result.ExternalID = externalID
	return result
}

func (c *partnerClient) sendViaEmail(ctx context.Context, payload OrderPayload) DispatchResult {
	result := DispatchResult{Method: MethodEmail}

	if c.cfg.Email == "" {
		result.Error = fmt.Sprintf("producer %q has no order email configured", c.cfg.Key)
		return result
	}
	if c.mailer == nil {
		result.Error = "no mail service configured for email dispatch"
		return result
	}

	subject := fmt.Sprintf("New order %s (%s)", payload.OrderNumber, payload.ExternalReference)
	body := RenderOrderSummary(payload)

	if err := c.mailer.SendText(ctx, c.cfg.Email, subject, body); err != nil {
		result.Error = fmt.Sprintf("failed to send order email: %v", err)
		return result
	}

	// Email dispatch has no partner-side id to report back.
	result.Success = true
	return result
}

// GetStatus queries the partner API for the state of a previously sent
// order. Only meaningful in API mode.
func (c *partnerClient) GetStatus(ctx context.Context, externalID string) (string, error) {
	if c.Method() != MethodAPI {
		return "", fmt.Errorf("producer %q uses email dispatch and does not report status", c.cfg.Key)
	}
	if externalID == "" {
		return "", fmt.Errorf("external id is required")
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.cfg.APIBaseURL+"/orders/"+externalID, nil)
	if err != nil {
		return "", fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+c.cfg.APIKey)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("producer API unreachable: %w", err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return "", fmt.Errorf("failed to read producer API response: %w", err)
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return "", fmt.Errorf("producer API returned status %d: %s", resp.StatusCode, string(respBody))
	}

	var orderResp apiOrderResponse
	if err := json.Unmarshal(respBody, &orderResp); err != nil {
		return "", fmt.Errorf("failed to parse producer API response: %w", err)
	}

	return orderResp.Status, nil
}
