package whatsapp

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"github.com/erp/supplier-portal/internal/domain/integration"
	"github.com/erp/supplier-portal/internal/infrastructure/telemetry"
)

// maxResponseSize bounds how much of a gateway response is read
const maxResponseSize = 1 << 20

// Gateway implements integration.MessagingGateway over the WhatsApp HTTP API
type Gateway struct {
	config     *Config
	httpClient *http.Client
	validate   *validator.Validate
	logger     *zap.Logger
}

// GatewayOption is a functional option for configuring Gateway
type GatewayOption func(*Gateway)

// WithHTTPClient sets a custom HTTP client
func WithHTTPClient(c *http.Client) GatewayOption {
	return func(g *Gateway) {
		g.httpClient = c
	}
}

// NewGateway creates a new WhatsApp gateway
func NewGateway(config *Config, logger *zap.Logger, opts ...GatewayOption) (*Gateway, error) {
	if err := config.Validate(); err != nil {
		return nil, err
	}
	if logger == nil {
		logger = zap.NewNop()
	}

	g := &Gateway{
		config: config,
		httpClient: &http.Client{
			Timeout: time.Duration(config.TimeoutSeconds) * time.Second,
		},
		validate: validator.New(),
		logger:   logger.Named("whatsapp"),
	}
	for _, opt := range opts {
		opt(g)
	}
	return g, nil
}

// SendNewOrder notifies a provider about a new purchase order
func (g *Gateway) SendNewOrder(ctx context.Context, n integration.NewOrderNotification) error {
	payload := newOrderPayload{
		Phone:        g.phone(n.Phone),
		ProviderName: n.ProviderName,
		URL:          n.URL,
		OrderNumber:  n.OrderNumber,
	}
	return g.send(ctx, integration.NotificationTypeNewOrder, payload)
}

// SendOrderConfirmed notifies purchasing that a provider confirmed an order
func (g *Gateway) SendOrderConfirmed(ctx context.Context, n integration.OrderDecisionNotification) error {
	return g.send(ctx, integration.NotificationTypeOrderConfirmed, g.decisionPayload(n))
}

// SendOrderRejected notifies purchasing that a provider rejected an order
func (g *Gateway) SendOrderRejected(ctx context.Context, n integration.OrderDecisionNotification) error {
	g.logger.Info("Sending order rejection",
		zap.String("order_number", n.OrderNumber),
		zap.String("reason", n.Reason),
	)
	return g.send(ctx, integration.NotificationTypeOrderRejected, g.decisionPayload(n))
}

func (g *Gateway) decisionPayload(n integration.OrderDecisionNotification) decisionPayload {
	return decisionPayload{
		OrderNumber:  n.OrderNumber,
		ProviderName: n.ProviderName,
		URL:          n.URL,
		Phone:        g.phone(n.Phone),
	}
}

// phone strips whitespace and warns about numbers that cannot receive messages
func (g *Gateway) phone(raw string) string {
	phone := StripWhitespace(raw)
	if phone != "" && !IsValidPhone(phone, g.config.DefaultRegion) {
		g.logger.Warn("Phone number does not look valid, sending anyway",
			zap.String("phone", phone),
			zap.String("region", g.config.DefaultRegion),
		)
	}
	return phone
}

func (g *Gateway) send(ctx context.Context, kind integration.NotificationType, payload any) (err error) {
	ctx, span := telemetry.StartClientSpan(ctx, "whatsapp", "send", telemetry.SpanMessageType.String(string(kind)))
	defer func() {
		telemetry.RecordError(span, err)
		span.End()
	}()

	if err := g.validate.Struct(payload); err != nil {
		return fmt.Errorf("%w: %v", integration.ErrGatewayInvalidPayload, err)
	}

	body, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("whatsapp: failed to encode payload: %w", err)
	}

	endpoint, err := g.endpoint(kind)
	if err != nil {
		return err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("whatsapp: failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Token", g.config.Token)

	resp, err := g.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("%w: %v", integration.ErrGatewayUnavailable, err)
	}
	defer resp.Body.Close()

	respBody, _ := io.ReadAll(io.LimitReader(resp.Body, maxResponseSize))

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		g.logger.Warn("Gateway rejected notification",
			zap.String("type", string(kind)),
			zap.Int("status", resp.StatusCode),
			zap.ByteString("response", respBody),
		)
		return fmt.Errorf("%w: HTTP %d", integration.ErrGatewayRequestFailed, resp.StatusCode)
	}

	return nil
}

func (g *Gateway) endpoint(kind integration.NotificationType) (string, error) {
	u, err := url.Parse(g.config.BaseURL)
	if err != nil {
		return "", fmt.Errorf("%w: invalid base url: %v", integration.ErrGatewayNotConfigured, err)
	}
	q := u.Query()
	q.Set("tipo", string(kind))
	u.RawQuery = q.Encode()
	return u.String(), nil
}

// Ensure Gateway implements MessagingGateway
var _ integration.MessagingGateway = (*Gateway)(nil)
