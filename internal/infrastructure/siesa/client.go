package siesa

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"strings"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/erp/supplier-portal/internal/domain/integration"
	"github.com/erp/supplier-portal/internal/infrastructure/telemetry"
)

// maxResponseSize is the maximum allowed response size from the Siesa API (10MB)
const maxResponseSize = 10 * 1024 * 1024

// Client implements integration.ERPSource against the Siesa standard-query API.
//
// The report has no "since" filter and no total count, and new lines are
// appended at the end, so the client walks forward from a remembered baseline
// page until a page comes back empty or unparsable. The last non-empty page is
// the frontier; its records (at most PageSize) are the batch for this pass.
type Client struct {
	config     *Config
	httpClient *http.Client
	cursor     PageCursor
	logger     *zap.Logger

	mu       sync.RWMutex
	frontier int
}

// ClientOption is a functional option for configuring Client
type ClientOption func(*Client)

// WithHTTPClient sets a custom HTTP client
func WithHTTPClient(c *http.Client) ClientOption {
	return func(client *Client) {
		client.httpClient = c
	}
}

// WithPageCursor sets where the frontier page is remembered
func WithPageCursor(cursor PageCursor) ClientOption {
	return func(client *Client) {
		client.cursor = cursor
	}
}

// NewClient creates a new Siesa client
func NewClient(config *Config, logger *zap.Logger, opts ...ClientOption) (*Client, error) {
	if err := config.Validate(); err != nil {
		return nil, err
	}
	if logger == nil {
		logger = zap.NewNop()
	}

	c := &Client{
		config: config,
		httpClient: &http.Client{
			Timeout: time.Duration(config.TimeoutSeconds) * time.Second,
		},
		cursor: NewMemoryPageCursor(),
		logger: logger.Named("siesa"),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c, nil
}

// FetchLatestBatch discovers the frontier page and returns its records.
// Transport failures abort discovery and are returned; an empty frontier
// page yields an empty batch and a nil error.
func (c *Client) FetchLatestBatch(ctx context.Context) (lines []integration.RawLine, err error) {
	ctx, span := telemetry.StartClientSpan(ctx, "siesa", "fetch_latest_batch")
	defer func() {
		telemetry.RecordError(span, err)
		span.End()
	}()

	baseline := c.baseline(ctx)
	frontier := baseline

	c.logger.Debug("Starting page discovery", zap.Int("baseline_page", baseline))

	for page := baseline; page < c.config.MaxPage; page++ {
		_, status, err := c.fetchPage(ctx, page)
		if err != nil {
			return nil, err
		}
		if status != pageOK {
			break
		}
		frontier = page
	}

	c.logger.Info("Scanning frontier page", zap.Int("page", frontier))

	rows, status, err := c.fetchPage(ctx, frontier)
	if err != nil {
		return nil, err
	}
	if status == pageInvalid {
		return nil, fmt.Errorf("%w: frontier page %d is not a report payload", integration.ErrERPInvalidResponse, frontier)
	}

	c.remember(ctx, frontier)
	span.SetAttributes(telemetry.SpanERPPage.Int(frontier), telemetry.SpanERPRows.Int(len(rows)))

	lines = make([]integration.RawLine, 0, len(rows))
	for _, row := range rows {
		lines = append(lines, row.toRawLine())
	}
	return lines, nil
}

// Frontier returns the frontier page found by the last discovery, or 0 before the first one
func (c *Client) Frontier() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.frontier
}

// baseline returns the page discovery starts from: the remembered frontier
// when it is ahead of the configured baseline.
func (c *Client) baseline(ctx context.Context) int {
	page, err := c.cursor.Load(ctx)
	if err != nil {
		c.logger.Warn("Failed to load remembered frontier page, using configured baseline",
			zap.Int("baseline_page", c.config.BaselinePage),
			zap.Error(err),
		)
		return c.config.BaselinePage
	}
	if page > c.config.BaselinePage && page < c.config.MaxPage {
		return page
	}
	return c.config.BaselinePage
}

func (c *Client) remember(ctx context.Context, frontier int) {
	c.mu.Lock()
	c.frontier = frontier
	c.mu.Unlock()

	if err := c.cursor.Store(ctx, frontier); err != nil {
		c.logger.Warn("Failed to remember frontier page", zap.Int("page", frontier), zap.Error(err))
	}
}

// fetchPage requests one report page. During discovery an empty or invalid
// page marks the end of the table.
func (c *Client) fetchPage(ctx context.Context, page int) ([]reportRow, pageStatus, error) {
	body, err := c.doRequest(ctx, c.pageURL(page))
	if err != nil {
		return nil, pageInvalid, err
	}
	rows, status := parseReport(body)
	if status == pageInvalid {
		c.logger.Debug("Page returned no report payload",
			zap.Int("page", page),
			zap.Int("body_size", len(body)),
		)
	}
	return rows, status, nil
}

func (c *Client) pageURL(page int) string {
	sep := "?"
	if strings.Contains(c.config.BaseURL, "?") {
		sep = "&"
	}
	return fmt.Sprintf("%s%spaginacion=numPag=%d|tamPag=%d", c.config.BaseURL, sep, page, PageSize)
}

// doRequest performs a GET against the Siesa API
func (c *Client) doRequest(ctx context.Context, url string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, fmt.Errorf("siesa: failed to create request: %w", err)
	}

	req.Header.Set("conniKey", c.config.ConniKey)
	req.Header.Set("conniToken", c.config.ConniToken)
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", integration.ErrERPUnavailable, err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseSize))
	if err != nil {
		return nil, fmt.Errorf("%w: failed to read response: %v", integration.ErrERPUnavailable, err)
	}

	if resp.StatusCode >= 400 {
		return nil, fmt.Errorf("%w: HTTP %d", integration.ErrERPRequestFailed, resp.StatusCode)
	}

	return body, nil
}

// Ensure Client implements ERPSource
var _ integration.ERPSource = (*Client)(nil)
