// Package billing provides the billing collaborators: an HTTP client for a
// billing API and an in-memory sandbox for local use.
package billing

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/sony/gobreaker/v2"
	"golang.org/x/oauth2"

	"github.com/felixgeelhaar/subscriptions/internal/shared/infrastructure/eventbus"
	"github.com/felixgeelhaar/subscriptions/internal/subscriptions/domain"
	"github.com/felixgeelhaar/subscriptions/pkg/observability"
)

// EventSource identifies billing events in the envelope metadata.
const EventSource = "billing"

// ErrCircuitOpen is returned while the breaker rejects requests.
var ErrCircuitOpen = errors.New("billing API unavailable: circuit open")

// StatusError is a non-2xx response from the billing API.
type StatusError struct {
	Code    int
	Message string
}

func (e *StatusError) Error() string {
	if e.Message == "" {
		return fmt.Sprintf("billing API returned %d", e.Code)
	}
	return fmt.Sprintf("billing API returned %d: %s", e.Code, e.Message)
}

// BreakerConfig configures the circuit breaker around the billing API.
type BreakerConfig struct {
	MaxRequests      uint32
	Interval         time.Duration
	Timeout          time.Duration
	FailureThreshold uint32
}

// DefaultBreakerConfig returns the breaker settings used when none are given.
func DefaultBreakerConfig() BreakerConfig {
	return BreakerConfig{
		MaxRequests:      1,
		Interval:         time.Minute,
		Timeout:          30 * time.Second,
		FailureThreshold: 5,
	}
}

// HTTPConfig configures HTTPClient.
type HTTPConfig struct {
	BaseURL string
	Timeout time.Duration
	Breaker BreakerConfig
}

// HTTPClient talks to the billing API. It implements domain.Billing and
// domain.Authenticator and reports purchase outcomes as events.
type HTTPClient struct {
	baseURL   *url.URL
	client    *http.Client
	tokens    oauth2.TokenSource
	breaker   *gobreaker.CircuitBreaker[[]byte]
	publisher eventbus.Publisher
	logger    *slog.Logger
	metrics   observability.Metrics
}

// NewHTTPClient creates an HTTPClient. tokens may be nil; when it yields a
// token the request carries it as a bearer credential.
func NewHTTPClient(
	cfg HTTPConfig,
	tokens oauth2.TokenSource,
	publisher eventbus.Publisher,
	logger *slog.Logger,
	metrics observability.Metrics,
) (*HTTPClient, error) {
	base, err := url.Parse(strings.TrimSuffix(cfg.BaseURL, "/") + "/")
	if err != nil || base.Host == "" {
		return nil, fmt.Errorf("invalid billing API URL %q", cfg.BaseURL)
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = 15 * time.Second
	}
	if cfg.Breaker.FailureThreshold == 0 {
		cfg.Breaker = DefaultBreakerConfig()
	}
	if logger == nil {
		logger = slog.Default()
	}
	if metrics == nil {
		metrics = observability.NoopMetrics{}
	}
	if publisher == nil {
		publisher = eventbus.NewNoopPublisher(logger)
	}

	c := &HTTPClient{
		baseURL:   base,
		client:    &http.Client{Timeout: cfg.Timeout},
		tokens:    tokens,
		publisher: publisher,
		logger:    logger,
		metrics:   metrics,
	}
	c.breaker = gobreaker.NewCircuitBreaker[[]byte](gobreaker.Settings{
		Name:        "billing",
		MaxRequests: cfg.Breaker.MaxRequests,
		Interval:    cfg.Breaker.Interval,
		Timeout:     cfg.Breaker.Timeout,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= cfg.Breaker.FailureThreshold
		},
		// Client errors are the caller's problem, not an outage.
		IsSuccessful: func(err error) bool {
			var se *StatusError
			return err == nil || (errors.As(err, &se) && se.Code < http.StatusInternalServerError)
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			logger.Info("circuit breaker state changed", "breaker", name, "from", from.String(), "to", to.String())
		},
	})
	return c, nil
}

// Products implements domain.Billing.
func (c *HTTPClient) Products(ctx context.Context, productID string) (domain.Catalog, error) {
	var catalog domain.Catalog
	if err := c.do(ctx, http.MethodGet, "products/"+url.PathEscape(productID), nil, &catalog); err != nil {
		return domain.Catalog{}, fmt.Errorf("load products: %w", err)
	}
	if err := eventbus.PublishEvent(ctx, c.publisher, domain.RoutingKeyProductsLoaded, EventSource, domain.ProductsLoaded{Catalog: catalog}); err != nil {
		c.logger.WarnContext(ctx, "failed to publish products loaded", "error", err)
	}
	return catalog, nil
}

// Purchases implements domain.Billing.
func (c *HTTPClient) Purchases(ctx context.Context) ([]domain.PurchaseResult, error) {
	var resp struct {
		Purchases []domain.PurchaseResult `json:"purchases"`
	}
	if err := c.do(ctx, http.MethodGet, "purchases", nil, &resp); err != nil {
		return nil, fmt.Errorf("list purchases: %w", err)
	}
	return resp.Purchases, nil
}

// Buy implements domain.Billing. The outcome is published as a purchase
// event. A failure is published too and the returned error then wraps
// domain.ErrPurchaseFailed.
func (c *HTTPClient) Buy(ctx context.Context, product domain.ProductInfo, offerToken string) (domain.PurchaseResult, error) {
	req := struct {
		ProductID  string `json:"product_id"`
		OfferToken string `json:"offer_token"`
	}{product.ID, offerToken}

	var result domain.PurchaseResult
	if err := c.do(ctx, http.MethodPost, "purchases", req, &result); err != nil {
		failed := domain.PurchaseFailed{ProductID: product.ID, OfferToken: offerToken, Reason: reason(err)}
		if pubErr := eventbus.PublishEvent(ctx, c.publisher, domain.RoutingKeyPurchaseFailed, EventSource, failed); pubErr != nil {
			return domain.PurchaseResult{}, errors.Join(err, pubErr)
		}
		return domain.PurchaseResult{}, fmt.Errorf("%w: %w", domain.ErrPurchaseFailed, err)
	}

	if err := eventbus.PublishEvent(ctx, c.publisher, domain.RoutingKeyPurchaseUpdated, EventSource, domain.PurchaseUpdated{Purchase: result}); err != nil {
		return result, fmt.Errorf("publish purchase: %w", err)
	}
	return result, nil
}

// Authenticate implements domain.Authenticator.
func (c *HTTPClient) Authenticate(ctx context.Context, purchaseToken string) (string, error) {
	req := struct {
		PurchaseToken string `json:"purchase_token"`
	}{purchaseToken}
	var resp struct {
		Token string `json:"token"`
	}
	if err := c.do(ctx, http.MethodPost, "auth/recover", req, &resp); err != nil {
		return "", fmt.Errorf("authenticate: %w", err)
	}
	if resp.Token == "" {
		return "", errors.New("authenticate: empty token in response")
	}
	return resp.Token, nil
}

func (c *HTTPClient) do(ctx context.Context, method, path string, body, out any) error {
	endpoint := observability.T("endpoint", method+" /"+path)
	c.metrics.Counter(observability.MetricBillingRequests, 1, endpoint)

	data, err := c.breaker.Execute(func() ([]byte, error) {
		return c.roundTrip(ctx, method, path, body)
	})
	if err != nil {
		c.metrics.Counter(observability.MetricBillingErrors, 1, endpoint)
		if errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests) {
			return ErrCircuitOpen
		}
		return err
	}
	if out == nil || len(data) == 0 {
		return nil
	}
	if err := json.Unmarshal(data, out); err != nil {
		return fmt.Errorf("decode response: %w", err)
	}
	return nil
}

func (c *HTTPClient) roundTrip(ctx context.Context, method, path string, body any) ([]byte, error) {
	var reader io.Reader
	if body != nil {
		buf, err := json.Marshal(body)
		if err != nil {
			return nil, fmt.Errorf("encode request: %w", err)
		}
		reader = bytes.NewReader(buf)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL.JoinPath(path).String(), reader)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Accept", "application/json")
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if id := observability.CorrelationIDFromContext(ctx); id != "" {
		req.Header.Set("X-Correlation-ID", id)
	}
	c.authorize(ctx, req)

	resp, err := c.client.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return nil, fmt.Errorf("read response: %w", err)
	}
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, &StatusError{Code: resp.StatusCode, Message: errorMessage(data)}
	}
	return data, nil
}

// authorize attaches the stored token, if any. Without a token the request
// goes out anonymously, which is how a purchase starts a new account.
func (c *HTTPClient) authorize(ctx context.Context, req *http.Request) {
	if c.tokens == nil {
		return
	}
	token, err := c.tokens.Token()
	if err != nil {
		c.logger.DebugContext(ctx, "no token for billing request", "error", err)
		return
	}
	token.SetAuthHeader(req)
}

func errorMessage(body []byte) string {
	var payload struct {
		Error string `json:"error"`
	}
	if json.Unmarshal(body, &payload) == nil && payload.Error != "" {
		return payload.Error
	}
	return strings.TrimSpace(string(body))
}

func reason(err error) string {
	var se *StatusError
	if errors.As(err, &se) && se.Message != "" {
		return se.Message
	}
	return err.Error()
}
