package payments

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"time"

	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"

	"github.com/iiiffi-e2/bell-registry-sub002/pkg/observability"
	"github.com/iiiffi-e2/bell-registry-sub002/pkg/plans"
)

// PaymentStatusPaid is the provider's status for a settled session
const PaymentStatusPaid = "paid"

// CheckoutSession is the canonical session as reported by the provider.
// Only this, never the caller's payload, is trusted for payment facts.
type CheckoutSession struct {
	SessionRef    string       `json:"session_ref"`
	PaymentStatus string       `json:"payment_status"`
	AccountID     string       `json:"account_id"`
	PlanID        plans.PlanID `json:"plan_id"`
	CustomerRef   string       `json:"customer_ref"`
	AmountCents   int64        `json:"amount_cents"`
	Currency      string       `json:"currency"`
}

// Paid reports whether the session settled
func (s *CheckoutSession) Paid() bool {
	return s.PaymentStatus == PaymentStatusPaid
}

// ProviderClient retrieves checkout sessions from the payment provider
type ProviderClient interface {
	// GetCheckoutSession fetches the canonical session for a reference.
	// Returns TransientProviderError on timeouts and provider outages,
	// InvalidEventError when the session does not exist.
	GetCheckoutSession(ctx context.Context, sessionRef string) (*CheckoutSession, error)
}

// HTTPProviderClient implements ProviderClient over the provider's REST API
type HTTPProviderClient struct {
	baseURL string
	apiKey  string
	client  *http.Client
	metrics *observability.Metrics
}

// NewHTTPProviderClient creates a provider client. The timeout bounds every
// call; a session fetch that overruns it is reported as transient.
func NewHTTPProviderClient(baseURL, apiKey string, timeout time.Duration, metrics *observability.Metrics) *HTTPProviderClient {
	return &HTTPProviderClient{
		baseURL: baseURL,
		apiKey:  apiKey,
		client: &http.Client{
			Timeout:   timeout,
			Transport: otelhttp.NewTransport(http.DefaultTransport),
		},
		metrics: metrics,
	}
}

// GetCheckoutSession fetches the canonical session by reference
func (c *HTTPProviderClient) GetCheckoutSession(ctx context.Context, sessionRef string) (*CheckoutSession, error) {
	endpoint := fmt.Sprintf("%s/v1/checkout/sessions/%s", c.baseURL, url.PathEscape(sessionRef))

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create provider request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+c.apiKey)
	req.Header.Set("Accept", "application/json")

	began := time.Now()
	resp, err := c.client.Do(req)
	c.metrics.ProviderCallDuration.WithLabelValues("get_checkout_session").Observe(time.Since(began).Seconds())
	if err != nil {
		c.metrics.ProviderErrorsTotal.WithLabelValues("transport").Inc()
		return nil, &TransientProviderError{Operation: "get_checkout_session", Err: err}
	}
	defer resp.Body.Close()

	switch {
	case resp.StatusCode == http.StatusNotFound:
		c.metrics.ProviderErrorsTotal.WithLabelValues("not_found").Inc()
		return nil, &InvalidEventError{SessionRef: sessionRef, Reason: "session not found at provider"}
	case resp.StatusCode == http.StatusTooManyRequests || resp.StatusCode >= 500:
		c.metrics.ProviderErrorsTotal.WithLabelValues("provider_unavailable").Inc()
		return nil, &TransientProviderError{
			Operation: "get_checkout_session",
			Err:       fmt.Errorf("provider returned status %d", resp.StatusCode),
		}
	case resp.StatusCode != http.StatusOK:
		c.metrics.ProviderErrorsTotal.WithLabelValues("rejected").Inc()
		return nil, &InvalidEventError{
			SessionRef: sessionRef,
			Reason:     fmt.Sprintf("provider rejected session lookup with status %d", resp.StatusCode),
		}
	}

	var session CheckoutSession
	if err := json.NewDecoder(resp.Body).Decode(&session); err != nil {
		c.metrics.ProviderErrorsTotal.WithLabelValues("malformed_response").Inc()
		return nil, &TransientProviderError{Operation: "decode_checkout_session", Err: err}
	}
	if session.SessionRef == "" {
		session.SessionRef = sessionRef
	}

	return &session, nil
}
