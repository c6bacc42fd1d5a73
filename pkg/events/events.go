package events

import (
	"bytes"
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/google/uuid"

	"github.com/iiiffi-e2/bell-registry-sub002/pkg/async"
	"github.com/iiiffi-e2/bell-registry-sub002/pkg/observability"
	"github.com/iiiffi-e2/bell-registry-sub002/pkg/plans"
)

// EventType identifies a domain event
type EventType string

const (
	EventSubscriptionActivated EventType = "subscription.activated"
	EventPaymentFailed         EventType = "payment.failed"
)

// Event is the payload delivered to the notification collaborator
type Event struct {
	ID         string       `json:"id"`
	Type       EventType    `json:"type"`
	Timestamp  time.Time    `json:"timestamp"`
	AccountID  string       `json:"account_id"`
	PlanID     plans.PlanID `json:"plan_id"`
	SessionRef string       `json:"session_ref,omitempty"`
}

// Publisher delivers domain events
type Publisher interface {
	Publish(ctx context.Context, event *Event) error
}

// HTTPPublisher posts signed events to a notification endpoint
type HTTPPublisher struct {
	url    string
	secret string
	client *http.Client
}

// NewHTTPPublisher creates a publisher for the given endpoint. The secret is
// optional; when set, deliveries carry an HMAC-SHA256 signature header.
func NewHTTPPublisher(url, secret string, timeout time.Duration) *HTTPPublisher {
	return &HTTPPublisher{
		url:    url,
		secret: secret,
		client: &http.Client{Timeout: timeout},
	}
}

// Publish delivers one event. Assigns the event ID and timestamp.
func (p *HTTPPublisher) Publish(ctx context.Context, event *Event) error {
	if event.ID == "" {
		event.ID = uuid.New().String()
	}
	if event.Timestamp.IsZero() {
		event.Timestamp = time.Now()
	}

	payload, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("failed to marshal event: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, p.url, bytes.NewReader(payload))
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}

	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("X-Entitlement-Event", string(event.Type))
	req.Header.Set("X-Entitlement-Event-ID", event.ID)
	if p.secret != "" {
		req.Header.Set("X-Entitlement-Signature", Sign(payload, p.secret))
	}

	resp, err := p.client.Do(req)
	if err != nil {
		return fmt.Errorf("failed to deliver event: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return fmt.Errorf("event delivery returned non-2xx status: %d", resp.StatusCode)
	}

	return nil
}

// Sign computes the HMAC-SHA256 signature for a payload
func Sign(payload []byte, secret string) string {
	mac := hmac.New(sha256.New, []byte(secret))
	mac.Write(payload)
	return "sha256=" + hex.EncodeToString(mac.Sum(nil))
}

// VerifySignature checks a delivery signature in constant time
func VerifySignature(payload []byte, signature, secret string) bool {
	return hmac.Equal([]byte(Sign(payload, secret)), []byte(signature))
}

// NopPublisher discards events. Used when no notification endpoint is
// configured.
type NopPublisher struct{}

func (NopPublisher) Publish(context.Context, *Event) error { return nil }

// Dispatcher publishes events on a supervised background goroutine so the
// caller never blocks on, or fails because of, notification delivery.
type Dispatcher struct {
	publisher Publisher
	logger    *observability.Logger
	timeout   time.Duration
}

// NewDispatcher wraps a publisher with fire-and-forget dispatch
func NewDispatcher(publisher Publisher, logger *observability.Logger, timeout time.Duration) *Dispatcher {
	return &Dispatcher{publisher: publisher, logger: logger, timeout: timeout}
}

// DispatchAsync publishes the event in the background. Delivery errors are
// logged, never returned. The delivery outlives the request that triggered
// it, so the parent's cancellation is stripped.
func (d *Dispatcher) DispatchAsync(ctx context.Context, event *Event) {
	async.SafeGo(context.WithoutCancel(ctx), d.logger, d.timeout, "publish "+string(event.Type), func(taskCtx context.Context) error {
		return d.publisher.Publish(taskCtx, event)
	})
}
