package api

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/iiiffi-e2/bell-registry-sub002/pkg/entitlement"
	"github.com/iiiffi-e2/bell-registry-sub002/pkg/ledger"
	"github.com/iiiffi-e2/bell-registry-sub002/pkg/observability"
	"github.com/iiiffi-e2/bell-registry-sub002/pkg/payments"
	"github.com/iiiffi-e2/bell-registry-sub002/pkg/plans"
	"github.com/iiiffi-e2/bell-registry-sub002/pkg/subscription"
)

type mockEntitlements struct {
	canPostFunc     func(ctx context.Context, accountID string) (*entitlement.Decision, error)
	summaryFunc     func(ctx context.Context, accountID string) (*entitlement.Summary, error)
	reserveFunc     func(ctx context.Context, accountID string) (*entitlement.Decision, error)
	releaseFunc     func(ctx context.Context, accountID string) error
	ensureTrialFunc func(ctx context.Context, accountID string, createdAt time.Time) error
}

func (m *mockEntitlements) CanPostJob(ctx context.Context, accountID string) (*entitlement.Decision, error) {
	return m.canPostFunc(ctx, accountID)
}

func (m *mockEntitlements) GetSummary(ctx context.Context, accountID string) (*entitlement.Summary, error) {
	return m.summaryFunc(ctx, accountID)
}

func (m *mockEntitlements) ReservePostingSlot(ctx context.Context, accountID string) (*entitlement.Decision, error) {
	return m.reserveFunc(ctx, accountID)
}

func (m *mockEntitlements) ReleasePostingSlot(ctx context.Context, accountID string) error {
	return m.releaseFunc(ctx, accountID)
}

func (m *mockEntitlements) EnsureTrial(ctx context.Context, accountID string, createdAt time.Time) error {
	return m.ensureTrialFunc(ctx, accountID, createdAt)
}

type mockPayments struct {
	handleFunc func(ctx context.Context, sessionRef string) (*payments.Activated, error)
}

func (m *mockPayments) HandleConfirmedPayment(ctx context.Context, sessionRef string) (*payments.Activated, error) {
	return m.handleFunc(ctx, sessionRef)
}

type mockHistory struct {
	listFunc func(ctx context.Context, accountID string, limit int) ([]*ledger.Entry, error)
}

func (m *mockHistory) ListForAccount(ctx context.Context, accountID string, limit int) ([]*ledger.Entry, error) {
	return m.listFunc(ctx, accountID, limit)
}

func newTestServer(ents EntitlementService, pays PaymentService, hist HistoryService) *Server {
	logger := observability.NewLogger(observability.ErrorLevel, io.Discard)
	return NewServer(ents, pays, hist, logger)
}

func intPtr(n int) *int { return &n }

func TestListPlans(t *testing.T) {
	server := newTestServer(nil, nil, nil)

	rec := httptest.NewRecorder()
	server.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/v1/plans", nil))

	require.Equal(t, http.StatusOK, rec.Code)
	var body struct {
		Plans []plans.PlanDefinition `json:"plans"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Len(t, body.Plans, 5)
	assert.Equal(t, plans.PlanTrial, body.Plans[0].ID)
}

func TestGetEntitlement(t *testing.T) {
	ents := &mockEntitlements{canPostFunc: func(_ context.Context, accountID string) (*entitlement.Decision, error) {
		assert.Equal(t, "acct-1", accountID)
		return &entitlement.Decision{Allowed: false, Reason: entitlement.ReasonQuotaExhausted, Usage: 3, Quota: intPtr(3)}, nil
	}}
	server := newTestServer(ents, nil, nil)

	rec := httptest.NewRecorder()
	server.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/v1/accounts/acct-1/entitlement", nil))

	require.Equal(t, http.StatusOK, rec.Code)
	var decision entitlement.Decision
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &decision))
	assert.False(t, decision.Allowed)
	assert.Equal(t, entitlement.ReasonQuotaExhausted, decision.Reason)
}

func TestGetSubscription(t *testing.T) {
	end := time.Now().AddDate(0, 0, 20)
	ents := &mockEntitlements{summaryFunc: func(context.Context, string) (*entitlement.Summary, error) {
		return &entitlement.Summary{
			AccountID: "acct-1",
			PlanID:    plans.PlanBundle,
			Active:    true,
			PeriodEnd: &end,
			Quota:     intPtr(3),
			Usage:     1,
		}, nil
	}}
	server := newTestServer(ents, nil, nil)

	rec := httptest.NewRecorder()
	server.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/v1/accounts/acct-1/subscription", nil))

	require.Equal(t, http.StatusOK, rec.Code)
	var summary entitlement.Summary
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &summary))
	assert.Equal(t, plans.PlanBundle, summary.PlanID)
	assert.True(t, summary.Active)
}

func TestGetSubscriptionNotFound(t *testing.T) {
	ents := &mockEntitlements{summaryFunc: func(context.Context, string) (*entitlement.Summary, error) {
		return nil, subscription.ErrNotFound
	}}
	server := newTestServer(ents, nil, nil)

	rec := httptest.NewRecorder()
	server.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/v1/accounts/ghost/subscription", nil))
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestReservePostingSlot(t *testing.T) {
	t.Run("granted", func(t *testing.T) {
		ents := &mockEntitlements{reserveFunc: func(context.Context, string) (*entitlement.Decision, error) {
			return &entitlement.Decision{Allowed: true}, nil
		}}
		server := newTestServer(ents, nil, nil)

		rec := httptest.NewRecorder()
		server.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/api/v1/accounts/acct-1/posting-slots", nil))
		assert.Equal(t, http.StatusCreated, rec.Code)
	})

	t.Run("denied", func(t *testing.T) {
		ents := &mockEntitlements{reserveFunc: func(context.Context, string) (*entitlement.Decision, error) {
			return &entitlement.Decision{Allowed: false, Reason: entitlement.ReasonPlanExpired}, nil
		}}
		server := newTestServer(ents, nil, nil)

		rec := httptest.NewRecorder()
		server.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/api/v1/accounts/acct-1/posting-slots", nil))
		assert.Equal(t, http.StatusConflict, rec.Code)
		assert.Contains(t, rec.Body.String(), string(entitlement.ReasonPlanExpired))
	})
}

func TestReleasePostingSlot(t *testing.T) {
	ents := &mockEntitlements{releaseFunc: func(context.Context, string) error { return nil }}
	server := newTestServer(ents, nil, nil)

	rec := httptest.NewRecorder()
	server.ServeHTTP(rec, httptest.NewRequest(http.MethodDelete, "/api/v1/accounts/acct-1/posting-slots", nil))
	assert.Equal(t, http.StatusNoContent, rec.Code)
}

func TestEnsureTrial(t *testing.T) {
	var gotCreatedAt time.Time
	ents := &mockEntitlements{ensureTrialFunc: func(_ context.Context, _ string, createdAt time.Time) error {
		gotCreatedAt = createdAt
		return nil
	}}
	server := newTestServer(ents, nil, nil)

	body := bytes.NewBufferString(`{"account_created_at":"2026-03-01T00:00:00Z"}`)
	rec := httptest.NewRecorder()
	server.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/api/v1/accounts/acct-1/trial", body))

	assert.Equal(t, http.StatusNoContent, rec.Code)
	assert.Equal(t, 2026, gotCreatedAt.Year())
}

func TestEnsureTrialMissingTimestamp(t *testing.T) {
	server := newTestServer(&mockEntitlements{}, nil, nil)

	rec := httptest.NewRecorder()
	server.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/api/v1/accounts/acct-1/trial", bytes.NewBufferString(`{}`)))
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestListBillingHistory(t *testing.T) {
	var gotLimit int
	hist := &mockHistory{listFunc: func(_ context.Context, accountID string, limit int) ([]*ledger.Entry, error) {
		gotLimit = limit
		return []*ledger.Entry{
			{EntryID: "e-1", AccountID: accountID, SessionRef: "cs_1", PlanID: plans.PlanSpotlight, Status: ledger.StatusCompleted},
		}, nil
	}}
	server := newTestServer(nil, nil, hist)

	rec := httptest.NewRecorder()
	server.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/v1/accounts/acct-1/billing-history?limit=10", nil))

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, 10, gotLimit)
	assert.Contains(t, rec.Body.String(), "cs_1")
}

func webhookRequest(sessionRef string) *http.Request {
	body := bytes.NewBufferString(`{"session_ref":"` + sessionRef + `"}`)
	return httptest.NewRequest(http.MethodPost, "/api/v1/billing/webhook", body)
}

func TestHandleConfirmedPayment(t *testing.T) {
	pays := &mockPayments{handleFunc: func(_ context.Context, ref string) (*payments.Activated, error) {
		return &payments.Activated{AccountID: "acct-1", PlanID: plans.PlanBundle, SessionRef: ref}, nil
	}}
	server := newTestServer(nil, pays, nil)

	rec := httptest.NewRecorder()
	server.ServeHTTP(rec, webhookRequest("cs_123"))

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "acct-1")
}

func TestHandleConfirmedPaymentMissingSession(t *testing.T) {
	server := newTestServer(nil, &mockPayments{}, nil)

	rec := httptest.NewRecorder()
	server.ServeHTTP(rec, webhookRequest(""))
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestHandleConfirmedPaymentErrorMapping(t *testing.T) {
	tests := []struct {
		name       string
		err        error
		wantStatus int
	}{
		{
			name:       "invalid event is terminal",
			err:        &payments.InvalidEventError{SessionRef: "cs_123", Reason: "not paid"},
			wantStatus: http.StatusUnprocessableEntity,
		},
		{
			name:       "concurrent delivery conflict is retryable",
			err:        &payments.StateConflictError{SessionRef: "cs_123"},
			wantStatus: http.StatusConflict,
		},
		{
			name:       "provider outage is retryable",
			err:        &payments.TransientProviderError{Operation: "get_checkout_session", Err: errors.New("timeout")},
			wantStatus: http.StatusServiceUnavailable,
		},
		{
			name:       "persistence failure is retryable",
			err:        &payments.PersistenceError{Operation: "activation", Err: errors.New("connection reset")},
			wantStatus: http.StatusServiceUnavailable,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			pays := &mockPayments{handleFunc: func(context.Context, string) (*payments.Activated, error) {
				return nil, tt.err
			}}
			server := newTestServer(nil, pays, nil)

			rec := httptest.NewRecorder()
			server.ServeHTTP(rec, webhookRequest("cs_123"))
			assert.Equal(t, tt.wantStatus, rec.Code)
		})
	}
}

func TestConfirmEndpointUsesSameProcessor(t *testing.T) {
	called := false
	pays := &mockPayments{handleFunc: func(_ context.Context, ref string) (*payments.Activated, error) {
		called = true
		return &payments.Activated{SessionRef: ref, Duplicate: true}, nil
	}}
	server := newTestServer(nil, pays, nil)

	body := bytes.NewBufferString(`{"session_ref":"cs_123"}`)
	rec := httptest.NewRecorder()
	server.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/api/v1/billing/confirm", body))

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.True(t, called)
}
