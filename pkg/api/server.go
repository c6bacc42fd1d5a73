package api

import (
	"context"
	"net/http"
	"time"

	"github.com/gorilla/mux"

	"github.com/iiiffi-e2/bell-registry-sub002/pkg/entitlement"
	"github.com/iiiffi-e2/bell-registry-sub002/pkg/ledger"
	"github.com/iiiffi-e2/bell-registry-sub002/pkg/observability"
	"github.com/iiiffi-e2/bell-registry-sub002/pkg/payments"
)

// EntitlementService is the read/reserve surface consumed by the API
type EntitlementService interface {
	CanPostJob(ctx context.Context, accountID string) (*entitlement.Decision, error)
	GetSummary(ctx context.Context, accountID string) (*entitlement.Summary, error)
	ReservePostingSlot(ctx context.Context, accountID string) (*entitlement.Decision, error)
	ReleasePostingSlot(ctx context.Context, accountID string) error
	EnsureTrial(ctx context.Context, accountID string, accountCreatedAt time.Time) error
}

// PaymentService processes confirmed-payment notifications
type PaymentService interface {
	HandleConfirmedPayment(ctx context.Context, sessionRef string) (*payments.Activated, error)
}

// HistoryService reads billing history
type HistoryService interface {
	ListForAccount(ctx context.Context, accountID string, limit int) ([]*ledger.Entry, error)
}

// Server is the entitlement API server
type Server struct {
	router        *mux.Router
	billingRouter *mux.Router
	entitlements  EntitlementService
	billing       PaymentService
	history       HistoryService
	logger        *observability.Logger
}

// NewServer creates an API server and registers all routes
func NewServer(entitlements EntitlementService, billing PaymentService, history HistoryService, logger *observability.Logger) *Server {
	s := &Server{
		router:       mux.NewRouter(),
		entitlements: entitlements,
		billing:      billing,
		history:      history,
		logger:       logger,
	}
	s.setupRoutes()
	return s
}

// setupRoutes configures all the API routes
func (s *Server) setupRoutes() {
	// Plan catalog
	s.router.HandleFunc("/api/v1/plans", s.listPlans).Methods("GET")

	// Entitlement reads
	s.router.HandleFunc("/api/v1/accounts/{id}/entitlement", s.getEntitlement).Methods("GET")
	s.router.HandleFunc("/api/v1/accounts/{id}/subscription", s.getSubscription).Methods("GET")
	s.router.HandleFunc("/api/v1/accounts/{id}/billing-history", s.listBillingHistory).Methods("GET")

	// Slot reservation around listing writes
	s.router.HandleFunc("/api/v1/accounts/{id}/posting-slots", s.reservePostingSlot).Methods("POST")
	s.router.HandleFunc("/api/v1/accounts/{id}/posting-slots", s.releasePostingSlot).Methods("DELETE")

	// Trial bootstrap at account creation
	s.router.HandleFunc("/api/v1/accounts/{id}/trial", s.ensureTrial).Methods("POST")

	// Payment confirmation: provider webhook and success-page fallback.
	// These live on their own subrouter so rate limiting can be applied to
	// externally reachable endpoints without throttling internal reads.
	s.billingRouter = s.router.PathPrefix("/api/v1/billing").Subrouter()
	s.billingRouter.HandleFunc("/webhook", s.handleConfirmedPayment).Methods("POST")
	s.billingRouter.HandleFunc("/confirm", s.handleConfirmedPayment).Methods("POST")
}

// Router returns the underlying router for middleware wrapping
func (s *Server) Router() *mux.Router {
	return s.router
}

// BillingRouter returns the subrouter serving the payment confirmation
// endpoints
func (s *Server) BillingRouter() *mux.Router {
	return s.billingRouter
}

// ServeHTTP implements http.Handler
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.router.ServeHTTP(w, r)
}
