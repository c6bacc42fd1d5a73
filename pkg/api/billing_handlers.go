package api

import (
	"net/http"

	"github.com/gorilla/mux"

	"github.com/iiiffi-e2/bell-registry-sub002/pkg/httputil"
	"github.com/iiiffi-e2/bell-registry-sub002/pkg/payments"
)

const (
	defaultHistoryLimit = 50
	maxHistoryLimit     = 500
)

// listBillingHistory returns the account's ledger entries, newest first
func (s *Server) listBillingHistory(w http.ResponseWriter, r *http.Request) {
	accountID := mux.Vars(r)["id"]
	limit := httputil.ParseQueryInt(r, "limit", defaultHistoryLimit, 1, maxHistoryLimit)

	entries, err := s.history.ListForAccount(r.Context(), accountID, limit)
	if err != nil {
		s.logger.WithError(err).Error("billing history listing failed")
		httputil.WriteInternalError(w)
		return
	}

	httputil.WriteJSON(w, http.StatusOK, map[string]interface{}{
		"account_id": accountID,
		"entries":    entries,
	})
}

// handleConfirmedPayment serves both the provider webhook and the
// success-page fallback. The body only names the session; every payment
// fact is re-fetched from the provider.
func (s *Server) handleConfirmedPayment(w http.ResponseWriter, r *http.Request) {
	var req struct {
		SessionRef string `json:"session_ref"`
	}
	if err := httputil.ParseJSON(r, &req); err != nil {
		httputil.WriteBadRequest(w, err.Error())
		return
	}
	if req.SessionRef == "" {
		httputil.WriteBadRequest(w, "session_ref is required")
		return
	}

	result, err := s.billing.HandleConfirmedPayment(r.Context(), req.SessionRef)
	if err != nil {
		s.writePaymentError(w, r, req.SessionRef, err)
		return
	}

	httputil.WriteJSON(w, http.StatusOK, result)
}

// writePaymentError maps the processor's taxonomy onto status codes:
// terminal errors must not be redelivered, retryable ones should be.
func (s *Server) writePaymentError(w http.ResponseWriter, r *http.Request, sessionRef string, err error) {
	log := s.logger.WithRequestScope(r.Context()).WithField("session_ref", sessionRef).WithError(err)

	switch {
	case payments.IsInvalidEvent(err):
		log.Warn("rejected invalid payment event")
		httputil.WriteRetryableError(w, http.StatusUnprocessableEntity, err.Error(), false)
	case payments.IsStateConflict(err):
		log.Info("payment event lost a concurrent delivery race")
		httputil.WriteRetryableError(w, http.StatusConflict, err.Error(), true)
	default:
		log.Error("payment event processing failed")
		httputil.WriteRetryableError(w, http.StatusServiceUnavailable, "payment processing failed, retry later", payments.IsRetryable(err))
	}
}
