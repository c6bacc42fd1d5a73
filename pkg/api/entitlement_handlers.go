package api

import (
	"net/http"
	"time"

	"github.com/gorilla/mux"

	"github.com/iiiffi-e2/bell-registry-sub002/pkg/httputil"
	"github.com/iiiffi-e2/bell-registry-sub002/pkg/plans"
	"github.com/iiiffi-e2/bell-registry-sub002/pkg/subscription"
)

// listPlans returns the purchasable plan catalog
func (s *Server) listPlans(w http.ResponseWriter, _ *http.Request) {
	httputil.WriteJSON(w, http.StatusOK, map[string]interface{}{
		"plans": plans.All(),
	})
}

// getEntitlement answers whether the account may post a job right now
func (s *Server) getEntitlement(w http.ResponseWriter, r *http.Request) {
	accountID := mux.Vars(r)["id"]

	decision, err := s.entitlements.CanPostJob(r.Context(), accountID)
	if err != nil {
		s.logger.WithError(err).Error("entitlement check failed")
		httputil.WriteInternalError(w)
		return
	}

	httputil.WriteJSON(w, http.StatusOK, decision)
}

// getSubscription returns the account-facing subscription summary
func (s *Server) getSubscription(w http.ResponseWriter, r *http.Request) {
	accountID := mux.Vars(r)["id"]

	summary, err := s.entitlements.GetSummary(r.Context(), accountID)
	if subscription.IsNotFound(err) {
		httputil.WriteNotFound(w, "no subscription for account")
		return
	}
	if err != nil {
		s.logger.WithError(err).Error("subscription summary failed")
		httputil.WriteInternalError(w)
		return
	}

	httputil.WriteJSON(w, http.StatusOK, summary)
}

// reservePostingSlot claims a posting slot; 409 when denied
func (s *Server) reservePostingSlot(w http.ResponseWriter, r *http.Request) {
	accountID := mux.Vars(r)["id"]

	decision, err := s.entitlements.ReservePostingSlot(r.Context(), accountID)
	if err != nil {
		s.logger.WithError(err).Error("slot reservation failed")
		httputil.WriteInternalError(w)
		return
	}

	if !decision.Allowed {
		httputil.WriteJSON(w, http.StatusConflict, decision)
		return
	}
	httputil.WriteJSON(w, http.StatusCreated, decision)
}

// releasePostingSlot returns a slot whose listing write failed
func (s *Server) releasePostingSlot(w http.ResponseWriter, r *http.Request) {
	accountID := mux.Vars(r)["id"]

	if err := s.entitlements.ReleasePostingSlot(r.Context(), accountID); err != nil {
		s.logger.WithError(err).Error("slot release failed")
		httputil.WriteInternalError(w)
		return
	}

	httputil.WriteNoContent(w)
}

// ensureTrial creates the implicit trial record for a new account
func (s *Server) ensureTrial(w http.ResponseWriter, r *http.Request) {
	accountID := mux.Vars(r)["id"]

	var req struct {
		AccountCreatedAt time.Time `json:"account_created_at"`
	}
	if err := httputil.ParseJSON(r, &req); err != nil {
		httputil.WriteBadRequest(w, err.Error())
		return
	}
	if req.AccountCreatedAt.IsZero() {
		httputil.WriteBadRequest(w, "account_created_at is required")
		return
	}

	if err := s.entitlements.EnsureTrial(r.Context(), accountID, req.AccountCreatedAt); err != nil {
		s.logger.WithError(err).Error("trial bootstrap failed")
		httputil.WriteInternalError(w)
		return
	}

	httputil.WriteNoContent(w)
}
