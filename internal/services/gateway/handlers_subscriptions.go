package gateway

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	subdomain "github.com/meridianpress/meridian/internal/services/subscription/domain"
)

type planJSON struct {
	Plan       string `json:"plan"`
	PriceCents int64  `json:"price_cents"`
	Currency   string `json:"currency"`
}

type subscriptionJSON struct {
	ID        string `json:"id"`
	Plan      string `json:"plan"`
	Status    string `json:"status"`
	AutoRenew bool   `json:"auto_renew"`
	StartedAt string `json:"started_at"`
	ExpiresAt string `json:"expires_at"`
}

type paymentJSON struct {
	ID             string `json:"id"`
	SubscriptionID string `json:"subscription_id"`
	Plan           string `json:"plan"`
	Kind           string `json:"kind"`
	AmountCents    int64  `json:"amount_cents"`
	Currency       string `json:"currency"`
	CreatedAt      string `json:"created_at"`
}

func toSubscriptionJSON(sub subdomain.Subscription) subscriptionJSON {
	return subscriptionJSON{
		ID:        sub.ID,
		Plan:      string(sub.Plan),
		Status:    string(sub.Status),
		AutoRenew: sub.AutoRenew,
		StartedAt: timeField(sub.StartedAt),
		ExpiresAt: timeField(sub.ExpiresAt),
	}
}

func (s *Server) handlePlans(w http.ResponseWriter, r *http.Request) {
	plans := s.services.Subscriptions.Plans()
	payload := make([]planJSON, 0, len(plans))
	for _, plan := range plans {
		payload = append(payload, planJSON{
			Plan:       string(plan.Plan),
			PriceCents: plan.PriceCents,
			Currency:   plan.Currency,
		})
	}
	s.writeJSON(w, r, http.StatusOK, payload)
}

type subscribeRequest struct {
	Plan string `json:"plan" validate:"required"`
}

func (s *Server) handleSubscribe(w http.ResponseWriter, r *http.Request) {
	var req subscribeRequest
	if err := decodeJSON(r, &req); err != nil {
		s.writeError(w, r, err)
		return
	}
	sub, err := s.services.Subscriptions.Subscribe(r.Context(), identityFrom(r), req.Plan)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	s.writeJSON(w, r, http.StatusCreated, toSubscriptionJSON(sub))
}

func (s *Server) handleCancelSubscription(w http.ResponseWriter, r *http.Request) {
	sub, err := s.services.Subscriptions.Cancel(r.Context(), identityFrom(r))
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	s.writeJSON(w, r, http.StatusOK, toSubscriptionJSON(sub))
}

func (s *Server) handleCurrentSubscription(w http.ResponseWriter, r *http.Request) {
	sub, err := s.services.Subscriptions.ActiveSubscription(r.Context(), identityFrom(r))
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	s.writeJSON(w, r, http.StatusOK, toSubscriptionJSON(sub))
}

func toPaymentJSON(payment subdomain.Payment) paymentJSON {
	return paymentJSON{
		ID:             payment.ID,
		SubscriptionID: payment.SubscriptionID,
		Plan:           string(payment.Plan),
		Kind:           string(payment.Kind),
		AmountCents:    payment.AmountCents,
		Currency:       payment.Currency,
		CreatedAt:      timeField(payment.CreatedAt),
	}
}

func (s *Server) handleListPayments(w http.ResponseWriter, r *http.Request) {
	payments, err := s.services.Subscriptions.Payments(r.Context(), identityFrom(r))
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	payload := make([]paymentJSON, 0, len(payments))
	for _, payment := range payments {
		payload = append(payload, toPaymentJSON(payment))
	}
	s.writeJSON(w, r, http.StatusOK, payload)
}

func (s *Server) handleRefundPayment(w http.ResponseWriter, r *http.Request) {
	refund, err := s.services.Subscriptions.Refund(r.Context(), identityFrom(r), chi.URLParam(r, "id"))
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	s.writeJSON(w, r, http.StatusCreated, toPaymentJSON(refund))
}
