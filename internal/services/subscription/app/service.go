// Package app implements the subscription lifecycle: subscribing,
// auto-renewal, cancellation and the premium access check backing the
// paywall. Every charge lands in the append-only payment ledger.
package app

import (
	"context"
	"errors"
	"fmt"
	"time"

	apperrors "github.com/meridianpress/meridian/internal/platform/errors"
	"github.com/meridianpress/meridian/internal/platform/id"
	"github.com/meridianpress/meridian/internal/services/shared/authctx"
	"github.com/meridianpress/meridian/internal/services/subscription/domain"
	"github.com/meridianpress/meridian/internal/services/subscription/storage"
)

// Currency is the billing currency for all plans.
const Currency = "USD"

// Service manages subscriptions.
type Service struct {
	store storage.SubscriptionStore
	now   func() time.Time
}

// New creates a subscription service.
func New(store storage.SubscriptionStore) *Service {
	return &Service{store: store, now: time.Now}
}

// PlanInfo describes one offered plan for the plans listing.
type PlanInfo struct {
	Plan       domain.Plan
	PriceCents int64
	Currency   string
}

// Plans returns the offered plans, free tier first.
func (s *Service) Plans() []PlanInfo {
	return []PlanInfo{
		{Plan: domain.PlanFree, PriceCents: 0, Currency: Currency},
		{Plan: domain.PlanMonthly, PriceCents: domain.PlanMonthly.PriceCents(), Currency: Currency},
		{Plan: domain.PlanAnnual, PriceCents: domain.PlanAnnual.PriceCents(), Currency: Currency},
	}
}

// Subscribe starts a paid subscription for the actor and records the
// charge in the ledger. A user holds at most one active subscription.
func (s *Service) Subscribe(ctx context.Context, actor authctx.Identity, planName string) (domain.Subscription, error) {
	if actor.Anonymous() {
		return domain.Subscription{}, apperrors.New(apperrors.CodeAuthenticationMissing, "subscribing requires an account")
	}
	plan, ok := domain.ParsePlan(planName)
	if !ok {
		return domain.Subscription{}, apperrors.WithMetadata(
			apperrors.CodePlanUnknown, "unknown plan", map[string]string{"Plan": planName},
		)
	}
	if plan == domain.PlanFree {
		return domain.Subscription{}, apperrors.New(apperrors.CodePlanNotBillable, "the free tier needs no subscription")
	}

	// A user with no prior subscription is simply on the free tier.
	current, err := s.currentSubscription(ctx, actor.UserID)
	if err != nil && !errors.Is(err, apperrors.New(apperrors.CodeNotFound, "")) {
		return domain.Subscription{}, err
	}
	now := s.now().UTC()
	if current.ActiveAt(now) {
		return domain.Subscription{}, apperrors.New(apperrors.CodeSubscriptionExists, "an active subscription already exists")
	}

	subscription := domain.Subscription{
		ID:        id.New(),
		UserID:    actor.UserID,
		Plan:      plan,
		Status:    domain.StatusActive,
		AutoRenew: true,
		StartedAt: now,
		ExpiresAt: plan.Advance(now),
		CreatedAt: now,
		UpdatedAt: now,
	}
	payment, err := s.payment(subscription, domain.PaymentCharge, subscription.Plan.PriceCents(), now)
	if err != nil {
		return domain.Subscription{}, err
	}
	if err := s.store.CreateSubscriptionWithPayment(ctx, subscription, payment); err != nil {
		return domain.Subscription{}, fmt.Errorf("create subscription: %w", err)
	}
	return subscription, nil
}

// Cancel stops renewal. Access continues until the paid period ends.
// Any renewal already due is settled first so the final period is on
// the ledger before renewal stops.
func (s *Service) Cancel(ctx context.Context, actor authctx.Identity) (domain.Subscription, error) {
	if actor.Anonymous() {
		return domain.Subscription{}, apperrors.New(apperrors.CodeAuthenticationMissing, "cancelling requires an account")
	}
	current, err := s.settle(ctx, actor.UserID)
	if err != nil {
		return domain.Subscription{}, err
	}
	if !current.ActiveAt(s.now().UTC()) {
		return domain.Subscription{}, apperrors.New(apperrors.CodeSubscriptionNotActive, "no active subscription")
	}
	if current.Status == domain.StatusCanceled {
		return domain.Subscription{}, apperrors.New(apperrors.CodeSubscriptionNotRenewing, "subscription is already cancelled")
	}
	current.Status = domain.StatusCanceled
	current.AutoRenew = false
	current.UpdatedAt = s.now().UTC()
	if err := s.store.UpdateSubscription(ctx, current); err != nil {
		return domain.Subscription{}, fmt.Errorf("update subscription: %w", err)
	}
	return current, nil
}

// ActiveSubscription returns the actor's current subscription after
// settling any due renewal or expiry.
func (s *Service) ActiveSubscription(ctx context.Context, actor authctx.Identity) (domain.Subscription, error) {
	if actor.Anonymous() {
		return domain.Subscription{}, apperrors.New(apperrors.CodeAuthenticationMissing, "subscriptions require an account")
	}
	subscription, err := s.settle(ctx, actor.UserID)
	if err != nil {
		return domain.Subscription{}, err
	}
	if !subscription.ActiveAt(s.now().UTC()) {
		return domain.Subscription{}, apperrors.New(apperrors.CodeSubscriptionNotActive, "no active subscription")
	}
	return subscription, nil
}

// HasPremiumAccess reports whether the user currently holds an active
// subscription. This backs the article paywall.
func (s *Service) HasPremiumAccess(ctx context.Context, userID string) (bool, error) {
	subscription, err := s.settle(ctx, userID)
	if err != nil {
		if errors.Is(err, apperrors.New(apperrors.CodeNotFound, "")) {
			return false, nil
		}
		return false, err
	}
	return subscription.ActiveAt(s.now().UTC()), nil
}

// Payments returns the actor's ledger entries, newest first.
func (s *Service) Payments(ctx context.Context, actor authctx.Identity) ([]domain.Payment, error) {
	if actor.Anonymous() {
		return nil, apperrors.New(apperrors.CodeAuthenticationMissing, "the payment history requires an account")
	}
	payments, err := s.store.ListPayments(ctx, actor.UserID)
	if err != nil {
		return nil, fmt.Errorf("list payments: %w", err)
	}
	return payments, nil
}

// Stats returns active subscription counts per plan for the dashboard.
func (s *Service) Stats(ctx context.Context, actor authctx.Identity) (map[domain.Plan]int, error) {
	if !actor.Role.CanModerate() {
		return nil, apperrors.New(apperrors.CodePermissionDenied, "stats require the editor role")
	}
	counts, err := s.store.CountActiveByPlan(ctx)
	if err != nil {
		return nil, fmt.Errorf("count subscriptions: %w", err)
	}
	return counts, nil
}

// Revenue returns the ledger total in cents: charges and renewals minus
// refunds.
func (s *Service) Revenue(ctx context.Context, actor authctx.Identity) (int64, error) {
	if !actor.Role.CanModerate() {
		return 0, apperrors.New(apperrors.CodePermissionDenied, "revenue requires the editor role")
	}
	total, err := s.store.RevenueCents(ctx)
	if err != nil {
		return 0, fmt.Errorf("sum revenue: %w", err)
	}
	return total, nil
}

// Refund appends a refund entry mirroring one charge or renewal. The
// original entry is never touched.
func (s *Service) Refund(ctx context.Context, actor authctx.Identity, paymentID string) (domain.Payment, error) {
	if !actor.Role.CanAdminister() {
		return domain.Payment{}, apperrors.New(apperrors.CodePermissionDenied, "refunds require the admin role")
	}
	original, err := s.store.GetPayment(ctx, paymentID)
	if err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			return domain.Payment{}, apperrors.New(apperrors.CodeNotFound, "no such payment")
		}
		return domain.Payment{}, fmt.Errorf("load payment: %w", err)
	}
	if original.Kind == domain.PaymentRefund {
		return domain.Payment{}, apperrors.New(apperrors.CodePaymentNotRefundable, "a refund cannot be refunded")
	}

	refund := domain.Payment{
		ID:             id.New(),
		SubscriptionID: original.SubscriptionID,
		UserID:         original.UserID,
		Plan:           original.Plan,
		Kind:           domain.PaymentRefund,
		AmountCents:    original.AmountCents,
		Currency:       original.Currency,
		CreatedAt:      s.now().UTC(),
	}
	if err := refund.Validate(); err != nil {
		return domain.Payment{}, err
	}
	if err := s.store.AppendPayment(ctx, refund); err != nil {
		return domain.Payment{}, fmt.Errorf("append refund: %w", err)
	}
	return refund, nil
}

// settle loads the user's latest subscription and applies lazy renewal
// or expiry. There is no billing worker: periods roll over on access.
func (s *Service) settle(ctx context.Context, userID string) (domain.Subscription, error) {
	subscription, err := s.currentSubscription(ctx, userID)
	if err != nil {
		return domain.Subscription{}, err
	}
	now := s.now().UTC()
	if subscription.Status == domain.StatusExpired || now.Before(subscription.ExpiresAt) {
		return subscription, nil
	}

	if subscription.Status == domain.StatusCanceled || !subscription.AutoRenew {
		subscription.Status = domain.StatusExpired
		subscription.UpdatedAt = now
		if err := s.store.UpdateSubscription(ctx, subscription); err != nil {
			return domain.Subscription{}, fmt.Errorf("expire subscription: %w", err)
		}
		return subscription, nil
	}

	// Roll the period forward past now, one ledger entry per period.
	for !now.Before(subscription.ExpiresAt) {
		subscription.StartedAt = subscription.ExpiresAt
		subscription.ExpiresAt = subscription.Plan.Advance(subscription.ExpiresAt)
		if err := s.charge(ctx, subscription, domain.PaymentRenewal, now); err != nil {
			return domain.Subscription{}, err
		}
	}
	subscription.UpdatedAt = now
	if err := s.store.UpdateSubscription(ctx, subscription); err != nil {
		return domain.Subscription{}, fmt.Errorf("renew subscription: %w", err)
	}
	return subscription, nil
}

func (s *Service) currentSubscription(ctx context.Context, userID string) (domain.Subscription, error) {
	subscription, err := s.store.GetLatestByUser(ctx, userID)
	if err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			return domain.Subscription{}, apperrors.New(apperrors.CodeNotFound, "no subscription on record")
		}
		return domain.Subscription{}, fmt.Errorf("load subscription: %w", err)
	}
	return subscription, nil
}

func (s *Service) payment(subscription domain.Subscription, kind domain.PaymentKind, amountCents int64, at time.Time) (domain.Payment, error) {
	payment := domain.Payment{
		ID:             id.New(),
		SubscriptionID: subscription.ID,
		UserID:         subscription.UserID,
		Plan:           subscription.Plan,
		Kind:           kind,
		AmountCents:    amountCents,
		Currency:       Currency,
		CreatedAt:      at,
	}
	if err := payment.Validate(); err != nil {
		return domain.Payment{}, err
	}
	return payment, nil
}

func (s *Service) charge(ctx context.Context, subscription domain.Subscription, kind domain.PaymentKind, at time.Time) error {
	payment, err := s.payment(subscription, kind, subscription.Plan.PriceCents(), at)
	if err != nil {
		return err
	}
	if err := s.store.AppendPayment(ctx, payment); err != nil {
		return fmt.Errorf("append payment: %w", err)
	}
	return nil
}
