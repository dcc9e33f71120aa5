// Package domain defines subscription plans, the subscription lifecycle
// and the append-only payment ledger.
package domain

import (
	"strings"
	"time"

	apperrors "github.com/meridianpress/meridian/internal/platform/errors"
)

// Plan identifies a paid subscription tier.
type Plan string

const (
	// PlanFree is the default tier every account starts on. It carries
	// no subscription record and no ledger entries.
	PlanFree    Plan = "free"
	PlanMonthly Plan = "monthly"
	PlanAnnual  Plan = "annual"
)

// ParsePlan converts a wire value into a Plan.
func ParsePlan(value string) (Plan, bool) {
	switch Plan(strings.ToLower(strings.TrimSpace(value))) {
	case PlanFree:
		return PlanFree, true
	case PlanMonthly:
		return PlanMonthly, true
	case PlanAnnual:
		return PlanAnnual, true
	}
	return "", false
}

// PriceCents returns the plan's billing amount in cents.
func (p Plan) PriceCents() int64 {
	switch p {
	case PlanMonthly:
		return 900
	case PlanAnnual:
		return 9000
	}
	return 0
}

// Advance returns the period end for a billing period starting at from.
func (p Plan) Advance(from time.Time) time.Time {
	switch p {
	case PlanAnnual:
		return from.AddDate(1, 0, 0)
	default:
		return from.AddDate(0, 1, 0)
	}
}

// Status is the lifecycle state of a subscription.
type Status string

const (
	// StatusActive grants premium access until ExpiresAt and renews when
	// AutoRenew is on.
	StatusActive Status = "active"
	// StatusCanceled no longer renews; access runs to ExpiresAt.
	StatusCanceled Status = "canceled"
	// StatusExpired lapsed without renewal.
	StatusExpired Status = "expired"
)

// Subscription is one user's paid access period.
type Subscription struct {
	ID        string
	UserID    string
	Plan      Plan
	Status    Status
	AutoRenew bool
	StartedAt time.Time
	ExpiresAt time.Time
	CreatedAt time.Time
	UpdatedAt time.Time
}

// ActiveAt reports whether the subscription grants access at the given
// instant. Cancelled subscriptions keep access until the paid period
// ends.
func (s Subscription) ActiveAt(at time.Time) bool {
	if s.Status != StatusActive && s.Status != StatusCanceled {
		return false
	}
	return at.Before(s.ExpiresAt)
}

// PaymentKind distinguishes ledger entries. Refunds are recorded as
// their own positive entries, never by mutating the original charge.
type PaymentKind string

const (
	PaymentCharge  PaymentKind = "charge"
	PaymentRenewal PaymentKind = "renewal"
	PaymentRefund  PaymentKind = "refund"
)

// Payment is one immutable ledger entry. Entries are only ever appended.
type Payment struct {
	ID             string
	SubscriptionID string
	UserID         string
	Plan           Plan
	Kind           PaymentKind
	AmountCents    int64
	Currency       string
	CreatedAt      time.Time
}

// Validate checks the ledger entry before it is written.
func (p Payment) Validate() error {
	if p.AmountCents <= 0 {
		return apperrors.New(apperrors.CodeInvalidArgument, "payment amount must be positive")
	}
	if strings.TrimSpace(p.UserID) == "" {
		return apperrors.New(apperrors.CodeInvalidArgument, "payment requires a user")
	}
	return nil
}
