// Package storage defines persistence for subscriptions and the payment
// ledger.
package storage

import (
	"context"
	"errors"

	"github.com/meridianpress/meridian/internal/services/subscription/domain"
)

// ErrNotFound is returned when no matching subscription exists.
var ErrNotFound = errors.New("subscription not found")

// SubscriptionStore persists subscriptions and payments. Payments are
// append-only: implementations expose no update or delete for them.
type SubscriptionStore interface {
	CreateSubscription(ctx context.Context, subscription domain.Subscription) error
	// CreateSubscriptionWithPayment inserts the subscription and its
	// opening charge atomically so no subscription row can exist
	// without its ledger entry.
	CreateSubscriptionWithPayment(ctx context.Context, subscription domain.Subscription, payment domain.Payment) error
	GetSubscription(ctx context.Context, subscriptionID string) (domain.Subscription, error)
	GetLatestByUser(ctx context.Context, userID string) (domain.Subscription, error)
	UpdateSubscription(ctx context.Context, subscription domain.Subscription) error
	ListByUser(ctx context.Context, userID string) ([]domain.Subscription, error)
	CountActiveByPlan(ctx context.Context) (map[domain.Plan]int, error)

	AppendPayment(ctx context.Context, payment domain.Payment) error
	GetPayment(ctx context.Context, paymentID string) (domain.Payment, error)
	ListPayments(ctx context.Context, userID string) ([]domain.Payment, error)
	// RevenueCents sums the ledger: charges and renewals count in,
	// refunds count out.
	RevenueCents(ctx context.Context) (int64, error)
}
