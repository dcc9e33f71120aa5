// Package sqlite provides a SQLite-backed subscription store.
package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"path/filepath"
	"strings"
	"time"

	"github.com/meridianpress/meridian/internal/platform/storage/sqlitemigrate"
	"github.com/meridianpress/meridian/internal/services/subscription/domain"
	"github.com/meridianpress/meridian/internal/services/subscription/storage"
	"github.com/meridianpress/meridian/internal/services/subscription/storage/sqlite/migrations"

	_ "modernc.org/sqlite"
)

// Store persists subscriptions and payments in SQLite.
type Store struct {
	sqlDB *sql.DB
}

func toMillis(value time.Time) int64 {
	if value.IsZero() {
		return 0
	}
	return value.UTC().UnixMilli()
}

func fromMillis(value int64) time.Time {
	if value == 0 {
		return time.Time{}
	}
	return time.UnixMilli(value).UTC()
}

// Open opens a SQLite subscription store and applies embedded migrations.
func Open(path string) (*Store, error) {
	if strings.TrimSpace(path) == "" {
		return nil, fmt.Errorf("storage path is required")
	}
	cleanPath := filepath.Clean(path)
	dsn := cleanPath + "?_journal_mode=WAL&_foreign_keys=ON&_busy_timeout=5000&_synchronous=NORMAL"
	sqlDB, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("open sqlite db: %w", err)
	}
	if err := sqlDB.Ping(); err != nil {
		_ = sqlDB.Close()
		return nil, fmt.Errorf("ping sqlite db: %w", err)
	}
	if err := sqlitemigrate.Apply(context.Background(), sqlDB, migrations.FS); err != nil {
		_ = sqlDB.Close()
		return nil, fmt.Errorf("run migrations: %w", err)
	}
	return &Store{sqlDB: sqlDB}, nil
}

// Close closes the SQLite handle.
func (s *Store) Close() error {
	if s == nil || s.sqlDB == nil {
		return nil
	}
	return s.sqlDB.Close()
}

const subscriptionColumns = `id, user_id, plan, status, auto_renew, started_at, expires_at, created_at, updated_at`

type execer interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
}

func insertSubscription(ctx context.Context, db execer, subscription domain.Subscription) error {
	if strings.TrimSpace(subscription.ID) == "" {
		return fmt.Errorf("subscription id is required")
	}
	createdAt := subscription.CreatedAt.UTC()
	if createdAt.IsZero() {
		createdAt = time.Now().UTC()
	}
	updatedAt := subscription.UpdatedAt.UTC()
	if updatedAt.IsZero() {
		updatedAt = createdAt
	}

	autoRenew := 0
	if subscription.AutoRenew {
		autoRenew = 1
	}
	_, err := db.ExecContext(
		ctx,
		`INSERT INTO subscriptions (`+subscriptionColumns+`) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		subscription.ID,
		subscription.UserID,
		string(subscription.Plan),
		string(subscription.Status),
		autoRenew,
		toMillis(subscription.StartedAt),
		toMillis(subscription.ExpiresAt),
		toMillis(createdAt),
		toMillis(updatedAt),
	)
	if err != nil {
		return fmt.Errorf("create subscription: %w", err)
	}
	return nil
}

func insertPayment(ctx context.Context, db execer, payment domain.Payment) error {
	if strings.TrimSpace(payment.ID) == "" {
		return fmt.Errorf("payment id is required")
	}
	createdAt := payment.CreatedAt.UTC()
	if createdAt.IsZero() {
		createdAt = time.Now().UTC()
	}
	_, err := db.ExecContext(
		ctx,
		`INSERT INTO payments (id, subscription_id, user_id, plan, kind, amount_cents, currency, created_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		payment.ID,
		payment.SubscriptionID,
		payment.UserID,
		string(payment.Plan),
		string(payment.Kind),
		payment.AmountCents,
		payment.Currency,
		toMillis(createdAt),
	)
	if err != nil {
		return fmt.Errorf("append payment: %w", err)
	}
	return nil
}

// CreateSubscription inserts one subscription record.
func (s *Store) CreateSubscription(ctx context.Context, subscription domain.Subscription) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if s == nil || s.sqlDB == nil {
		return fmt.Errorf("storage is not configured")
	}
	return insertSubscription(ctx, s.sqlDB, subscription)
}

// CreateSubscriptionWithPayment inserts the subscription and its opening
// charge in one transaction.
func (s *Store) CreateSubscriptionWithPayment(ctx context.Context, subscription domain.Subscription, payment domain.Payment) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if s == nil || s.sqlDB == nil {
		return fmt.Errorf("storage is not configured")
	}
	tx, err := s.sqlDB.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin transaction: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	if err := insertSubscription(ctx, tx, subscription); err != nil {
		return err
	}
	if err := insertPayment(ctx, tx, payment); err != nil {
		return err
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit subscription: %w", err)
	}
	return nil
}

// GetSubscription returns one subscription by ID.
func (s *Store) GetSubscription(ctx context.Context, subscriptionID string) (domain.Subscription, error) {
	if err := ctx.Err(); err != nil {
		return domain.Subscription{}, err
	}
	if s == nil || s.sqlDB == nil {
		return domain.Subscription{}, fmt.Errorf("storage is not configured")
	}
	row := s.sqlDB.QueryRowContext(
		ctx,
		`SELECT `+subscriptionColumns+` FROM subscriptions WHERE id = ?`,
		strings.TrimSpace(subscriptionID),
	)
	return scanSubscription(row)
}

// GetLatestByUser returns the user's most recent subscription.
func (s *Store) GetLatestByUser(ctx context.Context, userID string) (domain.Subscription, error) {
	if err := ctx.Err(); err != nil {
		return domain.Subscription{}, err
	}
	if s == nil || s.sqlDB == nil {
		return domain.Subscription{}, fmt.Errorf("storage is not configured")
	}
	row := s.sqlDB.QueryRowContext(
		ctx,
		`SELECT `+subscriptionColumns+` FROM subscriptions
		 WHERE user_id = ? ORDER BY created_at DESC, id DESC LIMIT 1`,
		strings.TrimSpace(userID),
	)
	return scanSubscription(row)
}

// UpdateSubscription overwrites one subscription record.
func (s *Store) UpdateSubscription(ctx context.Context, subscription domain.Subscription) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if s == nil || s.sqlDB == nil {
		return fmt.Errorf("storage is not configured")
	}
	autoRenew := 0
	if subscription.AutoRenew {
		autoRenew = 1
	}
	result, err := s.sqlDB.ExecContext(
		ctx,
		`UPDATE subscriptions SET plan = ?, status = ?, auto_renew = ?, started_at = ?, expires_at = ?, updated_at = ?
		 WHERE id = ?`,
		string(subscription.Plan),
		string(subscription.Status),
		autoRenew,
		toMillis(subscription.StartedAt),
		toMillis(subscription.ExpiresAt),
		toMillis(time.Now()),
		subscription.ID,
	)
	if err != nil {
		return fmt.Errorf("update subscription: %w", err)
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("update subscription rows affected: %w", err)
	}
	if affected == 0 {
		return storage.ErrNotFound
	}
	return nil
}

// ListByUser returns a user's subscription history, newest first.
func (s *Store) ListByUser(ctx context.Context, userID string) ([]domain.Subscription, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if s == nil || s.sqlDB == nil {
		return nil, fmt.Errorf("storage is not configured")
	}
	rows, err := s.sqlDB.QueryContext(
		ctx,
		`SELECT `+subscriptionColumns+` FROM subscriptions
		 WHERE user_id = ? ORDER BY created_at DESC, id DESC`,
		strings.TrimSpace(userID),
	)
	if err != nil {
		return nil, fmt.Errorf("list subscriptions: %w", err)
	}
	defer rows.Close()

	var subscriptions []domain.Subscription
	for rows.Next() {
		subscription, err := scanSubscription(rows)
		if err != nil {
			return nil, err
		}
		subscriptions = append(subscriptions, subscription)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate subscriptions: %w", err)
	}
	return subscriptions, nil
}

// CountActiveByPlan returns active subscription counts per plan.
func (s *Store) CountActiveByPlan(ctx context.Context) (map[domain.Plan]int, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if s == nil || s.sqlDB == nil {
		return nil, fmt.Errorf("storage is not configured")
	}
	rows, err := s.sqlDB.QueryContext(
		ctx,
		"SELECT plan, COUNT(*) FROM subscriptions WHERE status = ? AND expires_at > ? GROUP BY plan",
		string(domain.StatusActive), time.Now().UTC().UnixMilli(),
	)
	if err != nil {
		return nil, fmt.Errorf("count active by plan: %w", err)
	}
	defer rows.Close()

	counts := map[domain.Plan]int{}
	for rows.Next() {
		var plan string
		var count int
		if err := rows.Scan(&plan, &count); err != nil {
			return nil, fmt.Errorf("scan plan count: %w", err)
		}
		counts[domain.Plan(plan)] = count
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate plan counts: %w", err)
	}
	return counts, nil
}

// AppendPayment writes one immutable ledger entry.
func (s *Store) AppendPayment(ctx context.Context, payment domain.Payment) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if s == nil || s.sqlDB == nil {
		return fmt.Errorf("storage is not configured")
	}
	return insertPayment(ctx, s.sqlDB, payment)
}

// GetPayment returns one ledger entry by ID.
func (s *Store) GetPayment(ctx context.Context, paymentID string) (domain.Payment, error) {
	if err := ctx.Err(); err != nil {
		return domain.Payment{}, err
	}
	if s == nil || s.sqlDB == nil {
		return domain.Payment{}, fmt.Errorf("storage is not configured")
	}
	row := s.sqlDB.QueryRowContext(
		ctx,
		`SELECT id, subscription_id, user_id, plan, kind, amount_cents, currency, created_at
		 FROM payments WHERE id = ?`,
		strings.TrimSpace(paymentID),
	)
	var payment domain.Payment
	var plan, kind string
	var createdAt int64
	err := row.Scan(
		&payment.ID,
		&payment.SubscriptionID,
		&payment.UserID,
		&plan,
		&kind,
		&payment.AmountCents,
		&payment.Currency,
		&createdAt,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return domain.Payment{}, storage.ErrNotFound
		}
		return domain.Payment{}, fmt.Errorf("scan payment: %w", err)
	}
	payment.Plan = domain.Plan(plan)
	payment.Kind = domain.PaymentKind(kind)
	payment.CreatedAt = fromMillis(createdAt)
	return payment, nil
}

// RevenueCents sums the ledger, counting refunds negative.
func (s *Store) RevenueCents(ctx context.Context) (int64, error) {
	if err := ctx.Err(); err != nil {
		return 0, err
	}
	if s == nil || s.sqlDB == nil {
		return 0, fmt.Errorf("storage is not configured")
	}
	row := s.sqlDB.QueryRowContext(
		ctx,
		`SELECT COALESCE(SUM(CASE WHEN kind = ? THEN -amount_cents ELSE amount_cents END), 0) FROM payments`,
		string(domain.PaymentRefund),
	)
	var total int64
	if err := row.Scan(&total); err != nil {
		return 0, fmt.Errorf("sum revenue: %w", err)
	}
	return total, nil
}

// ListPayments returns a user's ledger entries, newest first.
func (s *Store) ListPayments(ctx context.Context, userID string) ([]domain.Payment, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if s == nil || s.sqlDB == nil {
		return nil, fmt.Errorf("storage is not configured")
	}
	rows, err := s.sqlDB.QueryContext(
		ctx,
		`SELECT id, subscription_id, user_id, plan, kind, amount_cents, currency, created_at
		 FROM payments WHERE user_id = ? ORDER BY created_at DESC, id DESC`,
		strings.TrimSpace(userID),
	)
	if err != nil {
		return nil, fmt.Errorf("list payments: %w", err)
	}
	defer rows.Close()

	var payments []domain.Payment
	for rows.Next() {
		var payment domain.Payment
		var plan, kind string
		var createdAt int64
		err := rows.Scan(
			&payment.ID,
			&payment.SubscriptionID,
			&payment.UserID,
			&plan,
			&kind,
			&payment.AmountCents,
			&payment.Currency,
			&createdAt,
		)
		if err != nil {
			return nil, fmt.Errorf("scan payment: %w", err)
		}
		payment.Plan = domain.Plan(plan)
		payment.Kind = domain.PaymentKind(kind)
		payment.CreatedAt = fromMillis(createdAt)
		payments = append(payments, payment)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate payments: %w", err)
	}
	return payments, nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanSubscription(row rowScanner) (domain.Subscription, error) {
	var subscription domain.Subscription
	var plan, status string
	var autoRenew int
	var startedAt, expiresAt, createdAt, updatedAt int64
	err := row.Scan(
		&subscription.ID,
		&subscription.UserID,
		&plan,
		&status,
		&autoRenew,
		&startedAt,
		&expiresAt,
		&createdAt,
		&updatedAt,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return domain.Subscription{}, storage.ErrNotFound
		}
		return domain.Subscription{}, fmt.Errorf("scan subscription: %w", err)
	}
	subscription.Plan = domain.Plan(plan)
	subscription.Status = domain.Status(status)
	subscription.AutoRenew = autoRenew != 0
	subscription.StartedAt = fromMillis(startedAt)
	subscription.ExpiresAt = fromMillis(expiresAt)
	subscription.CreatedAt = fromMillis(createdAt)
	subscription.UpdatedAt = fromMillis(updatedAt)
	return subscription, nil
}
