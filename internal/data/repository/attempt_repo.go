package repository

import (
	"context"
	"fmt"
	"time"

	"travel-booking/internal/data/entity"
	"travel-booking/pkg/database"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"go.uber.org/zap"
)

type AttemptRepository interface {
	Create(ctx context.Context, attempt *entity.PaymentAttempt) error
	FindByID(ctx context.Context, id uuid.UUID) (*entity.PaymentAttempt, error)
	FindByGatewayRef(ctx context.Context, gatewayRef string) (*entity.PaymentAttempt, error)
	FindCurrentForBooking(ctx context.Context, bookingID uuid.UUID) (*entity.PaymentAttempt, error)

	// Business queries
	ListPendingOlderThan(ctx context.Context, cutoff time.Time) ([]*entity.PaymentAttempt, error)
	UpdateStatusIfPending(ctx context.Context, id uuid.UUID, status entity.AttemptStatus, rawPayload []byte, observedAt time.Time) (bool, error)
}

type attemptRepository struct {
	db  database.PgxIface
	log *zap.Logger
}

func NewAttemptRepository(db database.PgxIface, log *zap.Logger) AttemptRepository {
	return &attemptRepository{
		db:  db,
		log: log.With(zap.String("repository", "attempt")),
	}
}

const attemptColumns = `id, booking_id, gateway, gateway_ref, amount, status, checkout_ref, expires_at, last_observed_at, raw_payload, created_at, updated_at`

func scanAttempt(row pgx.Row) (*entity.PaymentAttempt, error) {
	var attempt entity.PaymentAttempt
	err := row.Scan(
		&attempt.ID,
		&attempt.BookingID,
		&attempt.Gateway,
		&attempt.GatewayRef,
		&attempt.Amount,
		&attempt.Status,
		&attempt.CheckoutRef,
		&attempt.ExpiresAt,
		&attempt.LastObservedAt,
		&attempt.RawPayload,
		&attempt.CreatedAt,
		&attempt.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	return &attempt, nil
}

func (r *attemptRepository) Create(ctx context.Context, attempt *entity.PaymentAttempt) error {
	query := `
		INSERT INTO payment_attempts (` + attemptColumns + `)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)
	`

	_, err := r.db.Exec(ctx, query,
		attempt.ID,
		attempt.BookingID,
		attempt.Gateway,
		attempt.GatewayRef,
		attempt.Amount,
		attempt.Status,
		attempt.CheckoutRef,
		attempt.ExpiresAt,
		attempt.LastObservedAt,
		attempt.RawPayload,
		attempt.CreatedAt,
		attempt.UpdatedAt,
	)

	if err != nil {
		r.log.Error("Failed to create payment attempt",
			zap.Error(err),
			zap.String("booking_id", attempt.BookingID.String()),
			zap.String("gateway_ref", attempt.GatewayRef),
		)
		return fmt.Errorf("create attempt %s: %w", attempt.GatewayRef, err)
	}

	return nil
}

func (r *attemptRepository) FindByID(ctx context.Context, id uuid.UUID) (*entity.PaymentAttempt, error) {
	query := `SELECT ` + attemptColumns + ` FROM payment_attempts WHERE id = $1`

	attempt, err := scanAttempt(r.db.QueryRow(ctx, query, id))
	if err == pgx.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		r.log.Error("Failed to find attempt by ID",
			zap.Error(err),
			zap.String("attempt_id", id.String()),
		)
		return nil, fmt.Errorf("find attempt by ID %s: %w", id.String(), err)
	}

	return attempt, nil
}

func (r *attemptRepository) FindByGatewayRef(ctx context.Context, gatewayRef string) (*entity.PaymentAttempt, error) {
	query := `SELECT ` + attemptColumns + ` FROM payment_attempts WHERE gateway_ref = $1`

	attempt, err := scanAttempt(r.db.QueryRow(ctx, query, gatewayRef))
	if err == pgx.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		r.log.Error("Failed to find attempt by gateway ref",
			zap.Error(err),
			zap.String("gateway_ref", gatewayRef),
		)
		return nil, fmt.Errorf("find attempt by gateway ref %s: %w", gatewayRef, err)
	}

	return attempt, nil
}

func (r *attemptRepository) FindCurrentForBooking(ctx context.Context, bookingID uuid.UUID) (*entity.PaymentAttempt, error) {
	query := `
		SELECT ` + attemptColumns + `
		FROM payment_attempts
		WHERE booking_id = $1
		ORDER BY created_at DESC
		LIMIT 1
	`

	attempt, err := scanAttempt(r.db.QueryRow(ctx, query, bookingID))
	if err == pgx.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		r.log.Error("Failed to find current attempt for booking",
			zap.Error(err),
			zap.String("booking_id", bookingID.String()),
		)
		return nil, fmt.Errorf("find current attempt for booking %s: %w", bookingID.String(), err)
	}

	return attempt, nil
}

func (r *attemptRepository) ListPendingOlderThan(ctx context.Context, cutoff time.Time) ([]*entity.PaymentAttempt, error) {
	query := `
		SELECT ` + attemptColumns + `
		FROM payment_attempts
		WHERE status = 'pending' AND expires_at < $1
		ORDER BY expires_at
	`

	rows, err := r.db.Query(ctx, query, cutoff)
	if err != nil {
		r.log.Error("Failed to list pending attempts past cutoff",
			zap.Error(err),
			zap.Time("cutoff", cutoff),
		)
		return nil, fmt.Errorf("list pending attempts older than %s: %w", cutoff.Format(time.RFC3339), err)
	}
	defer rows.Close()

	var attempts []*entity.PaymentAttempt
	for rows.Next() {
		attempt, err := scanAttempt(rows)
		if err != nil {
			r.log.Error("Failed to scan attempt row", zap.Error(err))
			return nil, fmt.Errorf("scan attempt row: %w", err)
		}
		attempts = append(attempts, attempt)
	}

	return attempts, nil
}

func (r *attemptRepository) UpdateStatusIfPending(ctx context.Context, id uuid.UUID, status entity.AttemptStatus, rawPayload []byte, observedAt time.Time) (bool, error) {
	// Conditional update keeps the transition monotonic: a terminal attempt
	// never moves again, no matter who observes what afterwards.
	query := `
		UPDATE payment_attempts
		SET status = $2, raw_payload = COALESCE($3, raw_payload), last_observed_at = $4, updated_at = NOW()
		WHERE id = $1 AND status = 'pending'
	`

	result, err := r.db.Exec(ctx, query, id, status, rawPayload, observedAt)
	if err != nil {
		r.log.Error("Failed to update attempt status",
			zap.Error(err),
			zap.String("attempt_id", id.String()),
			zap.String("status", string(status)),
		)
		return false, fmt.Errorf("update attempt %s status to %s: %w", id.String(), string(status), err)
	}

	return result.RowsAffected() > 0, nil
}
