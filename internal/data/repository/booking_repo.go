package repository

import (
	"context"
	"fmt"

	"travel-booking/internal/data/entity"
	"travel-booking/pkg/database"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"go.uber.org/zap"
)

type BookingRepository interface {
	Create(ctx context.Context, booking *entity.Booking) error
	FindByID(ctx context.Context, id uuid.UUID) (*entity.Booking, error)

	// Business queries
	SetCurrentAttempt(ctx context.Context, bookingID, attemptID uuid.UUID) (bool, error)
	MarkPaid(ctx context.Context, bookingID uuid.UUID, externalRef string) error
	UpdateStatusIfCurrent(ctx context.Context, bookingID uuid.UUID, status entity.BookingStatus, attemptID uuid.UUID) (bool, error)
	DeleteWithAttempts(ctx context.Context, bookingID uuid.UUID) error
}

type bookingRepository struct {
	db  database.PgxIface
	log *zap.Logger
}

func NewBookingRepository(db database.PgxIface, log *zap.Logger) BookingRepository {
	return &bookingRepository{
		db:  db,
		log: log.With(zap.String("repository", "booking")),
	}
}

func (r *bookingRepository) Create(ctx context.Context, booking *entity.Booking) error {
	query := `
		INSERT INTO bookings (id, amount, status, current_attempt_id, external_ref, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
	`

	_, err := r.db.Exec(ctx, query,
		booking.ID,
		booking.Amount,
		booking.Status,
		booking.CurrentAttemptID,
		booking.ExternalRef,
		booking.CreatedAt,
		booking.UpdatedAt,
	)

	if err != nil {
		r.log.Error("Failed to create booking",
			zap.Error(err),
			zap.String("booking_id", booking.ID.String()),
		)
		return fmt.Errorf("create booking %s: %w", booking.ID.String(), err)
	}

	return nil
}

func (r *bookingRepository) FindByID(ctx context.Context, id uuid.UUID) (*entity.Booking, error) {
	query := `
		SELECT id, amount, status, current_attempt_id, external_ref, created_at, updated_at
		FROM bookings
		WHERE id = $1
	`

	var booking entity.Booking
	err := r.db.QueryRow(ctx, query, id).Scan(
		&booking.ID,
		&booking.Amount,
		&booking.Status,
		&booking.CurrentAttemptID,
		&booking.ExternalRef,
		&booking.CreatedAt,
		&booking.UpdatedAt,
	)

	if err == pgx.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		r.log.Error("Failed to find booking by ID",
			zap.Error(err),
			zap.String("booking_id", id.String()),
		)
		return nil, fmt.Errorf("find booking by ID %s: %w", id.String(), err)
	}

	return &booking, nil
}

func (r *bookingRepository) SetCurrentAttempt(ctx context.Context, bookingID, attemptID uuid.UUID) (bool, error) {
	// A paid booking is immutable; the condition keeps a late attempt swap
	// from touching it. Zero rows reports the lost race to the caller.
	query := `
		UPDATE bookings
		SET current_attempt_id = $2, status = 'pending', updated_at = NOW()
		WHERE id = $1 AND status <> 'paid'
	`

	result, err := r.db.Exec(ctx, query, bookingID, attemptID)
	if err != nil {
		r.log.Error("Failed to set current attempt",
			zap.Error(err),
			zap.String("booking_id", bookingID.String()),
			zap.String("attempt_id", attemptID.String()),
		)
		return false, fmt.Errorf("set current attempt on booking %s: %w", bookingID.String(), err)
	}

	return result.RowsAffected() > 0, nil
}

func (r *bookingRepository) MarkPaid(ctx context.Context, bookingID uuid.UUID, externalRef string) error {
	// The external ref is stamped once; COALESCE keeps the first value.
	// Zero rows affected means the booking is already paid, which is fine:
	// the write has to be idempotent under webhook redelivery.
	query := `
		UPDATE bookings
		SET status = 'paid', external_ref = COALESCE(external_ref, $2), updated_at = NOW()
		WHERE id = $1 AND status <> 'paid'
	`

	_, err := r.db.Exec(ctx, query, bookingID, externalRef)
	if err != nil {
		r.log.Error("Failed to mark booking paid",
			zap.Error(err),
			zap.String("booking_id", bookingID.String()),
		)
		return fmt.Errorf("mark booking %s paid: %w", bookingID.String(), err)
	}

	return nil
}

func (r *bookingRepository) UpdateStatusIfCurrent(ctx context.Context, bookingID uuid.UUID, status entity.BookingStatus, attemptID uuid.UUID) (bool, error) {
	// Conditional single-row update: only the booking's current attempt may
	// drag the booking into a terminal status, and never out of paid.
	query := `
		UPDATE bookings
		SET status = $2, updated_at = NOW()
		WHERE id = $1 AND current_attempt_id = $3 AND status = 'pending'
	`

	result, err := r.db.Exec(ctx, query, bookingID, status, attemptID)
	if err != nil {
		r.log.Error("Failed to update booking status",
			zap.Error(err),
			zap.String("booking_id", bookingID.String()),
			zap.String("status", string(status)),
		)
		return false, fmt.Errorf("update booking %s status to %s: %w", bookingID.String(), string(status), err)
	}

	return result.RowsAffected() > 0, nil
}

func (r *bookingRepository) DeleteWithAttempts(ctx context.Context, bookingID uuid.UUID) error {
	tx, err := r.db.Begin(ctx)
	if err != nil {
		return fmt.Errorf("begin delete of booking %s: %w", bookingID.String(), err)
	}
	defer tx.Rollback(ctx)

	if _, err := tx.Exec(ctx, `DELETE FROM payment_attempts WHERE booking_id = $1`, bookingID); err != nil {
		r.log.Error("Failed to delete payment attempts",
			zap.Error(err),
			zap.String("booking_id", bookingID.String()),
		)
		return fmt.Errorf("delete attempts of booking %s: %w", bookingID.String(), err)
	}

	result, err := tx.Exec(ctx, `DELETE FROM bookings WHERE id = $1`, bookingID)
	if err != nil {
		r.log.Error("Failed to delete booking",
			zap.Error(err),
			zap.String("booking_id", bookingID.String()),
		)
		return fmt.Errorf("delete booking %s: %w", bookingID.String(), err)
	}

	if result.RowsAffected() == 0 {
		return fmt.Errorf("booking %s not found", bookingID.String())
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("commit delete of booking %s: %w", bookingID.String(), err)
	}

	r.log.Info("Booking deleted with attempts", zap.String("booking_id", bookingID.String()))
	return nil
}
