package usecase

import (
	"context"
	"errors"
	"fmt"
	"time"

	"travel-booking/internal/data/repository"
	"travel-booking/internal/dto/response"
	"travel-booking/internal/gateway"
	"travel-booking/pkg/utils"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

// PollerService is the client-facing fallback when no webhook channel
// exists: it asks the gateway for the attempt status on a fixed interval,
// for a bounded number of rounds, feeding every answer through the same
// observation path a webhook would use.
type PollerService interface {
	Poll(ctx context.Context, bookingID string) (*response.PollResultResponse, error)
}

type pollerService struct {
	repo        *repository.Repository
	gw          gateway.Adapter
	payment     PaymentService
	interval    time.Duration
	maxAttempts int
	log         *zap.Logger
}

func NewPollerService(repo *repository.Repository, gw gateway.Adapter, payment PaymentService, config *utils.Config, log *zap.Logger) PollerService {
	return &pollerService{
		repo:        repo,
		gw:          gw,
		payment:     payment,
		interval:    config.Payment.PollInterval(),
		maxAttempts: config.Payment.PollMaxAttempts,
		log:         log.With(zap.String("service", "poller")),
	}
}

func (s *pollerService) Poll(ctx context.Context, bookingID string) (*response.PollResultResponse, error) {
	id, err := uuid.Parse(bookingID)
	if err != nil {
		return nil, fmt.Errorf("booking ID %q: %w", bookingID, ErrInvalidBookingID)
	}

	booking, err := s.repo.Booking.FindByID(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("load booking %s: %w", bookingID, err)
	}
	if booking == nil {
		return nil, fmt.Errorf("booking %s: %w", bookingID, ErrBookingNotFound)
	}
	if booking.Status.Terminal() {
		return response.PollResultToResponse(bookingID, booking.Status), nil
	}
	if booking.CurrentAttemptID == nil {
		return nil, fmt.Errorf("booking %s: %w", bookingID, ErrNoAttemptToPoll)
	}

	attempt, err := s.repo.Attempt.FindByID(ctx, *booking.CurrentAttemptID)
	if err != nil {
		return nil, fmt.Errorf("load attempt for booking %s: %w", bookingID, err)
	}
	if attempt == nil {
		return nil, fmt.Errorf("booking %s: %w", bookingID, ErrNoAttemptToPoll)
	}

	for round := 0; round < s.maxAttempts; round++ {
		if round > 0 {
			// Suspends between rounds; a caller navigating away cancels the
			// context and stops the loop promptly.
			select {
			case <-ctx.Done():
				return nil, ctx.Err()
			case <-time.After(s.interval):
			}
		}

		result, err := s.gw.QueryStatus(ctx, attempt.GatewayRef)
		if err != nil {
			switch {
			case errors.Is(err, gateway.ErrUnavailable):
				// Transient: burn the round, keep polling.
				s.log.Warn("Gateway unavailable during poll",
					zap.String("booking_id", bookingID),
					zap.Int("round", round+1),
				)
				continue
			case errors.Is(err, gateway.ErrNotFound):
				// Stale reference on the gateway side; log and discard,
				// the sweeper will settle the attempt locally.
				s.log.Warn("Gateway lost track of reference",
					zap.String("booking_id", bookingID),
					zap.String("gateway_ref", attempt.GatewayRef),
				)
				continue
			default:
				return nil, fmt.Errorf("poll booking %s: %w", bookingID, err)
			}
		}

		if err := s.payment.ObserveStatus(ctx, attempt.GatewayRef, result.Status, result.RawPayload, time.Now()); err != nil {
			s.log.Error("Failed to apply polled status",
				zap.Error(err),
				zap.String("booking_id", bookingID),
			)
		}

		booking, err = s.repo.Booking.FindByID(ctx, id)
		if err != nil {
			return nil, fmt.Errorf("reload booking %s: %w", bookingID, err)
		}
		if booking != nil && booking.Status.Terminal() {
			s.log.Info("Poll reached terminal status",
				zap.String("booking_id", bookingID),
				zap.String("status", string(booking.Status)),
				zap.Int("rounds", round+1),
			)
			return response.PollResultToResponse(bookingID, booking.Status), nil
		}
	}

	return nil, fmt.Errorf("booking %s: %w", bookingID, ErrPollTimeout)
}
