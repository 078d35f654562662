package usecase

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"travel-booking/internal/data/entity"
	"travel-booking/internal/data/repository"
	"travel-booking/internal/dto/response"
	"travel-booking/internal/gateway"
	"travel-booking/pkg/utils"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

// gatewayStatusMaps is the one canonical mapping from provider status codes
// to local attempt statuses. Codes missing from a table are deliberately
// ignored rather than guessed.
var gatewayStatusMaps = map[string]map[string]entity.AttemptStatus{
	gateway.Midtrans: {
		"settlement": entity.AttemptStatusPaid,
		"capture":    entity.AttemptStatusPaid,
		"deny":       entity.AttemptStatusFailed,
		"cancel":     entity.AttemptStatusFailed,
		"failure":    entity.AttemptStatusFailed,
		"expire":     entity.AttemptStatusExpired,
	},
	gateway.Xendit: {
		"PAID":    entity.AttemptStatusPaid,
		"SETTLED": entity.AttemptStatusPaid,
		"FAILED":  entity.AttemptStatusFailed,
		"STOPPED": entity.AttemptStatusFailed,
		"EXPIRED": entity.AttemptStatusExpired,
	},
}

func mapGatewayStatus(gatewayName, code string) (entity.AttemptStatus, bool) {
	table, ok := gatewayStatusMaps[gatewayName]
	if !ok {
		return "", false
	}
	status, ok := table[code]
	return status, ok
}

type PaymentService interface {
	// RequestPayment returns the booking's reusable pending attempt, or
	// creates a fresh one at the gateway. Idempotent for repeated "pay"
	// clicks within the validity window.
	RequestPayment(ctx context.Context, bookingID string) (*response.PaymentAttemptResponse, error)

	// ObserveStatus merges one gateway status observation (webhook or poll)
	// into the attempt and, when relevant, its booking. Safe under provider
	// redelivery; unknown refs and unmapped codes are discarded.
	ObserveStatus(ctx context.Context, gatewayRef, observedStatus string, rawPayload []byte, observedAt time.Time) error

	GetStatus(ctx context.Context, bookingID string) (*response.PaymentStatusResponse, error)
	DeleteBooking(ctx context.Context, bookingID string) error
	CanDelete(booking *entity.Booking, current *entity.PaymentAttempt, now time.Time) (bool, string)
}

type paymentService struct {
	repo     *repository.Repository
	gw       gateway.Adapter
	cache    *redis.Client
	locks    *utils.KeyedMutex
	window   time.Duration
	cacheTTL time.Duration
	log      *zap.Logger
}

func NewPaymentService(repo *repository.Repository, gw gateway.Adapter, cache *redis.Client, config *utils.Config, log *zap.Logger) PaymentService {
	return &paymentService{
		repo:     repo,
		gw:       gw,
		cache:    cache,
		locks:    utils.NewKeyedMutex(),
		window:   config.Payment.ValidityWindow(),
		cacheTTL: config.Redis.StatusCacheTTL(),
		log:      log.With(zap.String("service", "payment")),
	}
}

func (s *paymentService) RequestPayment(ctx context.Context, bookingID string) (*response.PaymentAttemptResponse, error) {
	id, err := uuid.Parse(bookingID)
	if err != nil {
		return nil, fmt.Errorf("booking ID %q: %w", bookingID, ErrInvalidBookingID)
	}

	// The whole check-then-act sequence runs under a booking-scoped lock so
	// two concurrent "pay" clicks cannot both reach the gateway. Unrelated
	// bookings never contend.
	s.locks.Lock(id.String())
	defer s.locks.Unlock(id.String())

	booking, err := s.repo.Booking.FindByID(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("load booking %s: %w", bookingID, err)
	}
	if booking == nil {
		return nil, fmt.Errorf("booking %s: %w", bookingID, ErrBookingNotFound)
	}

	// Paid is absorbing: hand back the attempt that won, no gateway call.
	// The booking's current pointer is authoritative here; newest-by-creation
	// could surface an orphan left behind by a lost race.
	if booking.Status == entity.BookingStatusPaid {
		if booking.CurrentAttemptID == nil {
			return nil, fmt.Errorf("booking %s is paid but has no attempt on record", bookingID)
		}
		winner, err := s.repo.Attempt.FindByID(ctx, *booking.CurrentAttemptID)
		if err != nil {
			return nil, fmt.Errorf("load paid attempt for booking %s: %w", bookingID, err)
		}
		if winner == nil {
			return nil, fmt.Errorf("booking %s is paid but has no attempt on record", bookingID)
		}
		return response.AttemptToResponse(winner), nil
	}

	// Cancelled is terminal by the owner's decree, not by payment outcome;
	// it never re-enters the payment cycle.
	if booking.Status == entity.BookingStatusCancelled {
		return nil, fmt.Errorf("booking %s: %w", bookingID, ErrBookingCancelled)
	}

	current, err := s.repo.Attempt.FindCurrentForBooking(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("load current attempt for booking %s: %w", bookingID, err)
	}

	// Reuse a live pending attempt unchanged.
	if current != nil && current.Status == entity.AttemptStatusPending && time.Now().Before(current.ExpiresAt) {
		s.log.Debug("Reusing pending payment attempt",
			zap.String("booking_id", bookingID),
			zap.String("gateway_ref", current.GatewayRef),
		)
		return response.AttemptToResponse(current), nil
	}

	// No attempt, a terminal one, or a pending one past its window: issue a
	// new order. The stale pending attempt stays untouched for the sweeper.
	orderRef := utils.GeneratePaymentRef()
	created, err := s.gw.CreateAttempt(ctx, orderRef, booking.Amount)
	if err != nil {
		s.log.Warn("Gateway attempt creation failed",
			zap.Error(err),
			zap.String("booking_id", bookingID),
			zap.String("gateway", s.gw.Name()),
		)
		return nil, fmt.Errorf("create gateway attempt for booking %s: %w", bookingID, err)
	}

	now := time.Now()
	attempt := &entity.PaymentAttempt{
		Base: entity.Base{
			ID:        uuid.New(),
			CreatedAt: now,
			UpdatedAt: now,
		},
		BookingID:   id,
		Gateway:     s.gw.Name(),
		GatewayRef:  orderRef,
		Amount:      booking.Amount,
		Status:      entity.AttemptStatusPending,
		CheckoutRef: created.CheckoutRef,
		ExpiresAt:   created.ExpiresAt,
	}

	if err := s.repo.Attempt.Create(ctx, attempt); err != nil {
		return nil, fmt.Errorf("persist attempt for booking %s: %w", bookingID, err)
	}

	swapped, err := s.repo.Booking.SetCurrentAttempt(ctx, id, attempt.ID)
	if err != nil {
		return nil, fmt.Errorf("point booking %s at attempt: %w", bookingID, err)
	}
	if !swapped {
		// The booking got paid between our load and this write (a webhook
		// can land at any time). The fresh attempt is now an orphan the
		// sweeper will expire; tell the caller to retry and see paid.
		return nil, fmt.Errorf("booking %s: %w", bookingID, ErrConcurrentModification)
	}

	s.invalidateStatus(ctx, id)

	s.log.Info("Payment attempt created",
		zap.String("booking_id", bookingID),
		zap.String("attempt_id", attempt.ID.String()),
		zap.String("gateway", attempt.Gateway),
		zap.String("gateway_ref", attempt.GatewayRef),
		zap.Int64("amount", attempt.Amount),
		zap.Time("expires_at", attempt.ExpiresAt),
	)

	return response.AttemptToResponse(attempt), nil
}

func (s *paymentService) ObserveStatus(ctx context.Context, gatewayRef, observedStatus string, rawPayload []byte, observedAt time.Time) error {
	attempt, err := s.repo.Attempt.FindByGatewayRef(ctx, gatewayRef)
	if err != nil {
		return fmt.Errorf("look up attempt %s: %w", gatewayRef, err)
	}
	if attempt == nil {
		// Gateways notify about retired or foreign references; discard.
		s.log.Warn("Status observed for unknown gateway ref",
			zap.String("gateway_ref", gatewayRef),
			zap.String("observed_status", observedStatus),
		)
		return nil
	}

	if attempt.Status.Terminal() {
		s.log.Debug("Ignoring observation for terminal attempt",
			zap.String("gateway_ref", gatewayRef),
			zap.String("status", string(attempt.Status)),
			zap.String("observed_status", observedStatus),
		)
		return nil
	}

	mapped, ok := mapGatewayStatus(attempt.Gateway, observedStatus)
	if !ok {
		s.log.Debug("Ignoring unmapped gateway status",
			zap.String("gateway", attempt.Gateway),
			zap.String("gateway_ref", gatewayRef),
			zap.String("observed_status", observedStatus),
		)
		return nil
	}

	updated, err := s.repo.Attempt.UpdateStatusIfPending(ctx, attempt.ID, mapped, rawPayload, observedAt)
	if err != nil {
		return fmt.Errorf("apply status %s to attempt %s: %w", mapped, gatewayRef, err)
	}
	if !updated {
		// Another observer moved the attempt first; their outcome stands.
		return nil
	}

	switch mapped {
	case entity.AttemptStatusPaid:
		if err := s.repo.Booking.MarkPaid(ctx, attempt.BookingID, attempt.GatewayRef); err != nil {
			return fmt.Errorf("propagate paid to booking %s: %w", attempt.BookingID.String(), err)
		}
	case entity.AttemptStatusExpired, entity.AttemptStatusFailed:
		// Only the current attempt may drag the booking down; a stale
		// attempt's late failure must not mask a newer pending one.
		if _, err := s.repo.Booking.UpdateStatusIfCurrent(ctx, attempt.BookingID, entity.BookingStatus(mapped), attempt.ID); err != nil {
			return fmt.Errorf("propagate %s to booking %s: %w", mapped, attempt.BookingID.String(), err)
		}
	}

	s.invalidateStatus(ctx, attempt.BookingID)

	s.log.Info("Payment status observed",
		zap.String("booking_id", attempt.BookingID.String()),
		zap.String("gateway_ref", gatewayRef),
		zap.String("observed_status", observedStatus),
		zap.String("status", string(mapped)),
	)

	return nil
}

func (s *paymentService) GetStatus(ctx context.Context, bookingID string) (*response.PaymentStatusResponse, error) {
	id, err := uuid.Parse(bookingID)
	if err != nil {
		return nil, fmt.Errorf("booking ID %q: %w", bookingID, ErrInvalidBookingID)
	}

	if cached := s.cachedStatus(ctx, id); cached != nil {
		return cached.toResponse(bookingID), nil
	}

	booking, err := s.repo.Booking.FindByID(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("load booking %s: %w", bookingID, err)
	}
	if booking == nil {
		return nil, fmt.Errorf("booking %s: %w", bookingID, ErrBookingNotFound)
	}

	snapshot := statusSnapshot{Status: booking.Status}
	if booking.CurrentAttemptID != nil {
		attempt, err := s.repo.Attempt.FindByID(ctx, *booking.CurrentAttemptID)
		if err != nil {
			return nil, fmt.Errorf("load attempt for booking %s: %w", bookingID, err)
		}
		if attempt != nil {
			snapshot.ExpiresAt = attempt.ExpiresAt.Unix()
		}
	}

	s.storeStatus(ctx, id, snapshot)

	return snapshot.toResponse(bookingID), nil
}

func (s *paymentService) DeleteBooking(ctx context.Context, bookingID string) error {
	id, err := uuid.Parse(bookingID)
	if err != nil {
		return fmt.Errorf("booking ID %q: %w", bookingID, ErrInvalidBookingID)
	}

	// Same lock as RequestPayment: deletion must not race attempt creation.
	s.locks.Lock(id.String())
	defer s.locks.Unlock(id.String())

	booking, err := s.repo.Booking.FindByID(ctx, id)
	if err != nil {
		return fmt.Errorf("load booking %s: %w", bookingID, err)
	}
	if booking == nil {
		return fmt.Errorf("booking %s: %w", bookingID, ErrBookingNotFound)
	}

	var current *entity.PaymentAttempt
	if booking.CurrentAttemptID != nil {
		current, err = s.repo.Attempt.FindByID(ctx, *booking.CurrentAttemptID)
		if err != nil {
			return fmt.Errorf("load attempt for booking %s: %w", bookingID, err)
		}
	}

	ok, reason := s.CanDelete(booking, current, time.Now())
	if !ok {
		s.log.Warn("Booking deletion refused",
			zap.String("booking_id", bookingID),
			zap.String("reason", reason),
		)
		return &DeletionRefusedError{Reason: reason}
	}

	if err := s.repo.Booking.DeleteWithAttempts(ctx, id); err != nil {
		return fmt.Errorf("delete booking %s: %w", bookingID, err)
	}

	s.invalidateStatus(ctx, id)

	s.log.Info("Booking deleted",
		zap.String("booking_id", bookingID),
		zap.String("status", string(booking.Status)),
	)

	return nil
}

// CanDelete decides whether a booking may be destroyed. Paid bookings never
// may. A pending booking qualifies once its current attempt is functionally
// expired, even if the sweeper has not caught up yet.
func (s *paymentService) CanDelete(booking *entity.Booking, current *entity.PaymentAttempt, now time.Time) (bool, string) {
	switch booking.Status {
	case entity.BookingStatusPaid:
		return false, "booking is paid"
	case entity.BookingStatusExpired, entity.BookingStatusFailed, entity.BookingStatusCancelled:
		return true, ""
	}

	if current != nil {
		if now.Sub(current.CreatedAt) >= s.window {
			return true, ""
		}
		return false, "a payment attempt is still within its validity window"
	}

	// No attempt was ever issued; fall back to the booking's own age.
	if now.Sub(booking.CreatedAt) >= s.window {
		return true, ""
	}
	return false, "booking is still awaiting payment"
}

// ==================== STATUS CACHE ====================

// statusSnapshot is the cached shape of a booking's payment state. The
// remaining-seconds figure is recomputed on every read so a cache hit never
// freezes the countdown.
type statusSnapshot struct {
	Status    entity.BookingStatus `json:"status"`
	ExpiresAt int64                `json:"expires_at"`
}

func (c statusSnapshot) toResponse(bookingID string) *response.PaymentStatusResponse {
	remaining := 0
	if c.Status == entity.BookingStatusPending && c.ExpiresAt > 0 {
		if secs := int(time.Until(time.Unix(c.ExpiresAt, 0)).Seconds()); secs > 0 {
			remaining = secs
		}
	}
	return &response.PaymentStatusResponse{
		BookingID:        bookingID,
		Status:           c.Status,
		RemainingSeconds: remaining,
	}
}

func statusCacheKey(bookingID uuid.UUID) string {
	return "booking:payment:" + bookingID.String()
}

// Cache failures are never fatal; Postgres stays authoritative.

func (s *paymentService) cachedStatus(ctx context.Context, bookingID uuid.UUID) *statusSnapshot {
	val, err := s.cache.Get(ctx, statusCacheKey(bookingID)).Result()
	if err != nil {
		if err != redis.Nil {
			s.log.Debug("Status cache read failed", zap.Error(err))
		}
		return nil
	}

	var snapshot statusSnapshot
	if err := json.Unmarshal([]byte(val), &snapshot); err != nil {
		return nil
	}
	return &snapshot
}

func (s *paymentService) storeStatus(ctx context.Context, bookingID uuid.UUID, snapshot statusSnapshot) {
	val, err := json.Marshal(snapshot)
	if err != nil {
		return
	}
	if err := s.cache.Set(ctx, statusCacheKey(bookingID), val, s.cacheTTL).Err(); err != nil {
		s.log.Debug("Status cache write failed", zap.Error(err))
	}
}

func (s *paymentService) invalidateStatus(ctx context.Context, bookingID uuid.UUID) {
	if err := s.cache.Del(ctx, statusCacheKey(bookingID)).Err(); err != nil {
		s.log.Debug("Status cache invalidation failed", zap.Error(err))
	}
}
