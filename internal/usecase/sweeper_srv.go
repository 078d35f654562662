package usecase

import (
	"context"
	"fmt"
	"time"

	"travel-booking/internal/data/entity"
	"travel-booking/internal/data/repository"
	"travel-booking/pkg/utils"

	"github.com/go-co-op/gocron/v2"
	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

// SweeperService marks stale pending attempts as expired so a booking never
// waits for a payment forever when no webhook or poll arrives.
type SweeperService interface {
	// Sweep runs one pass and returns how many attempts it expired.
	Sweep(ctx context.Context) (int, error)

	// Start schedules Sweep on the configured interval.
	Start() error
	Stop() error
}

type sweeperService struct {
	repo     *repository.Repository
	cache    *redis.Client
	interval time.Duration
	sched    gocron.Scheduler
	log      *zap.Logger
}

func NewSweeperService(repo *repository.Repository, cache *redis.Client, config *utils.Config, log *zap.Logger) SweeperService {
	return &sweeperService{
		repo:     repo,
		cache:    cache,
		interval: config.Payment.SweepInterval(),
		log:      log.With(zap.String("service", "sweeper")),
	}
}

func (s *sweeperService) Sweep(ctx context.Context) (int, error) {
	stale, err := s.repo.Attempt.ListPendingOlderThan(ctx, time.Now())
	if err != nil {
		return 0, fmt.Errorf("list stale attempts: %w", err)
	}

	expired := 0
	for _, attempt := range stale {
		// One bad record must not abort the sweep.
		if err := s.expire(ctx, attempt); err != nil {
			s.log.Error("Failed to expire attempt",
				zap.Error(err),
				zap.String("attempt_id", attempt.ID.String()),
				zap.String("gateway_ref", attempt.GatewayRef),
			)
			continue
		}
		expired++
	}

	if expired > 0 {
		s.log.Info("Expired stale payment attempts", zap.Int("count", expired))
	}

	return expired, nil
}

// expire uses the same conditional updates as status observation, so it can
// never race a simultaneous webhook into re-expiring a paid attempt.
func (s *sweeperService) expire(ctx context.Context, attempt *entity.PaymentAttempt) error {
	updated, err := s.repo.Attempt.UpdateStatusIfPending(ctx, attempt.ID, entity.AttemptStatusExpired, nil, time.Now())
	if err != nil {
		return err
	}
	if !updated {
		// A webhook or poll moved it first; their outcome stands.
		return nil
	}

	if _, err := s.repo.Booking.UpdateStatusIfCurrent(ctx, attempt.BookingID, entity.BookingStatusExpired, attempt.ID); err != nil {
		return err
	}

	s.invalidateStatus(ctx, attempt.BookingID)
	return nil
}

func (s *sweeperService) invalidateStatus(ctx context.Context, bookingID uuid.UUID) {
	if err := s.cache.Del(ctx, statusCacheKey(bookingID)).Err(); err != nil {
		s.log.Debug("Status cache invalidation failed", zap.Error(err))
	}
}

func (s *sweeperService) Start() error {
	sched, err := gocron.NewScheduler()
	if err != nil {
		return fmt.Errorf("init sweep scheduler: %w", err)
	}

	_, err = sched.NewJob(
		gocron.DurationJob(s.interval),
		gocron.NewTask(func() {
			ctx, cancel := context.WithTimeout(context.Background(), s.interval)
			defer cancel()

			if _, err := s.Sweep(ctx); err != nil {
				s.log.Error("Sweep pass failed", zap.Error(err))
			}
		}),
	)
	if err != nil {
		return fmt.Errorf("schedule sweep job: %w", err)
	}

	sched.Start()
	s.sched = sched

	s.log.Info("Expiry sweeper started", zap.Duration("interval", s.interval))
	return nil
}

func (s *sweeperService) Stop() error {
	if s.sched == nil {
		return nil
	}
	return s.sched.Shutdown()
}
