package usecase_test

import (
	"context"
	"fmt"
	"sync"
	"testing"
	"time"

	"travel-booking/internal/data/entity"
	"travel-booking/internal/data/repository"
	"travel-booking/internal/gateway"
	"travel-booking/internal/usecase"
	"travel-booking/pkg/utils"

	"github.com/go-redis/redismock/v9"
	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

// memStore backs the fake repositories with the same conditional-update
// semantics the SQL layer has, so service tests exercise the real races.
type memStore struct {
	mu       sync.Mutex
	bookings map[uuid.UUID]*entity.Booking
	attempts map[uuid.UUID]*entity.PaymentAttempt
}

func newMemStore() *memStore {
	return &memStore{
		bookings: make(map[uuid.UUID]*entity.Booking),
		attempts: make(map[uuid.UUID]*entity.PaymentAttempt),
	}
}

func (s *memStore) booking(id uuid.UUID) *entity.Booking {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.bookings[id]
}

func (s *memStore) attempt(id uuid.UUID) *entity.PaymentAttempt {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.attempts[id]
}

func (s *memStore) attemptCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.attempts)
}

type fakeBookingRepo struct {
	store *memStore
}

func (r *fakeBookingRepo) Create(ctx context.Context, booking *entity.Booking) error {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()
	cp := *booking
	r.store.bookings[booking.ID] = &cp
	return nil
}

func (r *fakeBookingRepo) FindByID(ctx context.Context, id uuid.UUID) (*entity.Booking, error) {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()
	booking, ok := r.store.bookings[id]
	if !ok {
		return nil, nil
	}
	cp := *booking
	return &cp, nil
}

func (r *fakeBookingRepo) SetCurrentAttempt(ctx context.Context, bookingID, attemptID uuid.UUID) (bool, error) {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()
	booking, ok := r.store.bookings[bookingID]
	if !ok || booking.Status == entity.BookingStatusPaid {
		return false, nil
	}
	booking.CurrentAttemptID = &attemptID
	booking.Status = entity.BookingStatusPending
	booking.UpdatedAt = time.Now()
	return true, nil
}

func (r *fakeBookingRepo) MarkPaid(ctx context.Context, bookingID uuid.UUID, externalRef string) error {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()
	booking, ok := r.store.bookings[bookingID]
	if !ok || booking.Status == entity.BookingStatusPaid {
		return nil
	}
	booking.Status = entity.BookingStatusPaid
	if booking.ExternalRef == nil {
		booking.ExternalRef = &externalRef
	}
	booking.UpdatedAt = time.Now()
	return nil
}

func (r *fakeBookingRepo) UpdateStatusIfCurrent(ctx context.Context, bookingID uuid.UUID, status entity.BookingStatus, attemptID uuid.UUID) (bool, error) {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()
	booking, ok := r.store.bookings[bookingID]
	if !ok || booking.Status != entity.BookingStatusPending {
		return false, nil
	}
	if booking.CurrentAttemptID == nil || *booking.CurrentAttemptID != attemptID {
		return false, nil
	}
	booking.Status = status
	booking.UpdatedAt = time.Now()
	return true, nil
}

func (r *fakeBookingRepo) DeleteWithAttempts(ctx context.Context, bookingID uuid.UUID) error {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()
	if _, ok := r.store.bookings[bookingID]; !ok {
		return fmt.Errorf("booking %s not found", bookingID.String())
	}
	delete(r.store.bookings, bookingID)
	for id, attempt := range r.store.attempts {
		if attempt.BookingID == bookingID {
			delete(r.store.attempts, id)
		}
	}
	return nil
}

type fakeAttemptRepo struct {
	store *memStore
}

func (r *fakeAttemptRepo) Create(ctx context.Context, attempt *entity.PaymentAttempt) error {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()
	cp := *attempt
	r.store.attempts[attempt.ID] = &cp
	return nil
}

func (r *fakeAttemptRepo) FindByID(ctx context.Context, id uuid.UUID) (*entity.PaymentAttempt, error) {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()
	attempt, ok := r.store.attempts[id]
	if !ok {
		return nil, nil
	}
	cp := *attempt
	return &cp, nil
}

func (r *fakeAttemptRepo) FindByGatewayRef(ctx context.Context, gatewayRef string) (*entity.PaymentAttempt, error) {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()
	for _, attempt := range r.store.attempts {
		if attempt.GatewayRef == gatewayRef {
			cp := *attempt
			return &cp, nil
		}
	}
	return nil, nil
}

func (r *fakeAttemptRepo) FindCurrentForBooking(ctx context.Context, bookingID uuid.UUID) (*entity.PaymentAttempt, error) {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()
	var latest *entity.PaymentAttempt
	for _, attempt := range r.store.attempts {
		if attempt.BookingID != bookingID {
			continue
		}
		if latest == nil || attempt.CreatedAt.After(latest.CreatedAt) {
			latest = attempt
		}
	}
	if latest == nil {
		return nil, nil
	}
	cp := *latest
	return &cp, nil
}

func (r *fakeAttemptRepo) ListPendingOlderThan(ctx context.Context, cutoff time.Time) ([]*entity.PaymentAttempt, error) {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()
	var stale []*entity.PaymentAttempt
	for _, attempt := range r.store.attempts {
		if attempt.Status == entity.AttemptStatusPending && attempt.ExpiresAt.Before(cutoff) {
			cp := *attempt
			stale = append(stale, &cp)
		}
	}
	return stale, nil
}

func (r *fakeAttemptRepo) UpdateStatusIfPending(ctx context.Context, id uuid.UUID, status entity.AttemptStatus, rawPayload []byte, observedAt time.Time) (bool, error) {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()
	attempt, ok := r.store.attempts[id]
	if !ok || attempt.Status != entity.AttemptStatusPending {
		return false, nil
	}
	attempt.Status = status
	if rawPayload != nil {
		attempt.RawPayload = rawPayload
	}
	attempt.LastObservedAt = &observedAt
	attempt.UpdatedAt = time.Now()
	return true, nil
}

// queryReply is one canned answer for fakeGateway.QueryStatus. The last reply
// repeats once the queue drains.
type queryReply struct {
	result *gateway.StatusResult
	err    error
}

type fakeGateway struct {
	mu          sync.Mutex
	window      time.Duration
	createErr   error
	createCalls int
	queryCalls  int
	queryQueue  []queryReply
	lastReply   *queryReply
}

func (g *fakeGateway) Name() string { return gateway.Midtrans }

func (g *fakeGateway) CreateAttempt(ctx context.Context, orderRef string, amount int64) (*gateway.CreateResult, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	if g.createErr != nil {
		return nil, g.createErr
	}
	g.createCalls++
	return &gateway.CreateResult{
		CheckoutRef: "https://pay.example/" + orderRef,
		ExpiresAt:   time.Now().Add(g.window),
	}, nil
}

func (g *fakeGateway) QueryStatus(ctx context.Context, orderRef string) (*gateway.StatusResult, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.queryCalls++
	if len(g.queryQueue) > 0 {
		reply := g.queryQueue[0]
		g.queryQueue = g.queryQueue[1:]
		g.lastReply = &reply
		return reply.result, reply.err
	}
	if g.lastReply != nil {
		return g.lastReply.result, g.lastReply.err
	}
	return nil, gateway.ErrUnavailable
}

func (g *fakeGateway) created() int {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.createCalls
}

func (g *fakeGateway) queried() int {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.queryCalls
}

type testEnv struct {
	store  *memStore
	repo   *repository.Repository
	gw     *fakeGateway
	cache  *redis.Client
	config *utils.Config
	svc    *usecase.Service
}

func testConfig() *utils.Config {
	return &utils.Config{
		Redis: utils.RedisConfig{StatusCacheTTLSeconds: 5},
		Payment: utils.PaymentConfig{
			ValidityWindowSeconds: 900,
			SweepIntervalSeconds:  60,
			PollIntervalSeconds:   0,
			PollMaxAttempts:       4,
		},
	}
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()

	store := newMemStore()
	repo := &repository.Repository{
		Booking: &fakeBookingRepo{store: store},
		Attempt: &fakeAttemptRepo{store: store},
	}
	config := testConfig()
	gw := &fakeGateway{window: config.Payment.ValidityWindow()}

	// Unexpected commands on the mock client fail, which the services
	// treat as a cache miss.
	cache, _ := redismock.NewClientMock()

	return &testEnv{
		store:  store,
		repo:   repo,
		gw:     gw,
		cache:  cache,
		config: config,
		svc:    usecase.NewService(repo, gw, cache, config, zap.NewNop()),
	}
}

func (e *testEnv) seedBooking(status entity.BookingStatus, amount int64, createdAt time.Time) *entity.Booking {
	booking := &entity.Booking{
		Base: entity.Base{
			ID:        uuid.New(),
			CreatedAt: createdAt,
			UpdatedAt: createdAt,
		},
		Amount: amount,
		Status: status,
	}
	e.repo.Booking.Create(context.Background(), booking)
	return booking
}

func (e *testEnv) seedAttempt(booking *entity.Booking, status entity.AttemptStatus, createdAt, expiresAt time.Time, current bool) *entity.PaymentAttempt {
	attempt := &entity.PaymentAttempt{
		Base: entity.Base{
			ID:        uuid.New(),
			CreatedAt: createdAt,
			UpdatedAt: createdAt,
		},
		BookingID:   booking.ID,
		Gateway:     gateway.Midtrans,
		GatewayRef:  "PAY-" + uuid.NewString()[:8],
		Amount:      booking.Amount,
		Status:      status,
		CheckoutRef: "https://pay.example/seeded",
		ExpiresAt:   expiresAt,
	}
	e.repo.Attempt.Create(context.Background(), attempt)

	if current {
		e.store.mu.Lock()
		e.store.bookings[booking.ID].CurrentAttemptID = &attempt.ID
		e.store.mu.Unlock()
	}
	return attempt
}
