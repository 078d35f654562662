package usecase_test

import (
	"context"
	"testing"
	"time"

	"travel-booking/internal/data/entity"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSweep_ExpiresStaleAttempts(t *testing.T) {
	env := newTestEnv(t)

	staleA := env.seedBooking(entity.BookingStatusPending, 100000, time.Now().Add(-time.Hour))
	attemptA := env.seedAttempt(staleA, entity.AttemptStatusPending, time.Now().Add(-time.Hour), time.Now().Add(-time.Minute), true)

	staleB := env.seedBooking(entity.BookingStatusPending, 50000, time.Now().Add(-time.Hour))
	attemptB := env.seedAttempt(staleB, entity.AttemptStatusPending, time.Now().Add(-time.Hour), time.Now().Add(-30*time.Second), true)

	live := env.seedBooking(entity.BookingStatusPending, 75000, time.Now())
	liveAttempt := env.seedAttempt(live, entity.AttemptStatusPending, time.Now(), time.Now().Add(15*time.Minute), true)

	count, err := env.svc.Sweeper.Sweep(context.Background())

	require.NoError(t, err)
	assert.Equal(t, 2, count)

	assert.Equal(t, entity.AttemptStatusExpired, env.store.attempt(attemptA.ID).Status)
	assert.Equal(t, entity.BookingStatusExpired, env.store.booking(staleA.ID).Status)
	assert.Equal(t, entity.AttemptStatusExpired, env.store.attempt(attemptB.ID).Status)
	assert.Equal(t, entity.BookingStatusExpired, env.store.booking(staleB.ID).Status)

	assert.Equal(t, entity.AttemptStatusPending, env.store.attempt(liveAttempt.ID).Status)
	assert.Equal(t, entity.BookingStatusPending, env.store.booking(live.ID).Status)
}

func TestSweep_NothingBeforeDeadline(t *testing.T) {
	env := newTestEnv(t)
	booking := env.seedBooking(entity.BookingStatusPending, 100000, time.Now())
	attempt := env.seedAttempt(booking, entity.AttemptStatusPending, time.Now(), time.Now().Add(time.Minute), true)

	count, err := env.svc.Sweeper.Sweep(context.Background())

	require.NoError(t, err)
	assert.Equal(t, 0, count)
	assert.Equal(t, entity.AttemptStatusPending, env.store.attempt(attempt.ID).Status)
}

func TestSweep_SupersededAttemptDoesNotTouchBooking(t *testing.T) {
	env := newTestEnv(t)
	booking := env.seedBooking(entity.BookingStatusPending, 100000, time.Now().Add(-time.Hour))
	old := env.seedAttempt(booking, entity.AttemptStatusPending, time.Now().Add(-time.Hour), time.Now().Add(-time.Minute), false)
	fresh := env.seedAttempt(booking, entity.AttemptStatusPending, time.Now(), time.Now().Add(15*time.Minute), true)

	count, err := env.svc.Sweeper.Sweep(context.Background())

	require.NoError(t, err)
	assert.Equal(t, 1, count)
	assert.Equal(t, entity.AttemptStatusExpired, env.store.attempt(old.ID).Status)
	assert.Equal(t, entity.AttemptStatusPending, env.store.attempt(fresh.ID).Status)
	assert.Equal(t, entity.BookingStatusPending, env.store.booking(booking.ID).Status)
}

func TestSweep_NeverTouchesPaidBooking(t *testing.T) {
	env := newTestEnv(t)
	booking := env.seedBooking(entity.BookingStatusPaid, 100000, time.Now().Add(-time.Hour))
	// Orphan from a lost race, stale but still pointed at by the booking.
	orphan := env.seedAttempt(booking, entity.AttemptStatusPending, time.Now().Add(-time.Hour), time.Now().Add(-time.Minute), true)

	count, err := env.svc.Sweeper.Sweep(context.Background())

	require.NoError(t, err)
	assert.Equal(t, 1, count)
	assert.Equal(t, entity.AttemptStatusExpired, env.store.attempt(orphan.ID).Status)
	assert.Equal(t, entity.BookingStatusPaid, env.store.booking(booking.ID).Status)
}

func TestSweep_IdempotentAcrossPasses(t *testing.T) {
	env := newTestEnv(t)
	booking := env.seedBooking(entity.BookingStatusPending, 100000, time.Now().Add(-time.Hour))
	env.seedAttempt(booking, entity.AttemptStatusPending, time.Now().Add(-time.Hour), time.Now().Add(-time.Minute), true)

	first, err := env.svc.Sweeper.Sweep(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 1, first)

	second, err := env.svc.Sweeper.Sweep(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 0, second)
	assert.Equal(t, entity.BookingStatusExpired, env.store.booking(booking.ID).Status)
}
