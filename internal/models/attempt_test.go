package models

import (
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestAttempt() *BookingAttempt {
	return NewBookingAttempt(Intent{
		Domain:      DomainRail,
		Origin:      "Colombo",
		Destination: "Kandy",
		WindowStart: time.Now().Add(time.Hour),
		PartySize:   1,
	}, 5*time.Minute, "")
}

func TestTransition(t *testing.T) {
	t.Run("Legal Forward Path", func(t *testing.T) {
		attempt := newTestAttempt()

		require.NoError(t, attempt.Transition(StateInitiated, StateEntityCollection, nil))
		require.NoError(t, attempt.Transition(StateEntityCollection, StateAvailabilityCheck, nil))
		require.NoError(t, attempt.Transition(StateAvailabilityCheck, StateSelection, nil))
		require.NoError(t, attempt.Transition(StateSelection, StateHold, nil))
		require.NoError(t, attempt.Transition(StateHold, StatePayment, nil))
		require.NoError(t, attempt.Transition(StatePayment, StateConfirmation, nil))
		require.NoError(t, attempt.Transition(StateConfirmation, StateCompleted, nil))

		assert.Equal(t, StateCompleted, attempt.CurrentState())
		assert.Equal(t, uint64(7), attempt.Version)
	})

	t.Run("Backward Edge From Hold", func(t *testing.T) {
		attempt := newTestAttempt()
		require.NoError(t, attempt.Transition(StateInitiated, StateEntityCollection, nil))
		require.NoError(t, attempt.Transition(StateEntityCollection, StateAvailabilityCheck, nil))
		require.NoError(t, attempt.Transition(StateAvailabilityCheck, StateSelection, nil))
		require.NoError(t, attempt.Transition(StateSelection, StateHold, nil))

		// The re-search edge is the only backward one
		require.NoError(t, attempt.Transition(StateHold, StateAvailabilityCheck, nil))
		assert.Equal(t, StateAvailabilityCheck, attempt.CurrentState())
	})

	t.Run("Illegal Edge Rejected", func(t *testing.T) {
		attempt := newTestAttempt()

		err := attempt.Transition(StateInitiated, StatePayment, nil)
		assert.ErrorIs(t, err, ErrInvalidTransition)
		assert.Equal(t, StateInitiated, attempt.CurrentState())
	})

	t.Run("Wrong From State Rejected", func(t *testing.T) {
		attempt := newTestAttempt()

		err := attempt.Transition(StateEntityCollection, StateAvailabilityCheck, nil)
		assert.ErrorIs(t, err, ErrInvalidTransition)
	})

	t.Run("Terminal Attempt Rejects Events", func(t *testing.T) {
		attempt := newTestAttempt()
		_, ok := attempt.Terminate(StateAbandoned, ReasonUserCancelled)
		require.True(t, ok)

		err := attempt.Transition(StateInitiated, StateEntityCollection, nil)
		assert.ErrorIs(t, err, ErrAttemptFinished)
	})
}

func TestTerminate(t *testing.T) {
	t.Run("Snapshot Carries Resources", func(t *testing.T) {
		attempt := newTestAttempt()
		hold := &Hold{CapacityUnit: "SEAT-1"}
		attempt.Update(func(a *BookingAttempt) {
			a.Hold = hold
		})

		snap, ok := attempt.Terminate(StateFailed, ReasonPaymentDeclined)
		require.True(t, ok)
		assert.Equal(t, hold, snap.Hold)
		assert.Equal(t, StateFailed, attempt.CurrentState())
		assert.Equal(t, ReasonPaymentDeclined, attempt.Reason)
	})

	t.Run("Exactly Once Under Race", func(t *testing.T) {
		attempt := newTestAttempt()
		attempt.Update(func(a *BookingAttempt) {
			a.Hold = &Hold{CapacityUnit: "SEAT-1"}
		})

		const racers = 20
		var wg sync.WaitGroup
		var mu sync.Mutex
		winners := 0

		for i := 0; i < racers; i++ {
			wg.Add(1)
			go func() {
				defer wg.Done()
				if _, ok := attempt.Terminate(StateAbandoned, ReasonUserCancelled); ok {
					mu.Lock()
					winners++
					mu.Unlock()
				}
			}()
		}
		wg.Wait()

		assert.Equal(t, 1, winners)
	})

	t.Run("Non Terminal State Rejected", func(t *testing.T) {
		attempt := newTestAttempt()
		_, ok := attempt.Terminate(StatePayment, ReasonNone)
		assert.False(t, ok)
		assert.Equal(t, StateInitiated, attempt.CurrentState())
	})

	t.Run("Refused While Confirming", func(t *testing.T) {
		attempt := attemptInConfirmation(t)

		// The confirm/store step is irreversible; an outside cancel or
		// sweep must not win while it is in flight
		_, ok := attempt.Terminate(StateAbandoned, ReasonUserCancelled)
		assert.False(t, ok)
		assert.Equal(t, StateConfirmation, attempt.CurrentState())
	})
}

func attemptInConfirmation(t *testing.T) *BookingAttempt {
	t.Helper()
	attempt := newTestAttempt()
	require.NoError(t, attempt.Transition(StateInitiated, StateEntityCollection, nil))
	require.NoError(t, attempt.Transition(StateEntityCollection, StateAvailabilityCheck, nil))
	require.NoError(t, attempt.Transition(StateAvailabilityCheck, StateSelection, nil))
	require.NoError(t, attempt.Transition(StateSelection, StateHold, nil))
	require.NoError(t, attempt.Transition(StateHold, StatePayment, func(a *BookingAttempt) {
		a.Hold = &Hold{CapacityUnit: "SEAT-1"}
	}))
	require.NoError(t, attempt.Transition(StatePayment, StateConfirmation, nil))
	return attempt
}

func TestFailConfirmation(t *testing.T) {
	t.Run("Terminates From Confirmation", func(t *testing.T) {
		attempt := attemptInConfirmation(t)

		snap, ok := attempt.FailConfirmation(ReasonConfirmFailed)
		require.True(t, ok)
		require.NotNil(t, snap.Hold)
		assert.Equal(t, "SEAT-1", snap.Hold.CapacityUnit)
		assert.Equal(t, StateFailed, attempt.CurrentState())
		assert.Equal(t, ReasonConfirmFailed, attempt.Reason)
	})

	t.Run("Refused Outside Confirmation", func(t *testing.T) {
		attempt := newTestAttempt()
		_, ok := attempt.FailConfirmation(ReasonConfirmFailed)
		assert.False(t, ok)
		assert.Equal(t, StateInitiated, attempt.CurrentState())
	})
}

func TestIsExpired(t *testing.T) {
	fresh := NewBookingAttempt(Intent{Domain: DomainRail}, time.Minute, "")
	assert.False(t, fresh.IsExpired())

	stale := NewBookingAttempt(Intent{Domain: DomainRail}, -time.Second, "")
	assert.True(t, stale.IsExpired())
}

func TestPaymentIdempotencyKey_Deterministic(t *testing.T) {
	attempt := newTestAttempt()
	hold := &Hold{}

	a := PaymentIdempotencyKey(attempt.AttemptID, hold.HoldID)
	b := PaymentIdempotencyKey(attempt.AttemptID, hold.HoldID)
	assert.Equal(t, a, b)
	assert.Len(t, a, 64)

	other := PaymentIdempotencyKey(attempt.AttemptID, newTestAttempt().AttemptID)
	assert.NotEqual(t, a, other)
}
