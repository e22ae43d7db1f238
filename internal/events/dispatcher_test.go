package events

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPublishRunsEveryHandler(t *testing.T) {
	t.Parallel()

	d := NewInMemoryDispatcher()
	var calls []string
	d.Subscribe(EventTicketsIngested, func(context.Context, Event) error {
		calls = append(calls, "first")
		return errors.New("cache down")
	})
	d.Subscribe(EventTicketsIngested, func(context.Context, Event) error {
		calls = append(calls, "second")
		return nil
	})
	d.Subscribe(EventTicketsCleared, func(context.Context, Event) error {
		calls = append(calls, "other")
		return nil
	})

	err := d.Publish(context.Background(), NewEvent(EventTicketsIngested, time.Now(), TicketsIngestedPayload{}))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "cache down")
	assert.Equal(t, []string{"first", "second"}, calls)
}

func TestPublishRecoversPanickingHandler(t *testing.T) {
	t.Parallel()

	d := NewInMemoryDispatcher()
	ran := false
	d.Subscribe(EventLedgerComputed, func(context.Context, Event) error {
		panic("metrics exploded")
	})
	d.Subscribe(EventLedgerComputed, func(context.Context, Event) error {
		ran = true
		return nil
	})

	var err error
	require.NotPanics(t, func() {
		err = d.Publish(context.Background(), NewEvent(EventLedgerComputed, time.Now(), LedgerComputedPayload{}))
	})
	require.Error(t, err)
	assert.Contains(t, err.Error(), string(EventLedgerComputed)+" handler 0: panic: metrics exploded")
	assert.True(t, ran)
}

func TestPublishWithoutSubscribersIsNoop(t *testing.T) {
	t.Parallel()

	d := NewInMemoryDispatcher()
	assert.NoError(t, d.Publish(context.Background(), NewEvent(EventScheduleUpdated, time.Now(), nil)))
}

func TestNewEventAssignsUniqueIDs(t *testing.T) {
	t.Parallel()

	a := NewEvent(EventLedgerComputed, time.Now(), nil)
	b := NewEvent(EventLedgerComputed, time.Now(), nil)
	assert.NotEmpty(t, a.ID)
	assert.NotEqual(t, a.ID, b.ID)
}
