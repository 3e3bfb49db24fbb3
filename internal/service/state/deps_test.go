package state

import (
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vladislavdragonenkov/storefront/internal/domain"
	"github.com/vladislavdragonenkov/storefront/internal/events"
	"github.com/vladislavdragonenkov/storefront/internal/metrics"
)

func TestForManagerFillsDefaults(t *testing.T) {
	deps := Deps{Profile: "p1"}.ForManager("wallet")

	require.NotNil(t, deps.Logger)
	require.NotNil(t, deps.Now)
	require.NotNil(t, deps.NewID)
	assert.Equal(t, "wallet", deps.Logger.Data["component"])
	assert.Equal(t, "p1", deps.Logger.Data["profile"])
	assert.NotEqual(t, deps.NewID(), deps.NewID())
}

func TestPublishStampsProfileAndTime(t *testing.T) {
	fixed := time.Date(2026, 1, 2, 3, 4, 5, 0, time.FixedZone("X", 3600))
	bus := events.NewBus(nil, nil)

	var got events.Event
	bus.SubscribeAll(func(e events.Event) { got = e })

	deps := Deps{Profile: "p1", Bus: bus, Now: func() time.Time { return fixed }}.ForManager("test")
	deps.Publish(events.TopicWishlistChanged, events.ActionAdded, "sku-1", 2)

	assert.Equal(t, events.TopicWishlistChanged, got.Topic)
	assert.Equal(t, "p1", got.Profile)
	assert.Equal(t, "sku-1", got.EntityID)
	assert.Equal(t, 2, got.Count)
	assert.Equal(t, fixed.UTC(), got.OccurredAt)
}

func TestPublishWithoutBus(t *testing.T) {
	deps := Deps{}.ForManager("test")
	assert.NotPanics(t, func() { deps.Publish(events.TopicWalletChanged, events.ActionTopUp, "", 0) })
}

func TestResult(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want string
	}{
		{"nil", nil, metrics.ResultOK},
		{"storage", fmt.Errorf("%w: boom", domain.ErrStorageUnavailable), metrics.ResultError},
		{"validation", domain.NewValidationError([]error{domain.ErrCityRequired}), metrics.ResultInvalid},
		{"not found", domain.ErrAddressNotFound, metrics.ResultInvalid},
		{"other", errors.New("x"), metrics.ResultError},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, Result(tt.err))
		})
	}
}
