package mocksource

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"panterabot/internal/bot/trip"
)

func TestPollStaysInRange(t *testing.T) {
	src := New(42, 1)
	for i := 0; i < 200; i++ {
		trips, err := src.Poll(context.Background())
		require.NoError(t, err)
		require.Len(t, trips, 1)

		tr := trips[0]
		assert.NotEmpty(t, tr.ID)
		assert.GreaterOrEqual(t, tr.Distance, 1.0)
		assert.LessOrEqual(t, tr.Distance, 11.0)
		assert.GreaterOrEqual(t, tr.PassengerRating, 3.0)
		assert.LessOrEqual(t, tr.PassengerRating, 5.0)
		assert.GreaterOrEqual(t, tr.SuggestedPrice, 100.0)
		assert.LessOrEqual(t, tr.SuggestedPrice, 400.0)
	}
}

func TestPollChance(t *testing.T) {
	src := New(7, 0)
	found := 0
	for i := 0; i < 1000; i++ {
		trips, err := src.Poll(context.Background())
		require.NoError(t, err)
		found += len(trips)
	}
	assert.InDelta(t, 300, found, 80)
}

func TestActuatorRespectsContext(t *testing.T) {
	a := NewActuator(zap.NewNop().Sugar())
	assert.NoError(t, a.PlaceBid(context.Background(), trip.Trip{ID: "x"}, 100))

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	assert.ErrorIs(t, a.PlaceBid(ctx, trip.Trip{ID: "x"}, 100), context.Canceled)
}
