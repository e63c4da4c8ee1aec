// Package mocksource simulates the ride-hailing app when no companion device
// is available, so the bot can be exercised end to end on a workstation.
package mocksource

import (
	"context"
	"math"
	"sync"

	"github.com/google/uuid"
	"golang.org/x/exp/rand"

	"panterabot/internal/bot/trip"
)

// Logger is a minimal logger interface required by the simulation.
type Logger interface {
	Infof(format string, args ...interface{})
}

// Source yields at most one random trip per poll.
type Source struct {
	mu     sync.Mutex
	rng    *rand.Rand
	chance float64
}

// New creates a simulated source. chance is the probability that a poll
// finds a trip; values outside (0, 1] fall back to 0.3.
func New(seed uint64, chance float64) *Source {
	if chance <= 0 || chance > 1 {
		chance = 0.3
	}
	return &Source{rng: rand.New(rand.NewSource(seed)), chance: chance}
}

// Poll returns a random trip or nothing.
func (s *Source) Poll(ctx context.Context) ([]trip.Trip, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.rng.Float64() >= s.chance {
		return nil, nil
	}
	return []trip.Trip{{
		ID:               uuid.NewString(),
		Pickup:           "Zona Colonial",
		Destination:      "Piantini",
		Distance:         round1(s.rng.Float64()*10 + 1),
		SuggestedPrice:   math.Round(s.rng.Float64()*300 + 100),
		PassengerRating:  round1(s.rng.Float64()*2 + 3),
		IsNewClient:      s.rng.Float64() > 0.7,
		HasMultipleStops: s.rng.Float64() > 0.8,
	}}, nil
}

func round1(v float64) float64 {
	return math.Round(v*10) / 10
}

// Actuator pretends to tap the bid button.
type Actuator struct {
	logger Logger
}

// NewActuator creates a simulated actuator.
func NewActuator(logger Logger) *Actuator {
	return &Actuator{logger: logger}
}

// PlaceBid logs the bid and always succeeds.
func (a *Actuator) PlaceBid(ctx context.Context, t trip.Trip, price float64) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	a.logger.Infof("simulated bid %.0f on trip %s", price, t.ID)
	return nil
}
