package monitor

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"

	"panterabot/internal/bot/engine"
	"panterabot/internal/bot/settings"
	"panterabot/internal/bot/trip"
)

var (
	// ErrSourceUnavailable marks a failed trip poll. The tick is treated as empty.
	ErrSourceUnavailable = errors.New("trip source unavailable")
	// ErrActuationFailed marks a bid the actuator could not place. It is never retried.
	ErrActuationFailed = errors.New("bid actuation failed")
)

const (
	defaultTickTimeout  = 10 * time.Second
	defaultBatchWorkers = 4
)

// Notification titles shown to the driver.
const (
	TitleTripDetected = "🚗 Viaje Detectado"
	TitleBidPlaced    = "💰 Oferta Enviada"
	TitleBidFailed    = "❌ Oferta Fallida"
)

// Logger is a minimal logger interface required by the monitor.
type Logger interface {
	Debugf(format string, args ...interface{})
	Infof(format string, args ...interface{})
	Errorf(format string, args ...interface{})
}

// TripSource yields the trips currently visible in the ride-hailing app.
type TripSource interface {
	Poll(ctx context.Context) ([]trip.Trip, error)
}

// Resetter is implemented by sources that buffer trips between polls.
// Start calls Reset so a new run never sees trips reported before it.
type Resetter interface {
	Reset()
}

// BidActuator submits a bid for a trip.
type BidActuator interface {
	PlaceBid(ctx context.Context, t trip.Trip, price float64) error
}

// Notifier shows a message to the driver. Delivery is best effort.
type Notifier interface {
	Notify(ctx context.Context, title, body string) error
}

// SettingsProvider returns the latest settings snapshot.
type SettingsProvider interface {
	Settings() settings.Config
}

// Options tunes a Monitor. Zero values fall back to defaults.
type Options struct {
	TickTimeout  time.Duration
	BatchWorkers int
}

// Monitor polls the trip source on a fixed period and routes every trip
// through the decision engine. Ticks of one Monitor never overlap.
type Monitor struct {
	source   TripSource
	actuator BidActuator
	notifier Notifier
	settings SettingsProvider
	logger   Logger
	opts     Options
	stats    *Stats

	mu     sync.Mutex
	stopCh chan struct{}
	done   chan struct{}
}

// New creates a monitor instance.
func New(source TripSource, actuator BidActuator, notifier Notifier, provider SettingsProvider, logger Logger, opts Options) *Monitor {
	if opts.TickTimeout <= 0 {
		opts.TickTimeout = defaultTickTimeout
	}
	if opts.BatchWorkers <= 0 {
		opts.BatchWorkers = defaultBatchWorkers
	}
	return &Monitor{
		source:   source,
		actuator: actuator,
		notifier: notifier,
		settings: provider,
		logger:   logger,
		opts:     opts,
		stats:    &Stats{},
	}
}

// Stats exposes the counters accumulated across runs.
func (m *Monitor) Stats() *Stats {
	return m.stats
}

// Running reports whether a loop is active.
func (m *Monitor) Running() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.stopCh != nil
}

// Start launches the polling loop and returns immediately. The first tick
// fires one refresh interval after Start. Calling Start on a running
// monitor does nothing. Trips buffered by the source are discarded.
func (m *Monitor) Start(ctx context.Context) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.stopCh != nil {
		return
	}
	if r, ok := m.source.(Resetter); ok {
		r.Reset()
	}
	m.stopCh = make(chan struct{})
	m.done = make(chan struct{})
	go m.run(context.WithoutCancel(ctx), m.stopCh, m.done)
}

// Stop prevents any further tick from starting. A tick already in flight
// finishes and delivers its results before Stop returns.
func (m *Monitor) Stop() {
	m.mu.Lock()
	stopCh, done := m.stopCh, m.done
	m.stopCh, m.done = nil, nil
	m.mu.Unlock()
	if stopCh == nil {
		return
	}
	close(stopCh)
	<-done
}

func (m *Monitor) run(ctx context.Context, stopCh <-chan struct{}, done chan<- struct{}) {
	defer close(done)
	for {
		timer := time.NewTimer(m.settings.Settings().RefreshInterval())
		select {
		case <-stopCh:
			timer.Stop()
			return
		case <-timer.C:
		}
		select {
		case <-stopCh:
			return
		default:
		}
		m.tick(ctx)
	}
}

func (m *Monitor) tick(parent context.Context) {
	ctx, cancel := context.WithTimeout(parent, m.opts.TickTimeout)
	defer cancel()

	m.stats.markTick()
	trips, err := m.source.Poll(ctx)
	if err != nil {
		m.stats.sourceErrors.Add(1)
		m.logger.Errorf("monitor: poll failed: %v", fmt.Errorf("%w: %v", ErrSourceUnavailable, err))
		return
	}
	if len(trips) == 0 {
		return
	}

	var g errgroup.Group
	g.SetLimit(m.opts.BatchWorkers)
	for _, t := range trips {
		t := t
		g.Go(func() error {
			m.handle(ctx, t)
			return nil
		})
	}
	_ = g.Wait()
}

// handle evaluates one trip against the latest settings and routes the decision.
func (m *Monitor) handle(ctx context.Context, t trip.Trip) {
	cfg := m.settings.Settings()
	decision := engine.Evaluate(cfg, t)
	m.stats.detected.Add(1)

	if !decision.Accepted() {
		m.stats.filtered.Add(1)
		m.logger.Debugf("monitor: trip %s rejected (%s): distance=%.1fkm rating=%.1f", t.ID, decision.Reason, t.Distance, t.PassengerRating)
		return
	}

	price, priced := decision.Price()
	if !priced {
		m.stats.detectedOnly.Add(1)
		m.notify(ctx, TitleTripDetected, fmt.Sprintf("Nuevo viaje encontrado: %s → %s, %.1f km", t.Pickup, t.Destination, t.Distance))
		return
	}

	if err := m.actuator.PlaceBid(ctx, t, price); err != nil {
		m.stats.bidsFailed.Add(1)
		m.logger.Errorf("monitor: %v", fmt.Errorf("%w: trip %s: %v", ErrActuationFailed, t.ID, err))
		m.notify(ctx, TitleBidFailed, fmt.Sprintf("No se pudo ofertar %.0f por el viaje %s", price, t.ID))
		return
	}
	m.stats.bidsPlaced.Add(1)
	m.logger.Infof("monitor: bid %.0f placed for trip %s (%.1f km)", price, t.ID, t.Distance)
	m.notify(ctx, TitleBidPlaced, fmt.Sprintf("%.0f por %.1f km, %s → %s", price, t.Distance, t.Pickup, t.Destination))
}

func (m *Monitor) notify(ctx context.Context, title, body string) {
	if m.notifier == nil {
		return
	}
	if err := m.notifier.Notify(ctx, title, body); err != nil {
		m.logger.Errorf("monitor: notify %q failed: %v", title, err)
	}
}
