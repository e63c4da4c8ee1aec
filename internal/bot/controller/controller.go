package controller

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"

	"panterabot/internal/bot/fsm"
	"panterabot/internal/bot/monitor"
	"panterabot/internal/bot/settings"
	"panterabot/internal/bot/store"
)

// Driver-facing notification texts, in the language of the driver app.
const (
	TitleStarted      = "🤖 Pantera Bot Iniciado"
	BodyStartedBids   = "Buscando y ofertando viajes automáticamente"
	BodyStartedFilter = "Solo funciones de filtrado activas"
	TitleStopped      = "⏹️ Bot Detenido"
	BodyStopped       = "Pantera Bot ha sido detenido"
)

// Logger provides minimal logging required by the controller.
type Logger interface {
	Infof(format string, args ...interface{})
	Errorf(format string, args ...interface{})
}

// Store persists the driver's settings between sessions.
type Store interface {
	Load(ctx context.Context) (settings.Config, error)
	Save(ctx context.Context, cfg settings.Config) error
}

// Loop is the periodic monitor the controller starts and stops.
type Loop interface {
	Start(ctx context.Context)
	Stop()
	Stats() *monitor.Stats
}

// LoopFactory builds the loop; the controller passes itself as the settings source.
type LoopFactory func(provider monitor.SettingsProvider) Loop

// Controller owns the run state and the active settings. Start, Stop,
// Configure and Restore are serialized; Settings is lock-free so monitor
// ticks never wait on a lifecycle call.
type Controller struct {
	store    Store
	notifier monitor.Notifier
	logger   Logger
	loop     Loop

	mu      sync.Mutex
	state   fsm.State
	current atomic.Pointer[settings.Config]
}

// New constructs a Controller in the idle state with default settings.
func New(st Store, notifier monitor.Notifier, logger Logger, newLoop LoopFactory) *Controller {
	c := &Controller{
		store:    st,
		notifier: notifier,
		logger:   logger,
		state:    fsm.StateIdle,
	}
	cfg := settings.Default()
	c.current.Store(&cfg)
	c.loop = newLoop(c)
	return c
}

// Settings returns the active settings snapshot.
func (c *Controller) Settings() settings.Config {
	return *c.current.Load()
}

// State returns the current run state.
func (c *Controller) State() fsm.State {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state
}

// Stats returns the monitor counters.
func (c *Controller) Stats() monitor.Snapshot {
	return c.loop.Stats().Snapshot()
}

// UseDefaults replaces the snapshot that stays active until settings are
// restored or configured. Nothing is persisted.
func (c *Controller) UseDefaults(cfg settings.Config) error {
	if err := cfg.Validate(); err != nil {
		return err
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	c.current.Store(&cfg)
	return nil
}

// Restore loads the stored settings. Defaults stay active when nothing is stored.
func (c *Controller) Restore(ctx context.Context) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	cfg, err := c.store.Load(ctx)
	if errors.Is(err, store.ErrNotFound) {
		c.logger.Infof("controller: no stored settings, using defaults")
		return nil
	}
	if err != nil {
		return fmt.Errorf("restore settings: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("restore settings: %w", err)
	}
	c.current.Store(&cfg)
	return nil
}

// Configure validates and persists cfg, then makes it the active snapshot.
// A running loop picks it up from its next tick. The run state is untouched.
func (c *Controller) Configure(ctx context.Context, cfg settings.Config) error {
	if err := cfg.Validate(); err != nil {
		return err
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	if err := c.store.Save(ctx, cfg); err != nil {
		return fmt.Errorf("save settings: %w", err)
	}
	c.current.Store(&cfg)
	c.logger.Infof("controller: settings updated (autobid=%t pricePerKm=%.2f range=[%.0f, %.0f])", cfg.AutobidEnabled, cfg.PricePerKM, cfg.MinPrice, cfg.MaxPrice)
	return nil
}

// Start moves the bot to running. It is a no-op when already running and
// fails with ErrPermissionsRequired, changing nothing, when a required
// capability is missing.
func (c *Controller) Start(ctx context.Context, caps Capabilities) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.state == fsm.StateRunning {
		return nil
	}
	if missing := caps.Missing(); len(missing) > 0 {
		return &PermissionsError{Missing: missing}
	}
	next, err := fsm.Apply(c.state, fsm.StateRunning)
	if err != nil {
		return err
	}

	c.loop.Start(ctx)
	c.state = next
	c.logger.Infof("controller: bot started")

	body := BodyStartedBids
	if !c.Settings().AutobidEnabled {
		body = BodyStartedFilter
	}
	c.notify(ctx, TitleStarted, body)
	return nil
}

// Stop moves the bot to idle. It is a no-op when already idle.
func (c *Controller) Stop(ctx context.Context) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.state == fsm.StateIdle {
		return nil
	}
	next, err := fsm.Apply(c.state, fsm.StateIdle)
	if err != nil {
		return err
	}

	c.loop.Stop()
	c.state = next
	c.logger.Infof("controller: bot stopped")
	c.notify(ctx, TitleStopped, BodyStopped)
	return nil
}

func (c *Controller) notify(ctx context.Context, title, body string) {
	if c.notifier == nil {
		return
	}
	if err := c.notifier.Notify(ctx, title, body); err != nil {
		c.logger.Errorf("controller: notify %q failed: %v", title, err)
	}
}
