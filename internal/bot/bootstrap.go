package bot

import (
	"context"
	"time"

	"github.com/bmizerany/pat"

	"panterabot/internal/bot/auth"
	"panterabot/internal/bot/controller"
	bothttp "panterabot/internal/bot/http"
	"panterabot/internal/bot/mocksource"
	"panterabot/internal/bot/monitor"
	"panterabot/internal/bot/notify"
	"panterabot/internal/bot/repo"
	"panterabot/internal/bot/store"
	"panterabot/internal/bot/timeutil"
	"panterabot/internal/bot/ws"
)

const (
	statusInterval         = 5 * time.Second
	journalCleanupInterval = time.Hour
	journalCleanupTimeout  = 30 * time.Second
)

type migrator interface {
	Migrate(ctx context.Context) error
}

type moduleState struct {
	settingsStore controller.Store
	bidsRepo      *repo.BidsRepo
	tokensRepo    *repo.TokensRepo
	deviceHub     *ws.DeviceHub
	uiHub         *ws.UIHub
	controller    *controller.Controller
	server        *bothttp.Server
	migrations    []migrator
}

func ensureModule(deps *BotDeps) (*moduleState, error) {
	if err := deps.Validate(); err != nil {
		return nil, err
	}
	if deps.module != nil {
		return deps.module, nil
	}
	cfg := deps.Config
	m := &moduleState{}

	switch cfg.SettingsStore {
	case StoreRedis:
		m.settingsStore = store.NewRedis(deps.RDB, cfg.Profile)
	case StoreS3:
		m.settingsStore = store.NewS3(deps.S3, cfg.S3.Bucket, cfg.Profile)
	default:
		sqlStore := store.NewSQL(deps.DB, deps.Dialect, cfg.Profile)
		m.settingsStore = sqlStore
		m.migrations = append(m.migrations, sqlStore)
	}
	if deps.DB != nil {
		m.bidsRepo = repo.NewBidsRepo(deps.DB, deps.Dialect)
		m.tokensRepo = repo.NewTokensRepo(deps.DB, deps.Dialect)
		m.migrations = append(m.migrations, m.bidsRepo, m.tokensRepo)
	}

	m.deviceHub = ws.NewDeviceHub(cfg.DeviceSecret, cfg.TripBuffer, deps.Logger)
	m.uiHub = ws.NewUIHub(deps.Logger)

	var (
		source   monitor.TripSource
		actuator monitor.BidActuator
		notifier = notify.Multi{m.uiHub}
	)
	switch cfg.TripSource {
	case SourceMock:
		source = mocksource.New(cfg.MockSeed, cfg.MockChance)
		actuator = mocksource.NewActuator(deps.Logger)
	default:
		source = m.deviceHub
		actuator = m.deviceHub
		notifier = append(notifier, m.deviceHub)
	}
	if m.bidsRepo != nil {
		actuator = journalingActuator{next: actuator, journal: m.bidsRepo, logger: deps.Logger}
	}
	if deps.Push != nil {
		tokens := notify.JoinedTokens{notify.StaticTokens(cfg.FCMTokens)}
		if m.tokensRepo != nil {
			tokens = append(tokens, m.tokensRepo)
		}
		notifier = append(notifier, notify.NewFCM(deps.Push, tokens, deps.Logger))
	}

	var tickNotifier monitor.Notifier = notifier
	if cfg.NotifyRate > 0 {
		tickNotifier = notify.NewThrottle(notifier, cfg.NotifyRate, cfg.NotifyBurst)
	}
	opts := monitor.Options{TickTimeout: cfg.TickTimeout, BatchWorkers: cfg.BatchWorkers}
	m.controller = controller.New(m.settingsStore, notifier, deps.Logger, func(p monitor.SettingsProvider) controller.Loop {
		return monitor.New(source, actuator, tickNotifier, p, deps.Logger, opts)
	})
	if err := m.controller.UseDefaults(cfg.Defaults); err != nil {
		return nil, err
	}

	serverOpts := bothttp.Options{
		DeviceSecret: cfg.DeviceSecret,
		UIClients:    m.uiHub.Count,
	}
	if m.bidsRepo != nil {
		serverOpts.Journal = m.bidsRepo
		serverOpts.Tokens = m.tokensRepo
	}
	if cfg.JWTSecret != "" {
		manager, err := auth.NewManager(cfg.JWTSecret)
		if err != nil {
			return nil, err
		}
		serverOpts.Tokener = manager
	}
	m.server = bothttp.NewServer(deps.Logger, m.controller, m.deviceHub, m.uiHub, serverOpts)

	deps.module = m
	return m, nil
}

// RegisterBotRoutes wires HTTP and WebSocket routes into the provided mux.
func RegisterBotRoutes(mux *pat.PatternServeMux, deps *BotDeps) error {
	module, err := ensureModule(deps)
	if err != nil {
		return err
	}
	module.server.RegisterRoutes(mux)
	return nil
}

// StartBotWorkers migrates the bot tables, restores the stored settings and
// launches the UI status feed. The bot itself stays idle until started.
func StartBotWorkers(ctx context.Context, deps *BotDeps) error {
	module, err := ensureModule(deps)
	if err != nil {
		return err
	}
	for _, mig := range module.migrations {
		if err := mig.Migrate(ctx); err != nil {
			return err
		}
	}
	if err := module.controller.Restore(ctx); err != nil {
		deps.Logger.Errorf("bot: %v; keeping default settings", err)
	}
	go module.startStatusFeed(ctx)
	if module.bidsRepo != nil && deps.Config.JournalRetention > 0 {
		go module.startJournalCleanup(ctx, deps.Config.JournalRetention, deps.Logger)
	}
	return nil
}

// StopBot stops a running bot, waiting for an in-flight tick to settle.
func StopBot(ctx context.Context, deps *BotDeps) error {
	module, err := ensureModule(deps)
	if err != nil {
		return err
	}
	return module.controller.Stop(ctx)
}

// BotController exposes the controller of the module.
func BotController(deps *BotDeps) (*controller.Controller, error) {
	module, err := ensureModule(deps)
	if err != nil {
		return nil, err
	}
	return module.controller, nil
}

func (m *moduleState) startStatusFeed(ctx context.Context) {
	ticker := time.NewTicker(statusInterval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if m.uiHub.Count() == 0 {
				continue
			}
			m.uiHub.Broadcast(ws.UIEvent{Type: "status", Data: map[string]interface{}{
				"state":            m.controller.State(),
				"stats":            m.controller.Stats(),
				"device_connected": m.deviceHub.Connected(),
			}})
		}
	}
}

func (m *moduleState) startJournalCleanup(ctx context.Context, retention time.Duration, logger Logger) {
	ticker := time.NewTicker(journalCleanupInterval)
	defer ticker.Stop()

	run := func() {
		runCtx, cancel := context.WithTimeout(ctx, journalCleanupTimeout)
		defer cancel()

		removed, err := m.bidsRepo.Prune(runCtx, timeutil.Now().Add(-retention))
		if err != nil {
			logger.Errorf("journal cleaner: failed to prune bids: %v", err)
			return
		}
		if removed > 0 {
			logger.Infof("journal cleaner: pruned %d bids", removed)
		}
	}

	run()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			run()
		}
	}
}
