package bot

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"panterabot/internal/bot/settings"
	"panterabot/internal/bot/store"
)

const (
	defaultProfile      = "default"
	defaultTripBuffer   = 64
	defaultTickTimeout  = 10 * time.Second
	defaultBatchWorkers = 4
	defaultNotifyRate   = 1.0
	defaultNotifyBurst  = 5
	defaultMockChance   = 0.3
	defaultRetention    = 30 * 24 * time.Hour
)

// Settings store backends.
const (
	StoreRedis = "redis"
	StoreSQL   = "sql"
	StoreS3    = "s3"
)

// Trip source kinds.
const (
	SourceDevice = "device"
	SourceMock   = "mock"
)

// BotConfig holds runtime configuration for the bot module.
type BotConfig struct {
	Profile            string
	SettingsStore      string
	TripSource         string
	TripBuffer         int
	DeviceSecret       string
	JWTSecret          string
	TickTimeout        time.Duration
	BatchWorkers       int
	NotifyRate         float64
	NotifyBurst        int
	MockChance         float64
	MockSeed           uint64
	JournalRetention   time.Duration
	FCMCredentialsFile string
	FCMTokens          []string
	S3                 store.S3Config
	// Defaults is the settings snapshot used until the driver saves one.
	Defaults settings.Config
}

// LoadBotConfig reads configuration from environment variables and applies defaults.
func LoadBotConfig() (BotConfig, error) {
	cfg := BotConfig{
		Profile:          defaultProfile,
		SettingsStore:    StoreSQL,
		TripSource:       SourceDevice,
		TripBuffer:       defaultTripBuffer,
		TickTimeout:      defaultTickTimeout,
		BatchWorkers:     defaultBatchWorkers,
		NotifyRate:       defaultNotifyRate,
		NotifyBurst:      defaultNotifyBurst,
		MockChance:       defaultMockChance,
		MockSeed:         uint64(time.Now().UnixNano()),
		JournalRetention: defaultRetention,
		Defaults:         settings.Default(),
	}

	if v := os.Getenv("BOT_PROFILE"); v != "" {
		cfg.Profile = v
	}
	if v := os.Getenv("SETTINGS_STORE"); v != "" {
		cfg.SettingsStore = strings.ToLower(v)
	}
	switch cfg.SettingsStore {
	case StoreRedis, StoreSQL, StoreS3:
	default:
		return BotConfig{}, fmt.Errorf("unsupported SETTINGS_STORE %q", cfg.SettingsStore)
	}
	if v := os.Getenv("TRIP_SOURCE"); v != "" {
		cfg.TripSource = strings.ToLower(v)
	}
	switch cfg.TripSource {
	case SourceDevice, SourceMock:
	default:
		return BotConfig{}, fmt.Errorf("unsupported TRIP_SOURCE %q", cfg.TripSource)
	}

	if v, err := readIntEnv("TRIP_BUFFER"); err != nil {
		return BotConfig{}, fmt.Errorf("parse TRIP_BUFFER: %w", err)
	} else if v != nil {
		cfg.TripBuffer = *v
	}

	if v, err := readIntEnv("TICK_TIMEOUT_SECONDS"); err != nil {
		return BotConfig{}, fmt.Errorf("parse TICK_TIMEOUT_SECONDS: %w", err)
	} else if v != nil {
		cfg.TickTimeout = time.Duration(*v) * time.Second
	}

	if v, err := readIntEnv("BATCH_WORKERS"); err != nil {
		return BotConfig{}, fmt.Errorf("parse BATCH_WORKERS: %w", err)
	} else if v != nil {
		cfg.BatchWorkers = *v
	}

	if v, err := readFloatEnv("NOTIFY_RATE"); err != nil {
		return BotConfig{}, fmt.Errorf("parse NOTIFY_RATE: %w", err)
	} else if v != nil {
		cfg.NotifyRate = *v
	}

	if v, err := readIntEnv("NOTIFY_BURST"); err != nil {
		return BotConfig{}, fmt.Errorf("parse NOTIFY_BURST: %w", err)
	} else if v != nil {
		cfg.NotifyBurst = *v
	}

	if v, err := readFloatEnv("MOCK_TRIP_CHANCE"); err != nil {
		return BotConfig{}, fmt.Errorf("parse MOCK_TRIP_CHANCE: %w", err)
	} else if v != nil {
		cfg.MockChance = *v
	}

	if v := os.Getenv("MOCK_SEED"); v != "" {
		seed, err := strconv.ParseUint(v, 10, 64)
		if err != nil {
			return BotConfig{}, fmt.Errorf("parse MOCK_SEED: %w", err)
		}
		cfg.MockSeed = seed
	}

	if v, err := readIntEnv("JOURNAL_RETENTION_DAYS"); err != nil {
		return BotConfig{}, fmt.Errorf("parse JOURNAL_RETENTION_DAYS: %w", err)
	} else if v != nil {
		cfg.JournalRetention = time.Duration(*v) * 24 * time.Hour
	}

	cfg.DeviceSecret = os.Getenv("DEVICE_SECRET")
	cfg.JWTSecret = os.Getenv("JWT_SECRET")
	if cfg.JWTSecret != "" && cfg.DeviceSecret == "" {
		return BotConfig{}, fmt.Errorf("JWT_SECRET requires DEVICE_SECRET")
	}

	cfg.FCMCredentialsFile = os.Getenv("FCM_CREDENTIALS_FILE")
	for _, token := range strings.Split(os.Getenv("FCM_TOKENS"), ",") {
		if token = strings.TrimSpace(token); token != "" {
			cfg.FCMTokens = append(cfg.FCMTokens, token)
		}
	}

	cfg.S3 = store.S3Config{
		Endpoint:  os.Getenv("S3_ENDPOINT"),
		Region:    os.Getenv("S3_REGION"),
		Bucket:    os.Getenv("S3_BUCKET"),
		AccessKey: os.Getenv("S3_ACCESS_KEY"),
		SecretKey: os.Getenv("S3_SECRET_KEY"),
	}
	if cfg.SettingsStore == StoreS3 && cfg.S3.Bucket == "" {
		return BotConfig{}, fmt.Errorf("S3_BUCKET is required for the s3 settings store")
	}

	if err := loadDefaults(&cfg.Defaults); err != nil {
		return BotConfig{}, err
	}

	if cfg.TickTimeout <= 0 {
		return BotConfig{}, fmt.Errorf("TICK_TIMEOUT_SECONDS must be positive")
	}
	if cfg.BatchWorkers <= 0 {
		return BotConfig{}, fmt.Errorf("BATCH_WORKERS must be positive")
	}

	return cfg, nil
}

// loadDefaults overrides the built-in default settings from BOT_DEFAULT_* variables.
func loadDefaults(cfg *settings.Config) error {
	floats := []struct {
		name string
		dst  *float64
	}{
		{"BOT_DEFAULT_PRICE_PER_KM", &cfg.PricePerKM},
		{"BOT_DEFAULT_MIN_PRICE", &cfg.MinPrice},
		{"BOT_DEFAULT_MAX_PRICE", &cfg.MaxPrice},
		{"BOT_DEFAULT_PICKUP_DISTANCE", &cfg.PickupDistance},
		{"BOT_DEFAULT_MAX_DISTANCE", &cfg.MaxDistance},
		{"BOT_DEFAULT_MIN_RATING", &cfg.MinRating},
	}
	for _, f := range floats {
		v, err := readFloatEnv(f.name)
		if err != nil {
			return fmt.Errorf("parse %s: %w", f.name, err)
		}
		if v != nil {
			*f.dst = *v
		}
	}

	if v, err := readIntEnv("BOT_DEFAULT_AUTO_REFRESH_MS"); err != nil {
		return fmt.Errorf("parse BOT_DEFAULT_AUTO_REFRESH_MS: %w", err)
	} else if v != nil {
		cfg.AutoRefresh = *v
	}

	if v := os.Getenv("BOT_DEFAULT_AUTOBID"); v != "" {
		b, err := strconv.ParseBool(v)
		if err != nil {
			return fmt.Errorf("parse BOT_DEFAULT_AUTOBID: %w", err)
		}
		cfg.AutobidEnabled = b
	}

	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("default settings: %w", err)
	}
	return nil
}

func readIntEnv(name string) (*int, error) {
	val := os.Getenv(name)
	if val == "" {
		return nil, nil
	}
	v, err := strconv.Atoi(val)
	if err != nil {
		return nil, err
	}
	return &v, nil
}

func readFloatEnv(name string) (*float64, error) {
	val := os.Getenv(name)
	if val == "" {
		return nil, nil
	}
	v, err := strconv.ParseFloat(val, 64)
	if err != nil {
		return nil, err
	}
	return &v, nil
}
