package store

import (
	"encoding/json"
	"errors"
	"fmt"

	"panterabot/internal/bot/settings"
)

// ErrNotFound is returned by Load when no settings were saved for the profile.
var ErrNotFound = errors.New("settings not found")

const keyPrefix = "panterabot:settings:"

// Key returns the storage key for a profile.
func Key(profile string) string {
	if profile == "" {
		profile = "default"
	}
	return keyPrefix + profile
}

func encode(cfg settings.Config) ([]byte, error) {
	data, err := json.Marshal(cfg)
	if err != nil {
		return nil, fmt.Errorf("encode settings: %w", err)
	}
	return data, nil
}

func decode(data []byte) (settings.Config, error) {
	var cfg settings.Config
	if err := json.Unmarshal(data, &cfg); err != nil {
		return settings.Config{}, fmt.Errorf("decode settings: %w", err)
	}
	return cfg, nil
}
