package settings

import (
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefaultIsValid(t *testing.T) {
	cfg := Default()
	require.NoError(t, cfg.Validate())
	assert.True(t, cfg.AutobidEnabled)
	assert.Equal(t, 500*time.Millisecond, cfg.RefreshInterval())
}

func TestValidate(t *testing.T) {
	cases := []struct {
		name   string
		mutate func(*Config)
	}{
		{"zero price per km", func(c *Config) { c.PricePerKM = 0 }},
		{"negative min price", func(c *Config) { c.MinPrice = -1 }},
		{"max below min", func(c *Config) { c.MinPrice = 700; c.MaxPrice = 600 }},
		{"negative pickup distance", func(c *Config) { c.PickupDistance = -0.5 }},
		{"negative max distance", func(c *Config) { c.MaxDistance = -1 }},
		{"zero refresh", func(c *Config) { c.AutoRefresh = 0 }},
		{"rating below range", func(c *Config) { c.MinRating = 0.5 }},
		{"rating above range", func(c *Config) { c.MinRating = 5.5 }},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			cfg := Default()
			tc.mutate(&cfg)
			err := cfg.Validate()
			require.Error(t, err)
			assert.True(t, errors.Is(err, ErrValidation))
		})
	}
}

func TestValidateAcceptsEqualBounds(t *testing.T) {
	cfg := Default()
	cfg.MinPrice = 300
	cfg.MaxPrice = 300
	cfg.MinRating = 1
	cfg.AutoRefresh = 1
	require.NoError(t, cfg.Validate())
}

func TestJSONMatchesDeviceBlob(t *testing.T) {
	blob := `{"autobidEnabled":false,"pricePerKm":35.5,"minPrice":90,"maxPrice":500,
		"pickupDistance":3,"maxDistance":8,"autoRefresh":1000,"minRating":4.5,
		"filters":{"rejectStops":true,"rejectNewClients":false,"rejectLowRating":true}}`

	var cfg Config
	require.NoError(t, json.Unmarshal([]byte(blob), &cfg))
	assert.False(t, cfg.AutobidEnabled)
	assert.Equal(t, 35.5, cfg.PricePerKM)
	assert.Equal(t, 1000, cfg.AutoRefresh)
	assert.True(t, cfg.Filters.RejectStops)
	assert.True(t, cfg.Filters.RejectLowRating)
	assert.False(t, cfg.Filters.RejectNewClients)
}
