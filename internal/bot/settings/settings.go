package settings

import (
	"errors"
	"fmt"
	"time"
)

// ErrValidation is returned when a configuration breaks one of its rules.
var ErrValidation = errors.New("invalid bot configuration")

// Filters toggles the optional reject rules.
type Filters struct {
	RejectStops      bool `json:"rejectStops" yaml:"reject_stops"`
	RejectNewClients bool `json:"rejectNewClients" yaml:"reject_new_clients"`
	RejectLowRating  bool `json:"rejectLowRating" yaml:"reject_low_rating"`
}

// Config holds bidding and filter parameters chosen by the driver.
// A Config is replaced wholesale on every change, never patched.
type Config struct {
	AutobidEnabled bool    `json:"autobidEnabled" yaml:"autobid_enabled"`
	PricePerKM     float64 `json:"pricePerKm" yaml:"price_per_km"`
	MinPrice       float64 `json:"minPrice" yaml:"min_price"`
	MaxPrice       float64 `json:"maxPrice" yaml:"max_price"`
	// PickupDistance is advisory: no rule enforces it.
	PickupDistance float64 `json:"pickupDistance" yaml:"pickup_distance"`
	MaxDistance    float64 `json:"maxDistance" yaml:"max_distance"`
	// AutoRefresh is the polling period in milliseconds.
	AutoRefresh int     `json:"autoRefresh" yaml:"auto_refresh"`
	MinRating   float64 `json:"minRating" yaml:"min_rating"`
	Filters     Filters `json:"filters" yaml:"filters"`
}

const (
	defaultPricePerKM     = 40.0
	defaultMinPrice       = 100.0
	defaultMaxPrice       = 600.0
	defaultPickupDistance = 4.0
	defaultMaxDistance    = 10.0
	defaultAutoRefreshMS  = 500
	defaultMinRating      = 4.0

	minRatingFloor   = 1.0
	minRatingCeiling = 5.0
)

// Default returns the settings a fresh install starts with.
func Default() Config {
	return Config{
		AutobidEnabled: true,
		PricePerKM:     defaultPricePerKM,
		MinPrice:       defaultMinPrice,
		MaxPrice:       defaultMaxPrice,
		PickupDistance: defaultPickupDistance,
		MaxDistance:    defaultMaxDistance,
		AutoRefresh:    defaultAutoRefreshMS,
		MinRating:      defaultMinRating,
	}
}

// Validate checks ranges and price bounds.
func (c Config) Validate() error {
	if c.PricePerKM <= 0 {
		return fmt.Errorf("%w: pricePerKm must be > 0", ErrValidation)
	}
	if c.MinPrice < 0 {
		return fmt.Errorf("%w: minPrice must be >= 0", ErrValidation)
	}
	if c.MaxPrice < c.MinPrice {
		return fmt.Errorf("%w: maxPrice must be >= minPrice", ErrValidation)
	}
	if c.PickupDistance < 0 {
		return fmt.Errorf("%w: pickupDistance must be >= 0", ErrValidation)
	}
	if c.MaxDistance < 0 {
		return fmt.Errorf("%w: maxDistance must be >= 0", ErrValidation)
	}
	if c.AutoRefresh < 1 {
		return fmt.Errorf("%w: autoRefresh must be >= 1ms", ErrValidation)
	}
	if c.MinRating < minRatingFloor || c.MinRating > minRatingCeiling {
		return fmt.Errorf("%w: minRating must be within [1, 5]", ErrValidation)
	}
	return nil
}

// RefreshInterval converts AutoRefresh into a duration.
func (c Config) RefreshInterval() time.Duration {
	if c.AutoRefresh < 1 {
		return time.Millisecond
	}
	return time.Duration(c.AutoRefresh) * time.Millisecond
}
