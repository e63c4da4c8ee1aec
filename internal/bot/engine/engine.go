package engine

import (
	"panterabot/internal/bot/pricing"
	"panterabot/internal/bot/settings"
	"panterabot/internal/bot/trip"
)

// Reason names the rule that rejected a trip.
type Reason string

const (
	ReasonNone      Reason = ""
	ReasonDistance  Reason = "distance"
	ReasonStops     Reason = "stops"
	ReasonNewClient Reason = "new_client"
	ReasonLowRating Reason = "low_rating"
)

// Decision is the outcome of evaluating one trip.
type Decision struct {
	accepted bool
	priced   bool
	price    float64
	Reason   Reason
}

// Rejected builds a rejection carrying the rule that fired.
func Rejected(reason Reason) Decision {
	return Decision{Reason: reason}
}

// Detected builds an acceptance without a price.
func Detected() Decision {
	return Decision{accepted: true}
}

// Priced builds an acceptance with a bid price attached.
func Priced(price float64) Decision {
	return Decision{accepted: true, priced: true, price: price}
}

// Accepted reports whether the trip passed every filter.
func (d Decision) Accepted() bool {
	return d.accepted
}

// Price returns the bid price; ok is false for rejections and detect-only acceptances.
func (d Decision) Price() (price float64, ok bool) {
	return d.price, d.priced
}

// Evaluate applies the configured filters to a trip and prices it when
// autobid is enabled. It has no side effects.
func Evaluate(cfg settings.Config, t trip.Trip) Decision {
	if reason := rejectReason(cfg, t); reason != ReasonNone {
		return Rejected(reason)
	}
	if !cfg.AutobidEnabled {
		return Detected()
	}
	return Priced(pricing.BidPrice(t.Distance, cfg.PricePerKM, cfg.MinPrice, cfg.MaxPrice))
}

func rejectReason(cfg settings.Config, t trip.Trip) Reason {
	switch {
	case t.Distance > cfg.MaxDistance:
		return ReasonDistance
	case cfg.Filters.RejectStops && t.HasMultipleStops:
		return ReasonStops
	case cfg.Filters.RejectNewClients && t.IsNewClient:
		return ReasonNewClient
	case cfg.Filters.RejectLowRating && t.PassengerRating < cfg.MinRating:
		return ReasonLowRating
	}
	return ReasonNone
}
