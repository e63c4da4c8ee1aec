package trip

// Trip is one ride offer read from the ride-hailing app's screen.
// Trips are consumed once by the decision engine and never stored.
type Trip struct {
	ID          string `json:"id"`
	Pickup      string `json:"pickup"`
	Destination string `json:"destination"`
	// Distance is in kilometres.
	Distance float64 `json:"distance"`
	// SuggestedPrice is what the passenger offered; pricing ignores it.
	SuggestedPrice   float64 `json:"suggestedPrice"`
	PassengerRating  float64 `json:"passengerRating"`
	IsNewClient      bool    `json:"isNewClient"`
	HasMultipleStops bool    `json:"hasMultipleStops"`
}
