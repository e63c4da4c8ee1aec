package pricing

import "math"

// BidPrice calculates the bid for a trip: the distance price rounded to the
// nearest whole unit, then clamped to [minPrice, maxPrice].
func BidPrice(distanceKM, pricePerKM, minPrice, maxPrice float64) float64 {
	if distanceKM < 0 {
		distanceKM = 0
	}
	price := math.Round(distanceKM * pricePerKM)
	if price < minPrice {
		return minPrice
	}
	if price > maxPrice {
		return maxPrice
	}
	return price
}
