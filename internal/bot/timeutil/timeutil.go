// Package timeutil pins the service clock to the driver's market, the
// Dominican Republic. Journal timestamps and stats are read by the driver in
// local time. The zone has no DST, so the fixed fallback is exact.
package timeutil

import "time"

var santoDomingoLocation = loadLocation()

func loadLocation() *time.Location {
	loc, err := time.LoadLocation("America/Santo_Domingo")
	if err != nil {
		return time.FixedZone("AST", -4*60*60)
	}
	return loc
}

// Now returns the current time in the America/Santo_Domingo timezone.
func Now() time.Time {
	return time.Now().In(santoDomingoLocation)
}

// In converts provided time to the America/Santo_Domingo timezone.
func In(t time.Time) time.Time {
	return t.In(santoDomingoLocation)
}

// Location returns the America/Santo_Domingo location instance.
func Location() *time.Location {
	return santoDomingoLocation
}
