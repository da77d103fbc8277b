// Package geo provides great-circle distance math and the service-region
// geometry used to validate geocoded points.
package geo

import "math"

// earthRadiusMiles is the mean Earth radius used by the haversine formula.
const earthRadiusMiles = 3958.8

// metersPerMile converts statute miles to meters for the feed's spatial unit.
const metersPerMile = 1609.344

// HaversineMiles returns the great-circle distance in miles between two
// (lat, lon) points on a spherical Earth.
func HaversineMiles(lat1, lon1, lat2, lon2 float64) float64 {
	dLat := radians(lat2 - lat1)
	dLon := radians(lon2 - lon1)

	a := math.Sin(dLat/2)*math.Sin(dLat/2) +
		math.Cos(radians(lat1))*math.Cos(radians(lat2))*
			math.Sin(dLon/2)*math.Sin(dLon/2)
	c := 2 * math.Atan2(math.Sqrt(a), math.Sqrt(1-a))

	return earthRadiusMiles * c
}

// MilesToMeters converts a radius in miles to the meters the feed expects.
func MilesToMeters(miles float64) float64 {
	return miles * metersPerMile
}

// CircleAreaSqMiles returns the area of a circle with the given radius in miles.
func CircleAreaSqMiles(radiusMiles float64) float64 {
	return math.Pi * radiusMiles * radiusMiles
}

func radians(deg float64) float64 {
	return deg * math.Pi / 180
}
