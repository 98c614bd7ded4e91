package ranker

import (
	"math"

	"github.com/oggyb/match-engine/internal/repository"
)

const earthRadiusKM = 6371.0

// HaversineKM is the great-circle distance between two points in kilometres.
func HaversineKM(lat1, lon1, lat2, lon2 float64) float64 {
	toRad := func(v float64) float64 { return v * math.Pi / 180 }
	dLat := toRad(lat2 - lat1)
	dLon := toRad(lon2 - lon1)
	a := math.Sin(dLat/2)*math.Sin(dLat/2) +
		math.Cos(toRad(lat1))*math.Cos(toRad(lat2))*math.Sin(dLon/2)*math.Sin(dLon/2)
	c := 2 * math.Atan2(math.Sqrt(a), math.Sqrt(1-a))
	return earthRadiusKM * c
}

const kmPerDegree = earthRadiusKM * math.Pi / 180

// BoundingBox returns lat/lon bounds holding every point within km of
// (lat, lon). Longitude is left open when the box would reach a pole or
// cross the antimeridian.
func BoundingBox(lat, lon, km float64) repository.GeoBox {
	// pad so float error never drops a point right on the radius
	dLat := km * 1.001 / kmPerDegree
	box := repository.GeoBox{
		MinLat:  lat - dLat,
		MaxLat:  lat + dLat,
		OpenLon: true,
	}

	edge := math.Max(math.Abs(box.MinLat), math.Abs(box.MaxLat))
	if edge >= 90 {
		return box
	}
	dLon := dLat / math.Cos(edge*math.Pi/180)
	if lon-dLon < -180 || lon+dLon > 180 {
		return box
	}
	box.MinLon, box.MaxLon, box.OpenLon = lon-dLon, lon+dLon, false
	return box
}
