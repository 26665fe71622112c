// Package geometry holds the spherical and planar distance helpers shared by
// the graph model, the tile store and the router.
package geometry

import (
	"math"

	"github.com/paulmach/orb"
	"github.com/samber/lo"
)

const (
	// 地球半径（单位：米）
	EARTH_RADIUS = 6_371_000
)

func toRadians(deg float64) float64 {
	return deg * math.Pi / 180
}

// Distance returns the great-circle distance in meters between two lon/lat points.
func Distance(a, b orb.Point) float64 {
	phi1, phi2 := toRadians(a.Lat()), toRadians(b.Lat())
	dPhi := toRadians(b.Lat() - a.Lat())
	dLambda := toRadians(b.Lon() - a.Lon())
	h := math.Sin(dPhi/2)*math.Sin(dPhi/2) +
		math.Cos(phi1)*math.Cos(phi2)*math.Sin(dLambda/2)*math.Sin(dLambda/2)
	// 浮点误差可能使h略微超出[0,1]
	h = lo.Clamp(h, 0, 1)
	return 2 * EARTH_RADIUS * math.Asin(math.Sqrt(h))
}

// PolylineLength sums the haversine lengths of consecutive segments.
func PolylineLength(line []orb.Point) float64 {
	length := 0.0
	for i := 1; i < len(line); i++ {
		length += Distance(line[i-1], line[i])
	}
	return length
}

// DistanceToSegment returns the planar distance (in degrees) from p to the
// segment ab together with the closest point on the segment.
func DistanceToSegment(p, a, b orb.Point) (float64, orb.Point) {
	dx, dy := b.X()-a.X(), b.Y()-a.Y()
	if dx == 0 && dy == 0 {
		return math.Hypot(p.X()-a.X(), p.Y()-a.Y()), a
	}
	t := ((p.X()-a.X())*dx + (p.Y()-a.Y())*dy) / (dx*dx + dy*dy)
	t = lo.Clamp(t, 0, 1)
	closest := orb.Point{a.X() + t*dx, a.Y() + t*dy}
	return math.Hypot(p.X()-closest.X(), p.Y()-closest.Y()), closest
}

// PlanarDistance is the euclidean distance in degrees, used for grid decisions
// where metric accuracy does not matter.
func PlanarDistance(a, b orb.Point) float64 {
	return math.Hypot(a.X()-b.X(), a.Y()-b.Y())
}
