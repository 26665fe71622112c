package algo

import (
	"git.fiblab.net/sim/tilerouting/geometry"
	"github.com/paulmach/orb"
)

// Point is a road network node. Identity is the OSM node id.
type Point struct {
	ID  int64   `json:"id"`
	Lat float64 `json:"lat"`
	Lon float64 `json:"lon"`
}

// Pos converts the point to an orb (lon, lat) point.
func (p Point) Pos() orb.Point {
	return orb.Point{p.Lon, p.Lat}
}

// Equal compares ids and coordinates, so that two tiles disagreeing on where
// a shared node lies are detected.
func (p Point) Equal(other Point) bool {
	return p.ID == other.ID && p.Lat == other.Lat && p.Lon == other.Lon
}

// Edge is one segment of a way between two consecutive nodes.
type Edge struct {
	ID           int64   `json:"id"`
	A            Point   `json:"a"`
	B            Point   `json:"b"`
	RoadClass    string  `json:"road_class"`
	MaxSpeedKmh  float64 `json:"max_speed_kmh"`
	StreetName   string  `json:"street_name,omitempty"`
	Oneway       bool    `json:"oneway,omitempty"`
	IsRoundabout bool    `json:"is_roundabout,omitempty"`
}

func (e Edge) CarAllowed() bool {
	_, forbidden := carForbiddenRoadClasses[e.RoadClass]
	return !forbidden
}

// Reversible reports whether B->A may be traversed as well.
func (e Edge) Reversible() bool {
	return !e.Oneway && !e.IsRoundabout
}

// Length in meters.
func (e Edge) Length() float64 {
	return geometry.Distance(e.A.Pos(), e.B.Pos())
}

// SpeedKmh falls back to DEFAULT_MAX_SPEED for missing or invalid speeds.
func (e Edge) SpeedKmh() float64 {
	if e.MaxSpeedKmh > 0 {
		return e.MaxSpeedKmh
	}
	return DEFAULT_MAX_SPEED
}

// TravelTime is the edge cost in seconds.
func (e Edge) TravelTime() float64 {
	return e.Length() / (e.SpeedKmh() / KMH_PER_MS)
}
