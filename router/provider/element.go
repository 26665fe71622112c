package provider

import (
	"fmt"
	"math"
	"regexp"
	"strconv"
	"strings"

	"git.fiblab.net/sim/tilerouting/router/algo"
	"github.com/samber/lo"
)

const (
	MPH_TO_KMH = 1.609344
)

var maxSpeedPattern = regexp.MustCompile(`^\s*(\d+(?:\.\d+)?)\s*(mph|km/h|kmh|kph)?\s*$`)

// ParseMaxSpeed converts an OSM maxspeed value to km/h. Values that carry no
// number ("none", "signals", "walk", empty) fall back to DEFAULT_MAX_SPEED.
func ParseMaxSpeed(value string) float64 {
	// 多值时取第一个，如"50;30"
	value, _, _ = strings.Cut(value, ";")
	m := maxSpeedPattern.FindStringSubmatch(strings.ToLower(value))
	if m == nil {
		return algo.DEFAULT_MAX_SPEED
	}
	speed, err := strconv.ParseFloat(m[1], 64)
	if err != nil || speed <= 0 {
		return algo.DEFAULT_MAX_SPEED
	}
	if m[2] == "mph" {
		speed *= MPH_TO_KMH
	}
	return speed
}

// ParseOneway reports whether the way is one-way and whether traffic flows
// against the node order ("-1", "reverse").
func ParseOneway(value string) (oneway bool, reversed bool) {
	switch strings.ToLower(strings.TrimSpace(value)) {
	case "yes", "1", "true":
		return true, false
	case "-1", "reverse":
		return true, true
	default:
		return false, false
	}
}

func IsRoundabout(tags map[string]string) bool {
	junction := tags["junction"]
	return junction == "roundabout" || junction == "circular"
}

// Validate checks the element shape before it is turned into edges.
func (e RoadElement) Validate() error {
	if len(e.NodeIDs) < 2 {
		return fmt.Errorf("%w: way %d has %d nodes", ErrMalformedElement, e.ID, len(e.NodeIDs))
	}
	if len(e.NodeIDs) != len(e.Geometry) {
		return fmt.Errorf("%w: way %d has %d nodes but %d positions",
			ErrMalformedElement, e.ID, len(e.NodeIDs), len(e.Geometry))
	}
	if len(e.NodeIDs) > EDGE_ID_STRIDE {
		return fmt.Errorf("%w: way %d has too many nodes (%d)", ErrMalformedElement, e.ID, len(e.NodeIDs))
	}
	if e.Tags["highway"] == "" {
		return fmt.Errorf("%w: way %d has no highway tag", ErrMalformedElement, e.ID)
	}
	for i, p := range e.Geometry {
		lon, lat := p.Lon(), p.Lat()
		if math.IsNaN(lon) || math.IsNaN(lat) || math.IsInf(lon, 0) || math.IsInf(lat, 0) ||
			math.Abs(lat) > 90 || math.Abs(lon) > 180 {
			return fmt.Errorf("%w: way %d node %d has invalid position %v",
				ErrMalformedElement, e.ID, e.NodeIDs[i], p)
		}
	}
	return nil
}

// Edges splits the way into one edge per consecutive node pair.
func (e RoadElement) Edges() []algo.Edge {
	points := make([]algo.Point, len(e.NodeIDs))
	for i, id := range e.NodeIDs {
		points[i] = algo.Point{ID: id, Lat: e.Geometry[i].Lat(), Lon: e.Geometry[i].Lon()}
	}
	oneway, reversed := ParseOneway(e.Tags["oneway"])
	if reversed {
		points = lo.Reverse(points)
	}
	roadClass := e.Tags["highway"]
	speed := ParseMaxSpeed(e.Tags["maxspeed"])
	roundabout := IsRoundabout(e.Tags)
	edges := make([]algo.Edge, 0, len(points)-1)
	for i := 1; i < len(points); i++ {
		edges = append(edges, algo.Edge{
			ID:           e.ID*EDGE_ID_STRIDE + int64(i-1),
			A:            points[i-1],
			B:            points[i],
			RoadClass:    roadClass,
			MaxSpeedKmh:  speed,
			StreetName:   e.Tags["name"],
			Oneway:       oneway,
			IsRoundabout: roundabout,
		})
	}
	return edges
}

// ElementsToGraph builds a road graph, skipping malformed elements.
// It returns the number of skipped elements.
func ElementsToGraph(elements []RoadElement) (*algo.Graph, int) {
	edges := make([]algo.Edge, 0)
	skipped := 0
	for _, e := range elements {
		if err := e.Validate(); err != nil {
			log.Warnf("skip element: %v", err)
			skipped++
			continue
		}
		edges = append(edges, e.Edges()...)
	}
	return algo.NewGraph(nil, edges), skipped
}
