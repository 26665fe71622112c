// Package provider fetches raw road data for a bounding box and turns it into
// road graphs.
package provider

import (
	"context"

	"github.com/paulmach/orb"
)

// RoadElement is one way as delivered by the map data source.
// Geometry[i] is the position of NodeIDs[i].
type RoadElement struct {
	ID       int64             `json:"id"`
	NodeIDs  []int64           `json:"nodes"`
	Geometry []orb.Point       `json:"geometry"`
	Tags     map[string]string `json:"tags"`
}

// Provider returns the road elements intersecting a bounding box.
type Provider interface {
	FetchTile(ctx context.Context, bound orb.Bound) ([]RoadElement, error)
}
