package provider

import (
	"context"
	"fmt"
	"os"
	"sync/atomic"

	"github.com/paulmach/orb"
	"github.com/paulmach/orb/geojson"
	"github.com/samber/lo"
)

// Static serves a fixed set of elements, e.g. an offline extract. Like the
// Overpass query, a way is returned whole when any of its nodes lies in the
// requested bound.
type Static struct {
	elements []RoadElement
	fetches  atomic.Int64
}

func NewStatic(elements []RoadElement) *Static {
	return &Static{elements: elements}
}

func (s *Static) FetchTile(ctx context.Context, bound orb.Bound) ([]RoadElement, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	s.fetches.Add(1)
	return lo.Filter(s.elements, func(e RoadElement, _ int) bool {
		return lo.SomeBy(e.Geometry, func(p orb.Point) bool { return bound.Contains(p) })
	}), nil
}

// Fetches counts FetchTile calls.
func (s *Static) Fetches() int64 {
	return s.fetches.Load()
}

// LoadGeoJSON reads LineString features with an "id" property, a "nodes"
// array of node ids and string tags as the remaining properties.
func LoadGeoJSON(path string) (*Static, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	fc, err := geojson.UnmarshalFeatureCollection(data)
	if err != nil {
		return nil, fmt.Errorf("parse %s: %w", path, err)
	}
	elements := make([]RoadElement, 0, len(fc.Features))
	for i, f := range fc.Features {
		line, ok := f.Geometry.(orb.LineString)
		if !ok {
			log.Warnf("skip feature %d: geometry %T is not a LineString", i, f.Geometry)
			continue
		}
		e := RoadElement{
			ID:       int64(f.Properties.MustFloat64("id", 0)),
			Geometry: []orb.Point(line),
			Tags:     make(map[string]string),
		}
		if nodes, ok := f.Properties["nodes"].([]any); ok {
			for _, n := range nodes {
				if id, ok := n.(float64); ok {
					e.NodeIDs = append(e.NodeIDs, int64(id))
				}
			}
		}
		for k, v := range f.Properties {
			if s, ok := v.(string); ok {
				e.Tags[k] = s
			}
		}
		elements = append(elements, e)
	}
	return NewStatic(elements), nil
}
