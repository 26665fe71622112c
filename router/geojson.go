package router

import (
	"git.fiblab.net/sim/tilerouting/router/algo"
	"git.fiblab.net/sim/tilerouting/router/tile"
	"github.com/paulmach/orb"
	"github.com/paulmach/orb/geojson"
	"github.com/samber/lo"
)

// GraphGeoJSON renders every edge of g as a LineString feature.
func GraphGeoJSON(g *algo.Graph) *geojson.FeatureCollection {
	fc := geojson.NewFeatureCollection()
	for _, e := range g.Edges() {
		f := geojson.NewFeature(orb.LineString{e.A.Pos(), e.B.Pos()})
		f.ID = e.ID
		f.Properties["road_class"] = e.RoadClass
		f.Properties["max_speed"] = e.SpeedKmh()
		f.Properties["oneway"] = !e.Reversible()
		f.Properties["car"] = e.CarAllowed()
		if e.StreetName != "" {
			f.Properties["name"] = e.StreetName
		}
		fc.Append(f)
	}
	return fc
}

// TilesGeoJSON renders tile boxes with their load state.
func TilesGeoJSON(tiles []*tile.Tile) *geojson.FeatureCollection {
	fc := geojson.NewFeatureCollection()
	for _, t := range tiles {
		f := geojson.NewFeature(t.Bound.ToPolygon())
		f.Properties["lat"] = t.Key.Lat
		f.Properties["lon"] = t.Key.Lon
		f.Properties["state"] = t.State.String()
		if t.Graph != nil {
			f.Properties["points"] = t.Graph.NumPoints()
			f.Properties["edges"] = t.Graph.NumEdges()
		}
		if t.Err != nil {
			f.Properties["error"] = t.Err.Error()
		}
		fc.Append(f)
	}
	return fc
}

// RouteGeoJSON renders the route line, its two ends and the explored nodes.
func RouteGeoJSON(route *Route) *geojson.FeatureCollection {
	fc := geojson.NewFeatureCollection()
	if len(route.Path) == 0 {
		return fc
	}
	line := geojson.NewFeature(route.LineString())
	line.Properties["algorithm"] = string(route.Algorithm)
	line.Properties["distance_m"] = route.DistanceM
	line.Properties["time_s"] = route.TimeS
	line.Properties["tries"] = route.Tries
	fc.Append(line)
	ends := []algo.Point{route.Path[0], route.Path[len(route.Path)-1]}
	for i, role := range []string{"start", "end"} {
		f := geojson.NewFeature(ends[i].Pos())
		f.ID = ends[i].ID
		f.Properties["role"] = role
		fc.Append(f)
	}
	if len(route.ExploredPoints) > 0 {
		f := exploredFeature(route.ExploredPoints)
		f.Properties["role"] = "explored"
		fc.Append(f)
	}
	return fc
}

func exploredFeature(points []algo.Point) *geojson.Feature {
	return geojson.NewFeature(orb.MultiPoint(lo.Map(points, func(p algo.Point, _ int) orb.Point { return p.Pos() })))
}

// ExploredGeoJSON renders the explored nodes of a failed search.
func ExploredGeoJSON(points []algo.Point) *geojson.FeatureCollection {
	fc := geojson.NewFeatureCollection()
	fc.Append(exploredFeature(points))
	return fc
}

// GraphGeoJSON renders the composite graph of all loaded tiles.
func (r *Router) GraphGeoJSON() *geojson.FeatureCollection {
	return GraphGeoJSON(r.tiles.MergeAll())
}

func (r *Router) TilesGeoJSON() *geojson.FeatureCollection {
	return TilesGeoJSON(r.tiles.Tiles())
}
