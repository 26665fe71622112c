package algo

import (
	"math"
	"sort"

	"github.com/samber/lo"
	"gonum.org/v1/gonum/graph/path"
	"gonum.org/v1/gonum/graph/simple"
)

// WeightedDirected exports the drivable part of g as a gonum graph weighted
// by travel time. Node ids are point ids.
func (g *Graph) WeightedDirected() *simple.WeightedDirectedGraph {
	wg := simple.NewWeightedDirectedGraph(0, math.Inf(1))
	for _, p := range g.Points() {
		wg.AddNode(simple.Node(p.ID))
	}
	for from, costs := range g.costs {
		for to, cost := range costs {
			// gonum不允许自环
			if from == to {
				continue
			}
			wg.SetWeightedEdge(simple.WeightedEdge{F: simple.Node(from), T: simple.Node(to), W: cost})
		}
	}
	return wg
}

// CostsFrom returns the optimal travel time from start to every point
// reachable from it.
func (g *Graph) CostsFrom(start int64) (map[int64]float64, error) {
	if !g.HasPoint(start) {
		return nil, ErrNodeNotFound
	}
	shortest := path.DijkstraFrom(simple.Node(start), g.WeightedDirected())
	costs := make(map[int64]float64)
	for id := range g.points {
		if w := shortest.WeightTo(id); !math.IsInf(w, 1) {
			costs[id] = w
		}
	}
	return costs, nil
}

// Reachable lists the points reachable from start, nearest in travel time first.
func (g *Graph) Reachable(start int64) ([]Point, error) {
	costs, err := g.CostsFrom(start)
	if err != nil {
		return nil, err
	}
	points := lo.Map(lo.Keys(costs), func(id int64, _ int) Point { return g.points[id] })
	sort.Slice(points, func(i, j int) bool {
		ci, cj := costs[points[i].ID], costs[points[j].ID]
		if ci != cj {
			return ci < cj
		}
		return points[i].ID < points[j].ID
	})
	return points, nil
}
