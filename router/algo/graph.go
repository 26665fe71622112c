package algo

import (
	"fmt"
	"math"
	"sort"

	"git.fiblab.net/sim/tilerouting/geometry"
	"github.com/paulmach/orb"
	"github.com/samber/lo"
)

// Graph is the road graph of one tile or the composite of several tiles.
// It is immutable once built and safe for concurrent searches.
type Graph struct {
	points map[int64]Point
	edges  map[int64]Edge
	// 邻接表，已按是否允许机动车通行及单行方向过滤
	// in node -> out nodes
	neighbors map[int64][]Point
	// 预计算的通行时间（单位：秒），from -> to -> cost
	// 不存在即不可通行
	costs map[int64]map[int64]float64
	// 入度，只计可通行的有向边
	inDegree map[int64]int
	// 按边长加权的平均限速（单位：km/h），用于校准启发函数
	avgSpeed float64
}

func newGraph() *Graph {
	return &Graph{
		points:    make(map[int64]Point),
		edges:     make(map[int64]Edge),
		neighbors: make(map[int64][]Point),
		costs:     make(map[int64]map[int64]float64),
		inDegree:  make(map[int64]int),
	}
}

// NewGraph builds the neighbor index and the time cost map from raw edges.
// Edge endpoints are added to the point set when missing.
func NewGraph(points []Point, edges []Edge) *Graph {
	g := newGraph()
	for _, p := range points {
		g.addPoint(p)
	}
	for _, e := range edges {
		g.addEdge(e)
	}
	g.finish()
	return g
}

// Merge unions the points, edges and neighbor lists of several graphs.
// The result only depends on the set of input graphs, not on their order.
func Merge(graphs ...*Graph) *Graph {
	m := newGraph()
	for _, g := range graphs {
		if g == nil {
			continue
		}
		for _, p := range g.points {
			m.addPoint(p)
		}
		for id, e := range g.edges {
			if _, ok := m.edges[id]; !ok {
				m.edges[id] = e
			}
		}
	}
	for _, g := range graphs {
		if g == nil {
			continue
		}
		for from, tos := range g.neighbors {
			fromP := m.points[from]
			for _, to := range tos {
				m.link(fromP, m.points[to.ID], g.costs[from][to.ID])
			}
		}
	}
	m.finish()
	return m
}

func (g *Graph) addPoint(p Point) {
	old, ok := g.points[p.ID]
	if !ok {
		g.points[p.ID] = p
		return
	}
	if old.Equal(p) {
		return
	}
	// 坐标冲突时保留(lat, lon)较小者，与加入顺序无关
	keep := old
	if p.Lat < old.Lat || (p.Lat == old.Lat && p.Lon < old.Lon) {
		keep = p
	}
	log.Warnf("point %d has conflicting coordinates (%v,%v) vs (%v,%v), keep (%v,%v)",
		p.ID, old.Lat, old.Lon, p.Lat, p.Lon, keep.Lat, keep.Lon)
	g.points[p.ID] = keep
}

func (g *Graph) addEdge(e Edge) {
	if _, ok := g.edges[e.ID]; ok {
		return
	}
	g.addPoint(e.A)
	g.addPoint(e.B)
	e.A, e.B = g.points[e.A.ID], g.points[e.B.ID]
	g.edges[e.ID] = e
	if !e.CarAllowed() {
		return
	}
	cost := e.TravelTime()
	g.link(e.A, e.B, cost)
	if e.Reversible() {
		g.link(e.B, e.A, cost)
	}
}

// link adds to as a neighbor of from; duplicates keep the lower cost.
func (g *Graph) link(from, to Point, cost float64) {
	tos, ok := g.costs[from.ID]
	if !ok {
		tos = make(map[int64]float64)
		g.costs[from.ID] = tos
	}
	if old, ok := tos[to.ID]; ok {
		tos[to.ID] = math.Min(old, cost)
		return
	}
	tos[to.ID] = cost
	g.neighbors[from.ID] = append(g.neighbors[from.ID], to)
	g.inDegree[to.ID]++
}

func (g *Graph) finish() {
	// 冲突点的坐标可能在加入后被替换，统一使用点集中的坐标
	for _, tos := range g.neighbors {
		for i := range tos {
			tos[i] = g.points[tos[i].ID]
		}
		sort.Slice(tos, func(i, j int) bool { return tos[i].ID < tos[j].ID })
	}
	for id, e := range g.edges {
		e.A, e.B = g.points[e.A.ID], g.points[e.B.ID]
		g.edges[id] = e
	}
	lengthSum, speedLengthSum := 0.0, 0.0
	for _, e := range g.edges {
		if !e.CarAllowed() {
			continue
		}
		length := e.Length()
		lengthSum += length
		speedLengthSum += e.SpeedKmh() * length
	}
	if lengthSum > 0 {
		g.avgSpeed = speedLengthSum / lengthSum
	} else {
		g.avgSpeed = DEFAULT_MAX_SPEED
	}
}

// getter

func (g *Graph) Point(id int64) (Point, bool) {
	p, ok := g.points[id]
	return p, ok
}

func (g *Graph) HasPoint(id int64) bool {
	_, ok := g.points[id]
	return ok
}

// Points returns all points ordered by id.
func (g *Graph) Points() []Point {
	points := lo.Values(g.points)
	sort.Slice(points, func(i, j int) bool { return points[i].ID < points[j].ID })
	return points
}

// Edges returns all edges ordered by id, including those closed to cars.
func (g *Graph) Edges() []Edge {
	edges := lo.Values(g.edges)
	sort.Slice(edges, func(i, j int) bool { return edges[i].ID < edges[j].ID })
	return edges
}

// Neighbors returns the directly reachable points of id. The slice must not be modified.
func (g *Graph) Neighbors(id int64) []Point {
	return g.neighbors[id]
}

// InDegree counts the drivable directed edges leading into id.
func (g *Graph) InDegree(id int64) int {
	return g.inDegree[id]
}

// Cost returns the precomputed travel time of from->to in seconds.
func (g *Graph) Cost(from, to int64) (float64, bool) {
	cost, ok := g.costs[from][to]
	return cost, ok
}

// AverageSpeed is the length-weighted average max speed in km/h.
func (g *Graph) AverageSpeed() float64 {
	return g.avgSpeed
}

func (g *Graph) NumPoints() int {
	return len(g.points)
}

func (g *Graph) NumEdges() int {
	return len(g.edges)
}

// Heuristic estimates the travel time in seconds from p to goal at the
// graph's average speed. It is not a lower bound of the true cost.
func (g *Graph) Heuristic(p, goal Point) float64 {
	return geometry.Distance(p.Pos(), goal.Pos()) / (g.avgSpeed / KMH_PER_MS)
}

// Snap returns the endpoint of the nearest car-allowed edge to pos.
func (g *Graph) Snap(pos orb.Point) (Point, bool) {
	var nearest Point
	found := false
	minDistance := math.Inf(0)
	for _, e := range g.Edges() {
		if !e.CarAllowed() {
			continue
		}
		d, closest := geometry.DistanceToSegment(pos, e.A.Pos(), e.B.Pos())
		if d >= minDistance {
			continue
		}
		minDistance = d
		found = true
		if geometry.PlanarDistance(closest, e.A.Pos()) <= geometry.PlanarDistance(closest, e.B.Pos()) {
			nearest = e.A
		} else {
			nearest = e.B
		}
	}
	return nearest, found
}

func (g *Graph) String() string {
	return fmt.Sprintf("Graph{points=%d, edges=%d, avgSpeed=%.1fkm/h}", len(g.points), len(g.edges), g.avgSpeed)
}
