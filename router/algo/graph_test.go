package algo_test

import (
	"testing"

	"git.fiblab.net/sim/tilerouting/geometry"
	"git.fiblab.net/sim/tilerouting/router/algo"
	"github.com/paulmach/orb"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// 赤道附近1米对应的度数
const DEG_PER_METER = 1.0 / 111_195

func newPoint(id int64, lat, lon float64) algo.Point {
	return algo.Point{ID: id, Lat: lat, Lon: lon}
}

func newEdge(id int64, a, b algo.Point, speed float64) algo.Edge {
	return algo.Edge{ID: id, A: a, B: b, RoadClass: "residential", MaxSpeedKmh: speed}
}

func neighborIDs(g *algo.Graph, id int64) []int64 {
	ids := make([]int64, 0)
	for _, p := range g.Neighbors(id) {
		ids = append(ids, p.ID)
	}
	return ids
}

func TestNewGraphTwoWay(t *testing.T) {
	p1, p2 := newPoint(1, 0, 0), newPoint(2, 0, 0.01)
	g := algo.NewGraph([]algo.Point{p1, p2}, []algo.Edge{newEdge(12, p1, p2, 36)})

	assert.Equal(t, []int64{2}, neighborIDs(g, 1))
	assert.Equal(t, []int64{1}, neighborIDs(g, 2))
	c12, ok := g.Cost(1, 2)
	require.True(t, ok)
	c21, ok := g.Cost(2, 1)
	require.True(t, ok)
	assert.InDelta(t, geometry.Distance(p1.Pos(), p2.Pos())/10, c12, 1e-9)
	assert.Equal(t, c12, c21)
	assert.InDelta(t, 36, g.AverageSpeed(), 1e-9)
}

func TestNewGraphOneway(t *testing.T) {
	p1, p2 := newPoint(1, 0, 0), newPoint(2, 0, 0.01)
	oneway := newEdge(12, p1, p2, 50)
	oneway.Oneway = true
	g := algo.NewGraph([]algo.Point{p1, p2}, []algo.Edge{oneway})
	assert.Equal(t, []int64{2}, neighborIDs(g, 1))
	assert.Empty(t, g.Neighbors(2))
	_, ok := g.Cost(2, 1)
	assert.False(t, ok)
	assert.Equal(t, 0, g.InDegree(1))
	assert.Equal(t, 1, g.InDegree(2))

	// 环岛与单行道等同
	roundabout := newEdge(12, p1, p2, 50)
	roundabout.IsRoundabout = true
	g = algo.NewGraph([]algo.Point{p1, p2}, []algo.Edge{roundabout})
	assert.Equal(t, []int64{2}, neighborIDs(g, 1))
	assert.Empty(t, g.Neighbors(2))
}

func TestNewGraphCarForbidden(t *testing.T) {
	p1, p2, p3 := newPoint(1, 0, 0), newPoint(2, 0, 0.01), newPoint(3, 0, 0.02)
	footway := newEdge(23, p2, p3, 5)
	footway.RoadClass = "footway"
	g := algo.NewGraph(nil, []algo.Edge{newEdge(12, p1, p2, 40), footway})

	// 人行道仍计入点集与边集，但不进入邻接表
	assert.Equal(t, 3, g.NumPoints())
	assert.Equal(t, 2, g.NumEdges())
	assert.Equal(t, []int64{1}, neighborIDs(g, 2))
	assert.Empty(t, g.Neighbors(3))
	// 平均速度只统计机动车道
	assert.InDelta(t, 40, g.AverageSpeed(), 1e-9)
}

func TestNewGraphDuplicateEdges(t *testing.T) {
	p1, p2 := newPoint(1, 0, 0), newPoint(2, 0, 0.01)
	slow := newEdge(1, p1, p2, 20)
	fast := newEdge(2, p1, p2, 80)
	g := algo.NewGraph(nil, []algo.Edge{slow, fast, slow})

	assert.Equal(t, []int64{2}, neighborIDs(g, 1))
	assert.Equal(t, 2, g.NumEdges())
	cost, ok := g.Cost(1, 2)
	require.True(t, ok)
	assert.InDelta(t, fast.TravelTime(), cost, 1e-9)
}

func TestNewGraphNeighborInvariant(t *testing.T) {
	p1, p2, p3 := newPoint(1, 0, 0), newPoint(2, 0, 0.01), newPoint(3, 0.01, 0.01)
	// 点集缺失的端点由边补全
	g := algo.NewGraph([]algo.Point{p1}, []algo.Edge{newEdge(12, p1, p2, 50), newEdge(23, p2, p3, 50)})
	for _, p := range g.Points() {
		for _, n := range g.Neighbors(p.ID) {
			assert.True(t, g.HasPoint(n.ID))
		}
	}
	assert.Equal(t, []int64{1, 3}, neighborIDs(g, 2))
}

func TestAverageSpeedDefault(t *testing.T) {
	g := algo.NewGraph([]algo.Point{newPoint(1, 0, 0)}, nil)
	assert.Equal(t, float64(algo.DEFAULT_MAX_SPEED), g.AverageSpeed())

	// 缺省限速
	e := newEdge(1, newPoint(1, 0, 0), newPoint(2, 0, 0.01), 0)
	assert.Equal(t, float64(algo.DEFAULT_MAX_SPEED), e.SpeedKmh())
}

func TestMergeOrderIndependent(t *testing.T) {
	p1, p2, p3, p4 := newPoint(1, 0, 0), newPoint(2, 0, 0.01), newPoint(3, 0, 0.02), newPoint(4, 0.01, 0.02)
	g1 := algo.NewGraph(nil, []algo.Edge{newEdge(12, p1, p2, 30), newEdge(23, p2, p3, 60)})
	// 与g1共享边23和点2、3
	g2 := algo.NewGraph(nil, []algo.Edge{newEdge(23, p2, p3, 60), newEdge(34, p3, p4, 90)})
	g3 := algo.NewGraph(nil, []algo.Edge{newEdge(41, p4, p1, 50)})

	a := algo.Merge(g1, g2, g3)
	b := algo.Merge(g3, g2, g1)
	assert.Equal(t, a.Points(), b.Points())
	assert.Equal(t, a.Edges(), b.Edges())
	for _, p := range a.Points() {
		assert.Equal(t, a.Neighbors(p.ID), b.Neighbors(p.ID))
		for _, n := range a.Neighbors(p.ID) {
			ca, _ := a.Cost(p.ID, n.ID)
			cb, _ := b.Cost(p.ID, n.ID)
			assert.Equal(t, ca, cb)
		}
	}
	assert.InDelta(t, a.AverageSpeed(), b.AverageSpeed(), 1e-9)

	assert.Equal(t, 4, a.NumPoints())
	assert.Equal(t, 4, a.NumEdges())
	// 共享点的邻居去重
	assert.Equal(t, []int64{2, 4}, neighborIDs(a, 3))

	// nil图被忽略
	assert.Equal(t, g1.Points(), algo.Merge(nil, g1).Points())
}

func TestMergeConflictingPoint(t *testing.T) {
	p1, p2 := newPoint(1, 0, 0), newPoint(2, 0, 0.01)
	// 两个网格对点2的坐标不一致
	moved := newPoint(2, 0.0001, 0.01)
	p3 := newPoint(3, 0, 0.02)
	g1 := algo.NewGraph(nil, []algo.Edge{newEdge(12, p1, p2, 30)})
	g2 := algo.NewGraph(nil, []algo.Edge{newEdge(23, moved, p3, 30)})

	a := algo.Merge(g1, g2)
	b := algo.Merge(g2, g1)
	pa, ok := a.Point(2)
	require.True(t, ok)
	pb, _ := b.Point(2)
	assert.Equal(t, p2, pa)
	assert.Equal(t, pa, pb)
	assert.Equal(t, a.Edges(), b.Edges())
	// 邻接表和边端点使用同一坐标
	assert.Equal(t, []algo.Point{p2}, a.Neighbors(1))
	assert.Equal(t, []algo.Point{p2}, b.Neighbors(1))
	for _, e := range a.Edges() {
		if e.ID == 23 {
			assert.Equal(t, p2, e.A)
		}
	}
}

func TestSnap(t *testing.T) {
	p1, p2 := newPoint(1, 0, 0), newPoint(2, 0, 0.01)
	p3, p4 := newPoint(3, 0.001, 0), newPoint(4, 0.001, 0.01)
	footway := newEdge(34, p3, p4, 5)
	footway.RoadClass = "footway"
	g := algo.NewGraph(nil, []algo.Edge{newEdge(12, p1, p2, 50), footway})

	// 人行道更近但不可用
	p, ok := g.Snap(orb.Point{0.008, 0.0009})
	require.True(t, ok)
	assert.Equal(t, int64(2), p.ID)
	p, ok = g.Snap(orb.Point{0.001, 0.0001})
	require.True(t, ok)
	assert.Equal(t, int64(1), p.ID)

	_, ok = algo.NewGraph(nil, []algo.Edge{footway}).Snap(orb.Point{0, 0})
	assert.False(t, ok)
}

func TestHeuristic(t *testing.T) {
	p1, p2 := newPoint(1, 0, 0), newPoint(2, 0, 0.01)
	g := algo.NewGraph(nil, []algo.Edge{newEdge(12, p1, p2, 36)})
	// 平均速度36km/h即10m/s
	assert.InDelta(t, geometry.Distance(p1.Pos(), p2.Pos())/10, g.Heuristic(p1, p2), 1e-9)
	assert.Equal(t, 0.0, g.Heuristic(p2, p2))
}
