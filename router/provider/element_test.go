package provider_test

import (
	"math"
	"testing"

	"git.fiblab.net/sim/tilerouting/router/algo"
	"git.fiblab.net/sim/tilerouting/router/provider"
	"github.com/paulmach/orb"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseMaxSpeed(t *testing.T) {
	cases := map[string]float64{
		"":         algo.DEFAULT_MAX_SPEED,
		"none":     algo.DEFAULT_MAX_SPEED,
		"signals":  algo.DEFAULT_MAX_SPEED,
		"0":        algo.DEFAULT_MAX_SPEED,
		"30":       30,
		" 80 ":     80,
		"70 km/h":  70,
		"30 mph":   30 * provider.MPH_TO_KMH,
		"20mph":    20 * provider.MPH_TO_KMH,
		"50;30":    50,
		"DE:urban": algo.DEFAULT_MAX_SPEED,
	}
	for value, expected := range cases {
		assert.InDelta(t, expected, provider.ParseMaxSpeed(value), 1e-9, value)
	}
}

func TestParseOneway(t *testing.T) {
	for _, v := range []string{"yes", "1", "true", "YES"} {
		oneway, reversed := provider.ParseOneway(v)
		assert.True(t, oneway, v)
		assert.False(t, reversed, v)
	}
	for _, v := range []string{"-1", "reverse"} {
		oneway, reversed := provider.ParseOneway(v)
		assert.True(t, oneway, v)
		assert.True(t, reversed, v)
	}
	for _, v := range []string{"", "no", "alternating"} {
		oneway, _ := provider.ParseOneway(v)
		assert.False(t, oneway, v)
	}
}

func newElement(id int64, tags map[string]string, nodes ...int64) provider.RoadElement {
	e := provider.RoadElement{ID: id, NodeIDs: nodes, Tags: tags}
	for _, n := range nodes {
		e.Geometry = append(e.Geometry, orb.Point{float64(n) * 0.001, 0})
	}
	return e
}

func TestValidate(t *testing.T) {
	ok := newElement(1, map[string]string{"highway": "primary"}, 1, 2)
	assert.NoError(t, ok.Validate())

	short := newElement(1, map[string]string{"highway": "primary"}, 1)
	assert.ErrorIs(t, short.Validate(), provider.ErrMalformedElement)

	noHighway := newElement(1, map[string]string{"name": "x"}, 1, 2)
	assert.ErrorIs(t, noHighway.Validate(), provider.ErrMalformedElement)

	mismatch := newElement(1, map[string]string{"highway": "primary"}, 1, 2)
	mismatch.Geometry = mismatch.Geometry[:1]
	assert.ErrorIs(t, mismatch.Validate(), provider.ErrMalformedElement)

	nan := newElement(1, map[string]string{"highway": "primary"}, 1, 2)
	nan.Geometry[1] = orb.Point{math.NaN(), 0}
	assert.ErrorIs(t, nan.Validate(), provider.ErrMalformedElement)

	outOfRange := newElement(1, map[string]string{"highway": "primary"}, 1, 2)
	outOfRange.Geometry[0] = orb.Point{0, 91}
	assert.ErrorIs(t, outOfRange.Validate(), provider.ErrMalformedElement)
}

func TestEdges(t *testing.T) {
	e := newElement(7, map[string]string{
		"highway":  "secondary",
		"maxspeed": "60",
		"name":     "Main Street",
		"oneway":   "-1",
	}, 1, 2, 3)
	edges := e.Edges()
	require.Len(t, edges, 2)
	// 逆向单行道按反向节点顺序生成
	assert.Equal(t, int64(3), edges[0].A.ID)
	assert.Equal(t, int64(2), edges[0].B.ID)
	assert.Equal(t, int64(1), edges[1].B.ID)
	assert.Equal(t, int64(7*provider.EDGE_ID_STRIDE), edges[0].ID)
	assert.Equal(t, int64(7*provider.EDGE_ID_STRIDE+1), edges[1].ID)
	for _, edge := range edges {
		assert.True(t, edge.Oneway)
		assert.Equal(t, 60.0, edge.MaxSpeedKmh)
		assert.Equal(t, "secondary", edge.RoadClass)
		assert.Equal(t, "Main Street", edge.StreetName)
	}

	roundabout := newElement(8, map[string]string{"highway": "primary", "junction": "roundabout"}, 1, 2)
	assert.True(t, roundabout.Edges()[0].IsRoundabout)
	assert.False(t, roundabout.Edges()[0].Oneway)
}

func TestElementsToGraph(t *testing.T) {
	elements := []provider.RoadElement{
		newElement(1, map[string]string{"highway": "residential"}, 1, 2, 3),
		newElement(2, map[string]string{"highway": "residential", "oneway": "yes"}, 3, 4),
		newElement(3, map[string]string{"highway": "footway"}, 4, 5),
		newElement(4, map[string]string{}, 5, 6),
		newElement(5, map[string]string{"highway": "residential"}, 6),
	}
	g, skipped := provider.ElementsToGraph(elements)
	assert.Equal(t, 2, skipped)
	assert.Equal(t, 5, g.NumPoints())
	assert.Equal(t, 4, g.NumEdges())

	res, err := g.ShortestPathAStar(1, 4)
	require.NoError(t, err)
	assert.Len(t, res.Path, 4)
	_, err = g.ShortestPathAStar(4, 1)
	assert.ErrorIs(t, err, algo.ErrNoPathFound)
	_, err = g.ShortestPathAStar(1, 5)
	assert.ErrorIs(t, err, algo.ErrNoPathFound)
}
