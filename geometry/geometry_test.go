package geometry_test

import (
	"math"
	"testing"

	"git.fiblab.net/sim/tilerouting/geometry"
	"github.com/paulmach/orb"
	"github.com/stretchr/testify/assert"
)

func TestDistance(t *testing.T) {
	// 赤道上1度经度约111.195km
	d := geometry.Distance(orb.Point{0, 0}, orb.Point{1, 0})
	assert.InDelta(t, 111_195, d, 1)

	assert.Equal(t, 0.0, geometry.Distance(orb.Point{12.5, 55.7}, orb.Point{12.5, 55.7}))

	// 对称
	a, b := orb.Point{12.49, 55.72}, orb.Point{12.51, 55.74}
	assert.InDelta(t, geometry.Distance(a, b), geometry.Distance(b, a), 1e-9)
}

func TestDistanceAntipodal(t *testing.T) {
	// 对跖点处h可能因浮点误差略大于1
	d := geometry.Distance(orb.Point{0, 0}, orb.Point{180, 0})
	assert.False(t, math.IsNaN(d))
	assert.InDelta(t, math.Pi*geometry.EARTH_RADIUS, d, 1)

	d = geometry.Distance(orb.Point{-179.999999, 89.9999}, orb.Point{0.000001, -89.9999})
	assert.False(t, math.IsNaN(d))
}

func TestPolylineLength(t *testing.T) {
	line := []orb.Point{{0, 0}, {1, 0}, {2, 0}}
	assert.InDelta(t, 2*geometry.Distance(orb.Point{0, 0}, orb.Point{1, 0}), geometry.PolylineLength(line), 1e-6)
	assert.Equal(t, 0.0, geometry.PolylineLength(line[:1]))
}

func TestDistanceToSegment(t *testing.T) {
	a, b := orb.Point{0, 0}, orb.Point{2, 0}

	d, closest := geometry.DistanceToSegment(orb.Point{1, 1}, a, b)
	assert.InDelta(t, 1, d, 1e-12)
	assert.Equal(t, orb.Point{1, 0}, closest)

	// 投影落在线段外时取端点
	d, closest = geometry.DistanceToSegment(orb.Point{-1, 0}, a, b)
	assert.InDelta(t, 1, d, 1e-12)
	assert.Equal(t, a, closest)

	// 退化线段
	d, closest = geometry.DistanceToSegment(orb.Point{3, 4}, a, a)
	assert.InDelta(t, 5, d, 1e-12)
	assert.Equal(t, a, closest)
}
