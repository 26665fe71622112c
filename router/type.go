package router

import (
	"errors"
	"fmt"

	"git.fiblab.net/sim/tilerouting/router/algo"
	"github.com/paulmach/orb"
	"github.com/samber/lo"
)

var (
	// 错误：终点所在网格内没有可供机动车通行的道路
	ErrUnreachableGoal = errors.New("unreachable goal")
	// 错误：起点附近没有可供机动车通行的道路
	ErrNoStartRoad = errors.New("no drivable road near start")
)

// Route is a found driving path.
type Route struct {
	Path      []algo.Point   `json:"path"`
	Algorithm algo.Algorithm `json:"algorithm"`
	DistanceM float64        `json:"distance_m"`
	TimeS     float64        `json:"time_s"`
	// 最后一次搜索扩展的结点数及结点本身
	Explored       int          `json:"explored"`
	ExploredPoints []algo.Point `json:"explored_points,omitempty"`
	Tries          int          `json:"tries"`
	// 本次请求补充加载成功的网格数
	TilesLoaded int `json:"tiles_loaded"`
}

func (r *Route) LineString() orb.LineString {
	return lo.Map(r.Path, func(p algo.Point, _ int) orb.Point { return p.Pos() })
}

// RouteError is a terminal routing failure carrying the last explored set.
type RouteError struct {
	Err      error
	Explored []algo.Point
	Tries    int
}

func (e *RouteError) Error() string {
	return fmt.Sprintf("%v after %d tries (%d nodes explored)", e.Err, e.Tries, len(e.Explored))
}

func (e *RouteError) Unwrap() error {
	return e.Err
}
