package router

import (
	"context"
	"errors"
	"fmt"

	"git.fiblab.net/sim/tilerouting/geometry"
	"git.fiblab.net/sim/tilerouting/router/algo"
	"git.fiblab.net/sim/tilerouting/router/tile"
	"github.com/paulmach/orb"
	"github.com/samber/lo"
)

// SearchDriving searches a driving route between two positions. When the goal
// cannot be reached on the loaded graph, tiles around the explored node
// closest to the goal are loaded and the search is repeated, at most MaxTries
// times. An empty alg selects the router's default.
func (r *Router) SearchDriving(
	ctx context.Context, start, end orb.Point, alg algo.Algorithm,
) (route *Route, err error) {
	// panic recover
	defer func() {
		if e := recover(); e != nil {
			route = nil
			err = fmt.Errorf("panic: SearchDriving %v with input start=%v, end=%v", e, start, end)
			log.Errorln(err)
		}
	}()
	if alg == "" {
		alg = r.algorithm
	}

	startP, endP, err := r.initEndpoints(ctx, start, end)
	if err != nil {
		return nil, err
	}

	// 本次请求中加载失败的网格不再重试
	failed := make(map[tile.Key]struct{})
	skip := func(k tile.Key) bool {
		_, ok := failed[k]
		return ok
	}
	tilesLoaded := 0
	var last *algo.SearchResult
	try := 0
	for try < r.maxTries {
		try++
		graph := r.tiles.MergeAll()
		res, err := graph.ShortestPath(startP.ID, endP.ID, alg)
		if err == nil {
			route := newRoute(graph, res)
			route.Tries = try
			route.TilesLoaded = tilesLoaded
			log.Debugf("route %v -> %v: %d nodes, %.0fm, %.0fs, %d tries",
				start, end, len(route.Path), route.DistanceM, route.TimeS, try)
			return route, nil
		}
		if !errors.Is(err, algo.ErrNoPathFound) {
			return nil, err
		}
		last = res
		// 终点网格已加载，与终点相连的道路都已在图中
		// 没有驶入终点的边时再加载网格也无济于事
		if graph.InDegree(endP.ID) == 0 {
			log.Debugf("no drivable edge leads into goal node %d", endP.ID)
			return nil, &RouteError{Err: ErrUnreachableGoal, Explored: res.Closed, Tries: try}
		}
		if try == r.maxTries {
			break
		}

		// 启发值最小的已扩展结点最可能紧邻缺失的地图数据
		frontier := lo.MinBy(res.Closed, func(a, b algo.Point) bool {
			return graph.Heuristic(a, endP) < graph.Heuristic(b, endP)
		})
		keys := r.tiles.NearestUnloadedN(frontier.Pos(), r.tilesPerRetry(try), skip)
		if len(keys) == 0 {
			log.Debugf("no tile left to load around %v", frontier.Pos())
			break
		}
		for _, k := range keys {
			if _, err := r.tiles.Load(ctx, k); err != nil {
				if ctx.Err() != nil {
					return nil, ctx.Err()
				}
				failed[k] = struct{}{}
				log.Warnf("skip tile %v for this request: %v", k, err)
				continue
			}
			tilesLoaded++
		}
	}
	log.Debugf("routing failed, no path between %v and %v", start, end)
	return nil, &RouteError{Err: algo.ErrNoPathFound, Explored: last.Closed, Tries: try}
}

func newRoute(graph *algo.Graph, res *algo.SearchResult) *Route {
	route := &Route{
		Path:      res.Path,
		Algorithm: res.Algorithm,
		Explored:  res.Expanded,

		ExploredPoints: res.Closed,
	}
	for i := 1; i < len(res.Path); i++ {
		cost, _ := graph.Cost(res.Path[i-1].ID, res.Path[i].ID)
		route.TimeS += cost
	}
	route.DistanceM = geometry.PolylineLength(route.LineString())
	return route
}
