package router

import (
	"context"
	"fmt"

	"git.fiblab.net/sim/tilerouting/router/algo"
	"github.com/paulmach/orb"
)

// 加载起终点所在网格，并将起终点吸附到最近的机动车道端点
// 只在各自所在网格内吸附，避免落到远处无关的道路上
func (r *Router) initEndpoints(ctx context.Context, start, end orb.Point) (startP, endP algo.Point, err error) {
	startGraph, err := r.tiles.EnsureLoaded(ctx, start.Lat(), start.Lon())
	if err != nil {
		return startP, endP, fmt.Errorf("load start tile: %w", err)
	}
	startP, ok := startGraph.Snap(start)
	if !ok {
		return startP, endP, &RouteError{Err: ErrNoStartRoad}
	}

	endGraph, err := r.tiles.EnsureLoaded(ctx, end.Lat(), end.Lon())
	if err != nil {
		if ctx.Err() != nil {
			return startP, endP, ctx.Err()
		}
		log.Warnf("failed to load goal tile: %v", err)
		return startP, endP, r.unreachableGoal(startP, fmt.Errorf("%w: %v", ErrUnreachableGoal, err))
	}
	endP, ok = endGraph.Snap(end)
	if !ok {
		return startP, endP, r.unreachableGoal(startP, ErrUnreachableGoal)
	}
	log.Debugf("snapped start %v to node %d, end %v to node %d", start, startP.ID, end, endP.ID)
	return startP, endP, nil
}

// 终点无路可达时仍从起点搜索一次，附带可达范围
func (r *Router) unreachableGoal(startP algo.Point, cause error) error {
	explored, err := r.tiles.MergeAll().Reachable(startP.ID)
	if err != nil {
		// 起点网格已被驱逐
		return fmt.Errorf("%v: %w", cause, err)
	}
	return &RouteError{Err: cause, Explored: explored, Tries: 1}
}
