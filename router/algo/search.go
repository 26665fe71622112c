package algo

import (
	"container/heap"
	"fmt"

	"github.com/samber/lo"
)

// SearchResult is the outcome of one search on a Graph.
// On failure Path is nil and Closed holds the explored frontier.
type SearchResult struct {
	Path      []Point
	Cost      float64 // 通行时间（单位：秒）
	Algorithm Algorithm
	Expanded  int
	Closed    []Point // 按出堆顺序
	Found     bool
}

// 搜索树节点，parent为arena下标，根节点为-1
type searchNode struct {
	point   Point
	parent  int
	g, h, f float64
}

func (g *Graph) ShortestPath(start, end int64, alg Algorithm) (*SearchResult, error) {
	switch alg {
	case ASTAR, "":
		return g.ShortestPathAStar(start, end)
	case DIJKSTRA:
		return g.ShortestPathDijkstra(start, end)
	case BEST:
		return g.ShortestPathBest(start, end)
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownAlgorithm, alg)
	}
}

// ShortestPathAStar runs A* with f = g + HEURISTIC_INFLATION*h. The inflated
// heuristic trades optimality for fewer expansions.
func (g *Graph) ShortestPathAStar(start, end int64) (*SearchResult, error) {
	return g.search(start, end, HEURISTIC_INFLATION, ASTAR)
}

// ShortestPathDijkstra is the uninformed variant and always optimal.
func (g *Graph) ShortestPathDijkstra(start, end int64) (*SearchResult, error) {
	return g.search(start, end, 0, DIJKSTRA)
}

// ShortestPathBest runs both searches and keeps the cheaper path.
func (g *Graph) ShortestPathBest(start, end int64) (*SearchResult, error) {
	aStar, errA := g.ShortestPathAStar(start, end)
	dijkstra, errD := g.ShortestPathDijkstra(start, end)
	switch {
	case errA != nil && errD != nil:
		return aStar, errA
	case errA != nil:
		return dijkstra, nil
	case errD != nil:
		return aStar, nil
	}
	if dijkstra.Cost < aStar.Cost {
		return dijkstra, nil
	}
	return aStar, nil
}

func (g *Graph) search(start, end int64, weight float64, alg Algorithm) (*SearchResult, error) {
	startP, ok := g.points[start]
	if !ok {
		return nil, fmt.Errorf("start %d: %w", start, ErrNodeNotFound)
	}
	endP, ok := g.points[end]
	if !ok {
		return nil, fmt.Errorf("end %d: %w", end, ErrNodeNotFound)
	}
	if start == end {
		return &SearchResult{Path: []Point{startP}, Algorithm: alg, Found: true}, nil
	}
	heuristic := func(p Point) float64 {
		if weight == 0 {
			return 0
		}
		return g.Heuristic(p, endP)
	}

	arena := make([]searchNode, 0, 64)
	openIndex := make(map[int64]int) // point id -> 当前最优节点的arena下标
	closed := make(map[int64]struct{})
	closedOrder := make([]Point, 0)
	openSet := make(PriorityQueue, 0)
	seq := 0
	push := func(n searchNode) {
		arena = append(arena, n)
		index := len(arena) - 1
		openIndex[n.point.ID] = index
		heap.Push(&openSet, &Item{Value: index, Priority: n.f, H: n.h, Seq: seq})
		seq++
	}

	h := heuristic(startP)
	push(searchNode{point: startP, parent: -1, g: 0, h: h, f: weight * h})
	for openSet.Len() > 0 {
		index := heap.Pop(&openSet).(*Item).Value
		cur := arena[index]
		if _, ok := closed[cur.point.ID]; ok {
			continue
		}
		// 已被更优节点取代的过期项
		if openIndex[cur.point.ID] != index {
			continue
		}
		if cur.point.ID == end {
			return &SearchResult{
				Path:      reconstructPath(arena, index),
				Cost:      cur.g,
				Algorithm: alg,
				Expanded:  len(closedOrder),
				Closed:    closedOrder,
				Found:     true,
			}, nil
		}
		closed[cur.point.ID] = struct{}{}
		closedOrder = append(closedOrder, cur.point)
		for _, next := range g.neighbors[cur.point.ID] {
			if _, ok := closed[next.ID]; ok {
				continue
			}
			cost, ok := g.costs[cur.point.ID][next.ID]
			if !ok {
				continue
			}
			nextG := cur.g + cost
			nextH := heuristic(next)
			nextF := nextG + weight*nextH
			if old, ok := openIndex[next.ID]; ok && arena[old].f <= nextF {
				continue
			}
			push(searchNode{point: next, parent: index, g: nextG, h: nextH, f: nextF})
		}
	}
	log.Debugf("%s: no path between %d and %d after %d expansions", alg, start, end, len(closedOrder))
	return &SearchResult{
		Algorithm: alg,
		Expanded:  len(closedOrder),
		Closed:    closedOrder,
	}, ErrNoPathFound
}

func reconstructPath(arena []searchNode, index int) []Point {
	pathBeforeReversed := make([]Point, 0)
	for ; index != -1; index = arena[index].parent {
		pathBeforeReversed = append(pathBeforeReversed, arena[index].point)
	}
	return lo.Reverse(pathBeforeReversed)
}
