package algo

import (
	"errors"
)

const (
	// km/h与m/s换算
	KMH_PER_MS = 3.6

	// 缺省限速（单位：km/h），与OSM中无maxspeed标签的道路对应
	DEFAULT_MAX_SPEED = 50

	// A*启发函数放大系数，f = g + HEURISTIC_INFLATION * h
	// 以牺牲最优性换取更少的结点扩展
	HEURISTIC_INFLATION = 1.3
)

// 搜索算法
type Algorithm string

const (
	ASTAR    Algorithm = "A*"
	DIJKSTRA Algorithm = "Dijkstra"
	// 同时运行A*与Dijkstra，取代价较小者
	BEST Algorithm = "best"
)

func (a Algorithm) Valid() bool {
	return a == ASTAR || a == DIJKSTRA || a == BEST
}

var (
	// 错误：开放列表耗尽仍未到达终点
	ErrNoPathFound = errors.New("no path found")
	// 错误：起点或终点不在图中
	ErrNodeNotFound = errors.New("node not found in graph")
	// 错误：未知搜索算法
	ErrUnknownAlgorithm = errors.New("unknown search algorithm")
)

// 不允许机动车通行的道路类型
var carForbiddenRoadClasses = map[string]struct{}{
	"pedestrian":   {},
	"footway":      {},
	"path":         {},
	"steps":        {},
	"cycleway":     {},
	"bus_guideway": {},
	"busway":       {},
}
