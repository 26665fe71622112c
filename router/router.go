// Package router answers driving route requests on a road graph that is
// fetched tile by tile while the search runs.
package router

import (
	"git.fiblab.net/sim/tilerouting/router/algo"
	"git.fiblab.net/sim/tilerouting/router/provider"
	"git.fiblab.net/sim/tilerouting/router/tile"
	"github.com/samber/lo"
)

const (
	// 单次请求最多搜索次数
	DEFAULT_MAX_TRIES = 100
	// 每隔多少次失败的搜索，单次补充加载的网格数加一
	DEFAULT_TILE_GROWTH_EVERY = 10
	// 单次补充加载的网格数上限
	DEFAULT_MAX_TILES_PER_RETRY = 4
)

type Router struct {
	// 所有请求共享的网格注册表
	tiles *tile.Store

	tileSize         float64
	maxTries         int
	algorithm        algo.Algorithm
	tileGrowthEvery  int
	maxTilesPerRetry int
}

type Option func(*Router)

func WithTileSize(size float64) Option {
	return func(r *Router) { r.tileSize = size }
}

func WithMaxTries(n int) Option {
	return func(r *Router) { r.maxTries = n }
}

// WithAlgorithm sets the search used when a request names none.
func WithAlgorithm(alg algo.Algorithm) Option {
	return func(r *Router) { r.algorithm = alg }
}

// WithTileGrowth makes every `every` failed tries load one more tile per
// retry, up to max.
func WithTileGrowth(every, max int) Option {
	return func(r *Router) {
		r.tileGrowthEvery = every
		r.maxTilesPerRetry = max
	}
}

func New(p provider.Provider, opts ...Option) *Router {
	r := &Router{
		tileSize:         tile.DEFAULT_TILE_SIZE,
		maxTries:         DEFAULT_MAX_TRIES,
		algorithm:        algo.ASTAR,
		tileGrowthEvery:  DEFAULT_TILE_GROWTH_EVERY,
		maxTilesPerRetry: DEFAULT_MAX_TILES_PER_RETRY,
	}
	for _, opt := range opts {
		opt(r)
	}
	// 零值表示使用默认配置
	if r.maxTries <= 0 {
		r.maxTries = DEFAULT_MAX_TRIES
	}
	if r.algorithm == "" {
		r.algorithm = algo.ASTAR
	}
	r.tileGrowthEvery = lo.Max([]int{r.tileGrowthEvery, 1})
	r.maxTilesPerRetry = lo.Max([]int{r.maxTilesPerRetry, 1})
	r.tiles = tile.NewStore(p, r.tileSize)
	return r
}

// tilesPerRetry is the number of tiles to load after the given failed try
// (1-based).
func (r *Router) tilesPerRetry(try int) int {
	return lo.Clamp(1+(try-1)/r.tileGrowthEvery, 1, r.maxTilesPerRetry)
}

// getter

func (r *Router) Tiles() *tile.Store {
	return r.tiles
}

func (r *Router) MaxTries() int {
	return r.maxTries
}

func (r *Router) Algorithm() algo.Algorithm {
	return r.algorithm
}

// close
func (r *Router) Close() {}
