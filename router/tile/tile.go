// Package tile keeps the road graph of a fixed lat/lon grid, fetching each
// cell on first use.
package tile

import (
	"errors"
	"fmt"
	"math"

	"git.fiblab.net/sim/tilerouting/router/algo"
	"github.com/paulmach/orb"
)

const (
	// 网格边长（单位：度）
	DEFAULT_TILE_SIZE = 0.03

	// NearestUnloaded的最大搜索环数
	MAX_RING_RADIUS = 64
)

var (
	ErrTileLoad = errors.New("tile load failed")
	// 错误：搜索范围内所有网格均已加载
	ErrNoUnloadedTile = errors.New("no unloaded tile in range")
)

// Key is the canonical grid index of a tile.
type Key struct {
	Lat int `json:"lat"`
	Lon int `json:"lon"`
}

func (k Key) String() string {
	return fmt.Sprintf("(%d,%d)", k.Lat, k.Lon)
}

// Less orders keys by row, then column.
func (k Key) Less(o Key) bool {
	if k.Lat != o.Lat {
		return k.Lat < o.Lat
	}
	return k.Lon < o.Lon
}

type State int

const (
	Loading State = iota
	Loaded
	Failed
)

func (s State) String() string {
	switch s {
	case Loading:
		return "loading"
	case Loaded:
		return "loaded"
	case Failed:
		return "failed"
	default:
		return fmt.Sprintf("State(%d)", int(s))
	}
}

// Tile is an immutable snapshot of one grid cell. A new value replaces it
// on every state change.
type Tile struct {
	Key   Key
	Bound orb.Bound
	State State
	// 仅Loaded时非空
	Graph *algo.Graph
	// 仅Failed时非空
	Err error
}

// TileLoadError reports a failed fetch. errors.Is(err, ErrTileLoad) holds.
type TileLoadError struct {
	Key Key
	Err error
}

func (e *TileLoadError) Error() string {
	return fmt.Sprintf("load tile %v: %v", e.Key, e.Err)
}

func (e *TileLoadError) Unwrap() error {
	return e.Err
}

func (e *TileLoadError) Is(target error) bool {
	return target == ErrTileLoad
}

// KeyOf aligns a position to the grid of the given size.
func KeyOf(lat, lon, size float64) Key {
	return Key{
		Lat: int(math.Floor(lat / size)),
		Lon: int(math.Floor(lon / size)),
	}
}

// BoundOf is the [latStart, latEnd) x [lonStart, lonEnd) box of k.
func BoundOf(k Key, size float64) orb.Bound {
	return orb.Bound{
		Min: orb.Point{float64(k.Lon) * size, float64(k.Lat) * size},
		Max: orb.Point{float64(k.Lon+1) * size, float64(k.Lat+1) * size},
	}
}
