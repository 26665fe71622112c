package tile

import (
	"context"
	"fmt"
	"math"
	"sort"
	"sync/atomic"
	"time"

	"git.fiblab.net/sim/tilerouting/geometry"
	"git.fiblab.net/sim/tilerouting/router/algo"
	"git.fiblab.net/sim/tilerouting/router/provider"
	"github.com/paulmach/orb"
	"github.com/puzpuzpuz/xsync/v3"
	"github.com/samber/lo"
	"golang.org/x/sync/errgroup"
	"golang.org/x/sync/singleflight"
)

// Store is the tile registry. Concurrent loads of the same key share one
// provider fetch; different keys load in parallel.
type Store struct {
	provider provider.Provider
	size     float64

	tiles *xsync.MapOf[Key, *Tile]
	group singleflight.Group
	// Loaded集合每次变化时递增
	generation atomic.Uint64
	fetches    atomic.Int64

	// 合并图缓存
	mu               *xsync.RBMutex
	merged           *algo.Graph
	mergedGeneration uint64
}

func NewStore(p provider.Provider, size float64) *Store {
	if size <= 0 {
		size = DEFAULT_TILE_SIZE
	}
	return &Store{
		provider: p,
		size:     size,
		tiles:    xsync.NewMapOf[Key, *Tile](),
		mu:       xsync.NewRBMutex(),
	}
}

func (s *Store) Size() float64 {
	return s.size
}

func (s *Store) KeyOf(p orb.Point) Key {
	return KeyOf(p.Lat(), p.Lon(), s.size)
}

func (s *Store) Bound(k Key) orb.Bound {
	return BoundOf(k, s.size)
}

// EnsureLoaded returns the graph of the tile containing (lat, lon), loading it
// if needed.
func (s *Store) EnsureLoaded(ctx context.Context, lat, lon float64) (*algo.Graph, error) {
	return s.Load(ctx, KeyOf(lat, lon, s.size))
}

// Load returns the graph of tile k. If a load of k is in flight the caller
// waits for it instead of fetching again. A cancelled ctx only abandons the
// wait: the fetch completes and still populates the registry.
func (s *Store) Load(ctx context.Context, k Key) (*algo.Graph, error) {
	if t, ok := s.tiles.Load(k); ok && t.State == Loaded {
		return t.Graph, nil
	}
	fetchCtx := context.WithoutCancel(ctx)
	ch := s.group.DoChan(k.String(), func() (any, error) {
		return s.fetch(fetchCtx, k)
	})
	select {
	case <-ctx.Done():
		return nil, ctx.Err()
	case r := <-ch:
		if r.Err != nil {
			return nil, r.Err
		}
		return r.Val.(*algo.Graph), nil
	}
}

func (s *Store) fetch(ctx context.Context, k Key) (g *algo.Graph, err error) {
	// 进入singleflight前可能刚好加载完成
	if t, ok := s.tiles.Load(k); ok && t.State == Loaded {
		return t.Graph, nil
	}
	bound := s.Bound(k)
	s.tiles.Store(k, &Tile{Key: k, Bound: bound, State: Loading})
	s.fetches.Add(1)
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("provider panic: %v", r)
		}
		if err != nil {
			err = &TileLoadError{Key: k, Err: err}
			s.tiles.Store(k, &Tile{Key: k, Bound: bound, State: Failed, Err: err})
			log.Warnf("%v", err)
		}
	}()

	start := time.Now()
	elements, err := s.provider.FetchTile(ctx, bound)
	if err != nil {
		return nil, err
	}
	g, skipped := provider.ElementsToGraph(elements)
	s.tiles.Store(k, &Tile{Key: k, Bound: bound, State: Loaded, Graph: g})
	s.generation.Add(1)
	log.Infof("loaded tile %v with %d elements (%d skipped) in %v: %v",
		k, len(elements), skipped, time.Since(start), g)
	return g, nil
}

// Prefetch loads every tile intersecting bound with at most parallel
// concurrent fetches and returns the first error.
func (s *Store) Prefetch(ctx context.Context, bound orb.Bound, parallel int) error {
	minKey, maxKey := s.KeyOf(bound.Min), s.KeyOf(bound.Max)
	eg, ctx := errgroup.WithContext(ctx)
	if parallel > 0 {
		eg.SetLimit(parallel)
	}
	for lat := minKey.Lat; lat <= maxKey.Lat; lat++ {
		for lon := minKey.Lon; lon <= maxKey.Lon; lon++ {
			k := Key{Lat: lat, Lon: lon}
			eg.Go(func() error {
				_, err := s.Load(ctx, k)
				return err
			})
		}
	}
	return eg.Wait()
}

// MergeAll returns the union of all Loaded tiles. The result is cached until
// the set of Loaded tiles changes.
func (s *Store) MergeAll() *algo.Graph {
	generation := s.generation.Load()
	t := s.mu.RLock()
	if s.merged != nil && s.mergedGeneration == generation {
		g := s.merged
		s.mu.RUnlock(t)
		return g
	}
	s.mu.RUnlock(t)

	s.mu.Lock()
	defer s.mu.Unlock()
	generation = s.generation.Load()
	if s.merged != nil && s.mergedGeneration == generation {
		return s.merged
	}
	loaded := make([]*Tile, 0)
	s.tiles.Range(func(_ Key, t *Tile) bool {
		if t.State == Loaded {
			loaded = append(loaded, t)
		}
		return true
	})
	// 按网格顺序合并
	sort.Slice(loaded, func(i, j int) bool { return loaded[i].Key.Less(loaded[j].Key) })
	graphs := lo.Map(loaded, func(t *Tile, _ int) *algo.Graph { return t.Graph })
	s.merged = algo.Merge(graphs...)
	s.mergedGeneration = generation
	log.Debugf("merged %d tiles: %v", len(graphs), s.merged)
	return s.merged
}

// absent reports whether k still needs a load.
func (s *Store) absent(k Key) bool {
	t, ok := s.tiles.Load(k)
	return !ok || t.State == Failed
}

// NearestUnloaded returns the absent cell nearest p in the first ring around
// p's cell that contains one.
func (s *Store) NearestUnloaded(p orb.Point) (Key, error) {
	keys := s.NearestUnloadedN(p, 1, nil)
	if len(keys) == 0 {
		return Key{}, ErrNoUnloadedTile
	}
	return keys[0], nil
}

// NearestUnloadedN returns up to n absent cells, ring by ring outward from
// p's cell and by distance from p to the cell center within a ring. Keys for
// which skip returns true are ignored.
func (s *Store) NearestUnloadedN(p orb.Point, n int, skip func(Key) bool) []Key {
	center := s.KeyOf(p)
	result := make([]Key, 0, n)
	for r := 0; r <= MAX_RING_RADIUS && len(result) < n; r++ {
		candidates := lo.Filter(ring(center, r), func(k Key, _ int) bool {
			return s.absent(k) && (skip == nil || !skip(k))
		})
		sort.SliceStable(candidates, func(i, j int) bool {
			return geometry.PlanarDistance(p, s.Bound(candidates[i]).Center()) <
				geometry.PlanarDistance(p, s.Bound(candidates[j]).Center())
		})
		result = append(result, candidates...)
	}
	if len(result) > n {
		result = result[:n]
	}
	return result
}

// ring returns the cells at Chebyshev distance r from center, row by row.
func ring(center Key, r int) []Key {
	if r == 0 {
		return []Key{center}
	}
	keys := make([]Key, 0, 8*r)
	for dLat := -r; dLat <= r; dLat++ {
		for dLon := -r; dLon <= r; dLon++ {
			if int(math.Max(math.Abs(float64(dLat)), math.Abs(float64(dLon)))) != r {
				continue
			}
			keys = append(keys, Key{Lat: center.Lat + dLat, Lon: center.Lon + dLon})
		}
	}
	return keys
}

// Evict drops a Loaded tile. Tiles being loaded are left alone.
func (s *Store) Evict(k Key) bool {
	evicted := false
	s.tiles.Compute(k, func(old *Tile, loaded bool) (*Tile, bool) {
		if loaded && old.State == Loaded {
			evicted = true
			return nil, true
		}
		return old, !loaded
	})
	if evicted {
		s.generation.Add(1)
		log.Infof("evicted tile %v", k)
	}
	return evicted
}

// Tiles returns a snapshot of all registered tiles ordered by key.
func (s *Store) Tiles() []*Tile {
	tiles := make([]*Tile, 0, s.tiles.Size())
	s.tiles.Range(func(_ Key, t *Tile) bool {
		tiles = append(tiles, t)
		return true
	})
	sort.Slice(tiles, func(i, j int) bool { return tiles[i].Key.Less(tiles[j].Key) })
	return tiles
}

func (s *Store) Tile(k Key) (*Tile, bool) {
	return s.tiles.Load(k)
}

// NumLoaded counts tiles in state Loaded.
func (s *Store) NumLoaded() int {
	return lo.CountBy(s.Tiles(), func(t *Tile) bool { return t.State == Loaded })
}

// Fetches counts provider calls.
func (s *Store) Fetches() int64 {
	return s.fetches.Load()
}
