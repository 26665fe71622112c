package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"sync"
	"time"

	"connectrpc.com/connect"
	"git.fiblab.net/sim/tilerouting/router"
	"git.fiblab.net/sim/tilerouting/router/algo"
	"git.fiblab.net/sim/tilerouting/router/provider"
	"git.fiblab.net/sim/tilerouting/router/tile"
	"github.com/samber/lo"
)

// Config selects the map data source and the router parameters.
type Config struct {
	OverpassEndpoint string
	OverpassParallel int
	OverpassTimeout  time.Duration
	// 为nil时不缓存Overpass响应
	CachePath *Path
	MongoURI  string
	// 非空时从GeoJSON文件读取道路，不访问Overpass
	StaticPath string

	TileSize  float64
	MaxTries  int
	Algorithm algo.Algorithm
}

type RoutingServer struct {
	router *router.Router
	cache  provider.Cache
	client *provider.CachingClient

	// 接口开启true或关闭false
	ok bool
	// 条件变量
	cond *sync.Cond
	// 进行中的路径规划请求
	running sync.WaitGroup
	// 串行化网格驱逐
	evictMu sync.Mutex
}

func NewRoutingServer(ctx context.Context, cfg Config) (*RoutingServer, error) {
	if cfg.Algorithm != "" && !cfg.Algorithm.Valid() {
		return nil, fmt.Errorf("%w: %q", algo.ErrUnknownAlgorithm, cfg.Algorithm)
	}
	opts := []router.Option{
		router.WithTileSize(cfg.TileSize),
		router.WithMaxTries(cfg.MaxTries),
		router.WithAlgorithm(cfg.Algorithm),
	}
	if cfg.StaticPath != "" {
		p, err := provider.LoadGeoJSON(cfg.StaticPath)
		if err != nil {
			return nil, fmt.Errorf("load static roads: %w", err)
		}
		log.Infof("serving roads from %s", cfg.StaticPath)
		return newRoutingServer(p, nil, nil, opts...), nil
	}

	var httpClient provider.HTTPClient = &http.Client{Timeout: cfg.OverpassTimeout}
	var cache provider.Cache
	var client *provider.CachingClient
	if cfg.CachePath != nil {
		var err error
		cache, err = cfg.CachePath.OpenCache(ctx, cfg.MongoURI)
		if err != nil {
			return nil, fmt.Errorf("open cache %s: %w", cfg.CachePath, err)
		}
		client = provider.NewCachingClient(httpClient, cache)
		httpClient = client
		log.Infof("caching overpass responses in %s", cfg.CachePath)
	}
	p := provider.NewOverpass(cfg.OverpassEndpoint, cfg.OverpassParallel, httpClient)
	return newRoutingServer(p, cache, client, opts...), nil
}

func newRoutingServer(
	p provider.Provider, cache provider.Cache, client *provider.CachingClient, opts ...router.Option,
) *RoutingServer {
	return &RoutingServer{
		router: router.New(p, opts...),
		cache:  cache,
		client: client,
		ok:     true, cond: sync.NewCond(&sync.Mutex{})}
}

// 暂停-恢复机制，返回后请求计入running
func (s *RoutingServer) wait() {
	s.cond.L.Lock()
	for !s.ok {
		// 暂停中
		s.cond.Wait()
	}
	s.running.Add(1)
	s.cond.L.Unlock()
}

func (s *RoutingServer) GetRoute(
	ctx context.Context,
	req *connect.Request[GetRouteRequest],
) (*connect.Response[GetRouteResponse], error) {
	in := req.Msg
	s.wait()
	defer s.running.Done()
	// 检查数据格式
	if err := CheckPosition(in.Start); err != nil {
		return nil, connect.NewError(connect.CodeInvalidArgument, fmt.Errorf("start: %w", err))
	}
	if err := CheckPosition(in.End); err != nil {
		return nil, connect.NewError(connect.CodeInvalidArgument, fmt.Errorf("end: %w", err))
	}
	log.Debugf("Search driving route from %v to %v", *in.Start, *in.End)
	route, err := s.router.SearchDriving(ctx, in.Start.Point(), in.End.Point(), algo.Algorithm(in.Algorithm))
	if err != nil {
		var routeErr *router.RouteError
		switch {
		case errors.Is(err, algo.ErrUnknownAlgorithm):
			return nil, connect.NewError(connect.CodeInvalidArgument, err)
		case errors.Is(err, context.DeadlineExceeded):
			return nil, connect.NewError(connect.CodeDeadlineExceeded, err)
		case errors.Is(err, context.Canceled):
			return nil, connect.NewError(connect.CodeCanceled, err)
		case errors.Is(err, tile.ErrTileLoad), errors.Is(err, algo.ErrNodeNotFound):
			// 结点缺失说明网格在请求期间被驱逐
			return nil, connect.NewError(connect.CodeUnavailable, err)
		case errors.As(err, &routeErr):
			// 无法找到通路，返回空响应并附带探索范围
			ret := &GetRouteResponse{
				Reason:   routeErr.Err.Error(),
				Explored: len(routeErr.Explored),
				Tries:    routeErr.Tries,
			}
			if in.GeoJSON {
				ret.GeoJSON = router.ExploredGeoJSON(routeErr.Explored)
			}
			return connect.NewResponse(ret), nil
		default:
			return nil, connect.NewError(connect.CodeInternal, err)
		}
	}
	ret := &GetRouteResponse{Found: true, Route: route, Tries: route.Tries}
	if in.GeoJSON {
		ret.GeoJSON = router.RouteGeoJSON(route)
	}
	return connect.NewResponse(ret), nil
}

func (s *RoutingServer) GetTiles(
	ctx context.Context,
	req *connect.Request[GetTilesRequest],
) (*connect.Response[GetTilesResponse], error) {
	tiles := s.router.Tiles().Tiles()
	ret := &GetTilesResponse{
		Tiles: lo.Map(tiles, func(t *tile.Tile, _ int) TileInfo {
			info := TileInfo{
				Key:   t.Key,
				Bound: [4]float64{t.Bound.Min.Lon(), t.Bound.Min.Lat(), t.Bound.Max.Lon(), t.Bound.Max.Lat()},
				State: t.State.String(),
			}
			if t.Graph != nil {
				info.Points = t.Graph.NumPoints()
				info.Edges = t.Graph.NumEdges()
			}
			return info
		}),
	}
	if req.Msg.GeoJSON {
		ret.GeoJSON = router.TilesGeoJSON(tiles)
	}
	return connect.NewResponse(ret), nil
}

func (s *RoutingServer) GetGraph(
	ctx context.Context,
	req *connect.Request[GetGraphRequest],
) (*connect.Response[GetGraphResponse], error) {
	g := s.router.Tiles().MergeAll()
	ret := &GetGraphResponse{
		Points:       g.NumPoints(),
		Edges:        g.NumEdges(),
		AverageSpeed: g.AverageSpeed(),
	}
	if req.Msg.GeoJSON {
		ret.GeoJSON = router.GraphGeoJSON(g)
	}
	return connect.NewResponse(ret), nil
}

// EvictTiles drops loaded tiles. New route requests are held and running ones
// are drained before evicting.
func (s *RoutingServer) EvictTiles(
	ctx context.Context,
	req *connect.Request[EvictTilesRequest],
) (*connect.Response[EvictTilesResponse], error) {
	s.evictMu.Lock()
	defer s.evictMu.Unlock()
	s.Suspend()
	defer s.Resume()
	s.running.Wait()
	keys := req.Msg.Keys
	if len(keys) == 0 {
		keys = lo.Map(s.router.Tiles().Tiles(), func(t *tile.Tile, _ int) tile.Key { return t.Key })
	}
	evicted := lo.CountBy(keys, func(k tile.Key) bool { return s.router.Tiles().Evict(k) })
	log.Infof("evicted %d of %d tiles", evicted, len(keys))
	return connect.NewResponse(&EvictTilesResponse{Evicted: evicted}), nil
}

// Handler mounts all procedures on a mux.
func (s *RoutingServer) Handler() *http.ServeMux {
	codec := connect.WithCodec(jsonCodec{})
	mux := http.NewServeMux()
	mux.Handle(GET_ROUTE_PROCEDURE, connect.NewUnaryHandler(GET_ROUTE_PROCEDURE, s.GetRoute, codec))
	mux.Handle(GET_TILES_PROCEDURE, connect.NewUnaryHandler(GET_TILES_PROCEDURE, s.GetTiles, codec))
	mux.Handle(GET_GRAPH_PROCEDURE, connect.NewUnaryHandler(GET_GRAPH_PROCEDURE, s.GetGraph, codec))
	mux.Handle(EVICT_TILES_PROCEDURE, connect.NewUnaryHandler(EVICT_TILES_PROCEDURE, s.EvictTiles, codec))
	return mux
}

// 暂停导航服务
func (s *RoutingServer) Suspend() {
	s.cond.L.Lock()
	defer s.cond.L.Unlock()
	s.ok = false
}

// 恢复导航服务
func (s *RoutingServer) Resume() {
	s.cond.L.Lock()
	defer s.cond.L.Unlock()
	s.ok = true
	s.cond.Broadcast()
}

// 关闭导航服务
func (s *RoutingServer) Close() {
	s.router.Close()
	if s.client != nil {
		hits, misses := s.client.Stats()
		log.Infof("overpass cache: %d hits, %d misses", hits, misses)
	}
	if s.cache != nil {
		if err := s.cache.Close(context.Background()); err != nil {
			log.Warnf("close cache: %v", err)
		}
	}
}
