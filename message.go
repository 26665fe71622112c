package main

import (
	"fmt"
	"math"

	"git.fiblab.net/sim/tilerouting/router"
	"git.fiblab.net/sim/tilerouting/router/tile"
	"github.com/paulmach/orb"
	"github.com/paulmach/orb/geojson"
)

const (
	ROUTING_SERVICE_NAME = "routing.v1.RoutingService"

	GET_ROUTE_PROCEDURE   = "/" + ROUTING_SERVICE_NAME + "/GetRoute"
	GET_TILES_PROCEDURE   = "/" + ROUTING_SERVICE_NAME + "/GetTiles"
	GET_GRAPH_PROCEDURE   = "/" + ROUTING_SERVICE_NAME + "/GetGraph"
	EVICT_TILES_PROCEDURE = "/" + ROUTING_SERVICE_NAME + "/EvictTiles"
)

type Position struct {
	Lat float64 `json:"lat"`
	Lon float64 `json:"lon"`
}

func (p Position) Point() orb.Point {
	return orb.Point{p.Lon, p.Lat}
}

func CheckPosition(p *Position) error {
	if p == nil {
		return fmt.Errorf("no position data in request")
	}
	if math.IsNaN(p.Lat) || math.IsNaN(p.Lon) || math.Abs(p.Lat) > 90 || math.Abs(p.Lon) > 180 {
		return fmt.Errorf("invalid position (%v,%v)", p.Lat, p.Lon)
	}
	return nil
}

type GetRouteRequest struct {
	Start *Position `json:"start"`
	End   *Position `json:"end"`
	// A*、Dijkstra或best，为空时使用服务默认算法
	Algorithm string `json:"algorithm,omitempty"`
	// 是否附带GeoJSON
	GeoJSON bool `json:"geojson,omitempty"`
}

type GetRouteResponse struct {
	Found bool          `json:"found"`
	Route *router.Route `json:"route,omitempty"`
	// 失败原因及最后一次搜索的探索范围
	Reason   string `json:"reason,omitempty"`
	Explored int    `json:"explored,omitempty"`
	Tries    int    `json:"tries,omitempty"`

	GeoJSON *geojson.FeatureCollection `json:"geojson,omitempty"`
}

type GetTilesRequest struct {
	GeoJSON bool `json:"geojson,omitempty"`
}

type TileInfo struct {
	Key    tile.Key   `json:"key"`
	Bound  [4]float64 `json:"bound"` // minLon, minLat, maxLon, maxLat
	State  string     `json:"state"`
	Points int        `json:"points"`
	Edges  int        `json:"edges"`
}

type GetTilesResponse struct {
	Tiles   []TileInfo                 `json:"tiles"`
	GeoJSON *geojson.FeatureCollection `json:"geojson,omitempty"`
}

type GetGraphRequest struct {
	GeoJSON bool `json:"geojson,omitempty"`
}

type GetGraphResponse struct {
	Points       int                        `json:"points"`
	Edges        int                        `json:"edges"`
	AverageSpeed float64                    `json:"average_speed"`
	GeoJSON      *geojson.FeatureCollection `json:"geojson,omitempty"`
}

type EvictTilesRequest struct {
	// 为空时驱逐所有已加载网格
	Keys []tile.Key `json:"keys,omitempty"`
}

type EvictTilesResponse struct {
	Evicted int `json:"evicted"`
}
