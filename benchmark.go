package main

import (
	"context"
	"flag"
	"runtime"
	"sync"
	"sync/atomic"
	"time"

	"math/rand"

	"connectrpc.com/connect"
	"github.com/samber/lo"
	"github.com/sirupsen/logrus"
)

var (
	benchmarkCount = flag.Int("benchmark.count", 1000, "the random routing count for benchmark")
	benchmarkBBox  = flag.String("benchmark.bbox", "116.30,39.90,116.45,39.98", "the bbox of random start and end points [format: minLon,minLat,maxLon,maxLat]")
	benchmarkSeed  = flag.Int64("benchmark.seed", 0, "the seed for benchmark")
	benchmarkCPU   = flag.Int("benchmark.cpu", 1, "the cpu count for benchmark")
)

// 在bbox内随机生成count个路径规划请求
func benchmarkRequests(bboxStr string, count int, seed int64) ([]*connect.Request[GetRouteRequest], error) {
	bound, err := parseBound(bboxStr)
	if err != nil {
		return nil, err
	}
	e := rand.New(rand.NewSource(seed))
	randomPosition := func() *Position {
		return &Position{
			Lat: bound.Min.Lat() + e.Float64()*(bound.Max.Lat()-bound.Min.Lat()),
			Lon: bound.Min.Lon() + e.Float64()*(bound.Max.Lon()-bound.Min.Lon()),
		}
	}
	reqs := make([]*connect.Request[GetRouteRequest], count)
	for i := 0; i < count; i++ {
		reqs[i] = connect.NewRequest(&GetRouteRequest{
			Start: randomPosition(),
			End:   randomPosition(),
		})
	}
	return reqs, nil
}

func runBenchmark(server *RoutingServer) {
	log.Logger.SetLevel(logrus.WarnLevel)
	reqs, err := benchmarkRequests(*benchmarkBBox, *benchmarkCount, *benchmarkSeed)
	if err != nil {
		log.Errorf("invalid benchmark bbox: %v", err)
		return
	}

	// 开始benchmark
	start := time.Now()
	var wg sync.WaitGroup
	var success atomic.Int32
	run := func(req *connect.Request[GetRouteRequest]) {
		res, err := server.GetRoute(context.Background(), req)
		if err != nil {
			log.Error("benchmark failed, err:", err)
			return
		}
		if res.Msg.Found {
			success.Add(1)
		}
	}
	if *benchmarkCPU == 1 {
		for _, req := range reqs {
			run(req)
		}
	} else {
		// 设置cpu数量
		runtime.GOMAXPROCS(*benchmarkCPU)
		wg.Add(len(reqs))
		for _, req := range reqs {
			go func(req *connect.Request[GetRouteRequest]) {
				defer wg.Done()
				run(req)
				log.Info("benchmark finished one")
			}(req)
		}
		wg.Wait()
	}
	timeCost := time.Since(start) * time.Duration(*benchmarkCPU)
	log.Error(
		"benchmark finished", "\n",
		"count:", *benchmarkCount, "\n",
		"time:", timeCost, "\n",
		"avg:", timeCost/time.Duration(lo.Max([]int{*benchmarkCount, 1})), "\n",
		"success:", success.Load(), "\n",
		"tiles:", server.router.Tiles().NumLoaded(), "\n",
	)
}
