package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"strconv"
	"strings"
	"syscall"
	"time"

	"git.fiblab.net/sim/tilerouting/router"
	"git.fiblab.net/sim/tilerouting/router/algo"
	"git.fiblab.net/sim/tilerouting/router/provider"
	"git.fiblab.net/sim/tilerouting/router/tile"
	"github.com/paulmach/orb"
	"github.com/sirupsen/logrus"
	easy "github.com/t-tomalak/logrus-easy-formatter"
	"golang.org/x/net/http2"
	"golang.org/x/net/http2/h2c"
)

var (
	// 配置信息
	overpassEndpoint = flag.String("overpass", provider.DEFAULT_OVERPASS_ENDPOINT, "overpass api endpoint")
	overpassParallel = flag.Int("overpass-parallel", 2, "max parallel overpass queries")
	overpassTimeout  = flag.Duration("overpass-timeout", 60*time.Second, "overpass http timeout")
	cachePathStr     = flag.String("cache", "", "overpass response cache, can be empty [format: {fspath} or {db}.{col} or postgres://{dsn}]")
	mongoURI         = flag.String("mongo_uri", "", "mongo db uri")
	staticPath       = flag.String("static", "", "geojson road file served instead of overpass")
	prefetchStr      = flag.String("prefetch", "", "bbox loaded at startup, can be empty [format: minLon,minLat,maxLon,maxLat]")
	tileSize         = flag.Float64("tile-size", tile.DEFAULT_TILE_SIZE, "tile edge length in degrees")
	maxTries         = flag.Int("max-tries", router.DEFAULT_MAX_TRIES, "max searches per route request")
	algorithm        = flag.String("algorithm", string(algo.ASTAR), "default search algorithm [A*, Dijkstra, best]")
	grpcEndpoint     = flag.String("listen", "localhost:52101", "gRPC listening address")
	logLevel         = flag.String("log-level", "info", "log level [debug, info, warn, error, fatal, panic]")

	// 性能测试
	benchmark = flag.Bool("benchmark", false, "benchmark mode")
	pprofAddr = flag.String("pprof", "localhost:52102", "pprof listening address")

	LOG_LEVELS = map[string]logrus.Level{
		"debug": logrus.DebugLevel,
		"info":  logrus.InfoLevel,
		"warn":  logrus.WarnLevel,
		"error": logrus.ErrorLevel,
		"fatal": logrus.FatalLevel,
		"panic": logrus.PanicLevel,
	}
)

// parseBound parses "minLon,minLat,maxLon,maxLat".
func parseBound(s string) (orb.Bound, error) {
	parts := strings.Split(s, ",")
	if len(parts) != 4 {
		return orb.Bound{}, fmt.Errorf("bbox needs 4 numbers: %s", s)
	}
	v := make([]float64, 4)
	for i, p := range parts {
		f, err := strconv.ParseFloat(strings.TrimSpace(p), 64)
		if err != nil {
			return orb.Bound{}, fmt.Errorf("bbox %s: %w", s, err)
		}
		v[i] = f
	}
	if v[0] > v[2] || v[1] > v[3] {
		return orb.Bound{}, fmt.Errorf("bbox min exceeds max: %s", s)
	}
	return orb.Bound{Min: orb.Point{v[0], v[1]}, Max: orb.Point{v[2], v[3]}}, nil
}

func main() {
	logrus.SetFormatter(&easy.Formatter{
		TimestampFormat: "2006-01-02 15:04:05.0000",
		LogFormat:       "[%module%] [%time%] [%lvl%] %msg%\n",
	})
	flag.Parse()
	// 未在命令行指定的参数从.env及ROUTING_*环境变量读取
	if err := loadEnv(flag.CommandLine, ".env"); err != nil {
		logrus.Fatalf("invalid environment: %v", err)
	}
	if level, ok := LOG_LEVELS[*logLevel]; ok {
		logrus.SetLevel(level)
	} else {
		logrus.Fatalf("invalid log level: %s", *logLevel)
	}

	cachePath, err := NewPath(*cachePathStr)
	if err != nil {
		logrus.Fatalf("invalid cache path: %s", err)
	}
	// 启动导航服务
	server, err := NewRoutingServer(context.Background(), Config{
		OverpassEndpoint: *overpassEndpoint,
		OverpassParallel: *overpassParallel,
		OverpassTimeout:  *overpassTimeout,
		CachePath:        cachePath,
		MongoURI:         *mongoURI,
		StaticPath:       *staticPath,
		TileSize:         *tileSize,
		MaxTries:         *maxTries,
		Algorithm:        algo.Algorithm(*algorithm),
	})
	if err != nil {
		logrus.Fatalf("failed to start routing: %v", err)
	}

	if *prefetchStr != "" {
		bound, err := parseBound(*prefetchStr)
		if err != nil {
			logrus.Fatalf("invalid prefetch bbox: %v", err)
		}
		start := time.Now()
		if err := server.router.Tiles().Prefetch(context.Background(), bound, *overpassParallel); err != nil {
			log.Warnf("prefetch incomplete: %v", err)
		}
		log.Infof("prefetched %d tiles in %v", server.router.Tiles().NumLoaded(), time.Since(start))
	}

	if *pprofAddr != "" {
		// 启动pprof
		startHTTPDebugger(*pprofAddr)
	}

	if *benchmark {
		// 性能测试
		runBenchmark(server)
		server.Close()
		return
	}

	// 启动tcp监听和初始化connect服务端
	mux := server.Handler()

	addr := *grpcEndpoint
	// 使用HTTP/2 w.o. TLS
	s := &http.Server{
		Addr:    addr,
		Handler: h2c.NewHandler(mux, &http2.Server{}),
	}

	// 优雅退出
	// 创建监听退出chan
	signalCh := make(chan os.Signal, 1)
	//监听指定信号 ctrl+c kill
	signal.Notify(signalCh, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		<-signalCh
		log.Info("stopping...")
		go func() {
			<-signalCh
			os.Exit(1) // 强制结束
		}()
		// 退出connect-go
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := s.Shutdown(ctx); err != nil {
			log.Warnf("shutdown: %v", err)
		}
		// 退出导航服务
		server.Close()
	}()

	// 启动connect server
	log.Infof("server listening at %v", s.Addr)
	if err := s.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		log.Fatalf("failed to serve: %v", err)
	}
	time.Sleep(1 * time.Second) // 延迟等待"优雅退出"
	log.Info("routing closes")
}
