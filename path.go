package main

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"git.fiblab.net/sim/tilerouting/router/provider"
)

// Path is where Overpass responses are cached: a directory, a mongo
// {db}.{col} or a PostgreSQL DSN.
type Path struct {
	Dir  string
	DB   string
	Coll string
	DSN  string
}

func NewPath(dirOrCollOrDSN string) (*Path, error) {
	s := strings.TrimSpace(dirOrCollOrDSN)
	if s == "" {
		return nil, nil
	}
	if strings.HasPrefix(s, "postgres://") || strings.HasPrefix(s, "postgresql://") {
		return &Path{DSN: s}, nil
	}
	// 检查是否作为目录存在
	if info, err := os.Stat(s); err == nil {
		if !info.IsDir() {
			return nil, fmt.Errorf("cache path %s is not a directory", s)
		}
		return &Path{Dir: s}, nil
	}
	if strings.ContainsRune(s, filepath.Separator) || strings.ContainsRune(s, '/') {
		return &Path{Dir: s}, nil
	}
	splitted := strings.Split(s, ".")
	if len(splitted) != 2 || splitted[0] == "" || splitted[1] == "" {
		return nil, fmt.Errorf("dbDotColl is invalid: %s", s)
	}
	return &Path{
		DB:   splitted[0],
		Coll: splitted[1],
	}, nil
}

func (p *Path) String() string {
	switch {
	case p.DSN != "":
		return "postgres"
	case p.Dir != "":
		return p.Dir
	default:
		return p.DB + "." + p.Coll
	}
}

// OpenCache connects the cache backend the path points to.
func (p *Path) OpenCache(ctx context.Context, mongoURI string) (provider.Cache, error) {
	switch {
	case p.DSN != "":
		return provider.NewSQLCache(ctx, p.DSN)
	case p.Dir != "":
		path, err := filepath.Abs(p.Dir)
		if err != nil {
			return nil, err
		}
		return provider.NewFileCache(path)
	default:
		if mongoURI == "" {
			return nil, fmt.Errorf("mongo_uri is required for cache %s", p)
		}
		return provider.NewMongoCache(ctx, mongoURI, p.DB, p.Coll)
	}
}
