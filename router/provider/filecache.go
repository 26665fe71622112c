package provider

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/samber/lo"
)

const FILE_CACHE_INDEX = "index.json"

type FileCacheEntry struct {
	Size      int       `json:"size"`
	CreatedAt time.Time `json:"created_at"`
}

// FileCache keeps one <key>.json file per response plus an index file.
type FileCache struct {
	dir string

	mu    sync.Mutex
	index map[string]FileCacheEntry
}

func NewFileCache(dir string) (*FileCache, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("create cache dir %s: %w", dir, err)
	}
	c := &FileCache{dir: dir, index: make(map[string]FileCacheEntry)}
	data, err := os.ReadFile(filepath.Join(dir, FILE_CACHE_INDEX))
	switch {
	case errors.Is(err, fs.ErrNotExist):
	case err != nil:
		return nil, fmt.Errorf("read cache index: %w", err)
	default:
		if err := json.Unmarshal(data, &c.index); err != nil {
			// 索引损坏不影响缓存文件本身
			log.Warnf("ignore broken cache index in %s: %v", dir, err)
			c.index = make(map[string]FileCacheEntry)
		}
	}
	return c, nil
}

func (c *FileCache) path(key string) string {
	return filepath.Join(c.dir, key+".json")
}

func (c *FileCache) Get(_ context.Context, key string) ([]byte, bool, error) {
	data, err := os.ReadFile(c.path(key))
	if errors.Is(err, fs.ErrNotExist) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, err
	}
	return data, true, nil
}

func (c *FileCache) Put(_ context.Context, key string, body []byte) error {
	if err := writeFileAtomic(c.path(key), body); err != nil {
		return err
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	c.index[key] = FileCacheEntry{Size: len(body), CreatedAt: time.Now()}
	data, err := json.MarshalIndent(c.index, "", "  ")
	if err != nil {
		return err
	}
	return writeFileAtomic(filepath.Join(c.dir, FILE_CACHE_INDEX), data)
}

// Entries returns a copy of the index.
func (c *FileCache) Entries() map[string]FileCacheEntry {
	c.mu.Lock()
	defer c.mu.Unlock()
	return lo.Assign(c.index)
}

func (c *FileCache) Close(context.Context) error {
	return nil
}

// 先写临时文件再重命名，避免并发读到半个文件
func writeFileAtomic(path string, data []byte) error {
	tmp, err := os.CreateTemp(filepath.Dir(path), filepath.Base(path)+".tmp*")
	if err != nil {
		return err
	}
	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		os.Remove(tmp.Name())
		return err
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmp.Name())
		return err
	}
	return os.Rename(tmp.Name(), path)
}
