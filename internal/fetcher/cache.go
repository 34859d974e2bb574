package fetcher

import (
	"sync"

	"github.com/hyperschedule/hyperschedule-sub000/internal/linker"
)

// Cache 每个数据源最新原始数据的内存副本。
// 写入总是整值替换，读取方通过 Snapshot 拿到一致的快照
type Cache struct {
	mu    sync.RWMutex
	files linker.Files
}

func NewCache() *Cache {
	return &Cache{files: make(linker.Files)}
}

// Replace 整体替换
func (c *Cache) Replace(files linker.Files) {
	next := make(linker.Files, len(files))
	for k, v := range files {
		next[k] = v
	}
	c.mu.Lock()
	c.files = next
	c.mu.Unlock()
}

// Set 替换单个数据源
func (c *Cache) Set(name, content string) {
	c.mu.Lock()
	c.files[name] = content
	c.mu.Unlock()
}

func (c *Cache) Get(name string) (string, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	v, ok := c.files[name]
	return v, ok
}

// Snapshot 当前全部数据的副本
func (c *Cache) Snapshot() linker.Files {
	c.mu.RLock()
	defer c.mu.RUnlock()
	out := make(linker.Files, len(c.files))
	for k, v := range c.files {
		out[k] = v
	}
	return out
}
