package auth

import (
	"encoding/json"
	"os"
	"path/filepath"
	"sync"

	"github.com/vstojkovic/bugle/internal/model"
)

// FileCache is a small JSON-file-backed CachedUserStore (spec.md §3
// "CachedUsers contains at most one entry per platform id; the most recent
// write wins"), following internal/savedservers' flat-JSON persistence
// convention rather than SQLite, since the cached-user set is at most a
// handful of entries.
type FileCache struct {
	path string

	mu    sync.Mutex
	users map[uint64]model.CachedUser
}

// LoadFileCache reads path, tolerating a missing or corrupt file by
// starting empty (mirroring internal/savedservers.Load's tolerant-load
// discipline).
func LoadFileCache(path string) *FileCache {
	c := &FileCache{path: path, users: make(map[uint64]model.CachedUser)}

	raw, err := os.ReadFile(path)
	if err != nil {
		return c
	}
	json.Unmarshal(raw, &c.users)
	return c
}

// Get implements CachedUserStore.
func (c *FileCache) Get(steamID uint64) (model.CachedUser, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	u, ok := c.users[steamID]
	return u, ok
}

// Put implements CachedUserStore, overwriting any existing entry for the
// same Steam id (most recent write wins).
func (c *FileCache) Put(u model.CachedUser) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.users[u.SteamID] = u
	return c.saveLocked()
}

func (c *FileCache) saveLocked() error {
	if dir := filepath.Dir(c.path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return err
		}
	}
	raw, err := json.MarshalIndent(c.users, "", "  ")
	if err != nil {
		return err
	}
	return os.WriteFile(c.path, raw, 0o644)
}
