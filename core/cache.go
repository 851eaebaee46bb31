package core

import (
	"encoding/json"
	"os"
	"path/filepath"
	"sort"
	"time"
)

// CacheEntry records the fingerprint of a target's last successful build
type CacheEntry struct {
	Target      string   `json:"target"`
	InputHash   string   `json:"input_hash"`
	CommandHash string   `json:"command_hash"`
	Timestamp   int64    `json:"timestamp"`
	Outputs     []string `json:"outputs"`
}

type cacheManifest struct {
	Entries []CacheEntry `json:"entries"`
}

// Cache is the persistent mapping from target name to fingerprint. The
// manifest lives at <cache_dir>/manifest.json and is written atomically
// when dirty. Loading is lossy-tolerant: an unreadable or malformed
// manifest is treated as an empty cache, and malformed entries are
// skipped rather than failing the load.
type Cache struct {
	dir     string
	entries map[string]CacheEntry
	dirty   bool

	// now is swappable so tests can pin timestamps
	now func() time.Time
}

// DefaultCacheDir is the conventional cache location
const DefaultCacheDir = ".iris-cache"

// NewCache opens (or creates) a cache rooted at dir and loads any
// existing manifest.
func NewCache(dir string) *Cache {
	if dir == "" {
		dir = DefaultCacheDir
	}
	c := &Cache{
		dir:     dir,
		entries: make(map[string]CacheEntry),
		now:     time.Now,
	}
	os.MkdirAll(dir, 0o755)
	c.load()
	return c
}

// ManifestPath returns the manifest file location
func (c *Cache) ManifestPath() string {
	return filepath.Join(c.dir, "manifest.json")
}

func (c *Cache) load() {
	data, err := os.ReadFile(c.ManifestPath())
	if err != nil {
		return
	}

	var manifest cacheManifest
	if err := json.Unmarshal(data, &manifest); err != nil {
		// A corrupt manifest is an empty cache, never a fatal error
		return
	}

	for _, entry := range manifest.Entries {
		if entry.Target == "" || entry.InputHash == "" || entry.CommandHash == "" {
			continue
		}
		c.entries[entry.Target] = entry
	}
}

// Save writes the manifest if any entry changed since the last save.
// The write is atomic: a temp file in the same directory is renamed
// over the manifest.
func (c *Cache) Save() error {
	if !c.dirty {
		return nil
	}

	manifest := cacheManifest{Entries: make([]CacheEntry, 0, len(c.entries))}
	names := make([]string, 0, len(c.entries))
	for name := range c.entries {
		names = append(names, name)
	}
	sort.Strings(names)
	for _, name := range names {
		manifest.Entries = append(manifest.Entries, c.entries[name])
	}

	data, err := json.MarshalIndent(&manifest, "", "  ")
	if err != nil {
		return err
	}

	tmp, err := os.CreateTemp(c.dir, "manifest-*.json")
	if err != nil {
		return err
	}
	tmpName := tmp.Name()
	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		os.Remove(tmpName)
		return err
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpName)
		return err
	}
	if err := os.Rename(tmpName, c.ManifestPath()); err != nil {
		os.Remove(tmpName)
		return err
	}

	c.dirty = false
	return nil
}

// IsUpToDate reports whether target's cached fingerprint matches the
// given hashes and every recorded output still exists on disk.
func (c *Cache) IsUpToDate(target, inputHash, commandHash string) bool {
	entry, ok := c.entries[target]
	if !ok {
		return false
	}
	if entry.InputHash != inputHash || entry.CommandHash != commandHash {
		return false
	}
	for _, output := range entry.Outputs {
		if _, err := os.Stat(output); err != nil {
			return false
		}
	}
	return true
}

// Store records a successful build, overwriting any previous entry.
func (c *Cache) Store(target, inputHash, commandHash string, outputs []string) {
	c.entries[target] = CacheEntry{
		Target:      target,
		InputHash:   inputHash,
		CommandHash: commandHash,
		Timestamp:   c.now().Unix(),
		Outputs:     outputs,
	}
	c.dirty = true
}

// Get returns the entry for target, if present.
func (c *Cache) Get(target string) (CacheEntry, bool) {
	entry, ok := c.entries[target]
	return entry, ok
}

// Invalidate removes a single target's entry.
func (c *Cache) Invalidate(target string) {
	if _, ok := c.entries[target]; ok {
		delete(c.entries, target)
		c.dirty = true
	}
}

// Clear removes all entries.
func (c *Cache) Clear() {
	if len(c.entries) > 0 {
		c.entries = make(map[string]CacheEntry)
	}
	c.dirty = true
}

// Len returns the number of cached entries.
func (c *Cache) Len() int {
	return len(c.entries)
}
