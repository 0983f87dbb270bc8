package cache

import (
	"container/list"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"io"
	"log"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"sync"
)

// Entry represents a cached media file
type Entry struct {
	Key     string
	Path    string
	Size    int64
	element *list.Element
}

// DiskCache implements an LRU disk-based cache for fetched media, keyed
// by media URL. Entries persist across sessions.
type DiskCache struct {
	mu          sync.Mutex
	cacheDir    string
	maxSize     int64
	currentSize int64

	// LRU tracking
	entries map[string]*Entry
	lru     *list.List

	// Fetch synchronization - prevents concurrent downloads of same URL
	fetchLocks sync.Map // map[string]*sync.Mutex
}

// NewDiskCache creates a new disk-based LRU cache
// On startup, it scans the cache directory and loads existing cached files
func NewDiskCache(cacheDir string, maxSizeBytes int64) (*DiskCache, error) {
	if err := os.MkdirAll(cacheDir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create cache directory: %w", err)
	}

	c := &DiskCache{
		cacheDir: cacheDir,
		maxSize:  maxSizeBytes,
		entries:  make(map[string]*Entry),
		lru:      list.New(),
	}

	if err := c.scan(); err != nil {
		return nil, fmt.Errorf("failed to scan cache: %w", err)
	}

	return c, nil
}

// scan loads existing cache entries from disk
func (c *DiskCache) scan() error {
	return filepath.Walk(c.cacheDir, func(path string, info os.FileInfo, err error) error {
		if err != nil || info.IsDir() {
			return err
		}

		// Skip partially written files
		if filepath.Ext(path) == ".tmp" {
			return nil
		}

		key := filepath.Base(path)
		entry := &Entry{
			Key:  key,
			Path: path,
			Size: info.Size(),
		}
		entry.element = c.lru.PushBack(entry)
		c.entries[key] = entry
		c.currentSize += info.Size()

		return nil
	})
}

// hashKey creates a consistent hash for a media URL
func (c *DiskCache) hashKey(key string) string {
	hash := sha256.Sum256([]byte(key))
	return hex.EncodeToString(hash[:])
}

// keyToPath converts a cache key to filesystem path
func (c *DiskCache) keyToPath(key string) string {
	return filepath.Join(c.cacheDir, c.hashKey(key))
}

// lookup returns the cached path for a URL if present, promoting the entry
func (c *DiskCache) lookup(mediaURL string) (string, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	hash := c.hashKey(mediaURL)
	entry, exists := c.entries[hash]
	if !exists {
		return "", false
	}

	if _, err := os.Stat(entry.Path); err != nil {
		// File disappeared, remove from cache
		delete(c.entries, hash)
		c.lru.Remove(entry.element)
		c.currentSize -= entry.Size
		return "", false
	}

	c.lru.MoveToFront(entry.element)
	return entry.Path, true
}

// EnsureFetched returns a local path for the given media URL, downloading
// it into the cache on a miss. Concurrent calls for the same URL share a
// single download.
func (c *DiskCache) EnsureFetched(mediaURL string) (string, error) {
	if path, ok := c.lookup(mediaURL); ok {
		return path, nil
	}

	// Serialize fetches per URL
	lockIface, _ := c.fetchLocks.LoadOrStore(mediaURL, &sync.Mutex{})
	lock := lockIface.(*sync.Mutex)
	lock.Lock()
	defer lock.Unlock()

	// Another caller may have fetched while we waited for the lock
	if path, ok := c.lookup(mediaURL); ok {
		return path, nil
	}

	path := c.keyToPath(mediaURL)
	tempPath := path + ".tmp"

	size, err := c.fetch(mediaURL, tempPath)
	if err != nil {
		os.Remove(tempPath)
		return "", err
	}

	// Rename temp file to final path (atomic)
	if err := os.Rename(tempPath, path); err != nil {
		os.Remove(tempPath)
		return "", fmt.Errorf("failed to finalize cache file: %w", err)
	}

	c.register(mediaURL, path, size)
	return path, nil
}

// fetch writes the media behind the URL to dest and returns its size.
// Plain paths and file:// URLs are copied from the local filesystem.
func (c *DiskCache) fetch(mediaURL, dest string) (int64, error) {
	var source io.ReadCloser

	switch {
	case strings.HasPrefix(mediaURL, "http://") || strings.HasPrefix(mediaURL, "https://"):
		resp, err := http.Get(mediaURL)
		if err != nil {
			return 0, fmt.Errorf("failed to fetch %s: %w", mediaURL, err)
		}
		if resp.StatusCode != http.StatusOK {
			resp.Body.Close()
			return 0, fmt.Errorf("failed to fetch %s: status %d", mediaURL, resp.StatusCode)
		}
		source = resp.Body
	default:
		localPath := strings.TrimPrefix(mediaURL, "file://")
		f, err := os.Open(localPath)
		if err != nil {
			return 0, fmt.Errorf("failed to open %s: %w", localPath, err)
		}
		source = f
	}
	defer source.Close()

	f, err := os.Create(dest)
	if err != nil {
		return 0, fmt.Errorf("failed to create cache file: %w", err)
	}

	size, err := io.Copy(f, source)
	f.Close()
	if err != nil {
		return 0, fmt.Errorf("failed to write cache file: %w", err)
	}

	return size, nil
}

// register adds a fetched file to the LRU index, evicting as needed
func (c *DiskCache) register(mediaURL, path string, size int64) {
	c.mu.Lock()
	defer c.mu.Unlock()

	hash := c.hashKey(mediaURL)
	if entry, exists := c.entries[hash]; exists {
		c.lru.MoveToFront(entry.element)
		return
	}

	// Evict until there's space
	for c.currentSize+size > c.maxSize && c.lru.Len() > 0 {
		c.evictOldest()
	}

	entry := &Entry{
		Key:  hash,
		Path: path,
		Size: size,
	}
	entry.element = c.lru.PushFront(entry)
	c.entries[hash] = entry
	c.currentSize += size
}

// evictOldest removes the least recently used entry
func (c *DiskCache) evictOldest() {
	element := c.lru.Back()
	if element == nil {
		return
	}

	entry := element.Value.(*Entry)
	c.lru.Remove(element)
	delete(c.entries, entry.Key)
	c.currentSize -= entry.Size

	log.Printf("Cache: evicting %s (%d bytes)", entry.Key, entry.Size)
	os.Remove(entry.Path)
}

// Invalidate removes a cache entry both from memory and disk
// Use this when a cached file is discovered to be corrupt or invalid
func (c *DiskCache) Invalidate(mediaURL string) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	hash := c.hashKey(mediaURL)
	entry, exists := c.entries[hash]
	if !exists {
		return nil
	}

	delete(c.entries, hash)
	c.lru.Remove(entry.element)
	c.currentSize -= entry.Size

	if err := os.Remove(entry.Path); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("failed to remove cache file: %w", err)
	}
	return nil
}

// Size returns the current total size of cached media in bytes
func (c *DiskCache) Size() int64 {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.currentSize
}
