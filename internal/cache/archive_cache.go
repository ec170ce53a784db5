package cache

import (
	"errors"
	"sync"
	"time"

	"github.com/google/uuid"
	gocache "github.com/patrickmn/go-cache"
	"github.com/rs/zerolog/log"

	"github.com/cheahjs/replicate-image-bundler/internal/archive"
)

var ErrArchiveNotFound = errors.New("archive not found")
var ErrStoreFull = errors.New("archive store is full")

// DefaultCleanupInterval is used when no positive janitor interval is given.
const DefaultCleanupInterval = 5 * time.Minute

// ArchiveCache keeps finished archives in memory until their download link expires.
type ArchiveCache struct {
	store          *gocache.Cache
	expiryDuration time.Duration
	maxStoreBytes  int64
	mu             sync.Mutex
	storedBytes    int64
}

func NewArchiveCache(expiryDuration time.Duration, maxStoreSizeMB int, cleanupInterval time.Duration) *ArchiveCache {
	// go-cache only evicts expired items from its janitor, and evictions are
	// what release stored bytes.
	if cleanupInterval <= 0 {
		cleanupInterval = DefaultCleanupInterval
	}
	c := &ArchiveCache{
		store:          gocache.New(expiryDuration, cleanupInterval),
		expiryDuration: expiryDuration,
		maxStoreBytes:  int64(maxStoreSizeMB) << 20,
	}
	c.store.OnEvicted(c.evicted)
	return c
}

func (c *ArchiveCache) StoreArchive(a *archive.Archive) (string, error) {
	size := int64(a.Size())

	if !c.reserve(size) {
		// expired archives may still be counted if the janitor has not run yet
		c.store.DeleteExpired()
		if !c.reserve(size) {
			return "", ErrStoreFull
		}
	}

	id := uuid.New().String()
	c.store.Set(id, a, c.expiryDuration)

	log.Info().Str("id", id).Int64("bytes", size).Msg("Stored archive in cache")

	return id, nil
}

func (c *ArchiveCache) reserve(size int64) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.maxStoreBytes > 0 && c.storedBytes+size > c.maxStoreBytes {
		return false
	}
	c.storedBytes += size
	return true
}

func (c *ArchiveCache) GetArchive(id string) (*archive.Archive, error) {
	entry, ok := c.store.Get(id)
	if !ok {
		log.Warn().Str("id", id).Msg("Archive not found in cache")
		return nil, ErrArchiveNotFound
	}
	return entry.(*archive.Archive), nil
}

func (c *ArchiveCache) DeleteArchive(id string) {
	c.store.Delete(id)
}

// StoredBytes is the total size of archives not yet evicted. Expired archives
// count until the janitor removes them.
func (c *ArchiveCache) StoredBytes() int64 {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.storedBytes
}

func (c *ArchiveCache) evicted(id string, value interface{}) {
	a, ok := value.(*archive.Archive)
	if !ok {
		return
	}

	c.mu.Lock()
	c.storedBytes -= int64(a.Size())
	c.mu.Unlock()

	log.Debug().Str("id", id).Msg("Removed archive from cache")
}
