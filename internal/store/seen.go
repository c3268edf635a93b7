// Package store keeps the adapter's persisted token and its per-batch state.
package store

import (
	"path/filepath"
	"sync"

	"github.com/bits-and-blooms/bloom/v3"
	lru "github.com/hashicorp/golang-lru/v2"
)

const (
	// DefaultSeenCapacity bounds the number of files remembered per import batch.
	DefaultSeenCapacity = 10000
	// DefaultSeenFalsePositiveRate is the bloom filter target error rate.
	DefaultSeenFalsePositiveRate = 0.001
)

// SeenSet remembers the files that already received artwork during the
// current import batch. The oldest entries are evicted beyond capacity.
type SeenSet struct {
	paths             map[string]struct{}
	bloom             *bloom.BloomFilter
	lru               *lru.Cache[string, struct{}]
	mutex             sync.RWMutex
	capacity          int
	falsePositiveRate float64
}

// NewSeenSet creates a set holding at most capacity paths.
func NewSeenSet(capacity int, falsePositiveRate float64) *SeenSet {
	if capacity <= 0 || capacity > int(^uint(0)>>1) {
		panic("capacity value out of range for uint conversion")
	}
	seen := &SeenSet{
		paths:             make(map[string]struct{}),
		bloom:             bloom.NewWithEstimates(uint(capacity), falsePositiveRate),
		capacity:          capacity,
		falsePositiveRate: falsePositiveRate,
	}
	// Runs with the mutex held: the cache only evicts from Add and Reset.
	seen.lru, _ = lru.NewWithEvict(capacity, func(key string, _ struct{}) {
		delete(seen.paths, key)
	})
	return seen
}

// Has reports whether the file was marked during this batch.
func (s *SeenSet) Has(path string) bool {
	key := seenKey(path)

	s.mutex.RLock()
	defer s.mutex.RUnlock()

	if !s.bloom.TestString(key) {
		return false
	}
	_, exists := s.paths[key]
	return exists
}

// Add marks the file. It reports false when the file was already marked.
func (s *SeenSet) Add(path string) bool {
	key := seenKey(path)

	s.mutex.Lock()
	defer s.mutex.Unlock()

	if _, exists := s.paths[key]; exists {
		return false
	}

	s.paths[key] = struct{}{}
	s.bloom.AddString(key)
	s.lru.Add(key, struct{}{})
	return true
}

// Size returns the number of files currently remembered.
func (s *SeenSet) Size() int {
	s.mutex.RLock()
	defer s.mutex.RUnlock()
	return len(s.paths)
}

// Reset forgets every file; called at the start of an import batch.
func (s *SeenSet) Reset() {
	s.mutex.Lock()
	defer s.mutex.Unlock()

	s.lru.Purge()
	s.paths = make(map[string]struct{})
	s.bloom = bloom.NewWithEstimates(uint(s.capacity), s.falsePositiveRate)
}

func seenKey(path string) string {
	if abs, err := filepath.Abs(path); err == nil {
		return abs
	}
	return filepath.Clean(path)
}
