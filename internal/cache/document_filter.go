package cache

import (
	"sync"

	"github.com/bits-and-blooms/bloom/v3"
)

const (
	filterCapacity = 100_000
	filterFPRate   = 0.01
)

// DocumentFilter remembers content hashes of ingested documents. MayContain
// has no false negatives, so a miss skips the database duplicate check.
type DocumentFilter struct {
	mu     sync.RWMutex
	filter *bloom.BloomFilter
}

func NewDocumentFilter(hashes ...string) *DocumentFilter {
	f := &DocumentFilter{filter: bloom.NewWithEstimates(filterCapacity, filterFPRate)}
	for _, h := range hashes {
		f.filter.AddString(h)
	}
	return f
}

func (f *DocumentFilter) Add(hash string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.filter.AddString(hash)
}

func (f *DocumentFilter) MayContain(hash string) bool {
	f.mu.RLock()
	defer f.mu.RUnlock()
	return f.filter.TestString(hash)
}

func (f *DocumentFilter) Reset() {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.filter.ClearAll()
}
