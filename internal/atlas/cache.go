package atlas

import (
	"fmt"
	"sync"
)

// ShapeCache holds every geometry resolved during the process
// lifetime, keyed by (vintage, canonical district code). Entries are
// never mutated or evicted; the key space is bounded by the finite set
// of (vintage, state, district) combinations. Concurrent resolution of
// the same key may write twice — both writers store the same value, so
// the duplicate fetch is tolerated rather than guarded by a lock.
type ShapeCache struct {
	mu     sync.RWMutex
	shapes map[string]*ResolvedShape
}

func NewShapeCache() *ShapeCache {
	return &ShapeCache{shapes: make(map[string]*ResolvedShape)}
}

func cacheKey(vintage int, code DistrictCode) string {
	return fmt.Sprintf("%d/%s", vintage, code.Key())
}

// Get returns the cached shape for (vintage, code), if any. Equivalent
// at-large spellings hit the same entry.
func (sc *ShapeCache) Get(vintage int, code DistrictCode) (*ResolvedShape, bool) {
	sc.mu.RLock()
	defer sc.mu.RUnlock()
	shape, ok := sc.shapes[cacheKey(vintage, code)]
	return shape, ok
}

// Put stores a shape under (vintage, code). The vintage may differ
// from shape.Vintage when an older-cycle fallback satisfied a newer
// request; the shape records where the geometry actually came from.
func (sc *ShapeCache) Put(vintage int, code DistrictCode, shape *ResolvedShape) {
	sc.mu.Lock()
	defer sc.mu.Unlock()
	sc.shapes[cacheKey(vintage, code)] = shape
}

// Len reports the number of cached entries.
func (sc *ShapeCache) Len() int {
	sc.mu.RLock()
	defer sc.mu.RUnlock()
	return len(sc.shapes)
}
