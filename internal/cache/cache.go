package cache

import (
	"container/list"
	"regexp"
	"strings"
	"sync"
	"time"
)

// DefaultTTL is how long a cached price check stays fresh. Market prices move,
// so entries are short lived compared to item descriptions.
const DefaultTTL = 5 * time.Minute

// Service implements an LRU cache with per-entry expiry
type Service[V any] struct {
	mu      sync.Mutex
	maxSize int
	ttl     time.Duration
	entries map[string]*list.Element
	lruList *list.List
	now     func() time.Time
}

// cacheEntry holds a cached value with metadata
type cacheEntry[V any] struct {
	key       string
	value     V
	timestamp time.Time
}

// New creates a new cache service
func New[V any](maxSize int, ttl time.Duration) *Service[V] {
	if maxSize <= 0 {
		maxSize = 100 // Default cache size
	}
	if ttl <= 0 {
		ttl = DefaultTTL
	}

	return &Service[V]{
		maxSize: maxSize,
		ttl:     ttl,
		entries: make(map[string]*list.Element),
		lruList: list.New(),
		now:     time.Now,
	}
}

// Get retrieves a value by key. Stale entries are dropped and reported as
// missing.
func (s *Service[V]) Get(key string) (V, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var zero V

	elem, exists := s.entries[key]
	if !exists {
		return zero, false
	}

	entry := elem.Value.(*cacheEntry[V])
	if s.now().Sub(entry.timestamp) > s.ttl {
		s.removeElementUnsafe(elem)
		return zero, false
	}

	s.lruList.MoveToFront(elem)
	return entry.value, true
}

// Set stores value under key, replacing any existing entry
func (s *Service[V]) Set(key string, value V) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if elem, exists := s.entries[key]; exists {
		entry := elem.Value.(*cacheEntry[V])
		entry.value = value
		entry.timestamp = s.now()
		s.lruList.MoveToFront(elem)
		return
	}

	elem := s.lruList.PushFront(&cacheEntry[V]{
		key:       key,
		value:     value,
		timestamp: s.now(),
	})
	s.entries[key] = elem

	for s.lruList.Len() > s.maxSize {
		if back := s.lruList.Back(); back != nil {
			s.removeElementUnsafe(back)
		}
	}
}

// removeElementUnsafe removes an element from all cache structures (must hold lock)
func (s *Service[V]) removeElementUnsafe(elem *list.Element) {
	entry := elem.Value.(*cacheEntry[V])
	delete(s.entries, entry.key)
	s.lruList.Remove(elem)
}

// Clear removes all entries from the cache
func (s *Service[V]) Clear() {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.entries = make(map[string]*list.Element)
	s.lruList = list.New()
}

// Size returns the current cache size
func (s *Service[V]) Size() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.lruList.Len()
}

// Stats returns cache statistics
func (s *Service[V]) Stats() Stats {
	s.mu.Lock()
	defer s.mu.Unlock()

	return Stats{
		Size:    s.lruList.Len(),
		MaxSize: s.maxSize,
		TTL:     s.ttl,
	}
}

// Stats holds cache statistics
type Stats struct {
	Size    int           `json:"size"`
	MaxSize int           `json:"max_size"`
	TTL     time.Duration `json:"ttl"`
}

var (
	whitespaceRe = regexp.MustCompile(`\s+`)
	// OCR noise that does not change which item a tooltip describes.
	noiseRe = regexp.MustCompile(`[|_~` + "`" + `]`)
)

// NormalizeKey builds a cache key from OCR'd tooltip text. Tooltips for the
// same item read slightly differently between captures (case, stray pipes,
// line wrapping), so those differences are folded away.
func NormalizeKey(text string) string {
	text = strings.ToLower(text)
	text = noiseRe.ReplaceAllString(text, "")
	text = whitespaceRe.ReplaceAllString(text, " ")
	return strings.TrimSpace(text)
}
