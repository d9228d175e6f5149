// Package cache implements the bounded, dirty-aware, pin-respecting
// page cache and its pin set.
//
// Grounded on catfs/mio/pagecache/mdcache/l1.go's container/list + map
// LRU. Brig's l1cache additionally spills evicted pages to an on-disk
// L2 cache and has no notion of pinning; this cache generalizes it to
// a single bounded tier with a caller-supplied dispose hook and
// pin-aware eviction, since the store above it needs only one bounded
// tier.
package cache

import "container/list"

// DisposeFunc is called when a page is evicted from the cache. It may
// be used to flush dirty data before the page is dropped.
type DisposeFunc[T any] func(key int64, value T)

type entry[T any] struct {
	key   int64
	value T
}

// LRU is a bounded, least-recently-used cache keyed by page index.
// It is not safe for concurrent use; callers (the Store) are
// responsible for locking.
type LRU[T any] struct {
	maxItems int
	isPinned func(int64) bool
	onEvict  DisposeFunc[T]

	ll    *list.List
	items map[int64]*list.Element
}

// NewLRU returns an LRU bounded to maxItems resident pages. isPinned
// is consulted during automatic eviction to skip immune pages;
// onEvict is called for every page the cache itself evicts (not for
// EvictExplicit, which the caller uses for unconditional removal,
// e.g. on truncate-shrink).
func NewLRU[T any](maxItems int, isPinned func(int64) bool, onEvict DisposeFunc[T]) *LRU[T] {
	return &LRU[T]{
		maxItems: maxItems,
		isPinned: isPinned,
		onEvict:  onEvict,
		ll:       list.New(),
		items:    make(map[int64]*list.Element),
	}
}

// Len returns the number of resident pages.
func (c *LRU[T]) Len() int {
	return len(c.items)
}

// Get returns the page at key, if resident, promoting it to
// most-recently-used.
func (c *LRU[T]) Get(key int64) (T, bool) {
	el, ok := c.items[key]
	if !ok {
		var zero T
		return zero, false
	}

	c.ll.MoveToBack(el)
	return el.Value.(*entry[T]).value, true
}

// Touch promotes key to most-recently-used without altering its value.
// It is a no-op if key is not resident.
func (c *LRU[T]) Touch(key int64) {
	if el, ok := c.items[key]; ok {
		c.ll.MoveToBack(el)
	}
}

// Insert adds or replaces the page at key and promotes it to
// most-recently-used, then evicts least-recently-used unpinned pages
// (via onEvict) until residency is back within maxItems.
func (c *LRU[T]) Insert(key int64, value T) {
	if el, ok := c.items[key]; ok {
		el.Value.(*entry[T]).value = value
		c.ll.MoveToBack(el)
	} else {
		c.items[key] = c.ll.PushBack(&entry[T]{key: key, value: value})
	}

	c.evictOverflow()
}

func (c *LRU[T]) evictOverflow() {
	if c.maxItems <= 0 {
		return
	}

	for len(c.items) > c.maxItems {
		if !c.evictOldestUnpinned() {
			// Every resident page is pinned; residency may
			// temporarily exceed maxItems until something is
			// unpinned.
			return
		}
	}
}

// evictOldestUnpinned walks from the front (least-recently-used) and
// evicts the first unpinned page it finds, firing onEvict. Pages it
// skips over are left in their original relative order.
func (c *LRU[T]) evictOldestUnpinned() bool {
	for el := c.ll.Front(); el != nil; el = el.Next() {
		ent := el.Value.(*entry[T])
		if c.isPinned != nil && c.isPinned(ent.key) {
			continue
		}

		c.ll.Remove(el)
		delete(c.items, ent.key)

		if c.onEvict != nil {
			c.onEvict(ent.key, ent.value)
		}

		return true
	}

	return false
}

// EvictExplicit removes key unconditionally, without calling onEvict.
// Used by truncate-shrink, which discards pages without flushing them.
func (c *LRU[T]) EvictExplicit(key int64) (T, bool) {
	el, ok := c.items[key]
	if !ok {
		var zero T
		return zero, false
	}

	c.ll.Remove(el)
	delete(c.items, key)
	return el.Value.(*entry[T]).value, true
}

// Keys returns resident page indices ordered oldest (least-recently
// used) first.
func (c *LRU[T]) Keys() []int64 {
	keys := make([]int64, 0, len(c.items))
	for el := c.ll.Front(); el != nil; el = el.Next() {
		keys = append(keys, el.Value.(*entry[T]).key)
	}

	return keys
}
