package cache

import (
	"sync"
	"time"
)

// lruNode is a node in the doubly-linked list backing L1, directly adapted
// from orchestration.LRUCache's lruItem — generalized from a RoutingPlan
// payload to a generic *Entry payload, and from count-bounded to
// byte-size-bounded eviction.
type lruNode struct {
	key   string
	entry *Entry
	prev  *lruNode
	next  *lruNode
}

// L1 is an in-process, concurrency-safe, byte-size-bounded LRU cache with
// lazy per-entry TTL expiry checked on lookup.
type L1 struct {
	mu         sync.Mutex
	maxBytes   int64
	usedBytes  int64
	nodes      map[string]*lruNode
	head, tail *lruNode // head = most recently used, tail = least recently used

	hits, misses, evictions int64
}

// NewL1 builds an L1 cache bounded at maxBytes.
func NewL1(maxBytes int64) *L1 {
	head := &lruNode{}
	tail := &lruNode{}
	head.next = tail
	tail.prev = head
	return &L1{
		maxBytes: maxBytes,
		nodes:    make(map[string]*lruNode),
		head:     head,
		tail:     tail,
	}
}

// Get returns the entry for key if present and unexpired. Expired entries
// are evicted on lookup (lazy TTL).
func (c *L1) Get(key string) (*Entry, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	n, ok := c.nodes[key]
	if !ok {
		c.misses++
		return nil, false
	}
	if n.entry.Expired(time.Now()) {
		c.removeNode(n)
		c.misses++
		return nil, false
	}
	c.moveToFront(n)
	c.hits++
	return n.entry, true
}

// Put inserts or replaces entry under key, evicting least-recently-used
// entries until the byte budget is satisfied.
func (c *L1) Put(key string, entry *Entry) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if existing, ok := c.nodes[key]; ok {
		c.usedBytes -= existing.entry.Size
		existing.entry = entry
		c.usedBytes += entry.Size
		c.moveToFront(existing)
	} else {
		n := &lruNode{key: key, entry: entry}
		c.nodes[key] = n
		c.addToFront(n)
		c.usedBytes += entry.Size
	}

	for c.usedBytes > c.maxBytes && c.tail.prev != c.head {
		lru := c.tail.prev
		c.removeNode(lru)
		c.evictions++
	}
}

// Stats reports L1's current occupancy and hit/miss counters.
type Stats struct {
	Size      int
	UsedBytes int64
	MaxBytes  int64
	Hits      int64
	Misses    int64
	Evictions int64
}

func (c *L1) Stats() Stats {
	c.mu.Lock()
	defer c.mu.Unlock()
	return Stats{
		Size:      len(c.nodes),
		UsedBytes: c.usedBytes,
		MaxBytes:  c.maxBytes,
		Hits:      c.hits,
		Misses:    c.misses,
		Evictions: c.evictions,
	}
}

// addToFront, moveToFront and removeNode are the classic doubly-linked-list
// LRU operations, adapted from orchestration.LRUCache's addToFront /
// moveToFront / removeFromList helpers.
func (c *L1) addToFront(n *lruNode) {
	n.prev = c.head
	n.next = c.head.next
	c.head.next.prev = n
	c.head.next = n
}

func (c *L1) moveToFront(n *lruNode) {
	c.removeFromList(n)
	c.addToFront(n)
}

func (c *L1) removeFromList(n *lruNode) {
	n.prev.next = n.next
	n.next.prev = n.prev
}

func (c *L1) removeNode(n *lruNode) {
	c.removeFromList(n)
	delete(c.nodes, n.key)
	c.usedBytes -= n.entry.Size
}
