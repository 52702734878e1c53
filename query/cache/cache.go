// Package cache provides prepared statement caching for the executor.
package cache

import (
	"context"
	"database/sql"
	"fmt"
	"sync"
)

// Preparer prepares statements; satisfied by *sql.DB and *sql.Conn
type Preparer interface {
	PrepareContext(ctx context.Context, query string) (*sql.Stmt, error)
}

// Stats represents cache statistics
type Stats struct {
	Hits      int64
	Misses    int64
	Size      int
	MaxSize   int
	Evictions int64
	HitRate   float64
}

// Statements is an LRU cache of prepared statements keyed by SQL text.
// Evicted statements are closed.
type Statements struct {
	mu      sync.Mutex
	data    map[string]*node
	maxSize int
	head    *node
	tail    *node
	stats   Stats
}

// node represents a node in the doubly-linked list for LRU
type node struct {
	key  string
	stmt *sql.Stmt
	prev *node
	next *node
}

// NewStatements creates a statement cache holding at most maxSize statements
func NewStatements(maxSize int) *Statements {
	if maxSize < 1 {
		maxSize = 1
	}
	return &Statements{
		data:    make(map[string]*node),
		maxSize: maxSize,
		stats:   Stats{MaxSize: maxSize},
	}
}

// Get retrieves a statement from the cache
func (c *Statements) Get(query string) (*sql.Stmt, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	n, ok := c.data[query]
	if !ok {
		c.stats.Misses++
		c.updateHitRate()
		return nil, false
	}
	c.moveToFront(n)
	c.stats.Hits++
	c.updateHitRate()
	return n.stmt, true
}

// Prepare returns the cached statement for query, preparing it on p when missing
func (c *Statements) Prepare(ctx context.Context, p Preparer, query string) (*sql.Stmt, error) {
	if stmt, ok := c.Get(query); ok {
		return stmt, nil
	}
	stmt, err := p.PrepareContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("failed to prepare statement: %w", err)
	}
	return c.put(query, stmt), nil
}

// put stores stmt unless another caller cached the same text first, in which
// case stmt is closed and the cached one returned
func (c *Statements) put(query string, stmt *sql.Stmt) *sql.Stmt {
	c.mu.Lock()
	defer c.mu.Unlock()

	if n, exists := c.data[query]; exists {
		stmt.Close()
		c.moveToFront(n)
		return n.stmt
	}

	if len(c.data) >= c.maxSize {
		c.evictLRU()
	}
	n := &node{key: query, stmt: stmt}
	c.addToFront(n)
	c.data[query] = n
	c.stats.Size = len(c.data)
	return stmt
}

// Invalidate closes and removes the statement for query
func (c *Statements) Invalidate(query string) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if n, ok := c.data[query]; ok {
		c.removeNode(n)
		n.stmt.Close()
		c.stats.Size = len(c.data)
	}
}

// Clear closes every cached statement
func (c *Statements) Clear() error {
	c.mu.Lock()
	defer c.mu.Unlock()

	var first error
	for _, n := range c.data {
		if err := n.stmt.Close(); err != nil && first == nil {
			first = err
		}
	}
	c.data = make(map[string]*node)
	c.head = nil
	c.tail = nil
	c.stats.Size = 0
	return first
}

// GetStats returns cache statistics
func (c *Statements) GetStats() Stats {
	c.mu.Lock()
	defer c.mu.Unlock()

	stats := c.stats
	stats.Size = len(c.data)
	return stats
}

// addToFront adds a node to the front of the list
func (c *Statements) addToFront(n *node) {
	n.prev = nil
	n.next = c.head
	if c.head != nil {
		c.head.prev = n
	}
	c.head = n
	if c.tail == nil {
		c.tail = n
	}
}

// moveToFront moves a node to the front of the list
func (c *Statements) moveToFront(n *node) {
	if n == c.head {
		return
	}
	c.unlink(n)
	c.addToFront(n)
}

func (c *Statements) unlink(n *node) {
	if n.prev != nil {
		n.prev.next = n.next
	} else {
		c.head = n.next
	}
	if n.next != nil {
		n.next.prev = n.prev
	} else {
		c.tail = n.prev
	}
	n.prev, n.next = nil, nil
}

// removeNode removes a node from the list and the index
func (c *Statements) removeNode(n *node) {
	c.unlink(n)
	delete(c.data, n.key)
}

// evictLRU closes and evicts the least recently used statement
func (c *Statements) evictLRU() {
	if c.tail == nil {
		return
	}
	n := c.tail
	c.removeNode(n)
	n.stmt.Close()
	c.stats.Evictions++
}

// updateHitRate updates the hit rate statistic
func (c *Statements) updateHitRate() {
	total := c.stats.Hits + c.stats.Misses
	if total > 0 {
		c.stats.HitRate = float64(c.stats.Hits) / float64(total) * 100
	}
}
