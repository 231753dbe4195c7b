package behavior

import (
	"math/bits"
	"sync"
)

const (
	// DefaultPoolMaxLength is the largest buffer a NodePool retains.
	DefaultPoolMaxLength = 1024 * 1024
	// DefaultPoolBucketSize is how many buffers each size bucket retains.
	DefaultPoolBucketSize = 10
)

// PoolStats reports NodePool activity.
type PoolStats struct {
	Rented   int
	Reused   int
	Returned int
	Dropped  int
}

// NodePool recycles tree root storage. Buffers are bucketed by power-of-two
// length; each bucket keeps a bounded number of idle buffers. A NodePool is
// safe for concurrent use and may be shared between trees.
type NodePool struct {
	mu        sync.Mutex
	maxLength int
	perBucket int
	buckets   map[int][][]slot
	stats     PoolStats
}

// NewNodePool returns a pool retaining buffers of up to maxLength roots,
// at most perBucket per size. Non-positive arguments select the defaults.
func NewNodePool(maxLength, perBucket int) *NodePool {
	if maxLength <= 0 {
		maxLength = DefaultPoolMaxLength
	}
	if perBucket <= 0 {
		perBucket = DefaultPoolBucketSize
	}
	return &NodePool{
		maxLength: maxLength,
		perBucket: perBucket,
		buckets:   make(map[int][][]slot),
	}
}

func bucketSize(n int) int {
	if n <= 1 {
		return 1
	}
	return 1 << bits.Len(uint(n-1))
}

// rent returns a zeroed buffer of at least n slots.
func (p *NodePool) rent(n int) []slot {
	size := bucketSize(n)
	p.mu.Lock()
	defer p.mu.Unlock()
	p.stats.Rented++
	if free := p.buckets[size]; len(free) > 0 {
		buf := free[len(free)-1]
		free[len(free)-1] = nil
		p.buckets[size] = free[:len(free)-1]
		p.stats.Reused++
		return buf
	}
	return make([]slot, size)
}

// put returns buf to the pool. Buffers that did not come from rent, or that
// would overflow their bucket, are dropped.
func (p *NodePool) put(buf []slot) {
	if len(buf) == 0 {
		return
	}
	clear(buf)
	size := len(buf)
	p.mu.Lock()
	defer p.mu.Unlock()
	if size != bucketSize(size) || size > p.maxLength || len(p.buckets[size]) >= p.perBucket {
		p.stats.Dropped++
		return
	}
	p.buckets[size] = append(p.buckets[size], buf)
	p.stats.Returned++
}

// Stats returns a snapshot of pool activity.
func (p *NodePool) Stats() PoolStats {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.stats
}

// Idle returns the number of buffers currently held by the pool.
func (p *NodePool) Idle() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	var n int
	for _, free := range p.buckets {
		n += len(free)
	}
	return n
}
