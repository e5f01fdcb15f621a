// Package pool implements the process-wide size-class arena for the
// image and audio buffers the pipeline allocates most frequently
// (spec §4.2). Buffers are returned to a free-list keyed by their exact
// byte size and handed back out on the next equal-size request.
package pool

import (
	"sync"

	"github.com/shirou/gopsutil/v3/mem"
)

// memAvailable is overridable in tests; production code reads real host
// memory via gopsutil.
var memAvailable = func() (uint64, error) {
	stat, err := mem.VirtualMemory()
	if err != nil {
		return 0, err
	}
	return stat.Available, nil
}

// defaultWatermark is the fraction of available host memory the pool is
// willing to hold onto across all size classes before it stops growing a
// class and falls back to the host heap for further allocations of that
// size (the class's buffers already handed out are unaffected).
const defaultWatermark = 0.25

type sizeClass struct {
	mu   sync.Mutex
	free [][]byte
	held int // bytes currently sitting in free, not handed out.
}

// Pool is a thread-safe, size-keyed buffer arena. One lock per size
// class (spec §4.2) rather than one lock for the whole pool, so unrelated
// sizes never contend.
type Pool struct {
	mu      sync.Mutex
	classes map[int]*sizeClass

	watermark float64
	heapFallbacks int
	heapFallbacksMu sync.Mutex
}

// New returns an empty Pool.
func New() *Pool {
	return &Pool{
		classes:   map[int]*sizeClass{},
		watermark: defaultWatermark,
	}
}

func (p *Pool) classFor(size int) *sizeClass {
	p.mu.Lock()
	defer p.mu.Unlock()
	c, ok := p.classes[size]
	if !ok {
		c = &sizeClass{}
		p.classes[size] = c
	}
	return c
}

// Alloc returns a buffer of exactly size bytes, reused from the free-list
// when available. release(nil) is documented as a no-op by Release.
func (p *Pool) Alloc(size int) []byte {
	if size <= 0 {
		return nil
	}
	c := p.classFor(size)

	c.mu.Lock()
	if n := len(c.free); n > 0 {
		buf := c.free[n-1]
		c.free = c.free[:n-1]
		c.held -= size
		c.mu.Unlock()
		return buf[:size]
	}
	c.mu.Unlock()

	return make([]byte, size)
}

// Release returns buf to its size class's free-list, unless doing so
// would push the pool over its memory watermark, in which case the
// buffer is dropped and left to the host allocator/GC (the "fallback to
// the host heap" path in spec §4.2). Release on a nil buffer is a no-op.
func (p *Pool) Release(buf []byte) {
	if buf == nil {
		return
	}
	size := cap(buf)
	c := p.classFor(size)

	if p.overWatermark(size) {
		p.recordHeapFallback()
		return
	}

	c.mu.Lock()
	c.free = append(c.free, buf)
	c.held += size
	c.mu.Unlock()
}

func (p *Pool) overWatermark(additional int) bool {
	avail, err := memAvailable()
	if err != nil || avail == 0 {
		// Can't read host memory; never refuse to pool on that account.
		return false
	}
	return float64(p.heldBytes()+additional) > p.watermark*float64(avail)
}

func (p *Pool) heldBytes() int {
	p.mu.Lock()
	classes := make([]*sizeClass, 0, len(p.classes))
	for _, c := range p.classes {
		classes = append(classes, c)
	}
	p.mu.Unlock()

	total := 0
	for _, c := range classes {
		c.mu.Lock()
		total += c.held
		c.mu.Unlock()
	}
	return total
}

func (p *Pool) recordHeapFallback() {
	p.heapFallbacksMu.Lock()
	p.heapFallbacks++
	p.heapFallbacksMu.Unlock()
}

// HeapFallbacks reports how many Release calls were dropped to the host
// heap due to watermark pressure, for diagnostics.
func (p *Pool) HeapFallbacks() int {
	p.heapFallbacksMu.Lock()
	defer p.heapFallbacksMu.Unlock()
	return p.heapFallbacks
}

// SetWatermark overrides the default fraction-of-available-memory
// threshold; exposed for tests and operators tuning memory pressure.
func (p *Pool) SetWatermark(fraction float64) {
	p.watermark = fraction
}
