package bitmap

import (
	"image"
	"sync"
)

// Pool recycles *image.RGBA buffers of identical bounds to keep large
// allocations away from the garbage collector.
type Pool struct {
	pools map[image.Rectangle]*sync.Pool
	mu    sync.RWMutex
}

func NewPool() *Pool {
	return &Pool{pools: make(map[image.Rectangle]*sync.Pool)}
}

// Get returns a zeroed buffer with the given bounds.
func (p *Pool) Get(rect image.Rectangle) *image.RGBA {
	if p == nil {
		return image.NewRGBA(rect)
	}

	p.mu.RLock()
	pool, exists := p.pools[rect]
	p.mu.RUnlock()

	if !exists {
		p.mu.Lock()
		pool, exists = p.pools[rect]
		if !exists {
			pool = &sync.Pool{
				New: func() any {
					return image.NewRGBA(rect)
				},
			}
			p.pools[rect] = pool
		}
		p.mu.Unlock()
	}

	img := pool.Get().(*image.RGBA)
	clear(img.Pix)
	return img
}

// Put hands img back for reuse. The caller must not touch it afterwards.
func (p *Pool) Put(img *image.RGBA) {
	if p == nil || img == nil {
		return
	}
	p.mu.RLock()
	pool, exists := p.pools[img.Rect]
	p.mu.RUnlock()

	if exists {
		pool.Put(img)
	}
}
