package reader

import (
	"image"
	"sync"
)

// pageCache keeps the most recently stored pages, evicting the oldest insert.
type pageCache struct {
	mu    sync.Mutex
	size  int
	order []int
	pages map[int]image.Image
}

func newPageCache(size int) *pageCache {
	return &pageCache{
		size:  size,
		pages: make(map[int]image.Image, size),
	}
}

func (c *pageCache) get(index int) (image.Image, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	img, ok := c.pages[index]
	return img, ok
}

func (c *pageCache) has(index int) bool {
	_, ok := c.get(index)
	return ok
}

func (c *pageCache) put(index int, img image.Image) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if _, ok := c.pages[index]; ok {
		c.pages[index] = img
		return
	}
	if len(c.order) >= c.size {
		oldest := c.order[0]
		c.order = c.order[1:]
		delete(c.pages, oldest)
	}
	c.order = append(c.order, index)
	c.pages[index] = img
}
