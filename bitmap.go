package imgdec

import (
	"image"
	"sync"
)

// Bitmap is a decoded pixel buffer that can be marked volatile so that a
// Pool may reclaim its storage under memory pressure.
//
// A nil *Bitmap is the empty bitmap: every accessor returns its zero value.
type Bitmap struct {
	width  int
	height int
	pool   *Pool

	mu       sync.Mutex
	img      image.Image // nil once purged
	volatile bool
}

func newBitmap(img image.Image, pool *Pool) *Bitmap {
	b := img.Bounds()
	return &Bitmap{
		width:  b.Dx(),
		height: b.Dy(),
		pool:   pool,
		img:    img,
	}
}

// Width returns the bitmap width in pixels
func (b *Bitmap) Width() int {
	if b == nil {
		return 0
	}
	return b.width
}

// Height returns the bitmap height in pixels
func (b *Bitmap) Height() int {
	if b == nil {
		return 0
	}
	return b.height
}

// Size returns the bitmap dimensions
func (b *Bitmap) Size() Size {
	return Size{Width: b.Width(), Height: b.Height()}
}

// Image returns the pixels. It returns nil while the bitmap is volatile or
// after its storage was purged.
func (b *Bitmap) Image() image.Image {
	if b == nil {
		return nil
	}
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.volatile {
		return nil
	}
	return b.img
}

// IsVolatile reports whether the bitmap is currently marked volatile
func (b *Bitmap) IsVolatile() bool {
	if b == nil {
		return false
	}
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.volatile
}

// IsPurged reports whether the bitmap's pixel storage has been reclaimed
func (b *Bitmap) IsPurged() bool {
	if b == nil {
		return false
	}
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.img == nil
}

// SetVolatile marks the pixel storage as reclaimable. It always succeeds.
func (b *Bitmap) SetVolatile() {
	if b == nil {
		return
	}
	b.mu.Lock()
	if b.volatile {
		b.mu.Unlock()
		return
	}
	b.volatile = true
	b.mu.Unlock()

	b.pool.add(b)
}

// SetNonvolatile makes the bitmap resident again and reports whether its
// storage was purged while volatile. A purged bitmap must be re-decoded
// before its pixels are read.
func (b *Bitmap) SetNonvolatile() (purged bool) {
	if b == nil {
		return false
	}
	b.mu.Lock()
	wasVolatile := b.volatile
	b.volatile = false
	purged = b.img == nil
	b.mu.Unlock()

	if wasVolatile {
		b.pool.remove(b)
	}
	return purged
}

// restore installs freshly decoded pixels into a purged bitmap
func (b *Bitmap) restore(img image.Image) {
	b.mu.Lock()
	b.img = img
	b.mu.Unlock()
}

// purge drops the pixel storage if the bitmap is still volatile and
// returns the number of bytes released.
func (b *Bitmap) purge() int64 {
	b.mu.Lock()
	defer b.mu.Unlock()
	if !b.volatile || b.img == nil {
		return 0
	}
	b.img = nil
	return b.bytes()
}

// bytes estimates the resident size assuming 4 bytes per pixel
func (b *Bitmap) bytes() int64 {
	return int64(b.width) * int64(b.height) * 4
}
