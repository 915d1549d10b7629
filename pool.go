package imgdec

import (
	"container/list"
	"sync"

	"github.com/apex/log"
)

// DefaultPool tracks volatile bitmaps for decoders that are not given a
// pool of their own.
var DefaultPool = NewPool()

// Pool is the memory manager for volatile bitmaps. Bitmaps join the pool
// when marked volatile and leave it when made resident again; Purge and
// Reclaim drop the pixel storage of members. A Pool is safe for
// concurrent use.
type Pool struct {
	mu      sync.Mutex
	order   *list.List // oldest volatile first
	members map[*Bitmap]*list.Element
	bytes   int64

	// Logger receives a debug entry for every purge. Defaults to log.Log.
	Logger log.Interface
}

// NewPool returns an empty Pool
func NewPool() *Pool {
	return &Pool{
		order:   list.New(),
		members: make(map[*Bitmap]*list.Element),
		Logger:  log.Log,
	}
}

func (p *Pool) add(b *Bitmap) {
	if p == nil {
		return
	}
	p.mu.Lock()
	defer p.mu.Unlock()
	if _, ok := p.members[b]; ok {
		return
	}
	p.members[b] = p.order.PushBack(b)
	if !b.IsPurged() {
		p.bytes += b.bytes()
	}
}

func (p *Pool) remove(b *Bitmap) {
	if p == nil {
		return
	}
	p.mu.Lock()
	defer p.mu.Unlock()
	e, ok := p.members[b]
	if !ok {
		return
	}
	p.order.Remove(e)
	delete(p.members, b)
	if !b.IsPurged() {
		p.bytes -= b.bytes()
	}
}

// Len returns the number of volatile bitmaps in the pool
func (p *Pool) Len() int {
	if p == nil {
		return 0
	}
	p.mu.Lock()
	defer p.mu.Unlock()
	return len(p.members)
}

// Bytes returns the estimated pixel storage still held by volatile bitmaps
func (p *Pool) Bytes() int64 {
	if p == nil {
		return 0
	}
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.bytes
}

// Purge reclaims the storage of every volatile bitmap and returns the
// number of bytes released.
func (p *Pool) Purge() int64 {
	return p.Reclaim(-1)
}

// Reclaim purges volatile bitmaps, oldest first, until at least target
// bytes have been released. A negative target purges everything.
func (p *Pool) Reclaim(target int64) int64 {
	if p == nil {
		return 0
	}
	p.mu.Lock()
	defer p.mu.Unlock()

	var freed int64
	var purged int
	for e := p.order.Front(); e != nil; e = e.Next() {
		if target >= 0 && freed >= target {
			break
		}
		n := e.Value.(*Bitmap).purge()
		if n > 0 {
			freed += n
			purged++
		}
	}
	p.bytes -= freed

	if purged > 0 && p.Logger != nil {
		p.Logger.WithFields(log.Fields{
			"bitmaps": purged,
			"bytes":   freed,
		}).Debug("purged volatile bitmaps")
	}
	return freed
}
