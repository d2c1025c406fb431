// Package slab implements the kernel's object allocator: fixed-size
// object pools backed by page blocks from package page. Each
// Pool keeps three slab lists (empty/partial/full) and, per slab, a
// free list of object tags (one tag per block), grounded on
// include/kernel/object_pool.h; mem.Physmem_t has no equivalent layer
// (it is a page allocator only, with no slab above it), so the list
// bookkeeping and locking pattern are instead grounded on how
// mem.Physmem_t itself is structured (a single mutex per allocator,
// container/list-style intrusive lists matching fs.BlkList_t).
//
// The source this is grounded on keeps a slab's ObjectTag array inline
// in the page when doing so wastes little space, and off in a separate
// allocation otherwise (OBJECT_POOL_OFF_SLAB). Go has no safe way to
// reinterpret part of a []byte as a typed struct array sharing the
// same backing store, so the tag array here is always a separate Go
// slice; Pool still computes and records whether an on-slab layout
// would have fit, to preserve the fragmentation-driven capacity
// calculation and the on/off-slab distinction in the data model.
package slab

import (
	"container/list"
	"fmt"
	"sync"

	"page"
)

// offSlabFragmentMax is the fraction of a slab's space an on-slab
// descriptor+tags array is allowed to waste before the layout switches
// to keeping the tag array off-slab.
const offSlabFragmentMax = 0.125

// tagSize is the size in bytes object_pool.h's struct ObjectTag would
// occupy, used only to reproduce the fragmentation calculation above.
const tagSize = 8

// Ctor initializes a freshly carved object; Dtor undoes that
// initialization when the owning slab is destroyed. Either may be nil.
type Ctor func(obj []byte)
type Dtor func(obj []byte)

// Pool is one object_pool_create() instance: a name, a fixed block
// size/alignment, and the three slab lists that classify every slab
// the pool owns by occupancy.
type Pool struct {
	mu sync.Mutex

	name       string
	objSize    int
	blockSize  int // objSize rounded up to blockAlign
	blockAlign int

	pages     *page.Allocator
	pageOrder uint
	capacity  int // objects per slab
	offSlab   bool

	ctor Ctor
	dtor Dtor

	colorMax  int
	colorNext int

	empty, partial, full list.List
}

// tag is the free-list node for one block's slot, analogous to struct
// ObjectTag in the source this pool is grounded on.
type tag struct {
	next *tag
	idx  int
}

type slabState int

const (
	stateEmpty slabState = iota
	statePartial
	stateFull
)

type slabDesc struct {
	elem    *list.Element
	state   slabState
	pageBlk *page.Page
	data    []byte // object storage
	tags    []tag
	free    *tag
	used    int
}

// Create builds a new pool of fixed-size objects, choosing a page
// order and on/off-slab capacity the way object_pool_create does: the
// tag array is considered inline when doing so would waste no more
// than 12.5% of the slab, otherwise off-slab (see package doc).
func Create(name string, objSize, align int, pages *page.Allocator, ctor Ctor, dtor Dtor) *Pool {
	if align < 1 {
		align = 1
	}
	blockSize := roundup(objSize, align)

	p := &Pool{
		name:       name,
		objSize:    objSize,
		blockSize:  blockSize,
		blockAlign: align,
		pages:      pages,
		ctor:       ctor,
		dtor:       dtor,
	}
	p.pageOrder, p.capacity, p.offSlab = chooseLayout(blockSize)
	p.colorMax = (page.Size<<p.pageOrder - p.capacity*blockSize) / align
	if p.colorMax < 1 {
		p.colorMax = 1
	}
	return p
}

func roundup(n, align int) int {
	return (n + align - 1) / align * align
}

// chooseLayout picks the smallest page order that can hold at least
// one object, then decides whether the tag array would have fit inline
// without excessive fragmentation.
func chooseLayout(blockSize int) (order uint, capacity int, offSlab bool) {
	for order = 0; order <= page.OrderMax; order++ {
		space := page.Size << order
		cap := space / blockSize
		if cap < 1 {
			continue
		}
		tagsBytes := cap * tagSize
		onSlabCap := (space - tagsBytes) / blockSize
		if onSlabCap < 1 {
			return order, cap, true
		}
		wasted := space - onSlabCap*blockSize - tagsBytes
		if float64(wasted) > offSlabFragmentMax*float64(space) {
			return order, cap, true
		}
		return order, onSlabCap, false
	}
	panic(fmt.Sprintf("slab: object of size %d too large for any page order", blockSize))
}

// Get allocates one object from the pool, carving a fresh slab from
// the page allocator when every existing slab is full.
func (p *Pool) Get() []byte {
	p.mu.Lock()
	defer p.mu.Unlock()

	s := p.pickSlabLocked()
	if s == nil {
		s = p.growLocked()
		if s == nil {
			return nil
		}
	}

	t := s.free
	s.free = t.next
	s.used++

	obj := s.data[t.idx*p.blockSize : t.idx*p.blockSize+p.objSize]

	switch {
	case s.free == nil:
		p.setState(s, stateFull)
	case s.used == 1:
		p.setState(s, statePartial)
	}
	return obj
}

// Put returns obj to the pool, destroying the slab it lived in once
// the slab has no other live objects: object_pool_put never keeps more
// than the slabs already on slabs_empty around, so this mirrors that
// by freeing the page block back to package page immediately.
func (p *Pool) Put(obj []byte) {
	p.mu.Lock()
	defer p.mu.Unlock()

	s, idx := p.slabOf(obj)
	if s == nil {
		panic("slab: Put of pointer not owned by this pool")
	}
	t := &s.tags[idx]
	t.next = s.free
	s.free = t
	s.used--

	if s.used == 0 {
		if p.dtor != nil {
			for i := 0; i < p.capacity; i++ {
				o := i * p.blockSize
				p.dtor(s.data[o : o+p.objSize])
			}
		}
		p.removeLocked(s)
		p.pages.FreeBlock(s.pageBlk, p.pageOrder)
		return
	}
	p.setState(s, statePartial)
}

func (p *Pool) pickSlabLocked() *slabDesc {
	if e := p.partial.Front(); e != nil {
		return e.Value.(*slabDesc)
	}
	return nil
}

func (p *Pool) growLocked() *slabDesc {
	blk := p.pages.AllocBlock(p.pageOrder, 0, page.TagSlab)
	if blk == nil {
		return nil
	}
	raw := p.pages.KVA(blk)

	s := &slabDesc{pageBlk: blk, tags: make([]tag, p.capacity)}
	color := p.colorNext
	p.colorNext = (p.colorNext + 1) % p.colorMax
	off := color * p.blockAlign
	s.data = raw[off : off+p.capacity*p.blockSize]

	for i := p.capacity - 1; i >= 0; i-- {
		s.tags[i].idx = i
		s.tags[i].next = s.free
		s.free = &s.tags[i]
	}
	if p.ctor != nil {
		for i := 0; i < p.capacity; i++ {
			o := i * p.blockSize
			p.ctor(s.data[o : o+p.objSize])
		}
	}

	s.state = stateEmpty
	s.elem = p.empty.PushFront(s)
	return s
}

func (p *Pool) listFor(st slabState) *list.List {
	switch st {
	case stateEmpty:
		return &p.empty
	case statePartial:
		return &p.partial
	default:
		return &p.full
	}
}

func (p *Pool) setState(s *slabDesc, st slabState) {
	if s.state == st {
		return
	}
	p.listFor(s.state).Remove(s.elem)
	s.state = st
	s.elem = p.listFor(st).PushFront(s)
}

func (p *Pool) removeLocked(s *slabDesc) {
	p.listFor(s.state).Remove(s.elem)
}

func (p *Pool) slabOf(obj []byte) (*slabDesc, int) {
	find := func(l *list.List) (*slabDesc, int) {
		for e := l.Front(); e != nil; e = e.Next() {
			s := e.Value.(*slabDesc)
			if idx, ok := indexWithin(s.data, obj, p.blockSize); ok {
				return s, idx
			}
		}
		return nil, 0
	}
	if s, idx := find(&p.partial); s != nil {
		return s, idx
	}
	if s, idx := find(&p.full); s != nil {
		return s, idx
	}
	return find(&p.empty)
}

func indexWithin(data, obj []byte, blockSize int) (int, bool) {
	if len(data) == 0 || len(obj) == 0 {
		return 0, false
	}
	lo := &data[0]
	o := &obj[0]
	off, ok := uintptrDiff(o, lo)
	if !ok || off >= len(data) {
		return 0, false
	}
	return off / blockSize, true
}

// Name reports the pool's debug name.
func (p *Pool) Name() string { return p.name }
