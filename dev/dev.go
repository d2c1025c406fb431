// Package dev implements the block- and character-device boundary:
// interfaces only, per the component table's "dev/fs/tty boundary
// (interfaces only)" share — the ext2 filesystem that would sit above
// a BlockDev, and the canonical-mode line discipline that would sit
// behind a CharDev, are both out of scope. What belongs here is the
// contract a driver and its caller agree on.
//
// BlockDev/BufReq/Buf are grounded on pci.Disk_i/Idebuf_t and
// fs.Disk_i/Bdev_block_t/Bdev_req_t/BlkList_t, trimmed of the
// ext2-journal-specific block kinds (CommitBlk, RevokeBlk) those
// carried — a block here is always a plain data block, since the
// journal that gave those kinds meaning is part of the out-of-scope
// filesystem. Buf's backing bytes are a circbuf.Circbuf_t, reused from
// its original TTY-input-ring role for the same reason a block cache
// page and a TTY ring are both "one page, circularly addressed".
package dev

import (
	"sync"

	"circbuf"
	"defs"
	"fdops"
	"page"
)

// BlockSize is the fixed unit of I/O between a BlockDev and its
// callers (BSIZE in fs/blk.go and mkfs).
const BlockSize = page.Size

// Cmd enumerates block device request directions (Bdevcmd_t).
type Cmd int

const (
	CmdRead Cmd = iota + 1
	CmdWrite
	CmdFlush
)

// Buf is one cached, page-backed disk block (Bdev_block_t, trimmed).
type Buf struct {
	sync.Mutex
	Block int
	Dirty bool

	cb *circbuf.Circbuf_t
}

// NewBuf creates a Buf whose backing page is allocated from alloc on
// its first ReadInto or WriteFrom.
func NewBuf(block int, alloc *page.Allocator) *Buf {
	cb := &circbuf.Circbuf_t{}
	if err := cb.Cb_init(BlockSize, alloc, page.TagBuf); err != 0 {
		panic("dev: out of memory allocating a block buffer")
	}
	return &Buf{Block: block, cb: cb}
}

// ReadInto copies the whole block into dst (a page.Allocator-backed
// Userio_i implementation, or a plain kernel buffer wrapper).
func (b *Buf) ReadInto(dst fdops.Userio_i) (int, defs.Err_t) {
	b.Lock()
	defer b.Unlock()
	if err := b.cb.Cb_ensure(); err != 0 {
		return 0, err
	}
	return b.cb.Copyout_n(dst, BlockSize)
}

// WriteFrom overwrites the block's bytes from src and marks it dirty.
func (b *Buf) WriteFrom(src fdops.Userio_i) (int, defs.Err_t) {
	b.Lock()
	defer b.Unlock()
	if err := b.cb.Cb_ensure(); err != 0 {
		return 0, err
	}
	n, err := b.cb.Copyin(src)
	if err == 0 && n > 0 {
		b.Dirty = true
	}
	return n, err
}

// BufReq is a single request to a BlockDev: a command, the blocks it
// spans (in practice always one, since each Buf is exactly BlockSize),
// and the condvar the driver signals on completion, the same shape as
// Bdev_req_t/BufRequest's waitlist condvar.
type BufReq struct {
	Cmd  Cmd
	Bufs []*Buf

	mu   sync.Mutex
	cond *sync.Cond
	done bool
	Err  defs.Err_t
}

// NewBufReq builds a request for the given command and blocks.
func NewBufReq(cmd Cmd, bufs ...*Buf) *BufReq {
	r := &BufReq{Cmd: cmd, Bufs: bufs}
	r.cond = sync.NewCond(&r.mu)
	return r
}

// Complete marks the request done with the given result and wakes
// whoever is waiting in Wait; called by the driver from its own
// completion path, never by the submitter.
func (r *BufReq) Complete(err defs.Err_t) {
	r.mu.Lock()
	r.done = true
	r.Err = err
	r.cond.Broadcast()
	r.mu.Unlock()
}

// Wait blocks until the driver calls Complete.
func (r *BufReq) Wait() defs.Err_t {
	r.mu.Lock()
	defer r.mu.Unlock()
	for !r.done {
		r.cond.Wait()
	}
	return r.Err
}

// BlockDev is the sole entry point a block driver exposes, matching
// BlockDev::request. Request should queue or start req and
// return immediately; completion is signaled asynchronously via
// req.Complete. Requests serialize per device via the driver's own
// mutex — BlockDev implementations are expected to hold one
// internally, not rely on a caller-provided lock.
type BlockDev interface {
	Request(req *BufReq)
	Stats() string
}

// CharDev is the character-device side of the boundary, registered by
// major number via dev_register_char: a descriptor's Read/Write/Ioctl ultimately
// forward here once the VFS/IPC layer above has resolved a major
// number to one of these. No line discipline, canonical-mode editing,
// or signal-on-control-character behavior lives here — that belongs to
// the TTY implementation this core does not include.
type CharDev interface {
	Read(dst fdops.Userio_i) (int, defs.Err_t)
	Write(src fdops.Userio_i) (int, defs.Err_t)
	Ioctl(request int, arg int) defs.Err_t
}

// Registry maps a major device number to its CharDev, mirroring
// dev_register_char's registration table.
type Registry struct {
	mu     sync.Mutex
	majors map[int]CharDev
}

// NewRegistry creates an empty character-device registry.
func NewRegistry() *Registry {
	return &Registry{majors: make(map[int]CharDev)}
}

// Register installs dev under major, replacing any previous entry.
func (r *Registry) Register(major int, dev CharDev) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.majors[major] = dev
}

// Lookup returns the CharDev registered under major, or nil.
func (r *Registry) Lookup(major int) CharDev {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.majors[major]
}
