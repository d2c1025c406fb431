package ipc

import (
	"sync"

	"defs"
	"sched"
)

// Request is one in-flight IPC transaction: the scatter/gather iovecs
// naming the bytes being sent and received, a completion semaphore,
// and a refcount held once by the requester and once more by the
// server while the request sits in the endpoint's mailbox (struct
// Request, kernel/ipc/request.c).
//
// request.c's iovecs hold raw virtual addresses so the server can
// vm_space_copy_in/out across the sender's address space. This kernel
// instead builds every request out of already-materialized kernel
// []byte buffers: the fdops.Userio_i boundary one layer up already
// abstracts "is this a checked user range or a kernel buffer" before
// a Connection ever builds a Request (see ipc.Connection.Send), so
// Request itself only ever needs to move plain bytes between two
// iovec arrays — it never has to reach back into a process's address
// space on its own.
type Request struct {
	sendIov          []IOVec
	sendIdx, sendPos int

	recvIov          []IOVec
	recvIdx, recvPos int

	sem  *sched.Semaphore
	Conn *Connection

	mu       sync.Mutex
	refCount int

	Result defs.Err_t
}

// IOVec is one {base, len}-shaped scatter/gather segment; in this
// kernel the backing memory is always a kernel []byte, so the segment
// itself carries the slice directly rather than an address.
type IOVec = []byte

func totalLen(iov []IOVec) int {
	n := 0
	for _, v := range iov {
		n += len(v)
	}
	return n
}

func newRequest(conn *Connection, send, recv []IOVec) *Request {
	return &Request{
		sendIov:  send,
		recvIov:  recv,
		sem:      sched.NewSemaphore(0),
		Conn:     conn,
		refCount: 1,
	}
}

// Dup adds a reference to req, returning it for convenience
// (request_dup).
func (r *Request) Dup() *Request {
	r.mu.Lock()
	r.refCount++
	r.mu.Unlock()
	return r
}

// Destroy drops a reference, catching the underflow invariant
// (request_destroy frees the C struct at refcount zero; Go's GC
// reclaims this one once nothing still points at it).
func (r *Request) Destroy() {
	r.mu.Lock()
	r.refCount--
	n := r.refCount
	r.mu.Unlock()
	if n < 0 {
		panic("ipc: request refcount went negative")
	}
}

// Reply stores result, wakes the requester, and unconditionally drops
// the server's own reference — request_reply always calls
// request_destroy itself, regardless of what the requester does with
// its own half of the refcount afterward.
func (r *Request) Reply(result defs.Err_t) {
	r.Result = result
	r.sem.Put()
	r.Destroy()
}

// Wait blocks the requester on the completion semaphore, returning the
// reply result, or a negative errno on timeout or interrupt.
func (r *Request) Wait(self *sched.Task, timeoutTicks int) defs.Err_t {
	if err := r.sem.TimedGet(self, timeoutTicks); err != 0 {
		return err
	}
	return r.Result
}

// Read copies up to len(buf) bytes out of the send iovecs at the
// current cursor into buf, advancing the cursor (request_read). The
// server calls this to pull argument bytes the requester sent.
func (r *Request) Read(buf []byte) int {
	return transfer(r.sendIov, &r.sendIdx, &r.sendPos, buf, true)
}

// Write copies up to len(buf) bytes from buf into the recv iovecs at
// the current cursor, advancing it (request_write). The server calls
// this to push results back to the requester.
func (r *Request) Write(buf []byte) int {
	return transfer(r.recvIov, &r.recvIdx, &r.recvPos, buf, false)
}

// SendLen and RecvLen report the total size of each iovec set.
func (r *Request) SendLen() int { return totalLen(r.sendIov) }
func (r *Request) RecvLen() int { return totalLen(r.recvIov) }

// transfer walks iov starting at (*idx, *pos), moving up to len(buf)
// bytes between buf and the iovec array. fromIov true means "copy out
// of iov into buf" (the read side); false means "copy buf into iov"
// (the write side).
func transfer(iov []IOVec, idx, pos *int, buf []byte, fromIov bool) int {
	n := 0
	for n < len(buf) && *idx < len(iov) {
		seg := iov[*idx]
		avail := len(seg) - *pos
		if avail <= 0 {
			*idx++
			*pos = 0
			continue
		}
		want := len(buf) - n
		if want > avail {
			want = avail
		}
		if fromIov {
			copy(buf[n:n+want], seg[*pos:*pos+want])
		} else {
			copy(seg[*pos:*pos+want], buf[n:n+want])
		}
		n += want
		*pos += want
	}
	return n
}
