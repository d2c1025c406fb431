package ipc

import (
	"bytes"
	"encoding/binary"
	"encoding/gob"
	"sync"

	"defs"
	"fdops"
	"limits"
	"sched"
	"stat"
)

// Connection types, mirroring CONNECTION_TYPE_* in
// kernel/include/kernel/ipc.h.
const (
	ConnFile = iota + 1
	ConnPipe
	ConnSocket
)

const statusMask = defs.O_APPEND | defs.O_NONBLOCK | defs.O_SYNC | defs.O_ACCMODE

// Connection is the client-side, fd-addressable handle to a Channel
// (struct Connection, kernel/ipc/connection.c). It implements
// fdops.Fdops_i: every descriptor operation becomes a synchronous IPC
// message to the server owning the channel, except Close, which
// sends IPC_MSG_CLOSE only once the last reference drops.
type Connection struct {
	Type int

	chn *Channel

	mu       sync.Mutex
	refCount int
	flags    int
}

var _ fdops.Fdops_i = (*Connection)(nil)

// NewConnection creates a connection bound to chn, taking one
// reference on the channel and starting at refcount 1
// (connection_alloc followed by the caller's implicit first ref).
func NewConnection(typ int, chn *Channel) *Connection {
	return &Connection{Type: typ, chn: chn.ref(), refCount: 1}
}

// Ref adds a reference to the connection (connection_ref).
func (c *Connection) Ref() *Connection {
	c.mu.Lock()
	c.refCount++
	c.mu.Unlock()
	return c
}

// Reopen implements fdops.Fdops_i for fd duplication (dup2, fork):
// it is connection_ref under the interface's shared vocabulary.
func (c *Connection) Reopen() defs.Err_t {
	c.Ref()
	return 0
}

// GetFlags and SetFlags mirror connection_get_flags/connection_set_flags,
// masking to the subset of O_* bits that persist past open (access mode
// and status flags, not the one-shot O_CREAT/O_TRUNC/O_EXCL).
func (c *Connection) GetFlags() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.flags & statusMask
}

func (c *Connection) SetFlags(flags int) defs.Err_t {
	c.mu.Lock()
	c.flags = (c.flags &^ statusMask) | (flags & statusMask)
	c.mu.Unlock()
	return 0
}

// Close drops a reference; at refcount 1 it first sends IPC_MSG_CLOSE
// to let the server release any of its own state, then at refcount 0
// releases the connection's hold on the channel (connection_unref).
func (c *Connection) Close(self *sched.Task) defs.Err_t {
	c.mu.Lock()
	if c.refCount < 1 {
		panic("ipc: connection refcount went negative")
	}
	willClose := c.refCount == 1
	c.mu.Unlock()

	if willClose {
		msg := Message{Kind: KindClose}
		c.send(self, msg, nil, nil)
	}

	c.mu.Lock()
	c.refCount--
	n := c.refCount
	c.mu.Unlock()

	if n == 0 {
		c.chn.unref()
	}
	return 0
}

// Send builds a single-segment request out of msg and extra, blocks
// until the server replies or the default timeout elapses, and
// returns the reply result (connection_send).
func (c *Connection) Send(self *sched.Task, msg Message, extra []byte, recv []byte) defs.Err_t {
	return c.send(self, msg, extra, recv)
}

// SendV is the scatter/gather form (connection_sendv): sendExtra and
// recv are each split across multiple segments rather than one.
func (c *Connection) SendV(self *sched.Task, msg Message, sendExtra [][]byte, recv [][]byte) defs.Err_t {
	send := make([]IOVec, 0, 1+len(sendExtra))
	send = append(send, encodeMessage(msg))
	send = append(send, sendExtra...)
	return c.dispatch(self, send, recv)
}

func (c *Connection) send(self *sched.Task, msg Message, extra []byte, recv []byte) defs.Err_t {
	send := []IOVec{encodeMessage(msg)}
	if len(extra) > 0 {
		send = append(send, extra)
	}
	var recvIov []IOVec
	if len(recv) > 0 {
		recvIov = []IOVec{recv}
	}
	return c.dispatch(self, send, recvIov)
}

// dispatch is connection_send/connection_sendv's shared tail: allocate
// a request, dup it for the server's half, push it to the endpoint's
// mailbox, and block on the reply with the default IPC timeout.
func (c *Connection) dispatch(self *sched.Task, send, recv []IOVec) defs.Err_t {
	if c.chn == nil || c.chn.Endpoint == nil {
		return -1
	}

	req := newRequest(c, send, recv)
	req.Dup()

	if err := c.chn.Endpoint.send(self, req, limits.IpcDefaultTimeoutTicks); err != 0 {
		req.Destroy()
		req.Destroy()
		return -defs.ETIMEDOUT
	}

	result := req.Wait(self, limits.IpcDefaultTimeoutTicks)
	req.Destroy()
	return result
}

// encodeMessage and DecodeMessage are the request header's wire
// format. A kernel-internal control struct crossing only a mailbox
// (never a real wire or disk), gob is the stdlib's exact fit — no
// third-party serializer in the retrieval pack targets an in-process
// struct-to-bytes job like this one.
func encodeMessage(msg Message) []byte {
	var buf bytes.Buffer
	if err := gob.NewEncoder(&buf).Encode(&msg); err != nil {
		panic("ipc: encoding a Message must not fail: " + err.Error())
	}
	return buf.Bytes()
}

// DecodeMessage parses a Message header back out of the bytes
// encodeMessage produced. The server side calls this after
// Request.Read delivers the first iovec segment.
func DecodeMessage(b []byte) Message {
	var msg Message
	if err := gob.NewDecoder(bytes.NewReader(b)).Decode(&msg); err != nil {
		panic("ipc: decoding a Message must not fail: " + err.Error())
	}
	return msg
}

// ---- fdops.Fdops_i ----

func (c *Connection) Seek(self *sched.Task, offset int64, whence int) (int64, defs.Err_t) {
	msg := Message{Kind: KindSeek, Offset: offset, Whence: whence}
	var recv [8]byte
	if err := c.send(self, msg, nil, recv[:]); err != 0 {
		return 0, err
	}
	return int64(binary.LittleEndian.Uint64(recv[:])), 0
}

func (c *Connection) Read(self *sched.Task, dst fdops.Userio_i) (int, defs.Err_t) {
	n := dst.Remain()
	buf := make([]byte, n)
	msg := Message{Kind: KindRead, NByte: n}
	// The reply result is the byte count read, or a negative errno.
	r := c.send(self, msg, nil, buf)
	if r < 0 {
		return 0, r
	}
	if int(r) < len(buf) {
		buf = buf[:r]
	}
	return dst.Uiowrite(buf)
}

func (c *Connection) Write(self *sched.Task, src fdops.Userio_i) (int, defs.Err_t) {
	buf := make([]byte, src.Remain())
	got, err := src.Uioread(buf)
	if err != 0 {
		return 0, err
	}
	buf = buf[:got]
	msg := Message{Kind: KindWrite, NByte: got}
	if err := c.send(self, msg, buf, nil); err != 0 {
		return 0, err
	}
	return got, 0
}

func (c *Connection) Fstat(self *sched.Task, st *stat.Stat_t) defs.Err_t {
	msg := Message{Kind: KindFstat}
	return c.send(self, msg, nil, st.Bytes())
}

func (c *Connection) Fchmod(self *sched.Task, mode int) defs.Err_t {
	msg := Message{Kind: KindFchmod, Mode: uint32(mode)}
	return c.send(self, msg, nil, nil)
}

func (c *Connection) Fchown(self *sched.Task, uid, gid int) defs.Err_t {
	msg := Message{Kind: KindFchown, UID: uint32(uid), GID: uint32(gid)}
	return c.send(self, msg, nil, nil)
}

func (c *Connection) Fsync(self *sched.Task) defs.Err_t {
	msg := Message{Kind: KindFsync}
	return c.send(self, msg, nil, nil)
}

func (c *Connection) Ioctl(self *sched.Task, request int, arg int) defs.Err_t {
	msg := Message{Kind: KindIoctl, Request: request, Arg: arg}
	return c.send(self, msg, nil, nil)
}

func (c *Connection) Getdents(self *sched.Task, dst fdops.Userio_i) (int, defs.Err_t) {
	n := dst.Remain()
	buf := make([]byte, n)
	msg := Message{Kind: KindReaddir, NByte: n}
	if err := c.send(self, msg, nil, buf); err != 0 {
		return 0, err
	}
	return dst.Uiowrite(buf)
}

func (c *Connection) Truncate(self *sched.Task, length int64) defs.Err_t {
	msg := Message{Kind: KindTrunc, Length: length}
	return c.send(self, msg, nil, nil)
}

// Select mirrors connection_select as a best-effort stub: it sends
// KindSelect, waits for the server's reply, and reports "ready" when
// that reply is 0. timeoutTicks is not used; the pollable event
// sources (pipe buffers, socket queues) this would fan out to are out
// of scope.
func (c *Connection) Select(self *sched.Task, timeoutTicks int) (bool, defs.Err_t) {
	msg := Message{Kind: KindSelect}
	if err := c.send(self, msg, nil, nil); err != 0 {
		return false, err
	}
	return true, 0
}
