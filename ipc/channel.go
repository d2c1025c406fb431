package ipc

import (
	"sync"
	"sync/atomic"

	"hashtable"
)

const channelTableSize = 256

var (
	channels   = hashtable.MkHash(channelTableSize)
	nextChanID int32
)

// Channel is a named, refcounted IPC destination registered under a
// hashed integer ID and owning exactly one Endpoint for its lifetime
// (struct Channel, kernel/ipc/channel.c). channel_id's hash-indexed
// registry is this kernel's hashtable.Hashtable_t.
type Channel struct {
	ID       int32
	Endpoint *Endpoint

	mu       sync.Mutex
	refCount int
}

// NewChannel allocates a channel, registers it under a freshly minted
// ID, and returns it holding one reference on behalf of the caller —
// typically the server process that will call Endpoint.Receive on it.
func NewChannel() *Channel {
	id := atomic.AddInt32(&nextChanID, 1)
	ch := &Channel{ID: id, Endpoint: newEndpoint(), refCount: 1}
	channels.Set(id, ch)
	return ch
}

// LookupChannel finds a previously registered channel by ID
// (the channel_id hash lookup a name-service open() performs).
func LookupChannel(id int32) (*Channel, bool) {
	v, ok := channels.Get(id)
	if !ok {
		return nil, false
	}
	return v.(*Channel), true
}

func (c *Channel) ref() *Channel {
	c.mu.Lock()
	c.refCount++
	c.mu.Unlock()
	return c
}

func (c *Channel) unref() {
	c.mu.Lock()
	c.refCount--
	n := c.refCount
	c.mu.Unlock()
	if n < 0 {
		panic("ipc: channel refcount went negative")
	}
	if n == 0 {
		channels.Del(c.ID)
	}
}
