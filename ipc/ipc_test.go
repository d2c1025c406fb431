package ipc

import (
	"testing"
	"time"

	"defs"
	"sched"
)

// runServer drains requests from ch's endpoint until stop is closed,
// answering a read with "pong" (reply result: its length) and anything
// else with 0, simulating a minimal server.
func runServer(s *sched.Scheduler, ch *Channel, stop chan struct{}) {
	s.Create("server", 5, func(self *sched.Task) {
		for {
			select {
			case <-stop:
				return
			default:
			}
			req, err := ch.Endpoint.Receive(self)
			if err != 0 {
				continue
			}
			hdr := make([]byte, req.SendLen())
			req.Read(hdr)
			msg := DecodeMessage(hdr)

			switch msg.Kind {
			case KindRead:
				reply := []byte("pong")
				req.Write(reply)
				req.Reply(defs.Err_t(len(reply)))
			default:
				req.Reply(0)
			}
		}
	})
}

type fakeUio struct {
	buf []byte
	pos int
}

func (f *fakeUio) Uioread(dst []byte) (int, defs.Err_t) {
	n := copy(dst, f.buf[f.pos:])
	f.pos += n
	return n, 0
}
func (f *fakeUio) Uiowrite(src []byte) (int, defs.Err_t) {
	n := copy(f.buf[f.pos:], src)
	f.pos += n
	return n, 0
}
func (f *fakeUio) Remain() int  { return len(f.buf) - f.pos }
func (f *fakeUio) Totalsz() int { return len(f.buf) }

func TestRequestReplyRoundTrip(t *testing.T) {
	s := sched.New(1)
	defer s.Stop()

	ch := NewChannel()
	stop := make(chan struct{})
	runServer(s, ch, stop)
	defer close(stop)

	conn := NewConnection(ConnFile, ch)

	resultCh := make(chan string, 1)
	s.Create("client", 10, func(self *sched.Task) {
		out := &fakeUio{buf: make([]byte, 4)}
		n, err := conn.Read(self, out)
		if err != 0 {
			t.Errorf("Read: %v", err)
			return
		}
		resultCh <- string(out.buf[:n])
	})

	select {
	case got := <-resultCh:
		if got != "pong" {
			t.Fatalf("server reply = %q, want %q", got, "pong")
		}
	case <-time.After(2 * time.Second):
		t.Fatal("request/reply round trip timed out")
	}
}

func TestSendOnDestroyedEndpointFailsFast(t *testing.T) {
	s := sched.New(1)
	defer s.Stop()

	conn := &Connection{Type: ConnFile}

	doneCh := make(chan defs.Err_t, 1)
	s.Create("client", 10, func(self *sched.Task) {
		err := conn.send(self, Message{Kind: KindFsync}, nil, nil)
		doneCh <- err
	})

	select {
	case got := <-doneCh:
		if got != -1 {
			t.Fatalf("send on a channel-less connection = %v, want -1", got)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for the immediate -1")
	}
}

func TestRequestRefcountUnderflowPanics(t *testing.T) {
	defer func() {
		if recover() == nil {
			t.Fatal("expected a panic on refcount underflow")
		}
	}()
	req := newRequest(nil, nil, nil)
	req.Destroy()
	req.Destroy()
}
