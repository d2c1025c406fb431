package process

import (
	"sync"

	"defs"
	"page"
	"slab"
	"tinfo"
	"vm"
	"vmspace"
)

// frameSize is the staging buffer size Registry.framePool hands out:
// enough for either architecture's saved-register signal frame (see
// signal.go), always a plain byte buffer with no Go pointers in it, so
// handing it back to a slab.Pool is safe the way it would not be for a
// pointer-bearing struct.
const frameSize = 96

// Registry owns the pid namespace and the process table, replacing
// process_cache's single compile-time-global object_cache_t with an
// explicit, constructed object whose lifetime is obvious at the call
// site instead of implicit in program startup.
type Registry struct {
	mu      sync.Mutex
	byPid   map[defs.Pid_t]*Process_t
	nextPid defs.Pid_t

	pages      *page.Allocator
	kernel     *vm.Pgtab
	framePool  *slab.Pool

	// threads tracks per-thread liveness/kill state, keyed by the main
	// thread's tid (this core models one thread per process, so a
	// process's tid is its pid). Kill uses it to tear a thread down
	// from outside the normal pending-signal path.
	threads tinfo.Threadinfo_t
}

// NewRegistry creates an empty process table. pages backs every
// process's address space; kernel is the shared kernel-half page
// table every VMSpace maps alongside its own user half.
func NewRegistry(pages *page.Allocator, kernel *vm.Pgtab) *Registry {
	r := &Registry{
		byPid:   make(map[defs.Pid_t]*Process_t),
		nextPid: 1,
		pages:   pages,
		kernel:  kernel,
	}
	r.framePool = slab.Create("sigframe", frameSize, 8, pages, nil, nil)
	r.threads.Init()
	return r
}

// Create allocates a new, parentless process (used only for pid 1;
// every other process comes from Fork) with a fresh address space.
func (r *Registry) Create() *Process_t {
	r.mu.Lock()
	defer r.mu.Unlock()

	pid := r.nextPid
	r.nextPid++

	space := vmspace.Create(r.pages, r.kernel)
	p := newProcess(pid, space)
	p.Note = r.threads.Spawn(defs.Tid_t(pid))
	r.byPid[pid] = p
	return p
}

// Lookup finds a process by pid, or nil.
func (r *Registry) Lookup(pid defs.Pid_t) *Process_t {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.byPid[pid]
}

// allocPid is called by Fork to install a freshly created child under
// a new pid.
func (r *Registry) allocPid(p *Process_t) {
	r.mu.Lock()
	defer r.mu.Unlock()
	p.Pid = r.nextPid
	r.nextPid++
	p.Note = r.threads.Spawn(defs.Tid_t(p.Pid))
	r.byPid[p.Pid] = p
}

// remove deletes pid from the table and drops its thread note; called
// once a zombie has been reaped by Wait.
func (r *Registry) remove(pid defs.Pid_t) {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.byPid, pid)
	r.threads.Remove(defs.Tid_t(pid))
}

// stageFrame borrows a zeroed signal-frame staging buffer.
func (r *Registry) stageFrame() []byte {
	buf := r.framePool.Get()
	for i := range buf {
		buf[i] = 0
	}
	return buf
}

func (r *Registry) unstageFrame(buf []byte) {
	r.framePool.Put(buf)
}
