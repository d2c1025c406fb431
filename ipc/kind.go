package ipc

// Kind identifies the operation a Message carries, mirroring the
// IPC_MSG_* enum of sys/ipc.h in the source this kernel was distilled
// from. Path operations name a directory/inode pair resolved by the
// server; fd operations act on the Connection's own open instance.
type Kind int

const (
	KindAccess Kind = iota
	KindChdir
	KindChmod
	KindChown
	KindCreate
	KindLink
	KindLookup
	KindStat
	KindReadlink
	KindRmdir
	KindSymlink
	KindUnlink
	KindUtime

	KindClose
	KindFchmod
	KindFchown
	KindFstat
	KindFsync
	KindIoctl
	KindOpen
	KindRead
	KindReaddir
	KindSeek
	KindSelect
	KindTrunc
	KindWrite
)

//go:generate stringer -type=Kind

// Message is the fixed-size request header every Connection send
// carries as its first iovec segment, the Go analogue of struct
// IpcMessage. Per-kind arguments that don't fit a single machine word
// (names, paths) travel as additional send-iovec segments rather than
// a union, since Go has no union type.
type Message struct {
	Kind Kind

	Ino    uint64
	DirIno uint64
	Mode   uint32
	UID    uint32
	GID    uint32
	Flags  int
	Offset int64
	Whence int
	NByte  int
	Length int64

	Request int
	Arg     int
}
