package kfs

import (
	"sync"
	"time"

	"github.com/mit-pdos/go-kfs/common"
	"github.com/mit-pdos/go-kfs/inode"
	"github.com/mit-pdos/go-kfs/util"
)

type FdType uint32

const (
	FdUnused FdType = iota
	FdInode
	FdPipe
	FdInput
	FdOutput
	FdSocket
)

func (t FdType) String() string {
	switch t {
	case FdUnused:
		return "unused"
	case FdInode:
		return "inode"
	case FdPipe:
		return "pipe"
	case FdInput:
		return "input"
	case FdOutput:
		return "output"
	case FdSocket:
		return "socket"
	}
	return "bad"
}

type descriptor struct {
	typ      FdType
	readable bool
	writable bool
	inum     common.Inum
	roff     uint64
	woff     uint64
	pipe     int
	sock     int
}

var unusedFd = descriptor{pipe: -1, sock: -1}

type fdTable struct {
	mu  *sync.Mutex
	fds []descriptor
}

func mkFdTable(n uint64) *fdTable {
	t := &fdTable{mu: new(sync.Mutex), fds: make([]descriptor, n)}
	for i := range t.fds {
		t.fds[i] = unusedFd
	}
	return t
}

// get returns slot fd, or nil if fd is out of range.
//
// Assumes caller holds t.mu
func (t *fdTable) get(fd int) *descriptor {
	if fd < 0 || fd >= len(t.fds) {
		return nil
	}
	return &t.fds[fd]
}

// install puts d in the first free slot at or above low.
//
// Assumes caller holds t.mu
func (t *fdTable) install(low int, d descriptor) int {
	for i := low; i < len(t.fds); i++ {
		if t.fds[i].typ == FdUnused {
			t.fds[i] = d
			return i
		}
	}
	return -1
}

func (e *Engine) table(pid uint64) *fdTable {
	if pid >= uint64(len(e.procs)) {
		panic("kfs: bad pid")
	}
	return e.procs[pid]
}

// ref takes another reference on whatever d names.
func (e *Engine) ref(d descriptor) {
	switch d.typ {
	case FdInode:
		e.icache.Reference(d.inum)
	case FdPipe:
		if d.readable {
			e.pipes.OpenReader(d.pipe)
		}
		if d.writable {
			e.pipes.OpenWriter(d.pipe)
		}
	case FdSocket:
		e.sockRef(d.sock)
	}
}

// unref drops the reference d holds, freeing an inode that has lost its
// last link and its last holder.
func (e *Engine) unref(d descriptor) {
	switch d.typ {
	case FdInode:
		e.icache.Dereference(d.inum)
		e.free(d.inum)
	case FdPipe:
		if d.readable {
			e.pipes.CloseReader(d.pipe)
		}
		if d.writable {
			e.pipes.CloseWriter(d.pipe)
		}
	case FdSocket:
		e.sockUnref(d.sock)
	}
}

// Initialize gives process pid a fresh table with the console on
// descriptors 0 (input) and 1 (output). Descriptors still open in pid's
// table are closed.
func (e *Engine) Initialize(pid uint64) {
	e.Remove(pid)
	t := e.table(pid)
	t.mu.Lock()
	t.fds[0] = descriptor{typ: FdInput, readable: true, pipe: -1, sock: -1}
	t.fds[1] = descriptor{typ: FdOutput, writable: true, pipe: -1, sock: -1}
	t.mu.Unlock()
}

// Remove closes every descriptor of pid, as when the process exits.
func (e *Engine) Remove(pid uint64) {
	defer e.record(OpRemove, time.Now())
	t := e.table(pid)
	t.mu.Lock()
	old := t.fds
	t.fds = make([]descriptor, len(old))
	for i := range t.fds {
		t.fds[i] = unusedFd
	}
	t.mu.Unlock()
	for _, d := range old {
		e.unref(d)
	}
}

// Clone copies every open descriptor of process from into the same slot
// of process to, taking a reference for each. Descriptors open in to's
// table are replaced and closed.
func (e *Engine) Clone(from uint64, to uint64) {
	defer e.record(OpClone, time.Now())
	if from == to {
		return
	}
	ft := e.table(from)
	tt := e.table(to)
	if from < to {
		ft.mu.Lock()
		tt.mu.Lock()
	} else {
		tt.mu.Lock()
		ft.mu.Lock()
	}
	var replaced []descriptor
	for i, d := range ft.fds {
		if d.typ == FdUnused {
			continue
		}
		e.ref(d)
		replaced = append(replaced, tt.fds[i])
		tt.fds[i] = d
	}
	ft.mu.Unlock()
	tt.mu.Unlock()
	for _, d := range replaced {
		e.unref(d)
	}
	util.DPrintf(3, "Clone %d -> %d\n", from, to)
}

// Copy duplicates fd into the lowest free slot of pid's table and returns
// it, or -1 if fd is not open or the table is full.
func (e *Engine) Copy(pid uint64, fd int) int {
	defer e.record(OpCopy, time.Now())
	t := e.table(pid)
	t.mu.Lock()
	defer t.mu.Unlock()
	d := t.get(fd)
	if d == nil || d.typ == FdUnused {
		return -1
	}
	nfd := t.install(0, *d)
	if nfd == -1 {
		return -1
	}
	e.ref(*d)
	return nfd
}

// Close releases fd. Closing an unused descriptor does nothing.
func (e *Engine) Close(pid uint64, fd int) {
	defer e.record(OpClose, time.Now())
	t := e.table(pid)
	t.mu.Lock()
	d := t.get(fd)
	if d == nil {
		t.mu.Unlock()
		return
	}
	old := *d
	*d = unusedFd
	t.mu.Unlock()
	e.unref(old)
}

// Seek sets the read offset, the write offset, or both, of an inode
// descriptor. Other descriptors are left alone.
func (e *Engine) Seek(pid uint64, fd int, read bool, roff uint64, write bool, woff uint64) {
	defer e.record(OpSeek, time.Now())
	t := e.table(pid)
	t.mu.Lock()
	defer t.mu.Unlock()
	d := t.get(fd)
	if d == nil || d.typ != FdInode {
		return
	}
	if read {
		d.roff = roff
	}
	if write {
		d.woff = woff
	}
}

type Status struct {
	Type      FdType
	InodeType inode.Type // TypeUnused unless Type is FdInode
	Size      uint64
	Readable  bool
	Writable  bool
}

func (e *Engine) Status(pid uint64, fd int) Status {
	defer e.record(OpStatus, time.Now())
	t := e.table(pid)
	t.mu.Lock()
	defer t.mu.Unlock()
	d := t.get(fd)
	if d == nil {
		return Status{}
	}
	st := Status{Type: d.typ, Readable: d.readable, Writable: d.writable}
	if d.typ == FdInode {
		op := e.begin()
		is := e.icache.Status(op, d.inum)
		op.Commit()
		st.InodeType = is.Type
		st.Size = is.Size
	}
	return st
}
