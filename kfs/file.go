package kfs

import (
	"time"

	"github.com/mit-pdos/go-kfs/common"
	"github.com/mit-pdos/go-kfs/inode"
	"github.com/mit-pdos/go-kfs/jrnl"
	"github.com/mit-pdos/go-kfs/path"
	"github.com/mit-pdos/go-kfs/util"
)

type OpenMode uint32

const (
	NoCreate OpenMode = iota
	CreateDir
	CreateFile
)

// Open opens the inode at name for pid, creating it first if it is missing
// and mode asks for it. It returns the lowest free descriptor, or -1.
func (e *Engine) Open(pid uint64, name string, readable bool, writable bool, mode OpenMode) int {
	defer e.record(OpOpen, time.Now())
	t := e.table(pid)
	p, ok := path.MkPath(name)
	if !ok {
		return -1
	}

	op := e.begin()
	e.nsLock.Lock()
	inum, ok := e.icache.Get(op, p, false)
	if !ok {
		if mode == NoCreate {
			e.nsLock.Unlock()
			op.Commit()
			return -1
		}
		inum = e.icache.Allocate(op, mode == CreateDir)
		if !e.icache.Set(op, p, inum) {
			e.icache.Deallocate(op, inum)
			e.nsLock.Unlock()
			op.Commit()
			return -1
		}
		util.DPrintf(3, "Open: created %v as %d\n", p, inum)
	}
	e.icache.Reference(inum)
	e.nsLock.Unlock()
	op.Commit()

	t.mu.Lock()
	fd := t.install(0, descriptor{
		typ:      FdInode,
		readable: readable,
		writable: writable,
		inum:     inum,
		pipe:     -1,
		sock:     -1,
	})
	t.mu.Unlock()
	if fd == -1 {
		e.unref(descriptor{typ: FdInode, inum: inum})
	}
	return fd
}

// Read fills data from fd and returns the count read. Inode reads stop at
// the end of the file and pipe reads at the end of the stream.
func (e *Engine) Read(pid uint64, fd int, data []byte) uint64 {
	defer e.record(OpRead, time.Now())
	t := e.table(pid)
	t.mu.Lock()
	d := t.get(fd)
	if d == nil || d.typ == FdUnused || !d.readable {
		t.mu.Unlock()
		return 0
	}
	switch d.typ {
	case FdInode:
		defer t.mu.Unlock()
		op := e.begin()
		n := e.icache.Read(op, d.inum, d.roff, data)
		op.Commit()
		d.roff += n
		return n
	case FdPipe:
		i := d.pipe
		e.pipes.OpenReader(i)
		t.mu.Unlock()
		n := e.pipes.Read(i, data)
		e.pipes.CloseReader(i)
		return n
	case FdInput:
		t.mu.Unlock()
		return e.console.Read(data)
	case FdSocket:
		s := d.sock
		e.sockRef(s)
		t.mu.Unlock()
		n, _ := e.socks.Receive(s, data)
		e.sockUnref(s)
		return n
	}
	t.mu.Unlock()
	return 0
}

// Write writes data to fd and returns the count written. An inode write
// commits as one transaction unless it is larger than the journal, in
// which case a crash can leave a prefix of it behind; a write that would
// pass the largest file size writes nothing.
func (e *Engine) Write(pid uint64, fd int, data []byte) uint64 {
	defer e.record(OpWrite, time.Now())
	t := e.table(pid)
	t.mu.Lock()
	d := t.get(fd)
	if d == nil || d.typ == FdUnused || !d.writable {
		t.mu.Unlock()
		return 0
	}
	switch d.typ {
	case FdInode:
		defer t.mu.Unlock()
		n := e.writeInode(d.inum, d.woff, data)
		d.woff += n
		return n
	case FdPipe:
		i := d.pipe
		e.pipes.OpenWriter(i)
		t.mu.Unlock()
		n := e.pipes.Write(i, data)
		e.pipes.CloseWriter(i)
		return n
	case FdOutput:
		t.mu.Unlock()
		return e.console.Write(data)
	case FdSocket:
		s := d.sock
		e.sockRef(s)
		t.mu.Unlock()
		n := e.socks.Transmit(s, data, zeroAddr)
		e.sockUnref(s)
		return n
	}
	t.mu.Unlock()
	return 0
}

// writeInode writes data at off in one operation when the blocks it
// touches, a gap past the end of the file included, fit in the journal.
// Larger writes are split into operations of at most a journal's worth of
// blocks each, so after a crash only a prefix of such a write may be
// present.
func (e *Engine) writeInode(inum common.Inum, off uint64, data []byte) uint64 {
	n := uint64(len(data))
	if n == 0 || util.SumOverflows(off, n) || off+n > inode.MaxFileSize() {
		return 0
	}
	var done uint64
	for done < n {
		pos := off + done
		// the size only sizes the reservation; WriteBounded decides under
		// the inode lock
		op := e.jrnl.Begin(0)
		sz := e.icache.Status(op, inum).Size
		op.Commit()
		start := util.Min(sz, pos)
		span := inode.SpanBlocks(start, pos+(n-done)-start)
		limit := util.Min(span+inode.WriteOverhead, jrnl.LogBlocks)
		op = e.jrnl.Begin(limit)
		m, ok := e.icache.WriteBounded(op, inum, pos, data[done:], limit)
		op.Commit()
		if !ok {
			break
		}
		done += m
	}
	return done
}

// Link gives the inode open at fd another name. It fails if fd is not an
// inode, the inode is a directory, name already exists, or name's parent
// directory does not.
func (e *Engine) Link(pid uint64, fd int, name string) bool {
	defer e.record(OpLink, time.Now())
	p, ok := path.MkPath(name)
	if !ok {
		return false
	}
	t := e.table(pid)
	t.mu.Lock()
	d := t.get(fd)
	if d == nil || d.typ != FdInode || d.inum.IsNull() {
		t.mu.Unlock()
		return false
	}
	held := *d
	e.ref(held)
	t.mu.Unlock()

	op := e.begin()
	e.nsLock.Lock()
	ok = e.link(op, p, held.inum)
	e.nsLock.Unlock()
	op.Commit()
	e.unref(held)
	return ok
}

// Assumes caller holds e.nsLock
func (e *Engine) link(op *jrnl.Op, p path.Path, inum common.Inum) bool {
	if e.icache.Status(op, inum).Type == inode.TypeDir {
		return false
	}
	if _, exists := e.icache.Get(op, p, false); exists {
		return false
	}
	return e.icache.Set(op, p, inum)
}

// Unlink removes name from its directory and frees the inode it named if
// that was its last link and no descriptor has it open. Unlinking a
// directory drops its whole subtree in the same way. The root cannot be
// unlinked.
//
// The entry is removed in one operation and the freeing that follows takes
// as many more as it needs, so a crash in between leaves unreachable
// inodes behind.
func (e *Engine) Unlink(pid uint64, name string) bool {
	defer e.record(OpUnlink, time.Now())
	e.table(pid)
	p, ok := path.MkPath(name)
	if !ok {
		return false
	}
	op := e.begin()
	e.nsLock.Lock()
	inum, ok := e.icache.Get(op, p, false)
	if ok {
		ok = e.icache.Unset(op, p)
	}
	e.nsLock.Unlock()
	op.Commit()
	if ok {
		e.free(inum)
	}
	return ok
}

// ReadDir lists the directory at name.
func (e *Engine) ReadDir(name string) ([]inode.DirEntry, bool) {
	defer e.record(OpReadDir, time.Now())
	p, ok := path.MkPath(name)
	if !ok {
		return nil, false
	}
	op := e.begin()
	defer op.Commit()
	e.nsLock.Lock()
	defer e.nsLock.Unlock()
	inum, ok := e.icache.Get(op, p, false)
	if !ok {
		return nil, false
	}
	return e.icache.ReadDir(op, inum)
}
