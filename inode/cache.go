package inode

import (
	"sync"

	"github.com/mit-pdos/go-kfs/alloc"
	"github.com/mit-pdos/go-kfs/common"
	"github.com/mit-pdos/go-kfs/jrnl"
	"github.com/mit-pdos/go-kfs/super"
	"github.com/mit-pdos/go-kfs/util"
)

// A slot caches one inode. Its identity (inum, ref) is protected by the
// cache's mu; its contents (loaded, val) by the slot's own mu, which is
// the inode lock.
type slot struct {
	inum   common.Inum // NULLINUM: never used
	ref    uint64
	mu     *sync.Mutex
	loaded bool
	val    Inode
}

// Cache is a fixed-size table of inodes. A slot whose reference count is
// zero may be taken over by another inode number, which discards its
// cached copy.
type Cache struct {
	mu     *sync.Mutex
	slots  []slot
	super  *super.FsSuper
	balloc *alloc.Alloc
}

func MkCache(fs *super.FsSuper, balloc *alloc.Alloc, sz uint64) *Cache {
	c := &Cache{
		mu:     new(sync.Mutex),
		slots:  make([]slot, sz),
		super:  fs,
		balloc: balloc,
	}
	for i := range c.slots {
		c.slots[i].mu = new(sync.Mutex)
	}
	return c
}

// Ref is a counted reference to a cached inode, returned by Acquire.
// Release it exactly once.
type Ref struct {
	c        *Cache
	s        *slot
	Inum     common.Inum
	released bool
}

// Acquire pins the slot of inode inum, taking over an unused slot if the
// inode is not cached. Fatal if every slot is referenced.
func (c *Cache) Acquire(inum common.Inum) *Ref {
	if inum.IsNull() || uint64(inum) >= c.super.NInodes {
		panic("inode.Acquire")
	}
	c.mu.Lock()
	var s *slot
	for i := range c.slots {
		if c.slots[i].inum == inum {
			s = &c.slots[i]
			break
		}
	}
	if s == nil {
		for i := range c.slots {
			if c.slots[i].inum.IsNull() {
				s = &c.slots[i]
				break
			}
		}
	}
	if s == nil {
		for i := range c.slots {
			if c.slots[i].ref == 0 {
				s = &c.slots[i]
				break
			}
		}
	}
	if s == nil {
		c.mu.Unlock()
		panic("inode.Acquire: cache full")
	}
	if s.inum != inum {
		util.DPrintf(10, "inode.Acquire: slot %d -> %d\n", s.inum, inum)
		s.inum = inum
		s.loaded = false
	}
	s.ref += 1
	c.mu.Unlock()
	return &Ref{c: c, s: s, Inum: inum}
}

func (r *Ref) Release() {
	if r.released {
		panic("inode.Release: released twice")
	}
	r.released = true
	r.c.mu.Lock()
	if r.s.ref == 0 {
		r.c.mu.Unlock()
		panic("inode.Release")
	}
	r.s.ref -= 1
	r.c.mu.Unlock()
}

func (r *Ref) Lock() {
	r.s.mu.Lock()
}

func (r *Ref) Unlock() {
	r.s.mu.Unlock()
}

// refs is the slot's reference count, this Ref included.
func (r *Ref) refs() uint64 {
	r.c.mu.Lock()
	defer r.c.mu.Unlock()
	return r.s.ref
}

func (r *Ref) check(op string) {
	r.c.mu.Lock()
	ok := !r.released && r.s.ref > 0 && r.s.inum == r.Inum
	r.c.mu.Unlock()
	if !ok {
		panic(op)
	}
}

// readCached returns the inode, loading it on first use.
//
// Assumes caller holds the inode lock
func (r *Ref) readCached(op *jrnl.Op) Inode {
	r.check("inode.readCached")
	if !r.s.loaded {
		a := r.c.super.Inum2Addr(r.Inum)
		b := op.ReadBuf(a.Blkno)
		r.s.val = Decode(b, a.Off)
		op.Release(b)
		r.s.loaded = true
		util.DPrintf(10, "readCached %d: %v\n", r.Inum, r.s.val)
	}
	return r.s.val
}

// writeCached stores ino in the cache and in the inode table.
//
// Assumes caller holds the inode lock
func (r *Ref) writeCached(op *jrnl.Op, ino Inode) {
	r.check("inode.writeCached")
	if !r.s.loaded {
		panic("inode.writeCached: not loaded")
	}
	a := r.c.super.Inum2Addr(r.Inum)
	b := op.ReadBuf(a.Blkno)
	b.Install(a.Off, ino.Encode())
	op.Release(b)
	r.s.val = ino
}

// Reference records a long-lived holder of inum, such as a descriptor. It
// keeps the inode cached and blocks its deallocation.
func (c *Cache) Reference(inum common.Inum) {
	r := c.Acquire(inum)
	c.mu.Lock()
	r.s.ref += 1
	c.mu.Unlock()
	r.Release()
}

// Dereference drops a reference taken by Reference.
func (c *Cache) Dereference(inum common.Inum) {
	r := c.Acquire(inum)
	c.mu.Lock()
	if r.s.ref < 2 {
		c.mu.Unlock()
		panic("inode.Dereference")
	}
	r.s.ref -= 1
	c.mu.Unlock()
	r.Release()
}

// Refs reports how many references inum's slot holds; 0 if not cached.
func (c *Cache) Refs(inum common.Inum) uint64 {
	c.mu.Lock()
	defer c.mu.Unlock()
	for i := range c.slots {
		if c.slots[i].inum == inum {
			return c.slots[i].ref
		}
	}
	return 0
}
