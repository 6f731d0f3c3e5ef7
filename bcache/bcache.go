// Package bcache is a fixed-size cache of disk blocks on top of the
// write-ahead log.
//
// A block is pinned between Acquire and Release; while pinned it is held
// exclusively by one caller and cannot be evicted, so there is at most one
// in-memory copy of any block. Misses read through the log (the open group's
// copy, then the installed block). Dirty releases hand a copy of the block
// to the log; the cache itself never writes to disk.
package bcache

import (
	"sync"

	"github.com/boljen/go-bitmap"

	"github.com/mit-pdos/go-kfs/buf"
	"github.com/mit-pdos/go-kfs/common"
	"github.com/mit-pdos/go-kfs/disk"
	"github.com/mit-pdos/go-kfs/lockmap"
	"github.com/mit-pdos/go-kfs/util"
	"github.com/mit-pdos/go-kfs/wal"
)

const none = -1

type slot struct {
	blkno common.Bnum // NULLBNUM: free
	data  disk.Block
	pins  uint64
	prev  int // towards the most recently used end
	next  int
}

type Cache struct {
	mu     *sync.Mutex
	log    *wal.Walog
	locks  *lockmap.LockMap
	slots  []slot
	index  map[common.Bnum]int
	loaded bitmap.Bitmap // slot holds the block's contents
	mru    int
	lru    int

	hits   uint64
	misses uint64
}

func MkCache(log *wal.Walog, sz uint64) *Cache {
	c := &Cache{
		mu:     new(sync.Mutex),
		log:    log,
		locks:  lockmap.MkLockMap(),
		slots:  make([]slot, sz),
		index:  make(map[common.Bnum]int),
		loaded: bitmap.New(int(sz)),
		mru:    0,
		lru:    int(sz) - 1,
	}
	for i := range c.slots {
		c.slots[i].data = make(disk.Block, disk.BlockSize)
		c.slots[i].prev = i - 1
		c.slots[i].next = i + 1
	}
	c.slots[sz-1].next = none
	return c
}

// unlink removes slot i from the LRU list.
//
// Assumes caller holds mu
func (c *Cache) unlink(i int) {
	s := &c.slots[i]
	if s.prev == none {
		c.mru = s.next
	} else {
		c.slots[s.prev].next = s.next
	}
	if s.next == none {
		c.lru = s.prev
	} else {
		c.slots[s.next].prev = s.prev
	}
}

// touch moves slot i to the most recently used end.
//
// Assumes caller holds mu
func (c *Cache) touch(i int) {
	if c.mru == i {
		return
	}
	c.unlink(i)
	s := &c.slots[i]
	s.prev = none
	s.next = c.mru
	c.slots[c.mru].prev = i
	c.mru = i
}

// victim finds a free slot, or else the least recently used unpinned one.
//
// Assumes caller holds mu
func (c *Cache) victim() int {
	for i := c.lru; i != none; i = c.slots[i].prev {
		if c.slots[i].blkno == common.NULLBNUM {
			return i
		}
	}
	for i := c.lru; i != none; i = c.slots[i].prev {
		if c.slots[i].pins == 0 {
			return i
		}
	}
	return none
}

// Acquire pins block bn and returns it, waiting while another caller has it
// pinned.
func (c *Cache) Acquire(bn common.Bnum) *buf.Buf {
	if bn == common.NULLBNUM {
		panic("bcache.Acquire")
	}
	c.mu.Lock()
	i, ok := c.index[bn]
	if ok {
		c.hits += 1
	} else {
		c.misses += 1
		i = c.victim()
		if i == none {
			c.mu.Unlock()
			panic("bcache.Acquire: all blocks pinned")
		}
		s := &c.slots[i]
		if s.blkno != common.NULLBNUM {
			util.DPrintf(10, "bcache: evict %d from slot %d\n", s.blkno, i)
			delete(c.index, s.blkno)
		}
		s.blkno = bn
		c.index[bn] = i
		c.loaded.Set(i, false)
	}
	c.slots[i].pins += 1
	c.mu.Unlock()

	c.locks.Acquire(bn)

	c.mu.Lock()
	s := &c.slots[i]
	if !c.loaded.Get(i) {
		c.mu.Unlock()
		// the block lock keeps other users of bn out while we fill the slot
		copy(s.data, c.log.Read(bn))
		c.mu.Lock()
		c.loaded.Set(i, true)
	}
	c.mu.Unlock()
	return buf.MkBuf(bn, s.data)
}

// Release unpins b. A dirty block's contents go to the log's open group.
func (c *Cache) Release(b *buf.Buf, dirty bool) {
	if dirty {
		c.log.Write(b.Blkno, b.Data)
	}
	c.mu.Lock()
	i, ok := c.index[b.Blkno]
	if !ok || c.slots[i].pins == 0 {
		c.mu.Unlock()
		panic("bcache.Release")
	}
	c.mu.Unlock()

	c.locks.Release(b.Blkno)

	c.mu.Lock()
	c.slots[i].pins -= 1
	c.touch(i)
	c.mu.Unlock()
}

// Stats reports cache hits and misses.
func (c *Cache) Stats() (uint64, uint64) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.hits, c.misses
}
