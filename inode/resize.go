package inode

import (
	"github.com/mit-pdos/go-kfs/common"
	"github.com/mit-pdos/go-kfs/disk"
	"github.com/mit-pdos/go-kfs/jrnl"
	"github.com/mit-pdos/go-kfs/util"
)

func nblocks(size uint64) uint64 {
	return util.RoundUp(size, disk.BlockSize)
}

// resize sets the inode's size to sz. Growing allocates (zeroed) data
// blocks for the new block range one at a time; shrinking frees the blocks
// past the new end and clears their pointers. Pointer tables stay until
// the inode is deallocated.
//
// Assumes caller holds the inode lock
func (c *Cache) resize(op *jrnl.Op, r *Ref, sz uint64) {
	ino := r.readCached(op)
	oldn := nblocks(ino.Size)
	newn := nblocks(sz)
	if newn > tripleEnd {
		panic("inode.resize: too big")
	}
	util.DPrintf(5, "resize %d: %d -> %d\n", r.Inum, ino.Size, sz)
	for bi := newn; bi < oldn; bi++ {
		bn := c.getBlock(op, &ino, bi)
		c.setBlock(op, &ino, bi, common.NULLBNUM)
		if bn != common.NULLBNUM {
			c.balloc.FreeNum(op, bn)
		}
	}
	for bi := oldn; bi < newn; bi++ {
		bn := c.allocBlock(op)
		c.setBlock(op, &ino, bi, bn)
	}
	ino.Size = sz
	r.writeCached(op, ino)
}

// freeTable frees table bn and, for level > 0, the tables below it. The
// data pointers at the bottom must already be cleared.
func (c *Cache) freeTable(op *jrnl.Op, bn common.Bnum, level uint64) {
	b := op.ReadBuf(bn)
	if level == 0 {
		if !b.IsZero() {
			op.Release(b)
			panic("inode.freePointerTables: table not empty")
		}
	} else {
		for i := uint64(0); i < common.NPTRBLK; i++ {
			child := b.BnumGet(i)
			if child != common.NULLBNUM {
				c.freeTable(op, child, level-1)
			}
		}
	}
	op.Release(b)
	c.balloc.FreeNum(op, bn)
}

// freePointerTables frees every table of an inode whose data blocks are
// all gone and clears the root pointers.
//
// Assumes caller holds the inode lock
func (c *Cache) freePointerTables(op *jrnl.Op, r *Ref) {
	ino := r.readCached(op)
	for _, bn := range ino.Direct {
		if bn != common.NULLBNUM {
			panic("inode.freePointerTables")
		}
	}
	changed := false
	for tier := uint64(1); tier <= 3; tier++ {
		root := ino.root(tier)
		if root == common.NULLBNUM {
			continue
		}
		c.freeTable(op, root, tier-1)
		ino.setRoot(tier, common.NULLBNUM)
		changed = true
	}
	if changed {
		r.writeCached(op, ino)
	}
}
