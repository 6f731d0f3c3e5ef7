package inode

import (
	"math"

	"github.com/mit-pdos/go-kfs/common"
	"github.com/mit-pdos/go-kfs/disk"
	"github.com/mit-pdos/go-kfs/jrnl"
	"github.com/mit-pdos/go-kfs/util"
)

// allocInum claims the first unused inode from 2 up.
func (c *Cache) allocInum(op *jrnl.Op, t Type) (common.Inum, bool) {
	for i := uint64(2); i < c.super.NInodes; i++ {
		inum := common.Inum(i)
		r := c.Acquire(inum)
		r.Lock()
		ino := r.readCached(op)
		if ino.Type == TypeUnused {
			r.writeCached(op, Inode{Type: t})
			r.Unlock()
			r.Release()
			util.DPrintf(5, "Allocate %v: %d\n", t, inum)
			return inum, true
		}
		r.Unlock()
		r.Release()
	}
	return common.NULLINUM, false
}

// Allocate claims a free inode as a directory or a file, with no links and
// no data. Running out of inodes is fatal.
func (c *Cache) Allocate(op *jrnl.Op, isDir bool) common.Inum {
	t := TypeFile
	if isDir {
		t = TypeDir
	}
	inum, ok := c.allocInum(op, t)
	if !ok {
		panic("inode.Allocate: out of inodes")
	}
	return inum
}

// FreeStepBlocks bounds the blocks one unit of FreeStep's work dirties: a
// child inode, the inode being freed, a pointer table and a bitmap block.
const FreeStepBlocks uint64 = 4

// FreeStep does a bounded part of freeing inode inum, which must have no
// links and no holder but the caller. Directory entries are detached from
// the end, each child losing a link and being returned for the caller to
// free in turn; then data blocks are freed from the end; then the inode is
// marked unused and its pointer tables go. Work stops before op has dirtied
// more than limit blocks. FreeStep returns done once there is nothing left
// to do, including when inum is the root, is still linked or held, or was
// already freed.
func (c *Cache) FreeStep(op *jrnl.Op, inum common.Inum, limit uint64) ([]common.Inum, bool) {
	if inum == common.ROOTINUM {
		return nil, true
	}
	r := c.Acquire(inum)
	r.Lock()
	defer r.Release()
	defer r.Unlock()
	ino := r.readCached(op)
	if ino.Nlink != 0 || r.refs() != 1 || ino.Type == TypeUnused {
		return nil, true
	}
	room := func() bool {
		return op.NDirty()+FreeStepBlocks <= limit
	}
	if ino.Type == TypeDir && nentries(ino) > 0 {
		var children []common.Inum
		for nentries(ino) > 0 && room() {
			de := c.readDirEnt(op, r, nentries(ino)-1)
			if !de.inum.IsNull() {
				c.adjustLinks(op, de.inum, -1)
				children = append(children, de.inum)
			}
			c.resize(op, r, ino.Size-common.DIRENTSZ)
			ino = r.readCached(op)
		}
		return children, false
	}
	if ino.Size > 0 {
		for ino.Size > 0 && room() {
			c.resize(op, r, (nblocks(ino.Size)-1)*disk.BlockSize)
			ino = r.readCached(op)
		}
		return nil, false
	}
	util.DPrintf(5, "Deallocate %d: %v\n", inum, ino)
	ino.Type = TypeUnused
	r.writeCached(op, ino)
	c.freePointerTables(op, r)
	return nil, true
}

// Deallocate frees inode inum, and any directory subtree below it, inside
// op. Only for small inodes, such as one just allocated: op must have room
// for all of it. See FreeStep for large trees.
func (c *Cache) Deallocate(op *jrnl.Op, inum common.Inum) {
	work := []common.Inum{inum}
	for len(work) > 0 {
		inum := work[len(work)-1]
		children, done := c.FreeStep(op, inum, math.MaxUint64)
		if done {
			work = work[:len(work)-1]
		}
		work = append(work, children...)
	}
}

// InitRoot writes an empty root directory. Used when formatting.
func (c *Cache) InitRoot(op *jrnl.Op) {
	r := c.Acquire(common.ROOTINUM)
	r.Lock()
	r.readCached(op)
	r.writeCached(op, Inode{Type: TypeDir, Nlink: 1})
	r.Unlock()
	r.Release()
}
