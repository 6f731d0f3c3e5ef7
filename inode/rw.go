package inode

import (
	"github.com/mit-pdos/go-kfs/common"
	"github.com/mit-pdos/go-kfs/disk"
	"github.com/mit-pdos/go-kfs/jrnl"
	"github.com/mit-pdos/go-kfs/util"
)

// readAt copies file bytes starting at off into data, up to the file
// size, and returns the count.
//
// Assumes caller holds the inode lock
func (c *Cache) readAt(op *jrnl.Op, r *Ref, off uint64, data []byte) uint64 {
	ino := r.readCached(op)
	if off >= ino.Size {
		return 0
	}
	n := util.Min(uint64(len(data)), ino.Size-off)
	var done uint64
	for done < n {
		bi := (off + done) / disk.BlockSize
		boff := (off + done) % disk.BlockSize
		cnt := util.Min(n-done, disk.BlockSize-boff)
		bn := c.getBlock(op, &ino, bi)
		if bn == common.NULLBNUM {
			panic("inode.Read: hole")
		}
		b := op.ReadBuf(bn)
		copy(data[done:done+cnt], b.Data[boff:boff+cnt])
		op.Release(b)
		done += cnt
	}
	return n
}

// writeAt stores data at off, growing the file first if needed.
//
// Assumes caller holds the inode lock
func (c *Cache) writeAt(op *jrnl.Op, r *Ref, off uint64, data []byte) uint64 {
	n := uint64(len(data))
	if util.SumOverflows(off, n) || off+n > MaxFileSize() {
		return 0
	}
	ino := r.readCached(op)
	if off+n > ino.Size {
		c.resize(op, r, off+n)
		ino = r.readCached(op)
	}
	var done uint64
	for done < n {
		bi := (off + done) / disk.BlockSize
		boff := (off + done) % disk.BlockSize
		cnt := util.Min(n-done, disk.BlockSize-boff)
		bn := c.getBlock(op, &ino, bi)
		b := op.ReadBuf(bn)
		copy(b.Data[boff:boff+cnt], data[done:done+cnt])
		b.SetDirty()
		op.Release(b)
		done += cnt
	}
	return n
}

// Read reads from inode inum at byte offset off.
func (c *Cache) Read(op *jrnl.Op, inum common.Inum, off uint64, data []byte) uint64 {
	r := c.Acquire(inum)
	r.Lock()
	n := c.readAt(op, r, off, data)
	r.Unlock()
	r.Release()
	return n
}

// Write writes data to inode inum at byte offset off and returns the
// number of bytes written: all of them, or 0 if the write would pass the
// largest file size.
func (c *Cache) Write(op *jrnl.Op, inum common.Inum, off uint64, data []byte) uint64 {
	r := c.Acquire(inum)
	r.Lock()
	n := c.writeAt(op, r, off, data)
	r.Unlock()
	r.Release()
	return n
}

func (c *Cache) Status(op *jrnl.Op, inum common.Inum) Status {
	r := c.Acquire(inum)
	r.Lock()
	ino := r.readCached(op)
	r.Unlock()
	r.Release()
	return Status{Type: ino.Type, Size: ino.Size}
}

// WriteStepBlocks bounds the blocks one step of WriteBounded dirties: a
// data block, up to three new pointer tables, a bitmap block for each of
// those four allocations, and the inode.
const WriteStepBlocks uint64 = 9

// WriteOverhead is how many blocks beyond the data blocks it spans a write
// may need for its reservation to let WriteBounded finish it in one call.
const WriteOverhead uint64 = 2*WriteStepBlocks - 2

// WriteBounded writes data to inode inum at off, stopping before op has
// dirtied more than limit blocks. If the file ends before off, the gap is
// filled with zeroes first. Both the gap and the write proceed a block at
// a time under the inode lock, so the decision about where the file ends
// and the writes it leads to cannot interleave with another writer.
// WriteBounded returns how many bytes of data it wrote, which is 0 if the
// gap is not filled yet; call again in a new operation for the rest. It
// returns false if the write would pass the largest file size.
func (c *Cache) WriteBounded(op *jrnl.Op, inum common.Inum, off uint64, data []byte, limit uint64) (uint64, bool) {
	n := uint64(len(data))
	if util.SumOverflows(off, n) || off+n > MaxFileSize() {
		return 0, false
	}
	r := c.Acquire(inum)
	r.Lock()
	defer r.Release()
	defer r.Unlock()
	room := func() bool {
		return op.NDirty()+WriteStepBlocks <= limit
	}
	ino := r.readCached(op)
	for ino.Size < off {
		if !room() {
			return 0, true
		}
		end := util.Min(off, (ino.Size/disk.BlockSize+1)*disk.BlockSize)
		c.writeAt(op, r, ino.Size, make([]byte, end-ino.Size))
		ino = r.readCached(op)
	}
	var done uint64
	for done < n && room() {
		pos := off + done
		cnt := util.Min(n-done, disk.BlockSize-pos%disk.BlockSize)
		c.writeAt(op, r, pos, data[done:done+cnt])
		done += cnt
	}
	return done, true
}

// SpanBlocks is the number of file blocks that bytes [off, off+n) touch.
func SpanBlocks(off uint64, n uint64) uint64 {
	if n == 0 {
		return 0
	}
	return (off+n-1)/disk.BlockSize - off/disk.BlockSize + 1
}
