package inode

import (
	"github.com/mit-pdos/go-kfs/common"
	"github.com/mit-pdos/go-kfs/disk"
	"github.com/mit-pdos/go-kfs/jrnl"
	"github.com/mit-pdos/go-kfs/util"
)

// File block i lives in one of four tiers: the direct pointers, or one,
// two, or three levels of pointer tables below Single, Double and Triple.
const (
	singleStart uint64 = common.NDIRECT
	doubleStart uint64 = singleStart + common.NPTRBLK
	tripleStart uint64 = doubleStart + common.NPTRBLK*common.NPTRBLK
	tripleEnd   uint64 = tripleStart + common.NPTRBLK*common.NPTRBLK*common.NPTRBLK
)

// MaxFileSize is the largest size the pointer tiers can address.
func MaxFileSize() uint64 {
	return tripleEnd * disk.BlockSize
}

// tierOf returns the tier of file block bi and its index in each level of
// tables, outermost first. For the direct tier the single index is into
// Direct.
func tierOf(bi uint64) (uint64, []uint64) {
	const P = common.NPTRBLK
	switch {
	case bi < singleStart:
		return 0, []uint64{bi}
	case bi < doubleStart:
		return 1, []uint64{bi - singleStart}
	case bi < tripleStart:
		n := bi - doubleStart
		return 2, []uint64{n / P, n % P}
	case bi < tripleEnd:
		n := bi - tripleStart
		return 3, []uint64{n / (P * P), (n / P) % P, n % P}
	}
	panic("inode.tierOf")
}

func (ino *Inode) root(tier uint64) common.Bnum {
	switch tier {
	case 1:
		return ino.Single
	case 2:
		return ino.Double
	case 3:
		return ino.Triple
	}
	panic("root")
}

func (ino *Inode) setRoot(tier uint64, bn common.Bnum) {
	switch tier {
	case 1:
		ino.Single = bn
	case 2:
		ino.Double = bn
	case 3:
		ino.Triple = bn
	default:
		panic("setRoot")
	}
}

// getBlock returns the disk block holding file block bi, 0 if none. Fatal
// if a table on the way is missing: callers only look up blocks below the
// file's size, which resize has populated.
func (c *Cache) getBlock(op *jrnl.Op, ino *Inode, bi uint64) common.Bnum {
	tier, idx := tierOf(bi)
	if tier == 0 {
		return ino.Direct[idx[0]]
	}
	bn := ino.root(tier)
	for _, i := range idx {
		if bn == common.NULLBNUM {
			panic("inode.getBlock")
		}
		b := op.ReadBuf(bn)
		bn = b.BnumGet(i)
		op.Release(b)
	}
	return bn
}

// allocBlock allocates and zeroes a pointer table or data block.
func (c *Cache) allocBlock(op *jrnl.Op) common.Bnum {
	bn, ok := c.balloc.AllocNum(op)
	if !ok {
		panic("inode.allocBlock: disk full")
	}
	op.Release(op.ZeroBuf(bn))
	return bn
}

// setBlock points file block bi at bn, allocating missing tables on the
// way. Only ino is modified in memory; the caller writes it back. Clearing
// a pointer never allocates.
func (c *Cache) setBlock(op *jrnl.Op, ino *Inode, bi uint64, bn common.Bnum) {
	tier, idx := tierOf(bi)
	if tier == 0 {
		ino.Direct[idx[0]] = bn
		return
	}
	tbl := ino.root(tier)
	if tbl == common.NULLBNUM {
		if bn == common.NULLBNUM {
			return
		}
		tbl = c.allocBlock(op)
		util.DPrintf(10, "setBlock: tier %d table %d\n", tier, tbl)
		ino.setRoot(tier, tbl)
	}
	last := len(idx) - 1
	for level, i := range idx {
		b := op.ReadBuf(tbl)
		if level == last {
			if b.BnumGet(i) != bn {
				b.BnumPut(i, bn)
			}
			op.Release(b)
			return
		}
		next := b.BnumGet(i)
		if next == common.NULLBNUM {
			if bn == common.NULLBNUM {
				op.Release(b)
				return
			}
			next = c.allocBlock(op)
			util.DPrintf(10, "setBlock: tier %d level %d table %d\n", tier, level+1, next)
			b.BnumPut(i, next)
		}
		op.Release(b)
		tbl = next
	}
}
