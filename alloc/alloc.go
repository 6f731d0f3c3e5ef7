// Package alloc hands out data blocks from an on-disk bitmap.
//
// Bit i of the bitmap stands for data block base+i; a set bit is in use.
// Bit 0 is never handed out, so block number 0 keeps meaning "no block" in
// pointer tables.
package alloc

import (
	"sync"

	"github.com/boljen/go-bitmap"

	"github.com/mit-pdos/go-kfs/addr"
	"github.com/mit-pdos/go-kfs/common"
	"github.com/mit-pdos/go-kfs/jrnl"
	"github.com/mit-pdos/go-kfs/util"
)

type Alloc struct {
	lock  *sync.Mutex // protects next
	start common.Bnum // first bitmap block
	nbits uint64
	base  common.Bnum
	next  uint64 // first bit to try
}

// MkAlloc manages nbits bits stored from block start on, standing for the
// blocks base, base+1, and so on.
func MkAlloc(start common.Bnum, nbits uint64, base common.Bnum) *Alloc {
	if nbits < 2 {
		panic("MkAlloc")
	}
	return &Alloc{
		lock:  new(sync.Mutex),
		start: start,
		nbits: nbits,
		base:  base,
		next:  1,
	}
}

// NBlocks is the number of bitmap blocks.
func (a *Alloc) NBlocks() uint64 {
	return util.RoundUp(a.nbits, common.NBITBLOCK)
}

func (a *Alloc) hint() uint64 {
	a.lock.Lock()
	n := a.next
	a.lock.Unlock()
	return n
}

func (a *Alloc) setHint(n uint64) {
	a.lock.Lock()
	if n >= a.nbits {
		n = 1
	}
	a.next = n
	a.lock.Unlock()
}

// AllocNum marks a free block used and returns its number, or false when
// every block is in use. The caller decides whether that is fatal.
func (a *Alloc) AllocNum(op *jrnl.Op) (common.Bnum, bool) {
	start := a.hint()
	num := start
	for {
		bit := addr.MkBitAddr(a.start, num)
		b := op.ReadBuf(bit.Blkno)
		bm := bitmap.Bitmap(b.Data)
		// scan the rest of this bitmap block while it is pinned
		for {
			off := int(num % common.NBITBLOCK)
			if num != 0 && !bm.Get(off) {
				bm.Set(off, true)
				b.SetDirty()
				op.Release(b)
				a.setHint(num + 1)
				util.DPrintf(10, "AllocNum: bit %d -> block %d\n", num, a.base+num)
				return a.base + common.Bnum(num), true
			}
			num += 1
			if num == a.nbits {
				num = 0
			}
			if num == start {
				op.Release(b)
				util.DPrintf(1, "AllocNum: bitmap full\n")
				return common.NULLBNUM, false
			}
			if num%common.NBITBLOCK == 0 {
				break
			}
		}
		op.Release(b)
	}
}

// FreeNum clears the bit of block bn.
func (a *Alloc) FreeNum(op *jrnl.Op, bn common.Bnum) {
	if bn <= a.base || bn-a.base >= a.nbits {
		panic("FreeNum")
	}
	num := bn - a.base
	bit := addr.MkBitAddr(a.start, num)
	b := op.ReadBuf(bit.Blkno)
	bm := bitmap.Bitmap(b.Data)
	if !bm.Get(int(bit.Off)) {
		op.Release(b)
		panic("FreeNum: block already free")
	}
	bm.Set(int(bit.Off), false)
	b.SetDirty()
	op.Release(b)
	util.DPrintf(10, "FreeNum: block %d\n", bn)
}

// IsUsed reports whether block bn is allocated.
func (a *Alloc) IsUsed(op *jrnl.Op, bn common.Bnum) bool {
	num := bn - a.base
	bit := addr.MkBitAddr(a.start, num)
	b := op.ReadBuf(bit.Blkno)
	used := bitmap.Bitmap(b.Data).Get(int(bit.Off))
	op.Release(b)
	return used
}

// NumFree counts free blocks. It pins each bitmap block in turn.
func (a *Alloc) NumFree(op *jrnl.Op) uint64 {
	var n uint64
	for i := uint64(0); i < a.NBlocks(); i++ {
		b := op.ReadBuf(a.start + common.Bnum(i))
		for off := uint64(0); off < common.NBITBLOCK; off++ {
			num := i*common.NBITBLOCK + off
			if num == 0 {
				continue
			}
			if num >= a.nbits {
				break
			}
			if !bitmap.Bitmap(b.Data).Get(int(off)) {
				n += 1
			}
		}
		op.Release(b)
	}
	return n
}
