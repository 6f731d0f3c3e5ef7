// buf holds the in-memory copy of one disk block while it is pinned.
package buf

import (
	"github.com/tchajed/goose/machine"

	"github.com/mit-pdos/go-kfs/common"
	"github.com/mit-pdos/go-kfs/disk"
	"github.com/mit-pdos/go-kfs/util"
)

// A Buf is a pinned disk block (an inode block, a bitmap block, a pointer
// table, or file data). Data aliases the block cache's copy, so it must not
// be used after the block is released.
type Buf struct {
	Blkno common.Bnum
	Data  disk.Block
	dirty bool // has this block been written to?
}

func MkBuf(blkno common.Bnum, data disk.Block) *Buf {
	b := &Buf{
		Blkno: blkno,
		Data:  data,
		dirty: false,
	}
	return b
}

func (buf *Buf) IsDirty() bool {
	return buf.dirty
}

func (buf *Buf) SetDirty() {
	buf.dirty = true
}

func (buf *Buf) ClearDirty() {
	buf.dirty = false
}

// Record returns the sz bytes at off; writes through the slice must be
// followed by SetDirty.
func (buf *Buf) Record(off uint64, sz uint64) []byte {
	return buf.Data[off : off+sz]
}

// Install copies a sub-block record (an inode, a directory entry) into the
// block at byte offset off.
func (buf *Buf) Install(off uint64, rec []byte) {
	util.DPrintf(10, "%d: install %d bytes at %d\n", buf.Blkno, len(rec), off)
	if off+uint64(len(rec)) > disk.BlockSize {
		panic("Install")
	}
	copy(buf.Data[off:], rec)
	buf.SetDirty()
}

// Uint32Get reads entry i of a pointer table.
func (buf *Buf) Uint32Get(i uint64) uint32 {
	return machine.UInt32Get(buf.Data[i*4 : (i+1)*4])
}

func (buf *Buf) Uint32Put(i uint64, v uint32) {
	machine.UInt32Put(buf.Data[i*4:(i+1)*4], v)
	buf.SetDirty()
}

func (buf *Buf) BnumGet(i uint64) common.Bnum {
	return common.Bnum(buf.Uint32Get(i))
}

func (buf *Buf) BnumPut(i uint64, v common.Bnum) {
	buf.Uint32Put(i, uint32(v))
}

func (buf *Buf) Zero() {
	for i := range buf.Data {
		buf.Data[i] = 0
	}
	buf.SetDirty()
}

func (buf *Buf) IsZero() bool {
	for _, b := range buf.Data {
		if b != 0 {
			return false
		}
	}
	return true
}
