package addr

import (
	"github.com/mit-pdos/go-kfs/common"
	"github.com/mit-pdos/go-kfs/disk"
)

// Addr identifies the start of a fixed-size record on disk.
//
// Blkno is the block number containing the record, and Off is its byte
// offset within the block. The size of the record is determined by the
// context in which Addr is used (inode record, directory entry).
type Addr struct {
	Blkno common.Bnum
	Off   uint64 // offset in bytes
}

func (a Addr) Flatid() uint64 {
	return uint64(a.Blkno)*disk.BlockSize + a.Off
}

func MkAddr(blkno common.Bnum, off uint64) Addr {
	return Addr{Blkno: blkno, Off: off}
}

// MkRecordAddr locates record n of size sz in a region of consecutive
// blocks starting at start. Records never straddle blocks.
func MkRecordAddr(start common.Bnum, n uint64, sz uint64) Addr {
	per := disk.BlockSize / sz
	return MkAddr(start+common.Bnum(n/per), (n%per)*sz)
}

// MkBitAddr locates bit n of a bitmap starting at block start; Off is the
// bit offset within the block.
func MkBitAddr(start common.Bnum, n uint64) Addr {
	bit := n % common.NBITBLOCK
	i := n / common.NBITBLOCK
	return MkAddr(start+common.Bnum(i), bit)
}
