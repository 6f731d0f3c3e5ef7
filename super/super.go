// Package super computes where each region of the file system lives.
//
// The disk holds, in order: the journal (header plus LOGSZ blocks), the
// inode table, the data-block bitmap, and the data blocks.
package super

import (
	"github.com/mit-pdos/go-kfs/addr"
	"github.com/mit-pdos/go-kfs/common"
	"github.com/mit-pdos/go-kfs/util"
	"github.com/mit-pdos/go-kfs/wal"
)

type FsSuper struct {
	nLog       uint64 // including the header block
	NInodes    uint64
	nInodeBlk  uint64
	NDataBits  uint64
	nBitmapBlk uint64
}

// MkFsSuper lays out a file system with ninodes inode records and a bitmap
// covering ndata data blocks.
func MkFsSuper(ninodes uint64, ndata uint64) *FsSuper {
	if ninodes < 2 || ndata < 2 {
		panic("MkFsSuper")
	}
	fs := &FsSuper{
		nLog:       wal.LOGDISKBLOCKS,
		NInodes:    ninodes,
		nInodeBlk:  util.RoundUp(ninodes, common.INODEBLK),
		NDataBits:  ndata,
		nBitmapBlk: util.RoundUp(ndata, common.NBITBLOCK),
	}
	util.DPrintf(1, "MkFsSuper: inodes at %d, bitmap at %d, data at %d\n",
		fs.InodeStart(), fs.BitmapStart(), fs.DataStart())
	return fs
}

func (fs *FsSuper) InodeStart() common.Bnum {
	return common.Bnum(fs.nLog)
}

func (fs *FsSuper) NInodeBlk() uint64 {
	return fs.nInodeBlk
}

func (fs *FsSuper) BitmapStart() common.Bnum {
	return fs.InodeStart() + common.Bnum(fs.nInodeBlk)
}

func (fs *FsSuper) NBitmapBlk() uint64 {
	return fs.nBitmapBlk
}

// DataStart is the block that bit 0 of the bitmap stands for. It is never
// allocated.
func (fs *FsSuper) DataStart() common.Bnum {
	return fs.BitmapStart() + common.Bnum(fs.nBitmapBlk)
}

// NBlocks is the disk size the layout needs.
func (fs *FsSuper) NBlocks() uint64 {
	return uint64(fs.DataStart()) + fs.NDataBits
}

func (fs *FsSuper) Inum2Addr(inum common.Inum) addr.Addr {
	if uint64(inum) >= fs.NInodes {
		panic("Inum2Addr")
	}
	return addr.MkRecordAddr(fs.InodeStart(), uint64(inum), common.INODESZ)
}
