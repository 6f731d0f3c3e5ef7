package common

import (
	"github.com/mit-pdos/go-kfs/disk"
)

const (
	NBITBLOCK uint64 = disk.BlockSize * 8

	INODESZ  uint64 = 64 // on-disk size
	INODEBLK uint64 = disk.BlockSize / INODESZ

	DIRENTSZ  uint64 = 128
	DIRENTBLK uint64 = disk.BlockSize / DIRENTSZ
	MAXNAME   uint64 = 108 // capacity of a path name, leading '/' included

	NDIRECT uint64 = 9
	NPTRBLK uint64 = disk.BlockSize / 4 // u32 pointers per table block

	LOGSZ uint64 = 64 // journal data blocks
)

// Inum is an inode number. Inode 0 is never allocated and marks an empty
// directory slot.
type Inum uint64

// Bnum is an absolute block number. Block 0 holds the journal header, so a
// zero pointer means "unallocated".
type Bnum = uint64

const (
	NULLINUM Inum = 0
	ROOTINUM Inum = 1
	NULLBNUM Bnum = 0
)

func (inum Inum) IsNull() bool {
	return inum == NULLINUM
}
