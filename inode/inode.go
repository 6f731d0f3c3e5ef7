// Package inode caches on-disk inodes and implements files and directories
// on top of them: block lookup through the pointer tiers, resize,
// read/write, path resolution and directory entries, and inode
// allocation. Every operation runs inside a caller-supplied jrnl.Op.
package inode

import (
	"fmt"

	"github.com/tchajed/marshal"

	"github.com/mit-pdos/go-kfs/buf"
	"github.com/mit-pdos/go-kfs/common"
)

type Type uint32

const (
	TypeUnused Type = 0
	TypeDir    Type = 1
	TypeFile   Type = 2
)

func (t Type) String() string {
	switch t {
	case TypeUnused:
		return "unused"
	case TypeDir:
		return "dir"
	case TypeFile:
		return "file"
	}
	return fmt.Sprintf("type(%d)", uint32(t))
}

// Inode is the on-disk inode record.
type Inode struct {
	Type   Type
	Nlink  uint32
	Size   uint64
	Direct [common.NDIRECT]common.Bnum
	Single common.Bnum
	Double common.Bnum
	Triple common.Bnum
}

func (ino Inode) String() string {
	return fmt.Sprintf("%v n %d sz %d %v s %d d %d t %d", ino.Type, ino.Nlink,
		ino.Size, ino.Direct, ino.Single, ino.Double, ino.Triple)
}

func (ino *Inode) Encode() []byte {
	enc := marshal.NewEnc(common.INODESZ)
	enc.PutInt32(uint32(ino.Type))
	enc.PutInt32(ino.Nlink)
	enc.PutInt(ino.Size)
	for _, bn := range ino.Direct {
		enc.PutInt32(uint32(bn))
	}
	enc.PutInt32(uint32(ino.Single))
	enc.PutInt32(uint32(ino.Double))
	enc.PutInt32(uint32(ino.Triple))
	return enc.Finish()
}

func Decode(b *buf.Buf, off uint64) Inode {
	var ino Inode
	dec := marshal.NewDec(b.Record(off, common.INODESZ))
	ino.Type = Type(dec.GetInt32())
	ino.Nlink = dec.GetInt32()
	ino.Size = dec.GetInt()
	for i := range ino.Direct {
		ino.Direct[i] = common.Bnum(dec.GetInt32())
	}
	ino.Single = common.Bnum(dec.GetInt32())
	ino.Double = common.Bnum(dec.GetInt32())
	ino.Triple = common.Bnum(dec.GetInt32())
	return ino
}

// Status is what a descriptor's status call reports.
type Status struct {
	Type Type
	Size uint64
}
