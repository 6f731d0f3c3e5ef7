package wal

import (
	"sync"

	"github.com/mit-pdos/go-kfs/common"
	"github.com/mit-pdos/go-kfs/disk"
)

type Update struct {
	Addr  common.Bnum
	Block disk.Block
}

func MkBlockData(bn common.Bnum, blk disk.Block) Update {
	b := Update{Addr: bn, Block: blk}
	return b
}

type WalogState struct {
	memLog     *sliding // updates of the group being built
	reserved   uint64   // blocks reserved by the group's operations
	nop        uint64   // open operations
	committing bool
	ncommit    uint64

	shutdown bool
}

type Walog struct {
	memLock *sync.Mutex
	d       disk.Disk
	st      *WalogState

	// signalled when a commit finishes or the last op of a group ends
	condCommit *sync.Cond
}
