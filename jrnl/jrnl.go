// Package jrnl is the transaction API the file system is written against.
//
// An operation is bracketed by Begin and Commit. Inside it the caller pins
// blocks with ReadBuf, modifies them, and unpins them with Release; a
// released dirty block joins the journal's open group at once, so other
// operations see it, but it only reaches disk when the whole group commits.
// Operations therefore lock the objects they touch (inodes, bitmap blocks)
// themselves; the journal provides atomicity, not isolation.
//
// Begin reserves journal space up front. An operation must not dirty more
// distinct blocks than it reserved.
package jrnl

import (
	"github.com/mit-pdos/go-kfs/bcache"
	"github.com/mit-pdos/go-kfs/buf"
	"github.com/mit-pdos/go-kfs/common"
	"github.com/mit-pdos/go-kfs/disk"
	"github.com/mit-pdos/go-kfs/util"
	"github.com/mit-pdos/go-kfs/wal"
)

// LogBlocks is the maximum number of blocks that can be written in one
// operation
const LogBlocks uint64 = wal.LOGSZ

type Journal struct {
	log   *wal.Walog
	cache *bcache.Cache
}

// MkJournal layers the journal and a cache of ncache blocks over d. It does
// not replay the on-disk journal; see Recover.
func MkJournal(d disk.Disk, ncache uint64) *Journal {
	log := wal.MkLog(d)
	return &Journal{
		log:   log,
		cache: bcache.MkCache(log, ncache),
	}
}

// Recover installs a committed group left behind by a crash and reports
// how many blocks it installed.
func (j *Journal) Recover() uint64 {
	return j.log.Recover()
}

// Shutdown waits for open operations to commit.
func (j *Journal) Shutdown() {
	j.log.Shutdown()
}

func (j *Journal) NCommit() uint64 {
	return j.log.NCommit()
}

// CacheStats reports block cache hits and misses.
func (j *Journal) CacheStats() (uint64, uint64) {
	return j.cache.Stats()
}

// Op is an in-progress journal operation.
type Op struct {
	j       *Journal
	max     uint64
	pinned  *buf.BufMap // blocks this operation has pinned
	written map[common.Bnum]bool
}

// Begin starts an operation that will dirty at most maxBlocks blocks,
// waiting until the open group has room for it.
func (j *Journal) Begin(maxBlocks uint64) *Op {
	j.log.BeginOp(maxBlocks)
	op := &Op{
		j:       j,
		max:     maxBlocks,
		pinned:  buf.MkBufMap(),
		written: make(map[common.Bnum]bool),
	}
	util.DPrintf(3, "Begin: %p max %d\n", op, maxBlocks)
	return op
}

// ReadBuf pins block bn for this operation.
func (op *Op) ReadBuf(bn common.Bnum) *buf.Buf {
	if op.pinned.Lookup(bn) != nil {
		panic("ReadBuf: block already pinned")
	}
	b := op.j.cache.Acquire(bn)
	op.pinned.Insert(b)
	return b
}

// ZeroBuf pins block bn and clears it. Used for freshly allocated blocks,
// whose old contents are garbage.
func (op *Op) ZeroBuf(bn common.Bnum) *buf.Buf {
	b := op.ReadBuf(bn)
	b.Zero()
	return b
}

// Release unpins b, logging it if it was modified.
func (op *Op) Release(b *buf.Buf) {
	if op.pinned.Lookup(b.Blkno) != b {
		panic("Release: block not pinned by this operation")
	}
	op.pinned.Del(b.Blkno)
	dirty := b.IsDirty()
	if dirty && !op.written[b.Blkno] {
		op.written[b.Blkno] = true
		if uint64(len(op.written)) > op.max {
			panic("Release: operation exceeds its reservation")
		}
	}
	b.ClearDirty()
	op.j.cache.Release(b, dirty)
}

// NDirty reports how many distinct blocks the operation has written.
func (op *Op) NDirty() uint64 {
	return uint64(len(op.written))
}

// Commit ends the operation. All its blocks must be released. Commit
// returns true if this call committed the group to disk; otherwise the
// group commits when its last operation ends.
func (op *Op) Commit() bool {
	if op.pinned.Len() > 0 {
		panic("Commit: blocks still pinned")
	}
	util.DPrintf(3, "Commit %p: %d blocks\n", op, len(op.written))
	return op.j.log.EndOp()
}
