// Package kfs is the storage engine of the kernel: the journal, the inode
// cache, and the per-process descriptor tables that files, pipes, sockets
// and the console are reached through.
//
// Every call names its process explicitly. Recoverable failures are
// reported as -1, a zero count, or false; broken invariants panic.
//
// Locks are taken in the order: descriptor table, journal operation,
// namespace, inode. A descriptor table lock is never held while waiting on
// a pipe or a socket.
package kfs

import (
	"fmt"
	"io"
	"os"
	"sync"
	"time"

	"github.com/hashicorp/go-multierror"

	"github.com/mit-pdos/go-kfs/alloc"
	"github.com/mit-pdos/go-kfs/common"
	"github.com/mit-pdos/go-kfs/device"
	"github.com/mit-pdos/go-kfs/disk"
	"github.com/mit-pdos/go-kfs/inode"
	"github.com/mit-pdos/go-kfs/jrnl"
	"github.com/mit-pdos/go-kfs/pipe"
	"github.com/mit-pdos/go-kfs/socket"
	"github.com/mit-pdos/go-kfs/stats"
	"github.com/mit-pdos/go-kfs/super"
	"github.com/mit-pdos/go-kfs/util"
)

type Engine struct {
	cfg     Config
	d       disk.Disk
	super   *super.FsSuper
	jrnl    *jrnl.Journal
	balloc  *alloc.Alloc
	icache  *inode.Cache
	pipes   *pipe.Table
	socks   socket.Layer
	console *device.Console

	nsLock *sync.Mutex // serializes changes to the directory tree
	procs  []*fdTable

	sockMu   *sync.Mutex
	sockRefs map[int]uint64 // descriptors per open socket

	recoverMu *sync.Mutex
	recovered bool

	ops [nOps]stats.Op
}

// MkEngine sets up an engine over a formatted disk. Call Recover before the
// first operation.
func MkEngine(d disk.Disk, cfg Config) (*Engine, error) {
	fs := super.MkFsSuper(cfg.MaxInodes, cfg.NDataBlocks)
	sz, err := d.Size()
	if err != nil {
		return nil, err
	}
	if sz < fs.NBlocks() {
		return nil, fmt.Errorf("disk has %d blocks, layout needs %d", sz, fs.NBlocks())
	}
	if cfg.MaxOpBlocks > jrnl.LogBlocks || cfg.MaxFreeOpBlocks > jrnl.LogBlocks {
		return nil, fmt.Errorf("reservation larger than the journal (%d blocks)", jrnl.LogBlocks)
	}
	if cfg.MaxFreeOpBlocks < fs.NBitmapBlk()+inode.FreeStepBlocks {
		return nil, fmt.Errorf("free reservation below %d blocks", fs.NBitmapBlk()+inode.FreeStepBlocks)
	}
	if cfg.MaxFiles < 2 {
		return nil, fmt.Errorf("need room for the standard descriptors")
	}
	balloc := alloc.MkAlloc(fs.BitmapStart(), fs.NDataBits, fs.DataStart())
	e := &Engine{
		cfg:       cfg,
		d:         d,
		super:     fs,
		jrnl:      jrnl.MkJournal(d, cfg.BlockCacheSize),
		balloc:    balloc,
		icache:    inode.MkCache(fs, balloc, cfg.InodeCacheSize),
		pipes:     pipe.MkTable(cfg.MaxPipes),
		socks:     cfg.Sockets,
		console:   cfg.Console,
		nsLock:    new(sync.Mutex),
		procs:     make([]*fdTable, cfg.MaxProcs),
		sockMu:    new(sync.Mutex),
		sockRefs:  make(map[int]uint64),
		recoverMu: new(sync.Mutex),
	}
	if e.socks == nil {
		e.socks = socket.MkLoopback(cfg.MaxSockets)
	}
	if e.console == nil {
		e.console = device.MkConsole(os.Stdin, os.Stdout)
	}
	for i := range e.procs {
		e.procs[i] = mkFdTable(cfg.MaxFiles)
	}
	util.DPrintf(1, "MkEngine: %d blocks, %d inodes\n", fs.NBlocks(), fs.NInodes)
	return e, nil
}

// Mkfs formats d: an empty journal, a clear inode table and bitmap, and an
// empty root directory. The returned engine is ready to use.
func Mkfs(d disk.Disk, cfg Config) (*Engine, error) {
	e, err := MkEngine(d, cfg)
	if err != nil {
		return nil, err
	}
	e.recovered = true
	if err := d.Write(0, make(disk.Block, disk.BlockSize)); err != nil {
		return nil, fmt.Errorf("clear journal: %w", err)
	}
	var blks []uint64
	for i := uint64(0); i < e.super.NInodeBlk(); i++ {
		blks = append(blks, e.super.InodeStart()+i)
	}
	for i := uint64(0); i < e.super.NBitmapBlk(); i++ {
		blks = append(blks, e.super.BitmapStart()+i)
	}
	for len(blks) > 0 {
		n := util.Min(uint64(len(blks)), cfg.MaxOpBlocks)
		op := e.jrnl.Begin(cfg.MaxOpBlocks)
		for _, bn := range blks[:n] {
			op.Release(op.ZeroBuf(bn))
		}
		op.Commit()
		blks = blks[n:]
	}
	op := e.jrnl.Begin(cfg.MaxOpBlocks)
	e.icache.InitRoot(op)
	op.Commit()
	util.DPrintf(1, "Mkfs: done, %d commits\n", e.jrnl.NCommit())
	return e, nil
}

// Recover replays the journal once per engine. It reports whether this
// call did the replay.
func (e *Engine) Recover() bool {
	defer e.record(OpRecover, time.Now())
	e.recoverMu.Lock()
	if e.recovered {
		e.recoverMu.Unlock()
		return false
	}
	e.recovered = true
	e.recoverMu.Unlock()
	n := e.jrnl.Recover()
	util.DPrintf(1, "Recover: installed %d blocks\n", n)
	return true
}

// Shutdown waits for running operations to commit, then closes the disk.
func (e *Engine) Shutdown() error {
	e.jrnl.Shutdown()
	var err error
	if e2 := e.d.Barrier(); e2 != nil {
		err = multierror.Append(err, fmt.Errorf("barrier: %w", e2))
	}
	if e2 := e.d.Close(); e2 != nil {
		err = multierror.Append(err, fmt.Errorf("close disk: %w", e2))
	}
	util.DPrintf(1, "Shutdown: %d commits\n", e.jrnl.NCommit())
	return err
}

func (e *Engine) begin() *jrnl.Op {
	return e.jrnl.Begin(e.cfg.MaxOpBlocks)
}

func (e *Engine) beginFree() *jrnl.Op {
	return e.jrnl.Begin(e.cfg.MaxFreeOpBlocks)
}

// free releases inode inum and everything below it once nothing names or
// holds it, one bounded step per operation. Each step rechecks under the
// namespace lock, so an inode that another caller freed first, or that
// was linked again, is left alone.
func (e *Engine) free(inum common.Inum) {
	work := []common.Inum{inum}
	for len(work) > 0 {
		cur := work[len(work)-1]
		op := e.beginFree()
		e.nsLock.Lock()
		children, done := e.icache.FreeStep(op, cur, e.cfg.MaxFreeOpBlocks)
		e.nsLock.Unlock()
		op.Commit()
		if done {
			work = work[:len(work)-1]
		}
		work = append(work, children...)
	}
}

// NCommit reports how many journal groups have been committed.
func (e *Engine) NCommit() uint64 {
	return e.jrnl.NCommit()
}

// CacheStats reports block cache hits and misses.
func (e *Engine) CacheStats() (uint64, uint64) {
	return e.jrnl.CacheStats()
}

// Stats returns the per-operation counters.
func (e *Engine) Stats() []stats.Row {
	return stats.Snapshot(opNames[:], e.ops[:])
}

func (e *Engine) WriteStats(w io.Writer, csv bool) error {
	if csv {
		return stats.WriteCSV(opNames[:], e.ops[:], w)
	}
	stats.WriteTable(opNames[:], e.ops[:], w)
	return nil
}
