package wal

import (
	"sync"

	"github.com/mit-pdos/go-kfs/common"
	"github.com/mit-pdos/go-kfs/disk"
	"github.com/mit-pdos/go-kfs/util"
)

// MkLog takes ownership of the first LOGDISKBLOCKS of d. It does not replay
// the journal; the owner calls Recover once before the first operation.
func MkLog(d disk.Disk) *Walog {
	ml := new(sync.Mutex)
	st := &WalogState{
		memLog:     mkSliding(),
		reserved:   0,
		nop:        0,
		committing: false,
		shutdown:   false,
	}
	l := &Walog{
		memLock:    ml,
		d:          d,
		st:         st,
		condCommit: sync.NewCond(ml),
	}
	util.DPrintf(1, "mkLog: size %d\n", LOGSZ)
	return l
}

// BeginOp reserves n journal blocks for a new operation, waiting while a
// commit runs or while the current group has no room for n more blocks.
func (l *Walog) BeginOp(n uint64) {
	if n > LOGSZ {
		panic("BeginOp")
	}
	l.memLock.Lock()
	st := l.st
	for st.committing || st.reserved+n > LOGSZ {
		if st.shutdown {
			break
		}
		util.DPrintf(5, "BeginOp: wait for %d blocks (reserved %d)\n", n, st.reserved)
		l.condCommit.Wait()
	}
	if st.shutdown {
		l.memLock.Unlock()
		panic("BeginOp: log is shut down")
	}
	st.reserved += n
	st.nop += 1
	util.DPrintf(3, "BeginOp: %d ops, %d reserved\n", st.nop, st.reserved)
	l.memLock.Unlock()
}

// Write records the new contents of block bn in the open group. The caller
// must have an operation open.
func (l *Walog) Write(bn common.Bnum, blk disk.Block) {
	if bn < LOGDISKBLOCKS {
		panic("Write: journal block")
	}
	l.memLock.Lock()
	st := l.st
	if st.nop == 0 {
		l.memLock.Unlock()
		panic("Write: no open operation")
	}
	st.memLog.memWrite(MkBlockData(bn, util.CloneByteSlice(blk)))
	if st.memLog.len() > st.reserved {
		l.memLock.Unlock()
		panic("Write: group exceeds its reservation")
	}
	l.memLock.Unlock()
}

// EndOp closes an operation. The last operation of a group commits the
// group before returning; the others return at once.
func (l *Walog) EndOp() bool {
	l.memLock.Lock()
	st := l.st
	if st.nop == 0 {
		l.memLock.Unlock()
		panic("EndOp")
	}
	st.nop -= 1
	if st.nop > 0 {
		l.memLock.Unlock()
		return false
	}
	var committed = false
	if st.memLog.len() > 0 {
		st.committing = true
		bufs := st.memLog.updates()
		l.memLock.Unlock()

		l.commit(bufs)

		l.memLock.Lock()
		st.memLog.clear()
		st.committing = false
		st.ncommit += 1
		committed = true
	}
	st.reserved = 0
	l.condCommit.Broadcast()
	l.memLock.Unlock()
	return committed
}

// readMem implements ReadMem, assuming memLock is held
func (st *WalogState) readMem(blkno common.Bnum) (disk.Block, bool) {
	pos, ok := st.memLog.posForAddr(blkno)
	if ok {
		util.DPrintf(5, "read memLog: read %d pos %d\n", blkno, pos)
		u := st.memLog.get(pos)
		return util.CloneByteSlice(u.Block), true
	}
	return nil, false
}

// ReadMem reads from the uncommitted group only.
func (l *Walog) ReadMem(blkno common.Bnum) (disk.Block, bool) {
	l.memLock.Lock()
	blk, ok := l.st.readMem(blkno)
	l.memLock.Unlock()
	return blk, ok
}

// ReadInstalled reads from the home location.
func (l *Walog) ReadInstalled(blkno common.Bnum) disk.Block {
	blk, err := l.d.Read(blkno)
	must(err)
	return blk
}

// Read returns the latest contents of blkno: the open group's copy if it
// has one, else the installed block.
func (l *Walog) Read(blkno common.Bnum) disk.Block {
	blk, ok := l.ReadMem(blkno)
	if ok {
		return blk
	}
	return l.ReadInstalled(blkno)
}

// NCommit reports how many groups have been committed.
func (l *Walog) NCommit() uint64 {
	l.memLock.Lock()
	defer l.memLock.Unlock()
	return l.st.ncommit
}

// Shutdown waits for open operations to end (which commits their group) and
// then refuses new ones.
func (l *Walog) Shutdown() {
	util.DPrintf(1, "shutdown wal\n")
	l.memLock.Lock()
	l.st.shutdown = true
	l.condCommit.Broadcast()
	for l.st.nop > 0 || l.st.committing {
		util.DPrintf(1, "wait for %d ops", l.st.nop)
		l.condCommit.Wait()
	}
	l.memLock.Unlock()
	util.DPrintf(1, "wal done\n")
}
