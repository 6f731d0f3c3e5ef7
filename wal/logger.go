package wal

import (
	"github.com/mit-pdos/go-kfs/util"
)

// logBlocks writes the group's blocks into the journal data area.
//
// Does not hold the memLock; committing gives the caller exclusive use of
// the journal.
func (l *Walog) logBlocks(bufs []Update) {
	for i, buf := range bufs {
		util.DPrintf(5, "logBlocks: %d to log block %d\n", buf.Addr, i)
		must(l.d.Write(LOGSTART+uint64(i), buf.Block))
	}
}

// commit makes bufs durable and installs them.
func (l *Walog) commit(bufs []Update) {
	util.DPrintf(3, "commit: %d blocks\n", len(bufs))
	l.logBlocks(bufs)
	must(l.d.Barrier())

	// commit point
	l.writeHdr(mkHdr(bufs))
	must(l.d.Barrier())

	l.installBlocks(bufs)
	l.truncate()
}
