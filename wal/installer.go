package wal

import (
	"github.com/mit-pdos/go-kfs/disk"
	"github.com/mit-pdos/go-kfs/util"
)

// installBlocks writes the updates in bufs to their home locations.
func (l *Walog) installBlocks(bufs []Update) {
	for i, buf := range bufs {
		util.DPrintf(5, "installBlocks: write log block %d to %d\n", i, buf.Addr)
		must(l.d.Write(buf.Addr, buf.Block))
	}
	must(l.d.Barrier())
}

// truncate empties the journal once its contents are installed.
func (l *Walog) truncate() {
	l.writeHdr(&hdr{n: 0, sum: make([]byte, SUMSZ)})
	must(l.d.Barrier())
}

// Recover replays a committed but possibly uninstalled group. A header whose
// checksum does not match the logged blocks belongs to a commit that never
// reached its commit point and is discarded. Returns the number of blocks
// installed.
//
// Must run before any operation begins; running it again is a no-op.
func (l *Walog) Recover() uint64 {
	l.memLock.Lock()
	defer l.memLock.Unlock()
	if l.st.nop > 0 || l.st.memLog.len() > 0 {
		panic("Recover")
	}
	h := l.readHdr()
	if h.n == 0 {
		util.DPrintf(1, "recover: journal empty\n")
		return 0
	}
	var blks []disk.Block
	if h.n <= LOGSZ {
		for i := uint64(0); i < h.n; i++ {
			b, err := l.d.Read(LOGSTART + i)
			must(err)
			blks = append(blks, b)
		}
	}
	if !h.valid(blks) {
		util.DPrintf(1, "recover: discard torn header (%d blocks)\n", h.n)
		l.truncate()
		return 0
	}
	var bufs []Update
	for i, a := range h.addrs {
		bufs = append(bufs, MkBlockData(a, blks[i]))
	}
	util.DPrintf(1, "recover: install %d blocks\n", len(bufs))
	l.installBlocks(bufs)
	l.truncate()
	return uint64(len(bufs))
}
