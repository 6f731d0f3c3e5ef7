package wal

import (
	"github.com/minio/sha256-simd"
	"github.com/tchajed/marshal"

	"github.com/mit-pdos/go-kfs/common"
	"github.com/mit-pdos/go-kfs/disk"
)

// hdr is the decoded journal header. n == 0 means the journal is empty.
type hdr struct {
	n     uint64
	addrs []common.Bnum
	sum   []byte
}

func checksum(addrs []common.Bnum, blks []disk.Block) []byte {
	h := sha256.New()
	enc := marshal.NewEnc(8 * uint64(len(addrs)))
	enc.PutInts(addrs)
	h.Write(enc.Finish())
	for _, b := range blks {
		h.Write(b)
	}
	return h.Sum(nil)
}

func mkHdr(bufs []Update) *hdr {
	addrs := make([]common.Bnum, len(bufs))
	blks := make([]disk.Block, len(bufs))
	for i, u := range bufs {
		addrs[i] = u.Addr
		blks[i] = u.Block
	}
	return &hdr{
		n:     uint64(len(bufs)),
		addrs: addrs,
		sum:   checksum(addrs, blks),
	}
}

func (h *hdr) encode() disk.Block {
	enc := marshal.NewEnc(disk.BlockSize)
	enc.PutInt(h.n)
	addrs := make([]uint64, HDRADDRS)
	copy(addrs, h.addrs)
	enc.PutInts(addrs)
	b := enc.Finish()
	copy(b[HDRSUM:HDRSUM+SUMSZ], h.sum)
	return b
}

func decodeHdr(b disk.Block) *hdr {
	dec := marshal.NewDec(b)
	n := dec.GetInt()
	addrs := dec.GetInts(HDRADDRS)
	if n > HDRADDRS {
		// garbage; treat it like an interrupted commit
		return &hdr{n: n}
	}
	sum := make([]byte, SUMSZ)
	copy(sum, b[HDRSUM:HDRSUM+SUMSZ])
	return &hdr{
		n:     n,
		addrs: addrs[:n],
		sum:   sum,
	}
}

func (h *hdr) valid(blks []disk.Block) bool {
	if h.n > HDRADDRS || uint64(len(blks)) != h.n {
		return false
	}
	want := checksum(h.addrs, blks)
	for i := range want {
		if want[i] != h.sum[i] {
			return false
		}
	}
	return true
}

func (l *Walog) writeHdr(h *hdr) {
	must(l.d.Write(LOGHDR, h.encode()))
}

func (l *Walog) readHdr() *hdr {
	b, err := l.d.Read(LOGHDR)
	must(err)
	return decodeHdr(b)
}

// must turns a device failure into a crash: the journal cannot make progress
// without its disk.
func must(err error) {
	if err != nil {
		panic("wal: " + err.Error())
	}
}
