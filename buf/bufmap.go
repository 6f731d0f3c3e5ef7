package buf

import (
	"github.com/mit-pdos/go-kfs/common"
)

//
// A map from block numbers to bufs.
//

type BufMap struct {
	bufs map[common.Bnum]*Buf
}

func MkBufMap() *BufMap {
	a := &BufMap{
		bufs: make(map[common.Bnum]*Buf),
	}
	return a
}

func (bmap *BufMap) Insert(buf *Buf) {
	bmap.bufs[buf.Blkno] = buf
}

func (bmap *BufMap) Lookup(blkno common.Bnum) *Buf {
	return bmap.bufs[blkno]
}

func (bmap *BufMap) Del(blkno common.Bnum) {
	delete(bmap.bufs, blkno)
}

func (bmap *BufMap) Len() uint64 {
	return uint64(len(bmap.bufs))
}
