package disk

import (
	"fmt"
	"io"

	"github.com/golang/snappy"
	"github.com/tchajed/marshal"
)

// Image format, snappy-framed:
//
//	[ nblocks u64 ] then ( [ blkno u64 ][ 4096 bytes ] )* for every non-zero block
const imageHdrSz = 8

func isZero(b Block) bool {
	for _, x := range b {
		if x != 0 {
			return false
		}
	}
	return true
}

// Dump writes the non-zero blocks of d to w. It returns the number of blocks
// written.
func Dump(d Disk, w io.Writer) (uint64, error) {
	sz, err := d.Size()
	if err != nil {
		return 0, err
	}
	sw := snappy.NewBufferedWriter(w)
	enc := marshal.NewEnc(imageHdrSz)
	enc.PutInt(sz)
	if _, err := sw.Write(enc.Finish()); err != nil {
		return 0, err
	}
	var n uint64
	buf := make(Block, BlockSize)
	for a := uint64(0); a < sz; a++ {
		if err := d.ReadTo(a, buf); err != nil {
			return n, fmt.Errorf("read block %d: %w", a, err)
		}
		if isZero(buf) {
			continue
		}
		enc := marshal.NewEnc(imageHdrSz)
		enc.PutInt(a)
		if _, err := sw.Write(enc.Finish()); err != nil {
			return n, err
		}
		if _, err := sw.Write(buf); err != nil {
			return n, err
		}
		n++
	}
	return n, sw.Close()
}

// Load reads an image produced by Dump into d, which must be at least as
// large as the dumped disk.
func Load(r io.Reader, d Disk) (uint64, error) {
	sr := snappy.NewReader(r)
	hdr := make([]byte, imageHdrSz)
	if _, err := io.ReadFull(sr, hdr); err != nil {
		return 0, fmt.Errorf("image header: %w", err)
	}
	want := marshal.NewDec(hdr).GetInt()
	sz, err := d.Size()
	if err != nil {
		return 0, err
	}
	if want > sz {
		return 0, fmt.Errorf("image has %d blocks, disk only %d", want, sz)
	}
	var n uint64
	for {
		if _, err := io.ReadFull(sr, hdr); err != nil {
			if err == io.EOF {
				return n, nil
			}
			return n, err
		}
		a := marshal.NewDec(hdr).GetInt()
		blk := make(Block, BlockSize)
		if _, err := io.ReadFull(sr, blk); err != nil {
			return n, fmt.Errorf("block %d: %w", a, err)
		}
		if err := d.Write(a, blk); err != nil {
			return n, err
		}
		n++
	}
}
