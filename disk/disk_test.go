package disk

import (
	"bytes"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func mkBlock(b byte) Block {
	block := make(Block, BlockSize)
	for i := range block {
		block[i] = b
	}
	return block
}

func testReadWrite(t *testing.T, d Disk) {
	assert := assert.New(t)
	blk, err := d.Read(3)
	require.NoError(t, err)
	assert.Equal(mkBlock(0), blk, "unwritten block should read as zero")

	require.NoError(t, d.Write(3, mkBlock(7)))
	require.NoError(t, d.Write(4, mkBlock(8)))
	require.NoError(t, d.Barrier())
	blk, err = d.Read(3)
	require.NoError(t, err)
	assert.Equal(mkBlock(7), blk)

	buf := make(Block, BlockSize)
	require.NoError(t, d.ReadTo(4, buf))
	assert.Equal(mkBlock(8), buf)

	sz, err := d.Size()
	require.NoError(t, err)
	assert.Equal(uint64(100), sz)
}

func TestMemDisk(t *testing.T) {
	testReadWrite(t, NewMemDisk(100))
}

func TestFileDisk(t *testing.T) {
	d, err := NewFileDisk(filepath.Join(t.TempDir(), "disk.img"), 100)
	require.NoError(t, err)
	defer d.Close()
	testReadWrite(t, d)
}

func TestBoltDisk(t *testing.T) {
	d, err := NewBoltDisk(filepath.Join(t.TempDir(), "disk.db"), 100)
	require.NoError(t, err)
	defer d.Close()
	testReadWrite(t, d)
}

func TestBlockKeyOrder(t *testing.T) {
	assert.True(t, bytes.Compare(blockKey(1), blockKey(256)) < 0)
	assert.Equal(t, []byte{0, 0, 0, 0, 0, 0, 1, 0}, blockKey(256))
}

func TestOutOfBounds(t *testing.T) {
	d := NewMemDisk(10)
	assert.Panics(t, func() { d.Write(10, mkBlock(1)) })
	assert.Panics(t, func() { d.Write(1, make(Block, 10)) })
}

func TestSnapshot(t *testing.T) {
	assert := assert.New(t)
	d := NewMemDisk(10)
	d.Write(1, mkBlock(1))
	s := d.Snapshot()
	d.Write(1, mkBlock(2))
	blk, _ := s.Read(1)
	assert.Equal(mkBlock(1), blk, "snapshot should not see later writes")
}

func TestCrashAfter(t *testing.T) {
	assert := assert.New(t)
	d := NewMemDisk(10)
	d.Write(1, mkBlock(1))
	d.CrashAfter(1)
	d.Write(2, mkBlock(2))
	d.Write(3, mkBlock(3))
	blk, _ := d.Read(2)
	assert.Equal(mkBlock(2), blk)
	blk, _ = d.Read(3)
	assert.Equal(mkBlock(0), blk, "write after crash point must be lost")
	assert.Equal(uint64(3), d.Writes())
}

func TestDumpLoad(t *testing.T) {
	assert := assert.New(t)
	d := NewMemDisk(50)
	d.Write(0, mkBlock(9))
	d.Write(17, mkBlock(4))
	d.Write(49, mkBlock(5))

	var img bytes.Buffer
	n, err := Dump(d, &img)
	require.NoError(t, err)
	assert.Equal(uint64(3), n)

	d2 := NewMemDisk(50)
	n, err = Load(&img, d2)
	require.NoError(t, err)
	assert.Equal(uint64(3), n)
	for _, a := range []uint64{0, 1, 17, 49} {
		b1, _ := d.Read(a)
		b2, _ := d2.Read(a)
		assert.Equal(b1, b2, "block %d", a)
	}
}

func TestLoadTooSmall(t *testing.T) {
	d := NewMemDisk(50)
	d.Write(3, mkBlock(1))
	var img bytes.Buffer
	_, err := Dump(d, &img)
	require.NoError(t, err)
	_, err = Load(&img, NewMemDisk(10))
	assert.Error(t, err)
}
