package jrnl_test

import (
	"math/rand"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/mit-pdos/go-kfs/disk"
	"github.com/mit-pdos/go-kfs/jrnl"
	"github.com/mit-pdos/go-kfs/wal"
)

func TestSizeConstants(t *testing.T) {
	assert.Equal(t, wal.LOGSZ, jrnl.LogBlocks)
}

func data(sz int) []byte {
	d := make([]byte, sz)
	rand.Read(d)
	return d
}

const base = wal.LOGDISKBLOCKS

func TestJrnlWriteRead(t *testing.T) {
	d := disk.NewMemDisk(1000)
	j := jrnl.MkJournal(d, 16)

	op := j.Begin(2)
	bs0 := data(int(disk.BlockSize))
	b := op.ReadBuf(base)
	b.Install(0, bs0)
	op.Release(b)
	assert.True(t, op.Commit())

	op = j.Begin(1)
	b = op.ReadBuf(base)
	assert.Equal(t, bs0, []byte(b.Data))
	op.Release(b)
	assert.False(t, op.Commit(), "read-only op does not commit")

	// a fresh journal over the same disk sees the write
	j2 := jrnl.MkJournal(d, 16)
	assert.Equal(t, uint64(0), j2.Recover())
	op = j2.Begin(1)
	b = op.ReadBuf(base)
	assert.Equal(t, bs0, []byte(b.Data))
	op.Release(b)
	op.Commit()
}

func TestJrnlZeroBuf(t *testing.T) {
	d := disk.NewMemDisk(1000)
	j := jrnl.MkJournal(d, 16)
	op := j.Begin(1)
	b := op.ReadBuf(base + 3)
	b.Install(10, []byte{1, 2, 3})
	op.Release(b)
	op.Commit()

	op = j.Begin(1)
	b = op.ZeroBuf(base + 3)
	op.Release(b)
	op.Commit()
	blk, _ := d.Read(base + 3)
	assert.Equal(t, make([]byte, disk.BlockSize), []byte(blk))
}

func TestJrnlNDirty(t *testing.T) {
	j := jrnl.MkJournal(disk.NewMemDisk(1000), 16)
	op := j.Begin(3)
	for i := 0; i < 2; i++ {
		b := op.ReadBuf(base + 1)
		b.Install(0, []byte{byte(i)})
		op.Release(b)
	}
	b := op.ReadBuf(base + 2)
	op.Release(b)
	assert.Equal(t, uint64(1), op.NDirty(), "rewrites of one block count once")
	op.Commit()
}

func TestJrnlReservationEnforced(t *testing.T) {
	j := jrnl.MkJournal(disk.NewMemDisk(1000), 16)
	op := j.Begin(1)
	b := op.ReadBuf(base + 1)
	b.SetDirty()
	op.Release(b)
	b = op.ReadBuf(base + 2)
	b.SetDirty()
	assert.Panics(t, func() { op.Release(b) })
}

func TestJrnlCommitWithPinned(t *testing.T) {
	j := jrnl.MkJournal(disk.NewMemDisk(1000), 16)
	op := j.Begin(1)
	op.ReadBuf(base + 1)
	assert.Panics(t, func() { op.Commit() })
}

func TestJrnlDoublePin(t *testing.T) {
	j := jrnl.MkJournal(disk.NewMemDisk(1000), 16)
	op := j.Begin(1)
	op.ReadBuf(base + 1)
	assert.Panics(t, func() { op.ReadBuf(base + 1) })
}

func TestJrnlConcurrentOps(t *testing.T) {
	d := disk.NewMemDisk(1000)
	j := jrnl.MkJournal(d, 32)
	var wg sync.WaitGroup
	for i := uint64(0); i < 20; i++ {
		wg.Add(1)
		go func(i uint64) {
			defer wg.Done()
			op := j.Begin(1)
			b := op.ReadBuf(base + i)
			b.Install(0, []byte{byte(i + 1)})
			op.Release(b)
			op.Commit()
		}(i)
	}
	wg.Wait()
	j.Shutdown()
	for i := uint64(0); i < 20; i++ {
		blk, err := d.Read(base + i)
		assert.NoError(t, err)
		assert.Equal(t, byte(i+1), blk[0])
	}
	assert.LessOrEqual(t, j.NCommit(), uint64(20))
}
