package alloc

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/mit-pdos/go-kfs/common"
	"github.com/mit-pdos/go-kfs/disk"
	"github.com/mit-pdos/go-kfs/jrnl"
	"github.com/mit-pdos/go-kfs/wal"
)

const bitmapStart = wal.LOGDISKBLOCKS
const dataBase common.Bnum = 100

func mkAlloc(nbits uint64) (*jrnl.Journal, *Alloc) {
	j := jrnl.MkJournal(disk.NewMemDisk(1000), 16)
	return j, MkAlloc(bitmapStart, nbits, dataBase)
}

func TestAlloc(t *testing.T) {
	assert := assert.New(t)
	max := uint64(32)
	j, a := mkAlloc(max)

	op := j.Begin(8)
	assert.Equal(max-1, a.NumFree(op), "everything (but 0) should be initially free")

	n, ok := a.AllocNum(op)
	assert.True(ok)
	assert.Equal(dataBase+1, n, "bit 0 is never handed out")
	assert.True(a.IsUsed(op, n))

	n2, ok := a.AllocNum(op)
	assert.True(ok)
	assert.NotEqual(n, n2)
	assert.Equal(max-3, a.NumFree(op), "should have used 2 items")

	a.FreeNum(op, n)
	a.FreeNum(op, n2)
	assert.Equal(max-1, a.NumFree(op), "should have freed")
	op.Commit()
}

func TestAllocPersists(t *testing.T) {
	assert := assert.New(t)
	j, a := mkAlloc(64)
	op := j.Begin(1)
	n, _ := a.AllocNum(op)
	op.Commit()

	// a fresh allocator over the same bitmap skips the used block
	a2 := MkAlloc(bitmapStart, 64, dataBase)
	op = j.Begin(1)
	assert.True(a2.IsUsed(op, n))
	n2, ok := a2.AllocNum(op)
	assert.True(ok)
	assert.NotEqual(n, n2)
	op.Commit()
}

func TestAllocExhaustion(t *testing.T) {
	assert := assert.New(t)
	max := uint64(10)
	j, a := mkAlloc(max)
	op := j.Begin(1)
	for i := uint64(1); i < max; i++ {
		_, ok := a.AllocNum(op)
		assert.True(ok, "allocation %d", i)
	}
	_, ok := a.AllocNum(op)
	assert.False(ok)
	a.FreeNum(op, dataBase+4)
	n, ok := a.AllocNum(op)
	assert.True(ok)
	assert.Equal(dataBase+4, n)
	op.Commit()
}

func TestAllocSpansBitmapBlocks(t *testing.T) {
	assert := assert.New(t)
	nbits := 2 * common.NBITBLOCK
	j, a := mkAlloc(nbits)
	assert.Equal(uint64(2), a.NBlocks())
	a.setHint(common.NBITBLOCK - 1)
	op := j.Begin(2)
	n, _ := a.AllocNum(op)
	assert.Equal(dataBase+common.NBITBLOCK-1, n)
	n, _ = a.AllocNum(op)
	assert.Equal(dataBase+common.NBITBLOCK, n, "continues in the next bitmap block")
	op.Commit()
}

func TestFreeNumChecks(t *testing.T) {
	j, a := mkAlloc(32)
	op := j.Begin(1)
	assert.Panics(t, func() { a.FreeNum(op, dataBase) })
	assert.Panics(t, func() { a.FreeNum(op, dataBase+32) })
	assert.Panics(t, func() { a.FreeNum(op, dataBase+3) }, "double free")
}
