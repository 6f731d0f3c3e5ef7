package bcache

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/mit-pdos/go-kfs/common"
	"github.com/mit-pdos/go-kfs/disk"
	"github.com/mit-pdos/go-kfs/wal"
)

func mkCache(sz uint64) (*disk.MemDisk, *wal.Walog, *Cache) {
	d := disk.NewMemDisk(1000)
	log := wal.MkLog(d)
	return d, log, MkCache(log, sz)
}

func bn(i uint64) common.Bnum {
	return wal.LOGDISKBLOCKS + i
}

func TestHitMiss(t *testing.T) {
	assert := assert.New(t)
	_, _, c := mkCache(4)
	b := c.Acquire(bn(1))
	assert.Equal(bn(1), b.Blkno)
	c.Release(b, false)
	b = c.Acquire(bn(1))
	c.Release(b, false)
	hits, misses := c.Stats()
	assert.Equal(uint64(1), hits)
	assert.Equal(uint64(1), misses)
}

func TestDirtyReleaseGoesToLog(t *testing.T) {
	assert := assert.New(t)
	d, log, c := mkCache(4)
	log.BeginOp(1)
	b := c.Acquire(bn(2))
	b.Data[0] = 42
	c.Release(b, true)
	blk, _ := d.Read(bn(2))
	assert.Equal(byte(0), blk[0], "not installed before commit")
	log.EndOp()
	blk, _ = d.Read(bn(2))
	assert.Equal(byte(42), blk[0])
}

func TestEvictedBlockRereadsFromLog(t *testing.T) {
	assert := assert.New(t)
	_, log, c := mkCache(2)
	log.BeginOp(1)
	b := c.Acquire(bn(1))
	b.Data[7] = 9
	c.Release(b, true)
	// push bn(1) out of the two-slot cache inside the same open group
	for i := uint64(2); i < 5; i++ {
		c.Release(c.Acquire(bn(i)), false)
	}
	b = c.Acquire(bn(1))
	assert.Equal(byte(9), b.Data[7], "uncommitted write survives eviction")
	c.Release(b, false)
	log.EndOp()
}

func TestLRUOrder(t *testing.T) {
	assert := assert.New(t)
	_, _, c := mkCache(2)
	c.Release(c.Acquire(bn(1)), false)
	c.Release(c.Acquire(bn(2)), false)
	c.Release(c.Acquire(bn(1)), false) // 2 is now least recent
	c.Release(c.Acquire(bn(3)), false) // evicts 2
	_, ok := c.index[bn(2)]
	assert.False(ok)
	_, ok = c.index[bn(1)]
	assert.True(ok)
}

func TestExhaustion(t *testing.T) {
	_, _, c := mkCache(2)
	c.Acquire(bn(1))
	c.Acquire(bn(2))
	assert.Panics(t, func() { c.Acquire(bn(3)) })
}

func TestAcquireZero(t *testing.T) {
	_, _, c := mkCache(2)
	assert.Panics(t, func() { c.Acquire(common.NULLBNUM) })
}

func TestExclusivePin(t *testing.T) {
	assert := assert.New(t)
	_, _, c := mkCache(4)
	b := c.Acquire(bn(1))
	got := make(chan byte)
	go func() {
		b2 := c.Acquire(bn(1))
		got <- b2.Data[0]
		c.Release(b2, false)
	}()
	b.Data[0] = 5
	c.Release(b, false)
	assert.Equal(byte(5), <-got, "second pin sees the first holder's copy")
}
