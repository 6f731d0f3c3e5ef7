package super

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/mit-pdos/go-kfs/common"
	"github.com/mit-pdos/go-kfs/disk"
)

func TestDefaultLayout(t *testing.T) {
	assert := assert.New(t)
	fs := MkFsSuper(256, 65536)
	assert.Equal(common.Bnum(65), fs.InodeStart())
	assert.Equal(uint64(4), fs.NInodeBlk())
	assert.Equal(common.Bnum(69), fs.BitmapStart())
	assert.Equal(uint64(2), fs.NBitmapBlk())
	assert.Equal(common.Bnum(71), fs.DataStart())
	assert.Equal(uint64(71+65536), fs.NBlocks())
}

func TestInum2Addr(t *testing.T) {
	assert := assert.New(t)
	fs := MkFsSuper(256, 65536)
	a := fs.Inum2Addr(common.ROOTINUM)
	assert.Equal(common.Bnum(65), a.Blkno)
	assert.Equal(common.INODESZ, a.Off)

	a = fs.Inum2Addr(common.Inum(common.INODEBLK + 2))
	assert.Equal(common.Bnum(66), a.Blkno)
	assert.Equal(2*common.INODESZ, a.Off)
	assert.True(a.Off+common.INODESZ <= disk.BlockSize)

	assert.Panics(func() { fs.Inum2Addr(256) })
}

func TestSmallLayout(t *testing.T) {
	fs := MkFsSuper(10, 100)
	assert.Equal(t, uint64(1), fs.NInodeBlk())
	assert.Equal(t, uint64(1), fs.NBitmapBlk())
}
