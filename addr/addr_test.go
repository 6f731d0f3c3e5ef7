package addr

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/mit-pdos/go-kfs/common"
)

func TestRecordAddr(t *testing.T) {
	assert := assert.New(t)
	assert.Equal(MkAddr(65, 0), MkRecordAddr(65, 0, common.INODESZ))
	assert.Equal(MkAddr(65, 63*64), MkRecordAddr(65, 63, common.INODESZ))
	assert.Equal(MkAddr(66, 0), MkRecordAddr(65, 64, common.INODESZ), "64 inodes per block")
	assert.Equal(MkAddr(10, 128), MkRecordAddr(10, 1, common.DIRENTSZ))
}

func TestBitAddr(t *testing.T) {
	assert := assert.New(t)
	assert.Equal(MkAddr(69, 5), MkBitAddr(69, 5))
	assert.Equal(MkAddr(70, 1), MkBitAddr(69, common.NBITBLOCK+1))
}

func TestFlatid(t *testing.T) {
	assert.NotEqual(t, MkAddr(1, 0).Flatid(), MkAddr(0, 4095).Flatid())
	assert.Equal(t, uint64(4096+64), MkAddr(1, 64).Flatid())
}
