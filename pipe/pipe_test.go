package pipe

import (
	"bytes"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestReadWrite(t *testing.T) {
	assert := assert.New(t)
	tbl := MkTable(2)
	i, ok := tbl.Alloc()
	assert.True(ok)
	assert.Equal(uint64(5), tbl.Write(i, []byte("hello")))
	buf := make([]byte, 5)
	assert.Equal(uint64(5), tbl.Read(i, buf))
	assert.Equal([]byte("hello"), buf)
}

func TestEOF(t *testing.T) {
	assert := assert.New(t)
	tbl := MkTable(1)
	i, _ := tbl.Alloc()
	tbl.Write(i, []byte("abc"))
	tbl.CloseWriter(i)
	buf := make([]byte, 10)
	assert.Equal(uint64(3), tbl.Read(i, buf), "stops at end of stream")
	assert.Equal(uint64(0), tbl.Read(i, buf))
	tbl.CloseReader(i)
	assert.Equal(uint64(0), tbl.InUse())
}

func TestWriteNoReaders(t *testing.T) {
	tbl := MkTable(1)
	i, _ := tbl.Alloc()
	tbl.CloseReader(i)
	assert.Equal(t, uint64(0), tbl.Write(i, []byte("x")))
}

func TestExhaustion(t *testing.T) {
	assert := assert.New(t)
	tbl := MkTable(2)
	_, ok := tbl.Alloc()
	assert.True(ok)
	j, ok := tbl.Alloc()
	assert.True(ok)
	_, ok = tbl.Alloc()
	assert.False(ok)
	tbl.CloseReader(j)
	tbl.CloseWriter(j)
	k, ok := tbl.Alloc()
	assert.True(ok)
	assert.Equal(j, k)
}

func TestLargeTransfer(t *testing.T) {
	tbl := MkTable(1)
	i, _ := tbl.Alloc()
	data := bytes.Repeat([]byte("0123456789"), 3*int(BufSize)/10)
	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		assert.Equal(t, uint64(len(data)), tbl.Write(i, data))
		tbl.CloseWriter(i)
	}()
	got := make([]byte, len(data)+10)
	n := tbl.Read(i, got)
	wg.Wait()
	assert.Equal(t, uint64(len(data)), n)
	assert.Equal(t, data, got[:n])
}

func TestCloseUnopened(t *testing.T) {
	tbl := MkTable(1)
	assert.Panics(t, func() { tbl.CloseReader(0) })
	assert.Panics(t, func() { tbl.OpenWriter(0) })
}
