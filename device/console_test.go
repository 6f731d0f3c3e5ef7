package device

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestMemConsole(t *testing.T) {
	assert := assert.New(t)
	out := make([]byte, 8)
	c := NewMemConsole([]byte("input"), out)
	buf := make([]byte, 3)
	assert.Equal(uint64(3), c.Read(buf))
	assert.Equal([]byte("inp"), buf)
	assert.Equal(uint64(2), c.Read(buf), "end of input")

	assert.Equal(uint64(5), c.Write([]byte("hello")))
	assert.Equal([]byte("hello"), out[:5])
}

func TestStreamConsole(t *testing.T) {
	var out bytes.Buffer
	c := MkConsole(bytes.NewReader(nil), &out)
	c.Write([]byte("x"))
	assert.Equal(t, "x", out.String())
	assert.Equal(t, uint64(0), c.Read(make([]byte, 1)))
}
