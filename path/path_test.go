package path

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/mit-pdos/go-kfs/common"
)

func mk(t *testing.T, s string) Path {
	p, ok := MkPath(s)
	assert.True(t, ok, "MkPath(%q)", s)
	return p
}

func TestNormalize(t *testing.T) {
	assert := assert.New(t)
	assert.Equal("/a/b", mk(t, "a/b").String())
	assert.Equal("/a/b", mk(t, "//a///b/").String())
	assert.Equal("/", mk(t, "").String())
	assert.True(mk(t, "a").Equal(mk(t, "/a")))
	assert.False(mk(t, "/a").Equal(mk(t, "/ab")))
	assert.True(mk(t, "/").IsRoot())
	assert.True(mk(t, "/x").Valid())
}

func TestTooLong(t *testing.T) {
	_, ok := MkPath("/" + strings.Repeat("x", int(common.MAXNAME)-2))
	assert.True(t, ok)
	_, ok = MkPath("/" + strings.Repeat("x", int(common.MAXNAME)-1))
	assert.False(t, ok)
	_, ok = MkPath("/a\x00b")
	assert.False(t, ok)
}

func TestFrontPopFront(t *testing.T) {
	assert := assert.New(t)
	p := mk(t, "/a/bc/d")
	assert.Equal("/a", p.Front().String())
	assert.True(p.PopFront())
	assert.Equal("/bc/d", p.String())
	assert.Equal("/bc", p.Front().String())
	p.PopFront()
	assert.Equal("/d", p.String())
	p.PopFront()
	assert.True(p.IsRoot())
	assert.True(p.Equal(Root()), "buffer is fully reset")
}

func TestBackPopBack(t *testing.T) {
	assert := assert.New(t)
	p := mk(t, "/a/bc/d")
	assert.Equal("/d", p.Back().String())
	assert.True(p.PopBack())
	assert.True(p.Equal(mk(t, "/a/bc")))
	assert.Equal("/bc", p.Back().String())
	p.PopBack()
	p.PopBack()
	assert.True(p.IsRoot())
}

func TestInvalid(t *testing.T) {
	var p Path
	assert.False(t, p.Valid())
	assert.False(t, p.PopFront())
	assert.False(t, p.PopBack())
	assert.False(t, p.Front().Valid())
}

func TestBytesRoundTrip(t *testing.T) {
	assert := assert.New(t)
	p := mk(t, "/name")
	b := p.Bytes()
	assert.Equal(int(common.MAXNAME), len(b))
	q := FromBytes(b)
	assert.True(p.Equal(q))
	assert.Equal(uint64(5), q.Len())
	assert.False(FromBytes(make([]byte, common.MAXNAME)).Valid())
}
