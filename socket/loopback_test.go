package socket

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestTCP(t *testing.T) {
	assert := assert.New(t)
	l := MkLoopback(8)
	srv, ok := l.Open(TCP)
	assert.True(ok)
	assert.True(l.Bind(srv, 80))
	assert.True(l.Listen(srv))

	cli, _ := l.Open(TCP)
	assert.True(l.Connect(cli, Addr{IP: LoopbackIP, Port: 80}))
	conn, ok := l.Accept(srv)
	assert.True(ok)

	assert.Equal(uint64(5), l.Transmit(cli, []byte("hello"), Addr{}))
	buf := make([]byte, 3)
	n, from := l.Receive(conn, buf)
	assert.Equal(uint64(3), n)
	assert.Equal([]byte("hel"), buf)
	assert.Equal(LoopbackIP, from.IP)
	n, _ = l.Receive(conn, buf)
	assert.Equal(uint64(2), n, "rest of the stream")

	assert.True(l.Close(cli))
	n, _ = l.Receive(conn, buf)
	assert.Equal(uint64(0), n, "peer closed")
	assert.Equal(uint64(0), l.Transmit(conn, []byte("x"), Addr{}))
}

func TestConnectRefused(t *testing.T) {
	assert := assert.New(t)
	l := MkLoopback(4)
	s, _ := l.Open(TCP)
	assert.False(l.Connect(s, Addr{IP: LoopbackIP, Port: 81}))
	srv, _ := l.Open(TCP)
	l.Bind(srv, 81)
	assert.False(l.Connect(s, Addr{IP: LoopbackIP, Port: 81}), "not listening")
	assert.False(l.Bind(s, 81), "port taken")
	assert.False(l.Listen(99))
}

func TestUDP(t *testing.T) {
	assert := assert.New(t)
	l := MkLoopback(4)
	a, _ := l.Open(UDP)
	b, _ := l.Open(UDP)
	assert.True(l.Bind(b, 53))
	dst := Addr{IP: LoopbackIP, Port: 53}
	assert.Equal(uint64(4), l.Transmit(a, []byte("ping"), dst))
	buf := make([]byte, 2)
	n, from := l.Receive(b, buf)
	assert.Equal(uint64(2), n)
	assert.NotEqual(uint16(0), from.Port)
	assert.Equal(uint64(0), l.Transmit(a, []byte("x"), Addr{IP: [4]byte{10, 0, 0, 1}, Port: 53}))

	assert.True(l.Connect(a, dst))
	l.Transmit(a, []byte("pong"), Addr{})
	buf = make([]byte, 8)
	n, _ = l.Receive(b, buf)
	assert.Equal("pong", string(buf[:n]), "truncated datagram was dropped")
}

func TestExhaustion(t *testing.T) {
	l := MkLoopback(1)
	s, ok := l.Open(UDP)
	assert.True(t, ok)
	_, ok = l.Open(UDP)
	assert.False(t, ok)
	l.Close(s)
	assert.Equal(t, uint64(0), l.InUse())
}
