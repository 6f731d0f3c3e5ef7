package kfs

import (
	"time"

	"github.com/mit-pdos/go-kfs/socket"
	"github.com/mit-pdos/go-kfs/util"
)

var zeroAddr socket.Addr

func (e *Engine) sockRef(s int) {
	e.sockMu.Lock()
	e.sockRefs[s] += 1
	e.sockMu.Unlock()
}

// sockUnref closes socket s in the socket layer when its last holder lets
// go of it.
func (e *Engine) sockUnref(s int) {
	e.sockMu.Lock()
	n, ok := e.sockRefs[s]
	if !ok {
		e.sockMu.Unlock()
		panic("kfs.sockUnref")
	}
	if n > 1 {
		e.sockRefs[s] = n - 1
		e.sockMu.Unlock()
		return
	}
	delete(e.sockRefs, s)
	e.sockMu.Unlock()
	e.socks.Close(s)
	util.DPrintf(5, "socket %d closed\n", s)
}

// installSock gives socket s a descriptor in pid's table, closing s if the
// table is full.
func (e *Engine) installSock(pid uint64, s int) int {
	t := e.table(pid)
	e.sockRef(s)
	t.mu.Lock()
	fd := t.install(0, descriptor{
		typ:      FdSocket,
		readable: true,
		writable: true,
		pipe:     -1,
		sock:     s,
	})
	t.mu.Unlock()
	if fd == -1 {
		e.sockUnref(s)
	}
	return fd
}

// holdSock returns the socket behind fd with a reference held for the
// duration of a call; the caller drops it with sockUnref.
func (e *Engine) holdSock(pid uint64, fd int) (int, bool) {
	t := e.table(pid)
	t.mu.Lock()
	defer t.mu.Unlock()
	d := t.get(fd)
	if d == nil || d.typ != FdSocket {
		return -1, false
	}
	e.sockRef(d.sock)
	return d.sock, true
}

// Socket opens a TCP socket if connected is set, else a UDP socket, and
// returns its descriptor or -1.
func (e *Engine) Socket(pid uint64, connected bool) int {
	defer e.record(OpSocket, time.Now())
	kind := socket.UDP
	if connected {
		kind = socket.TCP
	}
	s, ok := e.socks.Open(kind)
	if !ok {
		return -1
	}
	return e.installSock(pid, s)
}

func (e *Engine) Connect(pid uint64, fd int, dst socket.Addr) bool {
	defer e.record(OpConnect, time.Now())
	s, ok := e.holdSock(pid, fd)
	if !ok {
		return false
	}
	defer e.sockUnref(s)
	return e.socks.Connect(s, dst)
}

func (e *Engine) Bind(pid uint64, fd int, port uint16) bool {
	defer e.record(OpBind, time.Now())
	s, ok := e.holdSock(pid, fd)
	if !ok {
		return false
	}
	defer e.sockUnref(s)
	return e.socks.Bind(s, port)
}

func (e *Engine) Listen(pid uint64, fd int) bool {
	defer e.record(OpListen, time.Now())
	s, ok := e.holdSock(pid, fd)
	if !ok {
		return false
	}
	defer e.sockUnref(s)
	return e.socks.Listen(s)
}

// Accept waits for a connection on the listening socket at fd and returns
// a descriptor for it, or -1.
func (e *Engine) Accept(pid uint64, fd int) int {
	defer e.record(OpAccept, time.Now())
	s, ok := e.holdSock(pid, fd)
	if !ok {
		return -1
	}
	c, ok := e.socks.Accept(s)
	e.sockUnref(s)
	if !ok {
		return -1
	}
	return e.installSock(pid, c)
}

// Receive waits for data on fd and reports the sender.
func (e *Engine) Receive(pid uint64, fd int, data []byte) (uint64, socket.Addr) {
	defer e.record(OpReceive, time.Now())
	s, ok := e.holdSock(pid, fd)
	if !ok {
		return 0, zeroAddr
	}
	defer e.sockUnref(s)
	return e.socks.Receive(s, data)
}

// Transmit sends data to dst; connected sockets ignore dst.
func (e *Engine) Transmit(pid uint64, fd int, data []byte, dst socket.Addr) uint64 {
	defer e.record(OpTransmit, time.Now())
	s, ok := e.holdSock(pid, fd)
	if !ok {
		return 0
	}
	defer e.sockUnref(s)
	return e.socks.Transmit(s, data, dst)
}
