package socket

import (
	"sync"

	"github.com/mit-pdos/go-kfs/util"
)

var LoopbackIP = [4]byte{127, 0, 0, 1}

type datagram struct {
	from Addr
	data []byte
}

type sock struct {
	kind      Kind
	port      uint16
	listening bool
	peer      int   // connected TCP peer, -1 if none
	dst       *Addr // default UDP destination
	closed    bool
	inbox     []datagram // TCP: one stream chunk per entry
	backlog   []int      // pending connections of a listener
}

// Loopback is a socket layer whose only host is itself. TCP connections
// are pairs of sockets; UDP datagrams go to the socket bound to the
// destination port.
type Loopback struct {
	mu       *sync.Mutex
	cond     *sync.Cond
	socks    []*sock
	nextPort uint16
}

func MkLoopback(n uint64) *Loopback {
	mu := new(sync.Mutex)
	return &Loopback{
		mu:       mu,
		cond:     sync.NewCond(mu),
		socks:    make([]*sock, n),
		nextPort: 49152,
	}
}

// Assumes caller holds l.mu
func (l *Loopback) alloc(kind Kind) (int, bool) {
	for i, s := range l.socks {
		if s == nil {
			l.socks[i] = &sock{kind: kind, peer: -1}
			return i, true
		}
	}
	return -1, false
}

// Assumes caller holds l.mu
func (l *Loopback) lookup(s int) *sock {
	if s < 0 || s >= len(l.socks) {
		return nil
	}
	return l.socks[s]
}

// Assumes caller holds l.mu
func (l *Loopback) bound(kind Kind, port uint16) int {
	for i, s := range l.socks {
		if s != nil && s.kind == kind && s.port == port && s.peer == -1 {
			return i
		}
	}
	return -1
}

// Assumes caller holds l.mu
func (l *Loopback) ephemeral(s *sock) {
	if s.port == 0 {
		s.port = l.nextPort
		l.nextPort += 1
	}
}

func (l *Loopback) Open(kind Kind) (int, bool) {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.alloc(kind)
}

func (l *Loopback) Close(s int) bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	so := l.lookup(s)
	if so == nil {
		return false
	}
	if p := l.lookup(so.peer); p != nil {
		p.closed = true
	}
	for _, c := range so.backlog {
		if p := l.lookup(l.socks[c].peer); p != nil {
			p.closed = true
		}
		l.socks[c] = nil
	}
	l.socks[s] = nil
	l.cond.Broadcast()
	return true
}

func (l *Loopback) Bind(s int, port uint16) bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	so := l.lookup(s)
	if so == nil || port == 0 || l.bound(so.kind, port) != -1 {
		return false
	}
	so.port = port
	return true
}

func (l *Loopback) Listen(s int) bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	so := l.lookup(s)
	if so == nil || so.kind != TCP || so.port == 0 {
		return false
	}
	so.listening = true
	return true
}

// Connect links a TCP socket to a new socket queued on the listener at dst.
// A UDP socket just remembers its destination.
func (l *Loopback) Connect(s int, dst Addr) bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	so := l.lookup(s)
	if so == nil || so.peer != -1 || dst.IP != LoopbackIP {
		return false
	}
	if so.kind == UDP {
		l.ephemeral(so)
		so.dst = &dst
		return true
	}
	li := l.bound(TCP, dst.Port)
	if li == -1 {
		return false
	}
	lis := l.socks[li]
	if !lis.listening {
		return false
	}
	c, ok := l.alloc(TCP)
	if !ok {
		return false
	}
	l.ephemeral(so)
	srv := l.socks[c]
	srv.port = lis.port
	srv.peer = s
	so.peer = c
	lis.backlog = append(lis.backlog, c)
	l.cond.Broadcast()
	util.DPrintf(5, "socket %d connected to %d via %d\n", s, c, li)
	return true
}

func (l *Loopback) Accept(s int) (int, bool) {
	l.mu.Lock()
	defer l.mu.Unlock()
	for {
		so := l.lookup(s)
		if so == nil || !so.listening {
			return -1, false
		}
		if len(so.backlog) > 0 {
			c := so.backlog[0]
			so.backlog = so.backlog[1:]
			return c, true
		}
		l.cond.Wait()
	}
}

func (l *Loopback) Receive(s int, data []byte) (uint64, Addr) {
	l.mu.Lock()
	defer l.mu.Unlock()
	for {
		so := l.lookup(s)
		if so == nil {
			return 0, Addr{}
		}
		if len(so.inbox) > 0 {
			d := so.inbox[0]
			n := copy(data, d.data)
			if so.kind == TCP && n < len(d.data) {
				so.inbox[0].data = d.data[n:]
			} else {
				so.inbox = so.inbox[1:]
			}
			return uint64(n), d.from
		}
		if so.closed {
			return 0, Addr{}
		}
		l.cond.Wait()
	}
}

func (l *Loopback) Transmit(s int, data []byte, dst Addr) uint64 {
	l.mu.Lock()
	defer l.mu.Unlock()
	so := l.lookup(s)
	if so == nil || so.closed {
		return 0
	}
	var to *sock
	if so.kind == TCP {
		to = l.lookup(so.peer)
	} else {
		if so.dst != nil {
			dst = *so.dst
		}
		if dst.IP == LoopbackIP {
			to = l.lookup(l.bound(UDP, dst.Port))
		}
	}
	if to == nil {
		return 0
	}
	l.ephemeral(so)
	from := Addr{IP: LoopbackIP, Port: so.port}
	to.inbox = append(to.inbox, datagram{from: from, data: util.CloneByteSlice(data)})
	l.cond.Broadcast()
	return uint64(len(data))
}

// InUse counts open sockets.
func (l *Loopback) InUse() uint64 {
	l.mu.Lock()
	defer l.mu.Unlock()
	var n uint64
	for _, s := range l.socks {
		if s != nil {
			n += 1
		}
	}
	return n
}
