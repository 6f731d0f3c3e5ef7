// Package socket defines the socket layer that descriptors forward to, and
// an in-memory loopback implementation of it.
package socket

import (
	"fmt"
)

type Kind uint32

const (
	TCP Kind = 1
	UDP Kind = 2
)

type Addr struct {
	IP   [4]byte
	Port uint16
}

func (a Addr) String() string {
	return fmt.Sprintf("%d.%d.%d.%d:%d", a.IP[0], a.IP[1], a.IP[2], a.IP[3], a.Port)
}

// Layer is a socket stack addressed by socket index. Failures are reported
// as false or a zero count, as at the descriptor interface.
type Layer interface {
	Open(kind Kind) (int, bool)
	Close(s int) bool
	Connect(s int, dst Addr) bool
	Bind(s int, port uint16) bool
	Listen(s int) bool
	// Accept waits for a connection on a listening socket and returns the
	// connected socket.
	Accept(s int) (int, bool)
	// Receive waits for data and reports where it came from.
	Receive(s int, data []byte) (uint64, Addr)
	// Transmit sends data; dst is ignored on connected sockets.
	Transmit(s int, data []byte, dst Addr) uint64
}
