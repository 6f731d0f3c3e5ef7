// Package device provides the character device behind the standard input
// and output descriptors.
package device

import (
	"io"
	"sync"

	"github.com/noxer/bytewriter"
	"github.com/xaionaro-go/bytesextra"
)

// Console is a byte stream device. Reads wait for input; writes go out as
// they are.
type Console struct {
	mu *sync.Mutex
	in io.Reader
	w  io.Writer
}

func MkConsole(in io.Reader, out io.Writer) *Console {
	return &Console{mu: new(sync.Mutex), in: in, w: out}
}

// NewMemConsole reads from input and writes into out, which bounds the
// output.
func NewMemConsole(input []byte, out []byte) *Console {
	return MkConsole(bytesextra.NewReadWriteSeeker(input), bytewriter.New(out))
}

// Read fills data from the input, stopping early at end of input.
func (c *Console) Read(data []byte) uint64 {
	c.mu.Lock()
	defer c.mu.Unlock()
	n, _ := io.ReadFull(c.in, data)
	return uint64(n)
}

// Write returns how many bytes the device took.
func (c *Console) Write(data []byte) uint64 {
	c.mu.Lock()
	defer c.mu.Unlock()
	n, _ := c.w.Write(data)
	return uint64(n)
}
