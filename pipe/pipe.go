// Package pipe implements a fixed table of in-memory pipes.
//
// Each pipe is a page-sized ring buffer with reader and writer counts. A
// pipe is free when both counts are zero. Readers block while the buffer
// is empty and a writer remains; writers block while it is full and a
// reader remains.
package pipe

import (
	"sync"

	"github.com/mit-pdos/go-kfs/util"
)

const BufSize uint64 = 4096

type pipe struct {
	mu      *sync.Mutex
	cond    *sync.Cond
	buf     []byte
	r       uint64
	w       uint64
	readers uint64
	writers uint64
}

func (p *pipe) empty() bool {
	return p.r == p.w
}

func (p *pipe) full() bool {
	return (p.w+1)%BufSize == p.r
}

func (p *pipe) inUse() bool {
	return p.readers > 0 || p.writers > 0
}

type Table struct {
	mu    *sync.Mutex
	pipes []*pipe
}

func MkTable(n uint64) *Table {
	t := &Table{
		mu:    new(sync.Mutex),
		pipes: make([]*pipe, n),
	}
	for i := range t.pipes {
		mu := new(sync.Mutex)
		t.pipes[i] = &pipe{mu: mu, cond: sync.NewCond(mu)}
	}
	return t
}

// Alloc claims a free pipe with one reader and one writer.
func (t *Table) Alloc() (int, bool) {
	t.mu.Lock()
	defer t.mu.Unlock()
	for i, p := range t.pipes {
		p.mu.Lock()
		if !p.inUse() {
			p.buf = make([]byte, BufSize)
			p.r = 0
			p.w = 0
			p.readers = 1
			p.writers = 1
			p.mu.Unlock()
			util.DPrintf(5, "pipe.Alloc: %d\n", i)
			return i, true
		}
		p.mu.Unlock()
	}
	return -1, false
}

func (t *Table) get(i int) *pipe {
	if i < 0 || i >= len(t.pipes) {
		panic("pipe: bad index")
	}
	return t.pipes[i]
}

func (t *Table) OpenReader(i int) {
	p := t.get(i)
	p.mu.Lock()
	if !p.inUse() {
		p.mu.Unlock()
		panic("pipe.OpenReader: free pipe")
	}
	p.readers += 1
	p.mu.Unlock()
}

func (t *Table) OpenWriter(i int) {
	p := t.get(i)
	p.mu.Lock()
	if !p.inUse() {
		p.mu.Unlock()
		panic("pipe.OpenWriter: free pipe")
	}
	p.writers += 1
	p.mu.Unlock()
}

// release frees the buffer of a pipe nobody has open.
//
// Assumes caller holds p.mu
func (p *pipe) release() {
	if !p.inUse() {
		p.buf = nil
		p.r = 0
		p.w = 0
	}
	p.cond.Broadcast()
}

func (t *Table) CloseReader(i int) {
	p := t.get(i)
	p.mu.Lock()
	if p.readers == 0 {
		p.mu.Unlock()
		panic("pipe.CloseReader")
	}
	p.readers -= 1
	p.release()
	p.mu.Unlock()
}

func (t *Table) CloseWriter(i int) {
	p := t.get(i)
	p.mu.Lock()
	if p.writers == 0 {
		p.mu.Unlock()
		panic("pipe.CloseWriter")
	}
	p.writers -= 1
	p.release()
	p.mu.Unlock()
}

// Read fills data, waiting for writers. It returns early, with the count
// read so far, once the pipe is empty and has no writers left.
func (t *Table) Read(i int, data []byte) uint64 {
	p := t.get(i)
	p.mu.Lock()
	defer p.mu.Unlock()
	var n uint64
	for n < uint64(len(data)) {
		for p.empty() {
			if p.writers == 0 {
				return n
			}
			p.cond.Wait()
		}
		data[n] = p.buf[p.r]
		p.r = (p.r + 1) % BufSize
		n += 1
		p.cond.Broadcast()
	}
	return n
}

// Write copies data into the pipe, waiting for readers to make room. It
// returns early, with the count written so far, once no reader is left.
func (t *Table) Write(i int, data []byte) uint64 {
	p := t.get(i)
	p.mu.Lock()
	defer p.mu.Unlock()
	var n uint64
	for n < uint64(len(data)) {
		if p.readers == 0 {
			return n
		}
		if p.full() {
			p.cond.Wait()
			continue
		}
		p.buf[p.w] = data[n]
		p.w = (p.w + 1) % BufSize
		n += 1
		p.cond.Broadcast()
	}
	return n
}

// InUse counts open pipes.
func (t *Table) InUse() uint64 {
	var n uint64
	for _, p := range t.pipes {
		p.mu.Lock()
		if p.inUse() {
			n += 1
		}
		p.mu.Unlock()
	}
	return n
}
