package kfs

import (
	"time"
)

// Pipe opens a pipe and returns its read and write descriptors, both at
// 3 or above. It fails if the pipe table or pid's descriptor table is
// full.
func (e *Engine) Pipe(pid uint64) (int, int, bool) {
	defer e.record(OpPipe, time.Now())
	t := e.table(pid)
	i, ok := e.pipes.Alloc()
	if !ok {
		return -1, -1, false
	}
	t.mu.Lock()
	rfd := t.install(3, descriptor{typ: FdPipe, readable: true, pipe: i, sock: -1})
	wfd := -1
	if rfd != -1 {
		wfd = t.install(3, descriptor{typ: FdPipe, writable: true, pipe: i, sock: -1})
		if wfd == -1 {
			t.fds[rfd] = unusedFd
		}
	}
	t.mu.Unlock()
	if wfd == -1 {
		e.pipes.CloseReader(i)
		e.pipes.CloseWriter(i)
		return -1, -1, false
	}
	return rfd, wfd, true
}
