// Package path implements the file system's fixed-size path names.
//
// A Path is a NUL-padded buffer of common.MAXNAME bytes that always starts
// with '/' and always ends with at least one NUL. Two paths are equal only
// if their buffers are byte-identical, so MkPath normalizes: a missing
// leading slash is added and empty components are dropped.
//
// Resolution peels components off either end: for "/a/b", Front is "/a",
// Back is "/b", PopFront leaves "/b" and PopBack leaves "/a". Removing the
// last component leaves the root path "/".
package path

import (
	"strings"

	"github.com/mit-pdos/go-kfs/common"
)

type Path struct {
	data [common.MAXNAME]byte
	n    uint64
}

func Root() Path {
	var p Path
	p.data[0] = '/'
	p.n = 1
	return p
}

// MkPath normalizes s. It fails if the result does not fit.
func MkPath(s string) (Path, bool) {
	var comps []string
	for _, c := range strings.Split(s, "/") {
		if c == "" {
			continue
		}
		if strings.IndexByte(c, 0) >= 0 {
			return Path{}, false
		}
		comps = append(comps, c)
	}
	norm := "/" + strings.Join(comps, "/")
	if uint64(len(norm)) >= common.MAXNAME {
		return Path{}, false
	}
	var p Path
	copy(p.data[:], norm)
	p.n = uint64(len(norm))
	return p, true
}

// FromBytes reads a path stored in a directory entry. The stored form is
// already normalized; a buffer not starting with '/' yields an empty,
// invalid Path.
func FromBytes(b []byte) Path {
	var p Path
	if len(b) == 0 || b[0] != '/' {
		return p
	}
	copy(p.data[:common.MAXNAME-1], b)
	for p.n < common.MAXNAME && p.data[p.n] != 0 {
		p.n += 1
	}
	return p
}

// Valid reports whether p starts with '/' and is NUL-terminated.
func (p Path) Valid() bool {
	return p.data[0] == '/' && p.data[common.MAXNAME-1] == 0
}

// Bytes returns the whole padded buffer.
func (p Path) Bytes() []byte {
	b := make([]byte, common.MAXNAME)
	copy(b, p.data[:])
	return b
}

func (p Path) String() string {
	return string(p.data[:p.n])
}

func (p Path) Len() uint64 {
	return p.n
}

func (p Path) IsRoot() bool {
	return p.n == 1 && p.data[0] == '/'
}

func (p Path) Equal(q Path) bool {
	return p.data == q.data
}

// firstEnd is the index just past the first component.
func (p Path) firstEnd() uint64 {
	i := uint64(1)
	for i < p.n && p.data[i] != '/' {
		i += 1
	}
	return i
}

// lastStart is the index of the slash that begins the last component.
func (p Path) lastStart() uint64 {
	i := p.n - 1
	for i > 0 && p.data[i] != '/' {
		i -= 1
	}
	return i
}

// Front is the first component, with its leading slash.
func (p Path) Front() Path {
	var q Path
	if !p.Valid() {
		return q
	}
	end := p.firstEnd()
	copy(q.data[:], p.data[:end])
	q.n = end
	return q
}

// PopFront removes the first component.
func (p *Path) PopFront() bool {
	if !p.Valid() {
		return false
	}
	end := p.firstEnd()
	var q Path
	copy(q.data[:], p.data[end:p.n])
	q.n = p.n - end
	if q.n == 0 {
		q = Root()
	}
	*p = q
	return true
}

// Back is the last component, with its leading slash.
func (p Path) Back() Path {
	var q Path
	if !p.Valid() {
		return q
	}
	start := p.lastStart()
	copy(q.data[:], p.data[start:p.n])
	q.n = p.n - start
	return q
}

// PopBack removes the last component.
func (p *Path) PopBack() bool {
	if !p.Valid() {
		return false
	}
	start := p.lastStart()
	for i := start; i < p.n; i++ {
		p.data[i] = 0
	}
	p.n = start
	if p.n == 0 {
		*p = Root()
	}
	return true
}
