package wal

import (
	"github.com/mit-pdos/go-kfs/common"
	"github.com/mit-pdos/go-kfs/util"
)

// sliding is the in-memory log of the group being built. Each block appears
// at most once; a later write replaces the earlier copy in place.
type sliding struct {
	log     []Update
	addrPos map[common.Bnum]uint64
}

func mkSliding() *sliding {
	return &sliding{
		log:     nil,
		addrPos: make(map[common.Bnum]uint64),
	}
}

func (s *sliding) len() uint64 {
	return uint64(len(s.log))
}

func (s *sliding) posForAddr(a common.Bnum) (uint64, bool) {
	pos, ok := s.addrPos[a]
	return pos, ok
}

func (s *sliding) get(pos uint64) Update {
	return s.log[pos]
}

// Absorbs u into an earlier write of the same block, or appends it.
//
// Assumes caller holds memLock
func (s *sliding) memWrite(u Update) {
	oldpos, ok := s.posForAddr(u.Addr)
	if ok {
		util.DPrintf(5, "memWrite: absorb %d pos %d\n", u.Addr, oldpos)
		s.log[oldpos] = u
		return
	}
	pos := uint64(len(s.log))
	util.DPrintf(5, "memWrite: add %d pos %d\n", u.Addr, pos)
	s.log = append(s.log, u)
	s.addrPos[u.Addr] = pos
}

func (s *sliding) updates() []Update {
	return s.log
}

func (s *sliding) clear() {
	s.log = nil
	s.addrPos = make(map[common.Bnum]uint64)
}
