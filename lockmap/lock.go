// lockmap is a sharded lock map.
//
// The API is as if LockMap consisted of a sleep lock for every possible
// uint64 (block numbers, inode numbers); LockMap.Acquire(a) acquires the
// lock associated with a and LockMap.Release(a) releases it.
//
// Only held locks have state. Shard i keeps the state of every a with
// a % NSHARD == i, so unrelated acquisitions rarely contend.
package lockmap

import (
	"sync"
)

type lockState struct {
	held    bool
	cond    *sync.Cond
	waiters uint64
}

type lockShard struct {
	mu    *sync.Mutex
	state map[uint64]*lockState
}

func mkLockShard() *lockShard {
	mu := new(sync.Mutex)
	return &lockShard{
		mu:    mu,
		state: make(map[uint64]*lockState),
	}
}

func (lmap *lockShard) acquire(addr uint64) {
	lmap.mu.Lock()
	state, ok := lmap.state[addr]
	if !ok {
		state = &lockState{
			held:    false,
			cond:    sync.NewCond(lmap.mu),
			waiters: 0,
		}
		lmap.state[addr] = state
	}
	for state.held {
		state.waiters += 1
		state.cond.Wait()
		state.waiters -= 1
	}
	state.held = true
	lmap.mu.Unlock()
}

func (lmap *lockShard) release(addr uint64) {
	lmap.mu.Lock()
	state, ok := lmap.state[addr]
	if !ok || !state.held {
		lmap.mu.Unlock()
		panic("release")
	}
	state.held = false
	if state.waiters > 0 {
		state.cond.Signal()
	} else {
		delete(lmap.state, addr)
	}
	lmap.mu.Unlock()
}

const NSHARD uint64 = 43

type LockMap struct {
	shards []*lockShard
}

func MkLockMap() *LockMap {
	var shards []*lockShard
	for i := uint64(0); i < NSHARD; i++ {
		shards = append(shards, mkLockShard())
	}
	return &LockMap{
		shards: shards,
	}
}

func (lmap *LockMap) Acquire(flataddr uint64) {
	lmap.shards[flataddr%NSHARD].acquire(flataddr)
}

func (lmap *LockMap) Release(flataddr uint64) {
	lmap.shards[flataddr%NSHARD].release(flataddr)
}
