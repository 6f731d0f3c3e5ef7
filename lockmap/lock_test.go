package lockmap

import (
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestAcquireRelease(t *testing.T) {
	assert := assert.New(t)
	l := MkLockMap()
	l.Acquire(7)
	l.Acquire(7 + NSHARD) // same shard, different lock
	l.Release(7)
	l.Release(7 + NSHARD)
	assert.Panics(func() { l.Release(7) }, "double release")
}

func TestAcquireWaits(t *testing.T) {
	l := MkLockMap()
	l.Acquire(5)
	got := make(chan struct{})
	go func() {
		l.Acquire(5)
		close(got)
	}()
	select {
	case <-got:
		t.Fatal("acquired a held lock")
	case <-time.After(20 * time.Millisecond):
	}
	l.Release(5)
	<-got
	l.Release(5)
}

func TestMutualExclusion(t *testing.T) {
	l := MkLockMap()
	var counter = 0
	var wg sync.WaitGroup
	for i := 0; i < 16; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for j := 0; j < 1000; j++ {
				l.Acquire(3)
				counter += 1
				l.Release(3)
			}
		}()
	}
	wg.Wait()
	assert.Equal(t, 16000, counter)
}
