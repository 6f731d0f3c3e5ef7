package disk

import (
	"fmt"
	"sync"

	"golang.org/x/sys/unix"
)

var _ Disk = (*fileDisk)(nil)

type fileDisk struct {
	fd        int
	numBlocks uint64
}

// NewFileDisk opens (creating if needed) a disk image at path holding
// numBlocks blocks.
func NewFileDisk(path string, numBlocks uint64) (Disk, error) {
	fd, err := unix.Open(path, unix.O_RDWR|unix.O_CREAT, 0666)
	if err != nil {
		return nil, fmt.Errorf("open %s: %w", path, err)
	}
	var stat unix.Stat_t
	err = unix.Fstat(fd, &stat)
	if err != nil {
		unix.Close(fd)
		return nil, fmt.Errorf("stat %s: %w", path, err)
	}
	if (stat.Mode&unix.S_IFREG) != 0 && uint64(stat.Size) != numBlocks*BlockSize {
		err = unix.Ftruncate(fd, int64(numBlocks*BlockSize))
		if err != nil {
			unix.Close(fd)
			return nil, fmt.Errorf("truncate %s: %w", path, err)
		}
	}
	return &fileDisk{fd, numBlocks}, nil
}

func (d *fileDisk) ReadTo(a uint64, buf Block) error {
	checkBlock(buf)
	if a >= d.numBlocks {
		panic(fmt.Errorf("out-of-bounds read at %v", a))
	}
	_, err := unix.Pread(d.fd, buf, int64(a*BlockSize))
	return err
}

func (d *fileDisk) Read(a uint64) (Block, error) {
	buf := make([]byte, BlockSize)
	err := d.ReadTo(a, buf)
	return buf, err
}

func (d *fileDisk) Write(a uint64, v Block) error {
	checkBlock(v)
	if a >= d.numBlocks {
		panic(fmt.Errorf("out-of-bounds write at %v", a))
	}
	_, err := unix.Pwrite(d.fd, v, int64(a*BlockSize))
	return err
}

func (d *fileDisk) Size() (uint64, error) {
	return d.numBlocks, nil
}

func (d *fileDisk) Barrier() error {
	// NOTE: on macOS, this flushes to the drive but doesn't actually issue a
	// disk barrier; the full barrier is fcntl F_FULLFSYNC.
	return unix.Fsync(d.fd)
}

func (d *fileDisk) Close() error {
	return unix.Close(d.fd)
}

var _ Disk = (*MemDisk)(nil)

// MemDisk is a sparse in-memory disk. Blocks never written read as zero, so
// large geometries cost only what is used.
type MemDisk struct {
	l         *sync.RWMutex
	numBlocks uint64
	blocks    map[uint64]*[BlockSize]byte
	writes    uint64
	crashAt   uint64 // 0: never
}

func NewMemDisk(numBlocks uint64) *MemDisk {
	return &MemDisk{
		l:         new(sync.RWMutex),
		numBlocks: numBlocks,
		blocks:    make(map[uint64]*[BlockSize]byte),
	}
}

func (d *MemDisk) ReadTo(a uint64, buf Block) error {
	checkBlock(buf)
	d.l.RLock()
	defer d.l.RUnlock()
	if a >= d.numBlocks {
		panic(fmt.Errorf("out-of-bounds read at %v", a))
	}
	blk, ok := d.blocks[a]
	if !ok {
		for i := range buf {
			buf[i] = 0
		}
		return nil
	}
	copy(buf, blk[:])
	return nil
}

func (d *MemDisk) Read(a uint64) (Block, error) {
	buf := make(Block, BlockSize)
	err := d.ReadTo(a, buf)
	return buf, err
}

func (d *MemDisk) Write(a uint64, v Block) error {
	checkBlock(v)
	d.l.Lock()
	defer d.l.Unlock()
	if a >= d.numBlocks {
		panic(fmt.Errorf("out-of-bounds write at %v", a))
	}
	d.writes += 1
	if d.crashAt != 0 && d.writes > d.crashAt {
		// the machine is gone; the write never reaches the platter
		return nil
	}
	blk, ok := d.blocks[a]
	if !ok {
		blk = new([BlockSize]byte)
		d.blocks[a] = blk
	}
	copy(blk[:], v)
	return nil
}

func (d *MemDisk) Size() (uint64, error) {
	// this never changes so we assume it's safe to run lock-free
	return d.numBlocks, nil
}

func (d *MemDisk) Barrier() error { return nil }

func (d *MemDisk) Close() error { return nil }

// Writes reports how many block writes the disk has absorbed.
func (d *MemDisk) Writes() uint64 {
	d.l.RLock()
	defer d.l.RUnlock()
	return d.writes
}

// CrashAfter drops every write after the next n, simulating a power failure
// in the middle of whatever the caller does next.
func (d *MemDisk) CrashAfter(n uint64) {
	d.l.Lock()
	defer d.l.Unlock()
	d.crashAt = d.writes + n
}

// Snapshot returns an independent copy of the disk, as if the machine
// crashed right now.
func (d *MemDisk) Snapshot() *MemDisk {
	d.l.RLock()
	defer d.l.RUnlock()
	s := NewMemDisk(d.numBlocks)
	for a, blk := range d.blocks {
		c := *blk
		s.blocks[a] = &c
	}
	return s
}
