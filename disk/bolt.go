package disk

import (
	"fmt"

	bbolt "go.etcd.io/bbolt"
)

var blocksKey = []byte("blocks")

var _ Disk = (*boltDisk)(nil)

// boltDisk stores each written block as a value in one bbolt bucket, keyed
// by the big-endian block number. Missing keys read as zero blocks.
type boltDisk struct {
	db        *bbolt.DB
	numBlocks uint64
}

func NewBoltDisk(path string, numBlocks uint64) (Disk, error) {
	db, err := bbolt.Open(path, 0600, nil)
	if err != nil {
		return nil, fmt.Errorf("bbolt.Open %s: %w", path, err)
	}
	err = db.Update(func(tx *bbolt.Tx) error {
		_, err := tx.CreateBucketIfNotExists(blocksKey)
		return err
	})
	if err != nil {
		db.Close()
		return nil, err
	}
	return &boltDisk{db: db, numBlocks: numBlocks}, nil
}

func blockKey(a uint64) []byte {
	k := make([]byte, 8)
	for i := 7; i >= 0; i-- {
		k[i] = byte(a)
		a >>= 8
	}
	return k
}

func (d *boltDisk) ReadTo(a uint64, buf Block) error {
	checkBlock(buf)
	if a >= d.numBlocks {
		panic(fmt.Errorf("out-of-bounds read at %v", a))
	}
	return d.db.View(func(tx *bbolt.Tx) error {
		v := tx.Bucket(blocksKey).Get(blockKey(a))
		if v == nil {
			for i := range buf {
				buf[i] = 0
			}
			return nil
		}
		copy(buf, v)
		return nil
	})
}

func (d *boltDisk) Read(a uint64) (Block, error) {
	buf := make(Block, BlockSize)
	err := d.ReadTo(a, buf)
	return buf, err
}

func (d *boltDisk) Write(a uint64, v Block) error {
	checkBlock(v)
	if a >= d.numBlocks {
		panic(fmt.Errorf("out-of-bounds write at %v", a))
	}
	return d.db.Update(func(tx *bbolt.Tx) error {
		return tx.Bucket(blocksKey).Put(blockKey(a), v)
	})
}

func (d *boltDisk) Size() (uint64, error) {
	return d.numBlocks, nil
}

// Barrier is a no-op: every Write is its own fsynced bbolt transaction.
func (d *boltDisk) Barrier() error {
	return nil
}

func (d *boltDisk) Close() error {
	return d.db.Close()
}
