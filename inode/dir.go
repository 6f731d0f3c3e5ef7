package inode

import (
	"github.com/tchajed/goose/machine"

	"github.com/mit-pdos/go-kfs/common"
	"github.com/mit-pdos/go-kfs/disk"
	"github.com/mit-pdos/go-kfs/jrnl"
	"github.com/mit-pdos/go-kfs/path"
	"github.com/mit-pdos/go-kfs/util"
)

// A directory is an array of fixed-size entries. The name is stored with
// its leading slash, as path.Back returns it; an entry with inode number 0
// is free.
type dirEnt struct {
	name path.Path
	inum common.Inum
}

func encodeDirEnt(de dirEnt) []byte {
	d := make([]byte, common.DIRENTSZ)
	copy(d, de.name.Bytes())
	machine.UInt32Put(d[common.MAXNAME:], uint32(de.inum))
	return d
}

func decodeDirEnt(d []byte) dirEnt {
	return dirEnt{
		name: path.FromBytes(d[:common.MAXNAME]),
		inum: common.Inum(machine.UInt32Get(d[common.MAXNAME:])),
	}
}

func nentries(ino Inode) uint64 {
	return ino.Size / common.DIRENTSZ
}

// Assumes caller holds the inode lock
func (c *Cache) readDirEnt(op *jrnl.Op, r *Ref, i uint64) dirEnt {
	ino := r.readCached(op)
	off := i * common.DIRENTSZ
	bn := c.getBlock(op, &ino, off/disk.BlockSize)
	b := op.ReadBuf(bn)
	de := decodeDirEnt(b.Record(off%disk.BlockSize, common.DIRENTSZ))
	op.Release(b)
	return de
}

// Assumes caller holds the inode lock
func (c *Cache) writeDirEnt(op *jrnl.Op, r *Ref, i uint64, de dirEnt) {
	ino := r.readCached(op)
	off := i * common.DIRENTSZ
	bn := c.getBlock(op, &ino, off/disk.BlockSize)
	b := op.ReadBuf(bn)
	b.Install(off%disk.BlockSize, encodeDirEnt(de))
	op.Release(b)
}

// lookup scans directory r for name and returns the entry's index and
// inode number.
//
// Assumes caller holds the inode lock
func (c *Cache) lookup(op *jrnl.Op, r *Ref, name path.Path) (uint64, common.Inum, bool) {
	ino := r.readCached(op)
	if ino.Type != TypeDir {
		return 0, common.NULLINUM, false
	}
	for i := uint64(0); i < nentries(ino); i++ {
		de := c.readDirEnt(op, r, i)
		if !de.inum.IsNull() && de.name.Equal(name) {
			return i, de.inum, true
		}
	}
	return 0, common.NULLINUM, false
}

// Get resolves p from the root directory. With wantParent it resolves the
// directory that contains p's last component instead, which must exist and
// be a directory. "/" has no parent.
func (c *Cache) Get(op *jrnl.Op, p path.Path, wantParent bool) (common.Inum, bool) {
	if !p.Valid() {
		return common.NULLINUM, false
	}
	if p.IsRoot() {
		if wantParent {
			return common.NULLINUM, false
		}
		return common.ROOTINUM, true
	}
	if wantParent {
		p.PopBack()
		if p.IsRoot() {
			return common.ROOTINUM, true
		}
	}

	cur := c.Acquire(common.ROOTINUM)
	cur.Lock()
	var res = common.NULLINUM
	for {
		name := p.Front()
		p.PopFront()
		_, inum, ok := c.lookup(op, cur, name)
		if !ok {
			break
		}
		next := c.Acquire(inum)
		next.Lock()
		ino := next.readCached(op)
		if p.IsRoot() {
			if !wantParent || ino.Type == TypeDir {
				res = inum
			}
			next.Unlock()
			next.Release()
			break
		}
		cur.Unlock()
		cur.Release()
		cur = next
		if ino.Type != TypeDir {
			break
		}
	}
	cur.Unlock()
	cur.Release()
	util.DPrintf(5, "Get %v parent %v -> %d\n", p, wantParent, res)
	return res, !res.IsNull()
}

// adjustLinks adds delta to inode inum's link count.
func (c *Cache) adjustLinks(op *jrnl.Op, inum common.Inum, delta int) {
	r := c.Acquire(inum)
	r.Lock()
	ino := r.readCached(op)
	if delta < 0 && ino.Nlink == 0 {
		panic("inode.adjustLinks")
	}
	ino.Nlink = uint32(int64(ino.Nlink) + int64(delta))
	r.writeCached(op, ino)
	r.Unlock()
	r.Release()
}

// Set links inode inum into p's parent directory under p's last component
// and increments its link count. An existing entry of that name is reused,
// dropping the link of the inode it named; otherwise the first free entry
// is used, or the directory grows by one entry. Fails if p's parent does
// not resolve.
func (c *Cache) Set(op *jrnl.Op, p path.Path, inum common.Inum) bool {
	parent, ok := c.Get(op, p, true)
	if !ok {
		return false
	}
	name := p.Back()
	r := c.Acquire(parent)
	r.Lock()
	ino := r.readCached(op)
	n := nentries(ino)
	var slot = n
	var old = common.NULLINUM
	for i := uint64(0); i < n; i++ {
		de := c.readDirEnt(op, r, i)
		if de.inum.IsNull() {
			if slot == n {
				slot = i
			}
			continue
		}
		if de.name.Equal(name) {
			slot = i
			old = de.inum
			break
		}
	}
	if slot == n {
		c.resize(op, r, ino.Size+common.DIRENTSZ)
	}
	c.writeDirEnt(op, r, slot, dirEnt{name: name, inum: inum})
	r.Unlock()
	r.Release()
	util.DPrintf(5, "Set %v -> %d in %d at %d\n", p, inum, parent, slot)

	if old == inum {
		return true
	}
	if !old.IsNull() {
		c.adjustLinks(op, old, -1)
	}
	c.adjustLinks(op, inum, 1)
	return true
}

// Unset removes p's directory entry and decrements the link count of the
// inode it named. The last entry moves into the hole and the directory
// shrinks by one entry. The inode is not freed; see Deallocate.
func (c *Cache) Unset(op *jrnl.Op, p path.Path) bool {
	inum, ok := c.Get(op, p, false)
	if !ok || inum == common.ROOTINUM {
		return false
	}
	parent, ok := c.Get(op, p, true)
	if !ok {
		return false
	}
	c.adjustLinks(op, inum, -1)

	name := p.Back()
	r := c.Acquire(parent)
	r.Lock()
	i, _, found := c.lookup(op, r, name)
	if found {
		ino := r.readCached(op)
		last := nentries(ino) - 1
		if i != last {
			c.writeDirEnt(op, r, i, c.readDirEnt(op, r, last))
		}
		c.resize(op, r, ino.Size-common.DIRENTSZ)
	}
	r.Unlock()
	r.Release()
	util.DPrintf(5, "Unset %v (%d) from %d\n", p, inum, parent)
	return true
}

// DirEntry is a directory entry as listed by ReadDir.
type DirEntry struct {
	Name string
	Inum common.Inum
}

// ReadDir lists the live entries of directory inum. Names are returned
// without their leading slash.
func (c *Cache) ReadDir(op *jrnl.Op, inum common.Inum) ([]DirEntry, bool) {
	r := c.Acquire(inum)
	r.Lock()
	defer r.Release()
	defer r.Unlock()
	ino := r.readCached(op)
	if ino.Type != TypeDir {
		return nil, false
	}
	var ents []DirEntry
	for i := uint64(0); i < nentries(ino); i++ {
		de := c.readDirEnt(op, r, i)
		if de.inum.IsNull() {
			continue
		}
		ents = append(ents, DirEntry{Name: de.name.String()[1:], Inum: de.inum})
	}
	return ents, true
}
