/*
 * Author: Markus Stenberg <fingon@iki.fi>
 *
 * Copyright (c) 2018 Markus Stenberg
 *
 * Created:       Mon Feb 19 12:02:50 2018 mstenber
 * Last modified: Wed Mar  7 09:20:44 2018 mstenber
 * Edit time:     50 min
 *
 */

package fs

import "github.com/pkg/errors"

// Allocation works on an in-memory master record; callers persist it
// with writeMaster once they are done with it.

// allocateBlock pops the head of the free list.
func (self *Fs) allocateBlock(m *MasterRecord) (BlockRef, error) {
	ref := m.FreeHead
	if ref == UnallocatedBlock {
		return UnallocatedBlock, errors.Wrapf(ErrNoSpace, "no free blocks")
	}
	next, err := self.readNext(ref)
	if err != nil {
		return UnallocatedBlock, err
	}
	m.FreeHead = next
	if next == UnallocatedBlock {
		m.FreeTail = UnallocatedBlock
	}
	self.tracef("fs.allocateBlock %v (next free %v)", ref, next)
	return ref, nil
}

// deallocateBlock appends ref to the tail of the free list, so freed
// blocks are reused in the order they were freed. The content of the
// block is left as-is.
func (self *Fs) deallocateBlock(m *MasterRecord, ref BlockRef) error {
	self.tracef("fs.deallocateBlock %v", ref)
	if m.FreeHead == UnallocatedBlock {
		m.FreeHead = ref
	} else if err := self.setNext(m.FreeTail, ref); err != nil {
		return err
	}
	m.FreeTail = ref
	return self.setNext(ref, UnallocatedBlock)
}

// allocateInode claims the lowest numbered free inode.
func (self *Fs) allocateInode(m *MasterRecord) (InodeRef, error) {
	count := self.geometry.InodeCount()
	for i, v := range m.InodeBitmap {
		if v == 0xFF {
			continue
		}
		for bit := 7; bit >= 0; bit-- {
			if v&(1<<uint(bit)) != 0 {
				continue
			}
			idx := i*8 + 7 - bit
			if idx >= count {
				break
			}
			m.InodeBitmap[i] |= 1 << uint(bit)
			self.tracef("fs.allocateInode %d", idx)
			return InodeRef(idx), nil
		}
	}
	return UnallocatedInode, errors.Wrapf(ErrNoSpace, "all %d inodes in use", count)
}

func (self *Fs) deallocateInode(m *MasterRecord, ref InodeRef) {
	self.tracef("fs.deallocateInode %v", ref)
	m.InodeBitmap[ref/8] &^= 0x80 >> (ref % 8)
	if self.generation == nil {
		self.generation = make(map[InodeRef]uint32)
	}
	self.generation[ref]++
}

func inodeAllocated(m *MasterRecord, ref InodeRef) bool {
	return m.InodeBitmap[ref/8]&(0x80>>(ref%8)) != 0
}

// Usage is a summary of free and used resources.
type Usage struct {
	FreeBlocks, DataBlocks int
	FreeInodes, Inodes     int
}

// Usage counts the free list and the inode bitmap.
func (self *Fs) Usage() (u Usage, err error) {
	g := self.geometry
	u.DataBlocks = g.DataBlocks()
	u.Inodes = g.InodeCount()
	m, err := self.readMaster()
	if err != nil {
		return
	}
	for i := 0; i < u.Inodes; i++ {
		if !inodeAllocated(m, InodeRef(i)) {
			u.FreeInodes++
		}
	}
	for ref := m.FreeHead; ref != UnallocatedBlock && u.FreeBlocks < u.DataBlocks; u.FreeBlocks++ {
		if ref, err = self.readNext(ref); err != nil {
			return
		}
	}
	return
}
