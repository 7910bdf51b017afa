/*
 * Author: Markus Stenberg <fingon@iki.fi>
 *
 * Copyright (c) 2018 Markus Stenberg
 *
 * Created:       Tue Feb 20 11:41:55 2018 mstenber
 * Last modified: Tue Feb 20 12:30:08 2018 mstenber
 * Edit time:     28 min
 *
 */

package fs

import (
	"github.com/fingon/go-oufs/mlog"
	"github.com/fingon/go-oufs/storage"
)

// Format writes an empty filesystem of geometry g (zero value means
// DefaultGeometry) to dev. Everything previously on the device is
// lost.
func Format(dev storage.Device, g Geometry) error {
	if g == (Geometry{}) {
		g = DefaultGeometry
	}
	if err := checkDevice(dev, g); err != nil {
		return err
	}
	mlog.Printf2("fs/format", "fs.Format %dx%d", g.BlockCount, g.BlockSize)
	self := &Fs{dev: dev, geometry: g}
	zero := make([]byte, g.BlockSize)
	for i := 0; i < g.BlockCount; i++ {
		if err := self.writeRaw(BlockRef(i), zero); err != nil {
			return err
		}
	}

	first := g.FirstDataBlock()
	last := BlockRef(g.BlockCount - 1)
	m := &MasterRecord{InodeBitmap: make([]byte, g.bitmapSize()),
		FreeHead: first,
		FreeTail: last}
	m.InodeBitmap[0] = 0x80
	if err := self.writeMaster(m); err != nil {
		return err
	}

	for i := 0; i < g.InodeBlocks; i++ {
		t := &InodeTable{Inodes: make([]Inode, g.InodesPerBlock())}
		for j := range t.Inodes {
			t.Inodes[j] = unusedInode
		}
		err := self.writeBlock(BlockRef(1+i), &Block{Next: UnallocatedBlock, Content: t})
		if err != nil {
			return err
		}
	}

	root, block := g.initDirectory(g.RootDirectoryBlock(), RootInode, RootInode)
	if err := self.writeBlock(g.RootDirectoryBlock(), block); err != nil {
		return err
	}
	if err := self.WriteInode(RootInode, root); err != nil {
		return err
	}

	for ref := first; ref <= last; ref++ {
		next := ref + 1
		if ref == last {
			next = UnallocatedBlock
		}
		if err := self.setNext(ref, next); err != nil {
			return err
		}
	}
	return nil
}
