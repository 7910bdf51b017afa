/*
 * Author: Markus Stenberg <fingon@iki.fi>
 *
 * Copyright (c) 2018 Markus Stenberg
 *
 * Created:       Mon Feb 19 12:40:12 2018 mstenber
 * Last modified: Mon Feb 19 13:05:31 2018 mstenber
 * Edit time:     14 min
 *
 */

package fs

import "github.com/pkg/errors"

func (self *Fs) inodeBlock(ref InodeRef) (BlockRef, *Block, int, error) {
	if int(ref) >= self.geometry.InodeCount() {
		return 0, nil, 0, errors.Wrapf(ErrCorrupt, "reference to inode %v", ref)
	}
	bref, slot := self.geometry.inodeLocation(ref)
	block, err := self.ReadBlock(bref, RoleInodeTable)
	if err != nil {
		return 0, nil, 0, err
	}
	return bref, block, slot, nil
}

// ReadInode returns the inode record of ref.
func (self *Fs) ReadInode(ref InodeRef) (Inode, error) {
	_, block, slot, err := self.inodeBlock(ref)
	if err != nil {
		return Inode{}, err
	}
	return block.Content.(*InodeTable).Inodes[slot], nil
}

// WriteInode replaces the inode record of ref. The rest of the table
// block is re-read from the device first.
func (self *Fs) WriteInode(ref InodeRef, ino Inode) error {
	bref, block, slot, err := self.inodeBlock(ref)
	if err != nil {
		return err
	}
	block.Content.(*InodeTable).Inodes[slot] = ino
	return self.writeBlock(bref, block)
}
