/*
 * Author: Markus Stenberg <fingon@iki.fi>
 *
 * Copyright (c) 2018 Markus Stenberg
 *
 * Created:       Mon Feb 19 10:02:11 2018 mstenber
 * Last modified: Tue Feb 20 14:47:30 2018 mstenber
 * Edit time:     58 min
 *
 */

package fs

import (
	"fmt"

	"github.com/pkg/errors"

	"github.com/fingon/go-oufs/util"
)

// BlockRef identifies a block on the device.
type BlockRef uint16

// InodeRef identifies a slot in the inode table.
type InodeRef uint16

const (
	UnallocatedBlock BlockRef = 0xFFFF
	UnallocatedInode InodeRef = 0xFFFF

	MasterBlock BlockRef = 0
	RootInode   InodeRef = 0
)

func (self BlockRef) String() string {
	if self == UnallocatedBlock {
		return "-"
	}
	return fmt.Sprintf("b%d", uint16(self))
}

func (self InodeRef) String() string {
	if self == UnallocatedInode {
		return "-"
	}
	return fmt.Sprintf("i%d", uint16(self))
}

// On-disk record sizes.
const (
	nextSize        = 2
	NameSize        = 14
	MaxNameLength   = NameSize - 1
	entrySize       = NameSize + 2
	inodeRecordSize = 8
	masterFreeSize  = 4

	maxRefCount = 0xFF
)

type InodeType uint8

const (
	InodeUnused InodeType = iota
	InodeDirectory
	InodeFile
)

func (self InodeType) String() string {
	switch self {
	case InodeUnused:
		return "unused"
	case InodeDirectory:
		return "directory"
	case InodeFile:
		return "file"
	}
	return fmt.Sprintf("type%d", uint8(self))
}

// Geometry describes the shape of the filesystem on the device. It is
// not stored on disk; the same geometry has to be used for format and
// for every subsequent attach.
type Geometry struct {
	BlockSize     int
	BlockCount    int
	InodeBlocks   int
	MaxFileBlocks int
}

var DefaultGeometry = Geometry{
	BlockSize:     256,
	BlockCount:    128,
	InodeBlocks:   4,
	MaxFileBlocks: 15,
}

// ContentSize is the payload of a block after the next link.
func (self Geometry) ContentSize() int {
	return self.BlockSize - nextSize
}

func (self Geometry) InodesPerBlock() int {
	return self.ContentSize() / inodeRecordSize
}

func (self Geometry) InodeCount() int {
	return self.InodesPerBlock() * self.InodeBlocks
}

func (self Geometry) DirectoryEntries() int {
	return self.ContentSize() / entrySize
}

func (self Geometry) bitmapSize() int {
	return util.CeilDiv(self.InodeCount(), 8)
}

func (self Geometry) RootDirectoryBlock() BlockRef {
	return BlockRef(1 + self.InodeBlocks)
}

// FirstDataBlock is the first block that starts out on the free list.
func (self Geometry) FirstDataBlock() BlockRef {
	return self.RootDirectoryBlock() + 1
}

// DataBlocks is the number of blocks managed by the free list.
func (self Geometry) DataBlocks() int {
	return self.BlockCount - int(self.FirstDataBlock())
}

func (self Geometry) MaxFileSize() int {
	return self.MaxFileBlocks * self.ContentSize()
}

// inodeLocation returns the table block and the slot within it.
func (self Geometry) inodeLocation(ref InodeRef) (BlockRef, int) {
	per := self.InodesPerBlock()
	return BlockRef(1 + int(ref)/per), int(ref) % per
}

func (self Geometry) Validate() error {
	switch {
	case self.BlockSize < nextSize+2*entrySize:
		return errors.Wrapf(ErrInvalidGeometry, "block size %d too small", self.BlockSize)
	case self.InodeBlocks < 1:
		return errors.Wrapf(ErrInvalidGeometry, "no inode blocks")
	case self.InodeCount() >= int(UnallocatedInode):
		return errors.Wrapf(ErrInvalidGeometry, "%d inodes do not fit references", self.InodeCount())
	case self.bitmapSize()+masterFreeSize > self.ContentSize():
		return errors.Wrapf(ErrInvalidGeometry, "bitmap of %d inodes does not fit master", self.InodeCount())
	case self.BlockCount >= int(UnallocatedBlock):
		return errors.Wrapf(ErrInvalidGeometry, "%d blocks do not fit references", self.BlockCount)
	case self.DataBlocks() < 1:
		return errors.Wrapf(ErrInvalidGeometry, "no data blocks in %d", self.BlockCount)
	case self.MaxFileBlocks < 1:
		return errors.Wrapf(ErrInvalidGeometry, "files may not be empty")
	}
	return nil
}
