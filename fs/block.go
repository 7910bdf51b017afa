/*
 * Author: Markus Stenberg <fingon@iki.fi>
 *
 * Copyright (c) 2018 Markus Stenberg
 *
 * Created:       Mon Feb 19 10:31:09 2018 mstenber
 * Last modified: Wed Feb 21 09:12:54 2018 mstenber
 * Edit time:     84 min
 *
 */

package fs

import (
	"bytes"
	"encoding/binary"
	"fmt"

	"github.com/pkg/errors"
)

// BlockRole is what a block is used for. It is not stored on disk;
// whoever reads a block knows what it expects to find there.
type BlockRole uint8

const (
	RoleMaster BlockRole = iota
	RoleInodeTable
	RoleDirectory
	RoleData
)

func (self BlockRole) String() string {
	switch self {
	case RoleMaster:
		return "master"
	case RoleInodeTable:
		return "inode-table"
	case RoleDirectory:
		return "directory"
	case RoleData:
		return "data"
	}
	return fmt.Sprintf("role%d", uint8(self))
}

// Content is the role-specific part of a block: one of
// *MasterRecord, *InodeTable, *Directory or *Data.
type Content interface {
	Role() BlockRole
	encode(g Geometry, b []byte)
}

// Block is the decoded form of a single device block.
type Block struct {
	Next    BlockRef
	Content Content
}

type MasterRecord struct {
	// InodeBitmap has one bit per inode, MSB first within byte.
	InodeBitmap []byte
	FreeHead    BlockRef
	FreeTail    BlockRef
}

type Inode struct {
	Type     InodeType
	RefCount uint8
	Content  BlockRef
	Size     uint32
}

// unusedInode is what free inode table slots contain.
var unusedInode = Inode{Type: InodeUnused, Content: UnallocatedBlock}

type InodeTable struct {
	Inodes []Inode
}

type DirectoryEntry struct {
	Name  string
	Inode InodeRef
}

func (self DirectoryEntry) IsTombstone() bool {
	return self.Inode == UnallocatedInode
}

var tombstone = DirectoryEntry{Inode: UnallocatedInode}

type Directory struct {
	Entries []DirectoryEntry
}

type Data struct {
	Bytes []byte
}

func (self *MasterRecord) Role() BlockRole { return RoleMaster }
func (self *InodeTable) Role() BlockRole   { return RoleInodeTable }
func (self *Directory) Role() BlockRole    { return RoleDirectory }
func (self *Data) Role() BlockRole         { return RoleData }

func (self *MasterRecord) encode(g Geometry, b []byte) {
	n := copy(b, self.InodeBitmap[:g.bitmapSize()])
	binary.BigEndian.PutUint16(b[n:], uint16(self.FreeHead))
	binary.BigEndian.PutUint16(b[n+2:], uint16(self.FreeTail))
}

func (self *InodeTable) encode(g Geometry, b []byte) {
	for i, ino := range self.Inodes[:g.InodesPerBlock()] {
		r := b[i*inodeRecordSize:]
		r[0] = byte(ino.Type)
		r[1] = ino.RefCount
		binary.BigEndian.PutUint16(r[2:], uint16(ino.Content))
		binary.BigEndian.PutUint32(r[4:], ino.Size)
	}
}

func (self *Directory) encode(g Geometry, b []byte) {
	for i, e := range self.Entries[:g.DirectoryEntries()] {
		r := b[i*entrySize:]
		copy(r[:MaxNameLength], e.Name)
		binary.BigEndian.PutUint16(r[NameSize:], uint16(e.Inode))
	}
}

func (self *Data) encode(g Geometry, b []byte) {
	copy(b, self.Bytes)
}

// EncodeBlock produces the on-disk form of the block.
func (self Geometry) EncodeBlock(block *Block) []byte {
	b := make([]byte, self.BlockSize)
	binary.BigEndian.PutUint16(b, uint16(block.Next))
	block.Content.encode(self, b[nextSize:])
	return b
}

// DecodeBlock interprets raw block data in the given role.
func (self Geometry) DecodeBlock(role BlockRole, raw []byte) (*Block, error) {
	if len(raw) != self.BlockSize {
		return nil, errors.Wrapf(ErrCorrupt, "block of %d bytes, expected %d", len(raw), self.BlockSize)
	}
	block := &Block{Next: BlockRef(binary.BigEndian.Uint16(raw))}
	b := raw[nextSize:]
	switch role {
	case RoleMaster:
		n := self.bitmapSize()
		m := &MasterRecord{InodeBitmap: make([]byte, n)}
		copy(m.InodeBitmap, b)
		m.FreeHead = BlockRef(binary.BigEndian.Uint16(b[n:]))
		m.FreeTail = BlockRef(binary.BigEndian.Uint16(b[n+2:]))
		block.Content = m
	case RoleInodeTable:
		t := &InodeTable{Inodes: make([]Inode, self.InodesPerBlock())}
		for i := range t.Inodes {
			r := b[i*inodeRecordSize:]
			t.Inodes[i] = Inode{Type: InodeType(r[0]),
				RefCount: r[1],
				Content:  BlockRef(binary.BigEndian.Uint16(r[2:])),
				Size:     binary.BigEndian.Uint32(r[4:])}
		}
		block.Content = t
	case RoleDirectory:
		d := &Directory{Entries: make([]DirectoryEntry, self.DirectoryEntries())}
		for i := range d.Entries {
			r := b[i*entrySize:]
			name := r[:NameSize]
			if idx := bytes.IndexByte(name, 0); idx >= 0 {
				name = name[:idx]
			}
			d.Entries[i] = DirectoryEntry{Name: string(name),
				Inode: InodeRef(binary.BigEndian.Uint16(r[NameSize:]))}
		}
		block.Content = d
	case RoleData:
		data := &Data{Bytes: make([]byte, self.ContentSize())}
		copy(data.Bytes, b)
		block.Content = data
	default:
		return nil, errors.Errorf("unknown block role %v", role)
	}
	return block, nil
}

// newDirectory returns directory with every slot a tombstone.
func (self Geometry) newDirectory() *Directory {
	d := &Directory{Entries: make([]DirectoryEntry, self.DirectoryEntries())}
	for i := range d.Entries {
		d.Entries[i] = tombstone
	}
	return d
}

func (self Geometry) newData() *Data {
	return &Data{Bytes: make([]byte, self.ContentSize())}
}
