/*
 * Author: Markus Stenberg <fingon@iki.fi>
 *
 * Copyright (c) 2018 Markus Stenberg
 *
 * Created:       Mon Feb 19 11:14:37 2018 mstenber
 * Last modified: Wed Mar  7 09:18:02 2018 mstenber
 * Edit time:     74 min
 *
 */

// fs package implements a small inode-based filesystem on top of a
// storage.Device.
//
// Block 0 holds the master record (inode bitmap and the free block
// list), followed by the inode table, the root directory block and
// the blocks that start out on the free list. Directories occupy
// exactly one block; files are singly linked chains of data blocks.
//
// Nothing is cached between calls: every operation reads what it
// needs from the device and writes each change back immediately.
// There is no journaling, so failing device in the middle of an
// operation may leave the structures inconsistent; Check reports
// such problems.
//
// Fs is not safe for concurrent use.
package fs

import (
	"github.com/pkg/errors"

	"github.com/fingon/go-oufs/mlog"
	"github.com/fingon/go-oufs/storage"
)

type Config struct {
	// Geometry must match the one the device was formatted with;
	// zero value means DefaultGeometry.
	Geometry Geometry

	// Trace receives a line per operation and allocation; nil
	// disables tracing.
	Trace *mlog.Tracer
}

func (self Config) geometry() Geometry {
	if self.Geometry == (Geometry{}) {
		return DefaultGeometry
	}
	return self.Geometry
}

type Fs struct {
	dev      storage.Device
	geometry Geometry
	trace    *mlog.Tracer
	closed   bool

	// generation of each inode, bumped when it is freed; open
	// files of an older generation are stale.
	generation map[InodeRef]uint32
}

func checkDevice(dev storage.Device, g Geometry) error {
	if err := g.Validate(); err != nil {
		return err
	}
	if dev.BlockSize() != g.BlockSize || dev.BlockCount() < g.BlockCount {
		return errors.Wrapf(ErrInvalidGeometry, "device %dx%d cannot hold %dx%d",
			dev.BlockCount(), dev.BlockSize(), g.BlockCount, g.BlockSize)
	}
	return nil
}

// NewFs attaches to an already formatted device.
func NewFs(dev storage.Device, config Config) (*Fs, error) {
	g := config.geometry()
	if err := checkDevice(dev, g); err != nil {
		return nil, err
	}
	self := &Fs{dev: dev, geometry: g, trace: config.Trace}
	m, err := self.readMaster()
	if err != nil {
		return nil, err
	}
	if m.InodeBitmap[0]&0x80 == 0 {
		return nil, errors.Wrapf(ErrCorrupt, "root inode not allocated (unformatted?)")
	}
	self.tracef("fs.NewFs %dx%d", g.BlockCount, g.BlockSize)
	return self, nil
}

func (self *Fs) Geometry() Geometry {
	return self.geometry
}

// Close detaches the underlying device.
func (self *Fs) Close() error {
	if self.closed {
		return ErrClosed
	}
	self.tracef("fs.Close")
	self.closed = true
	return self.dev.Close()
}

func (self *Fs) tracef(format string, args ...interface{}) {
	self.trace.Printf(format, args...)
}

func (self *Fs) readRaw(ref BlockRef) ([]byte, error) {
	if self.closed {
		return nil, ErrClosed
	}
	if int(ref) >= self.geometry.BlockCount {
		return nil, errors.Wrapf(ErrCorrupt, "reference to block %v", ref)
	}
	b, err := self.dev.ReadBlock(uint64(ref))
	if err != nil {
		return nil, errors.Wrapf(err, "reading %v", ref)
	}
	return b, nil
}

func (self *Fs) writeRaw(ref BlockRef, b []byte) error {
	if self.closed {
		return ErrClosed
	}
	if int(ref) >= self.geometry.BlockCount {
		return errors.Wrapf(ErrCorrupt, "reference to block %v", ref)
	}
	if err := self.dev.WriteBlock(uint64(ref), b); err != nil {
		return errors.Wrapf(err, "writing %v", ref)
	}
	return nil
}

// ReadBlock reads and decodes a block in the given role.
func (self *Fs) ReadBlock(ref BlockRef, role BlockRole) (*Block, error) {
	b, err := self.readRaw(ref)
	if err != nil {
		return nil, err
	}
	return self.geometry.DecodeBlock(role, b)
}

func (self *Fs) writeBlock(ref BlockRef, block *Block) error {
	return self.writeRaw(ref, self.geometry.EncodeBlock(block))
}

// setNext rewrites only the link of a block, whatever its role.
func (self *Fs) setNext(ref, next BlockRef) error {
	b, err := self.readRaw(ref)
	if err != nil {
		return err
	}
	b[0] = byte(next >> 8)
	b[1] = byte(next)
	return self.writeRaw(ref, b)
}

func (self *Fs) readNext(ref BlockRef) (BlockRef, error) {
	b, err := self.readRaw(ref)
	if err != nil {
		return UnallocatedBlock, err
	}
	return BlockRef(b[0])<<8 | BlockRef(b[1]), nil
}

func (self *Fs) readMaster() (*MasterRecord, error) {
	block, err := self.ReadBlock(MasterBlock, RoleMaster)
	if err != nil {
		return nil, err
	}
	return block.Content.(*MasterRecord), nil
}

func (self *Fs) writeMaster(m *MasterRecord) error {
	return self.writeBlock(MasterBlock, &Block{Next: UnallocatedBlock, Content: m})
}

func (self *Fs) readDirectory(ref BlockRef) (*Block, *Directory, error) {
	block, err := self.ReadBlock(ref, RoleDirectory)
	if err != nil {
		return nil, nil, err
	}
	return block, block.Content.(*Directory), nil
}

func (self *Fs) readData(ref BlockRef) (*Block, *Data, error) {
	block, err := self.ReadBlock(ref, RoleData)
	if err != nil {
		return nil, nil, err
	}
	return block, block.Content.(*Data), nil
}
