/*
 * Author: Markus Stenberg <fingon@iki.fi>
 *
 * Copyright (c) 2018 Markus Stenberg
 *
 * Created:       Wed Jan  3 15:55:15 2018 mstenber
 * Last modified: Wed Feb 14 10:31:09 2018 mstenber
 * Edit time:     52 min
 *
 */

package storage

import (
	"os"

	"github.com/pkg/errors"
)

// DeviceBase carries the device shape and the argument checks shared
// by every backend.
type DeviceBase struct {
	Config BackendConfiguration
	closed bool
}

func (self *DeviceBase) Init(config BackendConfiguration) error {
	self.Config = config.WithDefaults()
	if self.Config.BlockSize < 1 || self.Config.BlockCount < 1 {
		return errors.Errorf("invalid device shape %dx%d",
			self.Config.BlockCount, self.Config.BlockSize)
	}
	return nil
}

func (self *DeviceBase) BlockSize() int {
	return self.Config.BlockSize
}

func (self *DeviceBase) BlockCount() int {
	return self.Config.BlockCount
}

// CheckRead validates a read request.
func (self *DeviceBase) CheckRead(ref uint64) error {
	if self.closed {
		return ErrClosed
	}
	if ref >= uint64(self.Config.BlockCount) {
		return errors.Wrapf(ErrOutOfRange, "block %d of %d", ref, self.Config.BlockCount)
	}
	return nil
}

// CheckWrite validates a write request.
func (self *DeviceBase) CheckWrite(ref uint64, data []byte) error {
	if err := self.CheckRead(ref); err != nil {
		return err
	}
	if len(data) != self.Config.BlockSize {
		return errors.Wrapf(ErrBlockSize, "got %d bytes, block is %d", len(data), self.Config.BlockSize)
	}
	return nil
}

// ZeroBlock returns a fresh never-written block.
func (self *DeviceBase) ZeroBlock() []byte {
	return make([]byte, self.Config.BlockSize)
}

// CopyBlock returns a copy of data padded or cut to block size.
func (self *DeviceBase) CopyBlock(data []byte) []byte {
	b := self.ZeroBlock()
	copy(b, data)
	return b
}

// MarkClosed makes subsequent requests fail; returns ErrClosed if it
// was already closed.
func (self *DeviceBase) MarkClosed() error {
	if self.closed {
		return ErrClosed
	}
	self.closed = true
	return nil
}

// DirectoryDeviceBase is DeviceBase of backends that keep their state
// within a directory.
type DirectoryDeviceBase struct {
	DeviceBase
	Dir string
}

func (self *DirectoryDeviceBase) Init(config BackendConfiguration) error {
	if err := self.DeviceBase.Init(config); err != nil {
		return err
	}
	if config.Directory == "" {
		return errors.New("directory not set")
	}
	self.Dir = config.Directory
	if err := os.MkdirAll(self.Dir, 0700); err != nil {
		return errors.Wrap(err, "os.MkdirAll")
	}
	return nil
}
