/*
 * Author: Markus Stenberg <fingon@iki.fi>
 *
 * Copyright (c) 2018 Markus Stenberg
 *
 * Created:       Fri Jan  5 11:14:11 2018 mstenber
 * Last modified: Wed Feb 14 10:02:37 2018 mstenber
 * Edit time:     47 min
 *
 */

// storage package is the shadow behind the throne: it provides the
// block device the filesystem lives on. The filesystem sees only
// fixed-size blocks addressed by number; how and where they are kept
// is up to the particular backend.
package storage

import "github.com/pkg/errors"

var (
	// ErrOutOfRange is returned for block references beyond the
	// device.
	ErrOutOfRange = errors.New("block reference out of range")

	// ErrBlockSize is returned when written data is not exactly
	// one block long.
	ErrBlockSize = errors.New("data is not exactly one block")

	// ErrClosed is returned by operations on a detached device.
	ErrClosed = errors.New("device is closed")
)

// Device is the attach/read/write/detach transport of fixed-size
// blocks. Blocks that have never been written read as zeroes.
//
// Devices perform no ordering of their own beyond serializing
// concurrent callers; every write is visible to subsequent reads.
type Device interface {
	// BlockSize returns the size of every block in bytes.
	BlockSize() int

	// BlockCount returns the number of addressable blocks.
	BlockCount() int

	// ReadBlock returns a copy of the block's current content.
	ReadBlock(ref uint64) ([]byte, error)

	// WriteBlock replaces the block's content; data MUST be
	// exactly BlockSize() bytes.
	WriteBlock(ref uint64, data []byte) error

	// Close detaches from the device.
	Close() error
}

// Backend is a Device that can be set up from configuration; this is
// what factory hands out.
type Backend interface {
	Device

	// Init attaches to the storage described by config.
	Init(config BackendConfiguration) error
}

// BackendConfiguration describes where and what shape of device to
// attach to.
type BackendConfiguration struct {
	// Directory is where on-disk backends keep their files.
	Directory string

	// Name identifies the virtual disk within Directory (used by
	// backends that keep one file per disk).
	Name string

	// BlockSize and BlockCount give the device shape; zero means
	// default.
	BlockSize, BlockCount int

	// CacheSize is the number of blocks to keep in the
	// write-through cache; zero disables the cache.
	CacheSize int
}

const (
	DefaultBlockSize  = 256
	DefaultBlockCount = 128
	DefaultName       = "vdisk1"
)

// WithDefaults returns copy of the configuration with zero values
// replaced by defaults.
func (self BackendConfiguration) WithDefaults() BackendConfiguration {
	if self.BlockSize == 0 {
		self.BlockSize = DefaultBlockSize
	}
	if self.BlockCount == 0 {
		self.BlockCount = DefaultBlockCount
	}
	if self.Name == "" {
		self.Name = DefaultName
	}
	return self
}
