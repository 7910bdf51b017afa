/*
 * Author: Markus Stenberg <fingon@iki.fi>
 *
 * Copyright (c) 2017 Markus Stenberg
 *
 * Created:       Sun Dec 17 22:20:08 2017 mstenber
 * Last modified: Wed Feb 14 11:02:51 2018 mstenber
 * Edit time:     81 min
 *
 */

package inmemory

import (
	"github.com/fingon/go-oufs/mlog"
	"github.com/fingon/go-oufs/storage"
	"github.com/fingon/go-oufs/util"
)

// inMemoryBackend provides in-memory storage; blocks are just stored
// in a map and vanish on Close.
type inMemoryBackend struct {
	storage.DeviceBase
	ref2Block map[uint64][]byte
	lock      util.MutexLocked
}

var _ storage.Backend = &inMemoryBackend{}

func NewInMemoryBackend() storage.Backend {
	return &inMemoryBackend{}
}

func (self *inMemoryBackend) Init(config storage.BackendConfiguration) error {
	if err := self.DeviceBase.Init(config); err != nil {
		return err
	}
	self.ref2Block = make(map[uint64][]byte)
	return nil
}

func (self *inMemoryBackend) Close() error {
	defer self.lock.Locked()()
	self.ref2Block = nil
	return self.MarkClosed()
}

func (self *inMemoryBackend) ReadBlock(ref uint64) ([]byte, error) {
	defer self.lock.Locked()()
	if err := self.CheckRead(ref); err != nil {
		return nil, err
	}
	return self.CopyBlock(self.ref2Block[ref]), nil
}

func (self *inMemoryBackend) WriteBlock(ref uint64, data []byte) error {
	defer self.lock.Locked()()
	if err := self.CheckWrite(ref, data); err != nil {
		return err
	}
	mlog.Printf2("storage/inmemory", "im.WriteBlock %d", ref)
	self.ref2Block[ref] = self.CopyBlock(data)
	return nil
}
