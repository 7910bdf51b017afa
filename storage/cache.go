/*
 * Author: Markus Stenberg <fingon@iki.fi>
 *
 * Copyright (c) 2018 Markus Stenberg
 *
 * Created:       Thu Feb 15 08:12:30 2018 mstenber
 * Last modified: Wed Mar  7 10:20:31 2018 mstenber
 * Edit time:     44 min
 *
 */

package storage

import (
	"github.com/bluele/gcache"

	"github.com/fingon/go-oufs/mlog"
	"github.com/fingon/go-oufs/util"
)

// cachedDevice is a write-through ARC cache of blocks in front of
// another Device. Reads that hit the cache never reach the
// underlying device; writes always do. Calls are serialized so that
// a miss cannot overwrite a newer write in the cache.
type cachedDevice struct {
	Device
	cache gcache.Cache
	lock  util.MutexLocked

	// protected by lock
	hits, misses int
}

var _ Device = &cachedDevice{}

// NewCachedDevice wraps dev with cache of size blocks. Non-positive
// size returns dev as-is.
func NewCachedDevice(dev Device, size int) Device {
	if size <= 0 {
		return dev
	}
	return &cachedDevice{Device: dev, cache: gcache.New(size).ARC().Build()}
}

func (self *cachedDevice) copyOf(data []byte) []byte {
	b := make([]byte, len(data))
	copy(b, data)
	return b
}

func (self *cachedDevice) ReadBlock(ref uint64) ([]byte, error) {
	defer self.lock.Locked()()
	v, err := self.cache.GetIFPresent(ref)
	if err == nil {
		self.hits++
		return self.copyOf(v.([]byte)), nil
	}
	self.misses++
	data, err := self.Device.ReadBlock(ref)
	if err != nil {
		return nil, err
	}
	self.cache.Set(ref, self.copyOf(data))
	return data, nil
}

func (self *cachedDevice) WriteBlock(ref uint64, data []byte) error {
	defer self.lock.Locked()()
	err := self.Device.WriteBlock(ref, data)
	if err != nil {
		self.cache.Remove(ref)
		return err
	}
	self.cache.Set(ref, self.copyOf(data))
	return nil
}

func (self *cachedDevice) Close() error {
	defer self.lock.Locked()()
	mlog.Printf2("storage/cache", "cache.Close hits:%d misses:%d", self.hits, self.misses)
	self.cache.Purge()
	return self.Device.Close()
}
