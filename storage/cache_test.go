/*
 * Author: Markus Stenberg <fingon@iki.fi>
 *
 * Copyright (c) 2018 Markus Stenberg
 *
 * Created:       Thu Feb 15 09:12:44 2018 mstenber
 * Last modified: Wed Mar  7 10:31:57 2018 mstenber
 * Edit time:     26 min
 *
 */

package storage

import (
	"sync"
	"testing"

	"github.com/pkg/errors"
	"github.com/stvp/assert"
)

// countingDevice is a map-backed Device that counts reads.
type countingDevice struct {
	DeviceBase
	blocks map[uint64][]byte
	reads  int
	fail   bool
}

func newCountingDevice() *countingDevice {
	self := &countingDevice{blocks: make(map[uint64][]byte)}
	self.Init(BackendConfiguration{})
	return self
}

func (self *countingDevice) ReadBlock(ref uint64) ([]byte, error) {
	if err := self.CheckRead(ref); err != nil {
		return nil, err
	}
	self.reads++
	return self.CopyBlock(self.blocks[ref]), nil
}

func (self *countingDevice) WriteBlock(ref uint64, data []byte) error {
	if err := self.CheckWrite(ref, data); err != nil {
		return err
	}
	if self.fail {
		return errors.New("injected failure")
	}
	self.blocks[ref] = self.CopyBlock(data)
	return nil
}

func (self *countingDevice) Close() error {
	return self.MarkClosed()
}

func TestCachedDevice(t *testing.T) {
	t.Parallel()
	under := newCountingDevice()
	assert.Equal(t, NewCachedDevice(under, 0), Device(under))

	dev := NewCachedDevice(under, 4)
	data := under.ZeroBlock()
	data[0] = 1
	assert.Nil(t, dev.WriteBlock(1, data))

	// write populates cache
	b, err := dev.ReadBlock(1)
	assert.Nil(t, err)
	assert.Equal(t, b[0], byte(1))
	assert.Equal(t, under.reads, 0)

	// miss goes to device once
	dev.ReadBlock(2)
	dev.ReadBlock(2)
	assert.Equal(t, under.reads, 1)

	// cached copy is not aliased to callers
	b[0] = 99
	b, _ = dev.ReadBlock(1)
	assert.Equal(t, b[0], byte(1))

	// failed write drops stale entry
	under.fail = true
	data[0] = 2
	assert.NotEqual(t, dev.WriteBlock(1, data), nil)
	b, _ = dev.ReadBlock(1)
	assert.Equal(t, b[0], byte(1))
	assert.Equal(t, under.reads, 2)

	assert.Nil(t, dev.Close())
	_, err = under.ReadBlock(1)
	assert.Equal(t, err, ErrClosed)
}

func TestCachedDeviceConcurrent(t *testing.T) {
	t.Parallel()
	under := newCountingDevice()
	dev := NewCachedDevice(under, 2)
	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func(ref uint64) {
			defer wg.Done()
			data := under.ZeroBlock()
			for j := 0; j < 50; j++ {
				data[0] = byte(j)
				assert.Nil(t, dev.WriteBlock(ref, data))
				b, err := dev.ReadBlock(ref)
				assert.Nil(t, err)
				assert.Equal(t, b[0], byte(j))
			}
		}(uint64(i))
	}
	wg.Wait()
	cd := dev.(*cachedDevice)
	assert.Equal(t, cd.hits+cd.misses, 8*50)
	assert.Equal(t, cd.misses, under.reads)
}
