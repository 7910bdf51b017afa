/*
 * Author: Markus Stenberg <fingon@iki.fi>
 *
 * Copyright (c) 2018 Markus Stenberg
 *
 * Created:       Wed Feb 14 13:20:02 2018 mstenber
 * Last modified: Wed Feb 14 14:11:38 2018 mstenber
 * Edit time:     41 min
 *
 */

// image package keeps the whole virtual disk in one flat file, block
// n at byte offset n * BlockSize.
package image

import (
	"fmt"
	"os"

	"github.com/pkg/errors"

	"github.com/fingon/go-oufs/mlog"
	"github.com/fingon/go-oufs/storage"
	"github.com/fingon/go-oufs/util"
)

type imageBackend struct {
	storage.DirectoryDeviceBase
	f    *os.File
	lock util.MutexLocked
}

var _ storage.Backend = &imageBackend{}

func NewImageBackend() storage.Backend {
	return &imageBackend{}
}

// Path returns the image file used for the given configuration.
func Path(config storage.BackendConfiguration) string {
	config = config.WithDefaults()
	return fmt.Sprintf("%s/%s.img", config.Directory, config.Name)
}

func (self *imageBackend) Init(config storage.BackendConfiguration) error {
	if err := self.DirectoryDeviceBase.Init(config); err != nil {
		return err
	}
	f, err := os.OpenFile(Path(self.Config), os.O_RDWR|os.O_CREATE, 0600)
	if err != nil {
		return errors.Wrap(err, "os.OpenFile")
	}
	size := int64(self.BlockSize()) * int64(self.BlockCount())
	fi, err := f.Stat()
	if err == nil && fi.Size() < size {
		// sparse extension reads back as zeroes
		err = f.Truncate(size)
	}
	if err != nil {
		f.Close()
		return errors.Wrap(err, "sizing image")
	}
	self.f = f
	return nil
}

func (self *imageBackend) Close() error {
	defer self.lock.Locked()()
	if err := self.MarkClosed(); err != nil {
		return err
	}
	return self.f.Close()
}

func (self *imageBackend) offset(ref uint64) int64 {
	return int64(ref) * int64(self.BlockSize())
}

func (self *imageBackend) ReadBlock(ref uint64) ([]byte, error) {
	defer self.lock.Locked()()
	if err := self.CheckRead(ref); err != nil {
		return nil, err
	}
	b := self.ZeroBlock()
	if _, err := self.f.ReadAt(b, self.offset(ref)); err != nil {
		return nil, errors.Wrapf(err, "ReadAt block %d", ref)
	}
	return b, nil
}

func (self *imageBackend) WriteBlock(ref uint64, data []byte) error {
	defer self.lock.Locked()()
	if err := self.CheckWrite(ref, data); err != nil {
		return err
	}
	mlog.Printf2("storage/image/image", "img.WriteBlock %d", ref)
	if _, err := self.f.WriteAt(data, self.offset(ref)); err != nil {
		return errors.Wrapf(err, "WriteAt block %d", ref)
	}
	return nil
}
