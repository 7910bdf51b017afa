/*
 * Author: Markus Stenberg <fingon@iki.fi>
 *
 * Copyright (c) 2018 Markus Stenberg
 *
 * Created:       Wed Jan  3 15:44:41 2018 mstenber
 * Last modified: Wed Feb 14 13:02:19 2018 mstenber
 * Edit time:     96 min
 *
 */

package file

import (
	"fmt"
	"io/ioutil"
	"os"

	"github.com/pkg/errors"

	"github.com/fingon/go-oufs/mlog"
	"github.com/fingon/go-oufs/storage"
)

// fileBackend stores the blocks in file directory hierarchy.
//
// - <dir>/<name>/<xx>/<xxxx> contains the raw block, where xx is the
// hex dumped high byte of the 16-bit block number and xxxx the whole
// number. Missing file = never written block.
type fileBackend struct {
	storage.DirectoryDeviceBase
	created map[string]bool
}

var _ storage.Backend = &fileBackend{}

func NewFileBackend() storage.Backend {
	return &fileBackend{}
}

func (self *fileBackend) Init(config storage.BackendConfiguration) error {
	if err := self.DirectoryDeviceBase.Init(config); err != nil {
		return err
	}
	self.created = make(map[string]bool)
	return nil
}

func (self *fileBackend) Close() error {
	return self.MarkClosed()
}

func (self *fileBackend) mkdirAll(path string) error {
	if self.created[path] {
		return nil
	}
	if err := os.MkdirAll(path, 0700); err != nil {
		return errors.Wrap(err, "os.MkdirAll")
	}
	self.created[path] = true
	return nil
}

func (self *fileBackend) blockPath(ref uint64) (dir string, full string) {
	dir = fmt.Sprintf("%s/%s/%02x", self.Dir, self.Config.Name, (ref>>8)&0xff)
	full = fmt.Sprintf("%s/%04x", dir, ref)
	return
}

func (self *fileBackend) ReadBlock(ref uint64) ([]byte, error) {
	if err := self.CheckRead(ref); err != nil {
		return nil, err
	}
	_, path := self.blockPath(ref)
	b, err := ioutil.ReadFile(path)
	if os.IsNotExist(err) {
		return self.ZeroBlock(), nil
	}
	if err != nil {
		return nil, errors.Wrap(err, "ioutil.ReadFile")
	}
	return self.CopyBlock(b), nil
}

func (self *fileBackend) WriteBlock(ref uint64, data []byte) error {
	if err := self.CheckWrite(ref, data); err != nil {
		return err
	}
	dir, path := self.blockPath(ref)
	if err := self.mkdirAll(dir); err != nil {
		return err
	}
	if err := ioutil.WriteFile(path, data, 0600); err != nil {
		return errors.Wrap(err, "ioutil.WriteFile")
	}
	mlog.Printf2("storage/file/file", "fbb.WriteBlock %d to %v", ref, path)
	return nil
}
