/*
 * Author: Markus Stenberg <fingon@iki.fi>
 *
 * Copyright (c) 2017 Markus Stenberg
 *
 * Created:       Fri Dec 29 15:39:36 2017 mstenber
 * Last modified: Wed Mar  7 11:02:50 2018 mstenber
 * Edit time:     93 min
 *
 */

// shell package provides shell-like access to the filesystem.
//
// User carries a current working directory the way the command
// line tools do, and offers one method per command. Tests use it to
// exercise the filesystem the same way users do.
package shell

import (
	"io/ioutil"
	"os"
	"path"
	"strings"
	"time"

	"github.com/pkg/errors"

	"github.com/fingon/go-oufs/fs"
)

type User struct {
	fs  *fs.Fs
	cwd string
}

type fileInfo struct {
	name string
	size int64
	mode os.FileMode
}

func (self *fileInfo) Name() string {
	return self.name
}

func (self *fileInfo) Size() int64 {
	return self.size
}

func (self *fileInfo) Mode() os.FileMode {
	return self.mode
}

func (self *fileInfo) ModTime() time.Time {
	return time.Time{}
}

func (self *fileInfo) IsDir() bool {
	return self.Mode().IsDir()
}

func (self *fileInfo) Sys() interface{} {
	return nil
}

// FileMode returns the os.FileMode the inode is presented with.
func FileMode(ino fs.Inode) os.FileMode {
	if ino.Type == fs.InodeDirectory {
		return os.ModeDir | 0755
	}
	return 0644
}

func NewUser(f *fs.Fs) *User {
	return &User{fs: f, cwd: "/"}
}

func (self *User) Cwd() string {
	return self.cwd
}

// Cd changes the working directory.
func (self *User) Cd(p string) error {
	_, ino, err := self.fs.Stat(self.cwd, p)
	if err != nil {
		return err
	}
	if ino.Type != fs.InodeDirectory {
		return errors.Wrapf(fs.ErrNotADirectory, "%s", p)
	}
	self.cwd = path.Clean("/" + strings.Join(fs.Components(self.cwd, p), "/"))
	return nil
}

func (self *User) Ls(p string) ([]string, error) {
	return self.fs.List(self.cwd, p)
}

// ReadDir provides os.FileInfo for each entry of the directory.
func (self *User) ReadDir(dirname string) (ret []os.FileInfo, err error) {
	entries, err := self.fs.ReadDir(self.cwd, dirname)
	if err != nil {
		return
	}
	ret = make([]os.FileInfo, len(entries))
	for i, e := range entries {
		ino, err := self.fs.ReadInode(e.Inode)
		if err != nil {
			return nil, err
		}
		ret[i] = &fileInfo{name: e.Name,
			size: int64(ino.Size),
			mode: FileMode(ino)}
	}
	return
}

func (self *User) Mkdir(p string) error {
	return self.fs.Mkdir(self.cwd, p)
}

func (self *User) Rmdir(p string) error {
	return self.fs.Rmdir(self.cwd, p)
}

func (self *User) Rm(p string) error {
	return self.fs.Remove(self.cwd, p)
}

func (self *User) Link(src, dst string) error {
	return self.fs.Link(self.cwd, src, dst)
}

// Touch creates the file if it does not exist yet.
func (self *User) Touch(p string) error {
	f, err := self.fs.Open(self.cwd, p, fs.ModeAppend)
	if err != nil {
		return err
	}
	return f.Close()
}

func (self *User) write(p string, mode fs.Mode, data []byte) (int, error) {
	f, err := self.fs.Open(self.cwd, p, mode)
	if err != nil {
		return 0, err
	}
	defer f.Close()
	return f.Write(data)
}

// Create replaces the content of the file with data.
func (self *User) Create(p string, data []byte) (int, error) {
	return self.write(p, fs.ModeWrite, data)
}

// Append adds data to the end of the file.
func (self *User) Append(p string, data []byte) (int, error) {
	return self.write(p, fs.ModeAppend, data)
}

// More returns the content of the file.
func (self *User) More(p string) ([]byte, error) {
	f, err := self.fs.Open(self.cwd, p, fs.ModeRead)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	return ioutil.ReadAll(f)
}
