/*
 * Author: Markus Stenberg <fingon@iki.fi>
 *
 * Copyright (c) 2018 Markus Stenberg
 *
 * Created:       Mon Feb 26 09:40:02 2018 mstenber
 * Last modified: Wed Mar  7 09:48:30 2018 mstenber
 * Edit time:     117 min
 *
 */

// fusefs package presents fs.Fs as a path-based FUSE filesystem.
//
// The filesystem has no permissions, timestamps or rename; those
// operations are not supported. Files can be written only
// sequentially.
package fusefs

import (
	"fmt"
	"io"
	"os"
	"syscall"

	"github.com/hanwen/go-fuse/fuse"
	"github.com/hanwen/go-fuse/fuse/nodefs"
	"github.com/hanwen/go-fuse/fuse/pathfs"
	"github.com/pkg/errors"

	"github.com/fingon/go-oufs/fs"
	"github.com/fingon/go-oufs/mlog"
	"github.com/fingon/go-oufs/util"
)

type fileSystem struct {
	pathfs.FileSystem
	fs   *fs.Fs
	lock util.MutexLocked
}

var _ pathfs.FileSystem = &fileSystem{}

// NewFileSystem wraps f; all access to f has to go through the
// returned filesystem from then on.
func NewFileSystem(f *fs.Fs) pathfs.FileSystem {
	return &fileSystem{FileSystem: pathfs.NewDefaultFileSystem(), fs: f}
}

// Status converts filesystem errors to FUSE status codes.
func Status(err error) fuse.Status {
	if err == nil {
		return fuse.OK
	}
	switch errors.Cause(err) {
	case fs.ErrNotFound:
		return fuse.ENOENT
	case fs.ErrAlreadyExists:
		return fuse.Status(syscall.EEXIST)
	case fs.ErrNotADirectory:
		return fuse.ENOTDIR
	case fs.ErrNotAFile:
		return fuse.Status(syscall.EISDIR)
	case fs.ErrDirectoryFull, fs.ErrNoSpace:
		return fuse.Status(syscall.ENOSPC)
	case fs.ErrDirectoryNotEmpty:
		return fuse.Status(syscall.ENOTEMPTY)
	case fs.ErrInvalidMode, fs.ErrInvalidPath:
		return fuse.EINVAL
	case fs.ErrTooManyLinks:
		return fuse.Status(syscall.EMLINK)
	case fs.ErrClosed:
		return fuse.EBADF
	}
	mlog.Printf2("fusefs/fusefs", "unexpected error %v", err)
	return fuse.EIO
}

func abs(name string) string {
	return "/" + name
}

func (self *fileSystem) String() string {
	return "oufs"
}

func (self *fileSystem) attr(ref fs.InodeRef, ino fs.Inode) *fuse.Attr {
	a := &fuse.Attr{Ino: uint64(ref) + 1,
		Size:  uint64(ino.Size),
		Nlink: uint32(ino.RefCount)}
	if ino.Type == fs.InodeDirectory {
		a.Mode = fuse.S_IFDIR | 0755
	} else {
		a.Mode = fuse.S_IFREG | 0644
		a.Blocks = uint64(util.CeilDiv(int(ino.Size), 512))
	}
	return a
}

func (self *fileSystem) GetAttr(name string, context *fuse.Context) (*fuse.Attr, fuse.Status) {
	defer self.lock.Locked()()
	mlog.Printf2("fusefs/fusefs", "GetAttr %s", name)
	ref, ino, err := self.fs.Stat("/", abs(name))
	if err != nil {
		return nil, Status(err)
	}
	return self.attr(ref, ino), fuse.OK
}

func (self *fileSystem) OpenDir(name string, context *fuse.Context) ([]fuse.DirEntry, fuse.Status) {
	defer self.lock.Locked()()
	mlog.Printf2("fusefs/fusefs", "OpenDir %s", name)
	_, ino, err := self.fs.Stat("/", abs(name))
	if err != nil {
		return nil, Status(err)
	}
	if ino.Type != fs.InodeDirectory {
		return nil, fuse.ENOTDIR
	}
	entries, err := self.fs.ReadDir("/", abs(name))
	if err != nil {
		return nil, Status(err)
	}
	r := make([]fuse.DirEntry, 0, len(entries))
	for _, e := range entries {
		if e.Name == "." || e.Name == ".." {
			continue
		}
		mode := uint32(fuse.S_IFREG)
		if e.Type == fs.InodeDirectory {
			mode = fuse.S_IFDIR
		}
		r = append(r, fuse.DirEntry{Name: e.Name, Mode: mode})
	}
	return r, fuse.OK
}

func (self *fileSystem) Mkdir(name string, mode uint32, context *fuse.Context) fuse.Status {
	defer self.lock.Locked()()
	return Status(self.fs.Mkdir("/", abs(name)))
}

func (self *fileSystem) Rmdir(name string, context *fuse.Context) fuse.Status {
	defer self.lock.Locked()()
	return Status(self.fs.Rmdir("/", abs(name)))
}

func (self *fileSystem) Unlink(name string, context *fuse.Context) fuse.Status {
	defer self.lock.Locked()()
	return Status(self.fs.Remove("/", abs(name)))
}

func (self *fileSystem) Link(oldName string, newName string, context *fuse.Context) fuse.Status {
	defer self.lock.Locked()()
	return Status(self.fs.Link("/", abs(oldName), abs(newName)))
}

// Truncate supports only emptying a file.
func (self *fileSystem) Truncate(name string, size uint64, context *fuse.Context) fuse.Status {
	defer self.lock.Locked()()
	if size != 0 {
		return fuse.ENOSYS
	}
	f, err := self.fs.Open("/", abs(name), fs.ModeWrite)
	if err != nil {
		return Status(err)
	}
	return Status(f.Close())
}

func (self *fileSystem) StatFs(name string) *fuse.StatfsOut {
	defer self.lock.Locked()()
	u, err := self.fs.Usage()
	if err != nil {
		return nil
	}
	g := self.fs.Geometry()
	return &fuse.StatfsOut{Blocks: uint64(u.DataBlocks),
		Bfree:   uint64(u.FreeBlocks),
		Bavail:  uint64(u.FreeBlocks),
		Files:   uint64(u.Inodes),
		Ffree:   uint64(u.FreeInodes),
		Bsize:   uint32(g.ContentSize()),
		NameLen: fs.MaxNameLength,
		Frsize:  uint32(g.ContentSize())}
}

func openMode(flags uint32) fs.Mode {
	switch {
	case flags&syscall.O_ACCMODE == syscall.O_RDONLY:
		return fs.ModeRead
	case flags&syscall.O_TRUNC != 0:
		return fs.ModeWrite
	}
	return fs.ModeAppend
}

func (self *fileSystem) open(name string, mode fs.Mode) (nodefs.File, fuse.Status) {
	mlog.Printf2("fusefs/fusefs", "open %s %v", name, mode)
	f, err := self.fs.Open("/", abs(name), mode)
	if err != nil {
		return nil, Status(err)
	}
	return newFile(self, abs(name), f), fuse.OK
}

func (self *fileSystem) Open(name string, flags uint32, context *fuse.Context) (nodefs.File, fuse.Status) {
	defer self.lock.Locked()()
	mode := openMode(flags)
	if mode != fs.ModeRead {
		// only existing files are opened here
		if _, _, err := self.fs.Stat("/", abs(name)); err != nil {
			return nil, Status(err)
		}
	}
	return self.open(name, mode)
}

func (self *fileSystem) Create(name string, flags uint32, mode uint32, context *fuse.Context) (nodefs.File, fuse.Status) {
	defer self.lock.Locked()()
	if flags&syscall.O_EXCL != 0 {
		if _, _, err := self.fs.Stat("/", abs(name)); err == nil {
			return nil, fuse.Status(syscall.EEXIST)
		}
	}
	m := openMode(flags)
	if m == fs.ModeRead {
		m = fs.ModeAppend
	}
	return self.open(name, m)
}

// file is an open fs.File. FUSE passes explicit offsets; reads may
// go anywhere but writes have to continue where the previous one
// ended.
type file struct {
	nodefs.File
	owner *fileSystem
	path  string
	f     *fs.File
}

func newFile(owner *fileSystem, path string, f *fs.File) *file {
	return &file{File: nodefs.NewDefaultFile(), owner: owner, path: path, f: f}
}

func (self *file) String() string {
	return fmt.Sprintf("oufs.file{%s %v}", self.path, self.f.Mode())
}

// seek positions read handle at off by reopening and skipping. Past
// the end of file it returns io.EOF.
func (self *file) seek(off int64) error {
	size, err := self.f.Size()
	if err != nil {
		return err
	}
	if off >= int64(size) {
		return io.EOF
	}
	if int64(self.f.Offset()) > off {
		f, err := self.owner.fs.Open("/", self.path, fs.ModeRead)
		if err != nil {
			return err
		}
		self.f.Close()
		self.f = f
	}
	var scratch [512]byte
	for left := int(off) - self.f.Offset(); left > 0; {
		n, err := self.f.Read(scratch[:util.IMin(left, len(scratch))])
		if err != nil {
			return err
		}
		left -= n
	}
	return nil
}

func (self *file) Read(dest []byte, off int64) (fuse.ReadResult, fuse.Status) {
	defer self.owner.lock.Locked()()
	if self.f.Mode() != fs.ModeRead {
		return nil, fuse.EBADF
	}
	if err := self.seek(off); err != nil {
		if err == io.EOF {
			return fuse.ReadResultData(nil), fuse.OK
		}
		return nil, Status(err)
	}
	n := 0
	for n < len(dest) {
		got, err := self.f.Read(dest[n:])
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, Status(err)
		}
		n += got
	}
	return fuse.ReadResultData(dest[:n]), fuse.OK
}

func (self *file) Write(data []byte, off int64) (uint32, fuse.Status) {
	defer self.owner.lock.Locked()()
	if self.f.Mode() == fs.ModeRead {
		return 0, fuse.EBADF
	}
	if off != int64(self.f.Offset()) {
		mlog.Printf2("fusefs/fusefs", "non-sequential write to %s at %d (offset %d)", self.path, off, self.f.Offset())
		return 0, fuse.Status(syscall.ENOTSUP)
	}
	n, err := self.f.Write(data)
	if n == 0 && len(data) > 0 && err == nil {
		return 0, fuse.Status(syscall.EFBIG)
	}
	return uint32(n), Status(err)
}

func (self *file) Flush() fuse.Status {
	return fuse.OK
}

func (self *file) Fsync(flags int) fuse.Status {
	return fuse.OK
}

func (self *file) Release() {
	defer self.owner.lock.Locked()()
	self.f.Close()
}

func (self *file) GetAttr(out *fuse.Attr) fuse.Status {
	defer self.owner.lock.Locked()()
	ino, err := self.owner.fs.ReadInode(self.f.Inode())
	if err != nil {
		return Status(err)
	}
	*out = *self.owner.attr(self.f.Inode(), ino)
	return fuse.OK
}

// Mount mounts f at mountpoint. The caller runs Serve on the returned
// server.
func Mount(f *fs.Fs, mountpoint string, debug bool) (*fuse.Server, error) {
	nfs := pathfs.NewPathNodeFs(NewFileSystem(f), nil)
	opts := nodefs.NewOptions()
	opts.Debug = debug
	server, _, err := nodefs.MountRoot(mountpoint, nfs.Root(), opts)
	if err != nil {
		return nil, errors.Wrapf(err, "mounting at %s", mountpoint)
	}
	mlog.Printf2("fusefs/fusefs", "mounted at %s (pid %d)", mountpoint, os.Getpid())
	return server, nil
}
