/*
 * Author: Markus Stenberg <fingon@iki.fi>
 *
 * Copyright (c) 2018 Markus Stenberg
 *
 * Created:       Tue Feb 20 09:15:40 2018 mstenber
 * Last modified: Wed Mar  7 09:31:05 2018 mstenber
 * Edit time:     141 min
 *
 */

package fs

import (
	"io"

	"github.com/pkg/errors"

	"github.com/fingon/go-oufs/util"
)

type Mode uint8

const (
	ModeRead Mode = iota
	ModeWrite
	ModeAppend
)

func (self Mode) String() string {
	switch self {
	case ModeRead:
		return "r"
	case ModeWrite:
		return "w"
	case ModeAppend:
		return "a"
	}
	return "?"
}

// ParseMode accepts r, w and a.
func ParseMode(s string) (Mode, error) {
	switch s {
	case "r":
		return ModeRead, nil
	case "w":
		return ModeWrite, nil
	case "a":
		return ModeAppend, nil
	}
	return ModeRead, errors.Wrapf(ErrInvalidMode, "mode %q", s)
}

// File is an open file. Reads and writes are sequential from the
// offset; write mode truncates on open and append mode starts at the
// end. Every Write persists the inode before returning. Once the
// file is removed, the handle fails with ErrClosed.
type File struct {
	fs         *Fs
	inode      InodeRef
	generation uint32
	mode       Mode
	offset     uint32
	chain      []BlockRef
	closed     bool
}

var _ io.ReadWriteCloser = &File{}

func (self *File) Inode() InodeRef { return self.inode }
func (self *File) Mode() Mode      { return self.mode }
func (self *File) Offset() int     { return int(self.offset) }

// chain returns at most limit blocks of the data chain of ino.
func (self *Fs) chain(ino Inode, limit int) ([]BlockRef, error) {
	var r []BlockRef
	ref := ino.Content
	for ref != UnallocatedBlock && len(r) < limit {
		r = append(r, ref)
		next, err := self.readNext(ref)
		if err != nil {
			return nil, err
		}
		ref = next
	}
	return r, nil
}

func (self *Fs) newFile(ref InodeRef, mode Mode) *File {
	return &File{fs: self, inode: ref, generation: self.generation[ref], mode: mode}
}

// Open opens path for reading, writing or appending. Write and append
// create the file if it does not exist.
func (self *Fs) Open(cwd, path string, mode Mode) (*File, error) {
	self.tracef("fs.Open %q %q %v", cwd, path, mode)
	if mode > ModeAppend {
		return nil, errors.Wrapf(ErrInvalidMode, "mode %d", mode)
	}
	r, err := self.Resolve(cwd, path)
	if err != nil {
		return nil, err
	}
	if !r.Exists() {
		if mode == ModeRead {
			return nil, errors.Wrapf(ErrNotFound, "%s", path)
		}
		ref, err := self.createFile(r)
		if err != nil {
			return nil, err
		}
		return self.newFile(ref, mode), nil
	}
	ino, err := self.ReadInode(r.Child)
	if err != nil {
		return nil, err
	}
	if ino.Type != InodeFile {
		return nil, errors.Wrapf(ErrNotAFile, "%s", path)
	}
	f := self.newFile(r.Child, mode)
	g := self.geometry
	used := util.CeilDiv(int(ino.Size), g.ContentSize())
	switch mode {
	case ModeRead:
		f.chain, err = self.chain(ino, used)
		if err != nil {
			return nil, err
		}
	case ModeAppend:
		f.chain, err = self.chain(ino, g.MaxFileBlocks)
		if err != nil {
			return nil, err
		}
		f.offset = ino.Size
	case ModeWrite:
		f.chain, err = self.chain(ino, g.MaxFileBlocks)
		if err != nil {
			return nil, err
		}
		if err = f.truncate(ino, used); err != nil {
			return nil, err
		}
	}
	return f, nil
}

// truncate zeroes the used blocks and empties the file. The chain
// stays allocated and is reused by subsequent writes.
func (self *File) truncate(ino Inode, used int) error {
	for _, ref := range self.chain[:util.IMin(used, len(self.chain))] {
		block, data, err := self.fs.readData(ref)
		if err != nil {
			return err
		}
		for i := range data.Bytes {
			data.Bytes[i] = 0
		}
		if err = self.fs.writeBlock(ref, block); err != nil {
			return err
		}
	}
	ino.Size = 0
	return self.fs.WriteInode(self.inode, ino)
}

// createFile creates an empty file at the missing last component of
// r.
func (self *Fs) createFile(r Resolution) (InodeRef, error) {
	pino, pblock, pdir, err := self.parentDirectory(r.Parent)
	if err != nil {
		return UnallocatedInode, err
	}
	if !pdir.HasRoom() {
		return UnallocatedInode, errors.Wrapf(ErrDirectoryFull, "creating %s", r.LocalName)
	}
	m, err := self.readMaster()
	if err != nil {
		return UnallocatedInode, err
	}
	ref, err := self.allocateInode(m)
	if err != nil {
		return UnallocatedInode, err
	}
	self.tracef("fs.createFile %q in %v as %v", r.LocalName, r.Parent, ref)
	if err = self.writeMaster(m); err != nil {
		return UnallocatedInode, err
	}
	ino := Inode{Type: InodeFile, RefCount: 1, Content: UnallocatedBlock}
	if err = self.WriteInode(ref, ino); err != nil {
		return UnallocatedInode, err
	}
	if err = self.insertEntry(r.Parent, pino, pblock, pdir, r.LocalName, ref); err != nil {
		return UnallocatedInode, err
	}
	return ref, nil
}

func (self *File) valid() error {
	if self.closed {
		return ErrClosed
	}
	if self.fs.generation[self.inode] != self.generation {
		return errors.Wrapf(ErrClosed, "%v was removed", self.inode)
	}
	return nil
}

func (self *File) check(readable bool) error {
	if err := self.valid(); err != nil {
		return err
	}
	if readable != (self.mode == ModeRead) {
		return errors.Wrapf(ErrInvalidMode, "file opened with %v", self.mode)
	}
	return nil
}

// Size returns the current size of the file.
func (self *File) Size() (int, error) {
	if err := self.valid(); err != nil {
		return 0, err
	}
	ino, err := self.fs.ReadInode(self.inode)
	if err != nil {
		return 0, err
	}
	return int(ino.Size), nil
}

// Read copies from the current offset. At end of file it returns 0,
// io.EOF.
func (self *File) Read(p []byte) (int, error) {
	if err := self.check(true); err != nil {
		return 0, err
	}
	ino, err := self.fs.ReadInode(self.inode)
	if err != nil {
		return 0, err
	}
	cs := self.fs.geometry.ContentSize()
	size := util.IMin(int(ino.Size), len(self.chain)*cs)
	left := size - int(self.offset)
	if left <= 0 {
		return 0, io.EOF
	}
	if len(p) > left {
		p = p[:left]
	}
	n := 0
	for n < len(p) {
		idx := int(self.offset) / cs
		_, data, err := self.fs.readData(self.chain[idx])
		if err != nil {
			return n, err
		}
		got := copy(p[n:], data.Bytes[int(self.offset)%cs:])
		n += got
		self.offset += uint32(got)
	}
	self.fs.tracef("fs.File.Read %v %d", self.inode, n)
	return n, nil
}

// Write appends p at the offset. When the file reaches its maximum
// size the rest of p is dropped and the short count is returned
// without error; running out of free blocks returns ErrNoSpace along
// with what was written.
func (self *File) Write(p []byte) (written int, err error) {
	if err = self.check(false); err != nil {
		return 0, err
	}
	fs := self.fs
	g := fs.geometry
	cs := g.ContentSize()
	limit := g.MaxFileSize()
	ino, err := fs.ReadInode(self.inode)
	if err != nil {
		return 0, err
	}
	var m *MasterRecord
	for len(p) > 0 && int(self.offset) < limit {
		idx := int(self.offset) / cs
		if idx > len(self.chain) {
			err = errors.Wrapf(ErrCorrupt, "offset %d beyond chain of %v", self.offset, self.inode)
			break
		}
		if idx == len(self.chain) {
			if m == nil {
				m, err = fs.readMaster()
				if err != nil {
					break
				}
			}
			var ref BlockRef
			ref, err = fs.allocateBlock(m)
			if err != nil {
				break
			}
			err = fs.writeBlock(ref, &Block{Next: UnallocatedBlock, Content: g.newData()})
			if err != nil {
				break
			}
			if idx == 0 {
				ino.Content = ref
			} else if err = fs.setNext(self.chain[idx-1], ref); err != nil {
				break
			}
			self.chain = append(self.chain, ref)
		}
		ref := self.chain[idx]
		var block *Block
		var data *Data
		block, data, err = fs.readData(ref)
		if err != nil {
			break
		}
		n := copy(data.Bytes[int(self.offset)%cs:], p)
		if err = fs.writeBlock(ref, block); err != nil {
			break
		}
		p = p[n:]
		written += n
		self.offset += uint32(n)
		if self.offset > ino.Size {
			ino.Size = self.offset
		}
	}
	fs.tracef("fs.File.Write %v %d (size %d)", self.inode, written, ino.Size)
	if m != nil {
		if merr := fs.writeMaster(m); merr != nil && err == nil {
			err = merr
		}
	}
	if ierr := fs.WriteInode(self.inode, ino); ierr != nil && err == nil {
		err = ierr
	}
	return written, err
}

// Close releases the handle; all state was already written.
func (self *File) Close() error {
	if self.closed {
		return ErrClosed
	}
	self.closed = true
	self.fs.tracef("fs.File.Close %v", self.inode)
	return nil
}
