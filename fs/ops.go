/*
 * Author: Markus Stenberg <fingon@iki.fi>
 *
 * Copyright (c) 2018 Markus Stenberg
 *
 * Created:       Tue Feb 20 13:02:27 2018 mstenber
 * Last modified: Thu Feb 22 12:47:05 2018 mstenber
 * Edit time:     141 min
 *
 */

package fs

import (
	"github.com/pkg/errors"
)

// parentDirectory reads the directory inode ref and its block.
func (self *Fs) parentDirectory(ref InodeRef) (Inode, *Block, *Directory, error) {
	ino, err := self.ReadInode(ref)
	if err != nil {
		return ino, nil, nil, err
	}
	if ino.Type != InodeDirectory {
		return ino, nil, nil, errors.Wrapf(ErrNotADirectory, "parent %v", ref)
	}
	block, dir, err := self.readDirectory(ino.Content)
	if err != nil {
		return ino, nil, nil, err
	}
	return ino, block, dir, nil
}

// insertEntry adds name -> ref to the directory pref and bumps its
// size.
func (self *Fs) insertEntry(pref InodeRef, pino Inode, pblock *Block, pdir *Directory, name string, ref InodeRef) error {
	if err := pdir.Insert(name, ref); err != nil {
		return err
	}
	if err := self.writeBlock(pino.Content, pblock); err != nil {
		return err
	}
	pino.Size++
	return self.WriteInode(pref, pino)
}

// clearEntry removes name from the directory pref and decrements its
// size.
func (self *Fs) clearEntry(pref InodeRef, name string) error {
	pino, pblock, pdir, err := self.parentDirectory(pref)
	if err != nil {
		return err
	}
	if pino.Size <= 2 || !pdir.Clear(name) {
		return errors.Wrapf(ErrCorrupt, "%s missing from %v", name, pref)
	}
	if err = self.writeBlock(pino.Content, pblock); err != nil {
		return err
	}
	pino.Size--
	return self.WriteInode(pref, pino)
}

func (self *Fs) resolveExisting(cwd, path string) (Resolution, Inode, error) {
	r, err := self.Resolve(cwd, path)
	if err != nil {
		return r, Inode{}, err
	}
	if !r.Exists() {
		return r, Inode{}, errors.Wrapf(ErrNotFound, "%s", path)
	}
	ino, err := self.ReadInode(r.Child)
	return r, ino, err
}

// Stat returns the inode path refers to.
func (self *Fs) Stat(cwd, path string) (InodeRef, Inode, error) {
	r, ino, err := self.resolveExisting(cwd, path)
	return r.Child, ino, err
}

// Mkdir creates an empty directory.
func (self *Fs) Mkdir(cwd, path string) error {
	self.tracef("fs.Mkdir %q %q", cwd, path)
	r, err := self.Resolve(cwd, path)
	if err != nil {
		return err
	}
	if r.Exists() {
		return errors.Wrapf(ErrAlreadyExists, "%s", path)
	}
	pino, pblock, pdir, err := self.parentDirectory(r.Parent)
	if err != nil {
		return err
	}
	if !pdir.HasRoom() {
		return errors.Wrapf(ErrDirectoryFull, "creating %s", path)
	}
	m, err := self.readMaster()
	if err != nil {
		return err
	}
	iref, err := self.allocateInode(m)
	if err != nil {
		return err
	}
	bref, err := self.allocateBlock(m)
	if err != nil {
		return err
	}
	ino, block := self.geometry.initDirectory(bref, iref, r.Parent)
	if err = self.writeMaster(m); err != nil {
		return err
	}
	if err = self.writeBlock(bref, block); err != nil {
		return err
	}
	if err = self.WriteInode(iref, ino); err != nil {
		return err
	}
	return self.insertEntry(r.Parent, pino, pblock, pdir, r.LocalName, iref)
}

// Rmdir removes an empty directory other than the root.
func (self *Fs) Rmdir(cwd, path string) error {
	self.tracef("fs.Rmdir %q %q", cwd, path)
	r, ino, err := self.resolveExisting(cwd, path)
	if err != nil {
		return err
	}
	if r.Child == RootInode || r.LocalName == selfName || r.LocalName == parentName {
		return errors.Wrapf(ErrInvalidPath, "cannot remove %s", path)
	}
	if ino.Type != InodeDirectory {
		return errors.Wrapf(ErrNotADirectory, "%s", path)
	}
	if ino.Size > 2 {
		return errors.Wrapf(ErrDirectoryNotEmpty, "%s has %d entries", path, ino.Size)
	}
	if err = self.clearEntry(r.Parent, r.LocalName); err != nil {
		return err
	}
	m, err := self.readMaster()
	if err != nil {
		return err
	}
	if err = self.deallocateBlock(m, ino.Content); err != nil {
		return err
	}
	self.deallocateInode(m, r.Child)
	if err = self.writeMaster(m); err != nil {
		return err
	}
	return self.WriteInode(r.Child, unusedInode)
}

// Remove unlinks a file. The file itself is freed with its last link.
func (self *Fs) Remove(cwd, path string) error {
	self.tracef("fs.Remove %q %q", cwd, path)
	r, ino, err := self.resolveExisting(cwd, path)
	if err != nil {
		return err
	}
	if ino.Type != InodeFile {
		return errors.Wrapf(ErrNotAFile, "%s", path)
	}
	if err = self.clearEntry(r.Parent, r.LocalName); err != nil {
		return err
	}
	if ino.RefCount > 1 {
		ino.RefCount--
		return self.WriteInode(r.Child, ino)
	}
	chain, err := self.chain(ino, self.geometry.MaxFileBlocks)
	if err != nil {
		return err
	}
	m, err := self.readMaster()
	if err != nil {
		return err
	}
	for _, ref := range chain {
		if err = self.deallocateBlock(m, ref); err != nil {
			return err
		}
	}
	self.deallocateInode(m, r.Child)
	if err = self.writeMaster(m); err != nil {
		return err
	}
	return self.WriteInode(r.Child, unusedInode)
}

// Link adds a new name dst for the existing file src.
func (self *Fs) Link(cwd, src, dst string) error {
	self.tracef("fs.Link %q %q %q", cwd, src, dst)
	sr, sino, err := self.resolveExisting(cwd, src)
	if err != nil {
		return err
	}
	if sino.Type != InodeFile {
		return errors.Wrapf(ErrNotAFile, "%s", src)
	}
	dr, err := self.Resolve(cwd, dst)
	if err != nil {
		return err
	}
	if dr.Exists() {
		return errors.Wrapf(ErrAlreadyExists, "%s", dst)
	}
	pino, pblock, pdir, err := self.parentDirectory(dr.Parent)
	if err != nil {
		return err
	}
	if !pdir.HasRoom() {
		return errors.Wrapf(ErrDirectoryFull, "linking %s", dst)
	}
	if sino.RefCount == maxRefCount {
		return errors.Wrapf(ErrTooManyLinks, "%s", src)
	}
	if err = self.insertEntry(dr.Parent, pino, pblock, pdir, dr.LocalName, sr.Child); err != nil {
		return err
	}
	sino.RefCount++
	return self.WriteInode(sr.Child, sino)
}

// DirEntry is a listed directory entry.
type DirEntry struct {
	Name  string
	Inode InodeRef
	Type  InodeType
}

// Listing returns the name of a directory entry as listed.
func (self DirEntry) Listing() string {
	if self.Type == InodeDirectory {
		return self.Name + "/"
	}
	return self.Name
}

// ReadDir returns the live entries of a directory, . and .. included,
// sorted by name. For a file, the file itself is returned.
func (self *Fs) ReadDir(cwd, path string) ([]DirEntry, error) {
	self.tracef("fs.ReadDir %q %q", cwd, path)
	r, ino, err := self.resolveExisting(cwd, path)
	if err != nil {
		return nil, err
	}
	if ino.Type != InodeDirectory {
		return []DirEntry{{Name: r.LocalName, Inode: r.Child, Type: ino.Type}}, nil
	}
	_, dir, err := self.readDirectory(ino.Content)
	if err != nil {
		return nil, err
	}
	var result []DirEntry
	for _, e := range dir.Sorted() {
		if e.IsTombstone() {
			break
		}
		eino, err := self.ReadInode(e.Inode)
		if err != nil {
			return nil, err
		}
		result = append(result, DirEntry{Name: e.Name, Inode: e.Inode, Type: eino.Type})
	}
	return result, nil
}

// List returns the listing of path: names sorted byte-wise,
// directories suffixed with /.
func (self *Fs) List(cwd, path string) ([]string, error) {
	entries, err := self.ReadDir(cwd, path)
	if err != nil {
		return nil, err
	}
	names := make([]string, len(entries))
	for i, e := range entries {
		names[i] = e.Listing()
	}
	return names, nil
}
