/*
 * Author: Markus Stenberg <fingon@iki.fi>
 *
 * Copyright (c) 2018 Markus Stenberg
 *
 * Created:       Mon Feb 19 13:11:26 2018 mstenber
 * Last modified: Wed Feb 21 11:30:48 2018 mstenber
 * Edit time:     52 min
 *
 */

package fs

import (
	"bytes"
	"sort"

	"github.com/pkg/errors"
)

const (
	selfName   = "."
	parentName = ".."

	// first slot available for ordinary entries
	firstUserSlot = 2
)

// truncateName cuts name to what fits in a directory entry.
func truncateName(name string) string {
	if len(name) > MaxNameLength {
		return name[:MaxNameLength]
	}
	return name
}

// initDirectory returns the inode and the block of a new, empty
// directory.
func (self Geometry) initDirectory(selfBlock BlockRef, selfInode, parentInode InodeRef) (Inode, *Block) {
	d := self.newDirectory()
	d.Entries[0] = DirectoryEntry{Name: selfName, Inode: selfInode}
	d.Entries[1] = DirectoryEntry{Name: parentName, Inode: parentInode}
	ino := Inode{Type: InodeDirectory, RefCount: 1, Content: selfBlock, Size: 2}
	return ino, &Block{Next: UnallocatedBlock, Content: d}
}

// Find returns the inode of the first live entry called name.
func (self *Directory) Find(name string) InodeRef {
	for _, e := range self.Entries {
		if !e.IsTombstone() && e.Name == name {
			return e.Inode
		}
	}
	return UnallocatedInode
}

func (self *Directory) freeSlot() int {
	for i := firstUserSlot; i < len(self.Entries); i++ {
		if self.Entries[i].IsTombstone() {
			return i
		}
	}
	return -1
}

// HasRoom tells if Insert would succeed.
func (self *Directory) HasRoom() bool {
	return self.freeSlot() >= 0
}

// Insert puts the entry in the first tombstone after . and ..
func (self *Directory) Insert(name string, ref InodeRef) error {
	i := self.freeSlot()
	if i < 0 {
		return errors.Wrapf(ErrDirectoryFull, "inserting %s", name)
	}
	self.Entries[i] = DirectoryEntry{Name: truncateName(name), Inode: ref}
	return nil
}

// Clear turns the first live entry called name into a tombstone.
func (self *Directory) Clear(name string) bool {
	for i := firstUserSlot; i < len(self.Entries); i++ {
		e := self.Entries[i]
		if !e.IsTombstone() && e.Name == name {
			self.Entries[i] = tombstone
			return true
		}
	}
	return false
}

// Live returns the non-tombstone entries.
func (self *Directory) Live() []DirectoryEntry {
	r := make([]DirectoryEntry, 0, len(self.Entries))
	for _, e := range self.Entries {
		if !e.IsTombstone() {
			r = append(r, e)
		}
	}
	return r
}

// compareEntries orders tombstones after live entries, and live
// entries by byte-wise name.
func compareEntries(a, b DirectoryEntry) int {
	switch {
	case a.IsTombstone() && b.IsTombstone():
		return 0
	case a.IsTombstone():
		return 1
	case b.IsTombstone():
		return -1
	}
	return bytes.Compare([]byte(a.Name), []byte(b.Name))
}

// Sorted returns copy of all entries in listing order.
func (self *Directory) Sorted() []DirectoryEntry {
	r := append([]DirectoryEntry(nil), self.Entries...)
	sort.SliceStable(r, func(i, j int) bool {
		return compareEntries(r[i], r[j]) < 0
	})
	return r
}

// findEntry looks name up in the directory described by ino.
func (self *Fs) findEntry(ino Inode, name string) (InodeRef, error) {
	if ino.Type != InodeDirectory {
		return UnallocatedInode, errors.Wrapf(ErrNotADirectory, "looking up %s", name)
	}
	_, d, err := self.readDirectory(ino.Content)
	if err != nil {
		return UnallocatedInode, err
	}
	return d.Find(name), nil
}
