/*
 * Author: Markus Stenberg <fingon@iki.fi>
 *
 * Copyright (c) 2018 Markus Stenberg
 *
 * Created:       Mon Feb 19 14:26:03 2018 mstenber
 * Last modified: Wed Mar  7 09:52:40 2018 mstenber
 * Edit time:     72 min
 *
 */

package fs

import (
	"strings"

	"github.com/pkg/errors"
)

// Resolution is the outcome of resolving a path.
//
// If the path exists, Child is its inode and Parent the directory it
// was found in. If only the last component is missing, Child is
// UnallocatedInode and Parent the directory it would be created in.
// LocalName is the (truncated) last component; it is empty for the
// root.
type Resolution struct {
	Parent    InodeRef
	Child     InodeRef
	LocalName string
}

func (self Resolution) Exists() bool {
	return self.Child != UnallocatedInode
}

// Components splits path, relative to cwd unless it is absolute, into
// the names to look up starting from the root. Empty components are
// dropped and each name is truncated to MaxNameLength.
func Components(cwd, path string) []string {
	full := path
	if !strings.HasPrefix(path, "/") {
		full = "/" + cwd + "/" + path
	}
	var r []string
	for _, name := range strings.Split(full, "/") {
		if name != "" {
			r = append(r, truncateName(name))
		}
	}
	return r
}

// walkState is the position of resolution within the tree.
type walkState struct {
	parent, child InodeRef
}

func (self walkState) descend(next InodeRef) walkState {
	return walkState{parent: self.child, child: next}
}

// Resolve looks up path relative to cwd. Names must not contain
// NUL bytes.
func (self *Fs) Resolve(cwd, path string) (Resolution, error) {
	if strings.IndexByte(cwd, 0) >= 0 || strings.IndexByte(path, 0) >= 0 {
		return Resolution{}, errors.Wrapf(ErrInvalidPath, "NUL in %q", path)
	}
	names := Components(cwd, path)
	self.tracef("fs.Resolve %q %q -> %v", cwd, path, names)
	state := walkState{parent: RootInode, child: RootInode}
	r := Resolution{}
	for i, name := range names {
		ino, err := self.ReadInode(state.child)
		if err != nil {
			return r, err
		}
		next, err := self.findEntry(ino, name)
		if err != nil {
			return r, errors.Wrapf(err, "resolving %s", path)
		}
		state = state.descend(next)
		r.LocalName = name
		if next == UnallocatedInode {
			if i < len(names)-1 {
				return r, errors.Wrapf(ErrNotFound, "%s in %s", name, path)
			}
			break
		}
	}
	r.Parent = state.parent
	r.Child = state.child
	self.tracef(" parent:%v child:%v local:%q", r.Parent, r.Child, r.LocalName)
	return r, nil
}
