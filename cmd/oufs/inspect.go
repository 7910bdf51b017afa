/*
 * Author: Markus Stenberg <fingon@iki.fi>
 *
 * Copyright (c) 2018 Markus Stenberg
 *
 * Created:       Tue Feb 27 13:40:51 2018 mstenber
 * Last modified: Wed Feb 28 09:51:33 2018 mstenber
 * Edit time:     36 min
 *
 */

package main

import (
	"encoding/hex"
	"io"
	"sort"
	"strconv"

	"github.com/minio/sha256-simd"
	"github.com/pkg/errors"
	"github.com/ugorji/go/codec"

	"github.com/fingon/go-oufs/fs"
)

type blockDump struct {
	Ref     uint16      `codec:"ref"`
	Role    string      `codec:"role"`
	Next    uint16      `codec:"next"`
	Digest  string      `codec:"sha256"`
	Content interface{} `codec:"content,omitempty"`
}

type inodeDump struct {
	Ref uint16 `codec:"ref"`
	fs.Inode
}

type dataDump struct {
	Text string `codec:"text"`
}

type dump struct {
	Geometry fs.Geometry `codec:"geometry"`
	Usage    fs.Usage    `codec:"usage"`
	Blocks   []blockDump `codec:"blocks"`
}

func dumpContent(ref fs.BlockRef, c fs.Content, g fs.Geometry) interface{} {
	switch v := c.(type) {
	case *fs.MasterRecord:
		return map[string]interface{}{
			"bitmap": hex.EncodeToString(v.InodeBitmap),
			"head":   uint16(v.FreeHead),
			"tail":   uint16(v.FreeTail)}
	case *fs.InodeTable:
		var used []inodeDump
		first := (int(ref) - 1) * g.InodesPerBlock()
		for i, ino := range v.Inodes {
			if ino.Type != fs.InodeUnused {
				used = append(used, inodeDump{Ref: uint16(first + i), Inode: ino})
			}
		}
		return used
	case *fs.Directory:
		return v.Live()
	case *fs.Data:
		return dataDump{Text: strconv.Quote(string(v.Bytes))}
	}
	return nil
}

// inspect writes JSON description of the given blocks, or of every
// block in use.
func inspect(f *fs.Fs, args []string, w io.Writer) error {
	g := f.Geometry()
	roles, err := f.BlockRoles()
	if err != nil {
		return err
	}
	var refs []fs.BlockRef
	if len(args) == 0 {
		for ref := range roles {
			refs = append(refs, ref)
		}
		sort.Slice(refs, func(i, j int) bool { return refs[i] < refs[j] })
	}
	for _, arg := range args {
		n, err := strconv.ParseUint(arg, 0, 16)
		if err != nil || int(n) >= g.BlockCount {
			return errors.Errorf("invalid block %q", arg)
		}
		refs = append(refs, fs.BlockRef(n))
	}
	d := dump{Geometry: g}
	if d.Usage, err = f.Usage(); err != nil {
		return err
	}
	for _, ref := range refs {
		role, ok := roles[ref]
		if !ok {
			// free blocks carry nothing but the link
			role = fs.RoleData
		}
		block, err := f.ReadBlock(ref, role)
		if err != nil {
			return err
		}
		raw := g.EncodeBlock(block)
		digest := sha256.Sum256(raw)
		bd := blockDump{Ref: uint16(ref),
			Role:   role.String(),
			Next:   uint16(block.Next),
			Digest: hex.EncodeToString(digest[:])}
		if ok {
			bd.Content = dumpContent(ref, block.Content, g)
		} else {
			bd.Role = "free"
		}
		d.Blocks = append(d.Blocks, bd)
	}
	var jh codec.JsonHandle
	jh.Indent = 2
	return codec.NewEncoder(w, &jh).Encode(d)
}
