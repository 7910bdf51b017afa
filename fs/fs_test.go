/*
 * Author: Markus Stenberg <fingon@iki.fi>
 *
 * Copyright (c) 2018 Markus Stenberg
 *
 * Created:       Tue Feb 20 15:02:19 2018 mstenber
 * Last modified: Thu Feb 22 16:20:51 2018 mstenber
 * Edit time:     97 min
 *
 */

package fs

import (
	"io/ioutil"
	"math/rand"
	"testing"

	"github.com/pkg/errors"
	"github.com/stvp/assert"

	"github.com/fingon/go-oufs/mlog"
	"github.com/fingon/go-oufs/storage"
	"github.com/fingon/go-oufs/storage/inmemory"
)

func newDevice(t *testing.T) storage.Device {
	dev := inmemory.NewInMemoryBackend()
	assert.Nil(t, dev.Init(storage.BackendConfiguration{}))
	return dev
}

func newTestFs(t *testing.T) *Fs {
	dev := newDevice(t)
	assert.Nil(t, Format(dev, Geometry{}))
	fs, err := NewFs(dev, Config{Trace: mlog.NewTracer("fs/test")})
	assert.Nil(t, err)
	return fs
}

func assertCause(t *testing.T, err, expected error) {
	t.Helper()
	assert.Equal(t, errors.Cause(err), expected, err)
}

func checkOK(t *testing.T, fs *Fs) *CheckReport {
	t.Helper()
	report, err := fs.Check()
	assert.Nil(t, err)
	assert.True(t, report.OK(), report.Problems)
	return report
}

func testData(n int) []byte {
	b := make([]byte, n)
	for i := range b {
		b[i] = byte(i*7 + i/254)
	}
	return b
}

func writeFile(t *testing.T, fs *Fs, path string, data []byte) {
	t.Helper()
	f, err := fs.Open("/", path, ModeWrite)
	assert.Nil(t, err)
	n, err := f.Write(data)
	assert.Nil(t, err)
	assert.Equal(t, n, len(data))
	assert.Nil(t, f.Close())
}

func readFile(t *testing.T, fs *Fs, path string) []byte {
	t.Helper()
	f, err := fs.Open("/", path, ModeRead)
	assert.Nil(t, err)
	defer f.Close()
	b, err := ioutil.ReadAll(f)
	assert.Nil(t, err)
	return b
}

func TestGeometry(t *testing.T) {
	t.Parallel()
	g := DefaultGeometry
	assert.Nil(t, g.Validate())
	assert.Equal(t, g.ContentSize(), 254)
	assert.Equal(t, g.InodesPerBlock(), 31)
	assert.Equal(t, g.InodeCount(), 124)
	assert.Equal(t, g.DirectoryEntries(), 15)
	assert.Equal(t, g.RootDirectoryBlock(), BlockRef(5))
	assert.Equal(t, g.FirstDataBlock(), BlockRef(6))
	assert.Equal(t, g.DataBlocks(), 122)
	assert.Equal(t, g.MaxFileSize(), 15*254)

	bad := g
	bad.BlockSize = 16
	assertCause(t, bad.Validate(), ErrInvalidGeometry)
	bad = g
	bad.InodeBlocks = 0
	assertCause(t, bad.Validate(), ErrInvalidGeometry)
	bad = g
	bad.BlockCount = 6
	assertCause(t, bad.Validate(), ErrInvalidGeometry)
}

func TestBlockCodec(t *testing.T) {
	t.Parallel()
	g := DefaultGeometry
	_, block := g.initDirectory(42, 3, 1)
	d := block.Content.(*Directory)
	assert.Nil(t, d.Insert("abcdefghijklmnopq", 7))
	raw := g.EncodeBlock(block)
	assert.Equal(t, len(raw), g.BlockSize)
	assert.Equal(t, raw[0:2], []byte{0xFF, 0xFF})

	block2, err := g.DecodeBlock(RoleDirectory, raw)
	assert.Nil(t, err)
	assert.Equal(t, block2.Next, UnallocatedBlock)
	d2 := block2.Content.(*Directory)
	assert.Equal(t, d2.Entries[0], DirectoryEntry{Name: ".", Inode: 3})
	assert.Equal(t, d2.Entries[1], DirectoryEntry{Name: "..", Inode: 1})
	assert.Equal(t, d2.Entries[2], DirectoryEntry{Name: "abcdefghijklm", Inode: 7})
	assert.True(t, d2.Entries[3].IsTombstone())
	assert.Equal(t, d2.Find("abcdefghijklm"), InodeRef(7))
	assert.Equal(t, d2.Find("nope"), UnallocatedInode)

	tb := &Block{Next: 9, Content: &InodeTable{Inodes: make([]Inode, g.InodesPerBlock())}}
	tb.Content.(*InodeTable).Inodes[30] = Inode{Type: InodeFile, RefCount: 2, Content: 77, Size: 1234567}
	tb2, err := g.DecodeBlock(RoleInodeTable, g.EncodeBlock(tb))
	assert.Nil(t, err)
	assert.Equal(t, tb2, tb)

	_, err = g.DecodeBlock(RoleData, raw[1:])
	assertCause(t, err, ErrCorrupt)
}

func TestFormat(t *testing.T) {
	t.Parallel()
	fs := newTestFs(t)
	g := fs.Geometry()
	root, err := fs.ReadInode(RootInode)
	assert.Nil(t, err)
	assert.Equal(t, root, Inode{Type: InodeDirectory, RefCount: 1, Content: g.RootDirectoryBlock(), Size: 2})
	for i := 1; i < g.InodeCount(); i++ {
		ino, err := fs.ReadInode(InodeRef(i))
		assert.Nil(t, err)
		assert.Equal(t, ino.Type, InodeUnused)
		assert.Equal(t, ino, unusedInode)
	}
	_, err = fs.ReadInode(InodeRef(g.InodeCount()))
	assertCause(t, err, ErrCorrupt)

	m, err := fs.readMaster()
	assert.Nil(t, err)
	assert.Equal(t, m.FreeHead, g.FirstDataBlock())
	assert.Equal(t, m.FreeTail, BlockRef(g.BlockCount-1))
	assert.Equal(t, m.InodeBitmap[0], byte(0x80))

	report := checkOK(t, fs)
	assert.Equal(t, report.FreeBlocks, g.DataBlocks())
	assert.Equal(t, report.OwnedBlocks, 0)
	assert.Equal(t, report.Inodes, 1)

	names, err := fs.List("/", "/")
	assert.Nil(t, err)
	assert.Equal(t, names, []string{"./", "../"})
}

func TestNewFs(t *testing.T) {
	t.Parallel()
	dev := newDevice(t)
	_, err := NewFs(dev, Config{})
	assertCause(t, err, ErrCorrupt)

	g := DefaultGeometry
	g.BlockSize = 512
	_, err = NewFs(dev, Config{Geometry: g})
	assertCause(t, err, ErrInvalidGeometry)
	assertCause(t, Format(dev, g), ErrInvalidGeometry)

	fs := newTestFs(t)
	assert.Nil(t, fs.Close())
	assertCause(t, fs.Close(), ErrClosed)
	_, err = fs.List("/", "/")
	assertCause(t, err, ErrClosed)
}

func freeList(t *testing.T, fs *Fs, m *MasterRecord) (r []BlockRef) {
	ref := m.FreeHead
	for ref != UnallocatedBlock {
		r = append(r, ref)
		var err error
		ref, err = fs.readNext(ref)
		assert.Nil(t, err)
	}
	return
}

func TestAllocateBlock(t *testing.T) {
	t.Parallel()
	fs := newTestFs(t)
	m, err := fs.readMaster()
	assert.Nil(t, err)
	var got []BlockRef
	for i := 0; i < 3; i++ {
		ref, err := fs.allocateBlock(m)
		assert.Nil(t, err)
		got = append(got, ref)
	}
	assert.Equal(t, got, []BlockRef{6, 7, 8})
	assert.Nil(t, fs.deallocateBlock(m, 7))
	assert.Nil(t, fs.deallocateBlock(m, 6))
	l := freeList(t, fs, m)
	assert.Equal(t, len(l), fs.geometry.DataBlocks()-1)
	assert.Equal(t, l[0], BlockRef(9))
	assert.Equal(t, l[len(l)-2:], []BlockRef{7, 6})
	assert.Equal(t, m.FreeTail, BlockRef(6))
}

func TestBlockConservation(t *testing.T) {
	t.Parallel()
	fs := newTestFs(t)
	total := fs.geometry.DataBlocks()
	m, err := fs.readMaster()
	assert.Nil(t, err)
	rng := rand.New(rand.NewSource(42))
	var held []BlockRef
	for i := 0; i < 1000; i++ {
		if len(held) > 0 && (rng.Intn(3) == 0 || len(held) == total) {
			j := rng.Intn(len(held))
			assert.Nil(t, fs.deallocateBlock(m, held[j]))
			held = append(held[:j], held[j+1:]...)
		} else {
			ref, err := fs.allocateBlock(m)
			assert.Nil(t, err)
			held = append(held, ref)
		}
		assert.Equal(t, len(freeList(t, fs, m)), total-len(held))
	}
	for len(held) < total {
		ref, err := fs.allocateBlock(m)
		assert.Nil(t, err)
		held = append(held, ref)
	}
	_, err = fs.allocateBlock(m)
	assertCause(t, err, ErrNoSpace)
	assert.Equal(t, m.FreeTail, UnallocatedBlock)
	assert.Nil(t, fs.deallocateBlock(m, held[0]))
	assert.Equal(t, freeList(t, fs, m), []BlockRef{held[0]})
	assert.Equal(t, m.FreeTail, held[0])
}

func TestAllocateInode(t *testing.T) {
	t.Parallel()
	fs := newTestFs(t)
	m, err := fs.readMaster()
	assert.Nil(t, err)
	for i := 1; i < fs.geometry.InodeCount(); i++ {
		ref, err := fs.allocateInode(m)
		assert.Nil(t, err)
		assert.Equal(t, ref, InodeRef(i))
	}
	_, err = fs.allocateInode(m)
	assertCause(t, err, ErrNoSpace)

	fs.deallocateInode(m, 9)
	fs.deallocateInode(m, 3)
	assert.Equal(t, m.InodeBitmap[0], byte(0xEF))
	ref, err := fs.allocateInode(m)
	assert.Nil(t, err)
	assert.Equal(t, ref, InodeRef(3))
	ref, err = fs.allocateInode(m)
	assert.Nil(t, err)
	assert.Equal(t, ref, InodeRef(9))
}

func TestInodeReadWrite(t *testing.T) {
	t.Parallel()
	fs := newTestFs(t)
	ino := Inode{Type: InodeFile, RefCount: 3, Content: 17, Size: 999}
	assert.Nil(t, fs.WriteInode(32, ino))
	got, err := fs.ReadInode(32)
	assert.Nil(t, err)
	assert.Equal(t, got, ino)
	for _, ref := range []InodeRef{31, 33} {
		got, err = fs.ReadInode(ref)
		assert.Nil(t, err)
		assert.Equal(t, got, unusedInode)
	}
	assertCause(t, fs.WriteInode(UnallocatedInode, ino), ErrCorrupt)
}
