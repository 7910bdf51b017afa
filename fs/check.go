/*
 * Author: Markus Stenberg <fingon@iki.fi>
 *
 * Copyright (c) 2018 Markus Stenberg
 *
 * Created:       Wed Feb 21 15:20:13 2018 mstenber
 * Last modified: Thu Feb 22 14:02:40 2018 mstenber
 * Edit time:     63 min
 *
 */

package fs

import (
	"fmt"
)

// CheckReport is the result of a consistency check.
type CheckReport struct {
	FreeBlocks  int
	OwnedBlocks int
	DataBlocks  int
	Inodes      int
	Problems    []string
}

func (self *CheckReport) OK() bool {
	return len(self.Problems) == 0
}

func (self *CheckReport) problemf(format string, args ...interface{}) {
	self.Problems = append(self.Problems, fmt.Sprintf(format, args...))
}

// Check walks the whole filesystem and reports inconsistencies
// between the free list, the inode bitmap, the inodes and the
// directories. An error is returned if the device fails or the
// structures are too broken to walk.
func (self *Fs) Check() (*CheckReport, error) {
	g := self.geometry
	report := &CheckReport{DataBlocks: g.DataBlocks()}
	owner := make(map[BlockRef]string)
	claim := func(ref BlockRef, who string) {
		if int(ref) >= g.BlockCount || (ref < g.FirstDataBlock() && ref != g.RootDirectoryBlock()) {
			report.problemf("%s refers to block %v", who, ref)
			return
		}
		if prev, ok := owner[ref]; ok {
			report.problemf("%v owned by both %s and %s", ref, prev, who)
			return
		}
		owner[ref] = who
	}

	m, err := self.readMaster()
	if err != nil {
		return nil, err
	}
	ref := m.FreeHead
	last := UnallocatedBlock
	for ref != UnallocatedBlock {
		if int(ref) >= g.BlockCount {
			report.problemf("free list refers to block %v", ref)
			break
		}
		if _, ok := owner[ref]; ok || report.FreeBlocks > g.DataBlocks() {
			report.problemf("free list loops at %v", ref)
			break
		}
		claim(ref, "free list")
		report.FreeBlocks++
		last = ref
		if ref, err = self.readNext(ref); err != nil {
			return nil, err
		}
	}
	if last != m.FreeTail {
		report.problemf("free list ends at %v, tail is %v", last, m.FreeTail)
	}

	links := make(map[InodeRef]int)
	dirSizes := make(map[InodeRef]uint32)
	for i := 0; i < g.InodeCount(); i++ {
		iref := InodeRef(i)
		ino, err := self.ReadInode(iref)
		if err != nil {
			return nil, err
		}
		allocated := inodeAllocated(m, iref)
		if allocated != (ino.Type != InodeUnused) {
			report.problemf("%v is %v but bitmap says allocated=%v", iref, ino.Type, allocated)
		}
		who := iref.String()
		switch ino.Type {
		case InodeUnused:
			if ino != unusedInode {
				report.problemf("unused %v has content %v refs %d", iref, ino.Content, ino.RefCount)
			}
			continue
		case InodeDirectory:
			claim(ino.Content, who)
			_, dir, err := self.readDirectory(ino.Content)
			if err != nil {
				return nil, err
			}
			live := dir.Live()
			if int(ino.Size) != len(live) {
				report.problemf("directory %v size %d has %d entries", iref, ino.Size, len(live))
			}
			if dir.Entries[0] != (DirectoryEntry{selfName, iref}) || dir.Entries[1].Name != parentName {
				report.problemf("directory %v lacks . and ..", iref)
			}
			for _, e := range dir.Entries[firstUserSlot:] {
				if !e.IsTombstone() {
					links[e.Inode]++
				}
			}
			dirSizes[iref] = ino.Size
		case InodeFile:
			chain, err := self.chain(ino, g.MaxFileBlocks+1)
			if err != nil {
				return nil, err
			}
			if len(chain) > g.MaxFileBlocks {
				report.problemf("file %v chain longer than %d", iref, g.MaxFileBlocks)
			}
			if int(ino.Size) > len(chain)*g.ContentSize() {
				report.problemf("file %v size %d exceeds chain of %d", iref, ino.Size, len(chain))
			}
			for _, ref := range chain {
				claim(ref, who)
			}
		default:
			report.problemf("%v has unknown type %d", iref, ino.Type)
			continue
		}
		report.Inodes++
	}

	for iref, n := range links {
		ino, err := self.ReadInode(iref)
		if err != nil {
			report.problemf("entry refers to %v: %v", iref, err)
			continue
		}
		switch ino.Type {
		case InodeFile:
			if int(ino.RefCount) != n {
				report.problemf("file %v has %d refs but %d entries", iref, ino.RefCount, n)
			}
		case InodeDirectory:
			if n != 1 {
				report.problemf("directory %v in %d directories", iref, n)
			}
		default:
			report.problemf("entry refers to unused %v", iref)
		}
	}
	for iref, ino := range dirSizes {
		if iref != RootInode && links[iref] == 0 {
			report.problemf("directory %v (size %d) is unreachable", iref, ino)
		}
	}

	for ref, who := range owner {
		if ref >= g.FirstDataBlock() && who != "free list" {
			report.OwnedBlocks++
		}
	}
	if report.FreeBlocks+report.OwnedBlocks != report.DataBlocks {
		report.problemf("%d free + %d owned blocks != %d", report.FreeBlocks, report.OwnedBlocks, report.DataBlocks)
	}
	self.tracef("fs.Check %+v", report)
	return report, nil
}
