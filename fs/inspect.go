/*
 * Author: Markus Stenberg <fingon@iki.fi>
 *
 * Copyright (c) 2018 Markus Stenberg
 *
 * Created:       Fri Feb 23 15:10:38 2018 mstenber
 * Last modified: Fri Feb 23 15:31:02 2018 mstenber
 * Edit time:     12 min
 *
 */

package fs

// BlockRoles tells what each block in use is used for. Blocks on
// the free list are not included.
func (self *Fs) BlockRoles() (map[BlockRef]BlockRole, error) {
	g := self.geometry
	roles := map[BlockRef]BlockRole{MasterBlock: RoleMaster}
	for i := 0; i < g.InodeBlocks; i++ {
		roles[BlockRef(1+i)] = RoleInodeTable
	}
	for i := 0; i < g.InodeCount(); i++ {
		ino, err := self.ReadInode(InodeRef(i))
		if err != nil {
			return nil, err
		}
		switch ino.Type {
		case InodeDirectory:
			roles[ino.Content] = RoleDirectory
		case InodeFile:
			chain, err := self.chain(ino, g.MaxFileBlocks)
			if err != nil {
				return nil, err
			}
			for _, ref := range chain {
				roles[ref] = RoleData
			}
		}
	}
	return roles, nil
}
