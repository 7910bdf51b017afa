/*
 * Author: Markus Stenberg <fingon@iki.fi>
 *
 * Copyright (c) 2018 Markus Stenberg
 *
 * Created:       Wed Jan  3 22:49:15 2018 mstenber
 * Last modified: Wed Feb 14 11:40:07 2018 mstenber
 * Edit time:     57 min
 *
 */

package bolt

import (
	"fmt"

	bbolt "github.com/coreos/bbolt"
	"github.com/pkg/errors"

	"github.com/fingon/go-oufs/mlog"
	"github.com/fingon/go-oufs/storage"
	"github.com/fingon/go-oufs/util"
)

var blockKey = []byte("block")

// boltBackend provides on-disk storage in a single bbolt database
// per disk.
//
// - bucket 'block': 8 byte big-endian block reference -> block data
type boltBackend struct {
	storage.DirectoryDeviceBase

	db *bbolt.DB
}

var _ storage.Backend = &boltBackend{}

func NewBoltBackend() storage.Backend {
	return &boltBackend{}
}

func (self *boltBackend) Init(config storage.BackendConfiguration) error {
	if err := self.DirectoryDeviceBase.Init(config); err != nil {
		return err
	}
	path := fmt.Sprintf("%s/%s.bbolt", self.Dir, self.Config.Name)
	db, err := bbolt.Open(path, 0600, nil)
	if err != nil {
		return errors.Wrap(err, "bbolt.Open")
	}
	self.db = db
	err = db.Update(func(tx *bbolt.Tx) error {
		_, err := tx.CreateBucketIfNotExists(blockKey)
		return err
	})
	if err != nil {
		db.Close()
		return errors.Wrap(err, "bbolt.CreateBucketIfNotExists")
	}
	return nil
}

func (self *boltBackend) Close() error {
	if err := self.MarkClosed(); err != nil {
		return err
	}
	return self.db.Close()
}

func (self *boltBackend) ReadBlock(ref uint64) (data []byte, err error) {
	if err = self.CheckRead(ref); err != nil {
		return
	}
	err = self.db.View(func(tx *bbolt.Tx) error {
		// Get result is valid only within the transaction
		data = self.CopyBlock(tx.Bucket(blockKey).Get(util.Uint64Bytes(ref)))
		return nil
	})
	if err != nil {
		err = errors.Wrap(err, "bbolt.View")
	}
	return
}

func (self *boltBackend) WriteBlock(ref uint64, data []byte) error {
	if err := self.CheckWrite(ref, data); err != nil {
		return err
	}
	mlog.Printf2("storage/bolt/bolt", "bbolt.WriteBlock %d", ref)
	err := self.db.Update(func(tx *bbolt.Tx) error {
		return tx.Bucket(blockKey).Put(util.Uint64Bytes(ref), self.CopyBlock(data))
	})
	if err != nil {
		return errors.Wrap(err, "bbolt.Update")
	}
	return nil
}
