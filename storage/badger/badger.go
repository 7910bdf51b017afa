/*
 * Author: Markus Stenberg <fingon@iki.fi>
 *
 * Copyright (c) 2017 Markus Stenberg
 *
 * Created:       Sat Dec 23 15:10:01 2017 mstenber
 * Last modified: Wed Feb 14 12:15:44 2018 mstenber
 * Edit time:     171 min
 *
 */

package badger

import (
	"github.com/dgraph-io/badger"
	"github.com/pkg/errors"

	"github.com/fingon/go-oufs/mlog"
	"github.com/fingon/go-oufs/storage"
	"github.com/fingon/go-oufs/util"
)

// badgerBackend provides on-disk storage in a badger database.
//
// - key prefix 'b' + 8 byte big-endian block reference -> block data
type badgerBackend struct {
	storage.DirectoryDeviceBase
	db *badger.DB
}

var _ storage.Backend = &badgerBackend{}

func NewBadgerBackend() storage.Backend {
	return &badgerBackend{}
}

func (self *badgerBackend) Init(config storage.BackendConfiguration) error {
	if err := self.DirectoryDeviceBase.Init(config); err != nil {
		return err
	}
	opts := badger.DefaultOptions
	opts.Dir = self.Dir
	opts.ValueDir = self.Dir
	db, err := badger.Open(opts)
	if err != nil {
		return errors.Wrap(err, "badger.Open")
	}
	self.db = db
	return nil
}

func (self *badgerBackend) Close() error {
	if err := self.MarkClosed(); err != nil {
		return err
	}
	return self.db.Close()
}

func blockKey(ref uint64) []byte {
	return append([]byte("b"), util.Uint64Bytes(ref)...)
}

func (self *badgerBackend) ReadBlock(ref uint64) ([]byte, error) {
	if err := self.CheckRead(ref); err != nil {
		return nil, err
	}
	var v []byte
	err := self.db.View(func(txn *badger.Txn) error {
		i, err := txn.Get(blockKey(ref))
		if err == nil {
			v, err = i.ValueCopy(nil)
		}
		return err
	})
	if err == badger.ErrKeyNotFound {
		return self.ZeroBlock(), nil
	}
	if err != nil {
		return nil, errors.Wrap(err, "badger.View")
	}
	return self.CopyBlock(v), nil
}

func (self *badgerBackend) WriteBlock(ref uint64, data []byte) error {
	if err := self.CheckWrite(ref, data); err != nil {
		return err
	}
	mlog.Printf2("storage/badger/badger", "bad.WriteBlock %d", ref)
	err := self.db.Update(func(txn *badger.Txn) error {
		return txn.Set(blockKey(ref), self.CopyBlock(data))
	})
	if err != nil {
		return errors.Wrap(err, "badger.Update")
	}
	return nil
}
