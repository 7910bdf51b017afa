/*
 * Author: Markus Stenberg <fingon@iki.fi>
 *
 * Copyright (c) 2018 Markus Stenberg
 *
 * Created:       Fri Jan  5 12:22:52 2018 mstenber
 * Last modified: Thu Feb 15 09:52:30 2018 mstenber
 * Edit time:     44 min
 *
 */

package factory

import (
	"sort"

	"github.com/pkg/errors"

	"github.com/fingon/go-oufs/mlog"
	"github.com/fingon/go-oufs/storage"
	"github.com/fingon/go-oufs/storage/badger"
	"github.com/fingon/go-oufs/storage/bolt"
	"github.com/fingon/go-oufs/storage/file"
	"github.com/fingon/go-oufs/storage/image"
	"github.com/fingon/go-oufs/storage/inmemory"
)

type factoryCallback func() storage.Backend

var backendFactories = map[string]factoryCallback{
	"inmemory": func() storage.Backend {
		return inmemory.NewInMemoryBackend()
	},
	"badger": func() storage.Backend {
		return badger.NewBadgerBackend()
	},
	"bolt": func() storage.Backend {
		return bolt.NewBoltBackend()
	},
	"file": func() storage.Backend {
		return file.NewFileBackend()
	},
	"image": func() storage.Backend {
		return image.NewImageBackend()
	}}

// List returns the names of the available backends, sorted.
func List() []string {
	keys := make([]string, 0, len(backendFactories))
	for k := range backendFactories {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// New attaches to default-shaped device of the named backend in dir.
func New(name, dir string) (storage.Device, error) {
	var config storage.BackendConfiguration
	config.Directory = dir
	return NewWithConfig(name, config)
}

// NewWithConfig attaches to the named backend. If config.CacheSize is
// set, the device is wrapped in a block cache.
func NewWithConfig(name string, config storage.BackendConfiguration) (storage.Device, error) {
	mlog.Printf2("storage/factory/factory", "f.NewWithConfig %v %v", name, config)
	cb := backendFactories[name]
	if cb == nil {
		return nil, errors.Errorf("unknown backend %q (possible: %v)", name, List())
	}
	be := cb()
	if err := be.Init(config); err != nil {
		return nil, errors.Wrapf(err, "attaching %s backend", name)
	}
	return storage.NewCachedDevice(be, config.CacheSize), nil
}
