/*
 * Author: Markus Stenberg <fingon@iki.fi>
 *
 * Copyright (c) 2017 Markus Stenberg
 *
 * Created:       Fri Dec 29 15:43:45 2017 mstenber
 * Last modified: Wed Mar  7 11:04:16 2018 mstenber
 * Edit time:     54 min
 *
 */

package shell

import (
	"bytes"
	"io/ioutil"
	"os"
	"testing"

	"github.com/pkg/errors"
	"github.com/stvp/assert"

	"github.com/fingon/go-oufs/fs"
	"github.com/fingon/go-oufs/storage"
	"github.com/fingon/go-oufs/storage/factory"
)

// ProdFs exercises filesystem the way the command line tools do.
//
// NOTE: The filesystem HAS to be freshly formatted to start with.
func ProdFs(t *testing.T, f *fs.Fs) {
	u := NewUser(f)
	arr, err := u.ReadDir("/")
	assert.Nil(t, err)
	assert.Equal(t, len(arr), 2)
	assert.True(t, arr[0].IsDir())

	assert.Nil(t, u.Mkdir("/x"))
	for _, name := range []string{"b", "a", "c"} {
		assert.Nil(t, u.Mkdir("/x/"+name))
	}
	l, err := u.Ls("/x")
	assert.Nil(t, err)
	assert.Equal(t, l, []string{"./", "../", "a/", "b/", "c/"})

	assert.Nil(t, u.Cd("x/a"))
	assert.Equal(t, u.Cwd(), "/x/a")
	assert.Nil(t, u.Cd(".."))
	assert.Equal(t, u.Cwd(), "/x")
	assert.Nil(t, u.Touch("t"))
	assert.Nil(t, u.Touch("t"))
	assert.Equal(t, errors.Cause(u.Cd("t")), fs.ErrNotADirectory)

	data := bytes.Repeat([]byte("0123456789"), 70)
	n, err := u.Create("f", data[:300])
	assert.Nil(t, err)
	assert.Equal(t, n, 300)
	n, err = u.Append("/x/f", data[300:])
	assert.Nil(t, err)
	assert.Equal(t, n, 400)
	b, err := u.More("f")
	assert.Nil(t, err)
	assert.True(t, bytes.Equal(b, data))

	arr, err = u.ReadDir(".")
	assert.Nil(t, err)
	byName := make(map[string]os.FileInfo)
	for _, fi := range arr {
		byName[fi.Name()] = fi
	}
	assert.Equal(t, byName["f"].Size(), int64(700))
	assert.Equal(t, byName["f"].Mode(), os.FileMode(0644))
	assert.True(t, byName["a"].IsDir())

	assert.Nil(t, u.Link("f", "/g"))
	assert.Nil(t, u.Rm("f"))
	b, err = u.More("/g")
	assert.Nil(t, err)
	assert.True(t, bytes.Equal(b, data))

	assert.Equal(t, errors.Cause(u.Rmdir("/x")), fs.ErrDirectoryNotEmpty)
	assert.Nil(t, u.Rm("t"))
	for _, name := range []string{"a", "b", "c"} {
		assert.Nil(t, u.Rmdir(name))
	}
	assert.Nil(t, u.Cd("/"))
	assert.Nil(t, u.Rmdir("x"))
	assert.Nil(t, u.Rm("g"))
	l, err = u.Ls("/")
	assert.Nil(t, err)
	assert.Equal(t, l, []string{"./", "../"})

	report, err := f.Check()
	assert.Nil(t, err)
	assert.True(t, report.OK(), report.Problems)
	assert.Equal(t, report.FreeBlocks, f.Geometry().DataBlocks())
}

func TestFsBackends(t *testing.T) {
	for _, name := range factory.List() {
		name := name
		t.Run(name, func(t *testing.T) {
			t.Parallel()
			dir, err := ioutil.TempDir("", name)
			assert.Nil(t, err)
			defer os.RemoveAll(dir)
			dev, err := factory.NewWithConfig(name,
				storage.BackendConfiguration{Directory: dir, CacheSize: 8})
			assert.Nil(t, err)
			assert.Nil(t, fs.Format(dev, fs.Geometry{}))
			f, err := fs.NewFs(dev, fs.Config{})
			assert.Nil(t, err)
			defer f.Close()
			ProdFs(t, f)
		})
	}
}

func TestPersistence(t *testing.T) {
	t.Parallel()
	dir, err := ioutil.TempDir("", "persist")
	assert.Nil(t, err)
	defer os.RemoveAll(dir)
	attach := func() *fs.Fs {
		dev, err := factory.New("image", dir)
		assert.Nil(t, err)
		f, err := fs.NewFs(dev, fs.Config{})
		assert.Nil(t, err)
		return f
	}
	dev, err := factory.New("image", dir)
	assert.Nil(t, err)
	assert.Nil(t, fs.Format(dev, fs.Geometry{}))
	assert.Nil(t, dev.Close())

	f := attach()
	u := NewUser(f)
	assert.Nil(t, u.Mkdir("d"))
	_, err = u.Create("/d/f", []byte("hello"))
	assert.Nil(t, err)
	assert.Nil(t, f.Close())

	f = attach()
	defer f.Close()
	u = NewUser(f)
	b, err := u.More("/d/f")
	assert.Nil(t, err)
	assert.Equal(t, string(b), "hello")
}
