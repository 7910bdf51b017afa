/*
 * Author: Markus Stenberg <fingon@iki.fi>
 *
 * Copyright (c) 2018 Markus Stenberg
 *
 * Created:       Wed Feb 28 10:05:12 2018 mstenber
 * Last modified: Wed Feb 28 10:44:57 2018 mstenber
 * Edit time:     25 min
 *
 */

package main

import (
	"bytes"
	"io/ioutil"
	"os"
	"reflect"
	"strings"
	"testing"

	"github.com/stvp/assert"
	"github.com/ugorji/go/codec"
)

type testShell struct {
	t   *testing.T
	dir string
}

func (self *testShell) run(stdin string, args ...string) (string, error) {
	var stdout, stderr bytes.Buffer
	args = append([]string{"-backend", "bolt", "-dir", self.dir}, args...)
	err := run(args, strings.NewReader(stdin), &stdout, &stderr)
	return stdout.String(), err
}

func (self *testShell) ok(stdin string, args ...string) string {
	out, err := self.run(stdin, args...)
	assert.Nil(self.t, err, args)
	return out
}

func TestCommands(t *testing.T) {
	t.Parallel()
	dir, err := ioutil.TempDir("", "oufs")
	assert.Nil(t, err)
	defer os.RemoveAll(dir)
	sh := &testShell{t: t, dir: dir}

	_, err = sh.run("", "ls")
	assert.NotEqual(t, err, nil)
	sh.ok("", "format")
	assert.Equal(t, sh.ok("", "ls"), "./\n../\n")
	sh.ok("", "mkdir", "a")
	sh.ok("", "-cwd", "/a", "mkdir", "b")
	sh.ok("hello\n", "-cwd", "/a", "create", "f")
	sh.ok("world\n", "append", "/a/f")
	assert.Equal(t, sh.ok("", "more", "/a/f"), "hello\nworld\n")
	assert.Equal(t, sh.ok("", "-cwd", "a", "ls"), "./\n../\nb/\nf\n")
	sh.ok("", "link", "/a/f", "g")
	sh.ok("", "rm", "/a/f")
	assert.Equal(t, sh.ok("", "more", "g"), "hello\nworld\n")
	sh.ok("", "touch", "/a/b/t")
	assert.Equal(t, sh.ok("", "ls", "/a/b/t"), "t\n")

	_, err = sh.run("", "rmdir", "a")
	assert.NotEqual(t, err, nil)
	_, err = sh.run("", "mkdir")
	assert.NotEqual(t, err, nil)
	_, err = sh.run("", "nosuchcommand")
	assert.NotEqual(t, err, nil)
	_, err = sh.run("", "-cwd", "/nope", "ls")
	assert.NotEqual(t, err, nil)

	big := strings.Repeat("x", 4000)
	_, err = sh.run(big, "create", "big")
	assert.NotEqual(t, err, nil)
	assert.Equal(t, len(sh.ok("", "more", "big")), 15*254)

	out := sh.ok("", "check")
	assert.True(t, strings.HasPrefix(out, "6 inodes"), out)

	out = sh.ok("", "inspect")
	var d map[string]interface{}
	var jh codec.JsonHandle
	jh.MapType = reflect.TypeOf(d)
	assert.Nil(t, codec.NewDecoderBytes([]byte(out), &jh).Decode(&d))
	blocks := d["blocks"].([]interface{})
	// master, 4 inode table blocks, 3 directories, 1 + 15 data blocks
	assert.Equal(t, len(blocks), 24)
	first := blocks[0].(map[string]interface{})
	assert.Equal(t, first["role"], "master")
	assert.Equal(t, len(first["sha256"].(string)), 64)

	out = sh.ok("", "inspect", "127")
	assert.True(t, strings.Contains(out, "free"), out)
	_, err = sh.run("", "inspect", "128")
	assert.NotEqual(t, err, nil)
}
