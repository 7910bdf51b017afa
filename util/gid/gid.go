/*
 * Author: Markus Stenberg <fingon@iki.fi>
 *
 * Copyright (c) 2018 Markus Stenberg
 *
 * Created:       Thu Jan  4 12:49:31 2018 mstenber
 * Last modified: Wed Mar  7 10:41:18 2018 mstenber
 * Edit time:     6 min
 *
 */

// gid package provides the goroutine id mlog prefixes trace lines
// with. It parses runtime.Stack output, so it is for tracing only.
package gid

import (
	"bytes"
	"runtime"
	"strconv"
)

var prefix = []byte("goroutine ")

// GetGoroutineID returns the id of the calling goroutine, or 0 if the
// stack header cannot be parsed.
//
// From http://blog.sgmansfield.com/2015/12/goroutine-ids/
func GetGoroutineID() uint64 {
	var buf [64]byte
	b := buf[:runtime.Stack(buf[:], false)]
	if !bytes.HasPrefix(b, prefix) {
		return 0
	}
	b = b[len(prefix):]
	if i := bytes.IndexByte(b, ' '); i >= 0 {
		b = b[:i]
	}
	n, _ := strconv.ParseUint(string(b), 10, 64)
	return n
}
