/*
 * Author: Markus Stenberg <fingon@iki.fi>
 *
 * Copyright (c) 2018 Markus Stenberg
 *
 * Created:       Mon Feb 19 10:20:45 2018 mstenber
 * Last modified: Tue Feb 20 11:05:02 2018 mstenber
 * Edit time:     9 min
 *
 */

package fs

import "github.com/pkg/errors"

// Errors returned by the filesystem are wrapped with context; use
// errors.Cause to compare against these. Device errors are passed
// through the same way.
var (
	ErrNotFound          = errors.New("not found")
	ErrAlreadyExists     = errors.New("already exists")
	ErrNotADirectory     = errors.New("not a directory")
	ErrNotAFile          = errors.New("not a file")
	ErrDirectoryFull     = errors.New("directory full")
	ErrDirectoryNotEmpty = errors.New("directory not empty")
	ErrNoSpace           = errors.New("no space left")
	ErrInvalidMode       = errors.New("invalid mode")
	ErrInvalidPath       = errors.New("invalid path")
	ErrTooManyLinks      = errors.New("too many links")
	ErrClosed            = errors.New("closed")
	ErrCorrupt           = errors.New("corrupt filesystem")
	ErrInvalidGeometry   = errors.New("invalid geometry")
)
