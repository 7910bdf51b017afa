/*
 * Author: Markus Stenberg <fingon@iki.fi>
 *
 * Copyright (c) 2017 Markus Stenberg
 *
 * Created:       Fri Dec 29 09:04:44 2017 mstenber
 * Last modified: Tue Feb 13 09:22:10 2018 mstenber
 * Edit time:     4 min
 *
 */

package util

import (
	"testing"

	"github.com/stvp/assert"
)

func TestUint64Bytes(t *testing.T) {
	t.Parallel()

	assert.Equal(t, Uint64Bytes(0x0102), []byte{0, 0, 0, 0, 0, 0, 1, 2})
}

func TestIMin(t *testing.T) {
	t.Parallel()

	assert.Equal(t, IMin(3, 7, 1, 5), 1)
	assert.Equal(t, IMin(3), 3)
}

func TestCeilDiv(t *testing.T) {
	t.Parallel()

	assert.Equal(t, CeilDiv(0, 254), 0)
	assert.Equal(t, CeilDiv(1, 254), 1)
	assert.Equal(t, CeilDiv(254, 254), 1)
	assert.Equal(t, CeilDiv(255, 254), 2)
}
