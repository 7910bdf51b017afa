/*
 * Author: Markus Stenberg <fingon@iki.fi>
 *
 * Copyright (c) 2018 Markus Stenberg
 *
 * Created:       Thu Jan  4 13:00:27 2018 mstenber
 * Last modified: Tue Feb 13 09:31:40 2018 mstenber
 * Edit time:     3 min
 *
 */

package gid

import (
	"testing"

	"github.com/stvp/assert"
)

func TestGetGoroutineID(t *testing.T) {
	t.Parallel()
	mine := GetGoroutineID()
	assert.True(t, mine > 0)
	assert.Equal(t, GetGoroutineID(), mine)

	ch := make(chan uint64)
	go func() {
		ch <- GetGoroutineID()
	}()
	assert.NotEqual(t, <-ch, mine)
}

func BenchmarkGetGoroutineID(b *testing.B) {
	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		GetGoroutineID()
	}
}
