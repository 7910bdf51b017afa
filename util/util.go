/*
 * Author: Markus Stenberg <fingon@iki.fi>
 *
 * Copyright (c) 2017 Markus Stenberg
 *
 * Created:       Fri Dec 29 09:03:12 2017 mstenber
 * Last modified: Tue Feb 13 09:20:44 2018 mstenber
 * Edit time:     9 min
 *
 */

package util

import "encoding/binary"

func Uint64Bytes(n uint64) []byte {
	nb := make([]byte, 8)
	binary.BigEndian.PutUint64(nb, n)
	return nb
}

func IMin(i int, ints ...int) int {
	for _, v := range ints {
		if v < i {
			i = v
		}
	}
	return i
}

// CeilDiv returns a/b rounded up (b > 0).
func CeilDiv(a, b int) int {
	return (a + b - 1) / b
}
