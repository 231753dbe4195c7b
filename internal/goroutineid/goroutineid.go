// Package goroutineid identifies the calling goroutine.
//
// Trees use it to tell ticks driven from their primary goroutine, which are
// always sequential, from ticks issued by worker goroutines.
package goroutineid

import (
	"bytes"
	"runtime"
)

// stack headers look like "goroutine 42 [running]:"; 64 bytes is plenty
const headerSize = 64

var prefix = []byte("goroutine ")

// Get returns the ID of the calling goroutine, or 0 if it cannot be
// determined.
func Get() int64 {
	var buf [headerSize]byte
	n := runtime.Stack(buf[:], false)
	return parse(buf[:n])
}

// Is reports whether the calling goroutine is id. An unknown ID, on either
// side, matches.
func Is(id int64) bool {
	if id == 0 {
		return true
	}
	cur := Get()
	return cur == 0 || cur == id
}

func parse(header []byte) int64 {
	rest, ok := bytes.CutPrefix(header, prefix)
	if !ok {
		return 0
	}
	var id int64
	for i, b := range rest {
		if b < '0' || b > '9' {
			if i == 0 {
				return 0
			}
			return id
		}
		id = id*10 + int64(b-'0')
	}
	return id
}
