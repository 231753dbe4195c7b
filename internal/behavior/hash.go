package behavior

import (
	"unicode/utf16"
)

// HashKey returns the stable hash used to index blackboard entries.
//
// The hash is seeded with 23 and folds each UTF-16 code unit with a factor
// of 31, wrapping on overflow. Distinct keys that collide share an entry.
func HashKey(key string) int32 {
	h := int32(23)
	for _, r := range key {
		if r > 0xFFFF {
			hi, lo := utf16.EncodeRune(r)
			h = h*31 + int32(hi)
			h = h*31 + int32(lo)
			continue
		}
		h = h*31 + int32(r)
	}
	return h
}
