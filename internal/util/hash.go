package util

import "unicode/utf16"

// Hash is a stable, non-cryptographic 32-bit string hash (FNV offset basis with
// shift-add mixing) over UTF-16 code units. The same input always yields the
// same value across processes, which epitaph and template selection rely on.
func Hash(s string) int32 {
	h := uint32(2166136261)
	for _, c := range utf16.Encode([]rune(s)) {
		h ^= uint32(c)
		h += (h << 1) + (h << 4) + (h << 7) + (h << 8) + (h << 24)
	}
	return int32(h)
}

// JavaHash is the classic 31-multiplier string hash over UTF-16 code units.
func JavaHash(s string) int32 {
	var h int32
	for _, c := range utf16.Encode([]rune(s)) {
		h = h*31 + int32(c)
	}
	return h
}

// Index maps a hash onto [0, n) as |h| mod n. n must be positive.
func Index(h int32, n int) int {
	v := int64(h)
	if v < 0 {
		v = -v
	}
	return int(v % int64(n))
}
