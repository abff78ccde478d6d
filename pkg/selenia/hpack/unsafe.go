package hpack

import "unsafe"

// bytesToString converts a byte slice to a string with zero allocations.
//
// SAFETY REQUIREMENTS:
//  1. The returned string must be READ-ONLY (never modified)
//  2. The returned string must not outlive the source byte slice
//  3. The source byte slice must not be modified while the string is in use
//
// Safe here because decodeString immediately hands the result to a
// HeaderField, which copies it on assignment, before stringBuf is reused.
//
//go:inline
func bytesToString(b []byte) string {
	return unsafe.String(unsafe.SliceData(b), len(b))
}
