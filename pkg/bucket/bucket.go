// Package bucket maps a stable identity and test name to an integer bucket
// in [0,100).
//
// The hash is the 31-multiplier polynomial over UTF-16 code units with 32-bit
// signed wraparound, so assignments match clients that compute the same hash
// in a browser. There is no seed: the same inputs give the same bucket in
// every process.
package bucket

import (
	"unicode/utf16"
)

// Buckets is the number of buckets.
const Buckets = 100

// Assignment is the bucket of one identity for one test.
type Assignment struct {
	IdentityHash int32  `json:"identity_hash"`
	TestName     string `json:"test_name"`
	Bucket       int    `json:"bucket"`
}

// Hash computes h = h*31 + c over the UTF-16 code units of s, wrapping at 32 bits.
func Hash(s string) int32 {
	var h int32
	for _, r := range s {
		if r < 0x10000 {
			h = h*31 + int32(r)
			continue
		}
		hi, lo := utf16.EncodeRune(r)
		h = h*31 + int32(hi)
		h = h*31 + int32(lo)
	}
	return h
}

// Of returns the bucket for a raw hash. abs is taken in 64 bits so MinInt32 is handled.
func Of(h int32) int {
	v := int64(h)
	if v < 0 {
		v = -v
	}
	return int(v % Buckets)
}

// Bucket returns the bucket of identity for testName.
func Bucket(identity, testName string) int {
	return Of(Hash(identity + testName))
}

// Assign returns the full assignment of identity for testName.
func Assign(identity, testName string) Assignment {
	h := Hash(identity + testName)
	return Assignment{IdentityHash: h, TestName: testName, Bucket: Of(h)}
}
