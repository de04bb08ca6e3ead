// Package ident derives stable message identifiers from semantic strings.
//
// Identifiers are a caller-supplied tag followed by the decimal rendering of a
// fixed, versioned 64-bit hash of the seed. The same seed always yields the
// same identifier, across processes and hosts, so a resent message collides
// with its earlier copy on purpose.
package ident

import (
	"strconv"

	"github.com/cespare/xxhash/v2"
)

// Version names the hash algorithm. Changing the algorithm changes every uid
// ever emitted, so it must be bumped together with any change here.
const Version = "xxh64-v1"

// Tags used by the S5000F messages.
const (
	TagMessage          = "msg"
	TagSerialProduct    = "serialPV"
	TagMeasurementPoint = "mpoint"
)

// signMask clears the top bit so the numeric part always fits a signed
// 64-bit integer and never renders with a sign in downstream tooling.
const signMask = 1<<63 - 1

// Deriver produces tagged identifiers from seeds.
type Deriver interface {
	Derive(tag, seed string) string
}

// XXHash implements Deriver with xxHash64 (seed 0).
type XXHash struct{}

// Derive returns tag followed by the non-negative hash of seed.
func (XXHash) Derive(tag, seed string) string {
	return tag + strconv.FormatUint(Sum(seed), 10)
}

// Sum returns the masked 63-bit hash of seed.
func Sum(seed string) uint64 {
	return xxhash.Sum64String(seed) & signMask
}

// Default returns the deriver used when callers do not inject one.
func Default() Deriver { return XXHash{} }

// Derive is shorthand for Default().Derive.
func Derive(tag, seed string) string {
	return XXHash{}.Derive(tag, seed)
}
