// Copyright 2020-2025 Buf Technologies, Inc.
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//      http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package swiss

import "math/bits"

// fxhash is a simple mixing hash, ported from the fxhash algorithm used by
// rustc (see https://docs.rs/fxhash). It is not cryptographic; it exists to
// spread a 64-bit seed across the control-byte space cheaply.
type fxhash uint64

const (
	fxRotate = 5
	fxKey    = 0x517cc1b727220a95
)

// h1 is the bucket-selection half of the hash.
func (h fxhash) h1() uint64 { return uint64(h >> 7) }

// h2 is the one-byte tag stored in the control array.
func (h fxhash) h2() int8 { return int8(byte(h) & 0x7f) }

// mix folds n into the hash state.
//
//go:nosplit
func (h fxhash) mix(n uint64) fxhash {
	var lo, hi uint64
	hi, lo = bits.Mul64(bits.RotateLeft64(uint64(h), fxRotate)^n, fxKey)
	return fxhash(lo ^ hi)
}

// hashSeed mixes a caller-supplied 64-bit seed (typically produced by a
// type-specific hash function over the key) into an fxhash.
func hashSeed(seed uint64) fxhash {
	return fxhash(0).mix(seed)
}
