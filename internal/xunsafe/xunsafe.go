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

// Package xunsafe provides the small set of low-level arithmetic helpers
// the dumper needs for packed-word alignment. A dump's wire format is
// read and written exclusively through encoding/binary so it stays
// byte-order-portable across host architectures; that rules out the usual
// unsafe-pointer-reinterpretation helpers this package could otherwise
// carry (reinterpreting a []byte as a native struct would silently break on
// a big-endian host), so only the pure-arithmetic piece survives here.
package xunsafe

// Misalign returns how many bytes offset is past the last multiple of
// align, and how many bytes must be added to reach the next multiple of
// align.
func Misalign(offset, align int) (down, up int) {
	down = offset % align
	if down == 0 {
		return 0, 0
	}
	return down, align - down
}
