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

package pdump

import "pdump.dev/pdump/internal/xunsafe"

// buffer is the writer's grow-on-write output buffer. It doubles from a
// configurable baseline rather than growing to fit exactly, amortizing
// repeated small writes instead of reallocating on every one.
type buffer struct {
	data []byte

	// inProgressObjectOffset is the offset object_start recorded for the
	// object currently being populated, or 0 between objects. A seek
	// outside of that window is forbidden.
	inProgressObjectOffset DumpOff

	// dumpObjectContents, when false, puts the buffer into scan-only mode:
	// the object graph is walked (to discover referents and compute
	// sizes) without actually appending bytes.
	dumpObjectContents bool

	baseline int
}

func newBuffer(baseline int) *buffer {
	if baseline <= 0 {
		baseline = DefaultArenaBaseline
	}
	return &buffer{
		data:               make([]byte, 0, baseline),
		dumpObjectContents: true,
		baseline:           baseline,
	}
}

// DefaultArenaBaseline is the output buffer's initial capacity before it
// starts doubling.
const DefaultArenaBaseline = 8 * 1024 * 1024

// offset returns the buffer's current write cursor.
func (b *buffer) offset() DumpOff { return DumpOff(len(b.data)) }

// reserve grows the buffer's capacity by doubling until it can hold at
// least n more bytes without reallocating.
func (b *buffer) reserve(n int) {
	need := len(b.data) + n
	if need <= cap(b.data) {
		return
	}
	newCap := cap(b.data)
	if newCap == 0 {
		newCap = b.baseline
	}
	for newCap < need {
		newCap *= 2
	}
	grown := make([]byte, len(b.data), newCap)
	copy(grown, b.data)
	b.data = grown
}

// write appends bytes at the current cursor. It panics with an
// integrityViolation if called while no object is in progress and the
// buffer is in scan-only mode; in scan-only mode it only reports the
// cursor and appends nothing.
func (b *buffer) write(p []byte) DumpOff {
	if b.inProgressObjectOffset == 0 && !b.dumpObjectContents {
		panic(integrityViolation("write outside object_start/object_finish span"))
	}
	off := b.offset()
	if !b.dumpObjectContents {
		return off
	}
	b.reserve(len(p))
	b.data = append(b.data, p...)
	return off
}

// writeZeroes appends n zero bytes, same guard as write.
func (b *buffer) writeZeroes(n int) DumpOff {
	if b.inProgressObjectOffset == 0 && !b.dumpObjectContents {
		panic(integrityViolation("write_zeroes outside object_start/object_finish span"))
	}
	off := b.offset()
	if !b.dumpObjectContents {
		return off
	}
	b.reserve(n)
	b.data = append(b.data, make([]byte, n)...)
	return off
}

// alignTo pads with zero bytes until the cursor is a multiple of n.
func (b *buffer) alignTo(n int) {
	if n <= 1 {
		return
	}
	_, up := xunsafe.Misalign(len(b.data), n)
	if up > 0 {
		b.writeZeroes(up)
	}
}

// seek checks that off is a legal target for patching placeholder words:
// it panics if an object is in progress or off lies past the end of the
// buffer. It does not move the append cursor.
func (b *buffer) seek(off DumpOff) {
	if b.inProgressObjectOffset != 0 {
		panic(integrityViolation("seek while object %d is in progress", b.inProgressObjectOffset))
	}
	if int(off) > len(b.data) {
		panic(integrityViolation("seek past end of buffer: %d > %d", off, len(b.data)))
	}
}

// patch overwrites the bytes at off with p, without touching the append
// cursor. Used by the fixup resolver.
func (b *buffer) patch(off DumpOff, p []byte) {
	b.seek(off)
	if int(off)+len(p) > len(b.data) {
		panic(integrityViolation("patch at %d of length %d overruns buffer of length %d", off, len(p), len(b.data)))
	}
	copy(b.data[off:], p)
}
