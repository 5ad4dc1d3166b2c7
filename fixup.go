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

import "sort"

// FixupKind discriminates what a [fixup] resolves to.
type FixupKind uint8

const (
	FixupLispObject FixupKind = iota
	FixupLispObjectRaw
	FixupPtrDumpRaw
	FixupBignumData
)

// maxFixupFieldBytes bounds how large a fixed-up field may be.
const maxFixupFieldBytes = 2048

// fixup is a pending patch into the dump buffer, resolved once every
// object has been written and every referent's final offset is known.
type fixup struct {
	kind       FixupKind
	dumpOffset DumpOff

	// referent is the object whose final offset fills this slot, or the
	// zero TaggedValue if arg carries the value directly (e.g. a bignum
	// reload descriptor).
	referent    TaggedValue
	hasReferent bool
	tag         Tag // meaningful for FixupLispObject/FixupLispObjectRaw

	// arg carries kind-specific auxiliary data, e.g. a bignum's limb count.
	arg int64
}

// fixupList accumulates fixups during the write phase and resolves them
// once every object's final offset is known.
type fixupList struct {
	items []fixup
}

func (l *fixupList) add(f fixup) {
	if f.dumpOffset < 0 {
		panic(integrityViolation("fixup at negative offset %d", f.dumpOffset))
	}
	l.items = append(l.items, f)
}

// resolve sorts fixups by ascending dump offset and applies each one by
// seeking to its offset, writing the resolved value, and — when the fixup
// references another dumped object — emitting the corresponding dump-reloc
// so the slot is re-adjusted to the runtime dump base on load.
// offsetOf must return the final offset of an object that has already been
// fully written; resolve is only called after the write phase completes,
// so every referent in the list is guaranteed to have one.
func (l *fixupList) resolve(buf *buffer, offsetOf func(TaggedValue) (DumpOff, bool), classify func(TaggedValue) (Tag, bool), emit func(Phase, DumpReloc)) {
	sort.SliceStable(l.items, func(i, j int) bool {
		return l.items[i].dumpOffset < l.items[j].dumpOffset
	})

	for _, f := range l.items {
		switch f.kind {
		case FixupLispObject, FixupLispObjectRaw:
			off, ok := offsetOf(f.referent)
			if !ok {
				panic(integrityViolation("fixup at %d references an object that was never written", f.dumpOffset))
			}
			buf.patch(f.dumpOffset, encodeDumpOff(off))
			kind := RelocDumpToDumpPtr
			if f.kind == FixupLispObject {
				kind = RelocDumpToDumpLv(f.tag)
			}
			emit(Early, NewDumpReloc(kind, f.dumpOffset))

		case FixupPtrDumpRaw:
			off, ok := offsetOf(f.referent)
			if !ok {
				panic(integrityViolation("fixup at %d references an object that was never written", f.dumpOffset))
			}
			buf.patch(f.dumpOffset, encodeDumpOff(off))
			emit(Early, NewDumpReloc(RelocDumpToDumpPtr, f.dumpOffset))

		case FixupBignumData:
			// arg holds the limb count; the referent's offset is the limb
			// blob's cold-section offset. Write the (data_offset,
			// limb_count) reload descriptor the Bignum dump-reloc expects.
			off, ok := offsetOf(f.referent)
			if !ok {
				panic(integrityViolation("bignum fixup at %d references an unwritten limb blob", f.dumpOffset))
			}
			buf.patch(f.dumpOffset, encodeDumpOff(off))
			buf.patch(f.dumpOffset+4, encodeInt32(int32(f.arg)))
			emit(Early, NewDumpReloc(RelocBignum, f.dumpOffset))
		}
	}
}

func encodeDumpOff(off DumpOff) []byte {
	return encodeInt32(int32(off))
}

func encodeInt32(v int32) []byte {
	u := uint32(v)
	return []byte{byte(u), byte(u >> 8), byte(u >> 16), byte(u >> 24)}
}
