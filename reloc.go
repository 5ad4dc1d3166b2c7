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

import (
	"encoding/binary"
	"fmt"
)

// relocGranularity is the scale factor applied to a DumpReloc's raw_offset
// field: the 27-bit field addresses up to 2^29 bytes at this
// granularity, more than any heap this package targets.
const relocGranularity = 4

// RelocKind is the 5-bit variant tag packed into a [DumpReloc] word. The
// DumpToDumpLv/DumpToHostLv families are parameterized by a [Tag], encoded
// by adding the tag's ordinal to the family's base kind.
type RelocKind uint8

const (
	RelocDumpToHostPtr RelocKind = iota
	RelocDumpToDumpPtr
	RelocNativeCompUnit
	RelocNativeSubr
	RelocBignum
	relocDumpToDumpLvBase
	relocDumpToHostLvBase RelocKind = relocDumpToDumpLvBase + 8
)

// RelocDumpToDumpLv returns the DumpToDumpLv(tag) variant for tag.
func RelocDumpToDumpLv(tag Tag) RelocKind { return relocDumpToDumpLvBase + RelocKind(tag) }

// RelocDumpToHostLv returns the DumpToHostLv(tag) variant for tag.
func RelocDumpToHostLv(tag Tag) RelocKind { return relocDumpToHostLvBase + RelocKind(tag) }

// lvTag extracts the Tag parameter from a DumpToDumpLv/DumpToHostLv kind.
// It panics if kind is not one of those two families.
func (k RelocKind) lvTag() Tag {
	switch {
	case k >= relocDumpToDumpLvBase && k < relocDumpToHostLvBase:
		return Tag(k - relocDumpToDumpLvBase)
	case k >= relocDumpToHostLvBase:
		return Tag(k - relocDumpToHostLvBase)
	default:
		panic(fmt.Sprintf("pdump: RelocKind(%d) has no Lv tag", k))
	}
}

func (k RelocKind) String() string {
	switch {
	case k == RelocDumpToHostPtr:
		return "DumpToHostPtr"
	case k == RelocDumpToDumpPtr:
		return "DumpToDumpPtr"
	case k == RelocNativeCompUnit:
		return "NativeCompUnit"
	case k == RelocNativeSubr:
		return "NativeSubr"
	case k == RelocBignum:
		return "Bignum"
	case k >= relocDumpToDumpLvBase && k < relocDumpToHostLvBase:
		return fmt.Sprintf("DumpToDumpLv(%v)", k.lvTag())
	default:
		return fmt.Sprintf("DumpToHostLv(%v)", k.lvTag())
	}
}

// Phase is when, relative to the other relocation phases, a [DumpReloc] or
// [EmacsReloc] is applied on load. The ordering
// Early < hooks < Late < VeryLate is a hard loader contract.
type Phase uint8

const (
	Early Phase = iota
	Late
	VeryLate
)

func (p Phase) String() string {
	switch p {
	case Early:
		return "Early"
	case Late:
		return "Late"
	case VeryLate:
		return "VeryLate"
	default:
		return fmt.Sprintf("Phase(%d)", uint8(p))
	}
}

// DumpReloc is one packed on-disk relocation word: a RelocKind (5 bits) and
// a raw_offset (27 bits), the latter scaled by relocGranularity.
// The phase it belongs to is not part of the packed word; it is implied by
// which of the header's three per-phase tables the word is stored in.
type DumpReloc uint32

// NewDumpReloc packs a kind and a byte offset into a DumpReloc. offset must
// be a multiple of relocGranularity and representable in 27 bits once
// divided by it, else this is an integrity violation (an out-of-range
// relocation).
func NewDumpReloc(kind RelocKind, offset DumpOff) DumpReloc {
	if offset < 0 || offset%relocGranularity != 0 {
		panic(integrityViolation("relocation offset %d is not a multiple of %d", offset, relocGranularity))
	}
	raw := uint32(offset) / relocGranularity
	if raw >= 1<<27 {
		panic(integrityViolation("relocation offset %d overflows 27-bit raw_offset field", offset))
	}
	if uint8(kind) >= 1<<5 {
		panic(integrityViolation("relocation kind %d overflows 5-bit field", kind))
	}
	return DumpReloc(uint32(kind) | raw<<5)
}

// Kind returns the relocation's variant.
func (r DumpReloc) Kind() RelocKind { return RelocKind(r & 0x1F) }

// Offset returns the relocation's target byte offset in the dump.
func (r DumpReloc) Offset() DumpOff { return DumpOff((uint32(r) >> 5) * relocGranularity) }

// EmacsRelocKind is the 3-bit variant tag of an [EmacsReloc].
type EmacsRelocKind uint8

const (
	EmacsCopyFromDump EmacsRelocKind = iota
	EmacsImmediate
	EmacsDumpPtrRaw
	EmacsHostPtrRaw
	EmacsDumpLv
	EmacsHostLv
)

// maxImmediateBytes caps EMACS_RELOC_TYPE_BYTES_IMMEDIATE's inline payload
// at sizeof(Lisp_Object) on the reference 64-bit host basis.
const maxImmediateBytes = 8

// EmacsReloc is a host-reloc: an instruction applied against the host
// binary's data segment rather than the dump.
type EmacsReloc struct {
	Kind EmacsRelocKind

	// Length carries a byte count for CopyFromDump/Immediate, or a Tag for
	// DumpLv/HostLv.
	Length uint8

	HostOffset HostOff

	// Exactly one of the following is meaningful, selected by Kind.
	DumpOffset  DumpOff
	HostOffset2 HostOff
	Immediate   [maxImmediateBytes]byte
}

// tag reinterprets Length as a Tag, for the DumpLv/HostLv variants.
func (r EmacsReloc) tag() Tag { return Tag(r.Length) }

// EmacsRelocSize is the encoded byte length of one EmacsReloc record: a
// 1-byte Kind, a 1-byte Length, 2 bytes of padding, a 4-byte HostOffset,
// and an 8-byte union payload.
const EmacsRelocSize = 16

func encodeEmacsReloc(r EmacsReloc) []byte {
	b := make([]byte, EmacsRelocSize)
	b[0] = byte(r.Kind)
	b[1] = r.Length
	binary.LittleEndian.PutUint32(b[4:], uint32(r.HostOffset))
	switch r.Kind {
	case EmacsCopyFromDump, EmacsDumpPtrRaw, EmacsDumpLv:
		binary.LittleEndian.PutUint32(b[8:], uint32(r.DumpOffset))
	case EmacsHostPtrRaw, EmacsHostLv:
		binary.LittleEndian.PutUint32(b[8:], uint32(r.HostOffset2))
	case EmacsImmediate:
		copy(b[8:], r.Immediate[:])
	}
	return b
}

func decodeEmacsReloc(b []byte) EmacsReloc {
	var r EmacsReloc
	r.Kind = EmacsRelocKind(b[0])
	r.Length = b[1]
	r.HostOffset = HostOff(binary.LittleEndian.Uint32(b[4:]))
	switch r.Kind {
	case EmacsCopyFromDump, EmacsDumpPtrRaw, EmacsDumpLv:
		r.DumpOffset = DumpOff(binary.LittleEndian.Uint32(b[8:]))
	case EmacsHostPtrRaw, EmacsHostLv:
		r.HostOffset2 = HostOff(binary.LittleEndian.Uint32(b[8:]))
	case EmacsImmediate:
		copy(r.Immediate[:], b[8:8+maxImmediateBytes])
	}
	return r
}
