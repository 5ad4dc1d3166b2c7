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

import "encoding/binary"

// HeaderSize is the encoded byte length of [Header], reserved at offset 0
// before anything else is written.
const HeaderSize = 14 + 32 + 3*8 + 8 + 8 + 4 + 4 + 4

// encodeHeader serializes h into a HeaderSize-byte little-endian record.
// The layout is fixed and never depends on the host's struct layout rules,
// unlike the source's in-memory header: a dump file has to be readable by
// a loader built with a different compiler than the writer.
func encodeHeader(h Header) []byte {
	b := make([]byte, HeaderSize)
	n := copy(b, h.Magic[:])
	n += copy(b[n:], h.Fingerprint[:])
	for _, loc := range h.DumpRelocs {
		binary.LittleEndian.PutUint32(b[n:], uint32(loc.Offset))
		binary.LittleEndian.PutUint32(b[n+4:], loc.Count)
		n += 8
	}
	putLocator := func(loc locator) {
		binary.LittleEndian.PutUint32(b[n:], uint32(loc.Offset))
		binary.LittleEndian.PutUint32(b[n+4:], loc.Count)
		n += 8
	}
	putLocator(h.ObjectStarts)
	putLocator(h.EmacsRelocs)
	binary.LittleEndian.PutUint32(b[n:], uint32(h.DiscardableStart))
	n += 4
	binary.LittleEndian.PutUint32(b[n:], uint32(h.ColdStart))
	n += 4
	binary.LittleEndian.PutUint32(b[n:], uint32(h.HashList))
	return b
}

// decodeHeader parses a HeaderSize-byte record written by [encodeHeader].
func decodeHeader(data []byte) (Header, bool) {
	if len(data) < HeaderSize {
		return Header{}, false
	}
	var h Header
	n := copy(h.Magic[:], data[:14])
	n += copy(h.Fingerprint[:], data[n:n+32])
	for i := range h.DumpRelocs {
		h.DumpRelocs[i] = locator{
			Offset: DumpOff(binary.LittleEndian.Uint32(data[n:])),
			Count:  binary.LittleEndian.Uint32(data[n+4:]),
		}
		n += 8
	}
	getLocator := func() locator {
		loc := locator{
			Offset: DumpOff(binary.LittleEndian.Uint32(data[n:])),
			Count:  binary.LittleEndian.Uint32(data[n+4:]),
		}
		n += 8
		return loc
	}
	h.ObjectStarts = getLocator()
	h.EmacsRelocs = getLocator()
	h.DiscardableStart = DumpOff(binary.LittleEndian.Uint32(data[n:]))
	n += 4
	h.ColdStart = DumpOff(binary.LittleEndian.Uint32(data[n:]))
	n += 4
	h.HashList = DumpOff(binary.LittleEndian.Uint32(data[n:]))
	return h, true
}

// magic is "DUMPEDGNUEMACS": the dump format's identity string,
// kept verbatim from the source so a hex dump of the header is
// recognizable to anyone who has looked at the original format.
var magic = [14]byte{'D', 'U', 'M', 'P', 'E', 'D', 'G', 'N', 'U', 'E', 'M', 'A', 'C', 'S'}

// magicIncomplete is written over magic[0] while a dump is in progress, and
// replaced with the real first byte only once the header is finalized: a
// crash mid-write leaves this sentinel, which Load recognizes and refuses.
const magicIncomplete = '!'

// DefaultPageSize is the worst-case page size cold_start is rounded up to.
const DefaultPageSize = 64 * 1024

// DefaultAlignment is DUMP_ALIGNMENT when a [TypeOracle] does not override
// it: max(host GC alignment, 4), and every supported host pins GC alignment
// at 8.
const DefaultAlignment = 8

// locator is an (offset, count) pair describing one of the header's five
// tables: one dump-reloc table per phase, the object starts, and the
// host-relocs.
type locator struct {
	Offset DumpOff
	Count  uint32
}

// Header is the dump file's fixed-layout prefix.
type Header struct {
	Magic       [14]byte
	Fingerprint Fingerprint

	// DumpRelocs holds one locator per [Phase], indexed by phase.
	DumpRelocs  [3]locator
	ObjectStarts locator
	EmacsRelocs  locator

	DiscardableStart DumpOff
	ColdStart        DumpOff
	HashList         DumpOff
}

// finalize flips the magic byte back to its real value; called once, after
// every table has been written and every offset in the header is final.
func (h *Header) finalize() {
	h.Magic = magic
}

// markIncomplete sets the header's magic byte to the "in progress"
// sentinel. Called before anything else is written.
func (h *Header) markIncomplete() {
	h.Magic = magic
	h.Magic[0] = magicIncomplete
}

// isComplete reports whether the magic bytes (beyond the sentinel byte)
// match and the sentinel byte was flipped back, i.e. the dump finished.
func (h *Header) isComplete() bool {
	if h.Magic[0] != magic[0] {
		return false
	}
	for i := 1; i < len(magic); i++ {
		if h.Magic[i] != magic[i] {
			return false
		}
	}
	return true
}

// looksLikeDump reports whether the trailing 13 magic bytes match,
// regardless of whether the leading sentinel byte was flipped. Used to
// distinguish BadFileType (wrong magic entirely) from FailedDump
// (recognizable magic, but the in-progress sentinel was never cleared).
func (h *Header) looksLikeDump() bool {
	for i := 1; i < len(magic); i++ {
		if h.Magic[i] != magic[i] {
			return false
		}
	}
	return h.Magic[0] == magic[0] || h.Magic[0] == magicIncomplete
}
