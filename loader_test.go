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
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestDecodeDumpRelocsReadsPackedWordsAtOffset(t *testing.T) {
	t.Parallel()

	base := make([]byte, 64)
	relocs := []DumpReloc{
		NewDumpReloc(RelocDumpToHostPtr, 8),
		NewDumpReloc(RelocDumpToDumpPtr, 16),
		NewDumpReloc(RelocNativeSubr, 24),
	}
	const start = 12
	for i, r := range relocs {
		binary.LittleEndian.PutUint32(base[start+i*4:], uint32(r))
	}

	got := decodeDumpRelocs(base, locator{Offset: start, Count: uint32(len(relocs))})
	assert.Equal(t, relocs, got)
}

func TestDecodeDumpRelocsEmptyLocatorYieldsEmptySlice(t *testing.T) {
	t.Parallel()

	got := decodeDumpRelocs(make([]byte, 16), locator{Offset: 0, Count: 0})
	assert.Empty(t, got)
}

func TestDecodeObjectStartsReadsSignedOffsets(t *testing.T) {
	t.Parallel()

	base := make([]byte, 32)
	starts := []DumpOff{16, 32, 64}
	const at = 4
	for i, s := range starts {
		binary.LittleEndian.PutUint32(base[at+i*4:], uint32(int32(s)))
	}

	got := decodeObjectStarts(base, locator{Offset: at, Count: uint32(len(starts))})
	assert.Equal(t, starts, got)
}

func TestDecodeEmacsRelocsRoundTripsEncodedRecords(t *testing.T) {
	t.Parallel()

	want := []EmacsReloc{
		{Kind: EmacsImmediate, HostOffset: 4},
		{Kind: EmacsDumpPtrRaw, HostOffset: 8, DumpOffset: 128},
		{Kind: EmacsHostPtrRaw, HostOffset: 12, HostOffset2: 256},
	}
	const at = 8
	base := make([]byte, at+len(want)*EmacsRelocSize)
	for i, r := range want {
		copy(base[at+i*EmacsRelocSize:], encodeEmacsReloc(r))
	}

	got := decodeEmacsRelocs(base, locator{Offset: at, Count: uint32(len(want))})
	assert.Equal(t, want, got)
}
