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
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDumpRelocRoundTrip(t *testing.T) {
	t.Parallel()

	tests := []struct {
		kind   RelocKind
		offset DumpOff
	}{
		{RelocDumpToHostPtr, 0},
		{RelocDumpToDumpPtr, 4},
		{RelocNativeSubr, 1 << 20},
		{RelocDumpToDumpLv(TagString), 64},
		{RelocDumpToHostLv(TagCons), 128},
	}
	for _, tt := range tests {
		r := NewDumpReloc(tt.kind, tt.offset)
		assert.Equal(t, tt.kind, r.Kind())
		assert.Equal(t, tt.offset, r.Offset())
	}
}

func TestDumpRelocLvFamilyRoundTripsTag(t *testing.T) {
	t.Parallel()

	for tag := TagInt; tag <= TagVectorlike; tag++ {
		assert.Equal(t, tag, RelocDumpToDumpLv(tag).lvTag())
		assert.Equal(t, tag, RelocDumpToHostLv(tag).lvTag())
	}
}

func TestDumpRelocMisalignedOffsetPanics(t *testing.T) {
	t.Parallel()
	assert.Panics(t, func() { NewDumpReloc(RelocDumpToHostPtr, 3) })
}

func TestDumpRelocNegativeOffsetPanics(t *testing.T) {
	t.Parallel()
	assert.Panics(t, func() { NewDumpReloc(RelocDumpToHostPtr, -4) })
}

func TestDumpRelocOverflowingOffsetPanics(t *testing.T) {
	t.Parallel()
	assert.Panics(t, func() { NewDumpReloc(RelocDumpToHostPtr, DumpOff(1<<29)) })
}

func TestEmacsRelocRoundTrip(t *testing.T) {
	t.Parallel()

	tests := []EmacsReloc{
		{Kind: EmacsCopyFromDump, DumpOffset: 100, HostOffset: 8, Length: 40},
		{Kind: EmacsImmediate, HostOffset: 16, Immediate: [maxImmediateBytes]byte{1, 2, 3, 4, 5, 6, 7, 8}},
		{Kind: EmacsDumpPtrRaw, DumpOffset: 256, HostOffset: 24},
		{Kind: EmacsHostPtrRaw, HostOffset2: 512, HostOffset: 32},
		{Kind: EmacsDumpLv, DumpOffset: 64, HostOffset: 40, Length: uint8(TagSymbol)},
		{Kind: EmacsHostLv, HostOffset2: 128, HostOffset: 48, Length: uint8(TagFloat)},
	}
	for _, want := range tests {
		encoded := encodeEmacsReloc(want)
		require.Len(t, encoded, EmacsRelocSize)
		got := decodeEmacsReloc(encoded)
		assert.Equal(t, want, got)
	}
}

func TestEmacsRelocTagHelperReinterpretsLength(t *testing.T) {
	t.Parallel()

	r := EmacsReloc{Kind: EmacsDumpLv, Length: uint8(TagVectorlike)}
	assert.Equal(t, TagVectorlike, r.tag())
}

func TestPhaseOrdering(t *testing.T) {
	t.Parallel()
	assert.Less(t, Early, Late)
	assert.Less(t, Late, VeryLate)
}
