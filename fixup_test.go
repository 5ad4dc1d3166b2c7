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
	"github.com/stretchr/testify/require"
)

func TestFixupListResolveAppliesInAscendingOffsetOrder(t *testing.T) {
	t.Parallel()

	buf := newBuffer(64)
	buf.writeZeroes(64)

	a := Value("a")
	b := Value("b")

	var l fixupList
	// Added out of order on purpose: resolve must sort by dump_offset.
	l.add(fixup{kind: FixupLispObject, dumpOffset: 16, referent: a, hasReferent: true, tag: TagString})
	l.add(fixup{kind: FixupPtrDumpRaw, dumpOffset: 4, referent: b, hasReferent: true})

	offsets := map[TaggedValue]DumpOff{a: 100, b: 40}

	var relocs []DumpReloc
	var phases []Phase
	l.resolve(buf, func(v TaggedValue) (DumpOff, bool) {
		off, ok := offsets[v]
		return off, ok
	}, nil, func(p Phase, r DumpReloc) {
		phases = append(phases, p)
		relocs = append(relocs, r)
	})

	require.Len(t, relocs, 2)
	// b's fixup (offset 4) must be applied, and its reloc emitted, before
	// a's (offset 16).
	assert.Equal(t, DumpOff(4), relocs[0].Offset())
	assert.Equal(t, DumpOff(16), relocs[1].Offset())
	assert.Equal(t, RelocDumpToDumpPtr, relocs[0].Kind())
	assert.Equal(t, RelocDumpToDumpLv(TagString), relocs[1].Kind())
	for _, p := range phases {
		assert.Equal(t, Early, p)
	}

	assert.Equal(t, int32(40), int32(binary.LittleEndian.Uint32(buf.data[4:])))
	assert.Equal(t, int32(100), int32(binary.LittleEndian.Uint32(buf.data[16:])))
}

func TestFixupListResolvePanicsOnUnwrittenReferent(t *testing.T) {
	t.Parallel()

	buf := newBuffer(64)
	buf.writeZeroes(64)

	var l fixupList
	l.add(fixup{kind: FixupPtrDumpRaw, dumpOffset: 0, referent: Value("missing"), hasReferent: true})

	assert.Panics(t, func() {
		l.resolve(buf, func(TaggedValue) (DumpOff, bool) { return 0, false }, nil, func(Phase, DumpReloc) {})
	})
}

func TestFixupListAddRejectsNegativeOffset(t *testing.T) {
	t.Parallel()

	var l fixupList
	assert.Panics(t, func() {
		l.add(fixup{kind: FixupPtrDumpRaw, dumpOffset: -1})
	})
}

func TestFixupBignumWritesOffsetAndLimbCount(t *testing.T) {
	t.Parallel()

	buf := newBuffer(64)
	buf.writeZeroes(64)

	limbs := Value("limbs")
	var l fixupList
	l.add(fixup{kind: FixupBignumData, dumpOffset: 8, referent: limbs, hasReferent: true, arg: 3})

	var relocs []DumpReloc
	l.resolve(buf, func(TaggedValue) (DumpOff, bool) { return 48, true }, nil, func(_ Phase, r DumpReloc) {
		relocs = append(relocs, r)
	})

	require.Len(t, relocs, 1)
	assert.Equal(t, RelocBignum, relocs[0].Kind())
	assert.Equal(t, int32(48), int32(binary.LittleEndian.Uint32(buf.data[8:])))
	assert.Equal(t, int32(3), int32(binary.LittleEndian.Uint32(buf.data[12:])))
}
