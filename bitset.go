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

// bitset is a flat bit array indexed by (dump offset / alignment): the
// loader allocates two of these, sized to ceil(discardable_start /
// DUMP_ALIGNMENT) bits, for the host GC's mark tracking after load.
type bitset struct {
	words []uint64
	bits  int
}

func newBitset(nbits int, allOnes bool) *bitset {
	nwords := (nbits + 63) / 64
	b := &bitset{words: make([]uint64, nwords), bits: nbits}
	if allOnes {
		for i := range b.words {
			b.words[i] = ^uint64(0)
		}
		b.clearTrailing()
	}
	return b
}

func (b *bitset) clearTrailing() {
	if b.bits%64 == 0 || len(b.words) == 0 {
		return
	}
	last := len(b.words) - 1
	valid := uint(b.bits % 64)
	b.words[last] &= (uint64(1) << valid) - 1
}

func (b *bitset) Set(i int)   { b.words[i/64] |= 1 << uint(i%64) }
func (b *bitset) Clear(i int) { b.words[i/64] &^= 1 << uint(i%64) }
func (b *bitset) Get(i int) bool {
	return b.words[i/64]&(1<<uint(i%64)) != 0
}

// Bitsets holds the two mark bitsets a [LoadedDump] allocates on load.
// "last" starts all-ones so conservative GC treats every aligned slot as
// potentially live until the first collection; "current" starts all-zero
// and is filled in by each GC cycle.
type Bitsets struct {
	last    *bitset
	current *bitset
}

func newBitsets(discardableStart DumpOff, alignment int) *Bitsets {
	n := int((int(discardableStart) + alignment - 1) / alignment)
	return &Bitsets{
		last:    newBitset(n, true),
		current: newBitset(n, false),
	}
}

// MarkedLast reports whether the object starting at dump offset off was
// live as of the previous GC cycle.
func (b *Bitsets) MarkedLast(off DumpOff, alignment int) bool {
	return b.last.Get(int(off) / alignment)
}

// MarkCurrent records that the object starting at dump offset off is live
// in the in-progress GC cycle.
func (b *Bitsets) MarkCurrent(off DumpOff, alignment int) {
	b.current.Set(int(off) / alignment)
}

// SwapCycle makes the current cycle's marks the new baseline, at a GC
// cycle boundary.
func (b *Bitsets) SwapCycle() {
	b.last, b.current = b.current, b.last
	for i := range b.current.words {
		b.current.words[i] = 0
	}
}
