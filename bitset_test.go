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
)

func TestBitsetSetClearGet(t *testing.T) {
	t.Parallel()

	b := newBitset(200, false)
	assert.False(t, b.Get(130))
	b.Set(130)
	assert.True(t, b.Get(130))
	b.Clear(130)
	assert.False(t, b.Get(130))
}

func TestBitsetAllOnesClearsTrailingGarbage(t *testing.T) {
	t.Parallel()

	b := newBitset(70, true)
	for i := 0; i < 70; i++ {
		assert.True(t, b.Get(i), "bit %d should be set", i)
	}
	// Bits 70-127 in the backing word array must not read as set, even
	// though the word holding them was initialized all-ones.
	last := b.words[len(b.words)-1]
	assert.Equal(t, uint64(0), last>>6, "trailing bits beyond nbits must be cleared")
}

func TestBitsetsMarkedLastStartsAllOnes(t *testing.T) {
	t.Parallel()

	bs := newBitsets(1024, 8)
	assert.True(t, bs.MarkedLast(0, 8))
	assert.True(t, bs.MarkedLast(800, 8))
}

func TestBitsetsMarkCurrentThenSwapCycle(t *testing.T) {
	t.Parallel()

	bs := newBitsets(1024, 8)
	bs.MarkCurrent(16, 8)
	assert.True(t, bs.last.Get(2), "last should still be all-ones before the swap")

	bs.SwapCycle()
	assert.True(t, bs.MarkedLast(16, 8), "after swap, the marks made during the cycle become the new baseline")
	assert.False(t, bs.MarkedLast(24, 8), "an object never marked during the cycle should not carry over")

	// current was reset to all-zero after the swap.
	for _, w := range bs.current.words {
		assert.Equal(t, uint64(0), w)
	}
}
