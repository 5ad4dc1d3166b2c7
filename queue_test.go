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

func tv(n int32) TaggedValue { return Value(n) }

func TestQueueSingletonFIFOStaysInInsertionOrder(t *testing.T) {
	t.Parallel()

	q := newQueue()
	q.Enqueue(tv(1), 0, WeightNormal)
	q.Enqueue(tv(2), 10, WeightNormal)
	q.Enqueue(tv(3), 20, WeightNormal)

	// All three have the same weight, so the earliest (smallest basis, so
	// largest distance from any later cursor) scores highest first.
	got, ok := q.Dequeue(100)
	require.True(t, ok)
	assert.Equal(t, tv(1), got)

	got, ok = q.Dequeue(100)
	require.True(t, ok)
	assert.Equal(t, tv(2), got)

	got, ok = q.Dequeue(100)
	require.True(t, ok)
	assert.Equal(t, tv(3), got)

	_, ok = q.Dequeue(100)
	assert.False(t, ok)
}

func TestQueueStrongWeightOutscoresNormalAtSameBasis(t *testing.T) {
	t.Parallel()

	q := newQueue()
	q.Enqueue(tv(1), 0, WeightNormal)
	q.Enqueue(tv(2), 0, WeightStrong)

	got, ok := q.Dequeue(50)
	require.True(t, ok)
	assert.Equal(t, tv(2), got, "a strong edge should pull its referent in ahead of a normal one at equal distance")
}

func TestQueueZeroWeightIsFIFOAndLowestPriority(t *testing.T) {
	t.Parallel()

	q := newQueue()
	q.Enqueue(tv(1), 0, WeightNone)
	q.Enqueue(tv(2), 0, WeightNormal)

	got, ok := q.Dequeue(50)
	require.True(t, ok)
	assert.Equal(t, tv(2), got, "a weighted object must win over a zero-weight one")

	got, ok = q.Dequeue(50)
	require.True(t, ok)
	assert.Equal(t, tv(1), got)
}

func TestQueueSecondEdgePromotesToFancy(t *testing.T) {
	t.Parallel()

	q := newQueue()
	q.Enqueue(tv(1), 0, WeightNormal)
	q.Enqueue(tv(2), 0, WeightNormal)
	// obj 1 now gets a second edge and must be scored by the sum of both.
	q.Enqueue(tv(1), 0, WeightStrong)

	assert.Len(t, q.edges[tv(1)], 2)

	got, ok := q.Dequeue(50)
	require.True(t, ok)
	assert.Equal(t, tv(1), got, "the object with two edges (normal+strong) should outscore a single normal edge")
}

func TestQueueReenqueueOnlyAddsWeight(t *testing.T) {
	t.Parallel()

	q := newQueue()
	q.Enqueue(tv(1), 0, WeightNone)
	require.True(t, q.Seen(tv(1)))

	// A zero-weight object gaining a weighted edge is promoted, not moved
	// into fancy, since it had no weighted edge before.
	q.Enqueue(tv(1), 5, WeightNormal)
	assert.Len(t, q.edges[tv(1)], 2)

	got, ok := q.Dequeue(50)
	require.True(t, ok)
	assert.Equal(t, tv(1), got)
}

func TestQueueLenTracksDistinctObjects(t *testing.T) {
	t.Parallel()

	q := newQueue()
	assert.Equal(t, 0, q.Len())
	q.Enqueue(tv(1), 0, WeightNormal)
	q.Enqueue(tv(2), 0, WeightNormal)
	q.Enqueue(tv(1), 3, WeightStrong)
	assert.Equal(t, 2, q.Len())

	q.Dequeue(10)
	assert.Equal(t, 1, q.Len())
}
