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

func TestRememberedOffsetUnseenIsZero(t *testing.T) {
	t.Parallel()

	m := newRememberedMap()
	assert.Equal(t, NotSeen, m.get(Value("never enqueued")))
	assert.False(t, NotSeen.IsWritten())
}

func TestRememberedOffsetSentinelsAreNegativeAndUnwritten(t *testing.T) {
	t.Parallel()

	for _, s := range []RememberedOffset{
		OnNormalQueue, OnColdQueue, OnSymbolQueue, OnHashTableQueue, OnCopiedQueue, RuntimeMagic,
	} {
		assert.Less(t, int32(s), int32(0))
		assert.False(t, s.IsWritten())
	}
}

func TestRememberedOffsetWrittenRoundTripsDumpOff(t *testing.T) {
	t.Parallel()

	m := newRememberedMap()
	v := Value("obj")
	m.set(v, RememberedOffset(4096))

	got := m.get(v)
	assert.True(t, got.IsWritten())
	assert.Equal(t, DumpOff(4096), got.Offset())
}

func TestRememberedMapSetOverwrites(t *testing.T) {
	t.Parallel()

	m := newRememberedMap()
	v := Value("obj")
	m.set(v, OnColdQueue)
	assert.Equal(t, OnColdQueue, m.get(v))

	m.set(v, RememberedOffset(128))
	assert.Equal(t, RememberedOffset(128), m.get(v))
}
