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

package swiss_test

import (
	"sort"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"pdump.dev/pdump/internal/swiss"
)

func stringHash(s string) uint64 {
	var h uint64 = 14695981039346656037
	for i := 0; i < len(s); i++ {
		h ^= uint64(s[i])
		h *= 1099511628211
	}
	return h
}

func stringEq(a, b string) bool { return a == b }

func TestTableInsertAndLookup(t *testing.T) {
	t.Parallel()

	tab := swiss.New[string, int](4, stringHash)
	tab.Insert("a", 1, stringEq)
	tab.Insert("b", 2, stringEq)

	v, ok := tab.Lookup("a", stringEq)
	require.True(t, ok)
	assert.Equal(t, 1, v)

	v, ok = tab.Lookup("b", stringEq)
	require.True(t, ok)
	assert.Equal(t, 2, v)

	_, ok = tab.Lookup("missing", stringEq)
	assert.False(t, ok)
}

func TestTableInsertOverwritesExistingKey(t *testing.T) {
	t.Parallel()

	tab := swiss.New[string, int](4, stringHash)
	tab.Insert("k", 1, stringEq)
	tab.Insert("k", 2, stringEq)

	assert.Equal(t, 1, tab.Len())
	v, ok := tab.Lookup("k", stringEq)
	require.True(t, ok)
	assert.Equal(t, 2, v)
}

func TestTableGrowsAndPreservesEntries(t *testing.T) {
	t.Parallel()

	tab := swiss.New[string, int](4, stringHash)
	const n = 200
	for i := 0; i < n; i++ {
		k := keyFor(i)
		tab.Insert(k, i, stringEq)
	}
	assert.Equal(t, n, tab.Len())

	for i := 0; i < n; i++ {
		v, ok := tab.Lookup(keyFor(i), stringEq)
		require.True(t, ok, "key %d should survive growth", i)
		assert.Equal(t, i, v)
	}
}

func TestTableEntriesIsDeterministicAcrossCalls(t *testing.T) {
	t.Parallel()

	tab := swiss.New[string, int](8, stringHash)
	for i := 0; i < 20; i++ {
		tab.Insert(keyFor(i), i, stringEq)
	}

	first := tab.Entries(nil)
	second := tab.Entries(nil)

	sortEntries := func(es []swiss.Entry[string, int]) {
		sort.Slice(es, func(i, j int) bool { return es[i].Key < es[j].Key })
	}
	sortEntries(first)
	sortEntries(second)
	assert.Equal(t, first, second)
	assert.Len(t, first, 20)
}

func keyFor(i int) string {
	const letters = "abcdefghijklmnopqrstuvwxyz"
	return string([]byte{letters[i%26], letters[(i/26)%26], byte('0' + i%10)})
}
