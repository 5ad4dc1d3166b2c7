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
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestContext() *DumpContext {
	return &DumpContext{remembered: newRememberedMap()}
}

func TestAppendColdReturnsRelativeOffset(t *testing.T) {
	t.Parallel()

	c := newTestContext()
	off1 := c.appendCold([]byte("hello"))
	off2 := c.appendCold([]byte("world!"))
	assert.Equal(t, DumpOff(0), off1)
	assert.Equal(t, DumpOff(5), off2)
	assert.Equal(t, "helloworld!", string(c.coldBuf))
}

func TestWriteColdBlobDefersOffsetResolution(t *testing.T) {
	t.Parallel()

	c := newTestContext()
	marker := c.WriteColdBlob([]byte("native-subr-name"))

	// Before finalizeCold, the marker is not yet resolved to a real offset.
	assert.Equal(t, RememberedOffset(NotSeen), c.remembered.get(marker))

	c.finalizeCold(1 << 16)
	got := c.remembered.get(marker)
	require.True(t, got.IsWritten())
	assert.Equal(t, DumpOff(1<<16), got.Offset())
}

func TestFinalizeColdAddsColdStartToEveryPendingMarker(t *testing.T) {
	t.Parallel()

	c := newTestContext()
	m1 := c.WriteColdBlob([]byte("aaaa"))
	m2 := c.WriteColdBlob([]byte("bb"))

	c.finalizeCold(1000)

	got1 := c.remembered.get(m1)
	got2 := c.remembered.get(m2)
	assert.Equal(t, DumpOff(1000), got1.Offset())
	assert.Equal(t, DumpOff(1004), got2.Offset())
	assert.Empty(t, c.coldPending, "finalizeCold must drain the pending list")
}

func TestSanitizeSubrNameProducesSnakeCase(t *testing.T) {
	t.Parallel()

	assert.Equal(t, "already_snake", SanitizeSubrName("already_snake"), "an already-snake-case name must be a no-op")

	sanitized := SanitizeSubrName("FmoveToColumn")
	assert.Equal(t, strings.ToLower(sanitized), sanitized, "a sanitized name must be all lowercase")
	assert.Equal(t, sanitized, SanitizeSubrName(sanitized), "sanitizing an already-sanitized name must be idempotent")
}
