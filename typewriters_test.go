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

	"pdump.dev/pdump/internal/pconfig"
)

// fakeInt is a self-representing scalar, standing in for a host's small
// integer representation.
type fakeInt int32

// fakeCons is a minimal host cons cell.
type fakeCons struct {
	car, cdr TaggedValue
}

func (c *fakeCons) Car() TaggedValue { return c.car }
func (c *fakeCons) Cdr() TaggedValue { return c.cdr }

// fakeString is a host string; readOnly strings live in the host's data
// segment, everything else is deferred to the cold section.
type fakeString struct {
	bytes    []byte
	readOnly bool
	hostOff  HostOff
}

func (s *fakeString) Bytes() []byte       { return s.bytes }
func (s *fakeString) ReadOnly() bool      { return s.readOnly }
func (s *fakeString) HostOffset() HostOff { return s.hostOff }

// fakeOracle classifies the handful of value shapes the tests construct.
type fakeOracle struct{}

func (fakeOracle) Classify(v TaggedValue) Tag {
	switch v.Raw.(type) {
	case fakeInt:
		return TagInt
	case *fakeCons:
		return TagCons
	case *fakeString:
		return TagString
	default:
		return TagVectorlike
	}
}

func (fakeOracle) PseudovectorKind(TaggedValue) PVecKind { return PVecGeneric }
func (fakeOracle) IsBuiltinSymbol(TaggedValue) bool      { return false }
func (fakeOracle) IsSelfRepresenting(v TaggedValue) bool {
	_, ok := v.Raw.(fakeInt)
	return ok
}
func (fakeOracle) SizeOf(TaggedValue) int { return 0 }
func (fakeOracle) Alignment() int         { return 8 }

// EncodeDumpLv and EncodeHostLv pack (tag, target) into a single word so
// tests can invert the composition and assert against it directly; real
// hosts use their own machine-word bit layout instead.
func (fakeOracle) EncodeDumpLv(tag Tag, target DumpOff) uint32 {
	return uint32(target)<<3 | uint32(tag)
}

func (fakeOracle) EncodeHostLv(tag Tag, target HostOff) uint32 {
	return uint32(target)<<3 | uint32(tag) | 0x8000_0000
}

func newTestDumpContext() *DumpContext {
	ctx := newDumpContext(fakeOracle{}, nil, nil, pconfig.Config{}, false, defaultWriterTable())
	ctx.buf.writeZeroes(HeaderSize)
	return ctx
}

func TestWriteConsEnqueuesBothFieldsWithStrongWeight(t *testing.T) {
	t.Parallel()

	ctx := newTestDumpContext()
	car := Value(fakeInt(1))
	cdr := Value(&fakeCons{car: Value(fakeInt(2)), cdr: Value(fakeInt(3))})
	cons := Value(&fakeCons{car: car, cdr: cdr})

	off, err := ctx.writers.dispatch(ctx, cons)
	require.NoError(t, err)
	assert.True(t, off > 0)

	// car is self-representing: no fixup, no enqueue.
	assert.False(t, ctx.q.Seen(car))
	// cdr is a heap object: enqueued with a strong edge from the cons cell.
	require.True(t, ctx.q.Seen(cdr))
	edges := ctx.q.edges[cdr]
	require.Len(t, edges, 1)
	assert.Equal(t, WeightStrong, edges[0].weight)
	assert.Equal(t, off, edges[0].basis)
}

func TestWriteStringReadOnlyEmitsHostPtrReloc(t *testing.T) {
	t.Parallel()

	ctx := newTestDumpContext()
	s := Value(&fakeString{bytes: []byte("hi"), readOnly: true, hostOff: 4096})

	off, err := ctx.writers.dispatch(ctx, s)
	require.NoError(t, err)
	assert.True(t, off > 0)

	require.Len(t, ctx.relocs[Early], 1)
	assert.Equal(t, RelocDumpToHostPtr, ctx.relocs[Early][0].Kind())
	assert.Equal(t, off, ctx.relocs[Early][0].Offset())
}

func TestWriteStringNonReadOnlyDefersToColdQueue(t *testing.T) {
	t.Parallel()

	ctx := newTestDumpContext()
	s := Value(&fakeString{bytes: []byte("cold bytes")})

	off, err := ctx.writers.dispatch(ctx, s)
	require.NoError(t, err)
	assert.Equal(t, RememberedOffset(OnColdQueue).Offset(), off)
	assert.Len(t, ctx.coldQueue, 1)
	assert.Equal(t, OnColdQueue, ctx.remembered.get(s))
}

func TestDrainHotPhaseWritesEveryEnqueuedReferent(t *testing.T) {
	t.Parallel()

	ctx := newTestDumpContext()
	leaf := Value(&fakeCons{car: Value(fakeInt(9)), cdr: Value(fakeInt(9))})
	root := Value(&fakeCons{car: Value(fakeInt(1)), cdr: leaf})

	ctx.EnqueueRoot(root)
	require.NoError(t, drainHotPhase(ctx))

	assert.True(t, ctx.remembered.get(root).IsWritten())
	assert.True(t, ctx.remembered.get(leaf).IsWritten())
	assert.Equal(t, 0, ctx.q.Len(), "the queue should be fully drained")
}
