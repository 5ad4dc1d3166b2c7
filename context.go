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
	"fmt"
	"hash/fnv"

	"pdump.dev/pdump/internal/dlog"
	"pdump.dev/pdump/internal/pconfig"
	"pdump.dev/pdump/internal/rgraph"
	"pdump.dev/pdump/internal/swiss"
)

// symbolAux holds the side data a symbol's variable-alias, localized, or
// forwarded-redirect variant needs, remembered separately from the
// symbol's own hot-section body.
type symbolAux struct {
	kind   symbolRedirectKind
	target TaggedValue
	marker TaggedValue
}

// auxMarker is a unique synthetic TaggedValue payload standing in for a
// symbol-aux block's offset before it has been written, the same trick
// [coldMarker] uses for cold-section blobs.
type auxMarker struct{}

type symbolRedirectKind uint8

const (
	symbolPlainValue symbolRedirectKind = iota
	symbolVarAlias
	symbolLocalized
	symbolForwarded
)

// symbolAuxesInitialCap sizes the symbolAuxes table's first allocation: most
// dumps redirect only a small fraction of their symbols.
const symbolAuxesInitialCap = 64

// hashTaggedValue hashes v.Raw's default string formatting. For a pointer
// to a struct, %v formats the pointed-to fields rather than the address, so
// distinct objects with equal contents hash alike. A hash collision only
// costs an extra probe — eqTaggedValue still decides real equality.
func hashTaggedValue(v TaggedValue) uint64 {
	h := fnv.New64a()
	fmt.Fprintf(h, "%v", v.Raw)
	return h.Sum64()
}

// eqTaggedValue is the equality callback symbolAuxes' swiss.Table uses to
// resolve a hash collision.
func eqTaggedValue(a, b TaggedValue) bool { return a == b }

// DumpContext is the writer's working state for one dump operation. It is
// created at the start of a call to [Writer.Dump] and discarded at the
// end; it is never reused across dumps and is not safe for concurrent use.
type DumpContext struct {
	oracle    TypeOracle
	roots     Reflect
	hostBasis HostBasis
	cfg       pconfig.Config

	buf        *buffer
	remembered *rememberedMap
	refs       *rgraph.Graph
	q          *queue
	fixups     *fixupList

	relocs      [3][]DumpReloc
	emacsRelocs []EmacsReloc

	coldQueue      []TaggedValue
	copiedQueue    []TaggedValue
	hashTableQueue []TaggedValue
	symbolQueue    []TaggedValue

	symbolAuxes *swiss.Table[TaggedValue, symbolAux]

	coldBuf     []byte
	coldPending []coldPendingEntry

	objectStarts     []DumpOff
	hashTableOffsets []DumpOff

	discardableStart DumpOff
	coldStart        DumpOff

	writers *writerTable
}

func newDumpContext(oracle TypeOracle, roots Reflect, basis HostBasis, cfg pconfig.Config, trackReferrers bool, writers *writerTable) *DumpContext {
	cfg = cfg.Normalized()
	return &DumpContext{
		oracle:      oracle,
		roots:       roots,
		hostBasis:   basis,
		cfg:         cfg,
		buf:         newBuffer(cfg.ArenaBaseline),
		remembered:  newRememberedMap(),
		refs:        rgraph.New(trackReferrers),
		q:           newQueue(),
		fixups:      &fixupList{},
		symbolAuxes: swiss.New[TaggedValue, symbolAux](symbolAuxesInitialCap, hashTaggedValue),
		writers:     writers,
	}
}

// alignment returns DUMP_ALIGNMENT for this dump: the TypeOracle's value,
// or [DefaultAlignment] if it reports zero.
func (c *DumpContext) alignment() int {
	if a := c.oracle.Alignment(); a > 0 {
		return a
	}
	return DefaultAlignment
}

// emitReloc appends a dump-reloc to the table for its phase.
func (c *DumpContext) emitReloc(phase Phase, r DumpReloc) {
	c.relocs[phase] = append(c.relocs[phase], r)
	dlog.Log(nil, "reloc", "phase=%v kind=%v off=%d", phase, r.Kind(), r.Offset())
}

// emitEmacsReloc appends a host-reloc.
func (c *DumpContext) emitEmacsReloc(r EmacsReloc) {
	c.emacsRelocs = append(c.emacsRelocs, r)
}

// enqueue records an edge from basis to v with the given weight, deferring
// to the dump queue, and records the referrer-graph edge for diagnostics.
func (c *DumpContext) enqueue(v TaggedValue, basis DumpOff, weight Weight) {
	if c.remembered.get(v) != NotSeen {
		if weight != WeightNone {
			c.q.Enqueue(v, basis, weight)
		}
		return
	}
	c.remembered.set(v, OnNormalQueue)
	c.refs.Record(nil, "", v)
	c.q.Enqueue(v, basis, weight)
}

// EnqueueRoot registers v as a GC root to walk from.
func (c *DumpContext) EnqueueRoot(v TaggedValue) {
	c.refs.Root(v)
	if c.remembered.get(v) == NotSeen {
		c.remembered.set(v, OnNormalQueue)
	}
	c.q.Enqueue(v, 0, WeightNone)
}

// DeferCold marks v for deferral into the cold section.
func (c *DumpContext) DeferCold(v TaggedValue) {
	c.remembered.set(v, OnColdQueue)
	c.coldQueue = append(c.coldQueue, v)
}

// DeferCopied marks v for deferral into the host's data segment at load
// time.
func (c *DumpContext) DeferCopied(v TaggedValue) {
	c.remembered.set(v, OnCopiedQueue)
	c.copiedQueue = append(c.copiedQueue, v)
}

// DeferHashTable marks v for deferral until its referents have final
// offsets.
func (c *DumpContext) DeferHashTable(v TaggedValue) {
	c.remembered.set(v, OnHashTableQueue)
	c.hashTableQueue = append(c.hashTableQueue, v)
}

// DeferSymbol marks v for deferral into a contiguous symbol band.
func (c *DumpContext) DeferSymbol(v TaggedValue) {
	c.remembered.set(v, OnSymbolQueue)
	c.symbolQueue = append(c.symbolQueue, v)
}

// RememberSymbolAux records the side data for a symbol's alias/localized/
// forwarded variant, and schedules a fixup so the symbol's own body (field
// offset 0, already marked FieldFixupLater) ends up pointing at the aux
// block once it is written into the discardable section.
func (c *DumpContext) RememberSymbolAux(v TaggedValue, symOff DumpOff, kind symbolRedirectKind, target TaggedValue) {
	marker := TaggedValue{Raw: new(auxMarker)}
	c.symbolAuxes.Insert(v, symbolAux{kind: kind, target: target, marker: marker}, eqTaggedValue)
	c.fixups.add(fixup{
		kind:        FixupPtrDumpRaw,
		dumpOffset:  symOff,
		referent:    marker,
		hasReferent: true,
	})
}

// objectStart begins writing a new object: asserts no other write is in
// progress, aligns the output cursor, records in_progress_object_offset,
// and zero-initializes an out-buffer of the given size.
func (c *DumpContext) objectStart(size int) *obj {
	if c.buf.inProgressObjectOffset != 0 {
		panic(integrityViolation("object_start called while object %d is in progress", c.buf.inProgressObjectOffset))
	}
	c.buf.alignTo(c.alignment())
	start := c.buf.offset()
	if start == 0 {
		// DumpOff 0 is reserved to mean NotSeen; no real object may start
		// there. The header occupies this space before any object write.
		panic(integrityViolation("object_start at offset 0, header was never reserved"))
	}
	c.buf.inProgressObjectOffset = start
	return &obj{ctx: c, start: start, out: make([]byte, size)}
}

// objectFinish writes the populated out-buffer to the dump (unless in
// scan-only mode), clears in_progress_object_offset, and returns the
// object's starting offset.
func (c *DumpContext) objectFinish(o *obj) DumpOff {
	if c.buf.inProgressObjectOffset != o.start {
		panic(integrityViolation("object_finish for offset %d while %d is in progress", o.start, c.buf.inProgressObjectOffset))
	}
	c.buf.inProgressObjectOffset = 0
	if c.buf.dumpObjectContents {
		if DumpOff(len(c.buf.data)) != o.start {
			panic(integrityViolation("buffer advanced to %d during object write started at %d", len(c.buf.data), o.start))
		}
		c.buf.reserve(len(o.out))
		c.buf.data = append(c.buf.data, o.out...)
		c.objectStarts = append(c.objectStarts, o.start)
	}
	return o.start
}

// writeObjectDirect is the common path used by simple, non-deferring
// per-type writers: start, populate via fn, finish, remember the final
// offset, and return it.
func (c *DumpContext) writeObjectDirect(v TaggedValue, size int, fn func(o *obj)) DumpOff {
	o := c.objectStart(size)
	fn(o)
	off := c.objectFinish(o)
	c.remembered.set(v, RememberedOffset(off))
	return off
}
