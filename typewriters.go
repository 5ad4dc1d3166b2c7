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
	"math"
)

// The accessor interfaces below are the only way the writer reaches into a
// host value's fields. A host's TaggedValue.Raw implements
// whichever of these matches its Tag/PVecKind, the same way encoding/json
// consults json.Marshaler: the writer type-asserts for the interface it
// needs and reports UnsupportedObject if it's missing.

// Cons is implemented by a host's cons cells.
type Cons interface {
	Car() TaggedValue
	Cdr() TaggedValue
}

// String is implemented by host strings. ReadOnly reports whether the
// string's byte data lives in the host's read-only data segment, which
// the writer must emit as a host pointer instead of cold bytes.
type String interface {
	Bytes() []byte
	ReadOnly() bool
	HostOffset() HostOff // meaningful only when ReadOnly() is true
}

// Float is implemented by host floats, deferred to the cold section.
type Float interface {
	Float64() float64
}

// Bignum is implemented by host arbitrary-precision integers: Limbs
// returns the raw limb words, deferred to the cold section, with the
// header fixed up to point at them on load.
type Bignum interface {
	Limbs() []uint32
}

// Marker is implemented by host buffer markers.
type Marker interface {
	Buffer() TaggedValue
	CharPos() int64
	BytePos() int64
}

// Overlay is implemented by host buffer overlays. The writer checks
// nothing about the buffer that owns the overlay.
type Overlay interface {
	Start() TaggedValue
	End() TaggedValue
	Plist() TaggedValue
}

// Finalizer is implemented by host finalizer objects. The two sentinel
// list heads (Next/Prev within the host image) must be emitted as
// host-pointer fields, never enqueued, since they alias the host's own
// data segment.
type Finalizer interface {
	Function() TaggedValue
	NextHost() (HostOff, bool)
	PrevHost() (HostOff, bool)
}

// Symbol is implemented by host symbols. Redirect reports which of the
// four storage variants (plain value, variable alias, localized,
// forwarded) this symbol uses; RedirectTarget is meaningful for all but plain
// value.
type Symbol interface {
	Value() TaggedValue
	Redirect() symbolRedirectKind
	RedirectTarget() TaggedValue
}

// Vectorlike is implemented by generic pseudovectors: a flat slice of
// tagged-value slots following a header.
type Vectorlike interface {
	Slots() []TaggedValue
}

// Inline is implemented by self-representing values (small integers, and,
// on hosts that intern them statically, some built-in symbols) so their
// raw machine word can be written directly into a root slot without going
// through the dump at all.
type Inline interface {
	InlineBits() uint64
}

// HostResident is implemented by values whose body already lives in the
// host binary's data segment rather than the managed heap: built-in
// symbols, primitive subroutines, the main thread.
type HostResident interface {
	HostOffset() HostOff
}

// HashTable is implemented by host hash tables. Entries returns the
// table's (key, value) pairs; deferred until referents have final offsets
// because the flattened array's layout depends on hash-test
// standardization.
type HashTable interface {
	Entries() []struct{ Key, Value TaggedValue }
}

// writerFunc serializes one object, given its already-classified kind.
// Implementations call [DumpContext.objectStart]/[DumpContext.objectFinish]
// (or a helper built atop them) and must not write to c.buf outside that
// span.
type writerFunc func(c *DumpContext, v TaggedValue) (DumpOff, error)

// writerTable dispatches a TaggedValue to its per-type writer, first on
// Tag and then, for TagVectorlike, on PVecKind.
type writerTable struct {
	byTag  map[Tag]writerFunc
	byPVec map[PVecKind]writerFunc
}

// defaultWriterTable returns the built-in writer set for every major
// heap-value variant whose accessor interface the host implements. A host
// may override or extend it via [WithWriter] / [WithVectorlikeWriter].
func defaultWriterTable() *writerTable {
	t := &writerTable{
		byTag:  make(map[Tag]writerFunc),
		byPVec: make(map[PVecKind]writerFunc),
	}
	t.byTag[TagCons] = writeCons
	t.byTag[TagString] = writeString
	t.byTag[TagFloat] = writeFloat
	t.byTag[TagSymbol] = writeSymbol

	t.byPVec[PVecGeneric] = writeVectorlike
	t.byPVec[PVecHashTable] = writeHashTableEntry
	t.byPVec[PVecMarker] = writeMarker
	t.byPVec[PVecOverlay] = writeOverlay
	t.byPVec[PVecFinalizer] = writeFinalizer
	t.byPVec[PVecBignum] = writeBignum
	return t
}

func (t *writerTable) dispatch(c *DumpContext, v TaggedValue) (DumpOff, error) {
	tag := c.oracle.Classify(v)
	if tag != TagVectorlike {
		if fn, ok := t.byTag[tag]; ok {
			return fn(c, v)
		}
		return 0, unsupportedObject(fmt.Sprintf("no writer registered for tag %v", tag), c.renderPath(v))
	}
	kind := c.oracle.PseudovectorKind(v)
	if fn, ok := t.byPVec[kind]; ok {
		return fn(c, v)
	}
	return 0, unsupportedObject(fmt.Sprintf("no writer registered for pseudovector kind %d", kind), c.renderPath(v))
}

// consLayout is the on-disk shape of a cons cell: two tagged-value slots.
const consLayout = 8

func writeCons(c *DumpContext, v TaggedValue) (DumpOff, error) {
	cons, ok := v.Raw.(Cons)
	if !ok {
		return 0, unsupportedObject("value classified as Cons does not implement pdump.Cons", c.renderPath(v))
	}
	off := c.writeObjectDirect(v, consLayout, func(o *obj) {
		o.FieldTagged(0, cons.Car(), WeightStrong)
		o.FieldTagged(4, cons.Cdr(), WeightStrong)
	})
	return off, nil
}

// stringHeaderLayout is the fixed header written for a string; the byte
// payload itself is deferred to the cold section unless the
// string lives in the host's read-only data segment.
const stringHeaderLayout = 8

func writeString(c *DumpContext, v TaggedValue) (DumpOff, error) {
	s, ok := v.Raw.(String)
	if !ok {
		return 0, unsupportedObject("value classified as String does not implement pdump.String", c.renderPath(v))
	}

	if s.ReadOnly() {
		off := c.writeObjectDirect(v, stringHeaderLayout, func(o *obj) {
			o.FieldHostPtr(0, s.HostOffset())
			o.CopyField(4, encodeInt32(int32(len(s.Bytes()))))
		})
		return off, nil
	}

	c.DeferCold(v)
	return RememberedOffset(OnColdQueue).Offset(), nil
}

// writeStringCold emits a non-read-only string's bytes into the cold
// section and its small header into the hot section, called while
// draining the cold queue. The header is written now, even though the
// cold section's base offset isn't known yet, by routing the data pointer
// through the ordinary fixup mechanism exactly as it would for a forward
// self-reference — the only difference is *why* the offset is unknown.
func writeStringCold(c *DumpContext, v TaggedValue) {
	s := v.Raw.(String)
	data := s.Bytes()
	marker := TaggedValue{Raw: new(coldMarker)}
	c.deferColdOffset(marker, c.appendCold(data))

	off := c.writeObjectDirect(v, stringHeaderLayout, func(o *obj) {
		o.FieldFixupLater(0)
		o.CopyField(4, encodeInt32(int32(len(data))))
	})
	c.fixups.add(fixup{
		kind:        FixupPtrDumpRaw,
		dumpOffset:  off,
		referent:    marker,
		hasReferent: true,
	})
}

const floatLayout = 8

func writeFloat(c *DumpContext, v TaggedValue) (DumpOff, error) {
	if _, ok := v.Raw.(Float); !ok {
		return 0, unsupportedObject("value classified as Float does not implement pdump.Float", c.renderPath(v))
	}
	c.DeferCold(v)
	return RememberedOffset(OnColdQueue).Offset(), nil
}

// writeFloatCold emits a float's body entirely in the cold section.
// Anything that referenced this float before its cold offset was known did
// so via a fixup, resolved after [DumpContext.finalizeCold] fills in the
// real offset.
func writeFloatCold(c *DumpContext, v TaggedValue) {
	f := v.Raw.(Float)
	bits := math.Float64bits(f.Float64())
	body := append(encodeInt32(int32(bits)), encodeInt32(int32(bits>>32))...)
	c.deferColdOffset(v, c.appendCold(body))
}

const bignumHeaderLayout = 8

func writeBignum(c *DumpContext, v TaggedValue) (DumpOff, error) {
	bn, ok := v.Raw.(Bignum)
	if !ok {
		return 0, unsupportedObject("value classified as Bignum does not implement pdump.Bignum", c.renderPath(v))
	}
	limbs := bn.Limbs()
	limbBytes := make([]byte, 0, len(limbs)*4)
	for _, l := range limbs {
		limbBytes = append(limbBytes, byte(l), byte(l>>8), byte(l>>16), byte(l>>24))
	}
	marker := TaggedValue{Raw: new(coldMarker)}
	c.deferColdOffset(marker, c.appendCold(limbBytes))

	off := c.writeObjectDirect(v, bignumHeaderLayout, func(o *obj) {
		o.FieldFixupLater(0)
	})
	c.fixups.add(fixup{
		kind:        FixupBignumData,
		dumpOffset:  off,
		referent:    marker,
		hasReferent: true,
		arg:         int64(len(limbs)),
	})
	return off, nil
}

// coldMarker is a unique synthetic TaggedValue payload used so a cold
// blob that has no TaggedValue of its own (a string's byte data, a
// bignum's limb blob) can still be looked up through the ordinary
// remembered-offset map once its cold offset is finalized.
type coldMarker struct{}

const markerLayout = 24

func writeMarker(c *DumpContext, v TaggedValue) (DumpOff, error) {
	m, ok := v.Raw.(Marker)
	if !ok {
		return 0, unsupportedObject("value classified as Marker does not implement pdump.Marker", c.renderPath(v))
	}
	off := c.writeObjectDirect(v, markerLayout, func(o *obj) {
		o.FieldTagged(0, m.Buffer(), WeightNormal)
		o.CopyField(8, encodeInt64(m.CharPos()))
		o.CopyField(16, encodeInt64(m.BytePos()))
	})
	return off, nil
}

const overlayLayout = 24

func writeOverlay(c *DumpContext, v TaggedValue) (DumpOff, error) {
	ov, ok := v.Raw.(Overlay)
	if !ok {
		return 0, unsupportedObject("value classified as Overlay does not implement pdump.Overlay", c.renderPath(v))
	}
	off := c.writeObjectDirect(v, overlayLayout, func(o *obj) {
		o.FieldTagged(0, ov.Start(), WeightNormal)
		o.FieldTagged(8, ov.End(), WeightNormal)
		o.FieldTagged(16, ov.Plist(), WeightNormal)
	})
	return off, nil
}

const finalizerLayout = 16

func writeFinalizer(c *DumpContext, v TaggedValue) (DumpOff, error) {
	f, ok := v.Raw.(Finalizer)
	if !ok {
		return 0, unsupportedObject("value classified as Finalizer does not implement pdump.Finalizer", c.renderPath(v))
	}
	off := c.writeObjectDirect(v, finalizerLayout, func(o *obj) {
		o.FieldTagged(0, f.Function(), WeightNormal)
		if host, ok := f.NextHost(); ok {
			o.FieldHostPtr(8, host)
		}
		if host, ok := f.PrevHost(); ok {
			o.FieldHostPtr(12, host)
		}
	})
	return off, nil
}

func writeSymbol(c *DumpContext, v TaggedValue) (DumpOff, error) {
	if c.oracle.IsBuiltinSymbol(v) {
		c.DeferCopied(v)
		return RememberedOffset(OnCopiedQueue).Offset(), nil
	}
	c.DeferSymbol(v)
	return RememberedOffset(OnSymbolQueue).Offset(), nil
}

const symbolLayout = 8

// writeSymbolBody actually emits a non-builtin symbol's hot-section body,
// called while draining the symbol queue (or the copied queue, for
// built-in symbols), so bodies land in a contiguous band for cache
// locality. It returns the body's final dump offset.
func writeSymbolBody(c *DumpContext, v TaggedValue) DumpOff {
	s := v.Raw.(Symbol)
	off := c.writeObjectDirect(v, symbolLayout, func(o *obj) {
		switch s.Redirect() {
		case symbolPlainValue:
			o.FieldTagged(0, s.Value(), WeightNormal)
		default:
			o.FieldFixupLater(0)
		}
	})
	if s.Redirect() != symbolPlainValue {
		c.RememberSymbolAux(v, off, s.Redirect(), s.RedirectTarget())
	}
	return off
}

func writeVectorlike(c *DumpContext, v TaggedValue) (DumpOff, error) {
	vl, ok := v.Raw.(Vectorlike)
	if !ok {
		return 0, unsupportedObject("value classified as Vectorlike does not implement pdump.Vectorlike", c.renderPath(v))
	}
	slots := vl.Slots()
	size := c.oracle.SizeOf(v)
	if size < len(slots)*4 {
		size = len(slots) * 4
	}
	off := c.writeObjectDirect(v, size, func(o *obj) {
		for i, slot := range slots {
			o.FieldTagged(i*4, slot, WeightNormal)
		}
	})
	return off, nil
}

func writeHashTableEntry(c *DumpContext, v TaggedValue) (DumpOff, error) {
	if _, ok := v.Raw.(HashTable); !ok {
		return 0, unsupportedObject("value classified as HashTable does not implement pdump.HashTable", c.renderPath(v))
	}
	c.DeferHashTable(v)
	return RememberedOffset(OnHashTableQueue).Offset(), nil
}

// writeHashTableBody flattens a deferred hash table's entries into a
// contiguous (k, v) array, called once every other object (including
// other hash tables queued earlier) has a final offset.
func writeHashTableBody(c *DumpContext, v TaggedValue) {
	ht := v.Raw.(HashTable)
	entries := ht.Entries()
	size := 4 + len(entries)*8
	off := c.writeObjectDirect(v, size, func(o *obj) {
		o.CopyField(0, encodeInt32(int32(len(entries))))
		for i, e := range entries {
			o.FieldTagged(4+i*8, e.Key, WeightNormal)
			o.FieldTagged(8+i*8, e.Value, WeightNormal)
		}
	})
	c.hashTableOffsets = append(c.hashTableOffsets, off)
}

func encodeInt64(v int64) []byte {
	u := uint64(v)
	b := make([]byte, 8)
	for i := range b {
		b[i] = byte(u >> (8 * i))
	}
	return b
}
