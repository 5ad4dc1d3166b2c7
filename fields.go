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

// placeholderWord is written into a slot with a pending fixup, so a hex
// dump of a partially-resolved buffer is recognizable.
const placeholderWord uint32 = 0xDEADF00D

// obj is the per-object cursor the field helpers operate against: the
// object's start offset (for computing field offsets relative to it) and
// the out buffer being populated in place.
type obj struct {
	ctx   *DumpContext
	start DumpOff
	out   []byte
}

// requireActive panics with an integrity violation if called outside an
// object_start/object_finish span.
func (o *obj) requireActive() {
	if o.ctx.buf.inProgressObjectOffset == 0 {
		panic(integrityViolation("field helper called outside object_start/object_finish"))
	}
}

// CopyField copies raw bytes verbatim at the given field offset.
func (o *obj) CopyField(offset int, data []byte) {
	o.requireActive()
	copy(o.out[offset:], data)
}

// FieldTagged writes a tagged-value slot. A
// self-representing value (small integer, built-in symbol on hosts that
// intern them statically) is written inline; otherwise a placeholder is
// written, a LispObject fixup is recorded, and the referent is enqueued
// with the given weight.
func (o *obj) FieldTagged(offset int, v TaggedValue, weight Weight) {
	o.requireActive()
	if o.ctx.oracle.IsSelfRepresenting(v) {
		o.writeInline(offset, v)
		return
	}
	o.patchPlaceholder(offset)
	tag := o.ctx.oracle.Classify(v)
	o.ctx.fixups.add(fixup{
		kind:        FixupLispObject,
		dumpOffset:  o.start + DumpOff(offset),
		referent:    v,
		hasReferent: true,
		tag:         tag,
	})
	o.ctx.enqueue(v, o.start, weight)
}

// FieldPtrAsTagged writes a raw pointer field that is rematerialized at
// load as a tagged value of the given kind. A nil v passes through as zero.
func (o *obj) FieldPtrAsTagged(offset int, v TaggedValue, kind Tag, weight Weight) {
	o.requireActive()
	if v.Raw == nil {
		return
	}
	o.patchPlaceholder(offset)
	o.ctx.fixups.add(fixup{
		kind:        FixupLispObjectRaw,
		dumpOffset:  o.start + DumpOff(offset),
		referent:    v,
		hasReferent: true,
		tag:         kind,
	})
	o.ctx.enqueue(v, o.start, weight)
}

// FieldHostPtr writes a raw pointer field that targets the host binary's
// data segment.
func (o *obj) FieldHostPtr(offset int, target HostOff) {
	o.requireActive()
	copy(o.out[offset:], encodeInt32(int32(target)))
	o.ctx.emitReloc(Early, NewDumpReloc(RelocDumpToHostPtr, o.start+DumpOff(offset)))
}

// FieldDumpPtr writes a raw pointer field targeting another object in the
// dump whose offset is already known.
func (o *obj) FieldDumpPtr(offset int, target DumpOff) {
	o.requireActive()
	copy(o.out[offset:], encodeInt32(int32(target)))
	o.ctx.emitReloc(Early, NewDumpReloc(RelocDumpToDumpPtr, o.start+DumpOff(offset)))
}

// FieldFixupLater records that a later call will patch this slot, and
// validates that the field lies within a sensible object-size bound.
func (o *obj) FieldFixupLater(offset int) {
	o.requireActive()
	if offset < 0 || offset > maxFixupFieldBytes {
		panic(integrityViolation("field_fixup_later offset %d exceeds %d byte bound", offset, maxFixupFieldBytes))
	}
	o.patchPlaceholder(offset)
}

func (o *obj) patchPlaceholder(offset int) {
	copy(o.out[offset:], encodeInt32(int32(placeholderWord)))
}

func (o *obj) writeInline(offset int, v TaggedValue) {
	// The inline encoding of a self-representing value is host-defined: a
	// value implementing [Inline] has the low 32 bits of its InlineBits
	// written into the slot; any other value leaves a zero word.
	var bits uint64
	if inl, ok := v.Raw.(Inline); ok {
		bits = inl.InlineBits()
	}
	copy(o.out[offset:], encodeInt32(int32(uint32(bits))))
}
