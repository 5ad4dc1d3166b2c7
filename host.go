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

// TypeOracle is the host interpreter's type system, consumed by the writer
// to classify values and size pseudovectors. A host never
// implements the writer's field helpers directly; it only answers these
// classification questions.
type TypeOracle interface {
	// Classify returns v's top-level tag.
	Classify(v TaggedValue) Tag

	// PseudovectorKind further discriminates a TagVectorlike value.
	PseudovectorKind(v TaggedValue) PVecKind

	// IsBuiltinSymbol reports whether v is a symbol embedded in the host
	// binary's data segment rather than the managed heap.
	IsBuiltinSymbol(v TaggedValue) bool

	// IsSelfRepresenting reports whether v's tagged word can be written
	// inline without any relocation (small integers, and, on hosts that
	// intern them statically, some built-in symbols).
	IsSelfRepresenting(v TaggedValue) bool

	// SizeOf returns the byte size of a vectorlike's in-memory
	// representation, header included.
	SizeOf(v TaggedValue) int

	// Alignment returns the host's GC alignment. A TypeOracle that returns
	// 0 gets [DefaultAlignment] substituted.
	Alignment() int

	// EncodeDumpLv composes the tagged machine word a host uses to
	// reference a value of the given tag living at target within the
	// dump. The loader calls this once per [RelocDumpToDumpLv] slot,
	// after the slot already holds target as a raw [DumpOff]: the bit
	// encoding itself is host-opaque, the same reason [TaggedValue]
	// documents Classify as the only legitimate way to obtain a Tag.
	EncodeDumpLv(tag Tag, target DumpOff) uint32

	// EncodeHostLv composes the tagged machine word for a value of the
	// given tag whose referent is a pointer already resident in the host
	// image at target. The loader calls this once per
	// [RelocDumpToHostLv] slot.
	EncodeHostLv(tag Tag, target HostOff) uint32
}

// RootKind classifies a static GC root enumerated by [Reflect.Roots].
type RootKind uint8

const (
	RootCSymbol RootKind = iota
	RootStaticpro
	RootOther
)

// Reflect enumerates the host's static GC roots for the writer to start
// walking from.
type Reflect interface {
	// Roots calls visit once per static root, in any order: host is the
	// address of the static variable holding v, which the writer patches
	// with a root-rewriting host-reloc once v's final location is known.
	// The writer treats the visitation as exhaustive: anything unreachable
	// from these roots will not appear in the dump.
	Roots(visit func(host HostOff, v TaggedValue, kind RootKind))
}

// HostBasis returns the address of a host-designated global; every
// [HostOff] value this package produces is relative to it.
type HostBasis func() HostOff

// HostPoke lets the loader apply a host-reloc against the live process.
// A dump-reloc only ever rewrites bytes already mapped from
// the file, which this package can do itself; a host-reloc mutates the
// host's own data segment — a designated global's storage, or a built-in
// symbol's body — which this package cannot reach without the host's
// cooperation, the same way [Reflect] and the accessor interfaces are the
// only way the writer reaches into host memory.
type HostPoke interface {
	// PokeImmediate writes a self-representing tagged value's raw machine
	// word directly into the root slot at host.
	PokeImmediate(host HostOff, bits uint64)

	// PokeDumpLv composes a tagged value of the given kind from target's
	// final dump offset and writes it into the root slot at host.
	PokeDumpLv(host HostOff, tag Tag, target DumpOff)

	// PokeHostLv composes a tagged value of the given kind from a pointer
	// already resident in the host image and writes it into the root slot
	// at host.
	PokeHostLv(host HostOff, tag Tag, target HostOff)

	// PokeDumpPtrRaw writes target's final dump offset, untagged, into the
	// root slot at host.
	PokeDumpPtrRaw(host HostOff, target DumpOff)

	// PokeHostPtrRaw writes a pointer already resident in the host image,
	// untagged, into the root slot at host.
	PokeHostPtrRaw(host HostOff, target HostOff)

	// PokeCopyFromDump copies data, read out of the dump's discardable
	// section before it is discarded, into the host's data segment at
	// host.
	PokeCopyFromDump(host HostOff, data []byte)
}

// Fingerprint binds a dump to exactly one host binary build. Two builds from byte-identical source still disagree if they
// were produced by different build invocations; see [ComputeFingerprint].
type Fingerprint [32]byte
