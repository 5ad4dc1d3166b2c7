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

import "fmt"

// DumpOff is a signed offset into the dump file. All intra-dump addressing
// uses this type; it is never compared against a [HostOff] without going
// through a relocation.
type DumpOff int32

// HostOff is a signed offset relative to the host basis (the address of a
// designated global in the host binary, supplied by [HostBasis]). Every
// host-targeted relocation is expressed in terms of this type.
type HostOff int32

// Tag discriminates the variants of [TaggedValue]. The exact bit encoding a
// host uses to pack a Tag into its machine word is opaque to this package;
// values of this type are obtained only through [TypeOracle.Classify].
type Tag uint8

const (
	TagInt Tag = iota
	TagSymbol
	TagString
	TagCons
	TagFloat
	TagVectorlike
)

func (t Tag) String() string {
	switch t {
	case TagInt:
		return "int"
	case TagSymbol:
		return "symbol"
	case TagString:
		return "string"
	case TagCons:
		return "cons"
	case TagFloat:
		return "float"
	case TagVectorlike:
		return "vectorlike"
	default:
		return fmt.Sprintf("Tag(%d)", uint8(t))
	}
}

// PVecKind further discriminates TagVectorlike values into the pseudovector
// families the per-type writers know how to serialize.
type PVecKind uint8

const (
	PVecGeneric PVecKind = iota
	PVecHashTable
	PVecObarray
	PVecBuffer
	PVecSubr
	PVecBoolVector
	PVecSubCharTable
	PVecIntervalTree
	PVecItreeNode
	PVecCompiledQuery
	PVecMarker
	PVecOverlay
	PVecFinalizer
	PVecBignum
)

// TaggedValue is the host interpreter's machine-word value, carrying a
// low-bit type tag that this package never inspects directly: every
// operation on a TaggedValue goes through the [TypeOracle] that classified
// it. Raw is opaque outside the host; it exists so a TaggedValue can be
// used as a map key when deduplicating referents.
type TaggedValue struct {
	Raw any
}

// Value wraps an arbitrary host value as a TaggedValue. The writer treats
// two TaggedValues as the same object when their Raw fields compare equal
// under Go's == operator, which is why the host must hand out pointer-typed
// or otherwise identity-preserving Raw values for anything heap-allocated.
func Value(raw any) TaggedValue { return TaggedValue{Raw: raw} }
