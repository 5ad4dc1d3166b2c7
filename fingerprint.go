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
	"github.com/google/uuid"
	"golang.org/x/crypto/blake2b"
)

// LayoutDescriptor is a build-time hash of a [TypeOracle] implementation's
// struct shapes, produced by cmd/layoutcheck and supplied here so the
// fingerprint also changes whenever the host's on-disk layout does.
type LayoutDescriptor [32]byte

// BuildIdentity names one build of the host binary: a stable identifier
// (e.g. a VCS revision or content hash of the binary) plus a layout
// descriptor. It deliberately excludes wall-clock time, which this
// package's environment forbids reading ad hoc; uniqueness across rebuilds
// of identical source instead comes from BuildInstance.
type BuildIdentity struct {
	BuildID string
	Layout  LayoutDescriptor

	// BuildInstance disambiguates two otherwise byte-identical builds
	// produced by different invocations. Callers that can't supply a real
	// build-instance UUID should generate one with [uuid.New] once per
	// build and bake it into the binary.
	BuildInstance uuid.UUID
}

// ComputeFingerprint derives the dump/load fingerprint from a host build's
// identity: blake2b-256 over the build ID and layout
// descriptor, with the build-instance UUID folded in last.
func ComputeFingerprint(id BuildIdentity) Fingerprint {
	h, err := blake2b.New256(nil)
	if err != nil {
		// blake2b.New256 only fails for an over-long key, and we pass nil.
		panic(err)
	}
	_, _ = h.Write([]byte(id.BuildID))
	_, _ = h.Write(id.Layout[:])
	instance := id.BuildInstance
	_, _ = h.Write(instance[:])

	var fp Fingerprint
	copy(fp[:], h.Sum(nil))
	return fp
}
