// Copyright 2025 Buf Technologies, Inc.
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

// Package mmapio implements the loader's memory-mapping layer: reserve one contiguous address range, then replace it piecewise
// with file-backed mappings for the hot, discardable, and cold sections, so
// a single base pointer plus three fixed offsets describes the whole dump.
//
// The approach mirrors the page-reservation trick used for hot-reloadable
// executable pages elsewhere in the corpus this package's style is drawn
// from: reserve first with PROT_NONE/anonymous, then hand out sub-ranges of
// that reservation with MAP_FIXED so the kernel never hands back
// overlapping addresses to someone else in between.
package mmapio

import "errors"

// ErrUnrepresentable is returned when the mapped range's addresses would
// not survive the host's tagged-pointer encoding.
var ErrUnrepresentable = errors.New("mmapio: mapped range unrepresentable by host tagged pointers")

// Section identifies one of the dump's three mapped regions.
type Section int

const (
	Hot Section = iota
	Discardable
	Cold
)

// Mapping is a contiguous reservation holding all three dump sections
// back-to-back, file-backed where the file has data for them.
type Mapping struct {
	Base  []byte // the whole reservation, Base[0] is the start of Hot
	impl  mappingImpl
	total int
}

// Len returns the size of the whole reservation in bytes.
func (m *Mapping) Len() int { return m.total }

// Bytes returns the byte range for a section, given the three section
// boundaries (hot=[0,discStart), discardable=[discStart,coldStart),
// cold=[coldStart,total)).
func (m *Mapping) Bytes(discStart, coldStart int, s Section) []byte {
	switch s {
	case Hot:
		return m.Base[:discStart]
	case Discardable:
		return m.Base[discStart:coldStart]
	default:
		return m.Base[coldStart:]
	}
}
