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

// RememberedOffset is the tri-state recorded per object the writer has
// seen: a positive value is the object's final dump offset, zero
// means the object has never been seen, and the six negative sentinels
// mean "seen, and currently sitting on a named deferral queue."
type RememberedOffset int32

const (
	NotSeen RememberedOffset = 0

	OnNormalQueue    RememberedOffset = -1
	OnColdQueue      RememberedOffset = -2
	OnSymbolQueue    RememberedOffset = -3
	OnHashTableQueue RememberedOffset = -4
	OnCopiedQueue    RememberedOffset = -5
	RuntimeMagic     RememberedOffset = -6
)

// IsWritten reports whether r holds a real, final dump offset.
func (r RememberedOffset) IsWritten() bool { return r > 0 }

// Offset returns r as a DumpOff. Only meaningful when IsWritten is true.
func (r RememberedOffset) Offset() DumpOff { return DumpOff(r) }

// rememberedMap tracks, for every object the writer has encountered, its
// current RememberedOffset.
type rememberedMap struct {
	m map[TaggedValue]RememberedOffset
}

func newRememberedMap() *rememberedMap {
	return &rememberedMap{m: make(map[TaggedValue]RememberedOffset)}
}

func (r *rememberedMap) get(v TaggedValue) RememberedOffset {
	return r.m[v]
}

func (r *rememberedMap) set(v TaggedValue, off RememberedOffset) {
	r.m[v] = off
}
