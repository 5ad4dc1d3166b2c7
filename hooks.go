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

// Hook is a post-load callback. Early hooks run after Early
// relocations and the discardable-range discard; late hooks run after
// Late and VeryLate relocations.
type Hook func()

// hookRegistry is the static table of post-load callbacks.
type hookRegistry struct {
	early []Hook
	late  []Hook

	scalars []rememberedScalar
	tagged  []rememberedTaggedPtr
}

type rememberedScalar struct {
	host   HostOff
	nbytes int
}

type rememberedTaggedPtr struct {
	host HostOff
	tag  Tag
}

func newHookRegistry() *hookRegistry { return &hookRegistry{} }

// RegisterHook registers an early post-load callback.
func (r *hookRegistry) RegisterHook(fn Hook) { r.early = append(r.early, fn) }

// RegisterLateHook registers a very-late post-load callback.
func (r *hookRegistry) RegisterLateHook(fn Hook) { r.late = append(r.late, fn) }

// RememberScalar preserves nbytes of raw data at a host offset across the
// dump boundary, without interpreting it as a reference.
func (r *hookRegistry) RememberScalar(host HostOff, nbytes int) {
	r.scalars = append(r.scalars, rememberedScalar{host, nbytes})
}

// RememberTaggedPtr preserves a reference at a host offset whose target
// must itself be dumped.
func (r *hookRegistry) RememberTaggedPtr(host HostOff, tag Tag) {
	r.tagged = append(r.tagged, rememberedTaggedPtr{host, tag})
}

func (r *hookRegistry) runEarly() {
	for _, h := range r.early {
		h()
	}
}

func (r *hookRegistry) runLate() {
	for _, h := range r.late {
		h()
	}
}
