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
)

func TestHookRegistryRunsEarlyHooksInRegistrationOrder(t *testing.T) {
	t.Parallel()

	r := newHookRegistry()
	var order []int
	r.RegisterHook(func() { order = append(order, 1) })
	r.RegisterHook(func() { order = append(order, 2) })
	r.runEarly()
	assert.Equal(t, []int{1, 2}, order)
}

func TestHookRegistryRunsLateHooksSeparatelyFromEarly(t *testing.T) {
	t.Parallel()

	r := newHookRegistry()
	var early, late bool
	r.RegisterHook(func() { early = true })
	r.RegisterLateHook(func() { late = true })

	r.runEarly()
	assert.True(t, early)
	assert.False(t, late)

	r.runLate()
	assert.True(t, late)
}

func TestRememberScalarAndTaggedPtrAccumulate(t *testing.T) {
	t.Parallel()

	r := newHookRegistry()
	r.RememberScalar(16, 4)
	r.RememberScalar(32, 8)
	r.RememberTaggedPtr(64, TagCons)

	assert.Equal(t, []rememberedScalar{{16, 4}, {32, 8}}, r.scalars)
	assert.Equal(t, []rememberedTaggedPtr{{64, TagCons}}, r.tagged)
}
