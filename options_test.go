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
	"github.com/stretchr/testify/require"

	"pdump.dev/pdump/internal/pconfig"
)

func TestWithConfigOverridesWriterTunables(t *testing.T) {
	t.Parallel()

	cfg := pconfig.Config{Alignment: 32}
	w := NewWriter(fakeOracle{}, nil, nil, WithConfig(cfg))
	assert.Equal(t, cfg, w.cfg)
}

func TestWithReferrerTrackingDefaultsOff(t *testing.T) {
	t.Parallel()

	w := NewWriter(fakeOracle{}, nil, nil)
	assert.False(t, w.trackReferrers)

	w = NewWriter(fakeOracle{}, nil, nil, WithReferrerTracking(true))
	assert.True(t, w.trackReferrers)
}

func TestWithWriterOverridesByTagEntry(t *testing.T) {
	t.Parallel()

	called := false
	fn := func(c *DumpContext, v TaggedValue) (DumpOff, error) {
		called = true
		return 0, nil
	}
	w := NewWriter(fakeOracle{}, nil, nil, WithWriter(TagInt, fn))

	got := w.writers.byTag[TagInt]
	require.NotNil(t, got)
	_, _ = got(nil, TaggedValue{})
	assert.True(t, called)
}

func TestWithVectorlikeWriterOverridesByPVecEntry(t *testing.T) {
	t.Parallel()

	called := false
	fn := func(c *DumpContext, v TaggedValue) (DumpOff, error) {
		called = true
		return 0, nil
	}
	w := NewWriter(fakeOracle{}, nil, nil, WithVectorlikeWriter(PVecGeneric, fn))

	got := w.writers.byPVec[PVecGeneric]
	require.NotNil(t, got)
	_, _ = got(nil, TaggedValue{})
	assert.True(t, called)
}

func TestWithHooksReplacesDefaultRegistry(t *testing.T) {
	t.Parallel()

	reg := newHookRegistry()
	reg.RegisterHook(func() {})
	w := NewWriter(fakeOracle{}, nil, nil, WithHooks(reg))
	assert.Same(t, reg, w.hooks)
}

func TestWithFingerprintBindsHostIdentity(t *testing.T) {
	t.Parallel()

	fp := Fingerprint{0x1, 0x2, 0x3}
	w := NewWriter(fakeOracle{}, nil, nil, WithFingerprint(fp))
	assert.Equal(t, fp, w.fingerprint)
}

func TestNewWriterAppliesOptionsInOrderLaterWins(t *testing.T) {
	t.Parallel()

	w := NewWriter(fakeOracle{}, nil, nil,
		WithConfig(pconfig.Config{Alignment: 8}),
		WithConfig(pconfig.Config{Alignment: 64}),
	)
	assert.Equal(t, 64, w.cfg.Alignment)
}
