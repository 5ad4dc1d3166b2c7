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

package pconfig_test

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"pdump.dev/pdump/internal/pconfig"
)

func TestNormalizedFillsZeroConfig(t *testing.T) {
	t.Parallel()

	cfg := pconfig.Config{}.Normalized()
	assert.Equal(t, pconfig.DefaultAlignment, cfg.Alignment)
	assert.Equal(t, pconfig.DefaultPageSize, cfg.PageSize)
	assert.Equal(t, pconfig.DefaultArenaBaseline, cfg.ArenaBaseline)
	assert.Equal(t, pconfig.DefaultWeightNone, cfg.Weights.None)
	assert.Equal(t, pconfig.DefaultWeightNormal, cfg.Weights.Normal)
	assert.Equal(t, pconfig.DefaultWeightStrong, cfg.Weights.Strong)
}

func TestNormalizedPreservesExplicitOverrides(t *testing.T) {
	t.Parallel()

	cfg := pconfig.Config{Alignment: 16, PageSize: 4096}.Normalized()
	assert.Equal(t, 16, cfg.Alignment)
	assert.Equal(t, 4096, cfg.PageSize)
	// Fields left zero still get the defaults.
	assert.Equal(t, pconfig.DefaultArenaBaseline, cfg.ArenaBaseline)
}

func TestNormalizedAlwaysClearsDangerousSkipFixup(t *testing.T) {
	t.Parallel()

	cfg := pconfig.Config{DangerousSkipFixup: true}.Normalized()
	assert.False(t, cfg.DangerousSkipFixup, "this knob must never survive normalization set")
}

func TestLoadMissingFileReturnsZeroConfig(t *testing.T) {
	t.Parallel()

	cfg, err := pconfig.Load(filepath.Join(t.TempDir(), "does-not-exist.yaml"))
	require.NoError(t, err)
	assert.Equal(t, pconfig.Config{}, cfg)
}

func TestLoadParsesYAML(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	path := filepath.Join(dir, "pdump.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`
alignment: 16
page_size: 4096
weights:
  none: 0
  normal: 500
  strong: 900
`), 0o644))

	cfg, err := pconfig.Load(path)
	require.NoError(t, err)
	assert.Equal(t, 16, cfg.Alignment)
	assert.Equal(t, 4096, cfg.PageSize)
	assert.Equal(t, int32(500), cfg.Weights.Normal)
	assert.Equal(t, int32(900), cfg.Weights.Strong)
}
