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

// Package pconfig holds the dumper's tunable constants. Sane defaults are
// hardcoded everywhere; this package lets an embedder override them from a
// YAML file without touching code, the same way a deployment would tune GC
// pacing or buffer sizes without a rebuild.
package pconfig

import (
	"os"

	"gopkg.in/yaml.v3"
)

// Weights holds the queue's three edge weights.
type Weights struct {
	None   int32 `yaml:"none"`
	Normal int32 `yaml:"normal"`
	Strong int32 `yaml:"strong"`
}

// Config is the dumper's tunable surface. The zero Config is valid and
// Normalized() fills it in with the package's hardcoded defaults.
type Config struct {
	// Alignment is a DUMP_ALIGNMENT value; Normalized turns 0 into 8. The
	// root package's writer and loader take their alignment from the
	// TypeOracle and do not read this field.
	Alignment int `yaml:"alignment"`

	// PageSize is the worst-case page size cold_start is rounded up to.
	// 0 means 64 KiB.
	PageSize int `yaml:"page_size"`

	// ArenaBaseline is the output buffer's initial capacity before it
	// starts doubling. 0 means 8 MiB.
	ArenaBaseline int `yaml:"arena_baseline"`

	// Weights holds queue edge weights; Normalized turns a zero Weights
	// into the defaults {0, 1000, 1200}. The root package's queue uses its
	// own fixed Weight constants and does not read this field.
	Weights Weights `yaml:"weights"`

	// DangerousSkipFixup mirrors the source's compile-time-disabled
	// short-circuit that would skip the fixup indirection when an
	// object's offset is already known. It
	// must never be set true by any code path in this module; it exists
	// only so the knob is visible and documented rather than silently
	// absent.
	DangerousSkipFixup bool `yaml:"dangerous_skip_fixup"`
}

// Default alignment/page-size/buffer constants.
const (
	DefaultAlignment     = 8
	DefaultPageSize      = 64 * 1024
	DefaultArenaBaseline = 8 * 1024 * 1024
	DefaultWeightNone    = int32(0)
	DefaultWeightNormal  = int32(1000)
	DefaultWeightStrong  = int32(1200)
)

// Normalized returns a copy of c with every zero field replaced by the
// package's hardcoded default.
func (c Config) Normalized() Config {
	if c.Alignment == 0 {
		c.Alignment = DefaultAlignment
	}
	if c.PageSize == 0 {
		c.PageSize = DefaultPageSize
	}
	if c.ArenaBaseline == 0 {
		c.ArenaBaseline = DefaultArenaBaseline
	}
	if c.Weights.None == 0 && c.Weights.Normal == 0 && c.Weights.Strong == 0 {
		c.Weights = Weights{None: DefaultWeightNone, Normal: DefaultWeightNormal, Strong: DefaultWeightStrong}
	}
	c.DangerousSkipFixup = false
	return c
}

// Load reads a YAML config file. A missing file is not an error: it returns
// the zero Config, which Normalized() turns into the package's defaults.
func Load(path string) (Config, error) {
	var cfg Config
	data, err := os.ReadFile(path)
	if os.IsNotExist(err) {
		return cfg, nil
	}
	if err != nil {
		return cfg, err
	}
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return cfg, err
	}
	return cfg, nil
}
