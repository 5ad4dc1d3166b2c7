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

//go:build !unix

package mmapio

import (
	"fmt"
	"os"
)

type mappingImpl struct{}

// Open falls back to malloc-and-read on platforms with no MAP_FIXED: the
// three sections are read into one contiguous allocation instead of
// mapped, so the rest of the loader sees the same [Hot | Discardable |
// Cold] layout either way.
func Open(f *os.File, total, discStart, coldStart int, fileOffHot, fileOffDisc, fileOffCold int64) (*Mapping, error) {
	base := make([]byte, total)
	sections := []struct {
		start, end int
		fileOff    int64
	}{
		{0, discStart, fileOffHot},
		{discStart, coldStart, fileOffDisc},
		{coldStart, total, fileOffCold},
	}
	for _, s := range sections {
		if s.end <= s.start {
			continue
		}
		if _, err := f.ReadAt(base[s.start:s.end], s.fileOff); err != nil {
			return nil, fmt.Errorf("mmapio: read section [%d:%d) at file offset %d: %w", s.start, s.end, s.fileOff, err)
		}
	}
	return &Mapping{Base: base, total: total}, nil
}

// Close is a no-op: base is ordinary heap memory, reclaimed by the GC.
func (m *Mapping) Close() error {
	m.Base = nil
	return nil
}

// Discard is a no-op fallback: without a real mapping there is no
// kernel-level page to advise away, so the discardable section's memory is
// simply freed along with the rest of the mapping when it's dropped.
func (m *Mapping) Discard(discStart, coldStart int) error {
	return nil
}
