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
	"io"
	"os"
)

// ReadHeader reads and decodes just the fixed-size header at the front of
// path, without mapping the rest of the file or requiring a fingerprint
// match. It exists for tooling that inspects a dump produced by some other
// build than the one doing the inspecting, which [Load] refuses to do.
func ReadHeader(path string) (Header, error) {
	f, err := os.Open(path)
	if err != nil {
		return Header{}, err
	}
	defer f.Close()

	buf := make([]byte, HeaderSize)
	if _, err := io.ReadFull(f, buf); err != nil {
		return Header{}, err
	}
	hdr, ok := decodeHeader(buf)
	if !ok {
		return Header{}, &loadErr{status: LoadBadFileType}
	}
	if !hdr.looksLikeDump() {
		return Header{}, &loadErr{status: LoadBadFileType}
	}
	return hdr, nil
}

// HeaderReport is a flattened, display-friendly view of a [Header], used by
// inspection tooling that wants plain fields rather than the packed
// locator layout.
type HeaderReport struct {
	Complete         bool
	Fingerprint      Fingerprint
	EarlyRelocs      uint32
	LateRelocs       uint32
	VeryLateRelocs   uint32
	ObjectCount      uint32
	EmacsRelocCount  uint32
	DiscardableStart DumpOff
	ColdStart        DumpOff
	HashList         DumpOff
}

// Report flattens h into a [HeaderReport].
func (h Header) Report() HeaderReport {
	return HeaderReport{
		Complete:         h.isComplete(),
		Fingerprint:      h.Fingerprint,
		EarlyRelocs:      h.DumpRelocs[Early].Count,
		LateRelocs:       h.DumpRelocs[Late].Count,
		VeryLateRelocs:   h.DumpRelocs[VeryLate].Count,
		ObjectCount:      h.ObjectStarts.Count,
		EmacsRelocCount:  h.EmacsRelocs.Count,
		DiscardableStart: h.DiscardableStart,
		ColdStart:        h.ColdStart,
		HashList:         h.HashList,
	}
}
