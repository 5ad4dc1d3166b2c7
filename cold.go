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

import "github.com/stoewer/go-strcase"

// appendCold appends data to the cold-section staging buffer and returns
// its offset *relative to the start of the staged cold bytes*, whose
// absolute offset is not known until every other object, including the
// cold strings' headers written by drainCold, has been written. Callers
// that need the final, absolute DumpOff register it with
// [DumpContext.deferColdOffset] and let a fixup resolve it later.
func (c *DumpContext) appendCold(data []byte) DumpOff {
	off := DumpOff(len(c.coldBuf))
	c.coldBuf = append(c.coldBuf, data...)
	return off
}

// deferColdOffset records that marker's final RememberedOffset is the
// staged cold bytes' start plus rel, to be filled in once finalizeCold runs.
func (c *DumpContext) deferColdOffset(marker TaggedValue, rel DumpOff) {
	c.coldPending = append(c.coldPending, coldPendingEntry{marker, rel})
}

type coldPendingEntry struct {
	marker TaggedValue
	rel    DumpOff
}

// finalizeCold assigns every pending cold marker its real, absolute
// offset, now that the staged cold bytes' start is known. It must run after
// the cold queue has finished draining and before the fixup resolver runs.
func (c *DumpContext) finalizeCold(bytesStart DumpOff) {
	for _, p := range c.coldPending {
		c.remembered.set(p.marker, RememberedOffset(bytesStart+p.rel))
	}
	c.coldPending = nil
}

// drainCold writes every object deferred to the cold section: non-read-only strings and floats route through their
// dedicated cold writers; bool-vectors and other bulk blobs a host
// registers go through [DumpContext.WriteColdBlob] directly at
// enqueue time and never appear in this queue.
func (c *DumpContext) drainCold() {
	for _, v := range c.coldQueue {
		switch v.Raw.(type) {
		case String:
			writeStringCold(c, v)
		case Float:
			writeFloatCold(c, v)
		default:
			panic(integrityViolation("cold queue entry is neither String nor Float"))
		}
	}
	c.coldQueue = nil
}

// WriteColdBlob appends a bulk, never-relocated blob to the cold section
// and returns a marker object a fixup can later resolve
// to the blob's final offset, via [DumpContext.deferColdOffset] having
// already been called on it.
//
// This function writes whatever bytes it is given verbatim; it does not
// sanitize native-subr names (a host that wants that calls
// [SanitizeSubrName] itself before passing the bytes in).
func (c *DumpContext) WriteColdBlob(data []byte) TaggedValue {
	marker := TaggedValue{Raw: new(coldMarker)}
	c.deferColdOffset(marker, c.appendCold(data))
	return marker
}

// SanitizeSubrName converts a native-subr's raw host identifier into a
// stable, host-portable identifier before it is written to the cold
// section: the source stores raw C identifiers, which are
// not guaranteed to be valid identifiers on every host this package might
// target.
func SanitizeSubrName(raw string) string {
	return strcase.SnakeCase(raw)
}
