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
	"encoding/binary"
	"errors"
	"io"
	"os"

	"golang.org/x/sync/errgroup"
	"golang.org/x/sync/singleflight"

	"pdump.dev/pdump/internal/dlog"
	"pdump.dev/pdump/internal/mmapio"
)

// loadGroup collapses concurrent calls to Load against the same path into
// one real load. The writer/loader contract assumes the loader runs before
// any interpreter threads exist, but a host embedding this as an ordinary
// Go package cannot always arrange that at the type level, so this is
// defense in depth rather than a relaxation of that contract.
var loadGroup singleflight.Group

// Stats summarizes a successfully loaded dump, meaningful only when [Load]
// returns with a nil error.
type Stats struct {
	TotalBytes       int
	DiscardableBytes int
	ColdBytes        int
	ObjectCount      int
	DumpRelocCount   [3]int
	EmacsRelocCount  int
}

// LoadedDump is a mapped, relocated dump. Every accessor is read-only
// except the GC mark-bit swap at a collection boundary.
type LoadedDump struct {
	mapping *mmapio.Mapping
	header  Header
	oracle  TypeOracle
	basis   HostBasis

	relocs      [3][]DumpReloc
	emacsRelocs []EmacsReloc
	objectStarts []DumpOff

	bitsets *Bitsets
}

// Load opens, validates, maps, and relocates a dump written by
// [Writer.Dump].
//
// fp must match the Fingerprint the dump was written with, or Load refuses
// with a version-mismatch error: a dump is only ever valid against the
// exact host build that produced it. poke applies every host-reloc before
// the discardable section is discarded — a CopyFromDump reloc reads its
// source bytes out of that section, so it cannot run after. hooks, if
// non-nil, receives its early callbacks right after the discard and its
// late callbacks after every dump-reloc phase has been walked.
//
// Concurrent calls to Load against the same path are collapsed into one
// real load and share its result and error.
func Load(path string, oracle TypeOracle, basis HostBasis, fp Fingerprint, poke HostPoke, hooks *hookRegistry) (*LoadedDump, error) {
	v, err, _ := loadGroup.Do(path, func() (any, error) {
		return load(path, oracle, basis, fp, poke, hooks)
	})
	if err != nil {
		return nil, err
	}
	return v.(*LoadedDump), nil
}

func load(path string, oracle TypeOracle, basis HostBasis, fp Fingerprint, poke HostPoke, hooks *hookRegistry) (*LoadedDump, error) {
	f, err := os.Open(path)
	if errors.Is(err, os.ErrNotExist) {
		return nil, &loadErr{status: LoadFileNotFound, cause: err}
	}
	if err != nil {
		return nil, &loadErr{status: LoadError, cause: err}
	}
	defer f.Close()

	headerBytes := make([]byte, HeaderSize)
	if _, err := io.ReadFull(f, headerBytes); err != nil {
		return nil, &loadErr{status: LoadBadFileType, cause: err}
	}
	hdr, ok := decodeHeader(headerBytes)
	if !ok {
		return nil, &loadErr{status: LoadBadFileType}
	}
	if !hdr.looksLikeDump() {
		return nil, &loadErr{status: LoadBadFileType}
	}
	if !hdr.isComplete() {
		return nil, &loadErr{status: LoadFailedDump}
	}
	if hdr.Fingerprint != fp {
		return nil, &loadErr{status: LoadVersionMismatch}
	}

	info, err := f.Stat()
	if err != nil {
		return nil, &loadErr{status: LoadError, cause: err}
	}
	total := int(info.Size())
	coldStart := int(hdr.ColdStart)
	// The discardable section is mapped at its own file offset, which must
	// be page-aligned: its start is rounded up to the worst-case page size,
	// and the bytes skipped over stay in the hot mapping.
	discStart := (int(hdr.DiscardableStart) + DefaultPageSize - 1) / DefaultPageSize * DefaultPageSize
	if discStart > coldStart {
		discStart = coldStart
	}

	mapping, err := mmapio.Open(f, total, discStart, coldStart, 0, int64(discStart), int64(coldStart))
	if err != nil {
		return nil, &loadErr{status: LoadOOM, cause: err}
	}

	d := &LoadedDump{mapping: mapping, header: hdr, oracle: oracle, basis: basis}
	d.relocs[Early] = decodeDumpRelocs(mapping.Base, hdr.DumpRelocs[Early])
	d.relocs[Late] = decodeDumpRelocs(mapping.Base, hdr.DumpRelocs[Late])
	d.relocs[VeryLate] = decodeDumpRelocs(mapping.Base, hdr.DumpRelocs[VeryLate])
	d.emacsRelocs = decodeEmacsRelocs(mapping.Base, hdr.EmacsRelocs)
	d.objectStarts = decodeObjectStarts(mapping.Base, hdr.ObjectStarts)

	// Early dump-relocs are resolved before anything else touches the
	// mapping: a CopyFromDump host-reloc reads its source bytes out of the
	// discardable section, and the page-warm goroutines below read the
	// same bytes applyDumpRelocs is about to overwrite, so this has to run
	// single-threaded first.
	applyDumpRelocs(d, Early)

	// Warm the hot and cold sections concurrently while the host-relocs are
	// applied below; this only ever affects how soon the first touch of
	// either section faults in its pages, never relocation order.
	var warm errgroup.Group
	warm.Go(func() error { touchPages(mapping.Bytes(discStart, coldStart, mmapio.Hot)); return nil })
	warm.Go(func() error { touchPages(mapping.Bytes(discStart, coldStart, mmapio.Cold)); return nil })

	if poke != nil {
		applyEmacsRelocs(d, poke)
	}

	if err := mapping.Discard(discStart, coldStart); err != nil {
		dlog.Log(nil, "load", "discard [%d:%d) failed: %v", discStart, coldStart, err)
	}
	_ = warm.Wait()

	if hooks != nil {
		hooks.runEarly()
	}

	// Late and VeryLate dump-relocs address objects that survive the
	// discard (the hot and cold sections), so they are safe to resolve
	// only now: between the early and late hook callbacks, per the
	// Early < hooks < Late < VeryLate ordering [Phase] documents.
	applyDumpRelocs(d, Late)
	applyDumpRelocs(d, VeryLate)

	if hooks != nil {
		hooks.runLate()
	}

	alignment := DefaultAlignment
	if oracle != nil {
		if a := oracle.Alignment(); a > 0 {
			alignment = a
		}
	}
	d.bitsets = newBitsets(hdr.DiscardableStart, alignment)

	return d, nil
}

// touchPages reads one byte per 4 KiB page to fault the whole range into
// the process's resident set ahead of first real use.
func touchPages(b []byte) {
	const pageSize = 4096
	var sink byte
	for i := 0; i < len(b); i += pageSize {
		sink += b[i]
	}
	_ = sink
}

func decodeDumpRelocs(base []byte, loc locator) []DumpReloc {
	out := make([]DumpReloc, loc.Count)
	off := int(loc.Offset)
	for i := range out {
		out[i] = DumpReloc(binary.LittleEndian.Uint32(base[off+i*4:]))
	}
	return out
}

func decodeObjectStarts(base []byte, loc locator) []DumpOff {
	out := make([]DumpOff, loc.Count)
	off := int(loc.Offset)
	for i := range out {
		out[i] = DumpOff(int32(binary.LittleEndian.Uint32(base[off+i*4:])))
	}
	return out
}

func decodeEmacsRelocs(base []byte, loc locator) []EmacsReloc {
	out := make([]EmacsReloc, loc.Count)
	off := int(loc.Offset)
	for i := range out {
		out[i] = decodeEmacsReloc(base[off+i*EmacsRelocSize : off+(i+1)*EmacsRelocSize])
	}
	return out
}

// applyEmacsRelocs walks every host-reloc and pokes it into the host image
// through poke, reading CopyFromDump's source bytes out of the still-live
// discardable section.
func applyEmacsRelocs(d *LoadedDump, poke HostPoke) {
	for _, r := range d.emacsRelocs {
		switch r.Kind {
		case EmacsImmediate:
			var bits uint64
			for i := 0; i < maxImmediateBytes; i++ {
				bits |= uint64(r.Immediate[i]) << (8 * uint(i))
			}
			poke.PokeImmediate(r.HostOffset, bits)
		case EmacsDumpLv:
			poke.PokeDumpLv(r.HostOffset, r.tag(), r.DumpOffset)
		case EmacsHostLv:
			poke.PokeHostLv(r.HostOffset, r.tag(), r.HostOffset2)
		case EmacsDumpPtrRaw:
			poke.PokeDumpPtrRaw(r.HostOffset, r.DumpOffset)
		case EmacsHostPtrRaw:
			poke.PokeHostPtrRaw(r.HostOffset, r.HostOffset2)
		case EmacsCopyFromDump:
			data := d.mapping.Base[int(r.DumpOffset) : int(r.DumpOffset)+int(r.Length)]
			poke.PokeCopyFromDump(r.HostOffset, data)
		}
	}
}

// applyDumpRelocs walks every dump-reloc recorded for phase and patches its
// slot in the mapped bytes. By the time a dump is written, every Ptr-kind
// slot (DumpToHostPtr, DumpToDumpPtr, Bignum, NativeSubr, NativeCompUnit)
// already holds its referent's final offset — resolveRootRelocs and
// fixupList.resolve wrote it at dump time — so this does a read-validate-
// write-back pass over those rather than a transformation, which still
// catches a truncated or corrupt mapping here instead of handing the host
// a half-composed pointer. The DumpToDumpLv/DumpToHostLv families are the
// one case deferred to load time: the raw offset in the slot is composed
// into the host's tagged machine-word representation via the TypeOracle,
// since that bit encoding is host-opaque.
func applyDumpRelocs(d *LoadedDump, phase Phase) {
	for _, r := range d.relocs[phase] {
		off := int(r.Offset())
		slot := d.mapping.Base[off : off+4]
		raw := int32(binary.LittleEndian.Uint32(slot))

		kind := r.Kind()
		switch {
		case kind == RelocDumpToHostPtr, kind == RelocDumpToDumpPtr,
			kind == RelocBignum, kind == RelocNativeSubr, kind == RelocNativeCompUnit:
			binary.LittleEndian.PutUint32(slot, uint32(raw))

		case kind >= relocDumpToDumpLvBase && kind < relocDumpToHostLvBase:
			word := d.oracle.EncodeDumpLv(kind.lvTag(), DumpOff(raw))
			binary.LittleEndian.PutUint32(slot, word)

		default: // DumpToHostLv family
			word := d.oracle.EncodeHostLv(kind.lvTag(), HostOff(raw))
			binary.LittleEndian.PutUint32(slot, word)
		}
	}
}

// Close unmaps the dump. The LoadedDump is unusable afterward.
func (d *LoadedDump) Close() error {
	return d.mapping.Close()
}

// Header returns the dump's parsed header.
func (d *LoadedDump) Header() Header { return d.header }

// At returns the bytes starting at a dump offset, still backed by the live
// mapping: writing through it changes only the process's private
// copy-on-write pages (or the heap copy on the fallback path), never the
// dump file itself.
func (d *LoadedDump) At(off DumpOff) []byte {
	return d.mapping.Base[off:]
}

// Section returns the byte range for one of the dump's three regions.
func (d *LoadedDump) Section(s mmapio.Section) []byte {
	return d.mapping.Bytes(int(d.header.DiscardableStart), int(d.header.ColdStart), s)
}

// Relocs returns the dump-relocs recorded for one phase, in ascending
// offset order.
func (d *LoadedDump) Relocs(phase Phase) []DumpReloc { return d.relocs[phase] }

// ObjectStarts returns every hot/discardable object's starting offset, in
// ascending order.
func (d *LoadedDump) ObjectStarts() []DumpOff { return d.objectStarts }

// Bitsets returns the dump's GC mark bitsets.
func (d *LoadedDump) Bitsets() *Bitsets { return d.bitsets }

// Stats summarizes the loaded dump for diagnostics.
func (d *LoadedDump) Stats() Stats {
	return Stats{
		TotalBytes:       d.mapping.Len(),
		DiscardableBytes: int(d.header.ColdStart - d.header.DiscardableStart),
		ColdBytes:        d.mapping.Len() - int(d.header.ColdStart),
		ObjectCount:      len(d.objectStarts),
		DumpRelocCount:   [3]int{len(d.relocs[Early]), len(d.relocs[Late]), len(d.relocs[VeryLate])},
		EmacsRelocCount:  len(d.emacsRelocs),
	}
}
