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
	"os"
	"sort"

	"pdump.dev/pdump/internal/dlog"
	"pdump.dev/pdump/internal/pconfig"
)

// Writer holds everything needed to perform one or more dump operations
// against a host: its type system, its root enumerator, and the writer
// tunables a host may have overridden.
type Writer struct {
	oracle TypeOracle
	roots  Reflect
	basis  HostBasis

	cfg            pconfig.Config
	trackReferrers bool
	fingerprint    Fingerprint

	writers *writerTable

	// hooks is never consulted by Dump: hooks are loader-side callbacks.
	// This field exists so a host can build the writer and the registry it
	// will later hand to Load in one place.
	hooks *hookRegistry
}

// NewWriter constructs a Writer against a host's type oracle, root
// enumerator, and host-address basis. Options apply in order
// after the defaults, so a later [WithWriter] overrides an earlier one.
func NewWriter(oracle TypeOracle, roots Reflect, basis HostBasis, opts ...Option) *Writer {
	w := &Writer{
		oracle:  oracle,
		roots:   roots,
		basis:   basis,
		writers: defaultWriterTable(),
		hooks:   newHookRegistry(),
	}
	for _, opt := range opts {
		opt(w)
	}
	return w
}

// rootReloc is a pending root-rewriting host-reloc: host is the address of
// the static variable Roots visited, v is the value it held at the moment
// of the walk.
type rootReloc struct {
	host HostOff
	v    TaggedValue
	kind RootKind
}

// Dump walks every object reachable from the host's GC roots and writes a
// complete dump to path. On success, globals' PurifyFlag is
// left set exactly as the writer needs it for the duration of the call and
// restored on the way out, per the writer propagation policy: on any error the output file is removed and the interpreter's saved
// globals are restored before Dump returns.
func (w *Writer) Dump(path string, globals *InterpreterGlobals) (err error) {
	saved, serr := Snapshot(*globals)
	if serr != nil {
		return ioFailure(serr)
	}
	globals.PurifyFlag = true

	defer func() {
		if r := recover(); r != nil {
			if we, ok := r.(*WriteError); ok {
				err = we
			} else {
				err = integrityViolation("panic during dump: %v", r)
			}
		}
		saved.Restore(globals)
	}()

	ctx := newDumpContext(w.oracle, w.roots, w.basis, w.cfg, w.trackReferrers, w.writers)

	if writeErr := w.dump(ctx, path); writeErr != nil {
		return writeErr
	}
	return nil
}

func (w *Writer) dump(ctx *DumpContext, path string) error {
	ctx.buf.writeZeroes(HeaderSize)
	var incomplete Header
	incomplete.markIncomplete()
	ctx.buf.patch(0, encodeHeader(incomplete))

	var rootRelocs []rootReloc
	w.roots.Roots(func(host HostOff, v TaggedValue, kind RootKind) {
		ctx.EnqueueRoot(v)
		rootRelocs = append(rootRelocs, rootReloc{host: host, v: v, kind: kind})
	})

	if err := drainHotPhase(ctx); err != nil {
		return err
	}

	var hashListOff DumpOff
	if len(ctx.hashTableOffsets) > 0 {
		o := ctx.objectStart(4 * (len(ctx.hashTableOffsets) + 1))
		for i, off := range ctx.hashTableOffsets {
			o.CopyField(i*4, encodeInt32(int32(off)))
		}
		o.CopyField(len(ctx.hashTableOffsets)*4, encodeInt32(0))
		hashListOff = ctx.objectFinish(o)
	}

	ctx.buf.alignTo(ctx.alignment())
	ctx.discardableStart = ctx.buf.offset()

	for len(ctx.copiedQueue) > 0 {
		pending := ctx.copiedQueue
		ctx.copiedQueue = nil
		sort.Slice(pending, func(i, j int) bool {
			hi, _ := pending[i].Raw.(HostResident)
			hj, _ := pending[j].Raw.(HostResident)
			return hi.HostOffset() < hj.HostOffset()
		})
		for _, v := range pending {
			hr, ok := v.Raw.(HostResident)
			if !ok {
				return unsupportedObject("copied object has no host-resident address", ctx.renderPath(v))
			}
			if _, ok := v.Raw.(Symbol); !ok {
				return unsupportedObject("copied object is neither a symbol nor otherwise supported", ctx.renderPath(v))
			}
			off := writeSymbolBody(ctx, v)
			ctx.emitEmacsReloc(EmacsReloc{
				Kind:       EmacsCopyFromDump,
				Length:     uint8(symbolLayout),
				HostOffset: hr.HostOffset(),
				DumpOffset: off,
			})
		}
		if err := drainHotPhase(ctx); err != nil {
			return err
		}
	}

	for _, e := range ctx.symbolAuxes.Entries(nil) {
		aux := e.Value
		ctx.writeObjectDirect(aux.marker, 8, func(o *obj) {
			o.CopyField(0, []byte{byte(aux.kind)})
			o.FieldTagged(4, aux.target, WeightNormal)
		})
	}
	if err := drainHotPhase(ctx); err != nil {
		return err
	}

	pageSize := ctx.cfg.PageSize
	if pageSize <= 0 {
		pageSize = DefaultPageSize
	}
	if pad := (pageSize - int(ctx.buf.offset())%pageSize) % pageSize; pad > 0 {
		ctx.buf.writeZeroes(pad)
	}
	ctx.coldStart = ctx.buf.offset()
	ctx.drainCold()
	// drainCold writes each cold string's header at the cursor, so the
	// staged cold bytes start after those headers, not at coldStart.
	coldBytesStart := ctx.buf.offset()
	ctx.buf.data = append(ctx.buf.data, ctx.coldBuf...)
	ctx.coldBuf = nil
	ctx.finalizeCold(coldBytesStart)

	offsetOf := func(v TaggedValue) (DumpOff, bool) {
		r := ctx.remembered.get(v)
		return r.Offset(), r.IsWritten()
	}
	classify := func(v TaggedValue) (Tag, bool) {
		return ctx.oracle.Classify(v), true
	}
	ctx.fixups.resolve(ctx.buf, offsetOf, classify, ctx.emitReloc)

	if err := resolveRootRelocs(ctx, rootRelocs); err != nil {
		return err
	}

	for p := range ctx.relocs {
		sort.Slice(ctx.relocs[p], func(i, j int) bool {
			return ctx.relocs[p][i].Offset() < ctx.relocs[p][j].Offset()
		})
	}
	sort.Slice(ctx.emacsRelocs, func(i, j int) bool {
		return ctx.emacsRelocs[i].HostOffset < ctx.emacsRelocs[j].HostOffset
	})
	ctx.emacsRelocs = mergeCopyFromDump(ctx.emacsRelocs)

	var header Header
	header.Fingerprint = w.fingerprint
	header.DiscardableStart = ctx.discardableStart
	header.ColdStart = ctx.coldStart
	header.HashList = hashListOff

	for p := range ctx.relocs {
		ctx.buf.alignTo(4)
		off := ctx.buf.offset()
		for _, r := range ctx.relocs[p] {
			ctx.buf.write(encodeInt32(int32(r)))
		}
		header.DumpRelocs[p] = locator{Offset: off, Count: uint32(len(ctx.relocs[p]))}
	}

	ctx.buf.alignTo(4)
	header.ObjectStarts.Offset = ctx.buf.offset()
	header.ObjectStarts.Count = uint32(len(ctx.objectStarts))
	for _, off := range ctx.objectStarts {
		ctx.buf.write(encodeInt32(int32(off)))
	}

	ctx.buf.alignTo(4)
	header.EmacsRelocs.Offset = ctx.buf.offset()
	header.EmacsRelocs.Count = uint32(len(ctx.emacsRelocs))
	for _, r := range ctx.emacsRelocs {
		ctx.buf.write(encodeEmacsReloc(r))
	}

	header.finalize()
	ctx.buf.patch(0, encodeHeader(header))

	dlog.Log(nil, "dump", "wrote %d bytes: discardable=%d cold=%d relocs=%d/%d/%d emacs=%d",
		len(ctx.buf.data), header.DiscardableStart, header.ColdStart,
		len(ctx.relocs[Early]), len(ctx.relocs[Late]), len(ctx.relocs[VeryLate]), len(ctx.emacsRelocs))

	// Write through a temp file and rename into place so a crash never
	// leaves a half-written file at path, the same guarantee the magic
	// sentinel gives a reader against an incremental on-disk writer.
	tmp := path + ".tmp"
	if err := os.WriteFile(tmp, ctx.buf.data, 0o644); err != nil {
		os.Remove(tmp)
		return ioFailure(err)
	}
	if err := os.Rename(tmp, path); err != nil {
		os.Remove(tmp)
		return ioFailure(err)
	}
	return nil
}

// drainHotPhase pops the dump queue until empty, interleaving with the
// symbol and hash-table deferral queues, which can themselves enqueue new
// hot objects: the whole thing is a fixed point, not three independent
// passes.
func drainHotPhase(ctx *DumpContext) error {
	for {
		progressed := false
		for {
			v, ok := ctx.q.Dequeue(ctx.buf.offset())
			if !ok {
				break
			}
			if _, err := ctx.writers.dispatch(ctx, v); err != nil {
				return err
			}
			progressed = true
		}
		if len(ctx.symbolQueue) > 0 {
			v := ctx.symbolQueue[0]
			ctx.symbolQueue = ctx.symbolQueue[1:]
			writeSymbolBody(ctx, v)
			progressed = true
			continue
		}
		if len(ctx.hashTableQueue) > 0 {
			v := ctx.hashTableQueue[0]
			ctx.hashTableQueue = ctx.hashTableQueue[1:]
			writeHashTableBody(ctx, v)
			progressed = true
			continue
		}
		if !progressed {
			return nil
		}
	}
}

// resolveRootRelocs emits the root-rewriting host-reloc for every static
// root the host enumerated, now that every referent's final disposition is
// known: a self-representing value is written as an
// immediate, a host-resident value composes a HostLv, and everything else
// composes a DumpLv from its final dump offset.
func resolveRootRelocs(ctx *DumpContext, roots []rootReloc) error {
	for _, r := range roots {
		if ctx.oracle.IsSelfRepresenting(r.v) {
			var bits uint64
			if inl, ok := r.v.Raw.(Inline); ok {
				bits = inl.InlineBits()
			}
			var imm [maxImmediateBytes]byte
			for i := range imm {
				imm[i] = byte(bits >> (8 * uint(i)))
			}
			ctx.emitEmacsReloc(EmacsReloc{Kind: EmacsImmediate, Length: maxImmediateBytes, HostOffset: r.host, Immediate: imm})
			continue
		}
		if hr, ok := r.v.Raw.(HostResident); ok {
			tag := ctx.oracle.Classify(r.v)
			ctx.emitEmacsReloc(EmacsReloc{Kind: EmacsHostLv, Length: uint8(tag), HostOffset: r.host, HostOffset2: hr.HostOffset()})
			continue
		}
		off := ctx.remembered.get(r.v)
		if !off.IsWritten() {
			return integrityViolation("root at host offset %d never reached a final dump offset", r.host)
		}
		tag := ctx.oracle.Classify(r.v)
		ctx.emitEmacsReloc(EmacsReloc{Kind: EmacsDumpLv, Length: uint8(tag), HostOffset: r.host, DumpOffset: off.Offset()})
	}
	return nil
}

// mergeCopyFromDump coalesces adjacent CopyFromDump entries in
// HostOffset order whose source and destination ranges are both
// contiguous, so the loader performs one copy instead of several.
func mergeCopyFromDump(relocs []EmacsReloc) []EmacsReloc {
	if len(relocs) == 0 {
		return relocs
	}
	out := relocs[:1]
	for _, r := range relocs[1:] {
		last := &out[len(out)-1]
		if last.Kind == EmacsCopyFromDump && r.Kind == EmacsCopyFromDump &&
			HostOff(int64(last.HostOffset)+int64(last.Length)) == r.HostOffset &&
			DumpOff(int64(last.DumpOffset)+int64(last.Length)) == r.DumpOffset &&
			int(last.Length)+int(r.Length) <= 0xff {
			last.Length += r.Length
			continue
		}
		out = append(out, r)
	}
	return out
}
