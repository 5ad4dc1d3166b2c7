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

import "pdump.dev/pdump/internal/pconfig"

// Option configures a [Writer].
type Option func(*Writer)

// WithConfig sets the writer's tunables from a loaded [pconfig.Config]. The
// writer reads its page size and arena baseline; alignment comes from the
// [TypeOracle] and the queue uses the fixed [Weight] constants, so the
// Config's Alignment and Weights do not affect a dump. A zero Config falls
// back to the package's hardcoded defaults.
func WithConfig(cfg pconfig.Config) Option {
	return func(w *Writer) { w.cfg = cfg }
}

// WithReferrerTracking enables the referrer graph the writer uses to
// render a root-to-object path in an UnsupportedObject error.
func WithReferrerTracking(track bool) Option {
	return func(w *Writer) { w.trackReferrers = track }
}

// WithWriter overrides or adds a writer for values with the given tag.
// Use [WithVectorlikeWriter] for TagVectorlike values, which dispatch on
// pseudovector kind instead.
func WithWriter(tag Tag, fn func(c *DumpContext, v TaggedValue) (DumpOff, error)) Option {
	return func(w *Writer) { w.writers.byTag[tag] = fn }
}

// WithVectorlikeWriter overrides or adds a writer for vectorlike values of
// the given pseudovector kind.
func WithVectorlikeWriter(kind PVecKind, fn func(c *DumpContext, v TaggedValue) (DumpOff, error)) Option {
	return func(w *Writer) { w.writers.byPVec[kind] = fn }
}

// WithHooks supplies a pre-populated hook and remembered-data registry,
// for hosts that want to register hooks once and reuse a [Writer] across
// multiple calls with the same hook set. Hooks never run during Dump; they
// are loader-side callbacks, and this option exists only so a
// host can build both the writer and the registry it will later pass to
// Load in one place.
func WithHooks(reg *hookRegistry) Option {
	return func(w *Writer) { w.hooks = reg }
}

// WithFingerprint binds the dump to a specific host build identity. The
// zero Fingerprint is valid but means the loader can never distinguish
// this dump from one produced by a different build.
func WithFingerprint(fp Fingerprint) Option {
	return func(w *Writer) { w.fingerprint = fp }
}
