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
	"github.com/tiendc/go-deepcopy"
)

// InterpreterGlobals is the small set of host-owned globals the writer
// must mutate for the duration of a dump: the purify flag, the post-GC hook, and the process environment.
type InterpreterGlobals struct {
	PurifyFlag bool
	PostGCHook func()
	ProcessEnv []string
}

// SavedState is a deep-copied snapshot of [InterpreterGlobals], taken
// before the writer touches them, so a fatal error (or a clean exit) can
// restore them verbatim.
type SavedState struct {
	snapshot InterpreterGlobals
}

// Snapshot deep-copies g. PostGCHook is a function value and cannot be
// deep-copied meaningfully, so it is carried over by reference; everything
// else is copied field-by-field so later mutation of g.ProcessEnv (a
// slice) cannot leak into the snapshot.
func Snapshot(g InterpreterGlobals) (*SavedState, error) {
	var clone InterpreterGlobals
	if err := deepcopy.Copy(&clone, &g); err != nil {
		return nil, err
	}
	clone.PostGCHook = g.PostGCHook
	return &SavedState{snapshot: clone}, nil
}

// Restore copies the snapshot back into *g, verbatim, on both the success
// and error exit paths.
func (s *SavedState) Restore(g *InterpreterGlobals) {
	*g = s.snapshot
}
