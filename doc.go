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

// Package pdump serializes a long-initializing interpreter's reachable heap
// into a single on-disk image and re-animates that image on a later process
// start, skipping the cold-start initialization the interpreter would
// otherwise redo every time.
//
// The dump is tightly bound to one host binary build: a [Dump] carries a
// fingerprint that [Load] verifies before touching anything else. Portable
// here means portable across address-space layouts and page sizes, not
// across binaries.
//
// A [Writer] walks the host's object graph starting from roots supplied by
// a [Reflect] implementation, classifying each value through a [TypeOracle]
// and serializing it into one of three sections: hot (load-resident,
// relocated), discardable (load-resident only until the loader discards
// it), and cold (mapped like the others, never relocated). [Load] maps those
// three sections back as one contiguous range and replays the relocations
// the writer recorded, in three ordered phases.
package pdump
