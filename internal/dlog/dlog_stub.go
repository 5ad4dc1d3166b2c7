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

//go:build !dump_debug

package dlog

// Enabled is false in release builds.
const Enabled = false

// Log is a no-op outside of dump_debug builds.
func Log(context []any, op string, format string, args ...any) {}

// Assert is a no-op outside of dump_debug builds.
func Assert(cond bool, format string, args ...any) {}

// Value holds nothing in release builds.
type Value[T any] struct{}

// Set is a no-op outside of dump_debug builds.
func (v *Value[T]) Set(T) {}

// Get returns the zero value outside of dump_debug builds.
func (v *Value[T]) Get() (zero T) { return zero }
