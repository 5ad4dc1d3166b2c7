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

//go:build dump_debug

// Package dlog includes the writer/loader's trace logging. It only exists
// when built with the dump_debug tag; the non-debug build in dlog_stub.go
// compiles every call in this package down to nothing.
package dlog

import (
	"flag"
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"runtime"
	"strings"

	"github.com/timandy/routine"
)

// Enabled is true when the dumper is built with the dump_debug tag.
const Enabled = true

var (
	pattern  *regexp.Regexp
	toStderr = flag.Bool("pdump.log_stderr", true, "write trace logs to stderr instead of discarding them")
)

func init() {
	flag.Func("pdump.log_filter", "regexp to filter trace logs by", func(s string) (err error) {
		pattern, err = regexp.Compile(s)
		return err
	})
}

// Log prints a trace line of the form:
//
//	pkg/file.go:123 [g0007] op: message
//
// context, if non-empty, is a printf-style (format, args...) pair rendered
// before op.
func Log(context []any, op string, format string, args ...any) {
	skip := 1
again:
	pc, file, line, _ := runtime.Caller(skip)
	fn := runtime.FuncForPC(pc)
	name := fn.Name()
	name = name[strings.LastIndex(name, ".")+1:]
	if strings.HasPrefix(name, "log") || strings.Contains(name, "Log") {
		skip++
		goto again
	}

	pkg := fn.Name()
	if idx := strings.LastIndex(pkg, "/"); idx >= 0 {
		pkg = pkg[idx+1:]
	}
	if idx := strings.Index(pkg, "."); idx >= 0 {
		pkg = pkg[:idx]
	}
	file = filepath.Base(file)

	buf := new(strings.Builder)
	fmt.Fprintf(buf, "%s/%s:%d [g%04d", pkg, file, line, routine.Goid())
	if len(context) >= 1 {
		fmt.Fprintf(buf, ", "+context[0].(string), context[1:]...)
	}
	fmt.Fprintf(buf, "] %s: ", op)
	fmt.Fprintf(buf, format, args...)

	s := buf.String()
	if pattern != nil && !pattern.MatchString(s) {
		return
	}
	if *toStderr {
		fmt.Fprintln(os.Stderr, s)
	}
}

// Assert panics with a descriptive message if cond is false.
func Assert(cond bool, format string, args ...any) {
	if !cond {
		panic(fmt.Sprintf("pdump: internal assertion failed: "+format, args...))
	}
}

// Value holds a debug-only payload. In builds without the dump_debug tag
// (see the stub definition) Set discards the value and Get returns the
// zero value.
type Value[T any] struct{ x T }

// Set stores a debug-only value.
func (v *Value[T]) Set(x T) { v.x = x }

// Get returns the debug-only value.
func (v *Value[T]) Get() T { return v.x }
