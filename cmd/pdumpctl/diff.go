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

package main

import (
	"flag"
	"fmt"
	"strings"

	"github.com/davecgh/go-spew/spew"
	"github.com/pmezard/go-difflib/difflib"

	"pdump.dev/pdump"
)

func runDiff(args []string) error {
	fs := flag.NewFlagSet("diff", flag.ExitOnError)
	context := fs.Int("context", 3, "lines of diff context")
	fs.Parse(args)

	if fs.NArg() != 2 {
		return fmt.Errorf("usage: pdumpctl diff <a> <b>")
	}

	a, err := pdump.ReadHeader(fs.Arg(0))
	if err != nil {
		return fmt.Errorf("reading %s: %w", fs.Arg(0), err)
	}
	b, err := pdump.ReadHeader(fs.Arg(1))
	if err != nil {
		return fmt.Errorf("reading %s: %w", fs.Arg(1), err)
	}

	diff := difflib.UnifiedDiff{
		A:        difflib.SplitLines(spew.Sdump(a.Report())),
		B:        difflib.SplitLines(spew.Sdump(b.Report())),
		FromFile: fs.Arg(0),
		ToFile:   fs.Arg(1),
		Context:  *context,
	}
	text, err := difflib.GetUnifiedDiffString(diff)
	if err != nil {
		return fmt.Errorf("computing diff: %w", err)
	}
	if strings.TrimSpace(text) == "" {
		fmt.Println("headers are identical")
		return nil
	}
	fmt.Print(text)
	return nil
}
