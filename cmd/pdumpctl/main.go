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

// pdumpctl is an operator CLI for dump files: inspecting a header, diffing
// two dumps' headers, and copying dumps to or from a remote host over SSH.
package main

import (
	"flag"
	"fmt"
	"os"
	"strings"
)

func run() error {
	flag.Usage = func() {
		fmt.Fprintln(os.Stderr, "usage: pdumpctl <inspect|diff|push|pull> [flags] args...")
		flag.PrintDefaults()
	}
	flag.Parse()

	args := flag.Args()
	if len(args) == 0 {
		flag.Usage()
		os.Exit(2)
	}

	cmd, rest := args[0], args[1:]
	switch cmd {
	case "inspect":
		return runInspect(rest)
	case "diff":
		return runDiff(rest)
	case "push":
		return runPush(rest)
	case "pull":
		return runPull(rest)
	default:
		return fmt.Errorf("pdumpctl: unknown subcommand %q", cmd)
	}
}

func main() {
	if err := run(); err != nil {
		fmt.Printf("error: %v\n", err)
		os.Exit(1)
	}
}

// splitRemote parses a scp-style "[user@]host:path" argument.
func splitRemote(arg string) (host, path string, ok bool) {
	i := strings.Index(arg, ":")
	if i < 0 {
		return "", "", false
	}
	return arg[:i], arg[i+1:], true
}
