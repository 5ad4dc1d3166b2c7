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
	"os"
)

func runPull(args []string) error {
	fs := flag.NewFlagSet("pull", flag.ExitOnError)
	force := fs.Bool("f", false, "overwrite without asking")
	fs.Parse(args)

	if fs.NArg() != 2 {
		return fmt.Errorf("usage: pdumpctl pull <user@host:remote-path> <local-file>")
	}
	host, remotePath, ok := splitRemote(fs.Arg(0))
	if !ok {
		return fmt.Errorf("%q is not a host:path remote", fs.Arg(0))
	}
	local := fs.Arg(1)

	if !*force {
		if _, err := os.Stat(local); err == nil {
			yes, err := confirmOverwrite(local)
			if err != nil {
				return err
			}
			if !yes {
				return fmt.Errorf("aborted")
			}
		}
	}

	client, err := dialSSH(host)
	if err != nil {
		return err
	}
	defer client.Close()

	if err := client.Download(remotePath, local); err != nil {
		return fmt.Errorf("downloading %s from %s: %w", remotePath, host, err)
	}
	fmt.Printf("pulled %s:%s to %s\n", host, remotePath, local)
	return nil
}
