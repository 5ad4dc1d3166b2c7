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

	"al.essio.dev/pkg/shellescape"
)

func runPush(args []string) error {
	fs := flag.NewFlagSet("push", flag.ExitOnError)
	force := fs.Bool("f", false, "overwrite without asking")
	fs.Parse(args)

	if fs.NArg() != 2 {
		return fmt.Errorf("usage: pdumpctl push <local-file> <user@host:remote-path>")
	}
	local := fs.Arg(0)
	host, remotePath, ok := splitRemote(fs.Arg(1))
	if !ok {
		return fmt.Errorf("%q is not a host:path remote", fs.Arg(1))
	}

	client, err := dialSSH(host)
	if err != nil {
		return err
	}
	defer client.Close()

	if !*force {
		if _, err := client.Run(fmt.Sprintf("test -e %s", shellescape.Quote(remotePath))); err == nil {
			// The remote path already exists.
			yes, err := confirmOverwrite(remotePath)
			if err != nil {
				return err
			}
			if !yes {
				return fmt.Errorf("aborted")
			}
		}
	}

	if err := client.Upload(local, remotePath); err != nil {
		return fmt.Errorf("uploading %s to %s: %w", local, host, err)
	}
	fmt.Printf("pushed %s to %s:%s\n", local, host, remotePath)
	return nil
}
