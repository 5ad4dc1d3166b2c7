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
	"bufio"
	"fmt"
	"os"
	"os/user"
	"strings"

	"al.essio.dev/pkg/shellescape"
	"github.com/melbahja/goph"
	"golang.org/x/term"
)

// parseUserHost splits a "[user@]host" address, defaulting user to the
// current login name when it's omitted.
func parseUserHost(addr string) (userName, host string) {
	if i := strings.Index(addr, "@"); i >= 0 {
		return addr[:i], addr[i+1:]
	}
	if u, err := user.Current(); err == nil {
		return u.Username, addr
	}
	return "", addr
}

// dialSSH opens a goph client against addr, authenticating with the
// caller's SSH agent.
func dialSSH(addr string) (*goph.Client, error) {
	user, host := parseUserHost(addr)
	auth, err := goph.UseAgent()
	if err != nil {
		return nil, fmt.Errorf("connecting to ssh-agent: %w", err)
	}
	client, err := goph.New(user, host, auth)
	if err != nil {
		return nil, fmt.Errorf("dialing %s: %w", host, err)
	}
	return client, nil
}

// confirmOverwrite asks the operator to confirm an overwrite, when stdin is
// an interactive terminal; a non-interactive stdin (a script, a pipe)
// is treated as an implicit yes, since there is no one to ask.
func confirmOverwrite(path string) (bool, error) {
	if !term.IsTerminal(int(os.Stdin.Fd())) {
		return true, nil
	}
	fmt.Printf("overwrite %s? [y/N] ", shellescape.Quote(path))
	line, err := bufio.NewReader(os.Stdin).ReadString('\n')
	if err != nil {
		return false, err
	}
	line = strings.ToLower(strings.TrimSpace(line))
	return line == "y" || line == "yes", nil
}
