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
	"fmt"

	"github.com/davecgh/go-spew/spew"
)

// renderPath turns the referrer-graph path to v, if tracking is enabled,
// into a human-legible root-to-object chain for an UnsupportedObject
// error. When tracking is disabled this returns nil, and the error
// carries no path.
func (c *DumpContext) renderPath(v TaggedValue) []string {
	path := c.refs.Path(v)
	if path == nil {
		return nil
	}
	lines := make([]string, 0, len(path)+1)
	for _, e := range path {
		lines = append(lines, fmt.Sprintf("--%s--> %s", e.Field, spew.Sdump(e.Referrer)))
	}
	lines = append(lines, spew.Sdump(v.Raw))
	return lines
}
