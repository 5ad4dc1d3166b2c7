// Copyright 2025 Buf Technologies, Inc.
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

// Package rgraph tracks referrer edges discovered while the writer walks
// the host object graph, and can recover a root-to-object path for error
// messages when the writer hits an object it cannot serialize. It follows
// each object's first recorded referrer back toward a root rather than
// searching the graph, since all it owes the caller is one legible path,
// not a full dependency order.
package rgraph

import "pdump.dev/pdump/internal/dlog"

// Edge is one hop in the referrer graph: referrer caused referent to be
// enqueued, through the named field.
type Edge struct {
	Referrer any
	Field    string
}

// Graph records, for every object the writer has seen, the first referrer
// that caused it to be enqueued. Because the writer enqueues an object at
// most once, the first referrer
// recorded here is the one the object was actually reached through, which
// is enough to reconstruct *a* path from some root, even though the host
// graph can have many paths to the same object.
type Graph struct {
	enabled bool
	parent  map[any]Edge
	roots   []any
}

// New creates a referrer graph. When track is false, Record and Path are
// no-ops; the writer always calls Record, and checking `enabled` once here
// is cheaper than checking it at every call site.
func New(track bool) *Graph {
	g := &Graph{enabled: track}
	if track {
		g.parent = make(map[any]Edge)
	}
	return g
}

// Root marks obj as a root of the object graph.
func (g *Graph) Root(obj any) {
	if !g.enabled {
		return
	}
	g.roots = append(g.roots, obj)
}

// Record notes that referrer caused referent to be discovered through the
// named field. A referent already recorded keeps its original referrer.
func (g *Graph) Record(referrer any, field string, referent any) {
	if !g.enabled {
		return
	}
	if _, ok := g.parent[referent]; ok {
		return
	}
	g.parent[referent] = Edge{Referrer: referrer, Field: field}
	dlog.Log(nil, "rgraph", "%v --%s--> %v", referrer, field, referent)
}

// Path returns the chain of edges from some root down to obj, root first.
// Returns nil if tracking is disabled or obj was never recorded.
func (g *Graph) Path(obj any) []Edge {
	if !g.enabled {
		return nil
	}

	var path []Edge
	seen := make(map[any]bool)
	cur := obj
	for {
		e, ok := g.parent[cur]
		if !ok {
			break
		}
		if seen[cur] {
			// The referrer graph is a function (each node has exactly one
			// recorded parent), so a repeat can only happen if obj is
			// unreachable from any root — stop rather than loop forever.
			break
		}
		seen[cur] = true
		path = append([]Edge{e}, path...)
		cur = e.Referrer
	}
	return path
}
