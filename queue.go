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

import "math"

// Weight is how strongly an edge pulls its referent toward its referrer in
// the dump's physical layout.
type Weight int32

const (
	WeightNone   Weight = 0
	WeightNormal Weight = 1000
	WeightStrong Weight = 1200
)

// edge is one outstanding reason an object is enqueued: basis is the dump
// offset of the referrer at the moment of enqueue, weight is the edge's
// pull.
type edge struct {
	basis  DumpOff
	weight Weight
}

// score computes an edge's contribution at cursor offset b:
// higher scores win, and score increases as b moves away from basis, so
// referents are pulled toward sitting close after their referrers.
func (e edge) score(b DumpOff) float64 {
	distance := float64(b - e.basis)
	if distance <= 0 {
		// Can't happen under the contract (b >= basis always), but guard
		// against a degenerate log/pow on a non-positive distance.
		distance = 1
	}
	return math.Pow(distance, 0.2*float64(e.weight)/1000)
}

type queueEntry struct {
	obj      TaggedValue
	sequence uint32
}

// queue is the writer's locality-ordered priority queue. It
// segregates objects with exactly one outstanding edge into per-weight
// FIFOs, which stay sorted automatically (monotonicity: earlier entries
// have smaller basis and therefore larger distance, hence larger score at
// any fixed weight), and falls back to a linear scan for the rare object
// with two or more edges.
type queue struct {
	zeroWeight      []queueEntry
	oneWeightNormal []queueEntry
	oneWeightStrong []queueEntry
	fancy           []queueEntry

	edges    map[TaggedValue][]edge
	sequence map[TaggedValue]uint32

	nextSequence uint32
}

func newQueue() *queue {
	return &queue{
		edges:    make(map[TaggedValue][]edge),
		sequence: make(map[TaggedValue]uint32),
	}
}

// Enqueue records that obj has an outstanding edge from basis with the
// given weight. Re-enqueuing a known object only ever adds weight; it never
// moves an object between queues except the zero→single-weight promotion.
func (q *queue) Enqueue(obj TaggedValue, basis DumpOff, weight Weight) {
	existing, seen := q.edges[obj]
	if !seen {
		seq := q.nextSequence
		q.nextSequence++
		q.sequence[obj] = seq

		if weight == WeightNone {
			q.zeroWeight = append(q.zeroWeight, queueEntry{obj, seq})
			q.edges[obj] = []edge{{basis, weight}}
			return
		}
		q.edges[obj] = []edge{{basis, weight}}
		q.promoteToSingleton(obj, seq, weight)
		return
	}

	q.edges[obj] = append(existing, edge{basis, weight})
	if len(q.edges[obj]) == 2 && weight != WeightNone {
		// A second edge moves a singleton into fancy; a zero-weight object
		// gaining a weighted edge is promoted the same as a fresh one.
		seq := q.sequence[obj]
		if len(existing) == 1 && existing[0].weight == WeightNone {
			q.promoteToSingleton(obj, seq, weight)
			return
		}
		q.fancy = append(q.fancy, queueEntry{obj, seq})
	}
}

func (q *queue) promoteToSingleton(obj TaggedValue, seq uint32, weight Weight) {
	entry := queueEntry{obj, seq}
	if weight == WeightStrong {
		q.oneWeightStrong = append(q.oneWeightStrong, entry)
	} else {
		q.oneWeightNormal = append(q.oneWeightNormal, entry)
	}
}

// Seen reports whether obj has ever been enqueued.
func (q *queue) Seen(obj TaggedValue) bool {
	_, ok := q.edges[obj]
	return ok
}

// Len reports the number of distinct objects still pending.
func (q *queue) Len() int { return len(q.edges) }

// popStaleHead discards entries at the front of fifo whose recorded
// sequence no longer matches q.sequence (the object was already dequeued),
// returning the first live entry, if any. An object that gained a second
// edge keeps its sequence, so its FIFO entry stays live and is scored on
// all of its edges.
func (q *queue) popStaleHead(fifo *[]queueEntry) (queueEntry, bool) {
	for len(*fifo) > 0 {
		head := (*fifo)[0]
		seq, ok := q.sequence[head.obj]
		if ok && seq == head.sequence && q.edges[head.obj] != nil {
			return head, true
		}
		*fifo = (*fifo)[1:]
	}
	return queueEntry{}, false
}

// Dequeue removes and returns the highest-scoring object at cursor b:
//  1. score the fancy-queue head (discarding stale entries),
//  2. peek each singleton FIFO's head (discarding stale heads),
//  3. pick the max score, breaking ties by lower sequence,
//  4. if nothing scored, fall back to the zero-weight FIFO.
func (q *queue) Dequeue(b DumpOff) (TaggedValue, bool) {
	type candidate struct {
		from  int // 0=fancy, 1=normal, 2=strong
		entry queueEntry
		score float64
	}
	var best *candidate

	consider := func(from int, e queueEntry, s float64) {
		if best == nil || s > best.score || (s == best.score && e.sequence < best.entry.sequence) {
			best = &candidate{from, e, s}
		}
	}

	if len(q.fancy) > 0 {
		// Linear scan: discard stale entries in place, score the rest.
		live := q.fancy[:0]
		var fancyBest *queueEntry
		var fancyScore float64
		for _, e := range q.fancy {
			seq, ok := q.sequence[e.obj]
			if !ok || seq != e.sequence || q.edges[e.obj] == nil {
				continue
			}
			live = append(live, e)
			s := totalScore(q.edges[e.obj], b)
			if fancyBest == nil || s > fancyScore || (s == fancyScore && e.sequence < fancyBest.sequence) {
				ec := e
				fancyBest = &ec
				fancyScore = s
			}
		}
		q.fancy = live
		if fancyBest != nil {
			consider(0, *fancyBest, fancyScore)
		}
	}

	if e, ok := q.popStaleHead(&q.oneWeightNormal); ok {
		consider(1, e, totalScore(q.edges[e.obj], b))
	}
	if e, ok := q.popStaleHead(&q.oneWeightStrong); ok {
		consider(2, e, totalScore(q.edges[e.obj], b))
	}

	if best != nil {
		q.remove(best.entry.obj)
		return best.entry.obj, true
	}

	for len(q.zeroWeight) > 0 {
		head := q.zeroWeight[0]
		q.zeroWeight = q.zeroWeight[1:]
		seq, ok := q.sequence[head.obj]
		if !ok || seq != head.sequence || q.edges[head.obj] == nil {
			continue
		}
		q.remove(head.obj)
		return head.obj, true
	}

	return TaggedValue{}, false
}

func totalScore(edges []edge, b DumpOff) float64 {
	var s float64
	for _, e := range edges {
		s += e.score(b)
	}
	return s
}

// remove clears all bookkeeping for obj, once it has been chosen as the
// dequeue winner.
func (q *queue) remove(obj TaggedValue) {
	delete(q.edges, obj)
	delete(q.sequence, obj)
}
