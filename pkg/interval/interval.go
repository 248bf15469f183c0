// Licensed to Apache Software Foundation (ASF) under one or more contributor
// license agreements. See the NOTICE file distributed with
// this work for additional information regarding copyright
// ownership. Apache Software Foundation (ASF) licenses this file to you under
// the Apache License, Version 2.0 (the "License"); you may
// not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//	http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing,
// software distributed under the License is distributed on an
// "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY
// KIND, either express or implied.  See the License for the
// specific language governing permissions and limitations
// under the License.

// Package interval implements replay intervals and their union across storage nodes.
package interval

import (
	"fmt"
	"math"

	"github.com/emirpasic/gods/maps/treemap"
	"github.com/emirpasic/gods/utils"
	"github.com/pkg/errors"

	"github.com/Josehokec/TemporaryCode-sub000/pkg/convert"
	"github.com/Josehokec/TemporaryCode-sub000/pkg/filter/shrink"
)

const pairSize = 16

// ErrMalformed is returned when an encoded interval list is not exact.
var ErrMalformed = errors.New("malformed interval list")

// Interval is the closed time span [Start, End].
type Interval struct {
	Start int64 `json:"start"`
	End   int64 `json:"end"`
}

// String implements fmt.Stringer.
func (i Interval) String() string {
	return fmt.Sprintf("[%d, %d]", i.Start, i.End)
}

// Valid reports whether Start <= End.
func (i Interval) Valid() bool {
	return i.Start <= i.End
}

// Contains reports whether ts falls into the interval.
func (i Interval) Contains(ts int64) bool {
	return ts >= i.Start && ts <= i.End
}

// Set is an ordered union of disjoint, non adjacent intervals.
type Set struct {
	tree *treemap.Map
}

// NewSet creates an empty set.
func NewSet() *Set {
	return &Set{tree: treemap.NewWith(utils.Int64Comparator)}
}

// Add unions iv into the set. Invalid intervals are ignored.
func (s *Set) Add(iv Interval) {
	if !iv.Valid() {
		return
	}
	start, end := iv.Start, iv.End
	if k, v := s.tree.Floor(start); k != nil {
		fs, fe := k.(int64), v.(int64)
		if touches(fe, start) {
			start = fs
			if fe > end {
				end = fe
			}
			s.tree.Remove(fs)
		}
	}
	for {
		k, v := s.tree.Ceiling(start)
		if k == nil {
			break
		}
		cs, ce := k.(int64), v.(int64)
		if !touches(end, cs) {
			break
		}
		if ce > end {
			end = ce
		}
		s.tree.Remove(cs)
	}
	s.tree.Put(start, end)
}

// touches reports whether an interval ending at end can be joined with one starting at start.
func touches(end, start int64) bool {
	return end == math.MaxInt64 || start <= end+1
}

// AddAll unions every interval of ivs.
func (s *Set) AddAll(ivs []Interval) {
	for _, iv := range ivs {
		s.Add(iv)
	}
}

// Union adds every interval of other.
func (s *Set) Union(other *Set) {
	s.AddAll(other.Intervals())
}

// Len returns the number of disjoint intervals.
func (s *Set) Len() int {
	return s.tree.Size()
}

// Intervals returns the intervals in ascending order.
func (s *Set) Intervals() []Interval {
	ivs := make([]Interval, 0, s.tree.Size())
	it := s.tree.Iterator()
	for it.Next() {
		ivs = append(ivs, Interval{Start: it.Key().(int64), End: it.Value().(int64)})
	}
	return ivs
}

// Contains reports whether ts falls into any interval.
func (s *Set) Contains(ts int64) bool {
	k, v := s.tree.Floor(ts)
	return k != nil && v.(int64) >= ts
}

// WindowCount returns the number of distinct windows the set touches. It is
// the number of keys a filter built from the set holds.
func (s *Set) WindowCount(window int64) int {
	n := 0
	last := int64(math.MinInt64)
	first := true
	it := s.tree.Iterator()
	for it.Next() {
		lo := shrink.WindowID(it.Key().(int64), window)
		hi := shrink.WindowID(it.Value().(int64), window)
		if !first && lo <= last {
			lo = last + 1
		}
		if hi >= lo {
			n += int(hi - lo + 1)
		}
		last, first = hi, false
	}
	return n
}

// Marshal appends the encoding: int32 count followed by count (start, end) int64 pairs.
func Marshal(dst []byte, ivs []Interval) []byte {
	dst = convert.AppendInt32(dst, int32(len(ivs)))
	for _, iv := range ivs {
		dst = convert.AppendInt64(dst, iv.Start)
		dst = convert.AppendInt64(dst, iv.End)
	}
	return dst
}

// Unmarshal decodes a buffer written by Marshal.
func Unmarshal(src []byte) ([]Interval, error) {
	if len(src) < 4 {
		return nil, errors.Wrapf(ErrMalformed, "header needs 4 bytes, got %d", len(src))
	}
	n := convert.BytesToInt32(src)
	if n < 0 {
		return nil, errors.Wrapf(ErrMalformed, "negative count %d", n)
	}
	body := src[4:]
	if len(body) != int(n)*pairSize {
		return nil, errors.Wrapf(ErrMalformed, "%d intervals need %d bytes, got %d", n, int(n)*pairSize, len(body))
	}
	ivs := make([]Interval, n)
	for i := range ivs {
		ivs[i].Start = convert.BytesToInt64(body[i*pairSize:])
		ivs[i].End = convert.BytesToInt64(body[i*pairSize+8:])
		if !ivs[i].Valid() {
			return nil, errors.Wrapf(ErrMalformed, "interval %d is %s", i, ivs[i])
		}
	}
	return ivs, nil
}
