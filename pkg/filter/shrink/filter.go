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

package shrink

import (
	"github.com/pkg/errors"

	"github.com/Josehokec/TemporaryCode-sub000/pkg/filter"
)

// Filter is a windowed membership filter keeping the hits of the current round
// inside its tags. A round calls UpdateRange for every surviving event and ends
// with Rebuild.
type Filter struct {
	core
	// hits records whether hit markers were touched since the last rebuild.
	hits bool
}

// New creates a filter sized for expectedKeys window tags.
func New(layout filter.Layout, window int64, expectedKeys int, opts ...Option) (*Filter, error) {
	if err := layout.Validate(); err != nil {
		return nil, err
	}
	if layout.HitBits == 0 {
		return nil, errors.Wrapf(filter.ErrInvalidLayout, "%s keeps no hit marker", layout)
	}
	o := buildOptions(opts)
	c, err := newCore(layout, window, BucketNumFor(expectedKeys, o.loadFactor), o)
	if err != nil {
		return nil, err
	}
	return &Filter{core: c}, nil
}

// Unmarshal decodes a filter produced by Marshal during a round, hit markers included.
func Unmarshal(layout filter.Layout, window int64, src []byte, opts ...Option) (*Filter, error) {
	if layout.HitBits == 0 {
		return nil, errors.Wrapf(filter.ErrInvalidLayout, "%s keeps no hit marker", layout)
	}
	c, err := unmarshalCore(layout, window, src, buildOptions(opts))
	if err != nil {
		return nil, err
	}
	return &Filter{core: c, hits: true}, nil
}

// UpdateRange records that a surviving event may match inside [start, end]: the
// overlap with each stored interval marker is ORed into its hit marker. Windows
// that hold no entry are ignored. It reports whether any entry was updated.
func (f *Filter) UpdateRange(start, end int64) bool {
	f.hits = true
	updated := false
	l := f.layout
	for _, wt := range splitInterval(start, end, f.window, l.IntervalBits) {
		for _, ref := range f.matches(wt.wid) {
			tag := f.table.ReadTag(ref.bucket, ref.slot)
			overlap := l.Marker(tag) & wt.marker
			if overlap == 0 {
				continue
			}
			f.table.WriteTag(ref.bucket, ref.slot, tag|overlap)
			updated = true
		}
	}
	return updated
}

// Rebuild keeps, per entry, only the sub windows that were hit during the round and
// drops the entries left without any. Hit markers are cleared. Without any hit
// information since the previous rebuild it changes nothing. It returns the number
// of surviving entries.
func (f *Filter) Rebuild() int {
	if !f.hits {
		return f.KeyCount()
	}
	l := f.layout
	f.table.Range(func(bucket uint64, slot int, tag uint64) bool {
		kept := l.Marker(tag) & l.Hit(tag)
		if kept == 0 {
			f.table.WriteTag(bucket, slot, 0)
		} else {
			f.table.WriteTag(bucket, slot, l.MakeTag(l.Fingerprint(tag), kept, 0))
		}
		return true
	})
	f.hits = false
	return f.KeyCount()
}

// Merge ORs other into f. Both filters must come from the same build, so equal
// positions hold the same fingerprints.
func (f *Filter) Merge(other *Filter) error {
	if err := f.merge(&other.core); err != nil {
		return err
	}
	f.hits = f.hits || other.hits
	return nil
}

// Clone returns a deep copy.
func (f *Filter) Clone() *Filter {
	c := *f
	c.table = f.table.Clone()
	return &c
}
