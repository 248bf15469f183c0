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

// UltraFilter is a windowed membership filter without hit markers. Hits are
// collected outside the filter in UpdatedMarkers, so the filter itself stays
// read only during a round and can be shared between goroutines.
type UltraFilter struct {
	core
}

// NewUltra creates an ultra filter sized for expectedKeys window tags.
func NewUltra(window int64, expectedKeys int, opts ...Option) (*UltraFilter, error) {
	o := buildOptions(opts)
	c, err := newCore(filter.LayoutUltra, window, BucketNumFor(expectedKeys, o.loadFactor), o)
	if err != nil {
		return nil, err
	}
	return &UltraFilter{core: c}, nil
}

// UnmarshalUltra decodes a filter produced by Marshal.
func UnmarshalUltra(window int64, src []byte, opts ...Option) (*UltraFilter, error) {
	c, err := unmarshalCore(filter.LayoutUltra, window, src, buildOptions(opts))
	if err != nil {
		return nil, err
	}
	return &UltraFilter{core: c}, nil
}

// SlotCount returns the number of slots, the position space of UpdatedMarkers.
func (f *UltraFilter) SlotCount() int {
	return int(f.table.BucketNum()) * filter.SlotsPerBucket
}

// QueryWindowID returns the position of the first live entry of window wid.
func (f *UltraFilter) QueryWindowID(wid int64) (uint64, int, bool) {
	refs := f.matches(wid)
	if len(refs) == 0 {
		return 0, 0, false
	}
	return refs[0].bucket, refs[0].slot, true
}

// NewUpdatedMarkers returns an empty marker set matching the current geometry.
func (f *UltraFilter) NewUpdatedMarkers() *UpdatedMarkers {
	return NewUpdatedMarkers(f.SlotCount(), f.layout.IntervalBits)
}

// MarkRange records in m the overlap of [start, end] with every stored entry.
// It reports whether anything was recorded.
func (f *UltraFilter) MarkRange(m *UpdatedMarkers, start, end int64) bool {
	l := f.layout
	marked := false
	for _, wt := range splitInterval(start, end, f.window, l.IntervalBits) {
		for _, ref := range f.matches(wt.wid) {
			overlap := l.Marker(f.table.ReadTag(ref.bucket, ref.slot)) & wt.marker
			if overlap == 0 {
				continue
			}
			m.Or(int(ref.bucket)*filter.SlotsPerBucket+ref.slot, overlap)
			marked = true
		}
	}
	return marked
}

// Rebuild keeps, per entry, only the sub windows present in m and drops entries
// left without any. Applying the same markers twice has no further effect.
// It returns the number of surviving entries.
func (f *UltraFilter) Rebuild(m *UpdatedMarkers) (int, error) {
	if m.SlotCount() != f.SlotCount() || m.MarkerBits() != f.layout.IntervalBits {
		return 0, errors.Wrapf(ErrIncompatible, "markers of %d slots for a filter of %d slots", m.SlotCount(), f.SlotCount())
	}
	l := f.layout
	f.table.Range(func(bucket uint64, slot int, tag uint64) bool {
		kept := l.Marker(tag) & m.Get(int(bucket)*filter.SlotsPerBucket+slot)
		if kept == 0 {
			f.table.WriteTag(bucket, slot, 0)
		} else if kept != l.Marker(tag) {
			f.table.WriteTag(bucket, slot, l.MakeTag(l.Fingerprint(tag), kept, 0))
		}
		return true
	})
	return f.KeyCount(), nil
}

// Merge ORs other into f.
func (f *UltraFilter) Merge(other *UltraFilter) error {
	return f.merge(&other.core)
}

// Clone returns a deep copy.
func (f *UltraFilter) Clone() *UltraFilter {
	c := *f
	c.table = f.table.Clone()
	return &c
}
