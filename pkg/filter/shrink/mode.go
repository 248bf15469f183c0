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
	"strings"

	"github.com/pkg/errors"

	"github.com/Josehokec/TemporaryCode-sub000/pkg/filter"
)

// Mode selects how storage nodes report the hits of a round.
type Mode string

const (
	// ModeUltra ships UpdatedMarkers deltas over an ultra filter.
	ModeUltra Mode = "ultra"
	// ModeBasic ships the whole filter carrying its hit markers.
	ModeBasic Mode = "basic"
)

// ErrInvalidMode is returned for an unknown mode.
var ErrInvalidMode = errors.New("invalid filter mode")

// ParseMode parses "ultra" or "basic".
func ParseMode(s string) (Mode, error) {
	switch m := Mode(strings.ToLower(strings.TrimSpace(s))); m {
	case ModeUltra, ModeBasic:
		return m, nil
	}
	return "", errors.Wrapf(ErrInvalidMode, "%q", s)
}

// Settings pins the filter encoding of a deployment. Every participant of a
// query must use the same settings.
type Settings struct {
	Mode       Mode
	Layout     filter.Layout
	LoadFactor float64
	Window     int64
}

// Validate checks the settings.
func (s Settings) Validate() error {
	if _, err := ParseMode(string(s.Mode)); err != nil {
		return err
	}
	if s.Window <= 0 {
		return errors.Wrapf(ErrInvalidWindow, "got %d", s.Window)
	}
	if s.Mode == ModeBasic && s.Layout.HitBits == 0 {
		return errors.Wrapf(filter.ErrInvalidLayout, "%s keeps no hit marker", s.Layout)
	}
	return nil
}

// WithWindow returns a copy of s for another window length.
func (s Settings) WithWindow(window int64) Settings {
	s.Window = window
	return s
}

// MarkerBits returns the width of an interval marker.
func (s Settings) MarkerBits() uint {
	if s.Mode == ModeUltra {
		return filter.LayoutUltra.IntervalBits
	}
	return s.Layout.IntervalBits
}

func (s Settings) options() []Option {
	return []Option{WithLoadFactor(s.LoadFactor)}
}

// Driver owns the filter of a query on the coordinating side: it builds the
// filter, ships it and folds the node results back into it.
type Driver struct {
	basic    *Filter
	ultra    *UltraFilter
	settings Settings
}

// NewDriver creates an empty filter sized for expectedKeys window tags.
func (s Settings) NewDriver(expectedKeys int) (*Driver, error) {
	if err := s.Validate(); err != nil {
		return nil, err
	}
	d := &Driver{settings: s}
	var err error
	if s.Mode == ModeUltra {
		d.ultra, err = NewUltra(s.Window, expectedKeys, s.options()...)
	} else {
		d.basic, err = New(s.Layout, s.Window, expectedKeys, s.options()...)
	}
	if err != nil {
		return nil, err
	}
	return d, nil
}

func (d *Driver) core() *core {
	if d.ultra != nil {
		return &d.ultra.core
	}
	return &d.basic.core
}

// Settings returns the settings the driver was created with.
func (d *Driver) Settings() Settings {
	return d.settings
}

// Insert adds [start, end]. On ErrFilterFull nothing of the interval is kept.
func (d *Driver) Insert(start, end int64) error {
	return d.core().insert(start, end)
}

// Query reports whether ts may fall into the filter.
func (d *Driver) Query(ts int64) bool {
	return d.core().query(ts)
}

// Marshal appends the filter words.
func (d *Driver) Marshal(dst []byte) []byte {
	return d.core().Marshal(dst)
}

// KeyCount returns the number of live entries.
func (d *Driver) KeyCount() int {
	return d.core().KeyCount()
}

// WindowCount approximates how many whole windows are still covered.
func (d *Driver) WindowCount() float64 {
	return d.core().windowCount()
}

// BucketNum returns the number of buckets.
func (d *Driver) BucketNum() uint64 {
	return d.core().BucketNum()
}

// Compact halves the table while it is less than half as full as targeted.
func (d *Driver) Compact() bool {
	return d.core().compact()
}

// Apply merges the round results of every node and rebuilds the filter. An
// empty result set means nothing was hit. It returns the surviving key count.
func (d *Driver) Apply(results [][]byte) (int, error) {
	if d.ultra != nil {
		m := d.ultra.NewUpdatedMarkers()
		for i, r := range results {
			nm, err := UnmarshalUpdatedMarkers(r, m.MarkerBits())
			if err != nil {
				return 0, errors.WithMessagef(err, "result %d", i)
			}
			if err = m.Merge(nm); err != nil {
				return 0, errors.WithMessagef(err, "result %d", i)
			}
		}
		return d.ultra.Rebuild(m)
	}
	s := d.settings
	var acc *Filter
	for i, r := range results {
		f, err := Unmarshal(s.Layout, s.Window, r, s.options()...)
		if err != nil {
			return 0, errors.WithMessagef(err, "result %d", i)
		}
		if f.BucketNum() != d.basic.BucketNum() {
			return 0, errors.Wrapf(ErrIncompatible, "result %d has %d buckets, want %d", i, f.BucketNum(), d.basic.BucketNum())
		}
		if acc == nil {
			acc = f
			continue
		}
		if err = acc.Merge(f); err != nil {
			return 0, errors.WithMessagef(err, "result %d", i)
		}
	}
	if acc == nil {
		acc = d.basic
		acc.hits = true
	}
	d.basic = acc
	return acc.Rebuild(), nil
}

// Probe is the storage node side of a round: a decoded filter answering
// membership and collecting the hits of the node's events.
type Probe struct {
	basic    *Filter
	ultra    *UltraFilter
	markers  *UpdatedMarkers
	filtered int
}

// OpenProbe decodes a filter shipped by a Driver with the same settings.
func (s Settings) OpenProbe(src []byte) (*Probe, error) {
	if err := s.Validate(); err != nil {
		return nil, err
	}
	p := &Probe{}
	var err error
	if s.Mode == ModeUltra {
		if p.ultra, err = UnmarshalUltra(s.Window, src, s.options()...); err != nil {
			return nil, err
		}
		p.markers = p.ultra.NewUpdatedMarkers()
		return p, nil
	}
	if p.basic, err = Unmarshal(s.Layout, s.Window, src, s.options()...); err != nil {
		return nil, err
	}
	return p, nil
}

// Query reports whether ts may fall into the filter.
func (p *Probe) Query(ts int64) bool {
	if p.ultra != nil {
		return p.ultra.query(ts)
	}
	return p.basic.query(ts)
}

// Mark records a hit of an event whose matches lie in [start, end].
func (p *Probe) Mark(start, end int64) bool {
	p.filtered++
	if p.ultra != nil {
		return p.ultra.MarkRange(p.markers, start, end)
	}
	return p.basic.UpdateRange(start, end)
}

// Filtered returns the number of events marked.
func (p *Probe) Filtered() int {
	return p.filtered
}

// Result appends what the node replies with: the encoded markers in ultra
// mode, the filter carrying its hit markers in basic mode.
func (p *Probe) Result(dst []byte) []byte {
	if p.ultra != nil {
		p.markers.AddFilteredEvents(p.filtered - p.markers.FilteredEventNum())
		return p.markers.Marshal(dst)
	}
	return p.basic.Marshal(dst)
}
