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

package filter

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/pkg/errors"
)

// ErrInvalidLayout is returned when a layout is not one of the supported bit splits.
var ErrInvalidLayout = errors.New("invalid tag layout")

// Layout describes how a tag is split into fingerprint, interval marker and hit marker.
// Tags are packed from the most significant bit: fingerprint, interval marker, hit marker.
type Layout struct {
	FingerprintBits uint
	IntervalBits    uint
	HitBits         uint
}

var (
	// Layout8x4x4 packs a tag into 16 bits.
	Layout8x4x4 = Layout{FingerprintBits: 8, IntervalBits: 4, HitBits: 4}
	// Layout16x8x8 packs a tag into 32 bits.
	Layout16x8x8 = Layout{FingerprintBits: 16, IntervalBits: 8, HitBits: 8}
	// Layout8x12x12 packs a tag into 32 bits with fine grained sub windows.
	Layout8x12x12 = Layout{FingerprintBits: 8, IntervalBits: 12, HitBits: 12}
	// Layout12x10x10 packs a tag into 32 bits.
	Layout12x10x10 = Layout{FingerprintBits: 12, IntervalBits: 10, HitBits: 10}
	// LayoutUltra keeps hits outside the table, see shrink.UpdatedMarkers.
	LayoutUltra = Layout{FingerprintBits: 12, IntervalBits: 20}
	// LayoutPlain16 is a plain 16-bit fingerprint used by the general membership filter.
	LayoutPlain16 = Layout{FingerprintBits: 16}

	supportedLayouts = []Layout{Layout8x4x4, Layout16x8x8, Layout8x12x12, Layout12x10x10, LayoutUltra, LayoutPlain16}
)

// ParseLayout parses the "fingerprint/interval/hit" notation, e.g. "12/10/10".
func ParseLayout(s string) (Layout, error) {
	parts := strings.Split(strings.TrimSpace(s), "/")
	if len(parts) != 3 {
		return Layout{}, errors.Wrapf(ErrInvalidLayout, "%q", s)
	}
	var bits [3]uint
	for i, p := range parts {
		v, err := strconv.ParseUint(p, 10, 8)
		if err != nil {
			return Layout{}, errors.Wrapf(ErrInvalidLayout, "%q: %v", s, err)
		}
		bits[i] = uint(v)
	}
	l := Layout{FingerprintBits: bits[0], IntervalBits: bits[1], HitBits: bits[2]}
	if err := l.Validate(); err != nil {
		return Layout{}, err
	}
	return l, nil
}

// Validate reports whether the layout is one of the supported splits.
func (l Layout) Validate() error {
	for _, s := range supportedLayouts {
		if s == l {
			return nil
		}
	}
	return errors.Wrapf(ErrInvalidLayout, "%s", l)
}

func (l Layout) String() string {
	return fmt.Sprintf("%d/%d/%d", l.FingerprintBits, l.IntervalBits, l.HitBits)
}

// TagBits returns the width of one tag.
func (l Layout) TagBits() uint {
	return l.FingerprintBits + l.IntervalBits + l.HitBits
}

// Windowed reports whether tags carry an interval marker.
func (l Layout) Windowed() bool {
	return l.IntervalBits > 0
}

// TagMask covers every bit of a tag.
func (l Layout) TagMask() uint64 {
	return lowMask(l.TagBits())
}

// FingerprintMask masks an unshifted fingerprint.
func (l Layout) FingerprintMask() uint64 {
	return lowMask(l.FingerprintBits)
}

// MarkerMask masks an unshifted interval marker.
func (l Layout) MarkerMask() uint64 {
	return lowMask(l.IntervalBits)
}

// HitMask masks an unshifted hit marker.
func (l Layout) HitMask() uint64 {
	return lowMask(l.HitBits)
}

// Fingerprint extracts the fingerprint of a tag.
func (l Layout) Fingerprint(tag uint64) uint64 {
	return (tag >> (l.IntervalBits + l.HitBits)) & l.FingerprintMask()
}

// Marker extracts the interval marker of a tag.
func (l Layout) Marker(tag uint64) uint64 {
	return (tag >> l.HitBits) & l.MarkerMask()
}

// Hit extracts the hit marker of a tag.
func (l Layout) Hit(tag uint64) uint64 {
	return tag & l.HitMask()
}

// MakeTag packs the three fields into a tag. Out of range fields panic.
func (l Layout) MakeTag(fp, marker, hit uint64) uint64 {
	if fp&^l.FingerprintMask() != 0 || marker&^l.MarkerMask() != 0 || hit&^l.HitMask() != 0 {
		panic(fmt.Sprintf("filter: malformed tag fields fp=%#x marker=%#x hit=%#x for layout %s", fp, marker, hit, l))
	}
	return fp<<(l.IntervalBits+l.HitBits) | marker<<l.HitBits | hit
}

// Live reports whether a slot holds an entry.
func (l Layout) Live(tag uint64) bool {
	if l.Windowed() {
		return l.Marker(tag) != 0
	}
	return tag != 0
}

func lowMask(bits uint) uint64 {
	if bits >= 64 {
		return ^uint64(0)
	}
	return (uint64(1) << bits) - 1
}
