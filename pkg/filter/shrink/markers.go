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
	"bytes"
	"sort"

	"github.com/pkg/errors"

	"github.com/Josehokec/TemporaryCode-sub000/pkg/bit"
	"github.com/Josehokec/TemporaryCode-sub000/pkg/convert"
	"github.com/Josehokec/TemporaryCode-sub000/pkg/pool"
)

const markersHeaderSize = 8

// ErrMalformedMarkers is returned when an encoded UpdatedMarkers buffer is not exact.
var ErrMalformedMarkers = errors.New("malformed updated markers")

var markersBufferPool = pool.Register("shrink-markers-buffer", func() *bytes.Buffer {
	return new(bytes.Buffer)
})

// UpdatedMarkers holds the hits of one round keyed by slot position
// (bucket*SlotsPerBucket + slot) together with the number of events that survived.
// A zero marker means "no update", never "update to zero".
type UpdatedMarkers struct {
	markers          map[int]uint64
	slotCount        int
	filteredEventNum int
	markerBits       uint
}

// NewUpdatedMarkers creates an empty set for a table of slotCount slots.
func NewUpdatedMarkers(slotCount int, markerBits uint) *UpdatedMarkers {
	return &UpdatedMarkers{
		markers:    make(map[int]uint64),
		slotCount:  slotCount,
		markerBits: markerBits,
	}
}

// Or adds marker bits to the slot at pos.
func (m *UpdatedMarkers) Or(pos int, marker uint64) {
	if pos < 0 || pos >= m.slotCount {
		panic(errors.Errorf("shrink: slot position %d out of range [0, %d)", pos, m.slotCount))
	}
	if marker&^((uint64(1)<<m.markerBits)-1) != 0 {
		panic(errors.Errorf("shrink: marker %#x wider than %d bits", marker, m.markerBits))
	}
	if marker == 0 {
		return
	}
	m.markers[pos] |= marker
}

// Get returns the marker recorded for pos, zero if none.
func (m *UpdatedMarkers) Get(pos int) uint64 {
	return m.markers[pos]
}

// Len returns the number of slots with an update.
func (m *UpdatedMarkers) Len() int {
	return len(m.markers)
}

// SlotCount returns the number of slots of the table the markers belong to.
func (m *UpdatedMarkers) SlotCount() int {
	return m.slotCount
}

// MarkerBits returns the marker width.
func (m *UpdatedMarkers) MarkerBits() uint {
	return m.markerBits
}

// AddFilteredEvents counts events that survived the round.
func (m *UpdatedMarkers) AddFilteredEvents(n int) {
	m.filteredEventNum += n
}

// FilteredEventNum returns the number of events that survived the round.
func (m *UpdatedMarkers) FilteredEventNum() int {
	return m.filteredEventNum
}

// Positions returns the updated slot positions in ascending order.
func (m *UpdatedMarkers) Positions() []int {
	pp := make([]int, 0, len(m.markers))
	for p := range m.markers {
		pp = append(pp, p)
	}
	sort.Ints(pp)
	return pp
}

// Merge ORs other's markers into m and sums the event counters.
func (m *UpdatedMarkers) Merge(other *UpdatedMarkers) error {
	if m.slotCount != other.slotCount || m.markerBits != other.markerBits {
		return errors.Wrapf(ErrIncompatible, "markers of %d slots/%d bits merged into %d slots/%d bits",
			other.slotCount, other.markerBits, m.slotCount, m.markerBits)
	}
	for p, v := range other.markers {
		m.markers[p] |= v
	}
	m.filteredEventNum += other.filteredEventNum
	return nil
}

// Equal reports whether both sets hold the same markers and counters.
func (m *UpdatedMarkers) Equal(other *UpdatedMarkers) bool {
	if m.slotCount != other.slotCount || m.markerBits != other.markerBits ||
		m.filteredEventNum != other.filteredEventNum || len(m.markers) != len(other.markers) {
		return false
	}
	for p, v := range m.markers {
		if other.markers[p] != v {
			return false
		}
	}
	return true
}

// Marshal appends the encoding: int32 filteredEventNum, int32 slotCount, then for
// every slot a presence bit followed, when set, by the marker. The bit stream is
// MSB first and zero padded to a byte.
func (m *UpdatedMarkers) Marshal(dst []byte) []byte {
	dst = convert.AppendInt32(dst, int32(m.filteredEventNum))
	dst = convert.AppendInt32(dst, int32(m.slotCount))
	buf := markersBufferPool.Get()
	defer func() {
		buf.Reset()
		markersBufferPool.Put(buf)
	}()
	w := bit.NewWriter(buf)
	for pos := 0; pos < m.slotCount; pos++ {
		v, ok := m.markers[pos]
		w.WriteBool(ok)
		if ok {
			w.WriteBits(v, int(m.markerBits))
		}
	}
	w.Flush()
	return append(dst, buf.Bytes()...)
}

// UnmarshalUpdatedMarkers decodes a buffer written by Marshal. Truncated input, trailing
// bytes, non zero padding and present zero markers are rejected.
func UnmarshalUpdatedMarkers(src []byte, markerBits uint) (*UpdatedMarkers, error) {
	if len(src) < markersHeaderSize {
		return nil, errors.Wrapf(ErrMalformedMarkers, "header needs %d bytes, got %d", markersHeaderSize, len(src))
	}
	filtered := convert.BytesToInt32(src)
	slotCount := convert.BytesToInt32(src[4:])
	if filtered < 0 || slotCount < 0 {
		return nil, errors.Wrapf(ErrMalformedMarkers, "negative header %d/%d", filtered, slotCount)
	}
	m := NewUpdatedMarkers(int(slotCount), markerBits)
	m.filteredEventNum = int(filtered)
	r := bit.NewReader(src[markersHeaderSize:])
	for pos := 0; pos < m.slotCount; pos++ {
		present, err := r.ReadBool()
		if err != nil {
			return nil, errors.Wrapf(ErrMalformedMarkers, "presence of slot %d: %v", pos, err)
		}
		if !present {
			continue
		}
		v, err := r.ReadBits(int(markerBits))
		if err != nil {
			return nil, errors.Wrapf(ErrMalformedMarkers, "marker of slot %d: %v", pos, err)
		}
		if v == 0 {
			return nil, errors.Wrapf(ErrMalformedMarkers, "slot %d is present with an empty marker", pos)
		}
		m.markers[pos] = v
	}
	if rest := r.Remaining(); rest >= 8 {
		return nil, errors.Wrapf(ErrMalformedMarkers, "%d trailing bytes", rest/8)
	} else if rest > 0 {
		if padding, _ := r.ReadBits(rest); padding != 0 {
			return nil, errors.Wrapf(ErrMalformedMarkers, "non zero padding %#x", padding)
		}
	}
	return m, nil
}
