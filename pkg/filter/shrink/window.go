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

// WindowID returns the index of the window of length window holding ts.
// Negative timestamps round towards negative infinity.
func WindowID(ts, window int64) int64 {
	wid := ts / window
	if ts%window != 0 && ts < 0 {
		wid--
	}
	return wid
}

// subWindow returns which of the markerBits equal slices of window wid holds ts.
func subWindow(ts, wid, window int64, markerBits uint) uint {
	offset := ts - wid*window
	return uint(offset * int64(markerBits) / window)
}

func rangeMask(lo, hi uint) uint64 {
	return (uint64(1)<<(hi+1) - 1) &^ (uint64(1)<<lo - 1)
}

// windowTag is the marker an interval leaves in one window.
type windowTag struct {
	wid    int64
	marker uint64
}

// pointTag returns the window and the single sub window bit of ts.
func pointTag(ts, window int64, markerBits uint) windowTag {
	wid := WindowID(ts, window)
	return windowTag{wid: wid, marker: uint64(1) << subWindow(ts, wid, window, markerBits)}
}

// splitInterval cuts [start, end] into one tag per touched window: a partial head,
// full middle windows and a partial tail. The end is treated inclusively.
func splitInterval(start, end, window int64, markerBits uint) []windowTag {
	if start > end {
		return nil
	}
	first, last := WindowID(start, window), WindowID(end, window)
	tags := make([]windowTag, 0, last-first+1)
	for wid := first; wid <= last; wid++ {
		lo, hi := uint(0), markerBits-1
		if wid == first {
			lo = subWindow(start, wid, window, markerBits)
		}
		if wid == last {
			hi = subWindow(end, wid, window, markerBits)
		}
		tags = append(tags, windowTag{wid: wid, marker: rangeMask(lo, hi)})
	}
	return tags
}
