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

package timestamp

import (
	"time"

	"github.com/pkg/errors"
	"github.com/xhit/go-str2duration/v2"
)

// ErrInvalidWindow is returned when a window length is not a positive multiple of the unit.
var ErrInvalidWindow = errors.New("invalid window")

// ParseWindow parses a window length such as "30m", "1d" or "1w2d" and
// expresses it in unit, the resolution of event timestamps.
func ParseWindow(s string, unit time.Duration) (int64, error) {
	if unit <= 0 {
		return 0, errors.Wrapf(ErrInvalidWindow, "unit %s", unit)
	}
	d, err := str2duration.ParseDuration(s)
	if err != nil {
		return 0, errors.Wrapf(ErrInvalidWindow, "%q: %v", s, err)
	}
	if d <= 0 || d%unit != 0 {
		return 0, errors.Wrapf(ErrInvalidWindow, "%q is not a positive multiple of %s", s, unit)
	}
	return int64(d / unit), nil
}

// FormatWindow renders a window length given in unit.
func FormatWindow(window int64, unit time.Duration) string {
	return str2duration.String(time.Duration(window) * unit)
}
