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
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseWindow(t *testing.T) {
	tests := []struct {
		in      string
		unit    time.Duration
		want    int64
		wantErr bool
	}{
		{in: "30m", unit: time.Millisecond, want: 1_800_000},
		{in: "1d", unit: time.Second, want: 86_400},
		{in: "1w2d", unit: time.Hour, want: 216},
		{in: "90s", unit: time.Minute, wantErr: true},
		{in: "0s", unit: time.Second, wantErr: true},
		{in: "soon", unit: time.Second, wantErr: true},
		{in: "1h", unit: 0, wantErr: true},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, err := ParseWindow(tt.in, tt.unit)
			if tt.wantErr {
				assert.ErrorIs(t, err, ErrInvalidWindow)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
	assert.Equal(t, "30m", FormatWindow(1_800_000, time.Millisecond))
}

func TestStopwatch(t *testing.T) {
	mc := NewMockClock()
	c, ctx := GetClock(SetClock(context.Background(), mc))
	assert.Equal(t, mc, c)
	assert.NotNil(t, ctx)
	sw := StartStopwatch(c)
	mc.Add(1500 * time.Millisecond)
	assert.Equal(t, 1500*time.Millisecond, sw.Elapsed())
}
