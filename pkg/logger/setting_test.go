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

package logger

import (
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestInitLogger(t *testing.T) {
	type want struct {
		isDev bool
		level zerolog.Level
	}
	tests := []struct {
		name    string
		cfg     Logging
		want    want
		wantErr bool
	}{
		{
			name: "golden path",
			cfg:  Logging{Env: "prod", Level: "info"},
			want: want{level: zerolog.InfoLevel},
		},
		{
			name: "empty config",
			cfg:  Logging{},
			want: want{level: zerolog.InfoLevel},
		},
		{
			name: "development mode",
			cfg:  Logging{Env: "dev"},
			want: want{isDev: true, level: zerolog.InfoLevel},
		},
		{
			name: "debug level",
			cfg:  Logging{Level: "debug"},
			want: want{level: zerolog.DebugLevel},
		},
		{
			name: "invalid env",
			cfg:  Logging{Env: "invalid"},
			want: want{level: zerolog.InfoLevel},
		},
		{
			name:    "invalid level",
			cfg:     Logging{Level: "invalid"},
			wantErr: true,
		},
		{
			name:    "modules without levels",
			cfg:     Logging{Modules: []string{"dfilter"}},
			wantErr: true,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			l, err := getLogger(tt.cfg)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, rootName, l.Module())
			assert.Equal(t, tt.want.isDev, l.Development())
			assert.Equal(t, tt.want.level, l.GetLevel())
		})
	}
}

func TestModuleLevels(t *testing.T) {
	require.NoError(t, Init(Logging{
		Level:   "warn",
		Modules: []string{"dfilter", "dfilter.round"},
		Levels:  []string{"debug", "error"},
	}))
	defer func() {
		require.NoError(t, Init(Logging{Level: "info"}))
	}()
	assert.Equal(t, zerolog.WarnLevel, GetLogger("datanode").GetLevel())
	l := GetLogger("dfilter")
	assert.Equal(t, "DFILTER", l.Module())
	assert.Equal(t, zerolog.DebugLevel, l.GetLevel())
	sub := l.Named("round")
	assert.Equal(t, "DFILTER.ROUND", sub.Module())
	assert.Equal(t, zerolog.ErrorLevel, sub.GetLevel())
	assert.Equal(t, zerolog.DebugLevel, l.Named("bloom").GetLevel())
}
