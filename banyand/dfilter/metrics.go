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

package dfilter

import (
	"github.com/Josehokec/TemporaryCode-sub000/pkg/meter"
)

type metrics struct {
	rounds      meter.Counter
	failures    meter.Counter
	latency     meter.Histogram
	windowCount meter.Gauge
	buckets     meter.Gauge
	survivors   meter.Gauge
}

func newMetrics(p meter.Provider) *metrics {
	if p == nil {
		p = meter.NoopProvider
	}
	return &metrics{
		rounds:      p.Counter("rounds_total", "kind"),
		failures:    p.Counter("round_failures_total", "kind"),
		latency:     p.Histogram("round_latency_seconds", meter.DefBuckets, "kind"),
		windowCount: p.Gauge("window_count"),
		buckets:     p.Gauge("filter_buckets"),
		survivors:   p.Gauge("surviving_events", "variable"),
	}
}
