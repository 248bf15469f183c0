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

// Package estimate sizes Bloom filters from frequency statistics of join columns.
package estimate

import (
	"math"
	"sort"

	"github.com/montanaflynn/stats"
	"github.com/pkg/errors"
)

// ErrNoSamples is returned when statistics are built from nothing.
var ErrNoSamples = errors.New("no samples")

// Frequency is the observed probability of one column value.
type Frequency struct {
	Value       string  `json:"value"`
	Probability float64 `json:"probability"`
}

// Histogram is the frequency table of a column: the most frequent values with
// their own probability, and the rest spread uniformly over RemainingCount values.
type Histogram struct {
	Top            []Frequency `json:"top"`
	RemainingMass  float64     `json:"remaining_mass"`
	RemainingCount int         `json:"remaining_count"`
}

// NewHistogram builds a histogram keeping the topK most frequent values of counts.
func NewHistogram(counts map[string]int, topK int) (Histogram, error) {
	if len(counts) == 0 {
		return Histogram{}, ErrNoSamples
	}
	values := make([]float64, 0, len(counts))
	freqs := make([]Frequency, 0, len(counts))
	for v, c := range counts {
		values = append(values, float64(c))
		freqs = append(freqs, Frequency{Value: v, Probability: float64(c)})
	}
	total, err := stats.Sum(values)
	if err != nil {
		return Histogram{}, errors.WithMessage(err, "sum counts")
	}
	if total <= 0 {
		return Histogram{}, errors.Wrap(ErrNoSamples, "all counts are zero")
	}
	sort.Slice(freqs, func(i, j int) bool {
		if freqs[i].Probability != freqs[j].Probability {
			return freqs[i].Probability > freqs[j].Probability
		}
		return freqs[i].Value < freqs[j].Value
	})
	if topK < 0 {
		topK = 0
	}
	if topK > len(freqs) {
		topK = len(freqs)
	}
	h := Histogram{Top: make([]Frequency, topK)}
	for i, f := range freqs {
		p := f.Probability / total
		if i < topK {
			h.Top[i] = Frequency{Value: f.Value, Probability: p}
			continue
		}
		h.RemainingMass += p
		h.RemainingCount++
	}
	return h, nil
}

// DistinctKeys returns the expected number of distinct (value, window) keys when
// avgEventsPerWindow events are drawn in each of windowCount windows:
// windowCount * (Σ 1-(1-p_i)^n + R*(1-(1-q)^n)) with q = remainingMass/R.
func (h Histogram) DistinctKeys(avgEventsPerWindow, windowCount float64) float64 {
	if windowCount <= 0 || avgEventsPerWindow <= 0 {
		return 0
	}
	n := avgEventsPerWindow
	var perWindow float64
	for _, f := range h.Top {
		perWindow += saturate(f.Probability, n)
	}
	if h.RemainingCount > 0 && h.RemainingMass > 0 {
		q := h.RemainingMass / float64(h.RemainingCount)
		perWindow += float64(h.RemainingCount) * saturate(q, n)
	}
	return windowCount * perWindow
}

// saturate is the probability that a value of probability p shows up in n draws.
func saturate(p, n float64) float64 {
	if p >= 1 {
		return 1
	}
	return 1 - math.Pow(1-p, n)
}

// AvgEventsPerWindow returns the mean number of events per window of the samples.
func AvgEventsPerWindow(perWindowCounts []float64) float64 {
	if len(perWindowCounts) == 0 {
		return 0
	}
	m, err := stats.Mean(perWindowCounts)
	if err != nil {
		return 0
	}
	return m
}

// RescaleKeyCount projects the key count observed when windowCountThen windows
// were alive onto windowCountNow windows.
func RescaleKeyCount(keyCount int, windowCountThen, windowCountNow float64) int {
	if windowCountThen <= 0 || keyCount <= 0 {
		return keyCount
	}
	if windowCountNow >= windowCountThen {
		return keyCount
	}
	return int(math.Ceil(float64(keyCount) * windowCountNow / windowCountThen))
}

// Estimator holds histograms keyed by column name.
type Estimator struct {
	histograms map[string]Histogram
}

// NewEstimator creates an estimator. A nil map means no statistics are known.
func NewEstimator(histograms map[string]Histogram) *Estimator {
	if histograms == nil {
		histograms = make(map[string]Histogram)
	}
	return &Estimator{histograms: histograms}
}

// Set stores the histogram of a column.
func (e *Estimator) Set(column string, h Histogram) {
	e.histograms[column] = h
}

// KeyCount estimates how many distinct keys eventCount events of column spread
// over windowCount windows produce. Without statistics it falls back to the
// event count. The result is never larger than the event count and at least 1.
func (e *Estimator) KeyCount(column string, eventCount int, windowCount float64) int {
	if eventCount <= 0 {
		return 1
	}
	h, ok := e.histograms[column]
	if !ok || windowCount <= 0 {
		return eventCount
	}
	keys := int(math.Ceil(h.DistinctKeys(float64(eventCount)/windowCount, windowCount)))
	if keys > eventCount {
		keys = eventCount
	}
	if keys < 1 {
		keys = 1
	}
	return keys
}
