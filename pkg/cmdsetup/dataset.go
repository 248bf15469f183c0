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

package cmdsetup

import (
	"os"

	"github.com/pkg/errors"
	"sigs.k8s.io/yaml"

	"github.com/Josehokec/TemporaryCode-sub000/pkg/estimate"
	"github.com/Josehokec/TemporaryCode-sub000/pkg/event"
)

const histogramTopK = 32

type datasetFile struct {
	Table   string         `json:"table"`
	Columns []event.Column `json:"columns"`
	Events  []struct {
		Values []any `json:"values"`
		TS     int64 `json:"ts"`
	} `json:"events"`
}

// dataset is an event table read from a YAML file such as
//
//	table: trades
//	columns:
//	  - {name: venue, type: string, size: 4}
//	events:
//	  - {ts: 1000, values: [a]}
type dataset struct {
	schema *event.Schema
	events []event.Event
}

func loadDataset(path string) (*dataset, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, errors.Wrapf(err, "read dataset %s", path)
	}
	return parseDataset(raw)
}

func parseDataset(raw []byte) (*dataset, error) {
	var f datasetFile
	if err := yaml.UnmarshalStrict(raw, &f); err != nil {
		return nil, errors.Wrap(err, "decode dataset")
	}
	schema, err := event.NewSchema(f.Table, f.Columns)
	if err != nil {
		return nil, err
	}
	d := &dataset{schema: schema, events: make([]event.Event, 0, len(f.Events))}
	for i, e := range f.Events {
		if len(e.Values) != len(f.Columns) {
			return nil, errors.Errorf("event %d has %d values, want %d", i, len(e.Values), len(f.Columns))
		}
		ev := event.Event{Timestamp: e.TS, Values: make([]event.Value, len(e.Values))}
		for j, a := range e.Values {
			if ev.Values[j], err = event.FromAny(f.Columns[j].Type, a); err != nil {
				return nil, errors.WithMessagef(err, "event %d column %s", i, f.Columns[j].Name)
			}
		}
		d.events = append(d.events, ev)
	}
	return d, nil
}

// shards deals the events round robin to n nodes.
func (d *dataset) shards(n int) [][]event.Event {
	out := make([][]event.Event, n)
	for i, ev := range d.events {
		out[i%n] = append(out[i%n], ev)
	}
	return out
}

// histograms returns the value frequencies of every column.
func (d *dataset) histograms() map[string]estimate.Histogram {
	hh := make(map[string]estimate.Histogram, len(d.schema.Columns()))
	for i, c := range d.schema.Columns() {
		counts := make(map[string]int)
		for _, ev := range d.events {
			counts[ev.Values[i].String()]++
		}
		h, err := estimate.NewHistogram(counts, histogramTopK)
		if err != nil {
			continue
		}
		hh[c.Name] = h
	}
	return hh
}
