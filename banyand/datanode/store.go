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

// Package datanode implements a storage node answering every step of the
// distributed filtering protocol over an in-memory event partition.
package datanode

import (
	"github.com/pkg/errors"

	"github.com/Josehokec/TemporaryCode-sub000/pkg/event"
)

// Store is an immutable partition of one event table. Rows are addressed by
// their position.
type Store struct {
	schema *event.Schema
	events []event.Event
}

// NewStore wraps events checked against schema.
func NewStore(schema *event.Schema, events []event.Event) (*Store, error) {
	for i, ev := range events {
		if _, err := schema.Append(nil, ev); err != nil {
			return nil, errors.WithMessagef(err, "row %d", i)
		}
	}
	return &Store{schema: schema, events: events}, nil
}

// LoadStore decodes concatenated fixed width records.
func LoadStore(schema *event.Schema, records []byte) (*Store, error) {
	events, err := schema.DecodeAll(records)
	if err != nil {
		return nil, err
	}
	return &Store{schema: schema, events: events}, nil
}

// Schema returns the table schema.
func (s *Store) Schema() *event.Schema {
	return s.schema
}

// Len returns the number of rows.
func (s *Store) Len() int {
	return len(s.events)
}

// Row returns the event at position i.
func (s *Store) Row(i uint32) event.Event {
	return s.events[i]
}
