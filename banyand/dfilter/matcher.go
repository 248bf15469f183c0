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
	"context"
	"sync"

	"github.com/Josehokec/TemporaryCode-sub000/pkg/event"
)

// Matcher receives the surviving events of a query as concatenated fixed
// width records.
type Matcher interface {
	Match(ctx context.Context, records []byte, count int) error
}

// MatcherFunc adapts a function to Matcher.
type MatcherFunc func(ctx context.Context, records []byte, count int) error

// Match implements Matcher.
func (f MatcherFunc) Match(ctx context.Context, records []byte, count int) error {
	return f(ctx, records, count)
}

// RecordCollector is a Matcher decoding and keeping every record it receives.
type RecordCollector struct {
	schema *event.Schema
	events []event.Event
	mu     sync.Mutex
}

// NewRecordCollector returns a collector decoding records with schema.
func NewRecordCollector(schema *event.Schema) *RecordCollector {
	return &RecordCollector{schema: schema}
}

// Match implements Matcher.
func (c *RecordCollector) Match(_ context.Context, records []byte, _ int) error {
	events, err := c.schema.DecodeAll(records)
	if err != nil {
		return err
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	c.events = append(c.events, events...)
	return nil
}

// Events returns the collected events.
func (c *RecordCollector) Events() []event.Event {
	c.mu.Lock()
	defer c.mu.Unlock()
	return append([]event.Event(nil), c.events...)
}
