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

package datanode

import (
	"sync"

	"github.com/RoaringBitmap/roaring"

	"github.com/Josehokec/TemporaryCode-sub000/pkg/event"
	"github.com/Josehokec/TemporaryCode-sub000/pkg/filter/shrink"
	"github.com/Josehokec/TemporaryCode-sub000/pkg/query/plan"
)

// session is the state a node keeps for one query: the rows of every
// variable that survived the rounds so far.
type session struct {
	plan      *plan.Plan
	survivors map[string]*roaring.Bitmap
	settings  shrink.Settings
	mu        sync.Mutex
}

func newSession(p *plan.Plan, settings shrink.Settings, store *Store) (*session, error) {
	s := &session{
		plan:      p,
		settings:  settings.WithWindow(p.Window),
		survivors: make(map[string]*roaring.Bitmap, len(p.Variables)),
	}
	conj := make([]event.Conjunction, len(p.Variables))
	for i, v := range p.Variables {
		c, err := event.BindAll(store.Schema(), v.Predicates)
		if err != nil {
			return nil, err
		}
		conj[i] = c
		s.survivors[v.Name] = roaring.New()
	}
	for row := 0; row < store.Len(); row++ {
		ev := store.Row(uint32(row))
		for i, v := range p.Variables {
			if conj[i].Eval(ev) {
				s.survivors[v.Name].Add(uint32(row))
			}
		}
	}
	return s, nil
}

func (s *session) counts() map[string]int {
	s.mu.Lock()
	defer s.mu.Unlock()
	counts := make(map[string]int, len(s.survivors))
	for name, bm := range s.survivors {
		counts[name] = int(bm.GetCardinality())
	}
	return counts
}

// rows returns a snapshot of the surviving rows of variable.
func (s *session) rows(variable string) ([]uint32, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	bm, ok := s.survivors[variable]
	if !ok {
		return nil, errUnknownVariable(variable)
	}
	return bm.ToArray(), nil
}

func (s *session) keep(variable string, rows *roaring.Bitmap) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.survivors[variable] = rows
}

// union returns every row surviving for any variable, each once.
func (s *session) union() *roaring.Bitmap {
	s.mu.Lock()
	defer s.mu.Unlock()
	bms := make([]*roaring.Bitmap, 0, len(s.survivors))
	for _, bm := range s.survivors {
		bms = append(bms, bm)
	}
	return roaring.FastOr(bms...)
}
