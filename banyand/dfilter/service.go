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
	"time"

	"github.com/pkg/errors"
	"go.uber.org/multierr"

	"github.com/Josehokec/TemporaryCode-sub000/pkg/filter"
	"github.com/Josehokec/TemporaryCode-sub000/pkg/filter/shrink"
	"github.com/Josehokec/TemporaryCode-sub000/pkg/query/plan"
	"github.com/Josehokec/TemporaryCode-sub000/pkg/run"
	"github.com/Josehokec/TemporaryCode-sub000/pkg/timestamp"
)

var errNotReady = errors.New("filter service is not ready")

// Service runs queries with the settings given on the command line.
type Service interface {
	run.Config
	run.PreRunner
	// Settings returns the filter encoding shared with the storage nodes. It is
	// complete once Validate succeeds.
	Settings() *shrink.Settings
	Run(ctx context.Context, p *plan.Plan, m Matcher) (*Result, error)
}

var _ Service = (*service)(nil)

type service struct {
	orchestrator *Orchestrator
	settings     *shrink.Settings
	mode         string
	layout       string
	window       string
	registry     NodeRegistry
	opts         []Option
	loadFactor   float64
	bloomFPR     float64
}

// NewService returns a service querying the nodes of registry, read once at
// PreRun. opts are applied after the options derived from the flags.
func NewService(registry NodeRegistry, opts ...Option) Service {
	return &service{
		registry: registry,
		opts:     opts,
		settings: &shrink.Settings{},
	}
}

func (s *service) Name() string {
	return "dfilter"
}

func (s *service) FlagSet() *run.FlagSet {
	fs := run.NewFlagSet("dfilter")
	fs.StringVar(&s.mode, "filter-mode", string(shrink.ModeUltra), "the filter encoding: ultra or basic")
	fs.StringVar(&s.layout, "filter-layout", filter.Layout12x10x10.String(), "the fingerprint/interval/hit tag layout of the basic filter")
	fs.Float64Var(&s.loadFactor, "target-load-factor", shrink.DefaultLoadFactor, "the occupancy a filter is sized for")
	fs.Float64Var(&s.bloomFPR, "bloom-fpr", DefaultBloomFPR, "the false positive rate of join Bloom filters")
	fs.StringVar(&s.window, "window", "", "overrides the window of every plan, e.g. 30m")
	return fs
}

func (s *service) Validate() (err error) {
	mode, mErr := shrink.ParseMode(s.mode)
	err = multierr.Append(err, mErr)
	layout, lErr := filter.ParseLayout(s.layout)
	err = multierr.Append(err, lErr)
	if s.loadFactor <= 0 || s.loadFactor > 1 {
		err = multierr.Append(err, errors.Errorf("target load factor %v is out of (0, 1]", s.loadFactor))
	}
	if s.bloomFPR <= 0 || s.bloomFPR >= 1 {
		err = multierr.Append(err, errors.Errorf("bloom fpr %v is out of (0, 1)", s.bloomFPR))
	}
	if s.window != "" {
		_, wErr := timestamp.ParseWindow(s.window, time.Nanosecond)
		err = multierr.Append(err, wErr)
	}
	if err != nil {
		return err
	}
	if mode == shrink.ModeBasic && layout.HitBits == 0 {
		return errors.Wrapf(filter.ErrInvalidLayout, "%s keeps no hit marker", layout)
	}
	*s.settings = shrink.Settings{Mode: mode, Layout: layout, LoadFactor: s.loadFactor}
	return nil
}

func (s *service) Settings() *shrink.Settings {
	return s.settings
}

func (s *service) PreRun(_ context.Context) error {
	opts := append([]Option{WithSettings(*s.settings), WithBloomFPR(s.bloomFPR)}, s.opts...)
	nodes := s.registry.Nodes()
	if len(nodes) == 0 {
		return ErrNoNode
	}
	s.orchestrator = New(nodes, opts...)
	return nil
}

func (s *service) Run(ctx context.Context, p *plan.Plan, m Matcher) (*Result, error) {
	if s.orchestrator == nil {
		return nil, errNotReady
	}
	if s.window != "" {
		unit := p.Unit
		if unit <= 0 {
			unit = time.Millisecond
		}
		w, err := timestamp.ParseWindow(s.window, unit)
		if err != nil {
			return nil, err
		}
		cp := *p
		cp.Window = w
		p = &cp
	}
	return s.orchestrator.Run(ctx, p, m)
}
