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

// Package run implements a lifecycle framework to control modules.
package run

import (
	"context"
	"fmt"
	"os"
	"path"
	"strings"
	"sync"

	"github.com/oklog/run"
	"github.com/pkg/errors"
	"github.com/spf13/pflag"
	"go.uber.org/multierr"

	"github.com/Josehokec/TemporaryCode-sub000/pkg/config"
	"github.com/Josehokec/TemporaryCode-sub000/pkg/logger"
)

// FlagSet holds a pflag.FlagSet as well as an exported Name variable for
// allowing improved help usage information.
type FlagSet struct {
	*pflag.FlagSet
	Name string
}

// NewFlagSet returns a new FlagSet for usage in Config objects.
func NewFlagSet(name string) *FlagSet {
	return &FlagSet{
		FlagSet: pflag.NewFlagSet(name, pflag.ContinueOnError),
		Name:    name,
	}
}

// Unit is the default interface an object needs to implement for it to be able
// to register with a Group.
// Name should return a short but good identifier of the Unit.
type Unit interface {
	Name() string
}

// Config interface should be implemented by Group Unit objects that manage
// their own configuration through the use of flags.
// If a Unit's Validate returns an error it will stop the Group immediately.
type Config interface {
	Unit
	// FlagSet returns an object's FlagSet
	FlagSet() *FlagSet
	// Validate checks an object's stored values
	Validate() error
}

// PreRunner interface should be implemented by Group Unit objects that need
// a pre run stage before starting the Group Services.
// If a Unit's PreRun returns an error it will stop the Group immediately.
type PreRunner interface {
	Unit
	PreRun(context.Context) error
}

// StopNotify sends the stopped event to the running system.
type StopNotify <-chan struct{}

// Service interface should be implemented by Group Unit objects that need
// to run a blocking service until an error occurs or a shutdown request is
// made.
// Serve returns a channel closed once the service stops on its own.
// GracefulStop must gracefully stop the service and close that channel.
type Service interface {
	Unit
	// Serve starts the service.
	Serve() StopNotify
	// GracefulStop shuts down and cleans up the service.
	GracefulStop()
}

// Group builds on https://github.com/oklog/run to provide a deterministic way
// to manage service lifecycles. The first service to stop stops the whole group.
type Group struct {
	f            *FlagSet
	readyCh      chan struct{}
	log          *logger.Logger
	name         string
	configPaths  []string
	r            run.Group
	c            []Config
	p            []PreRunner
	s            []Service
	showRunGroup bool
	configured   bool
}

// NewGroup return a Group with input name.
func NewGroup(name string) Group {
	return Group{
		name:    name,
		readyCh: make(chan struct{}),
	}
}

// Name shows the name of the group.
func (g Group) Name() string {
	return g.name
}

// Register will inspect the provided objects implementing the Unit interface to
// see if it needs to register the objects for any of the Group bootstrap
// phases. If a Unit doesn't satisfy any of the bootstrap phases it is ignored
// by Group.
// The returned array of booleans signals for each provided Unit whether it
// registered for at least one phase.
func (g *Group) Register(units ...Unit) []bool {
	g.log = logger.GetLogger(g.name)
	hasRegistered := make([]bool, len(units))
	for idx := range units {
		if !g.configured {
			// if RunConfig has been called we can no longer register Config
			// phases of Units
			if c, ok := units[idx].(Config); ok {
				g.c = append(g.c, c)
				hasRegistered[idx] = true
			}
		}
		if p, ok := units[idx].(PreRunner); ok {
			g.p = append(g.p, p)
			hasRegistered[idx] = true
		}
		if s, ok := units[idx].(Service); ok {
			g.s = append(g.s, s)
			hasRegistered[idx] = true
		}
	}
	return hasRegistered
}

// RegisterFlags returns FlagSet contains Flags in all modules.
func (g *Group) RegisterFlags() *FlagSet {
	g.f = NewFlagSet(g.name)
	g.f.SortFlags = false // keep order of flag registration
	g.f.Usage = func() {
		fmt.Printf("Flags:\n")
		g.f.PrintDefaults()
	}

	gFS := NewFlagSet("Common Service options")
	gFS.SortFlags = false
	gFS.StringVarP(&g.name, "name", "n", g.name, `name of this service`)
	gFS.StringSliceVar(&g.configPaths, "config-path", nil, "directories searched for a config file named after the service")
	gFS.BoolVar(&g.showRunGroup, "show-rungroup-units", false, "show rungroup units")
	g.f.AddFlagSet(gFS.FlagSet)

	for idx := range g.c {
		fs := g.c[idx].FlagSet()
		if fs == nil {
			g.log.Debug().Str("name", g.c[idx].Name()).Msg("config object did not return a flagset")
			continue
		}
		fs.VisitAll(func(f *pflag.Flag) {
			if g.f.Lookup(f.Name) != nil {
				g.log.Warn().Str("name", f.Name).Uint32("registered", uint32(idx+1)).Msg("ignoring duplicate flag")
				return
			}
			g.f.AddFlag(f)
		})
	}
	return g.f
}

// RunConfig loads the flags from the environment and the config file, then
// validates every Config unit. Validation errors of all units are reported together.
func (g *Group) RunConfig() (interrupted bool, err error) {
	g.log = logger.GetLogger(g.name)
	g.configured = true

	if g.name == "" {
		g.name = path.Base(os.Args[0])
	}
	if g.f == nil {
		g.RegisterFlags()
	}

	defer func() {
		if err != nil {
			g.log.Error().Err(err).Msg("unexpected exit")
		}
	}()

	if err = config.Load(g.f.Name, g.f.FlagSet, g.configPaths...); err != nil {
		return false, errors.Wrapf(err, "%s fails to load config", g.f.Name)
	}

	if g.showRunGroup {
		fmt.Println(g.ListUnits())
		return true, nil
	}

	for idx := range g.c {
		g.log.Debug().Str("name", g.c[idx].Name()).Uint32("ran", uint32(idx+1)).Uint32("total", uint32(len(g.c))).Msg("validate config")
		if vErr := g.c[idx].Validate(); vErr != nil {
			err = multierr.Append(err, errors.WithMessage(vErr, g.c[idx].Name()))
		}
	}
	if err != nil {
		return false, err
	}
	g.log.Info().Msg("configured")
	return false, nil
}

// Run will execute all phases of all registered Units and block until the
// first service stops.
//
//	Config phase (serially, in order of Unit registration)
//	  - FlagSet()        Get & register all FlagSets from Config Units.
//	  - Flag Parsing     From the environment and the config file
//	  - Validate()       Validate Config Units.
//
//	PreRunner phase (serially, in order of Unit registration)
//	  - PreRun(ctx)      Exit on first error.
//
//	Service phase (concurrently)
//	  - Serve()          Execute all Service Units.
//	  - Wait             Block until one of the services stops.
//	  - GracefulStop()   Call interrupt handlers of all Service Units.
func (g *Group) Run(ctx context.Context) (err error) {
	if !g.configured {
		if interrupted, errRun := g.RunConfig(); interrupted || errRun != nil {
			return errRun
		}
	}
	if ctx == nil {
		ctx = context.Background()
	}
	ctx = logger.WithLogger(ctx, g.log)
	for idx := range g.p {
		g.log.Debug().Uint32("ran", uint32(idx+1)).Uint32("total", uint32(len(g.p))).Str("name", g.p[idx].Name()).Msg("pre-run")
		if err = g.p[idx].PreRun(ctx); err != nil {
			return errors.WithMessagef(err, "pre-run %s", g.p[idx].Name())
		}
	}

	swg := &sync.WaitGroup{}
	swg.Add(len(g.s))
	go func() {
		swg.Wait()
		close(g.readyCh)
	}()
	for idx := range g.s {
		s := g.s[idx]
		g.log.Debug().Uint32("total", uint32(len(g.s))).Uint32("ran", uint32(idx+1)).Str("name", s.Name()).Msg("serve")
		g.r.Add(func() error {
			notify := s.Serve()
			swg.Done()
			<-notify
			return nil
		}, func(_ error) {
			g.log.Debug().Str("name", s.Name()).Msg("stop")
			s.GracefulStop()
		})
	}
	if len(g.s) == 0 {
		return nil
	}
	return g.r.Run()
}

// ListUnits returns a list of all Group phases and the Units registered to each of them.
func (g Group) ListUnits() string {
	var b strings.Builder
	list := func(phase string, names []string) {
		if len(names) == 0 {
			return
		}
		b.WriteString("\n- " + phase + ": " + strings.Join(names, " "))
	}
	names := func(n int, at func(int) Unit) []string {
		out := make([]string, 0, n)
		for i := 0; i < n; i++ {
			out = append(out, at(i).Name())
		}
		return out
	}
	list("config", names(len(g.c), func(i int) Unit { return g.c[i] }))
	list("prerun", names(len(g.p), func(i int) Unit { return g.p[i] }))
	list("serve ", names(len(g.s), func(i int) Unit { return g.s[i] }))
	t := "cli"
	if len(g.s) > 0 {
		t = "svc"
	}
	return fmt.Sprintf("Group: %s [%s]%s", g.name, t, b.String())
}

// WaitTillReady blocks the goroutine till all services are serving.
func (g *Group) WaitTillReady() {
	<-g.readyCh
}
