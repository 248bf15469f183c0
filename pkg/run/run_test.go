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

package run

import (
	"context"
	"testing"
	"time"

	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type configUnit struct {
	fs    *FlagSet
	value string
	err   error
}

func newConfigUnit(err error) *configUnit {
	c := &configUnit{fs: NewFlagSet("unit"), err: err}
	c.fs.StringVar(&c.value, "unit-value", "default", "")
	return c
}

func (c *configUnit) Name() string { return "unit" }

func (c *configUnit) FlagSet() *FlagSet { return c.fs }

func (c *configUnit) Validate() error { return c.err }

func (c *configUnit) PreRun(context.Context) error {
	c.value += "-prerun"
	return nil
}

func TestGroupRun(t *testing.T) {
	g := NewGroup("run-test")
	cu := newConfigUnit(nil)
	tester := NewTester("tester")
	assert.Equal(t, []bool{true, true}, g.Register(cu, tester))
	require.NoError(t, g.RegisterFlags().Parse([]string{"--unit-value=flag", "--config-path", t.TempDir()}))

	done := make(chan error, 1)
	go func() {
		done <- g.Run(context.Background())
	}()
	select {
	case <-tester.Started():
	case <-time.After(5 * time.Second):
		t.Fatal("tester is not served")
	}
	g.WaitTillReady()
	assert.Equal(t, "flag-prerun", cu.value)
	tester.Stop()
	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(5 * time.Second):
		t.Fatal("group did not stop")
	}
	assert.Contains(t, g.ListUnits(), "tester")
}

func TestGroupValidateErrors(t *testing.T) {
	errA, errB := errors.New("a"), errors.New("b")
	g := NewGroup("run-test")
	g.Register(newConfigUnit(errA), newConfigUnit(errB))
	require.NoError(t, g.RegisterFlags().Parse([]string{"--config-path", t.TempDir()}))
	_, err := g.RunConfig()
	require.Error(t, err)
	assert.ErrorIs(t, err, errA)
	assert.ErrorIs(t, err, errB)
}
