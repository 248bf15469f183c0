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
	"context"
	"fmt"
	"io"
	"os"
	"sort"
	"strings"

	"github.com/dustin/go-humanize"
	"github.com/pkg/errors"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/spf13/cobra"

	"github.com/Josehokec/TemporaryCode-sub000/banyand/dfilter"
	"github.com/Josehokec/TemporaryCode-sub000/pkg/estimate"
	"github.com/Josehokec/TemporaryCode-sub000/pkg/event"
	"github.com/Josehokec/TemporaryCode-sub000/pkg/logger"
	"github.com/Josehokec/TemporaryCode-sub000/pkg/meter"
	"github.com/Josehokec/TemporaryCode-sub000/pkg/meter/prom"
	"github.com/Josehokec/TemporaryCode-sub000/pkg/query/plan"
	"github.com/Josehokec/TemporaryCode-sub000/pkg/run"
	"github.com/Josehokec/TemporaryCode-sub000/pkg/timestamp"
)

var errNoPlan = errors.New("no plan")

var (
	_ run.Config    = (*runner)(nil)
	_ run.PreRunner = (*runner)(nil)
	_ run.Service   = (*runner)(nil)
)

// runner runs one query and stops the group once it is done.
type runner struct {
	svc         dfilter.Service
	cluster     *cluster
	plan        *plan.Plan
	registry    *prometheus.Registry
	out         io.Writer
	err         error
	cancel      context.CancelFunc
	stopCh      chan struct{}
	doneCh      chan struct{}
	path        string
	metricsPath string
	events      bool
}

func newRunner(svc dfilter.Service, c *cluster, registry *prometheus.Registry) *runner {
	return &runner{
		svc:      svc,
		cluster:  c,
		registry: registry,
		out:      os.Stdout,
		stopCh:   make(chan struct{}),
		doneCh:   make(chan struct{}),
	}
}

func (r *runner) Name() string {
	return "query-runner"
}

func (r *runner) FlagSet() *run.FlagSet {
	fs := run.NewFlagSet("query")
	fs.StringVar(&r.path, "plan", "", "the YAML file of the query plan")
	fs.BoolVar(&r.events, "print-events", true, "print every surviving event")
	fs.StringVar(&r.metricsPath, "metrics-file", "", "write the metrics of the query to this file in the prometheus text format")
	return fs
}

func (r *runner) Validate() error {
	if r.path == "" {
		return errNoPlan
	}
	return nil
}

func (r *runner) PreRun(_ context.Context) error {
	raw, err := os.ReadFile(r.path)
	if err != nil {
		return errors.Wrapf(err, "read plan %s", r.path)
	}
	if r.plan, err = plan.Load(raw); err != nil {
		return err
	}
	return r.plan.Validate(r.cluster.Schema())
}

func (r *runner) Serve() run.StopNotify {
	ctx, cancel := context.WithCancel(context.Background())
	r.cancel = cancel
	go func() {
		defer close(r.stopCh)
		defer close(r.doneCh)
		collector := dfilter.NewRecordCollector(r.cluster.Schema())
		result, err := r.svc.Run(ctx, r.plan, collector)
		if err != nil {
			r.err = err
			return
		}
		if r.err = r.print(result, collector.Events()); r.err != nil {
			return
		}
		if r.metricsPath != "" {
			r.err = errors.Wrap(prometheus.WriteToTextfile(r.metricsPath, r.registry), "write metrics")
		}
	}()
	return r.stopCh
}

func (r *runner) GracefulStop() {
	if r.cancel == nil {
		return
	}
	r.cancel()
	<-r.doneCh
}

func (r *runner) print(result *dfilter.Result, events []event.Event) error {
	w := r.out
	fmt.Fprintf(w, "query %s over %s, window %s\n", result.QueryID, r.plan.Table, timestamp.FormatWindow(r.plan.Window, r.plan.Unit))
	fmt.Fprintf(w, "order: %s\n", strings.Join(result.Order, " -> "))
	for _, round := range result.Rounds {
		fmt.Fprintf(w, "  %-14s %-6s windows=%-10.2f keys=%-8d survivors=%-8d elapsed=%s\n",
			round.State, round.Variable, round.WindowCount, round.KeyCount, round.Survivors, round.Elapsed)
	}
	fmt.Fprintf(w, "%s events survived, %s of records\n", humanize.Comma(int64(result.Count)), humanize.Bytes(uint64(len(result.Records))))
	if !r.events {
		return nil
	}
	sort.Slice(events, func(i, j int) bool {
		return events[i].Timestamp < events[j].Timestamp
	})
	for _, ev := range events {
		values := make([]string, len(ev.Values))
		for i, v := range ev.Values {
			values[i] = v.String()
		}
		if _, err := fmt.Fprintf(w, "%d\t%s\n", ev.Timestamp, strings.Join(values, "\t")); err != nil {
			return err
		}
	}
	return nil
}

func newQueryCmd(runners ...run.Unit) *cobra.Command {
	estimator := estimate.NewEstimator(nil)
	registry := prometheus.NewRegistry()
	provider := prom.NewProvider(meter.RootScope.SubScope("dfilter"), registry)
	c := newCluster(estimator)
	svc := dfilter.NewService(c, dfilter.WithEstimator(estimator), dfilter.WithMeter(provider))
	c.settings = svc.Settings()
	r := newRunner(svc, c, registry)

	var units []run.Unit
	units = append(units, runners...)
	units = append(units, c, svc, r)
	queryGroup := run.NewGroup("query")
	queryGroup.Register(units...)

	queryCmd := &cobra.Command{
		Use:   "query",
		Short: "Run a query plan over a dataset spread across in-process storage nodes",
		RunE: func(cmd *cobra.Command, _ []string) error {
			r.out = cmd.OutOrStdout()
			if err := queryGroup.Run(context.Background()); err != nil {
				logger.GetLogger().Error().Err(err).Str("name", queryGroup.Name()).Msg("exit")
				return err
			}
			return r.err
		},
	}
	queryCmd.Flags().AddFlagSet(queryGroup.RegisterFlags().FlagSet)
	return queryCmd
}
