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

// Package cmdsetup wires the command line of the filter.
package cmdsetup

import (
	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"

	"github.com/Josehokec/TemporaryCode-sub000/pkg/cgroups"
	"github.com/Josehokec/TemporaryCode-sub000/pkg/config"
	"github.com/Josehokec/TemporaryCode-sub000/pkg/logger"
	"github.com/Josehokec/TemporaryCode-sub000/pkg/run"
)

// NewRoot returns a root command.
func NewRoot(runners ...run.Unit) *cobra.Command {
	logging := logger.Logging{}
	cmd := &cobra.Command{
		Use:               "seqfilter",
		DisableAutoGenTag: true,
		Short:             "seqfilter pre-filters the events of sequence pattern queries",
		Long: `
seqfilter ships a windowed membership filter to every storage node holding a slice of an event
table and shrinks it variable by variable, so that only the events able to take part in a match
of the pattern leave the nodes.
`,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) (err error) {
			if err = config.Load("logging", cmd.Flags()); err != nil {
				return err
			}
			if err = logger.Init(logging); err != nil {
				return err
			}
			l := logger.GetLogger("bootstrap")
			e := l.Info().Int("cpus", cgroups.AdjustMaxProcs(l))
			if m, memErr := cgroups.Memory(); memErr != nil {
				l.Warn().Err(memErr).Msg("unknown host memory")
			} else {
				e = e.Str("memory", humanize.IBytes(m.Total)).Str("available", humanize.IBytes(m.Available))
			}
			e.Msg("started")
			return nil
		},
	}
	cmd.PersistentFlags().StringVar(&logging.Env, "logging-env", "prod", "the logging")
	cmd.PersistentFlags().StringVar(&logging.Level, "logging-level", "info", "the root level of logging")
	cmd.PersistentFlags().StringSliceVar(&logging.Modules, "logging-modules", nil, "the specific module")
	cmd.PersistentFlags().StringSliceVar(&logging.Levels, "logging-levels", nil, "the level logging of logging")
	cmd.AddCommand(newQueryCmd(runners...))
	return cmd
}
