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

package cgroups

import (
	"github.com/pkg/errors"
	"github.com/shirou/gopsutil/v3/mem"
)

// MemoryStat is a snapshot of the host memory.
type MemoryStat struct {
	Total       uint64
	Available   uint64
	UsedPercent float64
}

// Memory reads the memory of the host.
func Memory() (MemoryStat, error) {
	vm, err := mem.VirtualMemory()
	if err != nil {
		return MemoryStat{}, errors.Wrap(err, "read host memory")
	}
	return MemoryStat{Total: vm.Total, Available: vm.Available, UsedPercent: vm.UsedPercent}, nil
}
