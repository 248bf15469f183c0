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

// Package common holds the types shared by every message on the bus.
package common

import (
	"fmt"
)

// KindVersion identifies the kind of a message and its version.
type KindVersion struct {
	Version string
	Kind    string
}

// String returns "kind-version".
func (k KindVersion) String() string {
	return fmt.Sprintf("%s-%s", k.Kind, k.Version)
}

// Error is the payload a listener replies with when it fails.
type Error struct {
	msg  string
	node string
}

// NewError returns an Error formatted like fmt.Sprintf.
func NewError(tpl string, args ...any) *Error {
	return &Error{msg: fmt.Sprintf(tpl, args...)}
}

// NewNodeError returns an Error raised on node.
func NewNodeError(node string, err error) *Error {
	return &Error{msg: err.Error(), node: node}
}

// Error implements error.
func (e *Error) Error() string {
	if e.node == "" {
		return e.msg
	}
	return e.node + ": " + e.msg
}

// Node returns the node that raised the error.
func (e *Error) Node() string {
	return e.node
}
