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

package meter

const scopeSeparator = "_"

// RootScope is the namespace every metric of the process lives under.
var RootScope = NewScope("seqf")

type scope struct {
	labels    LabelPairs
	namespace string
}

// NewScope returns a scope without labels. Scopes are immutable: SubScope and
// ConstLabels return new ones.
func NewScope(name string) Scope {
	return scope{namespace: name}
}

func (s scope) ConstLabels(labels LabelPairs) Scope {
	return scope{namespace: s.namespace, labels: s.labels.Merge(labels)}
}

func (s scope) SubScope(name string) Scope {
	return scope{namespace: s.namespace + scopeSeparator + name, labels: s.labels}
}

func (s scope) Namespace() string {
	return s.namespace
}

func (s scope) Labels() LabelPairs {
	return s.labels
}
