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

package event

import (
	"strings"

	"github.com/pkg/errors"
)

// Op is a comparison operator.
type Op string

// The comparison operators.
const (
	OpEQ Op = "="
	OpNE Op = "!="
	OpLT Op = "<"
	OpLE Op = "<="
	OpGT Op = ">"
	OpGE Op = ">="
)

// ErrInvalidOp is returned for an unknown operator.
var ErrInvalidOp = errors.New("invalid operator")

// ParseOp parses an operator, accepting "==" and "<>" as aliases.
func ParseOp(s string) (Op, error) {
	switch strings.TrimSpace(s) {
	case "=", "==":
		return OpEQ, nil
	case "!=", "<>":
		return OpNE, nil
	case "<":
		return OpLT, nil
	case "<=":
		return OpLE, nil
	case ">":
		return OpGT, nil
	case ">=":
		return OpGE, nil
	}
	return "", errors.Wrapf(ErrInvalidOp, "%q", s)
}

// Holds reports whether a comparison result satisfies the operator.
func (o Op) Holds(c int) bool {
	switch o {
	case OpEQ:
		return c == 0
	case OpNE:
		return c != 0
	case OpLT:
		return c < 0
	case OpLE:
		return c <= 0
	case OpGT:
		return c > 0
	case OpGE:
		return c >= 0
	}
	return false
}

// Predicate compares one column of an event with a constant.
type Predicate struct {
	Column string `json:"column"`
	Op     Op     `json:"op"`
	Value  string `json:"value"`
}

// String implements fmt.Stringer.
func (p Predicate) String() string {
	return p.Column + " " + string(p.Op) + " " + p.Value
}

// BoundPredicate is a predicate resolved against a schema.
type BoundPredicate struct {
	constant Value
	op       Op
	column   int
}

// Bind resolves the column and parses the constant with the column type.
func (p Predicate) Bind(s *Schema) (BoundPredicate, error) {
	i, err := s.Index(p.Column)
	if err != nil {
		return BoundPredicate{}, err
	}
	op, err := ParseOp(string(p.Op))
	if err != nil {
		return BoundPredicate{}, err
	}
	v, err := ParseValue(s.columns[i].Type, p.Value)
	if err != nil {
		return BoundPredicate{}, errors.WithMessagef(err, "predicate %s", p)
	}
	return BoundPredicate{column: i, op: op, constant: v}, nil
}

// Eval reports whether ev satisfies the predicate.
func (b BoundPredicate) Eval(ev Event) bool {
	c, err := ev.Values[b.column].Compare(b.constant)
	return err == nil && b.op.Holds(c)
}

// Conjunction is a list of predicates that must all hold.
type Conjunction []BoundPredicate

// BindAll binds every predicate.
func BindAll(s *Schema, pp []Predicate) (Conjunction, error) {
	c := make(Conjunction, 0, len(pp))
	for _, p := range pp {
		b, err := p.Bind(s)
		if err != nil {
			return nil, err
		}
		c = append(c, b)
	}
	return c, nil
}

// Eval reports whether ev satisfies every predicate. An empty conjunction holds.
func (c Conjunction) Eval(ev Event) bool {
	for _, b := range c {
		if !b.Eval(ev) {
			return false
		}
	}
	return true
}
