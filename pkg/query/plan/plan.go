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

// Package plan models a parsed sequence pattern query: the ordered variables,
// their independent predicates, the dependent predicates linking pairs of
// variables and the window all matched events must fit in.
package plan

import (
	"math"
	"sort"
	"time"

	"github.com/pkg/errors"
	"go.uber.org/multierr"
	"sigs.k8s.io/yaml"

	"github.com/Josehokec/TemporaryCode-sub000/pkg/event"
	"github.com/Josehokec/TemporaryCode-sub000/pkg/interval"
	"github.com/Josehokec/TemporaryCode-sub000/pkg/timestamp"
)

// ErrInvalidPlan is returned when a plan does not validate.
var ErrInvalidPlan = errors.New("invalid plan")

// Position is where a variable sits in the pattern.
type Position uint8

// The positions.
const (
	// Single is the only variable of the pattern.
	Single Position = iota
	Head
	Middle
	Tail
)

// String implements fmt.Stringer.
func (p Position) String() string {
	switch p {
	case Head:
		return "head"
	case Middle:
		return "middle"
	case Tail:
		return "tail"
	}
	return "single"
}

// Interval returns the time span in which the other events of a match of an
// event at ts must lie. The head span stops right before ts+window.
func (p Position) Interval(ts, window int64) interval.Interval {
	switch p {
	case Head:
		return interval.Interval{Start: ts, End: ts + window - 1}
	case Middle:
		return interval.Interval{Start: ts - window, End: ts + window}
	case Tail:
		return interval.Interval{Start: ts - window, End: ts}
	}
	return interval.Interval{Start: ts, End: ts}
}

// HalfWidth reports whether the interval of the position only extends to one side.
func (p Position) HalfWidth() bool {
	return p == Head || p == Tail
}

// Variable is one event of the pattern and its independent predicates.
type Variable struct {
	Name       string            `json:"name"`
	Predicates []event.Predicate `json:"predicates,omitempty"`
}

// Arith is the transform value*Mul + Add applied to an operand. A zero Mul reads as 1.
type Arith struct {
	Mul float64 `json:"mul"`
	Add float64 `json:"add"`
}

// Operand is a column of a variable, optionally transformed.
type Operand struct {
	Arith    *Arith `json:"arith,omitempty"`
	Variable string `json:"variable"`
	Column   string `json:"column"`
}

// Apply transforms v. Ints stay ints when the transform is integral.
func (o Operand) Apply(v event.Value) (event.Value, error) {
	if o.Arith == nil {
		return v, nil
	}
	a := *o.Arith
	if a.Mul == 0 {
		a.Mul = 1
	}
	if a.Mul == 1 && a.Add == 0 {
		return v, nil
	}
	if !v.Numeric() {
		return event.Value{}, errors.Wrapf(event.ErrTypeMismatch, "arithmetic on %s column %s.%s", v.Type(), o.Variable, o.Column)
	}
	if v.Type() == event.TypeInt && isIntegral(a.Mul) && isIntegral(a.Add) {
		return event.Int(v.Int64()*int64(a.Mul) + int64(a.Add)), nil
	}
	return event.Float(v.Float64()*a.Mul + a.Add), nil
}

func isIntegral(f float64) bool {
	return f == math.Trunc(f) && math.Abs(f) < 1<<53
}

// DependentPredicate compares a column of one variable with a column of another.
type DependentPredicate struct {
	Op    event.Op `json:"op"`
	Left  Operand  `json:"left"`
	Right Operand  `json:"right"`
}

// Equality reports whether the predicate is an equality join.
func (d DependentPredicate) Equality() bool {
	return d.Op == event.OpEQ
}

// Involves reports whether the predicate reads variable v.
func (d DependentPredicate) Involves(v string) bool {
	return d.Left.Variable == v || d.Right.Variable == v
}

// Sides returns the operand of v and the operand of the other variable.
func (d DependentPredicate) Sides(v string) (Operand, Operand) {
	if d.Left.Variable == v {
		return d.Left, d.Right
	}
	return d.Right, d.Left
}

// Plan is a query over one event table. Window is expressed in ticks of Unit.
type Plan struct {
	positions map[string]int
	Table     string               `json:"table"`
	Variables []Variable           `json:"variables"`
	Dependent []DependentPredicate `json:"dependent,omitempty"`
	Window    int64                `json:"-"`
	Unit      time.Duration        `json:"-"`
}

// Validate checks the plan against the schema of its table.
func (p *Plan) Validate(s *event.Schema) error {
	var err error
	if p.Window <= 0 {
		err = multierr.Append(err, errors.Errorf("window %d is not positive", p.Window))
	}
	if len(p.Variables) == 0 {
		err = multierr.Append(err, errors.New("no variable"))
	}
	if s != nil && s.Table() != p.Table {
		err = multierr.Append(err, errors.Errorf("plan on %s, schema of %s", p.Table, s.Table()))
	}
	p.positions = make(map[string]int, len(p.Variables))
	for i, v := range p.Variables {
		if _, dup := p.positions[v.Name]; dup || v.Name == "" {
			err = multierr.Append(err, errors.Errorf("variable %q is empty or duplicated", v.Name))
		}
		p.positions[v.Name] = i
		if s != nil {
			if _, bErr := event.BindAll(s, v.Predicates); bErr != nil {
				err = multierr.Append(err, errors.WithMessagef(bErr, "variable %s", v.Name))
			}
		}
	}
	for i, d := range p.Dependent {
		if _, opErr := event.ParseOp(string(d.Op)); opErr != nil {
			err = multierr.Append(err, errors.WithMessagef(opErr, "dependent predicate %d", i))
		}
		if d.Left.Variable == d.Right.Variable {
			err = multierr.Append(err, errors.Errorf("dependent predicate %d links %s with itself", i, d.Left.Variable))
		}
		for _, o := range []Operand{d.Left, d.Right} {
			if _, ok := p.positions[o.Variable]; !ok {
				err = multierr.Append(err, errors.Errorf("dependent predicate %d reads unknown variable %s", i, o.Variable))
				continue
			}
			if s == nil {
				continue
			}
			c, cErr := s.Column(o.Column)
			if cErr != nil {
				err = multierr.Append(err, cErr)
				continue
			}
			if o.Arith != nil && c.Type == event.TypeString {
				err = multierr.Append(err, errors.Errorf("arithmetic on string column %s", o.Column))
			}
		}
	}
	if err != nil {
		return errors.Wrapf(ErrInvalidPlan, "%v", err)
	}
	return nil
}

func (p *Plan) index(name string) int {
	if p.positions != nil {
		if i, ok := p.positions[name]; ok {
			return i
		}
		return -1
	}
	for i, v := range p.Variables {
		if v.Name == name {
			return i
		}
	}
	return -1
}

// Variable returns the named variable.
func (p *Plan) Variable(name string) (Variable, bool) {
	i := p.index(name)
	if i < 0 {
		return Variable{}, false
	}
	return p.Variables[i], true
}

// Position returns where the named variable sits in the pattern.
func (p *Plan) Position(name string) Position {
	i := p.index(name)
	switch {
	case len(p.Variables) == 1:
		return Single
	case i == 0:
		return Head
	case i == len(p.Variables)-1:
		return Tail
	}
	return Middle
}

// Precedes reports whether u comes before v in the pattern.
func (p *Plan) Precedes(u, v string) bool {
	return p.index(u) < p.index(v)
}

// Order returns the variable names in processing order: ascending candidate
// count, head and tail counts doubled, ties in pattern order.
func (p *Plan) Order(counts map[string]int) []string {
	type ranked struct {
		name  string
		score int
		idx   int
	}
	rr := make([]ranked, len(p.Variables))
	for i, v := range p.Variables {
		score := counts[v.Name]
		if p.Position(v.Name).HalfWidth() {
			score *= 2
		}
		rr[i] = ranked{name: v.Name, score: score, idx: i}
	}
	sort.SliceStable(rr, func(i, j int) bool {
		return rr[i].score < rr[j].score
	})
	names := make([]string, len(rr))
	for i, r := range rr {
		names[i] = r.name
	}
	return names
}

// Links returns the dependent predicates joining v with any visited variable.
func (p *Plan) Links(v string, visited map[string]bool) []DependentPredicate {
	var links []DependentPredicate
	for _, d := range p.Dependent {
		if !d.Involves(v) {
			continue
		}
		_, other := d.Sides(v)
		if visited[other.Variable] {
			links = append(links, d)
		}
	}
	return links
}

// EqualityLinks returns the equality predicates among Links.
func (p *Plan) EqualityLinks(v string, visited map[string]bool) []DependentPredicate {
	var eq []DependentPredicate
	for _, d := range p.Links(v, visited) {
		if d.Equality() {
			eq = append(eq, d)
		}
	}
	return eq
}

type planFile struct {
	Table     string               `json:"table"`
	Window    string               `json:"window"`
	Unit      string               `json:"unit"`
	Variables []Variable           `json:"variables"`
	Dependent []DependentPredicate `json:"dependent"`
}

// Load decodes a YAML plan. The window is written like "30m" and converted to
// the timestamp unit of the table, milliseconds unless "unit" says otherwise.
func Load(data []byte) (*Plan, error) {
	var f planFile
	if err := yaml.UnmarshalStrict(data, &f); err != nil {
		return nil, errors.Wrap(err, "decode plan")
	}
	unit := time.Millisecond
	if f.Unit != "" {
		u, err := time.ParseDuration("1" + f.Unit)
		if err != nil {
			return nil, errors.Wrapf(ErrInvalidPlan, "unit %q", f.Unit)
		}
		unit = u
	}
	window, err := timestamp.ParseWindow(f.Window, unit)
	if err != nil {
		return nil, errors.WithMessage(err, "plan window")
	}
	p := &Plan{Table: f.Table, Window: window, Unit: unit, Variables: f.Variables, Dependent: f.Dependent}
	for i := range p.Dependent {
		op, err := event.ParseOp(string(p.Dependent[i].Op))
		if err != nil {
			return nil, errors.WithMessagef(err, "dependent predicate %d", i)
		}
		p.Dependent[i].Op = op
	}
	return p, nil
}
