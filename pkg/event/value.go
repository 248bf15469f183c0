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

// Package event defines the event schema, the fixed width record codec storage
// nodes ship to the matcher, and the predicates evaluated on single events.
package event

import (
	"bytes"
	"cmp"
	"fmt"
	"math"
	"strconv"

	"github.com/pkg/errors"

	"github.com/Josehokec/TemporaryCode-sub000/pkg/convert"
)

// ColumnType is the type of a column.
type ColumnType uint8

// The column types.
const (
	TypeUnknown ColumnType = iota
	TypeInt
	TypeFloat
	TypeString
)

// ErrTypeMismatch is returned when values of different types are combined.
var ErrTypeMismatch = errors.New("type mismatch")

var typeNames = map[ColumnType]string{
	TypeUnknown: "unknown",
	TypeInt:     "int",
	TypeFloat:   "float",
	TypeString:  "string",
}

// String implements fmt.Stringer.
func (t ColumnType) String() string {
	if n, ok := typeNames[t]; ok {
		return n
	}
	return fmt.Sprintf("type(%d)", uint8(t))
}

// ParseColumnType parses the name printed by String.
func ParseColumnType(s string) (ColumnType, error) {
	for t, n := range typeNames {
		if t != TypeUnknown && n == s {
			return t, nil
		}
	}
	return TypeUnknown, errors.Errorf("unknown column type %q", s)
}

// MarshalText implements encoding.TextMarshaler.
func (t ColumnType) MarshalText() ([]byte, error) {
	return []byte(t.String()), nil
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (t *ColumnType) UnmarshalText(text []byte) error {
	ct, err := ParseColumnType(string(text))
	if err != nil {
		return err
	}
	*t = ct
	return nil
}

// Value is a typed column value.
type Value struct {
	s    string
	i    int64
	f    float64
	kind ColumnType
}

// Int returns an int value.
func Int(v int64) Value {
	return Value{kind: TypeInt, i: v}
}

// Float returns a float value.
func Float(v float64) Value {
	return Value{kind: TypeFloat, f: v}
}

// Str returns a string value.
func Str(v string) Value {
	return Value{kind: TypeString, s: v}
}

// Type returns the value type.
func (v Value) Type() ColumnType {
	return v.kind
}

// Int64 returns the int payload.
func (v Value) Int64() int64 {
	return v.i
}

// Float64 returns the numeric payload as a float.
func (v Value) Float64() float64 {
	if v.kind == TypeInt {
		return float64(v.i)
	}
	return v.f
}

// String implements fmt.Stringer.
func (v Value) String() string {
	switch v.kind {
	case TypeInt:
		return strconv.FormatInt(v.i, 10)
	case TypeFloat:
		return strconv.FormatFloat(v.f, 'g', -1, 64)
	case TypeString:
		return v.s
	default:
		return "<nil>"
	}
}

// Numeric reports whether the value is an int or a float.
func (v Value) Numeric() bool {
	return v.kind == TypeInt || v.kind == TypeFloat
}

// Compare orders two values. Ints and floats compare numerically with each other.
func (v Value) Compare(o Value) (int, error) {
	switch {
	case v.kind == TypeInt && o.kind == TypeInt:
		return cmp.Compare(v.i, o.i), nil
	case v.Numeric() && o.Numeric():
		return cmp.Compare(v.Float64(), o.Float64()), nil
	case v.kind == TypeString && o.kind == TypeString:
		return cmp.Compare(v.s, o.s), nil
	}
	return 0, errors.Wrapf(ErrTypeMismatch, "compare %s with %s", v.kind, o.kind)
}

// Key returns the bytes hashed when the value joins two variables. Floats
// holding an integral value hash like the int so that 5 joins 5.0.
func (v Value) Key() []byte {
	switch v.kind {
	case TypeInt:
		return convert.Int64ToBytes(v.i)
	case TypeFloat:
		if v.f == math.Trunc(v.f) && math.Abs(v.f) < 1<<62 {
			return convert.Int64ToBytes(int64(v.f))
		}
		return convert.Float64ToBytes(v.f)
	case TypeString:
		return []byte(v.s)
	}
	return nil
}

// Equal reports whether both values produce the same join key.
func (v Value) Equal(o Value) bool {
	return bytes.Equal(v.Key(), o.Key())
}

// ParseValue parses s as a value of type t.
func ParseValue(t ColumnType, s string) (Value, error) {
	switch t {
	case TypeInt:
		i, err := strconv.ParseInt(s, 10, 64)
		if err != nil {
			return Value{}, errors.Wrapf(err, "parse int %q", s)
		}
		return Int(i), nil
	case TypeFloat:
		f, err := strconv.ParseFloat(s, 64)
		if err != nil {
			return Value{}, errors.Wrapf(err, "parse float %q", s)
		}
		return Float(f), nil
	case TypeString:
		return Str(s), nil
	}
	return Value{}, errors.Errorf("cannot parse %q as %s", s, t)
}

// FromAny converts a decoded YAML or JSON scalar to a value of type t.
func FromAny(t ColumnType, a any) (Value, error) {
	switch x := a.(type) {
	case string:
		return ParseValue(t, x)
	case int:
		return fromNumber(t, float64(x), int64(x))
	case int64:
		return fromNumber(t, float64(x), x)
	case float64:
		return fromNumber(t, x, int64(x))
	case nil:
		return Value{}, errors.Errorf("missing %s value", t)
	}
	return ParseValue(t, fmt.Sprint(a))
}

func fromNumber(t ColumnType, f float64, i int64) (Value, error) {
	switch t {
	case TypeInt:
		if float64(i) != f {
			return Value{}, errors.Wrapf(ErrTypeMismatch, "%v is not an int", f)
		}
		return Int(i), nil
	case TypeFloat:
		return Float(f), nil
	case TypeString:
		return Str(strconv.FormatFloat(f, 'f', -1, 64)), nil
	}
	return Value{}, errors.Errorf("cannot convert %v to %s", f, t)
}
