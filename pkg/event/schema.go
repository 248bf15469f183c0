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
	"github.com/pkg/errors"
	"go.uber.org/multierr"

	"github.com/Josehokec/TemporaryCode-sub000/pkg/convert"
)

const (
	timestampSize = 8
	numberSize    = 8
)

var (
	// ErrInvalidSchema is returned by NewSchema.
	ErrInvalidSchema = errors.New("invalid schema")
	// ErrMalformedRecord is returned when a record buffer does not match the schema.
	ErrMalformedRecord = errors.New("malformed record")
	// ErrUnknownColumn is returned when a name does not belong to the schema.
	ErrUnknownColumn = errors.New("unknown column")
)

// Column describes one attribute of an event. Size is the byte width of string columns.
type Column struct {
	Name string     `json:"name"`
	Type ColumnType `json:"type"`
	Size int        `json:"size,omitempty"`
}

// Event is one row: its timestamp and a value per schema column.
type Event struct {
	Values    []Value
	Timestamp int64
}

// Schema is the column list of an event table. Records are the timestamp
// followed by each column at its fixed width.
type Schema struct {
	index   map[string]int
	table   string
	columns []Column
	offsets []int
	size    int
}

// NewSchema validates the columns and computes the record layout.
func NewSchema(table string, columns []Column) (*Schema, error) {
	var err error
	if table == "" {
		err = multierr.Append(err, errors.New("table name is empty"))
	}
	s := &Schema{table: table, columns: columns, index: make(map[string]int, len(columns))}
	offset := timestampSize
	for i, c := range columns {
		if c.Name == "" {
			err = multierr.Append(err, errors.Errorf("column %d has no name", i))
		}
		if _, dup := s.index[c.Name]; dup {
			err = multierr.Append(err, errors.Errorf("duplicated column %s", c.Name))
		}
		s.index[c.Name] = i
		s.offsets = append(s.offsets, offset)
		switch c.Type {
		case TypeInt, TypeFloat:
			offset += numberSize
		case TypeString:
			if c.Size <= 0 {
				err = multierr.Append(err, errors.Errorf("string column %s needs a positive size", c.Name))
			}
			offset += c.Size
		default:
			err = multierr.Append(err, errors.Errorf("column %s has type %s", c.Name, c.Type))
		}
	}
	if err != nil {
		return nil, errors.Wrapf(ErrInvalidSchema, "%s: %v", table, err)
	}
	s.size = offset
	return s, nil
}

// Table returns the table name.
func (s *Schema) Table() string {
	return s.table
}

// Columns returns the columns.
func (s *Schema) Columns() []Column {
	return s.columns
}

// RecordSize returns the byte width of one record.
func (s *Schema) RecordSize() int {
	return s.size
}

// Index returns the position of the named column.
func (s *Schema) Index(name string) (int, error) {
	i, ok := s.index[name]
	if !ok {
		return -1, errors.Wrapf(ErrUnknownColumn, "%s.%s", s.table, name)
	}
	return i, nil
}

// Column returns the named column.
func (s *Schema) Column(name string) (Column, error) {
	i, err := s.Index(name)
	if err != nil {
		return Column{}, err
	}
	return s.columns[i], nil
}

// Append encodes ev as one record appended to dst.
func (s *Schema) Append(dst []byte, ev Event) ([]byte, error) {
	if len(ev.Values) != len(s.columns) {
		return dst, errors.Wrapf(ErrMalformedRecord, "%d values for %d columns", len(ev.Values), len(s.columns))
	}
	dst = convert.AppendInt64(dst, ev.Timestamp)
	for i, c := range s.columns {
		v := ev.Values[i]
		if v.Type() != c.Type {
			return dst, errors.Wrapf(ErrTypeMismatch, "column %s is %s, got %s", c.Name, c.Type, v.Type())
		}
		switch c.Type {
		case TypeInt:
			dst = convert.AppendInt64(dst, v.i)
		case TypeFloat:
			dst = append(dst, convert.Float64ToBytes(v.f)...)
		case TypeString:
			if len(v.s) > c.Size {
				return dst, errors.Wrapf(ErrMalformedRecord, "column %s holds %d bytes, %q is longer", c.Name, c.Size, v.s)
			}
			dst = append(dst, v.s...)
			dst = append(dst, make([]byte, c.Size-len(v.s))...)
		}
	}
	return dst, nil
}

// Decode decodes a single record.
func (s *Schema) Decode(rec []byte) (Event, error) {
	if len(rec) != s.size {
		return Event{}, errors.Wrapf(ErrMalformedRecord, "record of %d bytes, want %d", len(rec), s.size)
	}
	ev := Event{Timestamp: convert.BytesToInt64(rec), Values: make([]Value, len(s.columns))}
	for i, c := range s.columns {
		field := rec[s.offsets[i]:]
		switch c.Type {
		case TypeInt:
			ev.Values[i] = Int(convert.BytesToInt64(field))
		case TypeFloat:
			ev.Values[i] = Float(convert.BytesToFloat64(field))
		case TypeString:
			raw := field[:c.Size]
			n := len(raw)
			for n > 0 && raw[n-1] == 0 {
				n--
			}
			ev.Values[i] = Str(string(raw[:n]))
		}
	}
	return ev, nil
}

// DecodeAll splits a concatenation of records and decodes each of them.
func (s *Schema) DecodeAll(buf []byte) ([]Event, error) {
	if len(buf)%s.size != 0 {
		return nil, errors.Wrapf(ErrMalformedRecord, "%d bytes are not a multiple of the record size %d", len(buf), s.size)
	}
	events := make([]Event, 0, len(buf)/s.size)
	for off := 0; off < len(buf); off += s.size {
		ev, err := s.Decode(buf[off : off+s.size])
		if err != nil {
			return nil, err
		}
		events = append(events, ev)
	}
	return events, nil
}

// Value returns the named column of ev.
func (s *Schema) Value(ev Event, column string) (Value, error) {
	i, err := s.Index(column)
	if err != nil {
		return Value{}, err
	}
	return ev.Values[i], nil
}
