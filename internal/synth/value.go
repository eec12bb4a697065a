// Package synth expands models into example value trees.
package synth

import (
	"bytes"
	"encoding/json"
	"errors"
	"io"
	"iter"
	"strconv"
	"strings"

	jsoniter "github.com/json-iterator/go"
	"github.com/speakeasy-api/openapi/sequencedmap"
)

// Kind tags the variant held by a Value.
type Kind uint8

const (
	KindNull Kind = iota
	KindString
	KindNumber
	KindBool
	KindObject
	KindArray
)

func (k Kind) String() string {
	switch k {
	case KindString:
		return "string"
	case KindNumber:
		return "number"
	case KindBool:
		return "bool"
	case KindObject:
		return "object"
	case KindArray:
		return "array"
	default:
		return "null"
	}
}

// Value is an example value: string, number, bool, ordered object or array.
// The zero Value is null.
type Value struct {
	kind    Kind
	str     string
	integer bool
	i       int64
	f       float64
	b       bool
	fields  *sequencedmap.Map[string, Value]
	items   []Value
}

func String(s string) Value      { return Value{kind: KindString, str: s} }
func Int(n int64) Value          { return Value{kind: KindNumber, integer: true, i: n} }
func Float(f float64) Value      { return Value{kind: KindNumber, f: f} }
func Bool(b bool) Value          { return Value{kind: KindBool, b: b} }
func Array(items ...Value) Value { return Value{kind: KindArray, items: items} }

// Object returns an empty object.
func Object() Value {
	return Value{kind: KindObject, fields: sequencedmap.New[string, Value]()}
}

func (v Value) Kind() Kind      { return v.kind }
func (v Value) Str() string     { return v.str }
func (v Value) IsInteger() bool { return v.kind == KindNumber && v.integer }
func (v Value) Bool() bool      { return v.b }
func (v Value) Items() []Value  { return v.items }

// Number returns a numeric value as float64.
func (v Value) Number() float64 {
	if v.integer {
		return float64(v.i)
	}
	return v.f
}

// Len is the number of fields or items.
func (v Value) Len() int {
	switch v.kind {
	case KindObject:
		return v.fields.Len()
	case KindArray:
		return len(v.items)
	}
	return 0
}

// Fields iterates an object's fields in order.
func (v Value) Fields() iter.Seq2[string, Value] {
	return v.fields.All()
}

// Field returns the named field of an object.
func (v Value) Field(name string) (Value, bool) {
	return v.fields.Get(name)
}

// Set adds or replaces a field on an object value. Replacing keeps the
// original position.
func (v Value) Set(name string, val Value) {
	if v.kind != KindObject {
		panic("synth: Set on " + v.kind.String())
	}
	if !v.fields.Has(name) {
		v.fields.Set(name, val)
		return
	}
	rebuilt := sequencedmap.New[string, Value]()
	for k, cur := range v.fields.All() {
		if k == name {
			cur = val
		}
		rebuilt.Set(k, cur)
	}
	*v.fields = *rebuilt
}

// Interface converts v to plain Go values: string, int64, float64, bool,
// []any, map[string]any or nil. Field order is lost.
func (v Value) Interface() any {
	switch v.kind {
	case KindString:
		return v.str
	case KindNumber:
		if v.integer {
			return v.i
		}
		return v.f
	case KindBool:
		return v.b
	case KindArray:
		out := make([]any, len(v.items))
		for i, item := range v.items {
			out[i] = item.Interface()
		}
		return out
	case KindObject:
		out := make(map[string]any, v.fields.Len())
		for k, f := range v.fields.All() {
			out[k] = f.Interface()
		}
		return out
	}
	return nil
}

// FormatNumber renders a number the way it is written into artifacts:
// integers without a fraction, decimals with at least one fractional digit.
func (v Value) FormatNumber() string {
	if v.integer {
		return strconv.FormatInt(v.i, 10)
	}
	s := strconv.FormatFloat(v.f, 'f', -1, 64)
	if !strings.Contains(s, ".") {
		s += ".0"
	}
	return s
}

var codec = jsoniter.ConfigCompatibleWithStandardLibrary

// MarshalJSON renders v as compact JSON keeping field order.
func (v Value) MarshalJSON() ([]byte, error) {
	stream := codec.BorrowStream(nil)
	defer codec.ReturnStream(stream)
	v.write(stream)
	if stream.Error != nil {
		return nil, stream.Error
	}
	return append([]byte(nil), stream.Buffer()...), nil
}

func (v Value) write(s *jsoniter.Stream) {
	switch v.kind {
	case KindString:
		s.WriteString(v.str)
	case KindNumber:
		s.WriteRaw(v.FormatNumber())
	case KindBool:
		s.WriteBool(v.b)
	case KindObject:
		s.WriteObjectStart()
		first := true
		for k, f := range v.fields.All() {
			if !first {
				s.WriteMore()
			}
			first = false
			s.WriteObjectField(k)
			f.write(s)
		}
		s.WriteObjectEnd()
	case KindArray:
		s.WriteArrayStart()
		for i, item := range v.items {
			if i > 0 {
				s.WriteMore()
			}
			item.write(s)
		}
		s.WriteArrayEnd()
	default:
		s.WriteNil()
	}
}

// Indent renders v as JSON indented with the given unit.
func (v Value) Indent(indent string) (string, error) {
	raw, err := v.MarshalJSON()
	if err != nil {
		return "", err
	}
	var buf bytes.Buffer
	if err := json.Indent(&buf, raw, "", indent); err != nil {
		return "", err
	}
	return buf.String(), nil
}

// ParseJSON parses a JSON text into a Value, keeping object key order.
func ParseJSON(text string) (Value, error) {
	if !codec.Valid([]byte(text)) {
		return Value{}, errors.New("invalid JSON")
	}
	it := jsoniter.ParseString(codec, text)
	v := readValue(it)
	if it.Error != nil && !errors.Is(it.Error, io.EOF) {
		return Value{}, it.Error
	}
	return v, nil
}

func readValue(it *jsoniter.Iterator) Value {
	switch it.WhatIsNext() {
	case jsoniter.StringValue:
		return String(it.ReadString())
	case jsoniter.NumberValue:
		num := it.ReadNumber()
		if n, err := num.Int64(); err == nil {
			return Int(n)
		}
		f, err := num.Float64()
		if err != nil {
			it.ReportError("read number", err.Error())
		}
		return Float(f)
	case jsoniter.BoolValue:
		return Bool(it.ReadBool())
	case jsoniter.NilValue:
		it.ReadNil()
		return Value{}
	case jsoniter.ArrayValue:
		arr := Array()
		it.ReadArrayCB(func(it *jsoniter.Iterator) bool {
			arr.items = append(arr.items, readValue(it))
			return it.Error == nil
		})
		return arr
	case jsoniter.ObjectValue:
		obj := Object()
		it.ReadObjectCB(func(it *jsoniter.Iterator, field string) bool {
			obj.Set(field, readValue(it))
			return it.Error == nil
		})
		return obj
	default:
		it.ReportError("read value", "unexpected token")
		return Value{}
	}
}
