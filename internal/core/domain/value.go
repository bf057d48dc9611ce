package domain

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"math"
	"strconv"
	"strings"
)

// Kind identifies the variant held by a Value.
type Kind uint8

const (
	// KindNull is an absent or JSON null value.
	KindNull Kind = iota
	// KindString is a text scalar.
	KindString
	// KindInt is an integer scalar.
	KindInt
	// KindFloat is a floating point scalar.
	KindFloat
	// KindBool is a boolean scalar.
	KindBool
	// KindList is an ordered sequence of values.
	KindList
	// KindObject is an ordered set of keyed values.
	KindObject
)

// String returns the kind name.
func (k Kind) String() string {
	switch k {
	case KindNull:
		return "null"
	case KindString:
		return "string"
	case KindInt:
		return "int"
	case KindFloat:
		return "float"
	case KindBool:
		return "bool"
	case KindList:
		return "list"
	case KindObject:
		return "object"
	default:
		return "unknown"
	}
}

// Field is one key of an Object value.
type Field struct {
	Key   string
	Value Value
}

// Value is a tagged union over the shapes an API response can take:
// scalars, lists and objects. Objects keep the order their keys were
// decoded in, so anything derived from them (column names) is deterministic.
//
// The zero Value is Null.
type Value struct {
	kind    Kind
	str     string
	num     int64
	flt     float64
	boolean bool
	items   []Value
	fields  []Field
}

// Null returns the null value.
func Null() Value { return Value{} }

// String returns a string value.
func String(s string) Value { return Value{kind: KindString, str: s} }

// Int returns an integer value.
func Int(i int64) Value { return Value{kind: KindInt, num: i} }

// Float returns a float value.
func Float(f float64) Value { return Value{kind: KindFloat, flt: f} }

// Bool returns a boolean value.
func Bool(b bool) Value { return Value{kind: KindBool, boolean: b} }

// List returns a list value holding items.
func List(items ...Value) Value { return Value{kind: KindList, items: items} }

// Object returns an object value holding fields in the given order.
// Later duplicates of a key replace the earlier value but keep its position.
func Object(fields ...Field) Value {
	b := newObjectBuilder(len(fields))
	for _, f := range fields {
		b.set(f.Key, f.Value)
	}
	return b.value()
}

// objectBuilder appends fields in order. A repeated key replaces the
// earlier value and keeps its position, as With does.
type objectBuilder struct {
	fields []Field
	index  map[string]int
}

func newObjectBuilder(size int) *objectBuilder {
	return &objectBuilder{
		fields: make([]Field, 0, size),
		index:  make(map[string]int, size),
	}
}

func (b *objectBuilder) set(key string, val Value) {
	if i, ok := b.index[key]; ok {
		b.fields[i].Value = val
		return
	}
	b.index[key] = len(b.fields)
	b.fields = append(b.fields, Field{Key: key, Value: val})
}

func (b *objectBuilder) value() Value {
	return Value{kind: KindObject, fields: b.fields}
}

// F is shorthand for building a Field.
func F(key string, v Value) Field { return Field{Key: key, Value: v} }

// Kind returns the variant held by v.
func (v Value) Kind() Kind { return v.kind }

// IsNull reports whether v is null.
func (v Value) IsNull() bool { return v.kind == KindNull }

// IsScalar reports whether v is a string, number or boolean.
func (v Value) IsScalar() bool {
	switch v.kind {
	case KindString, KindInt, KindFloat, KindBool:
		return true
	default:
		return false
	}
}

// IsNumeric reports whether v is an integer or float.
func (v Value) IsNumeric() bool { return v.kind == KindInt || v.kind == KindFloat }

// Str returns the string payload and whether v is a string.
func (v Value) Str() (string, bool) { return v.str, v.kind == KindString }

// IntValue returns the integer payload and whether v is an integer.
func (v Value) IntValue() (int64, bool) { return v.num, v.kind == KindInt }

// FloatValue returns the float payload and whether v is a float.
func (v Value) FloatValue() (float64, bool) { return v.flt, v.kind == KindFloat }

// BoolValue returns the boolean payload and whether v is a boolean.
func (v Value) BoolValue() (bool, bool) { return v.boolean, v.kind == KindBool }

// Items returns the elements of a list, or nil.
func (v Value) Items() []Value {
	if v.kind != KindList {
		return nil
	}
	return v.items
}

// Fields returns the fields of an object in order, or nil.
func (v Value) Fields() []Field {
	if v.kind != KindObject {
		return nil
	}
	return v.fields
}

// Get returns the value stored under key in an object.
func (v Value) Get(key string) (Value, bool) {
	if v.kind != KindObject {
		return Null(), false
	}
	for _, f := range v.fields {
		if f.Key == key {
			return f.Value, true
		}
	}
	return Null(), false
}

// Has reports whether an object carries key.
func (v Value) Has(key string) bool {
	_, ok := v.Get(key)
	return ok
}

// With returns a copy of the object with key set to val.
// Non-object values are treated as an empty object.
func (v Value) With(key string, val Value) Value {
	out := Value{kind: KindObject}
	if v.kind == KindObject {
		out.fields = make([]Field, len(v.fields), len(v.fields)+1)
		copy(out.fields, v.fields)
	}
	for i := range out.fields {
		if out.fields[i].Key == key {
			out.fields[i].Value = val
			return out
		}
	}
	out.fields = append(out.fields, Field{Key: key, Value: val})
	return out
}

// Float64 converts numeric values, and strings that parse as numbers, to float64.
func (v Value) Float64() (float64, bool) {
	switch v.kind {
	case KindInt:
		return float64(v.num), true
	case KindFloat:
		return v.flt, true
	case KindBool:
		if v.boolean {
			return 1, true
		}
		return 0, true
	case KindString:
		f, err := strconv.ParseFloat(strings.ReplaceAll(strings.TrimSpace(v.str), ",", ""), 64)
		if err != nil {
			return 0, false
		}
		return f, true
	default:
		return 0, false
	}
}

// Text renders v as a cell string. Containers are rendered as compact JSON.
func (v Value) Text() string {
	switch v.kind {
	case KindNull:
		return ""
	case KindString:
		return v.str
	case KindInt:
		return strconv.FormatInt(v.num, 10)
	case KindFloat:
		return strconv.FormatFloat(v.flt, 'f', -1, 64)
	case KindBool:
		return strconv.FormatBool(v.boolean)
	default:
		b, err := json.Marshal(v)
		if err != nil {
			return ""
		}
		return string(b)
	}
}

// String implements fmt.Stringer.
func (v Value) String() string { return v.Text() }

// Native converts v to the plain Go value a spreadsheet or SQL driver expects.
func (v Value) Native() any {
	switch v.kind {
	case KindNull:
		return nil
	case KindString:
		return v.str
	case KindInt:
		return v.num
	case KindFloat:
		return v.flt
	case KindBool:
		return v.boolean
	default:
		return v.Text()
	}
}

// Equal reports whether two values hold the same variant and payload.
func (v Value) Equal(o Value) bool {
	if v.kind != o.kind {
		return false
	}
	switch v.kind {
	case KindNull:
		return true
	case KindString:
		return v.str == o.str
	case KindInt:
		return v.num == o.num
	case KindFloat:
		return v.flt == o.flt || (math.IsNaN(v.flt) && math.IsNaN(o.flt))
	case KindBool:
		return v.boolean == o.boolean
	case KindList:
		if len(v.items) != len(o.items) {
			return false
		}
		for i := range v.items {
			if !v.items[i].Equal(o.items[i]) {
				return false
			}
		}
		return true
	case KindObject:
		if len(v.fields) != len(o.fields) {
			return false
		}
		for i := range v.fields {
			if v.fields[i].Key != o.fields[i].Key || !v.fields[i].Value.Equal(o.fields[i].Value) {
				return false
			}
		}
		return true
	}
	return false
}

// MarshalJSON encodes v keeping object key order.
func (v Value) MarshalJSON() ([]byte, error) {
	var buf bytes.Buffer
	if err := v.encode(&buf); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

func (v Value) encode(buf *bytes.Buffer) error {
	switch v.kind {
	case KindNull:
		buf.WriteString("null")
	case KindString:
		b, err := json.Marshal(v.str)
		if err != nil {
			return err
		}
		buf.Write(b)
	case KindInt:
		buf.WriteString(strconv.FormatInt(v.num, 10))
	case KindFloat:
		if math.IsNaN(v.flt) || math.IsInf(v.flt, 0) {
			buf.WriteString("null")
			return nil
		}
		buf.WriteString(strconv.FormatFloat(v.flt, 'g', -1, 64))
	case KindBool:
		buf.WriteString(strconv.FormatBool(v.boolean))
	case KindList:
		buf.WriteByte('[')
		for i, item := range v.items {
			if i > 0 {
				buf.WriteByte(',')
			}
			if err := item.encode(buf); err != nil {
				return err
			}
		}
		buf.WriteByte(']')
	case KindObject:
		buf.WriteByte('{')
		for i, f := range v.fields {
			if i > 0 {
				buf.WriteByte(',')
			}
			k, err := json.Marshal(f.Key)
			if err != nil {
				return err
			}
			buf.Write(k)
			buf.WriteByte(':')
			if err := f.Value.encode(buf); err != nil {
				return err
			}
		}
		buf.WriteByte('}')
	}
	return nil
}

// UnmarshalJSON decodes JSON into v keeping object key order.
func (v *Value) UnmarshalJSON(data []byte) error {
	decoded, err := DecodeJSON(data)
	if err != nil {
		return err
	}
	*v = decoded
	return nil
}

// DecodeJSON decodes a single JSON document into a Value.
func DecodeJSON(data []byte) (Value, error) {
	return DecodeJSONStream(bytes.NewReader(data))
}

// DecodeJSONStream decodes the next JSON document from r into a Value.
// Integers that fit in int64 become Int; every other number becomes Float.
func DecodeJSONStream(r io.Reader) (Value, error) {
	dec := json.NewDecoder(r)
	dec.UseNumber()
	v, err := decodeValue(dec)
	if err != nil {
		return Null(), fmt.Errorf("decode json: %w", err)
	}
	return v, nil
}

func decodeValue(dec *json.Decoder) (Value, error) {
	tok, err := dec.Token()
	if err != nil {
		return Null(), err
	}
	switch t := tok.(type) {
	case nil:
		return Null(), nil
	case bool:
		return Bool(t), nil
	case string:
		return String(t), nil
	case json.Number:
		if i, err := t.Int64(); err == nil {
			return Int(i), nil
		}
		f, err := t.Float64()
		if err != nil {
			return Null(), err
		}
		return Float(f), nil
	case json.Delim:
		switch t {
		case '[':
			items := []Value{}
			for dec.More() {
				item, err := decodeValue(dec)
				if err != nil {
					return Null(), err
				}
				items = append(items, item)
			}
			if _, err := dec.Token(); err != nil {
				return Null(), err
			}
			return List(items...), nil
		case '{':
			obj := newObjectBuilder(0)
			for dec.More() {
				keyTok, err := dec.Token()
				if err != nil {
					return Null(), err
				}
				key, ok := keyTok.(string)
				if !ok {
					return Null(), errors.New("object key is not a string")
				}
				val, err := decodeValue(dec)
				if err != nil {
					return Null(), err
				}
				obj.set(key, val)
			}
			if _, err := dec.Token(); err != nil {
				return Null(), err
			}
			return obj.value(), nil
		}
	}
	return Null(), fmt.Errorf("unexpected token %v", tok)
}
