package value

import (
	"fmt"
	"math"
	"sort"
	"strconv"
	"time"

	"github.com/wippyai/nskeyed/errors"
)

// Kind identifies the variant held by a Value
type Kind uint8

const (
	KindNull Kind = iota
	KindBoolean
	KindInteger
	KindReal
	KindString
	KindDate
	KindBytes
	KindArray
	KindDict
)

// String returns the lowercase variant name
func (k Kind) String() string {
	switch k {
	case KindNull:
		return "null"
	case KindBoolean:
		return "boolean"
	case KindInteger:
		return "integer"
	case KindReal:
		return "real"
	case KindString:
		return "string"
	case KindDate:
		return "date"
	case KindBytes:
		return "bytes"
	case KindArray:
		return "array"
	case KindDict:
		return "dict"
	}
	return "unknown"
}

// Value is the normalized, format-agnostic tree type produced by the decoder
// and consumed by every output encoder. The variant set is closed: Null,
// Boolean, Integer, Real, String, Date, Bytes, Array and *Dict.
type Value interface {
	Kind() Kind
	sealed()
}

// Null is the absence of a value
type Null struct{}

// Boolean is a true/false value
type Boolean bool

// Real is a floating-point number
type Real float64

// String is a text value
type String string

// Date is a point in time
type Date time.Time

// Bytes is an opaque byte sequence
type Bytes []byte

// Array is an ordered sequence of values
type Array []Value

func (Null) Kind() Kind    { return KindNull }
func (Boolean) Kind() Kind { return KindBoolean }
func (Integer) Kind() Kind { return KindInteger }
func (Real) Kind() Kind    { return KindReal }
func (String) Kind() Kind  { return KindString }
func (Date) Kind() Kind    { return KindDate }
func (Bytes) Kind() Kind   { return KindBytes }
func (Array) Kind() Kind   { return KindArray }
func (*Dict) Kind() Kind   { return KindDict }

func (Null) sealed()    {}
func (Boolean) sealed() {}
func (Integer) sealed() {}
func (Real) sealed()    {}
func (String) sealed()  {}
func (Date) sealed()    {}
func (Bytes) sealed()   {}
func (Array) sealed()   {}
func (*Dict) sealed()   {}

// Integer is a whole number. It stores a uint64 magnitude plus a signedness
// flag, the same representation property-list codecs use, so the full uint64
// range survives a round trip. Negative values always carry the signed flag;
// non-negative values never do, which keeps equality a simple field compare.
type Integer struct {
	value  uint64
	signed bool
}

// Int builds an Integer from a signed value
func Int(v int64) Integer {
	if v < 0 {
		return Integer{value: uint64(v), signed: true}
	}
	return Integer{value: uint64(v)}
}

// Uint builds an Integer from an unsigned value
func Uint(v uint64) Integer {
	return Integer{value: v}
}

// IsNegative reports whether the integer is below zero
func (i Integer) IsNegative() bool {
	return i.signed
}

// Int64 returns the value as int64; ok is false when it does not fit
func (i Integer) Int64() (int64, bool) {
	if i.signed {
		return int64(i.value), true
	}
	if i.value > math.MaxInt64 {
		return 0, false
	}
	return int64(i.value), true
}

// Uint64 returns the value as uint64; ok is false for negative values
func (i Integer) Uint64() (uint64, bool) {
	if i.signed {
		return 0, false
	}
	return i.value, true
}

// String formats the integer in decimal
func (i Integer) String() string {
	if i.signed {
		return strconv.FormatInt(int64(i.value), 10)
	}
	return strconv.FormatUint(i.value, 10)
}

// Dict is an ordered mapping from string keys to values. Insertion order is
// preserved; Set on an existing key replaces the value in place.
type Dict struct {
	keys    []string
	entries map[string]Value
}

// NewDict creates an empty ordered dictionary
func NewDict() *Dict {
	return &Dict{entries: make(map[string]Value)}
}

// Set inserts or replaces the value for key. Replacing keeps the key's
// original position.
func (d *Dict) Set(key string, v Value) {
	if _, ok := d.entries[key]; !ok {
		d.keys = append(d.keys, key)
	}
	d.entries[key] = v
}

// Get returns the value for key
func (d *Dict) Get(key string) (Value, bool) {
	v, ok := d.entries[key]
	return v, ok
}

// Delete removes key and its value, preserving the order of remaining keys.
// It reports whether the key was present.
func (d *Dict) Delete(key string) bool {
	if _, ok := d.entries[key]; !ok {
		return false
	}
	delete(d.entries, key)
	for i, k := range d.keys {
		if k == key {
			d.keys = append(d.keys[:i], d.keys[i+1:]...)
			break
		}
	}
	return true
}

// Len returns the number of entries
func (d *Dict) Len() int {
	return len(d.keys)
}

// Keys returns the keys in insertion order
func (d *Dict) Keys() []string {
	out := make([]string, len(d.keys))
	copy(out, d.keys)
	return out
}

// Range calls fn for each entry in insertion order until fn returns false
func (d *Dict) Range(fn func(key string, v Value) bool) {
	for _, k := range d.keys {
		if !fn(k, d.entries[k]) {
			return
		}
	}
}

// Equal reports structural equality of two values. Arrays compare
// element-wise in order; Dicts compare as key-to-value maps, ignoring key
// order, since mapping order is presentational.
func Equal(a, b Value) bool {
	if a == nil || b == nil {
		return a == nil && b == nil
	}
	if a.Kind() != b.Kind() {
		return false
	}
	switch av := a.(type) {
	case Null:
		return true
	case Boolean:
		return av == b.(Boolean)
	case Integer:
		return av == b.(Integer)
	case Real:
		return av == b.(Real)
	case String:
		return av == b.(String)
	case Date:
		return time.Time(av).Equal(time.Time(b.(Date)))
	case Bytes:
		bv := b.(Bytes)
		if len(av) != len(bv) {
			return false
		}
		for i := range av {
			if av[i] != bv[i] {
				return false
			}
		}
		return true
	case Array:
		bv := b.(Array)
		if len(av) != len(bv) {
			return false
		}
		for i := range av {
			if !Equal(av[i], bv[i]) {
				return false
			}
		}
		return true
	case *Dict:
		bv := b.(*Dict)
		if av.Len() != bv.Len() {
			return false
		}
		equal := true
		av.Range(func(k string, v Value) bool {
			other, ok := bv.Get(k)
			if !ok || !Equal(v, other) {
				equal = false
				return false
			}
			return true
		})
		return equal
	}
	return false
}

// Walk traverses v depth-first in pre-order. Returning false from fn skips
// the children of the current value; traversal of siblings continues.
func Walk(v Value, fn func(Value) bool) {
	if !fn(v) {
		return
	}
	switch tv := v.(type) {
	case Array:
		for _, e := range tv {
			Walk(e, fn)
		}
	case *Dict:
		tv.Range(func(_ string, e Value) bool {
			Walk(e, fn)
			return true
		})
	}
}

// FromNative converts a tree of container-codec native Go types into a Value.
// Mappings become Dicts with keys in sorted order (native maps carry no
// order), slices become Arrays, nil becomes Null. Types outside the
// property-list repertoire are rejected.
func FromNative(v any) (Value, error) {
	switch tv := v.(type) {
	case nil:
		return Null{}, nil
	case bool:
		return Boolean(tv), nil
	case string:
		return String(tv), nil
	case int:
		return Int(int64(tv)), nil
	case int8:
		return Int(int64(tv)), nil
	case int16:
		return Int(int64(tv)), nil
	case int32:
		return Int(int64(tv)), nil
	case int64:
		return Int(tv), nil
	case uint:
		return Uint(uint64(tv)), nil
	case uint8:
		return Uint(uint64(tv)), nil
	case uint16:
		return Uint(uint64(tv)), nil
	case uint32:
		return Uint(uint64(tv)), nil
	case uint64:
		return Uint(tv), nil
	case float32:
		return Real(tv), nil
	case float64:
		return Real(tv), nil
	case time.Time:
		return Date(tv), nil
	case []byte:
		return Bytes(tv), nil
	case []any:
		out := make(Array, 0, len(tv))
		for _, e := range tv {
			ev, err := FromNative(e)
			if err != nil {
				return nil, err
			}
			out = append(out, ev)
		}
		return out, nil
	case map[string]any:
		keys := make([]string, 0, len(tv))
		for k := range tv {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		out := NewDict()
		for _, k := range keys {
			ev, err := FromNative(tv[k])
			if err != nil {
				return nil, err
			}
			out.Set(k, ev)
		}
		return out, nil
	}
	return nil, errors.New(errors.PhaseParse, errors.KindInvalidEncoding).
		Detail("cannot represent %T as a value", v).
		Build()
}

// GoString aids debugging output in tests
func (d *Dict) GoString() string {
	return fmt.Sprintf("value.Dict(len=%d keys=%v)", d.Len(), d.keys)
}
