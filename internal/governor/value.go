package governor

import (
	"encoding/json"
	"sort"
)

// Kind discriminates the JSON value variant.
type Kind int

const (
	KindScalar Kind = iota
	KindList
	KindRecord
)

// Value is a variant over the JSON shapes the governor filters: a list of
// values, a record of string-keyed values, or a scalar. Building the
// variant up front (via a canonical JSON round trip) keeps the governor and
// the schema inference as plain switches instead of runtime field probing.
type Value struct {
	kind   Kind
	list   []*Value
	record map[string]*Value
	keys   []string
	scalar any
}

// FromAny converts an arbitrary JSON-serialisable value into the variant
// form. Values that cannot be marshalled become their string rendering.
func FromAny(v any) *Value {
	data, err := json.Marshal(v)
	if err != nil {
		return &Value{kind: KindScalar, scalar: v}
	}
	var decoded any
	if err := json.Unmarshal(data, &decoded); err != nil {
		return &Value{kind: KindScalar, scalar: string(data)}
	}
	return fromDecoded(decoded)
}

func fromDecoded(v any) *Value {
	switch typed := v.(type) {
	case []any:
		list := make([]*Value, len(typed))
		for i, item := range typed {
			list[i] = fromDecoded(item)
		}
		return &Value{kind: KindList, list: list}
	case map[string]any:
		record := make(map[string]*Value, len(typed))
		keys := make([]string, 0, len(typed))
		for key, item := range typed {
			record[key] = fromDecoded(item)
			keys = append(keys, key)
		}
		sort.Strings(keys)
		return &Value{kind: KindRecord, record: record, keys: keys}
	default:
		return &Value{kind: KindScalar, scalar: typed}
	}
}

// Kind returns the variant tag.
func (v *Value) Kind() Kind { return v.kind }

// Len returns the element count for lists, the field count for records and
// 0 for scalars.
func (v *Value) Len() int {
	switch v.kind {
	case KindList:
		return len(v.list)
	case KindRecord:
		return len(v.record)
	default:
		return 0
	}
}

// Items returns the list elements (nil for non-lists).
func (v *Value) Items() []*Value { return v.list }

// Keys returns the record field names in sorted order (nil for
// non-records).
func (v *Value) Keys() []string { return v.keys }

// Field returns the named record field.
func (v *Value) Field(name string) (*Value, bool) {
	field, ok := v.record[name]
	return field, ok
}

// ToAny converts the variant back to plain Go values for serialisation.
func (v *Value) ToAny() any {
	switch v.kind {
	case KindList:
		out := make([]any, len(v.list))
		for i, item := range v.list {
			out[i] = item.ToAny()
		}
		return out
	case KindRecord:
		out := make(map[string]any, len(v.record))
		for key, item := range v.record {
			out[key] = item.ToAny()
		}
		return out
	default:
		return v.scalar
	}
}

// typeName names a variant's JSON type for schema descriptions.
func (v *Value) typeName() string {
	switch v.kind {
	case KindList:
		return "array"
	case KindRecord:
		return "object"
	default:
		switch v.scalar.(type) {
		case string:
			return "string"
		case float64:
			return "number"
		case bool:
			return "boolean"
		case nil:
			return "null"
		default:
			return "unknown"
		}
	}
}
