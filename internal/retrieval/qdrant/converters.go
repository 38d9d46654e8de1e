package qdrant

import (
	"fmt"

	"github.com/qdrant/go-client/qdrant"
)

// asFloat32Slice coerces the embedding value found in document metadata into
// a []float32. JSON-decoded metadata arrives as []any of float64.
func asFloat32Slice(v any) ([]float32, bool) {
	switch vec := v.(type) {
	case []float32:
		return vec, true
	case []float64:
		out := make([]float32, len(vec))
		for i, f := range vec {
			out[i] = float32(f)
		}
		return out, true
	case []any:
		out := make([]float32, len(vec))
		for i, e := range vec {
			switch f := e.(type) {
			case float64:
				out[i] = float32(f)
			case float32:
				out[i] = f
			case int:
				out[i] = float32(f)
			default:
				return nil, false
			}
		}
		return out, true
	default:
		return nil, false
	}
}

// toValue converts a metadata value to a qdrant payload value. Values outside
// the JSON type set are stored as their string representation.
func toValue(v any) *qdrant.Value {
	switch x := v.(type) {
	case nil:
		return &qdrant.Value{Kind: &qdrant.Value_NullValue{NullValue: qdrant.NullValue_NULL_VALUE}}
	case bool:
		return &qdrant.Value{Kind: &qdrant.Value_BoolValue{BoolValue: x}}
	case string:
		return &qdrant.Value{Kind: &qdrant.Value_StringValue{StringValue: x}}
	case int:
		return &qdrant.Value{Kind: &qdrant.Value_IntegerValue{IntegerValue: int64(x)}}
	case int32:
		return &qdrant.Value{Kind: &qdrant.Value_IntegerValue{IntegerValue: int64(x)}}
	case int64:
		return &qdrant.Value{Kind: &qdrant.Value_IntegerValue{IntegerValue: x}}
	case float32:
		return &qdrant.Value{Kind: &qdrant.Value_DoubleValue{DoubleValue: float64(x)}}
	case float64:
		return &qdrant.Value{Kind: &qdrant.Value_DoubleValue{DoubleValue: x}}
	case []any:
		values := make([]*qdrant.Value, len(x))
		for i, e := range x {
			values[i] = toValue(e)
		}
		return &qdrant.Value{Kind: &qdrant.Value_ListValue{ListValue: &qdrant.ListValue{Values: values}}}
	case map[string]any:
		return &qdrant.Value{Kind: &qdrant.Value_StructValue{StructValue: &qdrant.Struct{Fields: toValueMap(x)}}}
	default:
		return &qdrant.Value{Kind: &qdrant.Value_StringValue{StringValue: fmt.Sprintf("%v", x)}}
	}
}

func toValueMap(m map[string]any) map[string]*qdrant.Value {
	out := make(map[string]*qdrant.Value, len(m))
	for k, v := range m {
		out[k] = toValue(v)
	}
	return out
}

// fromValue converts a qdrant payload value back to a plain Go value.
func fromValue(v *qdrant.Value) any {
	switch kind := v.GetKind().(type) {
	case *qdrant.Value_NullValue:
		return nil
	case *qdrant.Value_BoolValue:
		return kind.BoolValue
	case *qdrant.Value_StringValue:
		return kind.StringValue
	case *qdrant.Value_IntegerValue:
		return kind.IntegerValue
	case *qdrant.Value_DoubleValue:
		return kind.DoubleValue
	case *qdrant.Value_ListValue:
		out := make([]any, len(kind.ListValue.GetValues()))
		for i, e := range kind.ListValue.GetValues() {
			out[i] = fromValue(e)
		}
		return out
	case *qdrant.Value_StructValue:
		return fromValueMap(kind.StructValue.GetFields())
	default:
		return nil
	}
}

func fromValueMap(fields map[string]*qdrant.Value) map[string]any {
	out := make(map[string]any, len(fields))
	for k, v := range fields {
		out[k] = fromValue(v)
	}
	return out
}
