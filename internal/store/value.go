package store

import (
	"fmt"

	"google.golang.org/protobuf/encoding/protojson"
	"google.golang.org/protobuf/proto"
	"google.golang.org/protobuf/types/known/structpb"
)

// Clone returns a deep copy of v. A nil value, or one with no kind set, is
// treated as JSON null.
func Clone(v *structpb.Value) *structpb.Value {
	if v.GetKind() == nil {
		return structpb.NewNullValue()
	}
	return proto.Clone(v).(*structpb.Value)
}

// DecodeJSON parses a JSON document of any shape into a value.
func DecodeJSON(data []byte) (*structpb.Value, error) {
	v := &structpb.Value{}
	if err := protojson.Unmarshal(data, v); err != nil {
		return nil, fmt.Errorf("decoding json value: %w", err)
	}
	return v, nil
}

// EncodeJSON renders v as compact JSON. A nil value encodes as null.
func EncodeJSON(v *structpb.Value) ([]byte, error) {
	if v.GetKind() == nil {
		v = structpb.NewNullValue()
	}
	data, err := protojson.Marshal(v)
	if err != nil {
		return nil, fmt.Errorf("encoding json value: %w", err)
	}
	return data, nil
}

// NewValue converts a Go value, as produced by YAML or TOML decoders, into a
// [structpb.Value]. Nested maps must have string keys.
func NewValue(v any) (*structpb.Value, error) {
	nv, err := normalize(v)
	if err != nil {
		return nil, err
	}
	val, err := structpb.NewValue(nv)
	if err != nil {
		return nil, fmt.Errorf("converting value: %w", err)
	}
	return val, nil
}

// normalize rewrites container types that structpb.NewValue does not accept
// (typed slices of maps, maps with interface keys) into []any and
// map[string]any.
func normalize(v any) (any, error) {
	switch t := v.(type) {
	case map[string]any:
		out := make(map[string]any, len(t))
		for k, e := range t {
			ne, err := normalize(e)
			if err != nil {
				return nil, err
			}
			out[k] = ne
		}
		return out, nil
	case map[any]any:
		out := make(map[string]any, len(t))
		for k, e := range t {
			ks, ok := k.(string)
			if !ok {
				return nil, fmt.Errorf("map key %v must be a string, got %T", k, k)
			}
			ne, err := normalize(e)
			if err != nil {
				return nil, err
			}
			out[ks] = ne
		}
		return out, nil
	case []map[string]any:
		out := make([]any, len(t))
		for i, e := range t {
			ne, err := normalize(e)
			if err != nil {
				return nil, err
			}
			out[i] = ne
		}
		return out, nil
	case []any:
		out := make([]any, len(t))
		for i, e := range t {
			ne, err := normalize(e)
			if err != nil {
				return nil, err
			}
			out[i] = ne
		}
		return out, nil
	default:
		return v, nil
	}
}
