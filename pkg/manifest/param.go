package manifest

import (
	"bytes"
	"encoding/json"
	"fmt"
)

// ParamKind discriminates the value shapes a build parameter may take.
type ParamKind int

const (
	// ParamScalar is a single string or numeric value.
	ParamScalar ParamKind = iota
	// ParamBool is a boolean flag.
	ParamBool
	// ParamList is an ordered sequence of scalar values, used for
	// multi-valued build options (e.g. {"precision": ["double", "float"]}).
	ParamList
)

// Param is a build parameter value: a tagged union of scalar, boolean, or
// ordered list. Manifests may carry parameter keys the local package
// definitions do not know about; values are preserved verbatim so unknown
// parameters survive a decode/encode round trip unchanged.
//
// Numeric scalars are held as json.Number so that encoding reproduces the
// original representation exactly.
type Param struct {
	Kind   ParamKind
	Scalar any   // string or json.Number when Kind == ParamScalar
	Bool   bool  // valid when Kind == ParamBool
	List   []any // string/json.Number/bool elements when Kind == ParamList
}

// String constructs a scalar string parameter.
func String(s string) Param {
	return Param{Kind: ParamScalar, Scalar: s}
}

// Bool constructs a boolean parameter.
func Bool(b bool) Param {
	return Param{Kind: ParamBool, Bool: b}
}

// Strings constructs an ordered list parameter from string values.
func Strings(vals ...string) Param {
	list := make([]any, len(vals))
	for i, v := range vals {
		list[i] = v
	}
	return Param{Kind: ParamList, List: list}
}

// UnmarshalJSON decodes a parameter value, classifying it by shape.
// Objects and nested sequences are rejected: the wire contract allows only
// scalars, booleans, and flat ordered sequences.
func (p *Param) UnmarshalJSON(data []byte) error {
	v, err := decodeValue(data)
	if err != nil {
		return err
	}

	switch val := v.(type) {
	case bool:
		*p = Param{Kind: ParamBool, Bool: val}
	case []any:
		for _, elem := range val {
			switch elem.(type) {
			case string, json.Number, bool:
			default:
				return fmt.Errorf("parameter list element has unsupported shape %T", elem)
			}
		}
		*p = Param{Kind: ParamList, List: val}
	case string, json.Number:
		*p = Param{Kind: ParamScalar, Scalar: val}
	case nil:
		return fmt.Errorf("parameter value cannot be null")
	default:
		return fmt.Errorf("parameter value has unsupported shape %T", val)
	}
	return nil
}

// MarshalJSON encodes the underlying value, reproducing the original
// wire representation.
func (p Param) MarshalJSON() ([]byte, error) {
	switch p.Kind {
	case ParamBool:
		return json.Marshal(p.Bool)
	case ParamList:
		if p.List == nil {
			return []byte("[]"), nil
		}
		return json.Marshal(p.List)
	default:
		return json.Marshal(p.Scalar)
	}
}

// decodeValue decodes arbitrary JSON preserving numbers as json.Number.
func decodeValue(data []byte) (any, error) {
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.UseNumber()
	var v any
	if err := dec.Decode(&v); err != nil {
		return nil, err
	}
	return v, nil
}
