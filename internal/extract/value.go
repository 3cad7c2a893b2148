package extract

import (
	"bytes"
	"encoding/json"
	"fmt"
)

// Value is the result of evaluating an extraction rule. It is one of
// String, Number, Bool, ParameterList or MethodSignature.
type Value interface {
	isValue()
}

// String is a textual value.
type String string

// Number is a numeric literal value.
type Number float64

// Bool is a boolean literal value.
type Bool bool

// ParameterInfo describes one declared parameter.
type ParameterInfo struct {
	Name string `json:"name" yaml:"name"`
	Type string `json:"type" yaml:"type"`
}

// ParameterList is an ordered list of parameters.
type ParameterList []ParameterInfo

// MethodSignature describes a method's parameters and return type.
type MethodSignature struct {
	Parameters []ParameterInfo `json:"parameters" yaml:"parameters"`
	ReturnType string          `json:"returnType" yaml:"returnType"`
}

func (String) isValue()          {}
func (Number) isValue()          {}
func (Bool) isValue()            {}
func (ParameterList) isValue()   {}
func (MethodSignature) isValue() {}

// MarshalJSON keeps an empty list as [] instead of null.
func (l ParameterList) MarshalJSON() ([]byte, error) {
	if l == nil {
		return []byte("[]"), nil
	}
	return json.Marshal([]ParameterInfo(l))
}

// Native converts v into plain Go values (string, float64, bool, slices and
// maps) suitable for generic encoders.
func Native(v Value) any {
	switch v := v.(type) {
	case String:
		return string(v)
	case Number:
		return float64(v)
	case Bool:
		return bool(v)
	case ParameterList:
		return paramsNative(v)
	case MethodSignature:
		return map[string]any{
			"parameters": paramsNative(v.Parameters),
			"returnType": v.ReturnType,
		}
	}
	return nil
}

func paramsNative(params []ParameterInfo) []any {
	out := make([]any, 0, len(params))
	for _, p := range params {
		out = append(out, map[string]any{"name": p.Name, "type": p.Type})
	}
	return out
}

// ParseValue decodes the JSON form of a Value. Arrays decode to
// ParameterList and objects to MethodSignature.
func ParseValue(data []byte) (Value, error) {
	trimmed := bytes.TrimSpace(data)
	if len(trimmed) == 0 {
		return nil, fmt.Errorf("empty value")
	}
	switch trimmed[0] {
	case '[':
		var params []ParameterInfo
		if err := json.Unmarshal(trimmed, &params); err != nil {
			return nil, err
		}
		return ParameterList(params), nil
	case '{':
		var sig MethodSignature
		if err := json.Unmarshal(trimmed, &sig); err != nil {
			return nil, err
		}
		if sig.Parameters == nil {
			sig.Parameters = []ParameterInfo{}
		}
		return sig, nil
	}

	var raw any
	if err := json.Unmarshal(trimmed, &raw); err != nil {
		return nil, err
	}
	switch v := raw.(type) {
	case string:
		return String(v), nil
	case float64:
		return Number(v), nil
	case bool:
		return Bool(v), nil
	}
	return nil, fmt.Errorf("unsupported value %s", trimmed)
}
