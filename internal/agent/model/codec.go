package model

import (
	"encoding/json"
	"errors"
	"fmt"
)

// ErrCorruptFlow is returned when a stored flow fails to decode or validate.
var ErrCorruptFlow = errors.New("corrupt flow record")

// EncodeFlow serialises a flow instance after validating it.
func EncodeFlow(f *FlowInstance) ([]byte, error) {
	if f == nil {
		return nil, fmt.Errorf("encode flow: nil instance")
	}
	if err := f.Validate(); err != nil {
		return nil, fmt.Errorf("encode flow: %w", err)
	}
	return json.Marshal(f)
}

// DecodeFlow parses and validates a stored flow instance. Invalid records are
// reported, never repaired.
func DecodeFlow(b []byte) (*FlowInstance, error) {
	var f FlowInstance
	if err := json.Unmarshal(b, &f); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrCorruptFlow, err)
	}
	if err := f.Validate(); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrCorruptFlow, err)
	}
	if f.Answers == nil {
		f.Answers = map[string]string{}
	}
	return &f, nil
}

// CloneFlow returns a deep copy through the codec so callers never share maps.
func CloneFlow(f *FlowInstance) (*FlowInstance, error) {
	b, err := EncodeFlow(f)
	if err != nil {
		return nil, err
	}
	return DecodeFlow(b)
}
