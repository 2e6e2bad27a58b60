package models

import (
	"encoding/json"
	"fmt"
	"sort"

	"github.com/shopspring/decimal"
)

// ColumnType is the declared value type of a custom column.
type ColumnType string

const (
	ColumnString ColumnType = "string"
	ColumnNumber ColumnType = "number"
	ColumnImage  ColumnType = "image"
)

func (t ColumnType) Valid() bool {
	switch t {
	case ColumnString, ColumnNumber, ColumnImage:
		return true
	}
	return false
}

// CustomValue is one cell of a custom column: exactly one of Text, Number
// or FileRef is meaningful, selected by Type.
type CustomValue struct {
	Type    ColumnType
	Text    string
	Number  decimal.Decimal
	FileRef string
}

func StringValue(s string) CustomValue {
	return CustomValue{Type: ColumnString, Text: s}
}

func NumberValue(d decimal.Decimal) CustomValue {
	return CustomValue{Type: ColumnNumber, Number: d}
}

func ImageValue(fileRef string) CustomValue {
	return CustomValue{Type: ColumnImage, FileRef: fileRef}
}

type wireValue struct {
	Type  ColumnType      `json:"type"`
	Value json.RawMessage `json:"value"`
}

// MarshalJSON encodes as {"type": ..., "value": ...}.
func (v CustomValue) MarshalJSON() ([]byte, error) {
	var (
		raw []byte
		err error
	)
	switch v.Type {
	case ColumnString:
		raw, err = json.Marshal(v.Text)
	case ColumnNumber:
		raw, err = v.Number.MarshalJSON()
	case ColumnImage:
		raw, err = json.Marshal(v.FileRef)
	default:
		return nil, fmt.Errorf("custom value: unknown type %q", v.Type)
	}
	if err != nil {
		return nil, err
	}
	return json.Marshal(wireValue{Type: v.Type, Value: raw})
}

// UnmarshalJSON accepts numbers both quoted and bare.
func (v *CustomValue) UnmarshalJSON(data []byte) error {
	var w wireValue
	if err := json.Unmarshal(data, &w); err != nil {
		return err
	}
	out := CustomValue{Type: w.Type}
	switch w.Type {
	case ColumnString:
		if err := json.Unmarshal(w.Value, &out.Text); err != nil {
			return fmt.Errorf("custom value: string: %w", err)
		}
	case ColumnNumber:
		if err := out.Number.UnmarshalJSON(w.Value); err != nil {
			return fmt.Errorf("custom value: number: %w", err)
		}
	case ColumnImage:
		if err := json.Unmarshal(w.Value, &out.FileRef); err != nil {
			return fmt.Errorf("custom value: image: %w", err)
		}
		if out.FileRef == "" {
			return fmt.Errorf("custom value: image reference is empty")
		}
	default:
		return fmt.Errorf("custom value: unknown type %q", w.Type)
	}
	*v = out
	return nil
}

// String renders the value for exports.
func (v CustomValue) String() string {
	switch v.Type {
	case ColumnString:
		return v.Text
	case ColumnNumber:
		return v.Number.String()
	case ColumnImage:
		return v.FileRef
	}
	return ""
}

// CustomData maps custom column id to value.
type CustomData map[string]CustomValue

// ImageRefs returns the file references held by image values, sorted.
func (d CustomData) ImageRefs() []string {
	var refs []string
	for _, v := range d {
		if v.Type == ColumnImage && v.FileRef != "" {
			refs = append(refs, v.FileRef)
		}
	}
	sort.Strings(refs)
	return refs
}

// Clone returns a shallow copy safe to mutate.
func (d CustomData) Clone() CustomData {
	out := make(CustomData, len(d))
	for k, v := range d {
		out[k] = v
	}
	return out
}
