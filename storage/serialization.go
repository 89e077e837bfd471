package storage

import (
	"fmt"
	"reflect"

	"github.com/fxamacker/cbor/v2"
	"github.com/poiesic/llmerge/core"
)

var (
	encMode cbor.EncMode
	decMode cbor.DecMode
)

func init() {
	var err error
	encMode, err = cbor.EncOptions{
		Sort:          cbor.SortCanonical,
		ShortestFloat: cbor.ShortestFloatNone,
		Time:          cbor.TimeRFC3339Nano,
	}.EncMode()
	if err != nil {
		panic(fmt.Sprintf("storage: cbor encoder: %v", err))
	}

	decMode, err = cbor.DecOptions{
		IntDec:         cbor.IntDecConvertSigned,
		DefaultMapType: reflect.TypeOf(map[string]any{}),
	}.DecMode()
	if err != nil {
		panic(fmt.Sprintf("storage: cbor decoder: %v", err))
	}
}

// MarshalDocument serializes a Document to bytes.
func MarshalDocument(doc *core.Document) ([]byte, error) {
	data, err := encMode.Marshal(doc)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrSerializationFailed, err)
	}
	return data, nil
}

// UnmarshalDocument deserializes a Document from bytes.
func UnmarshalDocument(data []byte) (*core.Document, error) {
	var doc core.Document
	if err := decMode.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrSerializationFailed, err)
	}
	return &doc, nil
}

// MarshalCollection serializes a Collection to bytes.
func MarshalCollection(c *core.Collection) ([]byte, error) {
	data, err := encMode.Marshal(c)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrSerializationFailed, err)
	}
	return data, nil
}

// UnmarshalCollection deserializes a Collection from bytes.
func UnmarshalCollection(data []byte) (*core.Collection, error) {
	var c core.Collection
	if err := decMode.Unmarshal(data, &c); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrSerializationFailed, err)
	}
	return &c, nil
}
