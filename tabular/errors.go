package tabular

import "errors"

var (
	// ErrUnknownFormat indicates the file format could not be determined.
	ErrUnknownFormat = errors.New("unknown table format")

	// ErrNoColumns indicates a read schema selects no columns.
	ErrNoColumns = errors.New("schema selects no columns")

	// ErrInvalidSchema indicates a read schema is inconsistent.
	ErrInvalidSchema = errors.New("invalid table schema")

	// ErrUnknownType indicates an unsupported column type name.
	ErrUnknownType = errors.New("unknown column type")

	// ErrValueType indicates a cell could not be converted to its column type.
	ErrValueType = errors.New("value does not match column type")

	// ErrMissingColumn indicates a selected column is absent from the file.
	ErrMissingColumn = errors.New("column not found")
)
