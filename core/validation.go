// Copyright 2025 Poiesic Systems
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package core

import (
	"fmt"
)

// ValidateDataset validates a Dataset according to domain rules.
//
// Validation rules:
//   - Every field has a name and appears once
//   - Every row has exactly one value per field
//   - Row indices are unique, contiguous and 0-based
//
// NOT validated:
//   - Value types (missing values are nil and any column may hold them)
func ValidateDataset(ds *Dataset) error {
	if ds == nil {
		return fmt.Errorf("%w: dataset is nil", ErrInvalidDataset)
	}

	seen := make(map[Field]struct{}, len(ds.Fields))
	for _, f := range ds.Fields {
		if f.Name == "" {
			return fmt.Errorf("%w: %w", ErrInvalidDataset, ErrEmptyFieldName)
		}
		if _, ok := seen[f]; ok {
			return fmt.Errorf("%w: %w: %s", ErrInvalidDataset, ErrDuplicateField, f)
		}
		seen[f] = struct{}{}
	}

	for i, row := range ds.Rows {
		if row.Index != i {
			return fmt.Errorf("%w: %w: position %d has index %d", ErrInvalidDataset, ErrRowIndex, i, row.Index)
		}
		if len(row.Values) != len(ds.Fields) {
			return fmt.Errorf("%w: %w: row %d has %d values, schema has %d fields",
				ErrInvalidDataset, ErrRowWidth, i, len(row.Values), len(ds.Fields))
		}
	}

	return nil
}

// ValidateMatchSchema validates that the index fields are named, distinct,
// and not shadowed by an extra field.
func ValidateMatchSchema(schema MatchSchema) error {
	if schema.LeftIndexField == "" {
		return fmt.Errorf("%w: left index field name is required", ErrSchemaConfiguration)
	}
	if schema.RightIndexField == "" {
		return fmt.Errorf("%w: right index field name is required", ErrSchemaConfiguration)
	}
	if schema.LeftIndexField == schema.RightIndexField {
		return fmt.Errorf("%w: left and right index fields are both %q",
			ErrSchemaConfiguration, schema.LeftIndexField)
	}

	seen := map[string]struct{}{
		schema.LeftIndexField:  {},
		schema.RightIndexField: {},
	}
	for _, f := range schema.Extra {
		if f.Name == "" {
			return fmt.Errorf("%w: extra field name is required", ErrSchemaConfiguration)
		}
		if _, ok := seen[f.Name]; ok {
			return fmt.Errorf("%w: duplicate response field %q", ErrSchemaConfiguration, f.Name)
		}
		seen[f.Name] = struct{}{}
		switch f.Type {
		case "", "integer", "number", "string", "boolean":
		default:
			return fmt.Errorf("%w: response field %q has unsupported type %q",
				ErrSchemaConfiguration, f.Name, f.Type)
		}
	}
	return nil
}

// ValidateKeyField checks that f exists on ds.
func ValidateKeyField(ds *Dataset, f Field, side string) error {
	if f.Name == "" {
		return fmt.Errorf("%w: %s key field is required", ErrSchemaConfiguration, side)
	}
	if !ds.HasField(f) {
		return fmt.Errorf("%w: %s key field %s not found in dataset", ErrSchemaConfiguration, side, f)
	}
	return nil
}
