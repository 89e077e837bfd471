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

import "errors"

// Domain validation errors
var (
	// ErrInvalidDataset indicates a Dataset failed validation.
	ErrInvalidDataset = errors.New("invalid dataset")

	// ErrUnknownField indicates a field is not part of a dataset's schema.
	ErrUnknownField = errors.New("unknown field")

	// ErrDuplicateField indicates a field appears twice in a dataset's schema.
	ErrDuplicateField = errors.New("duplicate field")

	// ErrRowIndex indicates row indices are not unique, contiguous and 0-based.
	ErrRowIndex = errors.New("row indices must be contiguous and start at 0")

	// ErrRowWidth indicates a row has a different number of values than the schema has fields.
	ErrRowWidth = errors.New("row width does not match schema")

	// ErrEmptyFieldName indicates a field has no name.
	ErrEmptyFieldName = errors.New("field name cannot be empty")
)

// Join errors
var (
	// ErrSchemaConfiguration indicates the configured key fields or index
	// field names do not fit the supplied datasets.
	ErrSchemaConfiguration = errors.New("schema configuration error")

	// ErrIndexIntegrity indicates a matcher referenced a row that does not
	// exist in the expected dataset or chunk.
	ErrIndexIntegrity = errors.New("index integrity error")

	// ErrMatcherInvocation indicates the external matcher failed or returned
	// a structure that could not be interpreted.
	ErrMatcherInvocation = errors.New("matcher invocation error")

	// ErrMalformedMatch indicates a single match record failed boundary validation.
	ErrMalformedMatch = errors.New("malformed match record")
)
