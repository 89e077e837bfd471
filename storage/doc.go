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

// Package storage provides the storage abstraction for embedded documents.
//
// Documents live in named collections. A collection records the embedding
// model that produced its vectors, so an index built with one model is
// never queried with another.
//
// # Constructor Return Type Pattern
//
// Public constructors in backend packages return the storage interface:
//
//	repo, err := badger.NewRepository(path)  // returns storage.DocumentRepository
//
// Use in tests with in-memory storage:
//
//	repo, err := badger.NewMemoryRepository()
//	if err != nil {
//	    log.Fatal(err)
//	}
//	defer repo.Close()
//
// # Serialization
//
// Records are stored as CBOR with integer keys. Integers in document
// metadata decode as int64 and nested maps as map[string]any.
//
// # Thread Safety
//
// All repository implementations must be thread-safe and support
// concurrent access from multiple goroutines.
package storage
