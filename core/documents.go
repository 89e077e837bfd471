package core

import "time"

// Document is a unit of text stored for embedding retrieval.
type Document struct {
	ID       string         `cbor:"1,keyasint"`
	Content  string         `cbor:"2,keyasint"`
	Metadata map[string]any `cbor:"3,keyasint,omitempty"`
	Vector   []float32      `cbor:"4,keyasint,omitempty"`
}

// Collection groups documents embedded with the same model.
type Collection struct {
	Name      string    `cbor:"1,keyasint"`
	Model     string    `cbor:"2,keyasint"`
	Dimension int       `cbor:"3,keyasint"`
	Count     int       `cbor:"4,keyasint"`
	CreatedAt time.Time `cbor:"5,keyasint"`
	UpdatedAt time.Time `cbor:"6,keyasint"`
}

// SearchResult is a document with its similarity to a query vector.
type SearchResult struct {
	Document *Document
	Score    float32
}
