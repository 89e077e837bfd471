package core

import (
	"testing"
)

func TestIDFromContent(t *testing.T) {
	tests := []struct {
		name    string
		content string
	}{
		{name: "same content produces same ID", content: "test content"},
		{name: "empty string", content: ""},
		{name: "long content", content: "This is a much longer piece of content that should still hash consistently"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			id1 := IDFromContent(tt.content)
			id2 := IDFromContent(tt.content)
			if id1 != id2 {
				t.Errorf("IDFromContent() produced different IDs for same content: %d vs %d", id1, id2)
			}
		})
	}
}

func TestIDFromContent_Different(t *testing.T) {
	if IDFromContent("content1") == IDFromContent("content2") {
		t.Errorf("IDFromContent() produced same ID for different content")
	}
}

func TestField_String(t *testing.T) {
	tests := []struct {
		name  string
		field Field
		want  string
	}{
		{name: "simple", field: F("Name"), want: "Name"},
		{name: "composite", field: NF("Non Nutrient Data", "Name"), want: "Non Nutrient Data/Name"},
		{name: "qualified simple", field: F("Name").Qualify("left"), want: "left/Name"},
		{name: "qualified composite", field: NF("Data", "Name").Qualify("right"), want: "right.Data/Name"},
		{name: "empty label", field: F("Name").Qualify(""), want: "Name"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.field.String(); got != tt.want {
				t.Errorf("Field.String() = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestParseField(t *testing.T) {
	if got := ParseField("Name"); got != F("Name") {
		t.Errorf("ParseField(simple) = %#v", got)
	}
	if got := ParseField("Non Nutrient Data/FDC Name"); got != NF("Non Nutrient Data", "FDC Name") {
		t.Errorf("ParseField(composite) = %#v", got)
	}
	if got := ParseField("Data/kcal/100g"); got != NF("Data", "kcal/100g") {
		t.Errorf("ParseField(nested separator) = %#v", got)
	}
}

func TestDataset_Slice(t *testing.T) {
	ds := NewDataset([]Field{F("n")},
		[]any{"a"}, []any{"b"}, []any{"c"}, []any{"d"}, []any{"e"})

	chunk := ds.Slice(2, 4)
	if chunk.Len() != 2 {
		t.Fatalf("Slice() len = %d, want 2", chunk.Len())
	}
	if chunk.Rows[0].Index != 2 || chunk.Rows[1].Index != 3 {
		t.Errorf("Slice() did not preserve indices: %d, %d", chunk.Rows[0].Index, chunk.Rows[1].Index)
	}

	if got := ds.Slice(4, 100).Len(); got != 1 {
		t.Errorf("Slice() past end len = %d, want 1", got)
	}
	if got := ds.Slice(10, 20).Len(); got != 0 {
		t.Errorf("Slice() beyond end len = %d, want 0", got)
	}
	if got := ds.Head(3).Len(); got != 3 {
		t.Errorf("Head(3) len = %d, want 3", got)
	}
	if got := ds.Head(0).Len(); got != 5 {
		t.Errorf("Head(0) len = %d, want 5", got)
	}
}

func TestDataset_Value(t *testing.T) {
	ds := NewDataset([]Field{F("id"), NF("ns", "name")}, []any{int64(1), "apple"})

	v, err := ds.Value(0, NF("ns", "name"))
	if err != nil {
		t.Fatalf("Value() error = %v", err)
	}
	if v != "apple" {
		t.Errorf("Value() = %v, want apple", v)
	}

	if _, err := ds.Value(0, F("name")); err == nil {
		t.Errorf("Value() on unknown field should fail")
	}
}
