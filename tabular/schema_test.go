package tabular

import (
	"encoding/json"
	"testing"

	"github.com/poiesic/llmerge/core"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseColumnType(t *testing.T) {
	tests := []struct {
		in      string
		want    ColumnType
		wantErr bool
	}{
		{"", TypeString, false},
		{"text", TypeString, false},
		{"INT", TypeInt64, false},
		{"integer", TypeInt64, false},
		{"double", TypeFloat64, false},
		{"number", TypeFloat64, false},
		{"boolean", TypeBool, false},
		{"date", "", true},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, err := ParseColumnType(tt.in)
			if tt.wantErr {
				assert.ErrorIs(t, err, ErrUnknownType)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestSchemaFields(t *testing.T) {
	s := Schema{
		Namespace: "Non Nutrient Data",
		Fields: []ColumnSpec{
			{Column: "Name"},
			{Column: "price_eur", Name: "Price", Type: TypeFloat64},
			{Column: "fdc_id", Namespace: "FDC", Name: "ID"},
		},
	}
	require.NoError(t, s.Validate())
	assert.Equal(t, []core.Field{
		core.NF("Non Nutrient Data", "Name"),
		core.NF("Non Nutrient Data", "Price"),
		core.NF("FDC", "ID"),
	}, s.DatasetFields())
	assert.Equal(t, []string{"Name", "price_eur", "fdc_id"}, s.Columns())
}

func TestSchemaValidate(t *testing.T) {
	tests := []struct {
		name   string
		schema Schema
		want   error
	}{
		{"empty", Schema{}, ErrNoColumns},
		{"unnamed column", Schema{Fields: []ColumnSpec{{Name: "x"}}}, ErrInvalidSchema},
		{"column twice", Schema{Fields: []ColumnSpec{{Column: "a"}, {Column: "a", Name: "b"}}}, ErrInvalidSchema},
		{"field twice", Schema{Fields: []ColumnSpec{{Column: "a"}, {Column: "b", Name: "a"}}}, ErrInvalidSchema},
		{"bad type", Schema{Fields: []ColumnSpec{{Column: "a", Type: "date"}}}, ErrUnknownType},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.ErrorIs(t, tt.schema.Validate(), tt.want)
		})
	}
}

func TestCoerce(t *testing.T) {
	tests := []struct {
		name    string
		in      any
		typ     ColumnType
		want    any
		wantErr bool
	}{
		{"nil", nil, TypeInt64, nil, false},
		{"bytes to string", []byte("abc"), TypeString, "abc", false},
		{"int to string", int64(42), TypeString, "42", false},
		{"float to string", 1.5, TypeString, "1.5", false},
		{"json number to int", json.Number("7"), TypeInt64, int64(7), false},
		{"integral float to int", 3.0, TypeInt64, int64(3), false},
		{"fractional float to int", 3.5, TypeInt64, nil, true},
		{"numeric string to int", " 12 ", TypeInt64, int64(12), false},
		{"empty string to int", "", TypeInt64, nil, false},
		{"int to float", int64(2), TypeFloat64, 2.0, false},
		{"json number to float", json.Number("2.25"), TypeFloat64, 2.25, false},
		{"string to bool", "true", TypeBool, true, false},
		{"word to float", "abc", TypeFloat64, nil, true},
		{"int to bool", int64(1), TypeBool, nil, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := coerce(tt.in, tt.typ)
			if tt.wantErr {
				assert.ErrorIs(t, err, ErrValueType)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestInferType(t *testing.T) {
	ds := core.NewDataset(
		[]core.Field{core.F("i"), core.F("f"), core.F("mixed"), core.F("b"), core.F("s"), core.F("empty")},
		[]any{int64(1), 1.5, int64(1), true, "x", nil},
		[]any{nil, 2.5, 2.5, false, int64(3), nil},
	)
	assert.Equal(t, TypeInt64, inferType(ds, 0))
	assert.Equal(t, TypeFloat64, inferType(ds, 1))
	assert.Equal(t, TypeFloat64, inferType(ds, 2))
	assert.Equal(t, TypeBool, inferType(ds, 3))
	assert.Equal(t, TypeString, inferType(ds, 4))
	assert.Equal(t, TypeString, inferType(ds, 5))
}
