package core

import "strings"

// FieldSeparator joins a field's namespace and name when rendered as a
// flat column name.
const FieldSeparator = "/"

// Field identifies a dataset column. A Field with an empty Namespace is a
// simple field; otherwise it is a composite field such as
// ("Non Nutrient Data", "Name").
type Field struct {
	Namespace string
	Name      string
}

// F is shorthand for a simple field.
func F(name string) Field {
	return Field{Name: name}
}

// NF is shorthand for a namespaced field.
func NF(namespace, name string) Field {
	return Field{Namespace: namespace, Name: name}
}

// ParseField parses the flat rendering produced by Field.String.
// Only the first separator splits; names may themselves contain it.
func ParseField(s string) Field {
	ns, name, ok := strings.Cut(s, FieldSeparator)
	if !ok {
		return Field{Name: s}
	}
	return Field{Namespace: ns, Name: name}
}

// String renders the field as "Namespace/Name", or just "Name".
func (f Field) String() string {
	if f.Namespace == "" {
		return f.Name
	}
	return f.Namespace + FieldSeparator + f.Name
}

// IsComposite reports whether the field carries a namespace.
func (f Field) IsComposite() bool {
	return f.Namespace != ""
}

// Qualify returns the field with label prepended to its namespace.
// ("Name").Qualify("left") is "left/Name";
// ("Data","Name").Qualify("left") is "left.Data/Name".
func (f Field) Qualify(label string) Field {
	if label == "" {
		return f
	}
	if f.Namespace == "" {
		return Field{Namespace: label, Name: f.Name}
	}
	return Field{Namespace: label + "." + f.Namespace, Name: f.Name}
}
