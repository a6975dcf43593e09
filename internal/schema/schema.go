package schema

import (
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/haguru/bookshelf/internal/models"
)

// FieldType is the declared type of a schema field.
type FieldType string

const (
	String FieldType = "string"
	Int    FieldType = "int"
	Float  FieldType = "float"
	Bool   FieldType = "bool"
	Time   FieldType = "time"
)

// Transform rewrites a field value before it is written or queried.
// Transforms must be pure functions of their input.
type Transform func(value interface{}) interface{}

// Lowercase lowercases string values and leaves everything else alone.
func Lowercase(value interface{}) interface{} {
	if s, ok := value.(string); ok {
		return strings.ToLower(s)
	}
	return value
}

// Uppercase uppercases string values and leaves everything else alone.
func Uppercase(value interface{}) interface{} {
	if s, ok := value.(string); ok {
		return strings.ToUpper(s)
	}
	return value
}

// TrimSpace trims surrounding whitespace from string values.
func TrimSpace(value interface{}) interface{} {
	if s, ok := value.(string); ok {
		return strings.TrimSpace(s)
	}
	return value
}

// Field declares one named field of an entity.
type Field struct {
	Name       string
	Type       FieldType
	Required   bool
	Index      bool
	Unique     bool
	Transforms []Transform
}

// Schema declares the fields stored in one collection.
type Schema struct {
	Collection string
	Fields     []Field
	byName     map[string]Field
}

// New builds a schema for collection from the given fields.
func New(collection string, fields ...Field) (*Schema, error) {
	if collection == "" {
		return nil, fmt.Errorf("schema: collection name cannot be empty")
	}
	if strings.ContainsAny(collection, "$. ") {
		return nil, fmt.Errorf("schema: invalid collection name %q", collection)
	}

	s := &Schema{
		Collection: collection,
		Fields:     fields,
		byName:     make(map[string]Field, len(fields)),
	}
	for _, f := range fields {
		if f.Name == "" || f.Name == models.IDField || strings.ContainsAny(f.Name, "$. ") {
			return nil, fmt.Errorf("schema: invalid field name %q", f.Name)
		}
		if _, dup := s.byName[f.Name]; dup {
			return nil, fmt.Errorf("schema: duplicate field %q", f.Name)
		}
		switch f.Type {
		case String, Int, Float, Bool, Time:
		default:
			return nil, fmt.Errorf("schema: field %q has unsupported type %q", f.Name, f.Type)
		}
		s.byName[f.Name] = f
	}

	return s, nil
}

// Field returns the named field.
func (s *Schema) Field(name string) (Field, bool) {
	f, ok := s.byName[name]
	return f, ok
}

// FieldNames returns the declared field names in declaration order.
func (s *Schema) FieldNames() []string {
	names := make([]string, 0, len(s.Fields))
	for _, f := range s.Fields {
		names = append(names, f.Name)
	}
	return names
}

// ApplyRecord transforms and validates fields for a write.
// The identity field passes through untouched.
func (s *Schema) ApplyRecord(fields models.Record) (models.Record, error) {
	out := make(models.Record, len(fields))
	for name, value := range fields {
		if name == models.IDField {
			out[name] = value
			continue
		}
		f, ok := s.byName[name]
		if !ok {
			return nil, fmt.Errorf("unknown field %q", name)
		}
		value = f.transform(value)
		if err := f.check(value); err != nil {
			return nil, err
		}
		out[name] = value
	}

	for _, f := range s.Fields {
		if !f.Required {
			continue
		}
		if v, ok := out[f.Name]; !ok || v == nil || v == "" {
			return nil, fmt.Errorf("field %q is required", f.Name)
		}
	}

	return out, nil
}

// ApplyFilter checks every referenced field exists and runs field transforms
// over the filter values, so a query matches the form values are stored in.
func (s *Schema) ApplyFilter(filter models.Filter) (models.Filter, error) {
	out := make(models.Filter, len(filter))
	for name, value := range filter {
		f, ok := s.byName[name]
		if name == models.IDField {
			// identities are never transformed; operand lists are still normalised
			f, ok = Field{Name: models.IDField}, true
		}
		if !ok {
			return nil, fmt.Errorf("unknown filter field %q", name)
		}

		ops, isOperator := operatorMap(value)
		if !isOperator {
			out[name] = f.transform(value)
			continue
		}

		applied := make(map[string]interface{}, len(ops))
		for op, operand := range ops {
			if !FilterOperators[op] {
				return nil, fmt.Errorf("unsupported filter operator %q on field %q", op, name)
			}
			if list, ok := toList(operand); ok {
				transformed := make([]interface{}, len(list))
				for i, item := range list {
					transformed[i] = f.transform(item)
				}
				applied[op] = transformed
				continue
			}
			applied[op] = f.transform(operand)
		}
		out[name] = applied
	}

	return out, nil
}

// ApplyMutation normalises a mutation into operator form and applies field
// transforms to $set values. A plain field map is treated as $set.
func (s *Schema) ApplyMutation(mutation models.Mutation) (models.Mutation, error) {
	if len(mutation) == 0 {
		return nil, fmt.Errorf("mutation cannot be empty")
	}

	if !hasOperatorKeys(mutation) {
		mutation = models.Mutation{SetOperator: map[string]interface{}(mutation)}
	}

	out := make(models.Mutation, len(mutation))
	for op, body := range mutation {
		if !MutationOperators[op] {
			return nil, fmt.Errorf("unsupported mutation operator %q", op)
		}
		fields, ok := toMap(body)
		if !ok {
			return nil, fmt.Errorf("mutation operator %q expects a field map", op)
		}

		applied := make(map[string]interface{}, len(fields))
		for name, value := range fields {
			if name == models.IDField {
				return nil, fmt.Errorf("the %q field cannot be mutated", models.IDField)
			}
			f, ok := s.byName[name]
			if !ok {
				return nil, fmt.Errorf("unknown mutation field %q", name)
			}

			switch op {
			case SetOperator:
				value = f.transform(value)
				if err := f.check(value); err != nil {
					return nil, err
				}
			case IncOperator:
				if f.Type != Int && f.Type != Float {
					return nil, fmt.Errorf("field %q of type %s cannot be incremented", name, f.Type)
				}
				if !isNumber(value) {
					return nil, fmt.Errorf("increment for field %q must be a number", name)
				}
			case UnsetOperator:
				if f.Required {
					return nil, fmt.Errorf("field %q is required and cannot be unset", name)
				}
			}
			applied[name] = value
		}
		out[op] = applied
	}

	return out, nil
}

// Projection validates a list of field names for a read.
func (s *Schema) Projection(fields []string) ([]string, error) {
	if len(fields) == 0 {
		return nil, nil
	}
	seen := make(map[string]bool, len(fields))
	out := make([]string, 0, len(fields))
	for _, name := range fields {
		if name != models.IDField {
			if _, ok := s.byName[name]; !ok {
				return nil, fmt.Errorf("unknown projection field %q", name)
			}
		}
		if !seen[name] {
			seen[name] = true
			out = append(out, name)
		}
	}
	sort.Strings(out)
	return out, nil
}

// SortField validates a sort field name.
func (s *Schema) SortField(name string) error {
	if name == models.IDField {
		return nil
	}
	if _, ok := s.byName[name]; !ok {
		return fmt.Errorf("unknown sort field %q", name)
	}
	return nil
}

func (f Field) transform(value interface{}) interface{} {
	for _, t := range f.Transforms {
		value = t(value)
	}
	return value
}

func (f Field) check(value interface{}) error {
	if value == nil {
		return nil
	}
	ok := false
	switch f.Type {
	case String:
		_, ok = value.(string)
	case Int:
		switch value.(type) {
		case int, int8, int16, int32, int64, uint, uint8, uint16, uint32:
			ok = true
		}
	case Float:
		ok = isNumber(value)
	case Bool:
		_, ok = value.(bool)
	case Time:
		_, ok = value.(time.Time)
	}
	if !ok {
		return fmt.Errorf("field %q expects %s, got %T", f.Name, f.Type, value)
	}
	return nil
}

func isNumber(value interface{}) bool {
	switch value.(type) {
	case int, int8, int16, int32, int64, uint, uint8, uint16, uint32, uint64, float32, float64:
		return true
	}
	return false
}
