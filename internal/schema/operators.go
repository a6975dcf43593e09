package schema

import (
	"reflect"
	"strings"

	"github.com/haguru/bookshelf/internal/models"
)

const (
	SetOperator   = "$set"
	UnsetOperator = "$unset"
	IncOperator   = "$inc"
)

// FilterOperators are the comparison operators a filter may use.
var FilterOperators = map[string]bool{
	"$eq":  true,
	"$ne":  true,
	"$gt":  true,
	"$gte": true,
	"$lt":  true,
	"$lte": true,
	"$in":  true,
}

// MutationOperators are the update operators a mutation may use.
var MutationOperators = map[string]bool{
	SetOperator:   true,
	UnsetOperator: true,
	IncOperator:   true,
}

// operatorMap reports whether value is a non-empty map whose keys are all operators.
func operatorMap(value interface{}) (map[string]interface{}, bool) {
	m, ok := toMap(value)
	if !ok || len(m) == 0 {
		return nil, false
	}
	for k := range m {
		if !strings.HasPrefix(k, "$") {
			return nil, false
		}
	}
	return m, true
}

func hasOperatorKeys(mutation models.Mutation) bool {
	for k := range mutation {
		if strings.HasPrefix(k, "$") {
			return true
		}
	}
	return false
}

func toMap(value interface{}) (map[string]interface{}, bool) {
	switch m := value.(type) {
	case map[string]interface{}:
		return m, true
	case models.Record:
		return m, true
	case models.Filter:
		return m, true
	case models.Mutation:
		return m, true
	}
	return nil, false
}

// toList copies any slice or array operand, such as a []string given to $in,
// into a []interface{}. Byte slices are values, not lists.
func toList(value interface{}) ([]interface{}, bool) {
	if list, ok := value.([]interface{}); ok {
		return list, true
	}
	v := reflect.ValueOf(value)
	if v.Kind() != reflect.Slice && v.Kind() != reflect.Array {
		return nil, false
	}
	if v.Type().Elem().Kind() == reflect.Uint8 {
		return nil, false
	}
	list := make([]interface{}, v.Len())
	for i := range list {
		list[i] = v.Index(i).Interface()
	}
	return list, true
}
