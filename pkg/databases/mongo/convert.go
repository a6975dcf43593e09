package mongo

import (
	"fmt"

	"github.com/haguru/bookshelf/internal/models"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

func newObjectID() primitive.ObjectID {
	return primitive.NewObjectID()
}

// toMongoID converts a hex identity to an ObjectID; any other string is kept as is.
func toMongoID(id string) interface{} {
	if oid, err := primitive.ObjectIDFromHex(id); err == nil {
		return oid
	}
	return id
}

func idString(v interface{}) string {
	switch id := v.(type) {
	case primitive.ObjectID:
		return id.Hex()
	case string:
		return id
	default:
		return fmt.Sprint(id)
	}
}

func toMongoDocument(record models.Record) bson.M {
	doc := make(bson.M, len(record))
	for k, v := range record {
		if k == IDFIELD {
			doc[k] = convertIDValue(v)
			continue
		}
		doc[k] = v
	}
	return doc
}

// toMongoFilter copies the filter, converting identity values to ObjectIDs.
func toMongoFilter(filter models.Filter) bson.M {
	out := make(bson.M, len(filter))
	for k, v := range filter {
		if k == IDFIELD {
			out[k] = convertIDValue(v)
			continue
		}
		out[k] = v
	}
	return out
}

func convertIDValue(v interface{}) interface{} {
	switch id := v.(type) {
	case string:
		return toMongoID(id)
	case []string:
		out := make([]interface{}, len(id))
		for i, s := range id {
			out[i] = toMongoID(s)
		}
		return out
	case []interface{}:
		out := make([]interface{}, len(id))
		for i, s := range id {
			out[i] = convertIDValue(s)
		}
		return out
	case map[string]interface{}:
		out := make(map[string]interface{}, len(id))
		for op, operand := range id {
			out[op] = convertIDValue(operand)
		}
		return out
	default:
		return v
	}
}

// fromMongoDocument converts driver types back to plain Go values.
func fromMongoDocument(doc bson.M) models.Record {
	record := make(models.Record, len(doc))
	for k, v := range doc {
		if k == IDFIELD {
			record[k] = idString(v)
			continue
		}
		record[k] = fromMongoValue(v)
	}
	return record
}

func fromMongoValue(v interface{}) interface{} {
	switch val := v.(type) {
	case primitive.DateTime:
		return val.Time().UTC()
	case primitive.ObjectID:
		return val.Hex()
	case bson.M:
		out := make(map[string]interface{}, len(val))
		for k, nested := range val {
			out[k] = fromMongoValue(nested)
		}
		return out
	case bson.D:
		out := make(map[string]interface{}, len(val))
		for _, e := range val {
			out[e.Key] = fromMongoValue(e.Value)
		}
		return out
	case bson.A:
		out := make([]interface{}, len(val))
		for i, nested := range val {
			out[i] = fromMongoValue(nested)
		}
		return out
	default:
		return v
	}
}

func sortDocument(sorts []models.Sort) bson.D {
	d := make(bson.D, 0, len(sorts))
	for _, s := range sorts {
		d = append(d, bson.E{Key: s.Field, Value: int(s.Direction)})
	}
	return d
}

func projectionDocument(fields []string) bson.D {
	d := make(bson.D, 0, len(fields))
	for _, f := range fields {
		d = append(d, bson.E{Key: f, Value: 1})
	}
	return d
}
