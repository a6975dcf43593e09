package schema

import (
	"testing"
	"time"

	"github.com/haguru/bookshelf/internal/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestSchema(t *testing.T) *Schema {
	t.Helper()
	s, err := New("book",
		Field{Name: "title", Type: String, Required: true, Index: true},
		Field{Name: "author", Type: String, Transforms: []Transform{TrimSpace, Lowercase}},
		Field{Name: "pages", Type: Int},
		Field{Name: "rating", Type: Float},
		Field{Name: "published", Type: Time},
	)
	require.NoError(t, err)
	return s
}

func TestNew(t *testing.T) {
	tests := []struct {
		name       string
		collection string
		fields     []Field
		wantErr    bool
	}{
		{name: "valid", collection: "book", fields: []Field{{Name: "title", Type: String}}},
		{name: "empty collection", collection: "", wantErr: true},
		{name: "dotted collection", collection: "a.b", wantErr: true},
		{name: "id field declared", collection: "book", fields: []Field{{Name: "_id", Type: String}}, wantErr: true},
		{name: "operator field", collection: "book", fields: []Field{{Name: "$where", Type: String}}, wantErr: true},
		{name: "duplicate field", collection: "book", fields: []Field{{Name: "a", Type: String}, {Name: "a", Type: Int}}, wantErr: true},
		{name: "unknown type", collection: "book", fields: []Field{{Name: "a", Type: "blob"}}, wantErr: true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := New(tt.collection, tt.fields...)
			if (err != nil) != tt.wantErr {
				t.Errorf("New() error = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}

func TestSchema_ApplyRecord(t *testing.T) {
	s := newTestSchema(t)
	now := time.Date(2017, 8, 31, 10, 40, 0, 0, time.UTC)

	tests := []struct {
		name    string
		fields  models.Record
		want    models.Record
		wantErr bool
	}{
		{
			name:   "author is lowercased",
			fields: models.Record{"title": "Three Kingdoms", "author": "Luo Guanzhong"},
			want:   models.Record{"title": "Three Kingdoms", "author": "luo guanzhong"},
		},
		{
			name:   "transforms run in order",
			fields: models.Record{"title": "T", "author": "  MA HUA  "},
			want:   models.Record{"title": "T", "author": "ma hua"},
		},
		{
			name:   "identity passes through",
			fields: models.Record{models.IDField: "abc", "title": "T", "pages": 10, "published": now},
			want:   models.Record{models.IDField: "abc", "title": "T", "pages": 10, "published": now},
		},
		{
			name:    "unknown field",
			fields:  models.Record{"title": "T", "isbn": "123"},
			wantErr: true,
		},
		{
			name:    "wrong type",
			fields:  models.Record{"title": "T", "pages": "many"},
			wantErr: true,
		},
		{
			name:    "missing required",
			fields:  models.Record{"author": "someone"},
			wantErr: true,
		},
		{
			name:    "empty required",
			fields:  models.Record{"title": ""},
			wantErr: true,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := s.ApplyRecord(tt.fields)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestSchema_ApplyRecord_DoesNotMutateInput(t *testing.T) {
	s := newTestSchema(t)
	in := models.Record{"title": "T", "author": "Luo Guanzhong"}

	_, err := s.ApplyRecord(in)
	require.NoError(t, err)
	assert.Equal(t, "Luo Guanzhong", in["author"])
}

func TestSchema_ApplyFilter(t *testing.T) {
	s := newTestSchema(t)

	tests := []struct {
		name    string
		filter  models.Filter
		want    models.Filter
		wantErr bool
	}{
		{
			name:   "equality values are transformed",
			filter: models.Filter{"author": "Luo Guanzhong"},
			want:   models.Filter{"author": "luo guanzhong"},
		},
		{
			name:   "operator operands are transformed",
			filter: models.Filter{"author": map[string]interface{}{"$in": []interface{}{"A", "B"}}, "pages": map[string]interface{}{"$gt": 100}},
			want:   models.Filter{"author": map[string]interface{}{"$in": []interface{}{"a", "b"}}, "pages": map[string]interface{}{"$gt": 100}},
		},
		{
			name:   "typed operand lists are transformed",
			filter: models.Filter{"author": map[string]interface{}{"$in": []string{"Luo Guanzhong", " Happy "}}},
			want:   models.Filter{"author": map[string]interface{}{"$in": []interface{}{"luo guanzhong", "happy"}}},
		},
		{
			name:   "int operand lists become generic lists",
			filter: models.Filter{"pages": map[string]interface{}{"$in": []int{100, 200}}},
			want:   models.Filter{"pages": map[string]interface{}{"$in": []interface{}{100, 200}}},
		},
		{
			name:   "identity operand lists are normalised, not transformed",
			filter: models.Filter{models.IDField: map[string]interface{}{"$in": []string{"A1", "b2"}}},
			want:   models.Filter{models.IDField: map[string]interface{}{"$in": []interface{}{"A1", "b2"}}},
		},
		{
			name:   "identity passes through",
			filter: models.Filter{models.IDField: "abc"},
			want:   models.Filter{models.IDField: "abc"},
		},
		{
			name:   "empty filter",
			filter: models.Filter{},
			want:   models.Filter{},
		},
		{
			name:    "unknown field",
			filter:  models.Filter{"isbn": "123"},
			wantErr: true,
		},
		{
			name:    "unsupported operator",
			filter:  models.Filter{"title": map[string]interface{}{"$where": "1"}},
			wantErr: true,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := s.ApplyFilter(tt.filter)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestSchema_ApplyMutation(t *testing.T) {
	s := newTestSchema(t)

	tests := []struct {
		name     string
		mutation models.Mutation
		want     models.Mutation
		wantErr  bool
	}{
		{
			name:     "plain map becomes $set",
			mutation: models.Mutation{"author": "Happy"},
			want:     models.Mutation{SetOperator: map[string]interface{}{"author": "happy"}},
		},
		{
			name:     "explicit $set is transformed",
			mutation: models.Mutation{SetOperator: map[string]interface{}{"author": "Happy"}},
			want:     models.Mutation{SetOperator: map[string]interface{}{"author": "happy"}},
		},
		{
			name:     "$inc on numeric field",
			mutation: models.Mutation{IncOperator: map[string]interface{}{"pages": 2}},
			want:     models.Mutation{IncOperator: map[string]interface{}{"pages": 2}},
		},
		{
			name:     "$unset optional field",
			mutation: models.Mutation{UnsetOperator: map[string]interface{}{"author": ""}},
			want:     models.Mutation{UnsetOperator: map[string]interface{}{"author": ""}},
		},
		{name: "empty", mutation: models.Mutation{}, wantErr: true},
		{name: "identity", mutation: models.Mutation{models.IDField: "x"}, wantErr: true},
		{name: "unknown field", mutation: models.Mutation{"isbn": "x"}, wantErr: true},
		{name: "unknown operator", mutation: models.Mutation{"$rename": map[string]interface{}{"title": "name"}}, wantErr: true},
		{name: "$inc on string", mutation: models.Mutation{IncOperator: map[string]interface{}{"title": 1}}, wantErr: true},
		{name: "$unset required", mutation: models.Mutation{UnsetOperator: map[string]interface{}{"title": ""}}, wantErr: true},
		{name: "$set wrong type", mutation: models.Mutation{SetOperator: map[string]interface{}{"pages": "x"}}, wantErr: true},
		{name: "operator without map", mutation: models.Mutation{SetOperator: "x"}, wantErr: true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := s.ApplyMutation(tt.mutation)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestSchema_ApplyMutation_Idempotent(t *testing.T) {
	s := newTestSchema(t)
	m := models.Mutation{"author": "Happy"}

	once, err := s.ApplyMutation(m)
	require.NoError(t, err)
	twice, err := s.ApplyMutation(once)
	require.NoError(t, err)
	assert.Equal(t, once, twice)
}

func TestSchema_Projection(t *testing.T) {
	s := newTestSchema(t)

	got, err := s.Projection([]string{"title", "_id", "title"})
	require.NoError(t, err)
	assert.Equal(t, []string{"_id", "title"}, got)

	got, err = s.Projection(nil)
	require.NoError(t, err)
	assert.Nil(t, got)

	_, err = s.Projection([]string{"isbn"})
	assert.Error(t, err)
}

func TestSchema_SortField(t *testing.T) {
	s := newTestSchema(t)
	assert.NoError(t, s.SortField("title"))
	assert.NoError(t, s.SortField(models.IDField))
	assert.Error(t, s.SortField("isbn"))
}

func TestTransforms(t *testing.T) {
	assert.Equal(t, "abc", Lowercase("AbC"))
	assert.Equal(t, "ABC", Uppercase("AbC"))
	assert.Equal(t, "a b", TrimSpace("  a b "))
	assert.Equal(t, 3, Lowercase(3))
	assert.Nil(t, TrimSpace(nil))
}
