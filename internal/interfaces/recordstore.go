package interfaces

import (
	"context"

	"github.com/haguru/bookshelf/internal/models"
	"github.com/haguru/bookshelf/internal/schema"
)

// RecordStore performs create, read, update and delete against one collection.
// Absence is never an error: finders return nil (or an empty slice) instead.
type RecordStore interface {
	Create(ctx context.Context, fields models.Record) (models.Record, error)
	Save(ctx context.Context, fields models.Record) (models.Record, error)
	FindOne(ctx context.Context, filter models.Filter, projection ...string) (models.Record, error)
	FindAll(ctx context.Context, filter models.Filter, projection ...string) ([]models.Record, error)
	FindOneOrdered(ctx context.Context, filter models.Filter, orderField string, direction models.SortDirection) (models.Record, error)
	Update(ctx context.Context, filter models.Filter, mutation models.Mutation) (models.UpdateResult, error)
	Remove(ctx context.Context, filter models.Filter) (models.DeleteResult, error)
	EnsureIndexes(ctx context.Context) error
	Collection() string
	Schema() *schema.Schema
}
