package repository

import (
	"context"
	"time"

	"github.com/haguru/bookshelf/internal/interfaces"
	"github.com/haguru/bookshelf/internal/models"
	"github.com/haguru/bookshelf/pkg/databases"

	"github.com/go-viper/mapstructure/v2"
)

// timeLayout parses time fields that reach a record as strings (from the cache).
const timeLayout = time.RFC3339Nano

// Repository re-exposes a RecordStore typed as T. T is converted to and from
// records through its mapstructure tags; the identity field is tagged "_id".
type Repository[T any] struct {
	store interfaces.RecordStore
}

// New binds a repository to store.
func New[T any](store interfaces.RecordStore) *Repository[T] {
	return &Repository[T]{store: store}
}

// Store returns the underlying record store.
func (r *Repository[T]) Store() interfaces.RecordStore {
	return r.store
}

func (r *Repository[T]) Create(ctx context.Context, entity T) (*T, error) {
	fields, err := r.toRecord(entity)
	if err != nil {
		return nil, err
	}
	record, err := r.store.Create(ctx, fields)
	if err != nil {
		return nil, err
	}
	return r.fromRecord(record)
}

// Save replaces the entity when it carries an identity and creates it otherwise.
func (r *Repository[T]) Save(ctx context.Context, entity T) (*T, error) {
	fields, err := r.toRecord(entity)
	if err != nil {
		return nil, err
	}
	record, err := r.store.Save(ctx, fields)
	if err != nil {
		return nil, err
	}
	return r.fromRecord(record)
}

// FindOne returns nil, nil when nothing matches.
func (r *Repository[T]) FindOne(ctx context.Context, filter models.Filter, projection ...string) (*T, error) {
	record, err := r.store.FindOne(ctx, filter, projection...)
	if err != nil || record == nil {
		return nil, err
	}
	return r.fromRecord(record)
}

func (r *Repository[T]) FindAll(ctx context.Context, filter models.Filter, projection ...string) ([]T, error) {
	records, err := r.store.FindAll(ctx, filter, projection...)
	if err != nil {
		return nil, err
	}

	entities := make([]T, 0, len(records))
	for _, record := range records {
		entity, err := r.fromRecord(record)
		if err != nil {
			return nil, err
		}
		entities = append(entities, *entity)
	}
	return entities, nil
}

func (r *Repository[T]) FindOneOrdered(ctx context.Context, filter models.Filter, orderField string, direction models.SortDirection) (*T, error) {
	record, err := r.store.FindOneOrdered(ctx, filter, orderField, direction)
	if err != nil || record == nil {
		return nil, err
	}
	return r.fromRecord(record)
}

func (r *Repository[T]) Update(ctx context.Context, filter models.Filter, mutation models.Mutation) (models.UpdateResult, error) {
	return r.store.Update(ctx, filter, mutation)
}

func (r *Repository[T]) Remove(ctx context.Context, filter models.Filter) (models.DeleteResult, error) {
	return r.store.Remove(ctx, filter)
}

func (r *Repository[T]) EnsureIndexes(ctx context.Context) error {
	return r.store.EnsureIndexes(ctx)
}

func (r *Repository[T]) toRecord(entity T) (models.Record, error) {
	fields := map[string]interface{}{}
	if err := mapstructure.Decode(entity, &fields); err != nil {
		return nil, databases.NewPersistenceError("encode", r.store.Collection(), databases.KindValidation, err)
	}
	return models.Record(fields), nil
}

func (r *Repository[T]) fromRecord(record models.Record) (*T, error) {
	entity := new(T)
	decoder, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
		Result:     entity,
		TagName:    "mapstructure",
		DecodeHook: mapstructure.StringToTimeHookFunc(timeLayout),
	})
	if err != nil {
		return nil, err
	}
	if err := decoder.Decode(map[string]interface{}(record)); err != nil {
		return nil, databases.NewPersistenceError("decode", r.store.Collection(), databases.KindQuery, err)
	}
	return entity, nil
}
