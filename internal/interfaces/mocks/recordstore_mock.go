package mocks

import (
	"context"

	"github.com/haguru/bookshelf/internal/models"
	"github.com/haguru/bookshelf/internal/schema"

	"github.com/stretchr/testify/mock"
)

// Mock record store for testing
type MockRecordStore struct {
	mock.Mock
}

func (m *MockRecordStore) Create(ctx context.Context, fields models.Record) (models.Record, error) {
	args := m.Called(ctx, fields)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(models.Record), args.Error(1)
}

func (m *MockRecordStore) Save(ctx context.Context, fields models.Record) (models.Record, error) {
	args := m.Called(ctx, fields)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(models.Record), args.Error(1)
}

func (m *MockRecordStore) FindOne(ctx context.Context, filter models.Filter, projection ...string) (models.Record, error) {
	args := m.Called(ctx, filter, projection)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(models.Record), args.Error(1)
}

func (m *MockRecordStore) FindAll(ctx context.Context, filter models.Filter, projection ...string) ([]models.Record, error) {
	args := m.Called(ctx, filter, projection)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]models.Record), args.Error(1)
}

func (m *MockRecordStore) FindOneOrdered(ctx context.Context, filter models.Filter, orderField string, direction models.SortDirection) (models.Record, error) {
	args := m.Called(ctx, filter, orderField, direction)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(models.Record), args.Error(1)
}

func (m *MockRecordStore) Update(ctx context.Context, filter models.Filter, mutation models.Mutation) (models.UpdateResult, error) {
	args := m.Called(ctx, filter, mutation)
	return args.Get(0).(models.UpdateResult), args.Error(1)
}

func (m *MockRecordStore) Remove(ctx context.Context, filter models.Filter) (models.DeleteResult, error) {
	args := m.Called(ctx, filter)
	return args.Get(0).(models.DeleteResult), args.Error(1)
}

func (m *MockRecordStore) EnsureIndexes(ctx context.Context) error {
	args := m.Called(ctx)
	return args.Error(0)
}

func (m *MockRecordStore) Collection() string {
	args := m.Called()
	return args.String(0)
}

func (m *MockRecordStore) Schema() *schema.Schema {
	args := m.Called()
	if args.Get(0) == nil {
		return nil
	}
	return args.Get(0).(*schema.Schema)
}
