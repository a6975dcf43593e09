package mocks

import (
	"context"

	"github.com/haguru/bookshelf/internal/models"
	"github.com/haguru/bookshelf/internal/schema"

	"github.com/stretchr/testify/mock"
)

// Mock database client for testing
type MockDBClient struct {
	mock.Mock
}

func (m *MockDBClient) Connect(ctx context.Context, dsn string) error {
	args := m.Called(ctx, dsn)
	return args.Error(0)
}

func (m *MockDBClient) Disconnect(ctx context.Context) error {
	args := m.Called(ctx)
	return args.Error(0)
}

func (m *MockDBClient) Err() error {
	args := m.Called()
	return args.Error(0)
}

func (m *MockDBClient) InsertOne(ctx context.Context, collectionName string, record models.Record) (string, error) {
	args := m.Called(ctx, collectionName, record)
	return args.String(0), args.Error(1)
}

func (m *MockDBClient) ReplaceOne(ctx context.Context, collectionName string, id string, record models.Record) error {
	args := m.Called(ctx, collectionName, id, record)
	return args.Error(0)
}

func (m *MockDBClient) FindOne(ctx context.Context, collectionName string, filter models.Filter, opts models.FindOptions) (models.Record, error) {
	args := m.Called(ctx, collectionName, filter, opts)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(models.Record), args.Error(1)
}

func (m *MockDBClient) FindMany(ctx context.Context, collectionName string, filter models.Filter, opts models.FindOptions) ([]models.Record, error) {
	args := m.Called(ctx, collectionName, filter, opts)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]models.Record), args.Error(1)
}

func (m *MockDBClient) UpdateMany(ctx context.Context, collectionName string, filter models.Filter, mutation models.Mutation) (models.UpdateResult, error) {
	args := m.Called(ctx, collectionName, filter, mutation)
	return args.Get(0).(models.UpdateResult), args.Error(1)
}

func (m *MockDBClient) DeleteMany(ctx context.Context, collectionName string, filter models.Filter) (models.DeleteResult, error) {
	args := m.Called(ctx, collectionName, filter)
	return args.Get(0).(models.DeleteResult), args.Error(1)
}

func (m *MockDBClient) EnsureCollection(ctx context.Context, s *schema.Schema) error {
	args := m.Called(ctx, s)
	return args.Error(0)
}

func (m *MockDBClient) EnsureIndex(ctx context.Context, collectionName string, field string, unique bool) error {
	args := m.Called(ctx, collectionName, field, unique)
	return args.Error(0)
}

func (m *MockDBClient) Ping(ctx context.Context) error {
	args := m.Called(ctx)
	return args.Error(0)
}
