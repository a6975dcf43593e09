package mocks

import (
	"context"

	"github.com/haguru/bookshelf/internal/models"

	"github.com/stretchr/testify/mock"
)

// Mock book repository for testing
type MockBookRepository struct {
	mock.Mock
}

func (m *MockBookRepository) Create(ctx context.Context, book models.Book) (*models.Book, error) {
	args := m.Called(ctx, book)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.Book), args.Error(1)
}

func (m *MockBookRepository) Save(ctx context.Context, book models.Book) (*models.Book, error) {
	args := m.Called(ctx, book)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.Book), args.Error(1)
}

func (m *MockBookRepository) FindOne(ctx context.Context, filter models.Filter, projection ...string) (*models.Book, error) {
	args := m.Called(ctx, filter, projection)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.Book), args.Error(1)
}

func (m *MockBookRepository) FindAll(ctx context.Context, filter models.Filter, projection ...string) ([]models.Book, error) {
	args := m.Called(ctx, filter, projection)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]models.Book), args.Error(1)
}

func (m *MockBookRepository) FindOneOrdered(ctx context.Context, filter models.Filter, orderField string, direction models.SortDirection) (*models.Book, error) {
	args := m.Called(ctx, filter, orderField, direction)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.Book), args.Error(1)
}

func (m *MockBookRepository) Update(ctx context.Context, filter models.Filter, mutation models.Mutation) (models.UpdateResult, error) {
	args := m.Called(ctx, filter, mutation)
	return args.Get(0).(models.UpdateResult), args.Error(1)
}

func (m *MockBookRepository) Remove(ctx context.Context, filter models.Filter) (models.DeleteResult, error) {
	args := m.Called(ctx, filter)
	return args.Get(0).(models.DeleteResult), args.Error(1)
}

func (m *MockBookRepository) EnsureIndexes(ctx context.Context) error {
	args := m.Called(ctx)
	return args.Error(0)
}
