package mocks

import (
	"context"

	"github.com/haguru/bookshelf/internal/models"

	"github.com/stretchr/testify/mock"
)

// Mock book service for testing
type MockBookService struct {
	mock.Mock
}

func (m *MockBookService) CreateBook(ctx context.Context, title, author string) (*models.Book, error) {
	args := m.Called(ctx, title, author)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.Book), args.Error(1)
}

func (m *MockBookService) SaveBook(ctx context.Context, book models.Book) (*models.Book, error) {
	args := m.Called(ctx, book)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.Book), args.Error(1)
}

func (m *MockBookService) GetBook(ctx context.Context, id string) (*models.Book, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.Book), args.Error(1)
}

func (m *MockBookService) FindBook(ctx context.Context, filter models.Filter) (*models.Book, error) {
	args := m.Called(ctx, filter)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.Book), args.Error(1)
}

func (m *MockBookService) ListBooks(ctx context.Context, filter models.Filter) ([]models.Book, error) {
	args := m.Called(ctx, filter)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]models.Book), args.Error(1)
}

func (m *MockBookService) FirstBook(ctx context.Context, filter models.Filter, orderField string, direction models.SortDirection) (*models.Book, error) {
	args := m.Called(ctx, filter, orderField, direction)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.Book), args.Error(1)
}

func (m *MockBookService) UpdateBooks(ctx context.Context, filter models.Filter, set map[string]interface{}) (models.UpdateResult, error) {
	args := m.Called(ctx, filter, set)
	return args.Get(0).(models.UpdateResult), args.Error(1)
}

func (m *MockBookService) RemoveBooks(ctx context.Context, filter models.Filter) (models.DeleteResult, error) {
	args := m.Called(ctx, filter)
	return args.Get(0).(models.DeleteResult), args.Error(1)
}

func (m *MockBookService) Ping(ctx context.Context) error {
	args := m.Called(ctx)
	return args.Error(0)
}
