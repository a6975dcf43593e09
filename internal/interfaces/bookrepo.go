package interfaces

import (
	"context"

	"github.com/haguru/bookshelf/internal/models"
)

// BookRepository is the typed repository the book service works against.
type BookRepository interface {
	Create(ctx context.Context, book models.Book) (*models.Book, error)
	Save(ctx context.Context, book models.Book) (*models.Book, error)
	FindOne(ctx context.Context, filter models.Filter, projection ...string) (*models.Book, error)
	FindAll(ctx context.Context, filter models.Filter, projection ...string) ([]models.Book, error)
	FindOneOrdered(ctx context.Context, filter models.Filter, orderField string, direction models.SortDirection) (*models.Book, error)
	Update(ctx context.Context, filter models.Filter, mutation models.Mutation) (models.UpdateResult, error)
	Remove(ctx context.Context, filter models.Filter) (models.DeleteResult, error)
	EnsureIndexes(ctx context.Context) error
}
