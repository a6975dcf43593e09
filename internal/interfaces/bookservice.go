package interfaces

import (
	"context"

	"github.com/haguru/bookshelf/internal/models"
)

// BookService is what the HTTP routes need from the book layer.
type BookService interface {
	CreateBook(ctx context.Context, title, author string) (*models.Book, error)
	SaveBook(ctx context.Context, book models.Book) (*models.Book, error)
	GetBook(ctx context.Context, id string) (*models.Book, error)
	FindBook(ctx context.Context, filter models.Filter) (*models.Book, error)
	ListBooks(ctx context.Context, filter models.Filter) ([]models.Book, error)
	FirstBook(ctx context.Context, filter models.Filter, orderField string, direction models.SortDirection) (*models.Book, error)
	UpdateBooks(ctx context.Context, filter models.Filter, set map[string]interface{}) (models.UpdateResult, error)
	RemoveBooks(ctx context.Context, filter models.Filter) (models.DeleteResult, error)
	Ping(ctx context.Context) error
}
