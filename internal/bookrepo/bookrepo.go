package bookrepo

import (
	"github.com/haguru/bookshelf/internal/interfaces"
	"github.com/haguru/bookshelf/internal/models"
	"github.com/haguru/bookshelf/internal/recordstore"
	"github.com/haguru/bookshelf/internal/repository"
	"github.com/haguru/bookshelf/internal/schema"
)

// BookRepository is the typed repository for books.
type BookRepository = repository.Repository[models.Book]

// Schema returns the book schema: an indexed title and an author that is
// lowercased before every write.
func Schema() *schema.Schema {
	s, err := schema.New(models.BookCollection,
		schema.Field{Name: "title", Type: schema.String, Index: true},
		schema.Field{Name: "author", Type: schema.String, Transforms: []schema.Transform{schema.Lowercase}},
	)
	if err != nil {
		// the field list above is static
		panic(err)
	}
	return s
}

// NewBookStore builds the record store for the book collection.
func NewBookStore(client interfaces.DBClient, logger interfaces.Logger, metrics interfaces.Metrics) *recordstore.Store {
	return recordstore.NewStore(client, Schema(), logger, metrics)
}

// NewBookRepository wraps store as a BookRepository.
func NewBookRepository(store interfaces.RecordStore) *BookRepository {
	return repository.New[models.Book](store)
}
