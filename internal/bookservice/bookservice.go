package bookservice

import (
	"context"
	"fmt"

	"github.com/haguru/bookshelf/internal/interfaces"
	storemetrics "github.com/haguru/bookshelf/internal/metrics"
	"github.com/haguru/bookshelf/internal/models"
	"github.com/haguru/bookshelf/internal/schema"
	"github.com/haguru/bookshelf/pkg/databases"
	"github.com/haguru/bookshelf/pkg/helper"
)

var _ interfaces.BookService = (*BookService)(nil)

type BookService struct {
	BookRepo interfaces.BookRepository
	DB       interfaces.DBClient
	Logger   interfaces.Logger
	Metrics  interfaces.Metrics
}

// NewBookService creates a new BookService instance.
func NewBookService(repo interfaces.BookRepository, db interfaces.DBClient, logger interfaces.Logger, metrics interfaces.Metrics) *BookService {
	return &BookService{
		BookRepo: repo,
		DB:       db,
		Logger:   logger,
		Metrics:  metrics,
	}
}

// CreateBook stores a new book. The author is normalised by the book schema.
func (s *BookService) CreateBook(ctx context.Context, title, author string) (*models.Book, error) {
	funcName := helper.GetFuncName()
	s.Logger.Debug("Entering function", "func", funcName, "title", title)
	defer s.Logger.Debug("Exiting function", "func", funcName, "title", title)

	book, err := s.BookRepo.Create(ctx, *models.NewBook(title, author))
	if err != nil {
		s.Logger.Error(ErrFailedToCreateBook, "func", funcName, "title", title, "error", err)
		return nil, fmt.Errorf("%s: %w", ErrFailedToCreateBook, err)
	}

	s.Logger.Info("Book created successfully", "func", funcName, "title", book.Title, "ID", book.ID)
	return book, nil
}

// SaveBook replaces the book with book.ID, creating it when it does not exist.
func (s *BookService) SaveBook(ctx context.Context, book models.Book) (*models.Book, error) {
	funcName := helper.GetFuncName()
	s.Logger.Debug("Entering function", "func", funcName, "ID", book.ID)
	defer s.Logger.Debug("Exiting function", "func", funcName, "ID", book.ID)

	if book.ID == "" {
		return nil, databases.NewValidationError("save", models.BookCollection, MsgMissingIdentifier)
	}

	saved, err := s.BookRepo.Save(ctx, book)
	if err != nil {
		s.Logger.Error(ErrFailedToSaveBook, "func", funcName, "ID", book.ID, "error", err)
		return nil, fmt.Errorf("%s: %w", ErrFailedToSaveBook, err)
	}

	s.Logger.Info("Book saved successfully", "func", funcName, "ID", saved.ID)
	return saved, nil
}

// GetBook returns the book with the given id, or nil when there is none.
func (s *BookService) GetBook(ctx context.Context, id string) (*models.Book, error) {
	return s.FindBook(ctx, models.Filter{models.IDField: id})
}

// FindBook returns the first book matching filter, or nil when there is none.
func (s *BookService) FindBook(ctx context.Context, filter models.Filter) (*models.Book, error) {
	funcName := helper.GetFuncName()
	s.Logger.Debug("Entering function", "func", funcName, "filter", filter)
	defer s.Logger.Debug("Exiting function", "func", funcName)

	book, err := s.BookRepo.FindOne(ctx, filter)
	if err != nil {
		s.Logger.Error(ErrRetrievingBook, "func", funcName, "filter", filter, "error", err)
		return nil, fmt.Errorf("%s: %w", ErrRetrievingBook, err)
	}
	return book, nil
}

func (s *BookService) ListBooks(ctx context.Context, filter models.Filter) ([]models.Book, error) {
	funcName := helper.GetFuncName()
	s.Logger.Debug("Entering function", "func", funcName, "filter", filter)
	defer s.Logger.Debug("Exiting function", "func", funcName)

	books, err := s.BookRepo.FindAll(ctx, filter)
	if err != nil {
		s.Logger.Error(ErrListingBooks, "func", funcName, "filter", filter, "error", err)
		return nil, fmt.Errorf("%s: %w", ErrListingBooks, err)
	}
	return books, nil
}

// FirstBook returns the first matching book under the given order, or nil.
func (s *BookService) FirstBook(ctx context.Context, filter models.Filter, orderField string, direction models.SortDirection) (*models.Book, error) {
	funcName := helper.GetFuncName()
	s.Logger.Debug("Entering function", "func", funcName, "filter", filter, "sort", orderField, "direction", direction.String())
	defer s.Logger.Debug("Exiting function", "func", funcName)

	book, err := s.BookRepo.FindOneOrdered(ctx, filter, orderField, direction)
	if err != nil {
		s.Logger.Error(ErrRetrievingBook, "func", funcName, "filter", filter, "error", err)
		return nil, fmt.Errorf("%s: %w", ErrRetrievingBook, err)
	}
	return book, nil
}

// UpdateBooks sets fields on every book matching filter.
func (s *BookService) UpdateBooks(ctx context.Context, filter models.Filter, set map[string]interface{}) (models.UpdateResult, error) {
	funcName := helper.GetFuncName()
	s.Logger.Debug("Entering function", "func", funcName, "filter", filter)
	defer s.Logger.Debug("Exiting function", "func", funcName)

	if len(set) == 0 {
		return models.UpdateResult{}, databases.NewValidationError("update", models.BookCollection, MsgEmptyUpdate)
	}

	res, err := s.BookRepo.Update(ctx, filter, models.Mutation{schema.SetOperator: set})
	if err != nil {
		s.Logger.Error(ErrFailedToUpdateBooks, "func", funcName, "filter", filter, "error", err)
		return models.UpdateResult{}, fmt.Errorf("%s: %w", ErrFailedToUpdateBooks, err)
	}

	s.Logger.Info("Books updated", "func", funcName, "matched", res.Matched, "modified", res.Modified)
	return res, nil
}

// RemoveBooks deletes every book matching filter. An empty filter is refused.
func (s *BookService) RemoveBooks(ctx context.Context, filter models.Filter) (models.DeleteResult, error) {
	funcName := helper.GetFuncName()
	s.Logger.Debug("Entering function", "func", funcName, "filter", filter)
	defer s.Logger.Debug("Exiting function", "func", funcName)

	if len(filter) == 0 {
		return models.DeleteResult{}, databases.NewValidationError("remove", models.BookCollection, MsgUnfilteredRemove)
	}

	res, err := s.BookRepo.Remove(ctx, filter)
	if err != nil {
		s.Logger.Error(ErrFailedToRemoveBooks, "func", funcName, "filter", filter, "error", err)
		return models.DeleteResult{}, fmt.Errorf("%s: %w", ErrFailedToRemoveBooks, err)
	}

	s.Logger.Info("Books removed", "func", funcName, "deleted", res.Deleted)
	return res, nil
}

// Ping checks the database link and records the result in the database_up gauge.
func (s *BookService) Ping(ctx context.Context) error {
	if err := s.DB.Ping(ctx); err != nil {
		s.Metrics.SetGauge(storemetrics.DatabaseUp, 0)
		s.Logger.Warn(ErrDatabaseUnreachable, "error", err)
		return fmt.Errorf("%s: %w", ErrDatabaseUnreachable, err)
	}
	s.Metrics.SetGauge(storemetrics.DatabaseUp, 1)
	return nil
}
