package routes

import (
	"encoding/json"
	"fmt"
	"net/http"
	"strconv"

	"github.com/haguru/bookshelf/internal/interfaces"
	storemetrics "github.com/haguru/bookshelf/internal/metrics"
	"github.com/haguru/bookshelf/internal/models"
	"github.com/haguru/bookshelf/internal/models/dto"
	"github.com/haguru/bookshelf/pkg/databases"

	"github.com/felixge/httpsnoop"
	structValidator "github.com/go-playground/validator/v10"
)

type Route struct {
	Metrics     interfaces.Metrics
	BookService interfaces.BookService
	validator   *structValidator.Validate
}

// NewRoute creates a new Route instance.
func NewRoute(metrics interfaces.Metrics, bookService interfaces.BookService, validator *structValidator.Validate) *Route {
	return &Route{
		Metrics:     metrics,
		BookService: bookService,
		validator:   validator,
	}
}

// Instrument counts requests to handler by status code and observes their duration,
// labelled with route.
func (r *Route) Instrument(route string, handler http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, req *http.Request) {
		m := httpsnoop.CaptureMetrics(handler, w, req)
		if r.Metrics != nil {
			r.Metrics.IncCounterVec(storemetrics.HTTPRequestsTotal, route, strconv.Itoa(m.Code))
			r.Metrics.ObserveHistogramVec(storemetrics.HTTPRequestDurationSeconds, m.Duration.Seconds(), route)
		}
	}
}

// CreateBook handles POST /books.
func (r *Route) CreateBook(w http.ResponseWriter, req *http.Request) {
	request := &dto.CreateBookRequestDTO{}
	if !r.decode(w, req, request) {
		return
	}

	book, err := r.BookService.CreateBook(req.Context(), request.Title, request.Author)
	if err != nil {
		r.serviceError(w, err)
		return
	}

	r.writeJSON(w, http.StatusCreated, book)
}

// ListBooks handles GET /books. The title and author query parameters filter by equality.
func (r *Route) ListBooks(w http.ResponseWriter, req *http.Request) {
	books, err := r.BookService.ListBooks(req.Context(), queryFilter(req))
	if err != nil {
		r.serviceError(w, err)
		return
	}

	r.writeJSON(w, http.StatusOK, &dto.ListBooksResponseDTO{Books: books, Count: len(books)})
}

// FirstBook handles GET /books/first?sort=<field>&order=<asc|desc>.
func (r *Route) FirstBook(w http.ResponseWriter, req *http.Request) {
	query := req.URL.Query()
	sortField := query.Get(SortQueryParam)
	if sortField == "" {
		sortField = DefaultSortField
	}
	filter := queryFilter(req)

	book, err := r.BookService.FirstBook(req.Context(), filter, sortField, models.ParseSortDirection(query.Get(OrderQueryParam)))
	if err != nil {
		r.serviceError(w, err)
		return
	}
	if book == nil {
		r.errorResponse(w, http.StatusNotFound, fmt.Errorf(ErrBookNotFoundFormat, filter), ErrBookNotFound)
		return
	}

	r.writeJSON(w, http.StatusOK, book)
}

// GetBook handles GET /books/{id}.
func (r *Route) GetBook(w http.ResponseWriter, req *http.Request) {
	id := req.PathValue(IDPathValue)

	book, err := r.BookService.GetBook(req.Context(), id)
	if err != nil {
		r.serviceError(w, err)
		return
	}
	if book == nil {
		r.errorResponse(w, http.StatusNotFound, fmt.Errorf(ErrBookNotFoundFormat, id), ErrBookNotFound)
		return
	}

	r.writeJSON(w, http.StatusOK, book)
}

// SaveBook handles PUT /books/{id}, replacing the book or creating it under that id.
func (r *Route) SaveBook(w http.ResponseWriter, req *http.Request) {
	request := &dto.SaveBookRequestDTO{}
	if !r.decode(w, req, request) {
		return
	}

	book, err := r.BookService.SaveBook(req.Context(), models.Book{
		ID:     req.PathValue(IDPathValue),
		Title:  request.Title,
		Author: request.Author,
	})
	if err != nil {
		r.serviceError(w, err)
		return
	}

	r.writeJSON(w, http.StatusOK, book)
}

// UpdateBooks handles PATCH /books; the query selects books, the body's "set" holds the new values.
func (r *Route) UpdateBooks(w http.ResponseWriter, req *http.Request) {
	request := &dto.UpdateBooksRequestDTO{}
	if !r.decode(w, req, request) {
		return
	}

	res, err := r.BookService.UpdateBooks(req.Context(), queryFilter(req), request.Set)
	if err != nil {
		r.serviceError(w, err)
		return
	}

	r.writeJSON(w, http.StatusOK, res)
}

// RemoveBooks handles DELETE /books. A request without filter parameters is refused by the service.
func (r *Route) RemoveBooks(w http.ResponseWriter, req *http.Request) {
	res, err := r.BookService.RemoveBooks(req.Context(), queryFilter(req))
	if err != nil {
		r.serviceError(w, err)
		return
	}

	r.writeJSON(w, http.StatusOK, res)
}

// Health handles GET /healthz by pinging the database.
func (r *Route) Health(w http.ResponseWriter, req *http.Request) {
	if err := r.BookService.Ping(req.Context()); err != nil {
		r.writeJSON(w, http.StatusServiceUnavailable, &dto.HealthResponseDTO{Status: StatusUnavailable})
		return
	}
	r.writeJSON(w, http.StatusOK, &dto.HealthResponseDTO{Status: StatusOK})
}

// decode reads and validates a JSON body into request, writing a 400 on failure.
func (r *Route) decode(w http.ResponseWriter, req *http.Request, request interface{}) bool {
	if req.Header.Get(ContentType) != ContentTypeJson {
		r.errorResponse(w, http.StatusBadRequest, fmt.Errorf(ErrInvalidContentTypeFormat, req.Header.Get(ContentType)), ErrInvalidContentType)
		return false
	}

	decoder := json.NewDecoder(req.Body)
	decoder.DisallowUnknownFields()
	if err := decoder.Decode(request); err != nil {
		r.errorResponse(w, http.StatusBadRequest, err, ErrInvalidRequestBody)
		return false
	}

	if err := r.validator.Struct(request); err != nil {
		r.errorResponse(w, http.StatusBadRequest, fmt.Errorf(ErrInvalidDataFormat, err), ErrValidationFailed)
		return false
	}
	return true
}

func (r *Route) serviceError(w http.ResponseWriter, err error) {
	switch {
	case databases.IsValidation(err):
		r.errorResponse(w, http.StatusBadRequest, err, ErrInvalidRequest)
	case databases.IsDuplicateKey(err):
		r.errorResponse(w, http.StatusConflict, err, ErrConflict)
	case databases.IsConnectionError(err):
		r.errorResponse(w, http.StatusServiceUnavailable, err, ErrDatabaseUnavailable)
	default:
		r.errorResponse(w, http.StatusInternalServerError, err, ErrInternal)
	}
}

func (r *Route) writeJSON(w http.ResponseWriter, status int, body interface{}) {
	w.Header().Set(ContentType, ContentTypeJson)
	w.WriteHeader(status)
	// the status line is already out, nothing more can be reported
	_ = json.NewEncoder(w).Encode(body)
}

func (r *Route) errorResponse(w http.ResponseWriter, status int, err error, message string) {
	r.writeJSON(w, status, &dto.ErrorResponseDTO{
		Error:   err.Error(),
		Message: message,
	})
}

// queryFilter builds an equality filter from the supported query parameters.
func queryFilter(req *http.Request) models.Filter {
	query := req.URL.Query()
	filter := models.Filter{}
	for _, param := range filterQueryParams {
		if query.Has(param) {
			filter[param] = query.Get(param)
		}
	}
	return filter
}
