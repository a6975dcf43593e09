package routes

const (
	// API route constants
	CreateBookRouteAPI  = "POST /books"
	ListBooksRouteAPI   = "GET /books"
	FirstBookRouteAPI   = "GET /books/first"
	GetBookRouteAPI     = "GET /books/{id}"
	SaveBookRouteAPI    = "PUT /books/{id}"
	UpdateBooksRouteAPI = "PATCH /books"
	RemoveBooksRouteAPI = "DELETE /books"
	HealthRouteAPI      = "GET /healthz"
	MetricsRouteAPI     = "/metrics"

	// path and query parameters
	IDPathValue      = "id"
	SortQueryParam   = "sort"
	OrderQueryParam  = "order"
	DefaultSortField = "title"

	// Content-Type constants
	ContentType     = "Content-Type"
	ContentTypeJson = "application/json"

	// status constants
	StatusOK          = "ok"
	StatusUnavailable = "unavailable"

	// Error messages
	ErrInvalidContentType       = "request Content-Type must be application/json"
	ErrInvalidContentTypeFormat = "invalid content-type: %s"
	ErrInvalidRequestBody       = "invalid request body"
	ErrValidationFailed         = "book data validation failed"
	ErrInvalidDataFormat        = "invalid book data: %s"
	ErrBookNotFound             = "book not found"
	ErrBookNotFoundFormat       = "no book matches %v"
	ErrDatabaseUnavailable      = "database unavailable"
	ErrInvalidRequest           = "request rejected"
	ErrConflict                 = "book already exists"
	ErrInternal                 = "internal error"
)

// filterQueryParams are the query parameters turned into an equality filter.
var filterQueryParams = []string{"title", "author"}
