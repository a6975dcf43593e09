package bookservice

const (
	// Error messages for book service operations
	ErrFailedToCreateBook  = "failed to create book"
	ErrFailedToSaveBook    = "failed to save book"
	ErrRetrievingBook      = "error retrieving book"
	ErrListingBooks        = "error listing books"
	ErrFailedToUpdateBooks = "failed to update books"
	ErrFailedToRemoveBooks = "failed to remove books"
	ErrDatabaseUnreachable = "database unreachable"

	// Validation messages
	MsgEmptyUpdate       = "update needs at least one field to set"
	MsgUnfilteredRemove  = "refusing to remove books without a filter"
	MsgMissingIdentifier = "book id is required"
)
