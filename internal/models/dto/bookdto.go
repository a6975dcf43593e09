package dto

import "github.com/haguru/bookshelf/internal/models"

type CreateBookRequestDTO struct {
	Title  string `json:"title" validate:"required,max=256"`
	Author string `json:"author" validate:"max=256"`
}

// SaveBookRequestDTO is the body of a full replace; the id comes from the path.
type SaveBookRequestDTO struct {
	Title  string `json:"title" validate:"required,max=256"`
	Author string `json:"author" validate:"max=256"`
}

type UpdateBooksRequestDTO struct {
	Set map[string]interface{} `json:"set" validate:"required,min=1"`
}

type ListBooksResponseDTO struct {
	Books []models.Book `json:"books"`
	Count int           `json:"count"`
}

type HealthResponseDTO struct {
	Status string `json:"status"`
}

type ErrorResponseDTO struct {
	Error   string `json:"error"`
	Message string `json:"message"`
}
