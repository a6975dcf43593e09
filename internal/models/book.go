package models

const (
	// BookCollection is the collection books are stored in.
	BookCollection = "book"
)

// Book is the demo entity: a title and an author.
// Author is lowercased by the book schema before every write.
type Book struct {
	ID     string `mapstructure:"_id,omitempty" json:"id,omitempty"`
	Title  string `mapstructure:"title" json:"title"`
	Author string `mapstructure:"author" json:"author"`
}

// NewBook creates a new Book with the given title and author.
// Note: No transformation is performed here; the schema applies it on write.
func NewBook(title, author string) *Book {
	return &Book{
		Title:  title,
		Author: author,
	}
}
