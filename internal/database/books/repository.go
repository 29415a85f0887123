// Package books provides database operations for the book collection.
//
// This package implements the importer.Writer and importer.DuplicateIndex
// interfaces consumed by the import pipeline:
//
//	var _ importer.Writer = (*Repository)(nil)
//	var _ importer.DuplicateIndex = (*Repository)(nil)
package books

import (
	"fmt"

	"gorm.io/gorm"

	"github.com/shelfmark/shelfmark/internal/entities"
)

// Repository handles all book database operations.
type Repository struct {
	db *gorm.DB
}

// NewRepository creates a new books repository.
func NewRepository(db *gorm.DB) *Repository {
	return &Repository{db: db}
}

// SaveBook commits a book durably.
func (r *Repository) SaveBook(book *entities.Book) error {
	if err := r.db.Create(book).Error; err != nil {
		return fmt.Errorf("save book %q: %w", book.Title, err)
	}
	return nil
}

// ExistsByISBN reports whether a book with the given ISBN (either form)
// already exists in the collection.
func (r *Repository) ExistsByISBN(isbn string) (bool, error) {
	if isbn == "" {
		return false, nil
	}
	var count int64
	err := r.db.Model(&entities.Book{}).
		Where("isbn13 = ? OR isbn10 = ?", isbn, isbn).
		Count(&count).Error
	if err != nil {
		return false, err
	}
	return count > 0, nil
}

// GetBookByID retrieves a book by its ID.
func (r *Repository) GetBookByID(id uint) (*entities.Book, error) {
	var book entities.Book
	if err := r.db.First(&book, id).Error; err != nil {
		return nil, err
	}
	return &book, nil
}

// GetAllBooks retrieves the whole collection.
func (r *Repository) GetAllBooks() ([]entities.Book, error) {
	var books []entities.Book
	err := r.db.Order("title ASC").Find(&books).Error
	return books, err
}
