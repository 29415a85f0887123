package entities

import (
	"time"

	"gorm.io/gorm"
)

type Book struct {
	ID     uint   `gorm:"primaryKey" json:"id"`
	Title  string `gorm:"index;size:512" json:"title"`
	Author string `gorm:"index;size:512" json:"author"` // joined with ", " when a row carries several

	ISBN10 string `gorm:"index;size:10" json:"isbn10,omitempty"`
	ISBN13 string `gorm:"index;size:13" json:"isbn13,omitempty"`

	Series       string `gorm:"index;size:256" json:"series,omitempty"`
	SeriesVolume int    `json:"series_volume,omitempty"`

	Format        string `gorm:"size:50" json:"format,omitempty"` // hardcover, paperback, ebook, audiobook
	Publisher     string `gorm:"size:256" json:"publisher,omitempty"`
	PublishedDate string `gorm:"size:50" json:"published_date,omitempty"`

	// Filled by metadata enrichment when available.
	CoverURL    string `gorm:"size:2048" json:"cover_url,omitempty"`
	PageCount   int    `json:"page_count,omitempty"`
	Description string `gorm:"type:text" json:"description,omitempty"`

	CreatedAt time.Time      `json:"created_at"`
	UpdatedAt time.Time      `json:"updated_at"`
	DeletedAt gorm.DeletedAt `gorm:"index" json:"deleted_at,omitempty"`
}

func (Book) TableName() string {
	return "books"
}
