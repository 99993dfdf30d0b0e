package domain

import "time"

// Category is a node in the content category tree.
type Category struct {
	ID          string
	Name        string
	Description *string
	ParentID    *string
	CreatedBy   string
	CreatedAt   time.Time
	UpdatedAt   time.Time
}

// CategoryPage is one page of an ordered category listing.
type CategoryPage struct {
	Items       []Category
	CurrentPage int
	PerPage     int
	Total       int
	LastPage    int
}
