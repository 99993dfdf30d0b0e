package dto

import (
	"time"

	"github.com/newsroom-labs/cms-service/internal/domain"
)

// CreateCategoryRequest payload for POST /create-category.
type CreateCategoryRequest struct {
	CategoryName string  `json:"category_name"`
	Description  *string `json:"description"`
	ParentID     *string `json:"parent_id"`
}

// CategoryResponse is the public view of a category.
type CategoryResponse struct {
	ID          string    `json:"id"`
	Name        string    `json:"name"`
	Description *string   `json:"description"`
	ParentID    *string   `json:"parent_id"`
	CreatedBy   string    `json:"created_by"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}

// CategoryPageResponse is one page of categories.
type CategoryPageResponse struct {
	CurrentPage int                `json:"current_page"`
	Data        []CategoryResponse `json:"data"`
	PerPage     int                `json:"per_page"`
	Total       int                `json:"total"`
	LastPage    int                `json:"last_page"`
}

// NewCategoryResponse maps a domain category.
func NewCategoryResponse(category *domain.Category) CategoryResponse {
	return CategoryResponse{
		ID:          category.ID,
		Name:        category.Name,
		Description: category.Description,
		ParentID:    category.ParentID,
		CreatedBy:   category.CreatedBy,
		CreatedAt:   category.CreatedAt,
		UpdatedAt:   category.UpdatedAt,
	}
}

// NewCategoryPageResponse maps a domain page.
func NewCategoryPageResponse(page *domain.CategoryPage) CategoryPageResponse {
	data := make([]CategoryResponse, 0, len(page.Items))
	for i := range page.Items {
		data = append(data, NewCategoryResponse(&page.Items[i]))
	}
	return CategoryPageResponse{
		CurrentPage: page.CurrentPage,
		Data:        data,
		PerPage:     page.PerPage,
		Total:       page.Total,
		LastPage:    page.LastPage,
	}
}
