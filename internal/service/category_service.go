package service

import (
	"context"
	"errors"
	"math"
	"strings"

	"go.opentelemetry.io/otel/attribute"
	"go.uber.org/zap"

	"github.com/newsroom-labs/cms-service/internal/domain"
	"github.com/newsroom-labs/cms-service/internal/events"
	"github.com/newsroom-labs/cms-service/internal/repository"
	"github.com/newsroom-labs/cms-service/internal/validation"
	apperrors "github.com/newsroom-labs/cms-service/pkg/util"
)

// DefaultCategoriesPerPage is used when per_page is omitted.
const DefaultCategoriesPerPage = 50

// MsgCategoryExists is returned when the name clashes case-insensitively.
const MsgCategoryExists = "Category already exists"

var createCategoryMessages = validation.Messages{
	"category_name.required": "The category name field is required.",
	"parent_id.uuid":         "The selected parent id is invalid.",
}

var listCategoriesMessages = validation.Messages{
	"page.gte":         "The page must be at least 1.",
	"per_page.gte":     "The per page must be at least 1.",
	"per_page.lte":     "The per page may not be greater than 100.",
	"sort_order.oneof": "The selected sort order is invalid.",
}

const (
	msgSortByInvalid = "The selected sort by is invalid."
	msgPageTooLarge  = "The page is too large."
)

// CreateCategoryInput is the category creation payload.
type CreateCategoryInput struct {
	Name        string  `json:"category_name" validate:"required,max=255"`
	Description *string `json:"description"`
	ParentID    *string `json:"parent_id" validate:"omitempty,uuid"`
}

// ListCategoriesInput selects one page of categories. Zero values take defaults.
type ListCategoriesInput struct {
	Page      int    `json:"page" validate:"gte=1"`
	PerPage   int    `json:"per_page" validate:"gte=1,lte=100"`
	SortBy    string `json:"sort_by"`
	SortOrder string `json:"sort_order" validate:"oneof=asc desc"`
}

func (in *ListCategoriesInput) applyDefaults() {
	if in.Page == 0 {
		in.Page = 1
	}
	if in.PerPage == 0 {
		in.PerPage = DefaultCategoriesPerPage
	}
	if in.SortBy == "" {
		in.SortBy = "name"
	}
	in.SortOrder = strings.ToLower(in.SortOrder)
	if in.SortOrder == "" {
		in.SortOrder = "asc"
	}
}

// CategoryService manages content categories.
type CategoryService struct {
	categories repository.CategoryRepository
	dispatcher events.Dispatcher
	logger     *zap.Logger
}

// NewCategoryService builds the service.
func NewCategoryService(categories repository.CategoryRepository, dispatcher events.Dispatcher, logger *zap.Logger) *CategoryService {
	if logger == nil {
		logger = zap.NewNop()
	}
	if dispatcher == nil {
		dispatcher = events.NewInMemoryDispatcher()
	}
	return &CategoryService{categories: categories, dispatcher: dispatcher, logger: logger}
}

// Create stores a category owned by the caller.
func (s *CategoryService) Create(ctx context.Context, caller domain.Identity, in CreateCategoryInput) (category *domain.Category, err error) {
	ctx, span := startSpan(ctx, "CategoryService.Create", attribute.String("user.id", caller.UserID))
	defer func() { endSpan(span, err) }()

	in.Name = strings.TrimSpace(in.Name)
	if in.Description != nil {
		trimmed := strings.TrimSpace(*in.Description)
		in.Description = &trimmed
		if trimmed == "" {
			in.Description = nil
		}
	}
	if in.ParentID != nil && strings.TrimSpace(*in.ParentID) == "" {
		in.ParentID = nil
	}

	errs, err := validation.Struct(in, createCategoryMessages)
	if err != nil {
		return nil, apperrors.NewInternalError(err)
	}
	if err := errs.Err(); err != nil {
		return nil, err
	}

	category = &domain.Category{
		Name:        in.Name,
		Description: in.Description,
		ParentID:    in.ParentID,
		CreatedBy:   caller.UserID,
	}
	if err := s.categories.Create(ctx, category); err != nil {
		switch {
		case errors.Is(err, repository.ErrDuplicateName):
			return nil, apperrors.NewConflict(MsgCategoryExists, nil)
		case errors.Is(err, repository.ErrParentNotFound):
			var parent validation.FieldErrors
			parent.Add("parent_id", "The selected parent id is invalid.")
			return nil, parent.Err()
		}
		s.logger.Error("create category", zap.Error(err))
		return nil, apperrors.NewInternalError(err)
	}

	span.SetAttributes(attribute.String("category.id", category.ID))
	event := events.New(events.EventCategoryCreated, caller.UserID, events.CategoryCreatedPayload{
		CategoryID: category.ID,
		Name:       category.Name,
		ParentID:   category.ParentID,
	})
	if err := s.dispatcher.Publish(ctx, event); err != nil {
		s.logger.Warn("event handler failed", zap.String("event", string(event.Type)), zap.Error(err))
	}
	return category, nil
}

// List returns one ordered page of categories.
func (s *CategoryService) List(ctx context.Context, in ListCategoriesInput) (page *domain.CategoryPage, err error) {
	ctx, span := startSpan(ctx, "CategoryService.List")
	defer func() { endSpan(span, err) }()

	in.applyDefaults()
	errs, err := validation.Struct(in, listCategoriesMessages)
	if err != nil {
		return nil, apperrors.NewInternalError(err)
	}
	if !repository.IsSortableCategoryField(in.SortBy) {
		errs.Add("sort_by", msgSortByInvalid)
	}
	// The offset must fit in an int; PerPage is already >= 1 here.
	if in.Page > 1 && in.PerPage > 0 && in.Page-1 > math.MaxInt/in.PerPage {
		errs.Add("page", msgPageTooLarge)
	}
	if err := errs.Err(); err != nil {
		return nil, err
	}

	items, total, err := s.categories.List(ctx, repository.CategoryFilter{
		SortBy:    in.SortBy,
		SortOrder: in.SortOrder,
		Limit:     in.PerPage,
		Offset:    (in.Page - 1) * in.PerPage,
	})
	if err != nil {
		s.logger.Error("list categories", zap.Error(err))
		return nil, apperrors.NewInternalError(err)
	}

	lastPage := (total + in.PerPage - 1) / in.PerPage
	if lastPage < 1 {
		lastPage = 1
	}
	return &domain.CategoryPage{
		Items:       items,
		CurrentPage: in.Page,
		PerPage:     in.PerPage,
		Total:       total,
		LastPage:    lastPage,
	}, nil
}
