package handlers

import (
	"net/http"
	"strconv"
	"strings"

	"github.com/gofiber/fiber/v2"

	"github.com/newsroom-labs/cms-service/internal/api/dto"
	"github.com/newsroom-labs/cms-service/internal/auth"
	"github.com/newsroom-labs/cms-service/internal/service"
	"github.com/newsroom-labs/cms-service/internal/validation"
	apperrors "github.com/newsroom-labs/cms-service/pkg/util"
)

// CategoryHandler manages category endpoints.
type CategoryHandler struct {
	service *service.CategoryService
}

// NewCategoryHandler constructs handler.
func NewCategoryHandler(categoryService *service.CategoryService) *CategoryHandler {
	return &CategoryHandler{service: categoryService}
}

// Create handles POST /create-category.
func (h *CategoryHandler) Create(c *fiber.Ctx) error {
	principal, ok := auth.PrincipalFromContext(c)
	if !ok {
		return apperrors.NewUnauthorized(auth.UnauthorizedMessage)
	}
	var req dto.CreateCategoryRequest
	if err := c.BodyParser(&req); err != nil {
		return apperrors.NewValidationError("invalid payload", nil)
	}

	category, err := h.service.Create(c.UserContext(), principal.Identity, service.CreateCategoryInput{
		Name:        req.CategoryName,
		Description: req.Description,
		ParentID:    req.ParentID,
	})
	if err != nil {
		return err
	}
	return c.Status(http.StatusCreated).JSON(fiber.Map{
		"status":  "success",
		"message": "Category created successfully.",
		"data":    dto.NewCategoryResponse(category),
	})
}

// List handles GET /list-categories.
func (h *CategoryHandler) List(c *fiber.Ctx) error {
	var errs validation.FieldErrors
	page := queryInt(c, "page", &errs)
	perPage := queryInt(c, "per_page", &errs)
	if err := errs.Err(); err != nil {
		return err
	}

	result, err := h.service.List(c.UserContext(), service.ListCategoriesInput{
		Page:      page,
		PerPage:   perPage,
		SortBy:    c.Query("sort_by"),
		SortOrder: c.Query("sort_order"),
	})
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{
		"status":  "success",
		"message": "Categories fetched successfully.",
		"data":    dto.NewCategoryPageResponse(result),
	})
}

// queryInt returns 0 when key is absent and records a field error when it is not an integer.
func queryInt(c *fiber.Ctx, key string, errs *validation.FieldErrors) int {
	raw := c.Query(key)
	if raw == "" {
		return 0
	}
	n, err := strconv.Atoi(raw)
	if err != nil {
		errs.Add(key, "The "+strings.ReplaceAll(key, "_", " ")+" must be an integer.")
		return 0
	}
	return n
}
