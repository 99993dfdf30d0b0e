package repository

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/newsroom-labs/cms-service/internal/domain"
)

// CategoryFilter captures list ordering and paging.
type CategoryFilter struct {
	SortBy    string
	SortOrder string
	Limit     int
	Offset    int
}

// sortable maps accepted sort keys to columns.
var sortable = map[string]string{
	"name":       "name",
	"created_at": "created_at",
	"updated_at": "updated_at",
}

// IsSortableCategoryField reports whether field may be used as SortBy.
func IsSortableCategoryField(field string) bool {
	_, ok := sortable[field]
	return ok
}

// CategoryRepository encapsulates category persistence.
type CategoryRepository interface {
	// Create inserts category; ErrDuplicateName on a case-insensitive name clash,
	// ErrParentNotFound when ParentID does not exist.
	Create(ctx context.Context, category *domain.Category) error
	GetByID(ctx context.Context, id string) (*domain.Category, error)
	List(ctx context.Context, filter CategoryFilter) ([]domain.Category, int, error)
}

type categoryRepository struct {
	db DBTX
}

// NewCategoryRepository instantiates repository.
func NewCategoryRepository(db DBTX) CategoryRepository {
	return &categoryRepository{db: db}
}

func (r *categoryRepository) Create(ctx context.Context, category *domain.Category) error {
	const query = `
        INSERT INTO categories (id, name, description, parent_id, created_by)
        VALUES ($1,$2,$3,$4,$5)
        RETURNING created_at, updated_at`

	if category.ID == "" {
		category.ID = uuid.NewString()
	}
	err := r.db.QueryRow(ctx, query,
		category.ID,
		category.Name,
		category.Description,
		category.ParentID,
		category.CreatedBy,
	).Scan(&category.CreatedAt, &category.UpdatedAt)
	if err != nil {
		code, constraint, ok := pgErrorCode(err)
		switch {
		case ok && code == pgUniqueViolation:
			return ErrDuplicateName
		case ok && code == pgForeignKeyViolation && constraint == "categories_parent_id_fkey":
			return ErrParentNotFound
		}
		return fmt.Errorf("insert category: %w", err)
	}
	return nil
}

func (r *categoryRepository) GetByID(ctx context.Context, id string) (*domain.Category, error) {
	const query = `
        SELECT id, name, description, parent_id, created_by, created_at, updated_at
        FROM categories WHERE id=$1`

	var category domain.Category
	if err := r.db.QueryRow(ctx, query, id).Scan(
		&category.ID,
		&category.Name,
		&category.Description,
		&category.ParentID,
		&category.CreatedBy,
		&category.CreatedAt,
		&category.UpdatedAt,
	); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("select category: %w", err)
	}
	return &category, nil
}

func (r *categoryRepository) List(ctx context.Context, filter CategoryFilter) ([]domain.Category, int, error) {
	column, ok := sortable[filter.SortBy]
	if !ok {
		column = "name"
	}
	order := "ASC"
	if filter.SortOrder == "desc" {
		order = "DESC"
	}
	limit := filter.Limit
	if limit <= 0 {
		limit = 50
	}
	offset := filter.Offset
	if offset < 0 {
		offset = 0
	}

	var total int
	if err := r.db.QueryRow(ctx, `SELECT COUNT(*) FROM categories`).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("count categories: %w", err)
	}

	query := fmt.Sprintf(`
        SELECT id, name, description, parent_id, created_by, created_at, updated_at
        FROM categories ORDER BY %s %s, id ASC LIMIT $1 OFFSET $2`, column, order)

	rows, err := r.db.Query(ctx, query, limit, offset)
	if err != nil {
		return nil, 0, fmt.Errorf("list categories: %w", err)
	}
	defer rows.Close()

	items, err := scanCategories(rows)
	if err != nil {
		return nil, 0, err
	}
	return items, total, nil
}

func scanCategories(rows pgx.Rows) ([]domain.Category, error) {
	result := []domain.Category{}
	for rows.Next() {
		var category domain.Category
		if err := rows.Scan(
			&category.ID,
			&category.Name,
			&category.Description,
			&category.ParentID,
			&category.CreatedBy,
			&category.CreatedAt,
			&category.UpdatedAt,
		); err != nil {
			return nil, err
		}
		result = append(result, category)
	}
	return result, rows.Err()
}
