package repository

import (
	"context"
	"testing"
	"time"

	"github.com/jackc/pgx/v5/pgconn"
	"github.com/pashagolub/pgxmock/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/newsroom-labs/cms-service/internal/domain"
)

var categoryColumns = []string{"id", "name", "description", "parent_id", "created_by", "created_at", "updated_at"}

func TestCategoryRepositoryCreate(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	now := time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC)
	desc := "Articles about Go"
	mock.ExpectQuery("INSERT INTO categories").
		WithArgs(pgxmock.AnyArg(), "Go", &desc, (*string)(nil), "u-1").
		WillReturnRows(pgxmock.NewRows([]string{"created_at", "updated_at"}).AddRow(now, now))

	category := &domain.Category{Name: "Go", Description: &desc, CreatedBy: "u-1"}
	require.NoError(t, NewCategoryRepository(mock).Create(context.Background(), category))
	assert.NotEmpty(t, category.ID)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestCategoryRepositoryCreateConstraintErrors(t *testing.T) {
	cases := []struct {
		name    string
		pgErr   *pgconn.PgError
		wantErr error
	}{
		{"duplicate name", &pgconn.PgError{Code: "23505", ConstraintName: "categories_name_lower_idx"}, ErrDuplicateName},
		{"missing parent", &pgconn.PgError{Code: "23503", ConstraintName: "categories_parent_id_fkey"}, ErrParentNotFound},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			mock, err := pgxmock.NewPool()
			require.NoError(t, err)
			defer mock.Close()

			mock.ExpectQuery("INSERT INTO categories").WillReturnError(tc.pgErr)

			err = NewCategoryRepository(mock).Create(context.Background(), &domain.Category{Name: "Go", CreatedBy: "u-1"})
			assert.ErrorIs(t, err, tc.wantErr)
		})
	}
}

func TestCategoryRepositoryList(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	now := time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC)
	parent := "c-1"
	mock.ExpectQuery("SELECT COUNT").
		WillReturnRows(pgxmock.NewRows([]string{"count"}).AddRow(3))
	mock.ExpectQuery("ORDER BY created_at DESC").
		WithArgs(2, 0).
		WillReturnRows(pgxmock.NewRows(categoryColumns).
			AddRow("c-2", "Rust", nil, &parent, "u-1", now, now).
			AddRow("c-1", "Go", nil, nil, "u-1", now, now))

	items, total, err := NewCategoryRepository(mock).List(context.Background(), CategoryFilter{
		SortBy: "created_at", SortOrder: "desc", Limit: 2,
	})
	require.NoError(t, err)
	assert.Equal(t, 3, total)
	require.Len(t, items, 2)
	assert.Equal(t, "Rust", items[0].Name)
	require.NotNil(t, items[0].ParentID)
	assert.Equal(t, "c-1", *items[0].ParentID)
	assert.Nil(t, items[1].ParentID)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestCategoryRepositoryListFallsBackToNameOrder(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	mock.ExpectQuery("SELECT COUNT").
		WillReturnRows(pgxmock.NewRows([]string{"count"}).AddRow(0))
	mock.ExpectQuery("ORDER BY name ASC").
		WithArgs(50, 0).
		WillReturnRows(pgxmock.NewRows(categoryColumns))

	items, total, err := NewCategoryRepository(mock).List(context.Background(), CategoryFilter{SortBy: "id; DROP TABLE"})
	require.NoError(t, err)
	assert.Zero(t, total)
	assert.Empty(t, items)
	assert.NoError(t, mock.ExpectationsWereMet())
}
