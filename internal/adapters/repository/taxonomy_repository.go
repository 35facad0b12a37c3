package repository

import (
	"context"

	"github.com/jmoiron/sqlx"

	"github.com/taskmaster/todolist/internal/domain/entities"
	"github.com/taskmaster/todolist/internal/ports"
)

// TaxonomyRepositoryImpl stores categories and tags
type TaxonomyRepositoryImpl struct {
	db *sqlx.DB
}

func NewTaxonomyRepository(db *sqlx.DB) ports.TaxonomyRepository {
	return &TaxonomyRepositoryImpl{db: db}
}

func (r *TaxonomyRepositoryImpl) ListCategories(ctx context.Context) ([]*entities.Category, error) {
	categories := []*entities.Category{}
	query := `SELECT id, name, description, color FROM categories ORDER BY name`
	if err := r.db.SelectContext(ctx, &categories, query); err != nil {
		return nil, mapError("list categories", err, nil)
	}

	return categories, nil
}

func (r *TaxonomyRepositoryImpl) ListTags(ctx context.Context) ([]*entities.Tag, error) {
	tags := []*entities.Tag{}
	query := `SELECT id, name, color FROM tags ORDER BY name`
	if err := r.db.SelectContext(ctx, &tags, query); err != nil {
		return nil, mapError("list tags", err, nil)
	}

	return tags, nil
}

// CreateCategory inserts the category, or reuses the existing row with the
// same name.
func (r *TaxonomyRepositoryImpl) CreateCategory(ctx context.Context, tx *sqlx.Tx, category *entities.Category) error {
	query := `
		INSERT INTO categories (name, description, color)
		VALUES ($1, $2, $3)
		ON CONFLICT (name) DO UPDATE SET description = EXCLUDED.description, color = EXCLUDED.color
		RETURNING id`

	if err := tx.QueryRowxContext(ctx, query, category.Name, category.Description, category.Color).Scan(&category.ID); err != nil {
		return mapError("create category", err, nil)
	}

	return nil
}

// CreateTag inserts the tag, or reuses the existing row with the same name.
func (r *TaxonomyRepositoryImpl) CreateTag(ctx context.Context, tx *sqlx.Tx, tag *entities.Tag) error {
	query := `
		INSERT INTO tags (name, color)
		VALUES ($1, $2)
		ON CONFLICT (name) DO UPDATE SET color = EXCLUDED.color
		RETURNING id`

	if err := tx.QueryRowxContext(ctx, query, tag.Name, tag.Color).Scan(&tag.ID); err != nil {
		return mapError("create tag", err, nil)
	}

	return nil
}

func (r *TaxonomyRepositoryImpl) CountCategories(ctx context.Context) (int64, error) {
	var count int64
	if err := r.db.GetContext(ctx, &count, `SELECT COUNT(*) FROM categories`); err != nil {
		return 0, mapError("count categories", err, nil)
	}

	return count, nil
}

func (r *TaxonomyRepositoryImpl) CountTags(ctx context.Context) (int64, error) {
	var count int64
	if err := r.db.GetContext(ctx, &count, `SELECT COUNT(*) FROM tags`); err != nil {
		return 0, mapError("count tags", err, nil)
	}

	return count, nil
}
