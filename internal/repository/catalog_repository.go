package repository

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"

	"github.com/ignatzorin/freelance-market/internal/models"
	"github.com/ignatzorin/freelance-market/internal/repository/common"
)

type CatalogRepository struct {
	db *sqlx.DB
}

func NewCatalogRepository(db *sqlx.DB) *CatalogRepository {
	return &CatalogRepository{db: db}
}

// ListCategories возвращает все категории.
func (r *CatalogRepository) ListCategories(ctx context.Context) ([]models.Category, error) {
	categories := make([]models.Category, 0)
	err := sqlx.SelectContext(ctx, common.Conn(ctx, r.db), &categories,
		`SELECT id, slug, name, created_at FROM categories ORDER BY name`)
	return categories, err
}

// GetCategoryByID возвращает категорию по ID.
func (r *CatalogRepository) GetCategoryByID(ctx context.Context, id uuid.UUID) (*models.Category, error) {
	category, err := common.GetByID[models.Category](ctx, common.Conn(ctx, r.db), "categories", id, ErrNotFound)
	if err != nil {
		return nil, fmt.Errorf("catalog repository: get category: %w", err)
	}
	return category, nil
}

// ListSkills возвращает все навыки.
func (r *CatalogRepository) ListSkills(ctx context.Context) ([]models.Skill, error) {
	skills := make([]models.Skill, 0)
	err := sqlx.SelectContext(ctx, common.Conn(ctx, r.db), &skills,
		`SELECT id, name, created_at FROM skills ORDER BY name`)
	return skills, err
}

// EnsureSkills создаёт недостающие навыки по имени и возвращает все запрошенные.
func (r *CatalogRepository) EnsureSkills(ctx context.Context, names []string) ([]models.Skill, error) {
	if len(names) == 0 {
		return []models.Skill{}, nil
	}
	conn := common.Conn(ctx, r.db)

	inserter := common.NewBatchInserter(conn, `INSERT INTO skills (id, name)`, `ON CONFLICT (name) DO NOTHING`, 2, 50)
	for _, name := range names {
		if err := inserter.Add(ctx, uuid.New(), name); err != nil {
			return nil, fmt.Errorf("catalog repository: ensure skills: %w", err)
		}
	}
	if err := inserter.Flush(ctx); err != nil {
		return nil, fmt.Errorf("catalog repository: ensure skills: %w", common.MapError(err))
	}

	skills := make([]models.Skill, 0, len(names))
	if err := sqlx.SelectContext(ctx, conn, &skills,
		`SELECT id, name, created_at FROM skills WHERE name = ANY($1) ORDER BY name`, pq.Array(names)); err != nil {
		return nil, fmt.Errorf("catalog repository: ensure skills: %w", err)
	}
	return skills, nil
}
