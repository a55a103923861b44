package service

import (
	"context"

	"github.com/ignatzorin/freelance-market/internal/models"
)

// CatalogService справочники категорий и навыков.
type CatalogService struct {
	repo CatalogRepository
}

func NewCatalogService(repo CatalogRepository) *CatalogService {
	return &CatalogService{repo: repo}
}

func (s *CatalogService) Categories(ctx context.Context) ([]models.Category, error) {
	categories, err := s.repo.ListCategories(ctx)
	if err != nil {
		return nil, mapRepoError("catalog service: categories", err, nil)
	}
	return categories, nil
}

func (s *CatalogService) Skills(ctx context.Context) ([]models.Skill, error) {
	skills, err := s.repo.ListSkills(ctx)
	if err != nil {
		return nil, mapRepoError("catalog service: skills", err, nil)
	}
	return skills, nil
}
