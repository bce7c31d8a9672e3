package service

import (
	"context"
	"errors"

	"storefront/store"
)

type CatalogService struct {
	catalog store.Catalog
}

var _ CatalogServiceInterface = (*CatalogService)(nil)

func NewCatalogService(c store.Catalog) *CatalogService {
	return &CatalogService{catalog: c}
}

func (s *CatalogService) ListProducts(ctx context.Context, f store.ProductFilter) ([]ProductDTO, error) {
	rows, err := s.catalog.ListProducts(ctx, f)
	if err != nil {
		return nil, err
	}
	out := make([]ProductDTO, 0, len(rows))
	for _, p := range rows {
		out = append(out, toProductDTO(p))
	}
	return out, nil
}

func (s *CatalogService) GetProduct(ctx context.Context, id int64) (ProductDTO, error) {
	p, err := s.catalog.GetProduct(ctx, id)
	if errors.Is(err, store.ErrProductNotFound) {
		return ProductDTO{}, notFound("product %d not found", id)
	}
	if err != nil {
		return ProductDTO{}, err
	}
	return toProductDTO(p), nil
}
