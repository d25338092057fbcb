package products

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"github.com/angelmondragon/storefront-backend/pkg/db/models"
	pkgerrors "github.com/angelmondragon/storefront-backend/pkg/errors"
	"github.com/angelmondragon/storefront-backend/pkg/pagination"
)

// Service exposes catalog reads for shoppers and catalog management for staff.
// Stock changes go through the inventory ledger, never through here.
type Service interface {
	ListProducts(ctx context.Context, input ListProductsInput) (*ProductListResult, error)
	GetProduct(ctx context.Context, id uuid.UUID) (*ProductDTO, error)
	Categories(ctx context.Context) ([]string, error)
	CreateProduct(ctx context.Context, input CreateProductInput) (*ProductDTO, error)
	UpdateProduct(ctx context.Context, id uuid.UUID, input UpdateProductInput) (*ProductDTO, error)
	DeleteProduct(ctx context.Context, id uuid.UUID) error
}

type ListProductsInput struct {
	Category string
	Search   string
	MinPrice *decimal.Decimal
	MaxPrice *decimal.Decimal
	Page     pagination.Params
}

// CreateProductInput holds the validated payload to create a product. Stock is
// the opening count; later changes are adjustments.
type CreateProductInput struct {
	Name        string
	Category    string
	Description string
	Price       decimal.Decimal
	OldPrice    *decimal.Decimal
	ImageURL    string
	Stock       int
}

// UpdateProductInput holds optional catalog fields. There is deliberately no stock field.
type UpdateProductInput struct {
	Name          *string
	Category      *string
	Description   *string
	Price         *decimal.Decimal
	OldPrice      *decimal.Decimal
	ClearOldPrice bool
	ImageURL      *string
}

type productStore interface {
	Create(ctx context.Context, product *models.Product) (*models.Product, error)
	Update(ctx context.Context, id uuid.UUID, fields map[string]any) (*models.Product, error)
	Delete(ctx context.Context, id uuid.UUID) error
	FindByID(ctx context.Context, id uuid.UUID) (*models.Product, error)
	List(ctx context.Context, filter Filter) ([]models.Product, int64, error)
	Categories(ctx context.Context) ([]string, error)
}

type service struct {
	repo productStore
}

func NewService(repo productStore) (Service, error) {
	if repo == nil {
		return nil, fmt.Errorf("product repository required")
	}
	return &service{repo: repo}, nil
}

func (s *service) ListProducts(ctx context.Context, input ListProductsInput) (*ProductListResult, error) {
	if err := validatePrice("min_price", input.MinPrice); err != nil {
		return nil, err
	}
	if err := validatePrice("max_price", input.MaxPrice); err != nil {
		return nil, err
	}
	if input.MinPrice != nil && input.MaxPrice != nil && input.MinPrice.GreaterThan(*input.MaxPrice) {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "min_price must not exceed max_price")
	}

	page := input.Page.Normalize()
	rows, total, err := s.repo.List(ctx, Filter{
		Category: input.Category,
		Search:   input.Search,
		MinPrice: input.MinPrice,
		MaxPrice: input.MaxPrice,
		Page:     page,
	})
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "list products")
	}

	return &ProductListResult{
		Products:      newProductDTOs(rows),
		TotalProducts: total,
		TotalPages:    pagination.TotalPages(total, page.Limit),
		Page:          page.Page,
		Limit:         page.Limit,
	}, nil
}

func (s *service) GetProduct(ctx context.Context, id uuid.UUID) (*ProductDTO, error) {
	if id == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "product id required")
	}
	product, err := s.repo.FindByID(ctx, id)
	if err != nil {
		return nil, mapRepoError(err, "load product")
	}
	return NewProductDTO(product), nil
}

func (s *service) Categories(ctx context.Context) ([]string, error) {
	categories, err := s.repo.Categories(ctx)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "list categories")
	}
	if categories == nil {
		categories = []string{}
	}
	return categories, nil
}

func (s *service) CreateProduct(ctx context.Context, input CreateProductInput) (*ProductDTO, error) {
	name := strings.TrimSpace(input.Name)
	category := strings.TrimSpace(input.Category)
	if name == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "name is required")
	}
	if category == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "category is required")
	}
	if err := validatePrice("price", &input.Price); err != nil {
		return nil, err
	}
	if err := validatePrice("old_price", input.OldPrice); err != nil {
		return nil, err
	}
	if input.Stock < 0 {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "stock must not be negative")
	}

	product := &models.Product{
		Name:        name,
		Category:    category,
		Description: strings.TrimSpace(input.Description),
		Price:       input.Price,
		OldPrice:    input.OldPrice,
		ImageURL:    strings.TrimSpace(input.ImageURL),
		Stock:       input.Stock,
	}
	created, err := s.repo.Create(ctx, product)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "create product")
	}
	return NewProductDTO(created), nil
}

func (s *service) UpdateProduct(ctx context.Context, id uuid.UUID, input UpdateProductInput) (*ProductDTO, error) {
	if id == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "product id required")
	}

	fields := map[string]any{}
	if input.Name != nil {
		name := strings.TrimSpace(*input.Name)
		if name == "" {
			return nil, pkgerrors.New(pkgerrors.CodeValidation, "name must not be empty")
		}
		fields["name"] = name
	}
	if input.Category != nil {
		category := strings.TrimSpace(*input.Category)
		if category == "" {
			return nil, pkgerrors.New(pkgerrors.CodeValidation, "category must not be empty")
		}
		fields["category"] = category
	}
	if input.Description != nil {
		fields["description"] = strings.TrimSpace(*input.Description)
	}
	if input.Price != nil {
		if err := validatePrice("price", input.Price); err != nil {
			return nil, err
		}
		fields["price"] = *input.Price
	}
	switch {
	case input.ClearOldPrice:
		fields["old_price"] = nil
	case input.OldPrice != nil:
		if err := validatePrice("old_price", input.OldPrice); err != nil {
			return nil, err
		}
		fields["old_price"] = *input.OldPrice
	}
	if input.ImageURL != nil {
		fields["image_url"] = strings.TrimSpace(*input.ImageURL)
	}
	if len(fields) == 0 {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "no fields to update")
	}

	updated, err := s.repo.Update(ctx, id, fields)
	if err != nil {
		return nil, mapRepoError(err, "update product")
	}
	return NewProductDTO(updated), nil
}

func (s *service) DeleteProduct(ctx context.Context, id uuid.UUID) error {
	if id == uuid.Nil {
		return pkgerrors.New(pkgerrors.CodeValidation, "product id required")
	}
	if err := s.repo.Delete(ctx, id); err != nil {
		return mapRepoError(err, "delete product")
	}
	return nil
}

func validatePrice(field string, value *decimal.Decimal) error {
	if value == nil {
		return nil
	}
	if value.IsNegative() {
		return pkgerrors.New(pkgerrors.CodeValidation, field+" must not be negative").
			WithDetails(map[string]any{"field": field})
	}
	return nil
}

func mapRepoError(err error, action string) error {
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return pkgerrors.New(pkgerrors.CodeNotFound, "product not found")
	}
	return pkgerrors.Wrap(pkgerrors.CodeDependency, err, action)
}
