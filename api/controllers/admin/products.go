package admin

import (
	"context"
	"net/http"

	"github.com/google/uuid"
	"github.com/samber/lo"
	"github.com/shopspring/decimal"

	"github.com/angelmondragon/storefront-backend/api/responses"
	"github.com/angelmondragon/storefront-backend/api/validators"
	"github.com/angelmondragon/storefront-backend/internal/inventory"
	"github.com/angelmondragon/storefront-backend/internal/products"
	"github.com/angelmondragon/storefront-backend/pkg/db/models"
	"github.com/angelmondragon/storefront-backend/pkg/enums"
	pkgerrors "github.com/angelmondragon/storefront-backend/pkg/errors"
	"github.com/angelmondragon/storefront-backend/pkg/logger"
)

// StockAdjuster applies one stock delta.
type StockAdjuster interface {
	Adjust(ctx context.Context, productID uuid.UUID, quantity int, direction enums.StockDirection) (*inventory.Adjustment, error)
}

type LowStockReporter interface {
	LowStock(ctx context.Context, threshold int) ([]models.Product, error)
}

type createProductRequest struct {
	Name        string           `json:"name" validate:"required,max=200"`
	Category    string           `json:"category" validate:"required,max=100"`
	Description string           `json:"description" validate:"max=5000"`
	Price       decimal.Decimal  `json:"price" validate:"gte=0"`
	OldPrice    *decimal.Decimal `json:"old_price" validate:"omitempty,gte=0"`
	ImageURL    string           `json:"image_url" validate:"omitempty,url"`
	Stock       int              `json:"stock" validate:"gte=0,lte=2147483647"`
}

type updateProductRequest struct {
	Name          *string          `json:"name" validate:"omitempty,max=200"`
	Category      *string          `json:"category" validate:"omitempty,max=100"`
	Description   *string          `json:"description" validate:"omitempty,max=5000"`
	Price         *decimal.Decimal `json:"price" validate:"omitempty,gte=0"`
	OldPrice      *decimal.Decimal `json:"old_price" validate:"omitempty,gte=0"`
	ClearOldPrice bool             `json:"clear_old_price"`
	ImageURL      *string          `json:"image_url" validate:"omitempty,url"`
}

type stockRequest struct {
	Quantity int    `json:"quantity" validate:"required,min=1,max=2147483647"`
	Action   string `json:"action" validate:"required,oneof=increase decrease"`
}

func CreateProduct(svc products.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "product service unavailable"))
			return
		}
		var req createProductRequest
		if err := validators.DecodeJSONBody(r, &req); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		product, err := svc.CreateProduct(r.Context(), products.CreateProductInput{
			Name:        req.Name,
			Category:    req.Category,
			Description: req.Description,
			Price:       req.Price,
			OldPrice:    req.OldPrice,
			ImageURL:    req.ImageURL,
			Stock:       req.Stock,
		})
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccessStatus(w, http.StatusCreated, product)
	}
}

// UpdateProduct edits catalog fields. Stock is rejected as an unknown field.
func UpdateProduct(svc products.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "product service unavailable"))
			return
		}
		productID, err := validators.ParseUUIDParam(r, "productId")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		var req updateProductRequest
		if err := validators.DecodeJSONBody(r, &req); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		product, err := svc.UpdateProduct(r.Context(), productID, products.UpdateProductInput{
			Name:          req.Name,
			Category:      req.Category,
			Description:   req.Description,
			Price:         req.Price,
			OldPrice:      req.OldPrice,
			ClearOldPrice: req.ClearOldPrice,
			ImageURL:      req.ImageURL,
		})
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, product)
	}
}

func DeleteProduct(svc products.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "product service unavailable"))
			return
		}
		productID, err := validators.ParseUUIDParam(r, "productId")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		if err := svc.DeleteProduct(r.Context(), productID); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteNoContent(w)
	}
}

// AdjustStock applies a signed delta and answers with the stored result.
func AdjustStock(ledger StockAdjuster, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if ledger == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "inventory unavailable"))
			return
		}
		productID, err := validators.ParseUUIDParam(r, "productId")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		var req stockRequest
		if err := validators.DecodeJSONBody(r, &req); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		direction, err := enums.ParseStockDirection(req.Action)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid action"))
			return
		}
		adjustment, err := ledger.Adjust(r.Context(), productID, req.Quantity, direction)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, adjustment)
	}
}

func LowStock(report LowStockReporter, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if report == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "reporting unavailable"))
			return
		}
		threshold, err := validators.ParseQueryInt(r, "threshold", 0, 0, 1000000)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		rows, err := report.LowStock(r.Context(), threshold)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, map[string]any{
			"products": lo.Map(rows, func(p models.Product, _ int) products.ProductDTO { return *products.NewProductDTO(&p) }),
		})
	}
}
