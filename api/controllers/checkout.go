package controllers

import (
	"context"
	"net/http"

	"github.com/google/uuid"
	"github.com/samber/lo"

	"github.com/angelmondragon/storefront-backend/api/responses"
	"github.com/angelmondragon/storefront-backend/api/validators"
	"github.com/angelmondragon/storefront-backend/internal/commerce"
	"github.com/angelmondragon/storefront-backend/internal/orders"
	pkgerrors "github.com/angelmondragon/storefront-backend/pkg/errors"
	"github.com/angelmondragon/storefront-backend/pkg/logger"
)

// OrderPlacer is the checkout surface the controller needs.
type OrderPlacer interface {
	PlaceOrder(ctx context.Context, input commerce.CheckoutInput) (*orders.OrderDTO, error)
}

type checkoutItemRequest struct {
	ProductID uuid.UUID `json:"product_id" validate:"required"`
	Quantity  int       `json:"quantity" validate:"required,min=1,max=1000"`
}

type checkoutRequest struct {
	Email string                `json:"email" validate:"required,email"`
	Items []checkoutItemRequest `json:"items" validate:"required,min=1,max=100,dive"`
}

// Checkout places a pending order for the cart in the body.
func Checkout(svc OrderPlacer, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "checkout unavailable"))
			return
		}

		var req checkoutRequest
		if err := validators.DecodeJSONBody(r, &req); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		order, err := svc.PlaceOrder(r.Context(), commerce.CheckoutInput{
			CustomerRef: req.Email,
			Items: lo.Map(req.Items, func(item checkoutItemRequest, _ int) commerce.CheckoutItem {
				return commerce.CheckoutItem{ProductID: item.ProductID, Quantity: item.Quantity}
			}),
		})
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccessStatus(w, http.StatusCreated, order)
	}
}
