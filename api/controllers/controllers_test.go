package controllers

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/angelmondragon/storefront-backend/internal/commerce"
	"github.com/angelmondragon/storefront-backend/internal/orders"
	"github.com/angelmondragon/storefront-backend/internal/products"
	"github.com/angelmondragon/storefront-backend/pkg/config"
	"github.com/angelmondragon/storefront-backend/pkg/db/models"
	"github.com/angelmondragon/storefront-backend/pkg/enums"
	pkgerrors "github.com/angelmondragon/storefront-backend/pkg/errors"
	"github.com/angelmondragon/storefront-backend/pkg/pagination"
)

type stubProducts struct {
	listFn func(ctx context.Context, input products.ListProductsInput) (*products.ProductListResult, error)
	getFn  func(ctx context.Context, id uuid.UUID) (*products.ProductDTO, error)
}

func (s stubProducts) ListProducts(ctx context.Context, input products.ListProductsInput) (*products.ProductListResult, error) {
	if s.listFn != nil {
		return s.listFn(ctx, input)
	}
	return &products.ProductListResult{}, nil
}

func (s stubProducts) GetProduct(ctx context.Context, id uuid.UUID) (*products.ProductDTO, error) {
	if s.getFn != nil {
		return s.getFn(ctx, id)
	}
	return nil, pkgerrors.New(pkgerrors.CodeNotFound, "product not found")
}

func (stubProducts) Categories(context.Context) ([]string, error) {
	return []string{"lamps", "rugs"}, nil
}

func (stubProducts) CreateProduct(context.Context, products.CreateProductInput) (*products.ProductDTO, error) {
	return nil, errors.New("not implemented")
}

func (stubProducts) UpdateProduct(context.Context, uuid.UUID, products.UpdateProductInput) (*products.ProductDTO, error) {
	return nil, errors.New("not implemented")
}

func (stubProducts) DeleteProduct(context.Context, uuid.UUID) error {
	return errors.New("not implemented")
}

type stubOrders struct {
	byCustomerFn func(ctx context.Context, ref string, page pagination.Params) (*orders.OrderListResult, error)
	getFn        func(ctx context.Context, id uuid.UUID) (*orders.OrderDTO, error)
	byNumberFn   func(ctx context.Context, number string) (*orders.OrderDTO, error)
}

func (stubOrders) CreateOrder(context.Context, orders.CreateOrderInput) (*orders.OrderDTO, error) {
	return nil, errors.New("not implemented")
}

func (s stubOrders) GetOrder(ctx context.Context, id uuid.UUID) (*orders.OrderDTO, error) {
	if s.getFn != nil {
		return s.getFn(ctx, id)
	}
	return nil, pkgerrors.New(pkgerrors.CodeNotFound, "order not found")
}

func (s stubOrders) GetOrderByNumber(ctx context.Context, number string) (*orders.OrderDTO, error) {
	if s.byNumberFn != nil {
		return s.byNumberFn(ctx, number)
	}
	return nil, pkgerrors.New(pkgerrors.CodeNotFound, "order not found")
}

func (stubOrders) ListOrders(context.Context, orders.ListOrdersInput) (*orders.OrderListResult, error) {
	return &orders.OrderListResult{}, nil
}

func (s stubOrders) ListByCustomer(ctx context.Context, ref string, page pagination.Params) (*orders.OrderListResult, error) {
	if s.byCustomerFn != nil {
		return s.byCustomerFn(ctx, ref, page)
	}
	return &orders.OrderListResult{}, nil
}

func (stubOrders) Transition(context.Context, *models.Order, enums.OrderStatus) (*orders.TransitionResult, error) {
	return nil, errors.New("not implemented")
}

func (stubOrders) ChangeStatus(context.Context, uuid.UUID, enums.OrderStatus) (*orders.TransitionResult, error) {
	return nil, errors.New("not implemented")
}

type placerFunc func(ctx context.Context, input commerce.CheckoutInput) (*orders.OrderDTO, error)

func (f placerFunc) PlaceOrder(ctx context.Context, input commerce.CheckoutInput) (*orders.OrderDTO, error) {
	return f(ctx, input)
}

type pingerFunc func(ctx context.Context) error

func (f pingerFunc) Ping(ctx context.Context) error { return f(ctx) }

func withURLParam(req *http.Request, key, value string) *http.Request {
	rc := chi.NewRouteContext()
	rc.URLParams.Add(key, value)
	return req.WithContext(context.WithValue(req.Context(), chi.RouteCtxKey, rc))
}

func decodeError(t *testing.T, resp *httptest.ResponseRecorder) string {
	t.Helper()
	var envelope struct {
		Error struct {
			Code string `json:"code"`
		} `json:"error"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&envelope); err != nil {
		t.Fatalf("decode error: %v", err)
	}
	return envelope.Error.Code
}

func TestProductListParsesFilters(t *testing.T) {
	svc := stubProducts{
		listFn: func(_ context.Context, input products.ListProductsInput) (*products.ProductListResult, error) {
			if input.Category != "lamps" || input.Search != "brass" {
				t.Fatalf("unexpected filters %+v", input)
			}
			if input.MinPrice == nil || !input.MinPrice.Equal(decimal.NewFromInt(10)) {
				t.Fatalf("unexpected min price %v", input.MinPrice)
			}
			if input.MaxPrice != nil {
				t.Fatalf("expected no max price")
			}
			if input.Page.Page != 2 || input.Page.Limit != 5 {
				t.Fatalf("unexpected page %+v", input.Page)
			}
			return &products.ProductListResult{TotalProducts: 7, TotalPages: 2, Page: 2, Limit: 5}, nil
		},
	}

	req := httptest.NewRequest(http.MethodGet, "/?category=lamps&search=%20brass%20&min_price=10&page=2&limit=5", nil)
	resp := httptest.NewRecorder()
	ProductList(svc, nil).ServeHTTP(resp, req)

	if resp.Code != http.StatusOK {
		t.Fatalf("expected 200 got %d: %s", resp.Code, resp.Body.String())
	}
	var envelope struct {
		Data products.ProductListResult `json:"data"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&envelope); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if envelope.Data.TotalProducts != 7 || envelope.Data.TotalPages != 2 {
		t.Fatalf("unexpected payload %+v", envelope.Data)
	}
}

func TestProductListRejectsBadQuery(t *testing.T) {
	for _, query := range []string{"?min_price=abc", "?max_price=-3", "?limit=1000", "?page=0"} {
		resp := httptest.NewRecorder()
		ProductList(stubProducts{}, nil).ServeHTTP(resp, httptest.NewRequest(http.MethodGet, "/"+query, nil))
		if resp.Code != http.StatusBadRequest {
			t.Fatalf("%s: expected 400 got %d", query, resp.Code)
		}
	}
}

func TestProductDetail(t *testing.T) {
	id := uuid.New()
	svc := stubProducts{
		getFn: func(_ context.Context, got uuid.UUID) (*products.ProductDTO, error) {
			if got != id {
				return nil, pkgerrors.New(pkgerrors.CodeNotFound, "product not found")
			}
			return &products.ProductDTO{ID: id, Name: "Desk lamp", Stock: 2, StockLevel: enums.StockLevelLowStock}, nil
		},
	}

	resp := httptest.NewRecorder()
	ProductDetail(svc, nil).ServeHTTP(resp, withURLParam(httptest.NewRequest(http.MethodGet, "/", nil), "productId", id.String()))
	if resp.Code != http.StatusOK {
		t.Fatalf("expected 200 got %d", resp.Code)
	}

	missing := httptest.NewRecorder()
	ProductDetail(svc, nil).ServeHTTP(missing, withURLParam(httptest.NewRequest(http.MethodGet, "/", nil), "productId", uuid.NewString()))
	if missing.Code != http.StatusNotFound {
		t.Fatalf("expected 404 got %d", missing.Code)
	}

	bad := httptest.NewRecorder()
	ProductDetail(svc, nil).ServeHTTP(bad, withURLParam(httptest.NewRequest(http.MethodGet, "/", nil), "productId", "42"))
	if bad.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 got %d", bad.Code)
	}
}

func TestProductCategories(t *testing.T) {
	resp := httptest.NewRecorder()
	ProductCategories(stubProducts{}, nil).ServeHTTP(resp, httptest.NewRequest(http.MethodGet, "/", nil))
	if resp.Code != http.StatusOK || !strings.Contains(resp.Body.String(), `"lamps"`) {
		t.Fatalf("unexpected response %d %s", resp.Code, resp.Body.String())
	}
}

func TestCheckoutPlacesOrder(t *testing.T) {
	productID := uuid.New()
	var got commerce.CheckoutInput
	placer := placerFunc(func(_ context.Context, input commerce.CheckoutInput) (*orders.OrderDTO, error) {
		got = input
		return &orders.OrderDTO{ID: uuid.New(), Status: enums.OrderStatusPending, Amount: decimal.RequireFromString("19.98")}, nil
	})

	body := `{"email":"shopper@example.com","items":[{"product_id":"` + productID.String() + `","quantity":2}]}`
	resp := httptest.NewRecorder()
	Checkout(placer, nil).ServeHTTP(resp, httptest.NewRequest(http.MethodPost, "/", strings.NewReader(body)))

	if resp.Code != http.StatusCreated {
		t.Fatalf("expected 201 got %d: %s", resp.Code, resp.Body.String())
	}
	if got.CustomerRef != "shopper@example.com" || len(got.Items) != 1 || got.Items[0].ProductID != productID || got.Items[0].Quantity != 2 {
		t.Fatalf("unexpected checkout input %+v", got)
	}
}

func TestCheckoutValidationAndShortage(t *testing.T) {
	placer := placerFunc(func(context.Context, commerce.CheckoutInput) (*orders.OrderDTO, error) {
		return nil, pkgerrors.New(pkgerrors.CodeInsufficientStock, "not enough stock").
			WithDetails(map[string]any{"shortages": []commerce.Shortage{{Available: 1, Requested: 3}}})
	})

	cases := []struct {
		name string
		body string
		want int
		code pkgerrors.Code
	}{
		{"empty cart", `{"email":"a@example.com","items":[]}`, http.StatusBadRequest, pkgerrors.CodeValidation},
		{"zero quantity", `{"email":"a@example.com","items":[{"product_id":"` + uuid.NewString() + `","quantity":0}]}`, http.StatusBadRequest, pkgerrors.CodeValidation},
		{"bad email", `{"email":"nope","items":[{"product_id":"` + uuid.NewString() + `","quantity":1}]}`, http.StatusBadRequest, pkgerrors.CodeValidation},
		{"shortage", `{"email":"a@example.com","items":[{"product_id":"` + uuid.NewString() + `","quantity":3}]}`, http.StatusConflict, pkgerrors.CodeInsufficientStock},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			resp := httptest.NewRecorder()
			Checkout(placer, nil).ServeHTTP(resp, httptest.NewRequest(http.MethodPost, "/", strings.NewReader(tc.body)))
			if resp.Code != tc.want {
				t.Fatalf("expected %d got %d", tc.want, resp.Code)
			}
			if code := decodeError(t, resp); code != string(tc.code) {
				t.Fatalf("expected %s got %s", tc.code, code)
			}
		})
	}
}

func TestCustomerOrders(t *testing.T) {
	svc := stubOrders{
		byCustomerFn: func(_ context.Context, ref string, page pagination.Params) (*orders.OrderListResult, error) {
			if ref != "shopper@example.com" || page.Page != 1 {
				t.Fatalf("unexpected lookup %q %+v", ref, page)
			}
			return &orders.OrderListResult{TotalOrders: 1}, nil
		},
	}

	resp := httptest.NewRecorder()
	CustomerOrders(svc, nil).ServeHTTP(resp, httptest.NewRequest(http.MethodGet, "/?email=shopper@example.com", nil))
	if resp.Code != http.StatusOK {
		t.Fatalf("expected 200 got %d", resp.Code)
	}

	missing := httptest.NewRecorder()
	CustomerOrders(svc, nil).ServeHTTP(missing, httptest.NewRequest(http.MethodGet, "/", nil))
	if missing.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 without email got %d", missing.Code)
	}
}

func TestOrderDetailNotFound(t *testing.T) {
	resp := httptest.NewRecorder()
	OrderDetail(stubOrders{}, nil).ServeHTTP(resp, withURLParam(httptest.NewRequest(http.MethodGet, "/", nil), "orderId", uuid.NewString()))
	if resp.Code != http.StatusNotFound {
		t.Fatalf("expected 404 got %d", resp.Code)
	}
}

func TestOrderDetailByNumber(t *testing.T) {
	id := uuid.New()
	svc := stubOrders{
		byNumberFn: func(_ context.Context, number string) (*orders.OrderDTO, error) {
			if number != "ORD-20260302-ABCDEF12" {
				t.Errorf("unexpected number %q", number)
			}
			return &orders.OrderDTO{ID: id, OrderNumber: number}, nil
		},
		getFn: func(context.Context, uuid.UUID) (*orders.OrderDTO, error) {
			t.Error("number lookups must not go through the id path")
			return nil, nil
		},
	}

	resp := httptest.NewRecorder()
	OrderDetail(svc, nil).ServeHTTP(resp, withURLParam(httptest.NewRequest(http.MethodGet, "/", nil), "orderId", "ORD-20260302-ABCDEF12"))
	if resp.Code != http.StatusOK {
		t.Fatalf("expected 200 got %d", resp.Code)
	}
	if !strings.Contains(resp.Body.String(), id.String()) {
		t.Fatalf("expected order in body, got %s", resp.Body.String())
	}
}

func TestHealthReady(t *testing.T) {
	cfg := &config.Config{App: config.AppConfig{Env: "dev"}}
	healthy := pingerFunc(func(context.Context) error { return nil })
	down := pingerFunc(func(context.Context) error { return errors.New("connection refused") })

	resp := httptest.NewRecorder()
	HealthReady(cfg, nil, map[string]Pinger{"db": healthy, "redis": healthy}).ServeHTTP(resp, httptest.NewRequest(http.MethodGet, "/", nil))
	if resp.Code != http.StatusOK || resp.Header().Get(envHeader) != "dev" {
		t.Fatalf("expected ready, got %d", resp.Code)
	}

	resp = httptest.NewRecorder()
	HealthReady(cfg, nil, map[string]Pinger{"db": healthy, "redis": down}).ServeHTTP(resp, httptest.NewRequest(http.MethodGet, "/", nil))
	if resp.Code != http.StatusServiceUnavailable {
		t.Fatalf("expected 503 got %d", resp.Code)
	}

	live := httptest.NewRecorder()
	HealthLive(cfg).ServeHTTP(live, httptest.NewRequest(http.MethodGet, "/", nil))
	if live.Code != http.StatusOK {
		t.Fatalf("expected live 200 got %d", live.Code)
	}
}
