/*
handlers.go - HTTP handlers for the vending engine

PURPOSE:
  Exposes the cash register, inventory, order placement and reporting
  dashboard over REST. Handles HTTP request/response and JSON; all business
  rules live in the domain packages.

ENDPOINTS:
  Cash:
    GET    /api/cash/balance           Current balance
    POST   /api/cash/insert            Insert money
    POST   /api/cash/refund            Refund everything

  Inventory:
    GET    /api/products               List products with stock
    POST   /api/products               Create product
    PUT    /api/products/{code}        Update name/price
    DELETE /api/products/{code}        Delete (only at zero stock)
    GET    /api/products/{code}        Product details
    PUT    /api/products/{code}/stock  Set stock level
    POST   /api/products/{code}/stock/add     Add stock
    POST   /api/products/{code}/stock/remove  Remove stock

  Orders:
    POST   /api/orders                 Place an order
    GET    /api/orders/recent          Recent confirmed orders

  Reporting:
    GET    /api/reporting/dashboard    Revenue aggregates

ERROR HANDLING:
  The machine error taxonomy maps onto HTTP status codes in one place
  (writeDomainError):
    400  InvalidArgument, InvalidValue
    404  NotFound
    409  Conflict, OrderFailed, OrderFailedCompensated
    422  OutOfStock, InsufficientFunds, InsufficientStock
    500  CompensationFailed and everything unexpected

SEE ALSO:
  - dto.go: Request/response structures
  - server.go: Router setup and middleware
*/
package api

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/shopspring/decimal"

	"github.com/vendmatic/vending-engine/cash"
	"github.com/vendmatic/vending-engine/inventory"
	"github.com/vendmatic/vending-engine/machine"
	"github.com/vendmatic/vending-engine/orders"
	"github.com/vendmatic/vending-engine/reporting"
)

// =============================================================================
// HANDLER
// =============================================================================

// Handler holds all dependencies for HTTP handlers. OrderLog may be nil when
// the deployment keeps no audit log.
type Handler struct {
	Cash      *cash.Register
	Inventory *inventory.Service
	Placer    orders.Placer
	Reporting *reporting.Service
	OrderLog  orders.Log
}

// NewHandler creates a handler over the engine's services.
func NewHandler(register *cash.Register, inv *inventory.Service, placer orders.Placer, rep *reporting.Service, log orders.Log) *Handler {
	return &Handler{Cash: register, Inventory: inv, Placer: placer, Reporting: rep, OrderLog: log}
}

// =============================================================================
// CASH ENDPOINTS
// =============================================================================

// GetBalance returns the current cash balance.
// GET /api/cash/balance
func (h *Handler) GetBalance(w http.ResponseWriter, r *http.Request) {
	balance, err := h.Cash.Balance(r.Context())
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, BalanceDTO{Balance: money(balance)})
}

// InsertCash adds money to the balance.
// POST /api/cash/insert
func (h *Handler) InsertCash(w http.ResponseWriter, r *http.Request) {
	var req InsertCashRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body", err)
		return
	}

	amount, err := decimal.NewFromString(req.Amount)
	if err != nil {
		writeError(w, http.StatusBadRequest, "Invalid amount", err)
		return
	}

	if err := h.Cash.Insert(r.Context(), amount); err != nil {
		writeDomainError(w, err)
		return
	}

	balance, err := h.Cash.Balance(r.Context())
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, BalanceDTO{Balance: money(balance)})
}

// RefundAll returns all inserted money.
// POST /api/cash/refund
func (h *Handler) RefundAll(w http.ResponseWriter, r *http.Request) {
	refunded, err := h.Cash.RefundAll(r.Context())
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, RefundDTO{Refunded: money(refunded)})
}

// =============================================================================
// INVENTORY ENDPOINTS
// =============================================================================

// ListProducts returns all products with their stock levels.
// GET /api/products
func (h *Handler) ListProducts(w http.ResponseWriter, r *http.Request) {
	products, err := h.Inventory.List(r.Context())
	if err != nil {
		writeDomainError(w, err)
		return
	}

	dtos := make([]ProductDTO, 0, len(products))
	for _, p := range products {
		quantity, err := h.Inventory.Quantity(r.Context(), p.Code)
		if err != nil {
			writeDomainError(w, err)
			return
		}
		dtos = append(dtos, ProductDTO{Code: p.Code, Name: p.Name, Price: money(p.Price), Quantity: quantity})
	}
	writeJSON(w, http.StatusOK, dtos)
}

// GetProduct returns one product with its stock level.
// GET /api/products/{code}
func (h *Handler) GetProduct(w http.ResponseWriter, r *http.Request) {
	code := chi.URLParam(r, "code")

	product, err := h.Inventory.ByCode(r.Context(), code)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	quantity, err := h.Inventory.Quantity(r.Context(), product.Code)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, ProductDTO{
		Code: product.Code, Name: product.Name, Price: money(product.Price), Quantity: quantity,
	})
}

// CreateProduct adds a new product with zero stock.
// POST /api/products
func (h *Handler) CreateProduct(w http.ResponseWriter, r *http.Request) {
	product, ok := decodeProduct(w, r)
	if !ok {
		return
	}
	if err := h.Inventory.Create(r.Context(), product); err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, ProductDTO{Code: product.Code, Name: product.Name, Price: money(product.Price)})
}

// UpdateProduct changes name and price of an existing product.
// PUT /api/products/{code}
func (h *Handler) UpdateProduct(w http.ResponseWriter, r *http.Request) {
	product, ok := decodeProduct(w, r)
	if !ok {
		return
	}
	product.Code = chi.URLParam(r, "code")

	if err := h.Inventory.Update(r.Context(), product); err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, ProductDTO{Code: product.Code, Name: product.Name, Price: money(product.Price)})
}

// DeleteProduct removes a product that has no stock left.
// DELETE /api/products/{code}
func (h *Handler) DeleteProduct(w http.ResponseWriter, r *http.Request) {
	if err := h.Inventory.Delete(r.Context(), chi.URLParam(r, "code")); err != nil {
		writeDomainError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// SetStock overwrites the stock level for a product.
// PUT /api/products/{code}/stock
func (h *Handler) SetStock(w http.ResponseWriter, r *http.Request) {
	h.mutateStock(w, r, h.Inventory.SetStock)
}

// AddStock increases the stock level for a product.
// POST /api/products/{code}/stock/add
func (h *Handler) AddStock(w http.ResponseWriter, r *http.Request) {
	h.mutateStock(w, r, h.Inventory.AddStock)
}

// RemoveStock decreases the stock level for a product.
// POST /api/products/{code}/stock/remove
func (h *Handler) RemoveStock(w http.ResponseWriter, r *http.Request) {
	h.mutateStock(w, r, h.Inventory.RemoveStock)
}

// =============================================================================
// ORDER ENDPOINTS
// =============================================================================

// PlaceOrder purchases one unit of a product.
// POST /api/orders
func (h *Handler) PlaceOrder(w http.ResponseWriter, r *http.Request) {
	var req PlaceOrderRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body", err)
		return
	}

	receipt, err := h.Placer.PlaceOrder(r.Context(), req.Code)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, toReceiptDTO(receipt))
}

// RecentOrders returns the newest entries of the order log.
// GET /api/orders/recent?limit=20
func (h *Handler) RecentOrders(w http.ResponseWriter, r *http.Request) {
	if h.OrderLog == nil {
		writeError(w, http.StatusNotFound, "Order log is not enabled", nil)
		return
	}

	limit := 20
	if raw := r.URL.Query().Get("limit"); raw != "" {
		parsed, err := strconv.Atoi(raw)
		if err != nil || parsed <= 0 {
			writeError(w, http.StatusBadRequest, "Invalid limit", err)
			return
		}
		limit = parsed
	}

	records, err := h.OrderLog.Recent(r.Context(), limit)
	if err != nil {
		writeDomainError(w, err)
		return
	}

	dtos := make([]OrderRecordDTO, 0, len(records))
	for _, rec := range records {
		dtos = append(dtos, toRecordDTO(rec))
	}
	writeJSON(w, http.StatusOK, dtos)
}

// =============================================================================
// REPORTING ENDPOINTS
// =============================================================================

// Dashboard returns revenue aggregates over confirmed orders.
// GET /api/reporting/dashboard
func (h *Handler) Dashboard(w http.ResponseWriter, r *http.Request) {
	stats, err := h.Reporting.Dashboard(r.Context())
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, DashboardDTO{
		TotalRevenue:      money(stats.TotalRevenue),
		OrderCount:        stats.OrderCount,
		AverageOrderValue: money(stats.AverageOrderValue),
	})
}

// =============================================================================
// HELPERS
// =============================================================================

func (h *Handler) mutateStock(w http.ResponseWriter, r *http.Request, op func(ctx context.Context, code string, quantity int) error) {
	var req StockRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body", err)
		return
	}

	code := chi.URLParam(r, "code")
	if err := op(r.Context(), code, req.Quantity); err != nil {
		writeDomainError(w, err)
		return
	}

	quantity, err := h.Inventory.Quantity(r.Context(), code)
	if err != nil {
		writeDomainError(w, err)
		return
	}

	normalized, _ := machine.NormalizeCode(code)
	writeJSON(w, http.StatusOK, StockDTO{Code: normalized, Quantity: quantity})
}

func decodeProduct(w http.ResponseWriter, r *http.Request) (machine.Product, bool) {
	var req ProductRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body", err)
		return machine.Product{}, false
	}

	price, err := decimal.NewFromString(req.Price)
	if err != nil {
		writeError(w, http.StatusBadRequest, "Invalid price", err)
		return machine.Product{}, false
	}

	return machine.Product{Code: req.Code, Name: req.Name, Price: price}, true
}

// writeDomainError maps the machine error taxonomy to HTTP statuses.
func writeDomainError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, machine.ErrNotFound):
		writeError(w, http.StatusNotFound, "Not found", err)
	case errors.Is(err, machine.ErrInvalidArgument), errors.Is(err, machine.ErrInvalidValue):
		writeError(w, http.StatusBadRequest, "Invalid input", err)
	case errors.Is(err, machine.ErrConflict):
		writeError(w, http.StatusConflict, "Conflict", err)
	case errors.Is(err, machine.ErrCompensationFailed):
		// Financial inconsistency: keep the full story in the response so
		// an operator sees it even without log access.
		writeError(w, http.StatusInternalServerError, "Order failed and refund failed", err)
	case errors.Is(err, machine.ErrOrderFailed), errors.Is(err, machine.ErrOrderFailedCompensated):
		writeError(w, http.StatusConflict, "Order could not be completed", err)
	case errors.Is(err, machine.ErrOutOfStock),
		errors.Is(err, machine.ErrInsufficientFunds),
		errors.Is(err, machine.ErrInsufficientStock):
		writeError(w, http.StatusUnprocessableEntity, "Rejected", err)
	default:
		writeError(w, http.StatusInternalServerError, "Internal error", err)
	}
}

func writeJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(data)
}

func writeError(w http.ResponseWriter, status int, message string, err error) {
	resp := ErrorResponse{Error: message}
	if err != nil {
		resp.Details = err.Error()
	}
	writeJSON(w, status, resp)
}
