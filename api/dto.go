/*
dto.go - Data Transfer Objects for API requests and responses

PURPOSE:
  JSON structures for the API contract, decoupled from the domain types.
  Money is serialized as a fixed two-decimal string ("3.50"), never as a
  JSON number, so clients are not tempted into float arithmetic.

NAMING CONVENTION:
  - *DTO: Response types returned to clients
  - *Request: Request body types from clients

SEE ALSO:
  - handlers.go: Uses these types
*/
package api

import (
	"github.com/shopspring/decimal"

	"github.com/vendmatic/vending-engine/machine"
	"github.com/vendmatic/vending-engine/orders"
)

// =============================================================================
// CASH
// =============================================================================

// BalanceDTO is the cash balance response.
type BalanceDTO struct {
	Balance string `json:"balance"`
}

// InsertCashRequest is the request to insert money.
type InsertCashRequest struct {
	Amount string `json:"amount"`
}

// RefundDTO is the refund-all response.
type RefundDTO struct {
	Refunded string `json:"refunded"`
}

// =============================================================================
// INVENTORY
// =============================================================================

// ProductDTO represents a product in API responses.
type ProductDTO struct {
	Code     string `json:"code"`
	Name     string `json:"name"`
	Price    string `json:"price"`
	Quantity int    `json:"quantity"`
}

// ProductRequest is the request to create, update or upsert a product.
type ProductRequest struct {
	Code  string `json:"code"`
	Name  string `json:"name"`
	Price string `json:"price"`
}

// StockRequest is the request to add, remove or set stock.
type StockRequest struct {
	Quantity int `json:"quantity"`
}

// StockDTO is the stock level response.
type StockDTO struct {
	Code     string `json:"code"`
	Quantity int    `json:"quantity"`
}

// =============================================================================
// ORDERS
// =============================================================================

// PlaceOrderRequest is the request to place an order.
type PlaceOrderRequest struct {
	Code string `json:"code"`
}

// ReceiptDTO is the successful-order response.
type ReceiptDTO struct {
	ProductCode  string `json:"product_code"`
	Price        string `json:"price"`
	BalanceAfter string `json:"balance_after"`
	StockAfter   int    `json:"stock_after"`
}

// OrderRecordDTO is one row of the order log.
type OrderRecordDTO struct {
	ID          string `json:"id"`
	ProductCode string `json:"product_code"`
	ProductName string `json:"product_name"`
	Price       string `json:"price"`
	Status      string `json:"status"`
	CreatedAt   string `json:"created_at"`
}

// =============================================================================
// REPORTING
// =============================================================================

// DashboardDTO is the reporting dashboard response.
type DashboardDTO struct {
	TotalRevenue      string `json:"total_revenue"`
	OrderCount        int    `json:"order_count"`
	AverageOrderValue string `json:"average_order_value"`
}

// ErrorResponse is the error envelope for all failures.
type ErrorResponse struct {
	Error   string `json:"error"`
	Details string `json:"details,omitempty"`
}

// =============================================================================
// CONVERSIONS
// =============================================================================

func money(d decimal.Decimal) string { return d.StringFixed(2) }

func toReceiptDTO(r machine.Receipt) ReceiptDTO {
	return ReceiptDTO{
		ProductCode:  r.ProductCode,
		Price:        money(r.Price),
		BalanceAfter: money(r.BalanceAfter),
		StockAfter:   r.StockAfter,
	}
}

func toRecordDTO(rec orders.Record) OrderRecordDTO {
	return OrderRecordDTO{
		ID:          rec.ID.String(),
		ProductCode: rec.ProductCode,
		ProductName: rec.ProductName,
		Price:       money(rec.Price),
		Status:      string(rec.Status),
		CreatedAt:   rec.CreatedAt.UTC().Format("2006-01-02T15:04:05Z07:00"),
	}
}
