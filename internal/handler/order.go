package handler

import (
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/efreitasn/matchbook/internal/domain"
	"github.com/efreitasn/matchbook/internal/service"
	"github.com/go-chi/chi/v5"
)

// OrderHandler handles HTTP requests for order endpoints.
type OrderHandler struct {
	orderSvc *service.OrderService
}

// NewOrderHandler creates a new OrderHandler.
func NewOrderHandler(orderSvc *service.OrderService) *OrderHandler {
	return &OrderHandler{orderSvc: orderSvc}
}

// submitOrderRequest is the JSON request body for POST /orders.
type submitOrderRequest struct {
	Type       string   `json:"type"`
	Side       string   `json:"side"`
	Instrument string   `json:"instrument"`
	Price      *float64 `json:"price"`
	Quantity   int64    `json:"quantity"`
	Condition  string   `json:"condition"`
}

// amendOrderRequest is the JSON request body for PUT /orders/{order_no}.
type amendOrderRequest struct {
	Price    *float64 `json:"price"`
	Quantity int64    `json:"quantity"`
}

// orderResponse is the JSON representation of an order, plus the trades
// executed by the operation that produced this response. Market orders
// omit price.
type orderResponse struct {
	OrderNo           uint64          `json:"order_no"`
	Type              string          `json:"type"`
	Side              string          `json:"side"`
	Condition         string          `json:"condition"`
	Instrument        string          `json:"instrument"`
	Price             *float64        `json:"price,omitempty"`
	Quantity          int64           `json:"quantity"`
	FilledQuantity    int64           `json:"filled_quantity"`
	RemainingQuantity int64           `json:"remaining_quantity"`
	CancelledQuantity int64           `json:"cancelled_quantity"`
	Status            string          `json:"status"`
	CreatedAt         string          `json:"created_at"`
	CancelledAt       *string         `json:"cancelled_at,omitempty"`
	Trades            []tradeResponse `json:"trades"`
}

// tradeResponse is a single trade in an order or trade-log response.
type tradeResponse struct {
	TradeID    string  `json:"trade_id"`
	BidOrderNo uint64  `json:"bid_order_no"`
	AskOrderNo uint64  `json:"ask_order_no"`
	Price      float64 `json:"price"`
	Quantity   int64   `json:"quantity"`
	ExecutedAt string  `json:"executed_at"`
}

func buildTradeResponse(t domain.Trade) tradeResponse {
	return tradeResponse{
		TradeID:    t.TradeID,
		BidOrderNo: t.BidOrderNo,
		AskOrderNo: t.AskOrderNo,
		Price:      domain.CentsToDollars(t.Price),
		Quantity:   t.Quantity,
		ExecutedAt: t.ExecutedAt.UTC().Format(time.RFC3339Nano),
	}
}

func buildOrderResponse(o *domain.Order, trades []domain.Trade) orderResponse {
	resp := orderResponse{
		OrderNo:           o.OrderNo,
		Type:              string(o.Type),
		Side:              string(o.Side),
		Condition:         string(o.Condition),
		Instrument:        o.Instrument,
		Quantity:          o.Quantity,
		FilledQuantity:    o.FilledQuantity,
		RemainingQuantity: o.RemainingQuantity,
		CancelledQuantity: o.CancelledQuantity,
		Status:            string(o.Status),
		CreatedAt:         o.CreatedAt.UTC().Format(time.RFC3339Nano),
		Trades:            make([]tradeResponse, 0, len(trades)),
	}
	if o.Type == domain.OrderTypeLimit {
		price := domain.CentsToDollars(o.Price)
		resp.Price = &price
	}
	if o.CancelledAt != nil {
		s := o.CancelledAt.UTC().Format(time.RFC3339Nano)
		resp.CancelledAt = &s
	}
	for _, t := range trades {
		resp.Trades = append(resp.Trades, buildTradeResponse(t))
	}
	return resp
}

// SubmitOrder handles POST /orders.
func (h *OrderHandler) SubmitOrder(w http.ResponseWriter, r *http.Request) {
	var req submitOrderRequest
	if err := ParseJSON(r, &req); err != nil {
		WriteError(w, http.StatusBadRequest, "invalid_request", err.Error())
		return
	}

	order, trades, err := h.orderSvc.SubmitOrder(service.SubmitOrderRequest{
		Type:       domain.OrderType(req.Type),
		Side:       domain.Side(req.Side),
		Instrument: req.Instrument,
		Price:      req.Price,
		Quantity:   req.Quantity,
		Condition:  domain.Condition(req.Condition),
	})
	if err != nil {
		mapOrderError(w, err)
		return
	}

	WriteJSON(w, http.StatusCreated, buildOrderResponse(order, trades))
}

// GetOrder handles GET /orders/{order_no}.
func (h *OrderHandler) GetOrder(w http.ResponseWriter, r *http.Request) {
	orderNo, ok := parseOrderNo(w, r)
	if !ok {
		return
	}

	order, err := h.orderSvc.GetOrder(orderNo)
	if err != nil {
		mapOrderError(w, err)
		return
	}

	WriteJSON(w, http.StatusOK, buildOrderResponse(order, nil))
}

// AmendOrder handles PUT /orders/{order_no}.
func (h *OrderHandler) AmendOrder(w http.ResponseWriter, r *http.Request) {
	orderNo, ok := parseOrderNo(w, r)
	if !ok {
		return
	}

	var req amendOrderRequest
	if err := ParseJSON(r, &req); err != nil {
		WriteError(w, http.StatusBadRequest, "invalid_request", err.Error())
		return
	}

	order, trades, err := h.orderSvc.AmendOrder(service.AmendOrderRequest{
		OrderNo:  orderNo,
		Price:    req.Price,
		Quantity: req.Quantity,
	})
	if err != nil {
		mapOrderError(w, err)
		return
	}

	WriteJSON(w, http.StatusOK, buildOrderResponse(order, trades))
}

// CancelOrder handles DELETE /orders/{order_no}.
func (h *OrderHandler) CancelOrder(w http.ResponseWriter, r *http.Request) {
	orderNo, ok := parseOrderNo(w, r)
	if !ok {
		return
	}

	order, err := h.orderSvc.CancelOrder(orderNo)
	if err != nil {
		mapOrderError(w, err)
		return
	}

	WriteJSON(w, http.StatusOK, buildOrderResponse(order, nil))
}

// parseOrderNo extracts and parses the order_no URL parameter, writing
// a 400 on failure.
func parseOrderNo(w http.ResponseWriter, r *http.Request) (uint64, bool) {
	raw := chi.URLParam(r, "order_no")
	orderNo, err := strconv.ParseUint(raw, 10, 64)
	if err != nil {
		WriteError(w, http.StatusBadRequest, "validation_error", "order_no must be a positive integer")
		return 0, false
	}
	return orderNo, true
}

// mapOrderError maps service errors to HTTP responses.
func mapOrderError(w http.ResponseWriter, err error) {
	var ve *domain.ValidationError
	switch {
	case errors.As(err, &ve):
		WriteError(w, http.StatusBadRequest, "validation_error", ve.Message)
	case errors.Is(err, domain.ErrOrderNotFound):
		WriteError(w, http.StatusNotFound, "order_not_found", "Order not found")
	case errors.Is(err, domain.ErrUnknownOrder):
		WriteError(w, http.StatusConflict, "unknown_order", "Order is no longer resting on the book")
	case errors.Is(err, domain.ErrInstrumentNotFound):
		WriteError(w, http.StatusNotFound, "instrument_not_found", "Instrument not found")
	default:
		WriteError(w, http.StatusInternalServerError, "internal_error", "Internal server error")
	}
}
