package handler

import (
	"bytes"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/efreitasn/matchbook/internal/domain"
	"github.com/efreitasn/matchbook/internal/engine"
	"github.com/efreitasn/matchbook/internal/feed"
	"github.com/efreitasn/matchbook/internal/service"
	"github.com/efreitasn/matchbook/internal/store"
)

// testEnv bundles all dependencies for handler integration tests.
type testEnv struct {
	router    http.Handler
	orderSvc  *service.OrderService
	marketSvc *service.MarketService
}

func newTestEnv() *testEnv {
	books := engine.NewBookManager()
	orderStore := store.NewOrderStore()
	tradeStore := store.NewTradeStore()
	instruments := domain.NewInstrumentRegistry()

	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	hub := feed.NewHub(16, logger)

	marketSvc := service.NewMarketService(books, tradeStore, hub, instruments)
	orderSvc := service.NewOrderService(books, orderStore, marketSvc, instruments)
	router := NewRouter(orderSvc, marketSvc, hub, logger)

	return &testEnv{
		router:    router,
		orderSvc:  orderSvc,
		marketSvc: marketSvc,
	}
}

// doJSON sends a JSON request and returns the recorder.
func (env *testEnv) doJSON(t *testing.T, method, path string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		if err := json.NewEncoder(&buf).Encode(body); err != nil {
			t.Fatalf("encode body: %v", err)
		}
	}
	req := httptest.NewRequest(method, path, &buf)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	rr := httptest.NewRecorder()
	env.router.ServeHTTP(rr, req)
	return rr
}

// doRaw sends a raw request with an optional content-type override.
func (env *testEnv) doRaw(t *testing.T, method, path, contentType, rawBody string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(method, path, strings.NewReader(rawBody))
	if contentType != "" {
		req.Header.Set("Content-Type", contentType)
	}
	rr := httptest.NewRecorder()
	env.router.ServeHTTP(rr, req)
	return rr
}

// decodeJSON decodes the response body into v.
func decodeJSON(t *testing.T, rr *httptest.ResponseRecorder, v any) {
	t.Helper()
	if err := json.NewDecoder(rr.Body).Decode(v); err != nil {
		t.Fatalf("decode response: %v", err)
	}
}

func submitBody(side string, price float64, qty int64) map[string]any {
	return map[string]any{
		"type":       "limit",
		"side":       side,
		"instrument": "AAPL",
		"price":      price,
		"quantity":   qty,
	}
}

func TestHealthz(t *testing.T) {
	env := newTestEnv()
	rr := env.doJSON(t, http.MethodGet, "/healthz", nil)
	if rr.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rr.Code)
	}
}

func TestSubmitOrder_Created(t *testing.T) {
	env := newTestEnv()

	rr := env.doJSON(t, http.MethodPost, "/orders", submitBody("bid", 100.50, 5))
	if rr.Code != http.StatusCreated {
		t.Fatalf("status = %d, want 201, body: %s", rr.Code, rr.Body.String())
	}

	var resp struct {
		OrderNo   uint64   `json:"order_no"`
		Price     *float64 `json:"price"`
		Status    string   `json:"status"`
		Condition string   `json:"condition"`
		Trades    []any    `json:"trades"`
	}
	decodeJSON(t, rr, &resp)

	if resp.OrderNo != 1 {
		t.Errorf("order_no = %d, want 1", resp.OrderNo)
	}
	if resp.Price == nil || *resp.Price != 100.50 {
		t.Errorf("price = %v, want 100.50", resp.Price)
	}
	if resp.Status != "pending" {
		t.Errorf("status = %q, want pending", resp.Status)
	}
	if resp.Condition != "gfd" {
		t.Errorf("condition = %q, want gfd", resp.Condition)
	}
	if len(resp.Trades) != 0 {
		t.Errorf("expected no trades, got %d", len(resp.Trades))
	}
}

func TestSubmitOrder_MarketOmitsPrice(t *testing.T) {
	env := newTestEnv()

	rr := env.doJSON(t, http.MethodPost, "/orders", map[string]any{
		"type":       "market",
		"side":       "bid",
		"instrument": "AAPL",
		"quantity":   3,
	})
	if rr.Code != http.StatusCreated {
		t.Fatalf("status = %d, want 201, body: %s", rr.Code, rr.Body.String())
	}
	if strings.Contains(rr.Body.String(), `"price"`) {
		t.Error("market order response must omit price")
	}
}

func TestSubmitOrder_ValidationErrors(t *testing.T) {
	env := newTestEnv()

	tests := []struct {
		name string
		body map[string]any
	}{
		{"unknown type", map[string]any{"type": "stop", "side": "bid", "instrument": "AAPL", "price": 100.0, "quantity": 1}},
		{"missing price for limit", map[string]any{"type": "limit", "side": "bid", "instrument": "AAPL", "quantity": 1}},
		{"zero quantity", map[string]any{"type": "limit", "side": "bid", "instrument": "AAPL", "price": 100.0, "quantity": 0}},
		{"unknown field", map[string]any{"type": "limit", "side": "bid", "instrument": "AAPL", "price": 100.0, "quantity": 1, "broker": "x"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rr := env.doJSON(t, http.MethodPost, "/orders", tt.body)
			if rr.Code != http.StatusBadRequest {
				t.Errorf("status = %d, want 400, body: %s", rr.Code, rr.Body.String())
			}
		})
	}
}

func TestSubmitOrder_ContentTypeRequired(t *testing.T) {
	env := newTestEnv()

	rr := env.doRaw(t, http.MethodPost, "/orders", "text/plain", `{"type":"limit"}`)
	if rr.Code != http.StatusBadRequest {
		t.Errorf("status = %d, want 400", rr.Code)
	}
}

func TestSubmitOrder_CrossingReturnsTrades(t *testing.T) {
	env := newTestEnv()

	env.doJSON(t, http.MethodPost, "/orders", submitBody("ask", 100.0, 5))
	rr := env.doJSON(t, http.MethodPost, "/orders", submitBody("bid", 101.0, 3))
	if rr.Code != http.StatusCreated {
		t.Fatalf("status = %d, want 201, body: %s", rr.Code, rr.Body.String())
	}

	var resp struct {
		Status string `json:"status"`
		Trades []struct {
			Price    float64 `json:"price"`
			Quantity int64   `json:"quantity"`
		} `json:"trades"`
	}
	decodeJSON(t, rr, &resp)

	if resp.Status != "filled" {
		t.Errorf("status = %q, want filled", resp.Status)
	}
	if len(resp.Trades) != 1 {
		t.Fatalf("expected 1 trade, got %d", len(resp.Trades))
	}
	// The resting ask's quote sets the trade price.
	if resp.Trades[0].Price != 100.0 {
		t.Errorf("trade price = %v, want 100.0", resp.Trades[0].Price)
	}
	if resp.Trades[0].Quantity != 3 {
		t.Errorf("trade quantity = %d, want 3", resp.Trades[0].Quantity)
	}
}

func TestGetOrder(t *testing.T) {
	env := newTestEnv()

	env.doJSON(t, http.MethodPost, "/orders", submitBody("bid", 100.0, 5))

	rr := env.doJSON(t, http.MethodGet, "/orders/1", nil)
	if rr.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rr.Code)
	}

	rr = env.doJSON(t, http.MethodGet, "/orders/999", nil)
	if rr.Code != http.StatusNotFound {
		t.Errorf("status = %d, want 404", rr.Code)
	}

	rr = env.doJSON(t, http.MethodGet, "/orders/abc", nil)
	if rr.Code != http.StatusBadRequest {
		t.Errorf("status = %d, want 400", rr.Code)
	}
}

func TestAmendOrder(t *testing.T) {
	env := newTestEnv()

	env.doJSON(t, http.MethodPost, "/orders", submitBody("bid", 100.0, 5))

	rr := env.doJSON(t, http.MethodPut, "/orders/1", map[string]any{"price": 100.0, "quantity": 3})
	if rr.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200, body: %s", rr.Code, rr.Body.String())
	}

	var resp struct {
		RemainingQuantity int64 `json:"remaining_quantity"`
	}
	decodeJSON(t, rr, &resp)
	if resp.RemainingQuantity != 3 {
		t.Errorf("remaining_quantity = %d, want 3", resp.RemainingQuantity)
	}

	// Unknown order number.
	rr = env.doJSON(t, http.MethodPut, "/orders/999", map[string]any{"price": 100.0, "quantity": 3})
	if rr.Code != http.StatusNotFound {
		t.Errorf("status = %d, want 404", rr.Code)
	}
}

func TestAmendOrder_NoLongerResting(t *testing.T) {
	env := newTestEnv()

	env.doJSON(t, http.MethodPost, "/orders", submitBody("ask", 100.0, 5))
	env.doJSON(t, http.MethodPost, "/orders", submitBody("bid", 100.0, 5))

	rr := env.doJSON(t, http.MethodPut, "/orders/1", map[string]any{"price": 100.0, "quantity": 3})
	if rr.Code != http.StatusConflict {
		t.Errorf("status = %d, want 409, body: %s", rr.Code, rr.Body.String())
	}
}

func TestCancelOrder(t *testing.T) {
	env := newTestEnv()

	env.doJSON(t, http.MethodPost, "/orders", submitBody("bid", 100.0, 5))

	rr := env.doJSON(t, http.MethodDelete, "/orders/1", nil)
	if rr.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rr.Code)
	}

	var resp struct {
		Status      string  `json:"status"`
		CancelledAt *string `json:"cancelled_at"`
	}
	decodeJSON(t, rr, &resp)
	if resp.Status != "cancelled" {
		t.Errorf("status = %q, want cancelled", resp.Status)
	}
	if resp.CancelledAt == nil {
		t.Error("expected cancelled_at to be set")
	}

	// Cancelling again is a no-op.
	rr = env.doJSON(t, http.MethodDelete, "/orders/1", nil)
	if rr.Code != http.StatusOK {
		t.Errorf("repeat cancel status = %d, want 200", rr.Code)
	}

	rr = env.doJSON(t, http.MethodDelete, "/orders/999", nil)
	if rr.Code != http.StatusNotFound {
		t.Errorf("status = %d, want 404", rr.Code)
	}
}

func TestGetQuote(t *testing.T) {
	env := newTestEnv()

	env.doJSON(t, http.MethodPost, "/orders", submitBody("bid", 99.0, 5))
	env.doJSON(t, http.MethodPost, "/orders", submitBody("bid", 99.0, 2))
	env.doJSON(t, http.MethodPost, "/orders", submitBody("ask", 101.0, 4))

	rr := env.doJSON(t, http.MethodGet, "/instruments/AAPL/quote", nil)
	if rr.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rr.Code)
	}

	var resp struct {
		Bid *struct {
			Price    float64 `json:"price"`
			Quantity int64   `json:"quantity"`
		} `json:"bid"`
		Ask *struct {
			Price    float64 `json:"price"`
			Quantity int64   `json:"quantity"`
		} `json:"ask"`
		LastPrice *float64 `json:"last_price"`
	}
	decodeJSON(t, rr, &resp)

	if resp.Bid == nil || resp.Bid.Price != 99.0 || resp.Bid.Quantity != 7 {
		t.Errorf("bid = %+v, want price 99.0 quantity 7", resp.Bid)
	}
	if resp.Ask == nil || resp.Ask.Price != 101.0 || resp.Ask.Quantity != 4 {
		t.Errorf("ask = %+v, want price 101.0 quantity 4", resp.Ask)
	}
	if resp.LastPrice != nil {
		t.Error("expected no last price before any trade")
	}

	rr = env.doJSON(t, http.MethodGet, "/instruments/NONE/quote", nil)
	if rr.Code != http.StatusNotFound {
		t.Errorf("status = %d, want 404", rr.Code)
	}
}

func TestGetBook(t *testing.T) {
	env := newTestEnv()

	env.doJSON(t, http.MethodPost, "/orders", submitBody("bid", 99.0, 5))
	env.doJSON(t, http.MethodPost, "/orders", submitBody("bid", 98.0, 2))
	env.doJSON(t, http.MethodPost, "/orders", submitBody("ask", 101.0, 4))

	rr := env.doJSON(t, http.MethodGet, "/instruments/AAPL/book?depth=1", nil)
	if rr.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rr.Code)
	}

	var resp struct {
		Bids []struct {
			Price         float64 `json:"price"`
			TotalQuantity int64   `json:"total_quantity"`
		} `json:"bids"`
		Asks []struct {
			Price float64 `json:"price"`
		} `json:"asks"`
	}
	decodeJSON(t, rr, &resp)

	if len(resp.Bids) != 1 || resp.Bids[0].Price != 99.0 || resp.Bids[0].TotalQuantity != 5 {
		t.Errorf("bids = %+v, want one level at 99.0 qty 5", resp.Bids)
	}
	if len(resp.Asks) != 1 || resp.Asks[0].Price != 101.0 {
		t.Errorf("asks = %+v, want one level at 101.0", resp.Asks)
	}

	rr = env.doJSON(t, http.MethodGet, "/instruments/AAPL/book?depth=zero", nil)
	if rr.Code != http.StatusBadRequest {
		t.Errorf("status = %d, want 400", rr.Code)
	}
}

func TestGetTrades(t *testing.T) {
	env := newTestEnv()

	env.doJSON(t, http.MethodPost, "/orders", submitBody("ask", 100.0, 5))
	env.doJSON(t, http.MethodPost, "/orders", submitBody("bid", 100.0, 2))

	rr := env.doJSON(t, http.MethodGet, "/instruments/AAPL/trades", nil)
	if rr.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rr.Code)
	}

	var resp []struct {
		BidOrderNo uint64  `json:"bid_order_no"`
		AskOrderNo uint64  `json:"ask_order_no"`
		Price      float64 `json:"price"`
	}
	decodeJSON(t, rr, &resp)
	if len(resp) != 1 {
		t.Fatalf("expected 1 trade, got %d", len(resp))
	}
	if resp[0].BidOrderNo != 2 || resp[0].AskOrderNo != 1 || resp[0].Price != 100.0 {
		t.Errorf("trade = %+v", resp[0])
	}
}

func TestRunAuction(t *testing.T) {
	env := newTestEnv()

	// A spread book cannot uncross.
	env.doJSON(t, http.MethodPost, "/orders", submitBody("bid", 99.0, 5))
	env.doJSON(t, http.MethodPost, "/orders", submitBody("ask", 101.0, 5))

	rr := env.doJSON(t, http.MethodPost, "/instruments/AAPL/auction", nil)
	if rr.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200, body: %s", rr.Code, rr.Body.String())
	}

	var resp struct {
		Uncrossed bool `json:"uncrossed"`
	}
	decodeJSON(t, rr, &resp)
	if resp.Uncrossed {
		t.Error("expected uncrossed=false for a spread book")
	}

	rr = env.doJSON(t, http.MethodPost, "/instruments/NONE/auction", nil)
	if rr.Code != http.StatusNotFound {
		t.Errorf("status = %d, want 404", rr.Code)
	}
}
