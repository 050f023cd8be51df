package handler

import (
	"net/http"
	"strconv"

	"github.com/efreitasn/matchbook/internal/domain"
	"github.com/efreitasn/matchbook/internal/engine"
	"github.com/efreitasn/matchbook/internal/service"
	"github.com/go-chi/chi/v5"
)

// MarketHandler handles HTTP requests for market-data endpoints.
type MarketHandler struct {
	marketSvc *service.MarketService
}

// NewMarketHandler creates a new MarketHandler.
func NewMarketHandler(marketSvc *service.MarketService) *MarketHandler {
	return &MarketHandler{marketSvc: marketSvc}
}

// quoteSideResponse is one side of the book-top quote.
type quoteSideResponse struct {
	Price    float64 `json:"price"`
	Quantity int64   `json:"quantity"`
}

// quoteResponse is the JSON response for the quote endpoint. Sides
// without quotable liquidity are null.
type quoteResponse struct {
	Instrument string             `json:"instrument"`
	Bid        *quoteSideResponse `json:"bid"`
	Ask        *quoteSideResponse `json:"ask"`
	LastPrice  *float64           `json:"last_price"`
}

// priceLevelResponse is one aggregated price level in the book response.
type priceLevelResponse struct {
	Price         float64 `json:"price"`
	TotalQuantity int64   `json:"total_quantity"`
	OrderCount    int     `json:"order_count"`
}

// bookResponse is the JSON response for the book depth endpoint.
type bookResponse struct {
	Instrument string               `json:"instrument"`
	Bids       []priceLevelResponse `json:"bids"`
	Asks       []priceLevelResponse `json:"asks"`
}

// auctionResponse is the JSON response for the auction endpoint.
type auctionResponse struct {
	Instrument string          `json:"instrument"`
	Uncrossed  bool            `json:"uncrossed"`
	Price      *float64        `json:"price,omitempty"`
	Volume     int64           `json:"volume,omitempty"`
	Trades     []tradeResponse `json:"trades,omitempty"`
}

// GetQuote handles GET /instruments/{symbol}/quote.
func (h *MarketHandler) GetQuote(w http.ResponseWriter, r *http.Request) {
	symbol := chi.URLParam(r, "symbol")

	view, err := h.marketSvc.Quote(symbol)
	if err != nil {
		mapOrderError(w, err)
		return
	}

	resp := quoteResponse{Instrument: symbol}
	if view.Bid != nil {
		resp.Bid = &quoteSideResponse{
			Price:    domain.CentsToDollars(view.Bid.Price),
			Quantity: view.Bid.Quantity,
		}
	}
	if view.Ask != nil {
		resp.Ask = &quoteSideResponse{
			Price:    domain.CentsToDollars(view.Ask.Price),
			Quantity: view.Ask.Quantity,
		}
	}
	if view.LastPrice != nil {
		last := domain.CentsToDollars(*view.LastPrice)
		resp.LastPrice = &last
	}

	WriteJSON(w, http.StatusOK, resp)
}

// GetBook handles GET /instruments/{symbol}/book?depth=n.
func (h *MarketHandler) GetBook(w http.ResponseWriter, r *http.Request) {
	symbol := chi.URLParam(r, "symbol")

	depth := 10
	if raw := r.URL.Query().Get("depth"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n <= 0 {
			WriteError(w, http.StatusBadRequest, "validation_error", "depth must be a positive integer")
			return
		}
		depth = n
	}

	view, err := h.marketSvc.Depth(symbol, depth)
	if err != nil {
		mapOrderError(w, err)
		return
	}

	WriteJSON(w, http.StatusOK, bookResponse{
		Instrument: symbol,
		Bids:       buildLevels(view.Bids),
		Asks:       buildLevels(view.Asks),
	})
}

func buildLevels(levels []engine.PriceLevel) []priceLevelResponse {
	out := make([]priceLevelResponse, 0, len(levels))
	for _, lvl := range levels {
		out = append(out, priceLevelResponse{
			Price:         domain.CentsToDollars(lvl.Price),
			TotalQuantity: lvl.TotalQuantity,
			OrderCount:    lvl.OrderCount,
		})
	}
	return out
}

// GetTrades handles GET /instruments/{symbol}/trades.
func (h *MarketHandler) GetTrades(w http.ResponseWriter, r *http.Request) {
	symbol := chi.URLParam(r, "symbol")

	trades, err := h.marketSvc.Trades(symbol)
	if err != nil {
		mapOrderError(w, err)
		return
	}

	out := make([]tradeResponse, 0, len(trades))
	for _, t := range trades {
		out = append(out, buildTradeResponse(*t))
	}
	WriteJSON(w, http.StatusOK, out)
}

// RunAuction handles POST /instruments/{symbol}/auction.
func (h *MarketHandler) RunAuction(w http.ResponseWriter, r *http.Request) {
	symbol := chi.URLParam(r, "symbol")

	res, err := h.marketSvc.RunAuction(symbol)
	if err != nil {
		mapOrderError(w, err)
		return
	}

	resp := auctionResponse{Instrument: symbol}
	if res != nil {
		price := domain.CentsToDollars(res.Price)
		resp.Uncrossed = true
		resp.Price = &price
		resp.Volume = res.Volume
		resp.Trades = make([]tradeResponse, 0, len(res.Trades))
		for _, t := range res.Trades {
			resp.Trades = append(resp.Trades, buildTradeResponse(t))
		}
	}

	WriteJSON(w, http.StatusOK, resp)
}
