package service

import (
	"github.com/efreitasn/matchbook/internal/domain"
	"github.com/efreitasn/matchbook/internal/engine"
	"github.com/efreitasn/matchbook/internal/feed"
	"github.com/efreitasn/matchbook/internal/store"
)

// QuoteView is a book-top snapshot for one instrument.
type QuoteView struct {
	Bid       *engine.Quote
	Ask       *engine.Quote
	LastPrice *int64
}

// DepthView holds aggregated price levels for both sides of a book.
type DepthView struct {
	Bids []engine.PriceLevel
	Asks []engine.PriceLevel
}

// MarketService answers market-data queries and owns trade publication:
// every execution, continuous or auction, flows through PublishTrades
// into the trade log and out to feed subscribers.
type MarketService struct {
	books       *engine.BookManager
	tradeStore  *store.TradeStore
	hub         *feed.Hub
	instruments *domain.InstrumentRegistry
}

// NewMarketService creates a new MarketService with the given dependencies.
func NewMarketService(
	books *engine.BookManager,
	tradeStore *store.TradeStore,
	hub *feed.Hub,
	instruments *domain.InstrumentRegistry,
) *MarketService {
	return &MarketService{
		books:       books,
		tradeStore:  tradeStore,
		hub:         hub,
		instruments: instruments,
	}
}

// PublishTrades appends executions to the trade log and fans them out
// to feed subscribers.
func (s *MarketService) PublishTrades(instrument string, trades []domain.Trade) {
	for i := range trades {
		t := trades[i]
		s.tradeStore.Append(instrument, &t)
		s.hub.Publish(feed.Event{
			Type:       "trade",
			Instrument: instrument,
			Price:      domain.CentsToDollars(t.Price),
			Quantity:   t.Quantity,
			BidOrderNo: t.BidOrderNo,
			AskOrderNo: t.AskOrderNo,
			ExecutedAt: t.ExecutedAt.UTC().Format("2006-01-02T15:04:05.000Z07:00"),
		})
	}
}

// Quote returns the best bid and ask plus the last traded price for an
// instrument. Either side may be absent on an empty or market-only
// book.
func (s *MarketService) Quote(instrument string) (*QuoteView, error) {
	book, err := s.lookup(instrument)
	if err != nil {
		return nil, err
	}

	view := &QuoteView{}
	if q, ok := book.Quote(domain.SideBid); ok {
		view.Bid = &q
	}
	if q, ok := book.Quote(domain.SideAsk); ok {
		view.Ask = &q
	}
	if last, ok := s.tradeStore.LastPrice(instrument); ok {
		view.LastPrice = &last
	}
	return view, nil
}

// Depth returns up to n aggregated price levels per side.
func (s *MarketService) Depth(instrument string, n int) (*DepthView, error) {
	book, err := s.lookup(instrument)
	if err != nil {
		return nil, err
	}
	return &DepthView{
		Bids: book.Depth(domain.SideBid, n),
		Asks: book.Depth(domain.SideAsk, n),
	}, nil
}

// Trades returns the instrument's chronological trade log.
func (s *MarketService) Trades(instrument string) ([]*domain.Trade, error) {
	if _, err := s.lookup(instrument); err != nil {
		return nil, err
	}
	return s.tradeStore.GetByInstrument(instrument), nil
}

// RunAuction uncrosses an instrument's book now. A book that cannot
// uncross (one side without limit orders, or no crossing interest) is
// not an error; the result is nil.
func (s *MarketService) RunAuction(instrument string) (*engine.AuctionResult, error) {
	book, err := s.lookup(instrument)
	if err != nil {
		return nil, err
	}

	res, ok := book.RunCallAuction()
	if !ok {
		return nil, nil
	}

	s.PublishAuction(instrument, res)
	return res, nil
}

// PublishAuction records an auction's fills and announces the
// uncrossing to feed subscribers. Implements engine.AuctionPublisher;
// the scheduled and request-triggered auction paths both go through
// here so subscribers see the same event stream either way.
func (s *MarketService) PublishAuction(instrument string, res *engine.AuctionResult) {
	s.PublishTrades(instrument, res.Trades)
	s.hub.Publish(feed.Event{
		Type:       "auction",
		Instrument: instrument,
		Price:      domain.CentsToDollars(res.Price),
		Volume:     res.Volume,
	})
}

// lookup resolves an instrument to its book, failing with
// domain.ErrInstrumentNotFound for symbols never seen in an order.
func (s *MarketService) lookup(instrument string) (*engine.OrderBook, error) {
	if !s.instruments.Exists(instrument) {
		return nil, domain.ErrInstrumentNotFound
	}
	book, ok := s.books.Get(instrument)
	if !ok {
		return nil, domain.ErrInstrumentNotFound
	}
	return book, nil
}
