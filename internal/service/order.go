package service

import (
	"fmt"
	"regexp"
	"sync"
	"time"

	"github.com/efreitasn/matchbook/internal/domain"
	"github.com/efreitasn/matchbook/internal/engine"
	"github.com/efreitasn/matchbook/internal/store"
)

var instrumentSymbolRegex = regexp.MustCompile(`^[A-Z]{1,10}$`)

// validConditions lists the accepted time-in-force values.
var validConditions = map[domain.Condition]bool{
	domain.ConditionGFD: true,
	domain.ConditionGTD: true,
	domain.ConditionFAK: true,
	domain.ConditionFOK: true,
}

// SubmitOrderRequest represents the input for order submission.
type SubmitOrderRequest struct {
	Type       domain.OrderType
	Side       domain.Side
	Instrument string
	Price      *float64 // required for limit, must be nil for market
	Quantity   int64
	Condition  domain.Condition // defaults to GFD
}

// AmendOrderRequest represents the input for order amendment. Quantity
// is the new remaining quantity; Price is required for limit orders and
// must be nil for market orders.
type AmendOrderRequest struct {
	OrderNo  uint64
	Price    *float64
	Quantity int64
}

// OrderService validates requests, assigns order numbers, and drives
// the matching engine. Order numbers increase strictly per instrument,
// which is what makes time priority meaningful.
type OrderService struct {
	books       *engine.BookManager
	orderStore  *store.OrderStore
	market      *MarketService
	instruments *domain.InstrumentRegistry

	seqMu sync.Mutex
	seq   map[string]uint64 // instrument → last assigned order_no
}

// NewOrderService creates a new OrderService with the given dependencies.
func NewOrderService(
	books *engine.BookManager,
	orderStore *store.OrderStore,
	market *MarketService,
	instruments *domain.InstrumentRegistry,
) *OrderService {
	return &OrderService{
		books:       books,
		orderStore:  orderStore,
		market:      market,
		instruments: instruments,
		seq:         make(map[string]uint64),
	}
}

// nextOrderNo assigns the next order number for an instrument.
func (s *OrderService) nextOrderNo(instrument string) uint64 {
	s.seqMu.Lock()
	defer s.seqMu.Unlock()
	s.seq[instrument]++
	return s.seq[instrument]
}

// SubmitOrder validates the request, builds the order, runs the
// crossing engine, and publishes any trades executed. It returns the
// order together with that submission's trades.
func (s *OrderService) SubmitOrder(req SubmitOrderRequest) (*domain.Order, []domain.Trade, error) {
	if req.Type != domain.OrderTypeLimit && req.Type != domain.OrderTypeMarket {
		return nil, nil, &domain.ValidationError{
			Message: fmt.Sprintf("Unknown order type: %s. Must be one of: limit, market", req.Type),
		}
	}
	if req.Side != domain.SideBid && req.Side != domain.SideAsk {
		return nil, nil, &domain.ValidationError{
			Message: "side must be 'bid' or 'ask'",
		}
	}
	if !instrumentSymbolRegex.MatchString(req.Instrument) {
		return nil, nil, &domain.ValidationError{
			Message: "instrument must match ^[A-Z]{1,10}$",
		}
	}
	if req.Quantity <= 0 {
		return nil, nil, &domain.ValidationError{
			Message: "quantity must be a positive integer",
		}
	}

	condition := req.Condition
	if condition == "" {
		condition = domain.ConditionGFD
	}
	if !validConditions[condition] {
		return nil, nil, &domain.ValidationError{
			Message: fmt.Sprintf("Unknown condition: %s. Must be one of: gfd, gtd, fak, fok", condition),
		}
	}

	priceCents, err := s.validatePrice(req.Type, req.Price)
	if err != nil {
		return nil, nil, err
	}

	s.instruments.Register(req.Instrument)

	order := &domain.Order{
		Type:       req.Type,
		Side:       req.Side,
		Condition:  condition,
		Instrument: req.Instrument,
		Price:      priceCents,
		Quantity:   req.Quantity,
		CreatedAt:  time.Now(),
	}
	order.OrderNo = s.nextOrderNo(req.Instrument)

	s.orderStore.Create(order)

	book := s.books.GetOrCreate(req.Instrument)
	trades := book.Submit(order)

	s.market.PublishTrades(req.Instrument, trades)

	return order, trades, nil
}

// validatePrice checks the price rules for an order type and converts
// dollars to cents. Market orders carry no price.
func (s *OrderService) validatePrice(typ domain.OrderType, price *float64) (int64, error) {
	if typ == domain.OrderTypeMarket {
		if price != nil {
			return 0, &domain.ValidationError{Message: "price must not be set for market orders"}
		}
		return 0, nil
	}

	if price == nil {
		return 0, &domain.ValidationError{Message: "price is required for limit orders"}
	}
	if *price <= 0 {
		return 0, &domain.ValidationError{Message: "price must be greater than 0"}
	}
	cents, err := domain.DollarsToCents(*price)
	if err != nil {
		return 0, &domain.ValidationError{Message: "price must have at most 2 decimal places"}
	}
	return cents, nil
}

// AmendOrder changes the price and/or remaining quantity of a resting
// order. A price change forfeits time priority and may trade
// immediately; a quantity-only change keeps the order's queue position.
// Returns domain.ErrOrderNotFound for a never-seen order number and
// domain.ErrUnknownOrder when the order is no longer resting.
func (s *OrderService) AmendOrder(req AmendOrderRequest) (*domain.Order, []domain.Trade, error) {
	if req.Quantity <= 0 {
		return nil, nil, &domain.ValidationError{
			Message: "quantity must be a positive integer",
		}
	}

	existing, err := s.orderStore.Get(req.OrderNo)
	if err != nil {
		return nil, nil, err
	}

	priceCents, err := s.validatePrice(existing.Type, req.Price)
	if err != nil {
		return nil, nil, err
	}

	target := &domain.Order{
		OrderNo:    req.OrderNo,
		Type:       existing.Type,
		Side:       existing.Side,
		Condition:  existing.Condition,
		Instrument: existing.Instrument,
		Price:      priceCents,
		Quantity:   req.Quantity,
		CreatedAt:  time.Now(),
	}

	book := s.books.GetOrCreate(existing.Instrument)
	trades, err := book.Amend(target)
	if err != nil {
		return nil, nil, err
	}

	// A price change replaced the stored order with the target; point
	// the order number at the new value. A quantity-only amend mutated
	// the existing order in place.
	result := existing
	if existing.Type == domain.OrderTypeLimit && priceCents != existing.Price {
		s.orderStore.Create(target)
		result = target
	}

	s.market.PublishTrades(existing.Instrument, trades)

	return result, trades, nil
}

// CancelOrder removes an order from its book. Cancelling an order that
// already left the book (filled or cancelled) is a no-op that returns
// the order's last known state. Only a never-seen order number is an
// error.
func (s *OrderService) CancelOrder(orderNo uint64) (*domain.Order, error) {
	existing, err := s.orderStore.Get(orderNo)
	if err != nil {
		return nil, err
	}

	book := s.books.GetOrCreate(existing.Instrument)
	book.Cancel(orderNo)

	return existing, nil
}

// GetOrder returns an order by number, resting or terminal.
func (s *OrderService) GetOrder(orderNo uint64) (*domain.Order, error) {
	return s.orderStore.Get(orderNo)
}
