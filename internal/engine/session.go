package engine

import (
	"context"
	"log/slog"
	"time"
)

// AuctionPublisher receives the outcome of call auctions run outside
// the request path. It keeps the engine layer from depending on the
// service layer directly; scheduled and request-triggered auctions
// publish through the same implementation so subscribers see one event
// stream regardless of how the auction fired.
type AuctionPublisher interface {
	PublishAuction(instrument string, res *AuctionResult)
}

// AuctionScheduler periodically runs a call auction over every known
// instrument. It stands in for the session calendar a production
// deployment would use to fire open/close auctions.
type AuctionScheduler struct {
	interval time.Duration
	books    *BookManager
	sink     AuctionPublisher
	logger   *slog.Logger
}

// NewAuctionScheduler creates a scheduler ticking at the given interval.
func NewAuctionScheduler(interval time.Duration, books *BookManager, sink AuctionPublisher, logger *slog.Logger) *AuctionScheduler {
	return &AuctionScheduler{
		interval: interval,
		books:    books,
		sink:     sink,
		logger:   logger,
	}
}

// Start launches a background goroutine that ticks at the configured
// interval and uncrosses every book. It stops when ctx is cancelled.
func (s *AuctionScheduler) Start(ctx context.Context) {
	go func() {
		ticker := time.NewTicker(s.interval)
		defer ticker.Stop()

		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				s.tick()
			}
		}
	}()
}

// tick runs one auction pass over all instruments.
func (s *AuctionScheduler) tick() {
	for _, instrument := range s.books.Instruments() {
		book, ok := s.books.Get(instrument)
		if !ok {
			continue
		}
		res, ok := book.RunCallAuction()
		if !ok {
			continue
		}

		s.logger.Info("call auction uncrossed",
			slog.String("instrument", instrument),
			slog.Int64("price", res.Price),
			slog.Int64("volume", res.Volume),
			slog.Int("trades", len(res.Trades)),
		)

		if s.sink != nil {
			s.sink.PublishAuction(instrument, res)
		}
	}
}
