package marketdata

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/apextrader/paper-engine/internal/model"
)

// QuoteTicker periodically refreshes quotes for a tracked symbol set and
// hands each fresh quote to a callback (the ws hub broadcasts them to
// dashboard clients). Symbols are tracked automatically as trades touch them.
type QuoteTicker struct {
	provider Provider
	interval time.Duration
	onQuote  func(model.Quote)

	mu       sync.Mutex
	symbols  map[string]bool
	running  bool
	stopChan chan struct{}
}

// NewQuoteTicker creates a ticker that refreshes every interval and invokes
// onQuote per refreshed symbol. onQuote must not block.
func NewQuoteTicker(provider Provider, interval time.Duration, onQuote func(model.Quote)) *QuoteTicker {
	return &QuoteTicker{
		provider: provider,
		interval: interval,
		onQuote:  onQuote,
		symbols:  make(map[string]bool),
	}
}

// Track adds a symbol to the refresh set.
func (qt *QuoteTicker) Track(symbol string) {
	qt.mu.Lock()
	defer qt.mu.Unlock()
	qt.symbols[symbol] = true
}

// Start launches the refresh loop. Calling Start on a running ticker is a
// no-op; after Stop, Start begins a new loop.
func (qt *QuoteTicker) Start() {
	qt.mu.Lock()
	if qt.running {
		qt.mu.Unlock()
		return
	}
	qt.running = true
	// Stop closed the previous channel; each loop gets its own.
	qt.stopChan = make(chan struct{})
	stop := qt.stopChan
	qt.mu.Unlock()

	go qt.loop(stop)
}

// Stop terminates the refresh loop.
func (qt *QuoteTicker) Stop() {
	qt.mu.Lock()
	defer qt.mu.Unlock()
	if !qt.running {
		return
	}
	qt.running = false
	close(qt.stopChan)
}

func (qt *QuoteTicker) loop(stop <-chan struct{}) {
	ticker := time.NewTicker(qt.interval)
	defer ticker.Stop()

	for {
		select {
		case <-stop:
			return
		case <-ticker.C:
			qt.refresh()
		}
	}
}

func (qt *QuoteTicker) refresh() {
	qt.mu.Lock()
	symbols := make([]string, 0, len(qt.symbols))
	for s := range qt.symbols {
		symbols = append(symbols, s)
	}
	qt.mu.Unlock()

	for _, symbol := range symbols {
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		quote, err := qt.provider.GetQuote(ctx, symbol)
		cancel()
		if err != nil {
			slog.Warn("quote refresh failed", "symbol", symbol, "err", err)
			continue
		}
		if qt.onQuote != nil {
			qt.onQuote(*quote)
		}
	}
}
