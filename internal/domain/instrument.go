package domain

import "sync"

// InstrumentRegistry tracks known instrument symbols in a thread-safe
// manner. Instruments are implicitly registered the first time an order
// for them is submitted.
type InstrumentRegistry struct {
	mu          sync.RWMutex
	instruments map[string]bool
}

// NewInstrumentRegistry creates an empty InstrumentRegistry.
func NewInstrumentRegistry() *InstrumentRegistry {
	return &InstrumentRegistry{
		instruments: make(map[string]bool),
	}
}

// Register adds an instrument to the registry. Safe for concurrent use.
func (r *InstrumentRegistry) Register(symbol string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.instruments[symbol] = true
}

// Exists returns true if the instrument has been registered. Safe for
// concurrent use.
func (r *InstrumentRegistry) Exists(symbol string) bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.instruments[symbol]
}
