package config

import "sync/atomic"

// Holder publishes the active DomainConfig to concurrent readers. Reloads
// swap in a fresh pointer; a config obtained from Current is never mutated
// afterwards, so readers can use it without locking.
type Holder struct {
	current atomic.Pointer[DomainConfig]
}

// NewHolder creates a holder seeded with cfg, or the defaults when nil
func NewHolder(cfg *DomainConfig) *Holder {
	if cfg == nil {
		cfg = DefaultDomainConfig()
	}
	h := &Holder{}
	h.current.Store(cfg)
	return h
}

// Current returns the active config. Callers must treat it as read-only.
func (h *Holder) Current() *DomainConfig {
	return h.current.Load()
}

// Store replaces the active config. A nil cfg is ignored.
func (h *Holder) Store(cfg *DomainConfig) {
	if cfg != nil {
		h.current.Store(cfg)
	}
}
