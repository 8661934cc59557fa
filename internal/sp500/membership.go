// Package sp500 tracks S&P-500 membership so the dashboard can split
// announcements into index members and everyone else.
package sp500

import (
	"context"
	"strings"
	"sync"

	"github.com/rs/zerolog"

	"earnings-tracker/internal/errors"
	"earnings-tracker/internal/models"
)

// Loader produces the list of constituents.
type Loader interface {
	Load(ctx context.Context) ([]string, error)
}

// LoaderFunc adapts a function to Loader.
type LoaderFunc func(ctx context.Context) ([]string, error)

// Load implements Loader.
func (f LoaderFunc) Load(ctx context.Context) ([]string, error) {
	return f(ctx)
}

// SymbolSet is a set of uppercase tickers.
type SymbolSet map[string]struct{}

// NewSymbolSet builds a set from symbols, uppercasing and dropping blanks.
func NewSymbolSet(symbols []string) SymbolSet {
	set := make(SymbolSet, len(symbols))
	for _, s := range symbols {
		s = strings.ToUpper(strings.TrimSpace(s))
		if s != "" {
			set[s] = struct{}{}
		}
	}
	return set
}

// Contains reports membership.
func (s SymbolSet) Contains(symbol string) bool {
	_, ok := s[strings.ToUpper(strings.TrimSpace(symbol))]
	return ok
}

// IsMember reports whether symbol is in set. An empty or nil set has no members.
func IsMember(symbol string, set SymbolSet) bool {
	if len(set) == 0 {
		return false
	}
	return set.Contains(symbol)
}

// Cache holds the constituent set for the life of the process. It is filled on
// the first successful Get; failed loads leave it empty so a later call can
// try again. Once filled it never changes.
type Cache struct {
	loader Loader
	logger zerolog.Logger

	mu  sync.Mutex
	set SymbolSet
}

// NewCache creates an empty cache backed by loader.
func NewCache(loader Loader, logger zerolog.Logger) *Cache {
	return &Cache{loader: loader, logger: logger}
}

// Get returns the constituent set, loading it on first use. Concurrent first
// callers share one load.
func (c *Cache) Get(ctx context.Context) (SymbolSet, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.set != nil {
		return c.set, nil
	}

	symbols, err := c.loader.Load(ctx)
	if err != nil {
		c.logger.Warn().Err(err).Msg("S&P 500 list unavailable")
		return nil, errors.Wrap(err, "loading S&P 500 constituents")
	}
	set := NewSymbolSet(symbols)
	if len(set) == 0 {
		c.logger.Warn().Msg("S&P 500 list was empty")
		return nil, errors.Wrap(errors.ErrMembershipUnloaded, "S&P 500 list was empty")
	}

	c.set = set
	c.logger.Info().Int("members", len(set)).Msg("Loaded S&P 500 constituents")
	return set, nil
}

// Loaded reports whether the set has been populated.
func (c *Cache) Loaded() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.set != nil
}

// Snapshot returns the current set without loading; nil when unloaded.
func (c *Cache) Snapshot() SymbolSet {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.set
}

// Partition splits stocks into index members and the rest, preserving order.
// Without a populated set every stock lands in other and partitioned is false,
// so callers can show a single list.
func Partition(stocks []models.EnrichedStock, set SymbolSet) (major, other []models.EnrichedStock, partitioned bool) {
	major = make([]models.EnrichedStock, 0)
	other = make([]models.EnrichedStock, 0, len(stocks))
	if len(set) == 0 {
		other = append(other, stocks...)
		return major, other, false
	}
	for _, s := range stocks {
		if set.Contains(s.Symbol) {
			major = append(major, s)
		} else {
			other = append(other, s)
		}
	}
	return major, other, true
}
