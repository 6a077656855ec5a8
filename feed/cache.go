package feed

import (
	"fmt"
	"sync"
	"time"

	"github.com/samber/lo"
	"github.com/xhit/go-str2duration/v2"

	"github.com/quantview/quantview/model"
	"github.com/quantview/quantview/storage"
	"github.com/quantview/quantview/tools/log"
)

const defaultTTL = time.Hour

type memoryEntry struct {
	data     model.SymbolData
	loadedAt time.Time
}

// Cache serves symbol data through three tiers: an in-memory TTL cache, the
// persistent candle store, and finally the CSV source file. Lower-tier hits
// repopulate the tiers above them.
type Cache struct {
	mu      sync.Mutex
	store   storage.CandleStorage
	sources map[string]string // symbol -> source file
	memory  map[string]memoryEntry
	ttl     time.Duration
	now     func() time.Time
}

// CacheOption customizes a Cache.
type CacheOption func(*Cache)

// WithTTL sets the memory tier expiry from a duration string ("30m", "2h").
// An unparsable value keeps the default with a warning.
func WithTTL(value string) CacheOption {
	return func(cache *Cache) {
		ttl, err := str2duration.ParseDuration(value)
		if err != nil {
			log.Warnf("invalid cache ttl %q, keeping %s: %v", value, cache.ttl, err)
			return
		}
		cache.ttl = ttl
	}
}

// WithClock overrides the time source, for tests.
func WithClock(now func() time.Time) CacheOption {
	return func(cache *Cache) {
		cache.now = now
	}
}

// NewCache creates a cache over the given persistent store.
func NewCache(store storage.CandleStorage, options ...CacheOption) *Cache {
	cache := &Cache{
		store:   store,
		sources: make(map[string]string),
		memory:  make(map[string]memoryEntry),
		ttl:     defaultTTL,
		now:     time.Now,
	}
	for _, option := range options {
		option(cache)
	}
	return cache
}

// RegisterSource maps a source file to the symbol derived from its name and
// returns that symbol.
func (c *Cache) RegisterSource(sourceFile string) string {
	symbol := SymbolID(sourceFile)
	c.mu.Lock()
	c.sources[symbol] = sourceFile
	c.mu.Unlock()
	return symbol
}

// SymbolData returns the full history for a symbol, loading through the
// tiers as needed.
func (c *Cache) SymbolData(symbol string) (model.SymbolData, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if entry, ok := c.memory[symbol]; ok {
		if c.now().Sub(entry.loadedAt) < c.ttl {
			return entry.data, nil
		}
		delete(c.memory, symbol)
	}

	bars, err := c.store.Candles(symbol)
	if err != nil {
		return model.SymbolData{}, fmt.Errorf("reading candle store: %w", err)
	}

	if len(bars) == 0 {
		sourceFile, ok := c.sources[symbol]
		if !ok {
			log.Warnf("no source registered for symbol %s", symbol)
			return c.cacheLocked(symbol, nil), nil
		}

		bars, err = ParseSourceFile(sourceFile)
		if err != nil {
			return model.SymbolData{}, fmt.Errorf("parsing %s: %w", sourceFile, err)
		}
		if len(bars) > 0 {
			if err := c.store.SaveCandles(symbol, bars); err != nil {
				return model.SymbolData{}, fmt.Errorf("writing candle store: %w", err)
			}
		}
	}

	return c.cacheLocked(symbol, bars), nil
}

// Invalidate drops the memory entry for a symbol so the next read goes back
// through the persistent tiers.
func (c *Cache) Invalidate(symbol string) {
	c.mu.Lock()
	delete(c.memory, symbol)
	c.mu.Unlock()
}

// Symbols lists the registered symbols.
func (c *Cache) Symbols() []string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return lo.Keys(c.sources)
}

func (c *Cache) cacheLocked(symbol string, bars []model.Bar) model.SymbolData {
	data := model.SymbolData{
		Symbol: symbol,
		Bars:   bars,
		Volume: lo.Map(bars, func(bar model.Bar, _ int) model.VolumePoint {
			return model.VolumePoint{Time: bar.Time, Value: bar.Volume}
		}),
	}
	c.memory[symbol] = memoryEntry{data: data, loadedAt: c.now()}
	return data
}
