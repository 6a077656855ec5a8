package feed

import (
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/quantview/quantview/model"
)

type fakeCandleStorage struct {
	candles   map[string][]model.Bar
	readErr   error
	writeErr  error
	readCalls int
	saveCalls int
}

func newFakeCandleStorage() *fakeCandleStorage {
	return &fakeCandleStorage{candles: make(map[string][]model.Bar)}
}

func (f *fakeCandleStorage) Candles(symbol string) ([]model.Bar, error) {
	f.readCalls++
	if f.readErr != nil {
		return nil, f.readErr
	}
	return f.candles[symbol], nil
}

func (f *fakeCandleStorage) SaveCandles(symbol string, bars []model.Bar) error {
	f.saveCalls++
	if f.writeErr != nil {
		return f.writeErr
	}
	f.candles[symbol] = bars
	return nil
}

func sourceFixture(t *testing.T) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "btcusdt.csv")
	content := "1609459200,100,110,90,105,1000\n" +
		"1609462800,105,115,100,112,1200\n"
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func TestCacheLoadsFromSourceAndPersists(t *testing.T) {
	store := newFakeCandleStorage()
	cache := NewCache(store)
	symbol := cache.RegisterSource(sourceFixture(t))
	require.Equal(t, "BTCUSDT", symbol)

	data, err := cache.SymbolData(symbol)
	require.NoError(t, err)
	require.Len(t, data.Bars, 2)
	require.Len(t, data.Volume, 2)
	assert.Equal(t, 1000.0, data.Volume[0].Value)

	// the parsed bars were written through to the persistent tier
	assert.Equal(t, 1, store.saveCalls)
	assert.Len(t, store.candles[symbol], 2)
}

func TestCacheMemoryTierSkipsStore(t *testing.T) {
	store := newFakeCandleStorage()
	cache := NewCache(store)
	symbol := cache.RegisterSource(sourceFixture(t))

	_, err := cache.SymbolData(symbol)
	require.NoError(t, err)
	_, err = cache.SymbolData(symbol)
	require.NoError(t, err)

	assert.Equal(t, 1, store.readCalls)
}

func TestCacheExpiryFallsBackToStore(t *testing.T) {
	store := newFakeCandleStorage()
	now := time.Date(2021, 1, 1, 0, 0, 0, 0, time.UTC)
	cache := NewCache(store,
		WithTTL("30m"),
		WithClock(func() time.Time { return now }),
	)
	symbol := cache.RegisterSource(sourceFixture(t))

	_, err := cache.SymbolData(symbol)
	require.NoError(t, err)
	require.Equal(t, 1, store.readCalls)

	now = now.Add(31 * time.Minute)
	data, err := cache.SymbolData(symbol)
	require.NoError(t, err)
	assert.Len(t, data.Bars, 2)
	// store tier had the bars, so the source file was not re-parsed
	assert.Equal(t, 2, store.readCalls)
	assert.Equal(t, 1, store.saveCalls)
}

func TestCacheStoreHitSkipsSource(t *testing.T) {
	store := newFakeCandleStorage()
	store.candles["BTCUSDT"] = []model.Bar{
		{Time: time.Unix(1609459200, 0).UTC(), Open: 1, High: 1, Low: 1, Close: 1, Volume: 1},
	}
	cache := NewCache(store)
	cache.RegisterSource("/does/not/exist/btcusdt.csv")

	data, err := cache.SymbolData("BTCUSDT")
	require.NoError(t, err)
	assert.Len(t, data.Bars, 1)
	assert.Zero(t, store.saveCalls)
}

func TestCacheMissingSourceFileIsEmptyNotFatal(t *testing.T) {
	cache := NewCache(newFakeCandleStorage())
	symbol := cache.RegisterSource("/does/not/exist/btcusdt.csv")

	data, err := cache.SymbolData(symbol)
	require.NoError(t, err)
	assert.Empty(t, data.Bars)
}

func TestCacheStoreErrorPropagates(t *testing.T) {
	store := newFakeCandleStorage()
	store.readErr = errors.New("disk on fire")
	cache := NewCache(store)
	symbol := cache.RegisterSource(sourceFixture(t))

	_, err := cache.SymbolData(symbol)
	require.Error(t, err)
}

func TestCacheInvalidate(t *testing.T) {
	store := newFakeCandleStorage()
	cache := NewCache(store)
	symbol := cache.RegisterSource(sourceFixture(t))

	_, err := cache.SymbolData(symbol)
	require.NoError(t, err)
	cache.Invalidate(symbol)
	_, err = cache.SymbolData(symbol)
	require.NoError(t, err)
	assert.Equal(t, 2, store.readCalls)
}

func TestCacheInvalidTTLKeepsDefault(t *testing.T) {
	cache := NewCache(newFakeCandleStorage(), WithTTL("soon"))
	assert.Equal(t, defaultTTL, cache.ttl)
}
