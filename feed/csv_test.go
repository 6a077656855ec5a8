package feed

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeSource(t *testing.T, name, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func TestSymbolID(t *testing.T) {
	assert.Equal(t, "BTCUSDT", SymbolID("data/btcusdt.csv"))
	assert.Equal(t, "ETHUSDT", SymbolID("/var/feeds/ethusdt.CSV"))
	assert.Equal(t, "SPY", SymbolID("spy"))
}

func TestParseSourceFileMillisecondTimestamps(t *testing.T) {
	path := writeSource(t, "btcusdt.csv",
		"1609459200000,100,110,90,105,1000,1609462799999,0,0,0,0,0\n"+
			"1609462800000,105,115,100,112,1200,1609466399999,0,0,0,0,0\n")

	bars, err := ParseSourceFile(path)
	require.NoError(t, err)
	require.Len(t, bars, 2)
	assert.Equal(t, time.Date(2021, 1, 1, 0, 0, 0, 0, time.UTC), bars[0].Time)
	assert.Equal(t, 100.0, bars[0].Open)
	assert.Equal(t, 112.0, bars[1].Close)
}

func TestParseSourceFileSecondTimestamps(t *testing.T) {
	path := writeSource(t, "btcusdt.csv",
		"1609459200,100,110,90,105,1000\n")

	bars, err := ParseSourceFile(path)
	require.NoError(t, err)
	require.Len(t, bars, 1)
	assert.Equal(t, time.Date(2021, 1, 1, 0, 0, 0, 0, time.UTC), bars[0].Time)
}

func TestParseSourceFileSkipsBadRows(t *testing.T) {
	path := writeSource(t, "btcusdt.csv",
		"1609459200,100,110,90,105,1000\n"+
			"1609462800,105,115\n"+ // too short
			"not-a-time,105,115,100,112,1200\n"+ // bad timestamp
			"1609466400,105,95,100,112,1200\n"+ // high below close
			"1609470000,\"105\",\"115\",\"100\",\"112\",\"1200\"\n") // quoted fields

	bars, err := ParseSourceFile(path)
	require.NoError(t, err)
	require.Len(t, bars, 2)
	assert.Equal(t, 105.0, bars[1].Open)
}

func TestParseSourceFileSortsAscending(t *testing.T) {
	path := writeSource(t, "btcusdt.csv",
		"1609466400,3,3,3,3,1\n"+
			"1609459200,1,1,1,1,1\n"+
			"1609462800,2,2,2,2,1\n")

	bars, err := ParseSourceFile(path)
	require.NoError(t, err)
	require.Len(t, bars, 3)
	assert.True(t, bars[0].Time.Before(bars[1].Time))
	assert.True(t, bars[1].Time.Before(bars[2].Time))
}

func TestParseSourceFileMissingFile(t *testing.T) {
	bars, err := ParseSourceFile("/does/not/exist.csv")
	require.NoError(t, err)
	assert.Empty(t, bars)
}
