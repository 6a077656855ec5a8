package feed

import (
	"encoding/csv"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/quantview/quantview/model"
	"github.com/quantview/quantview/tools/log"
)

// Timestamps above this are milliseconds; at or below, seconds. The cutoff
// is the year 2286 in seconds and 1970 in milliseconds, so real market data
// never lands on the wrong side.
const millisecondCutoff = 10_000_000_000

// SymbolID derives the symbol identifier from a source file path: the
// uppercased base name without extension ("data/btcusdt.csv" -> "BTCUSDT").
func SymbolID(sourceFile string) string {
	base := filepath.Base(sourceFile)
	return strings.ToUpper(strings.TrimSuffix(base, filepath.Ext(base)))
}

// ParseSourceFile reads an exchange kline CSV into bars, ascending by time.
// Rows are validated one by one: short rows, unparsable numbers and bars
// failing OHLC consistency are skipped with a warning, never aborting the
// load. A missing file yields an empty result.
func ParseSourceFile(sourceFile string) ([]model.Bar, error) {
	file, err := os.Open(sourceFile)
	if err != nil {
		if os.IsNotExist(err) {
			log.Warnf("source file %s not found, starting with empty data", sourceFile)
			return []model.Bar{}, nil
		}
		return nil, err
	}
	defer file.Close()

	reader := csv.NewReader(file)
	reader.FieldsPerRecord = -1 // row length enforced per row below

	lines, err := reader.ReadAll()
	if err != nil {
		return nil, err
	}

	bars := make([]model.Bar, 0, len(lines))
	for i, line := range lines {
		bar, ok := parseRow(line)
		if !ok {
			log.Warnf("skipping malformed row %d in %s", i+1, sourceFile)
			continue
		}
		bars = append(bars, bar)
	}

	sort.Slice(bars, func(i, j int) bool {
		return bars[i].Time.Before(bars[j].Time)
	})
	return bars, nil
}

func parseRow(line []string) (model.Bar, bool) {
	// full source rows carry 12 fields but only the first six feed a bar;
	// shorter rows with at least those six are accepted deliberately
	if len(line) < 6 {
		return model.Bar{}, false
	}

	timestamp, err := strconv.ParseInt(cleanField(line[0]), 10, 64)
	if err != nil {
		return model.Bar{}, false
	}
	if timestamp > millisecondCutoff {
		timestamp /= 1000
	}

	values := make([]float64, 5)
	for i := 0; i < 5; i++ {
		values[i], err = strconv.ParseFloat(cleanField(line[i+1]), 64)
		if err != nil {
			return model.Bar{}, false
		}
	}

	bar := model.Bar{
		Time:   time.Unix(timestamp, 0).UTC(),
		Open:   values[0],
		High:   values[1],
		Low:    values[2],
		Close:  values[3],
		Volume: values[4],
	}
	return bar, bar.Valid()
}

func cleanField(field string) string {
	return strings.Trim(strings.TrimSpace(field), `"`)
}
