package storage

import (
	"time"

	"gorm.io/gorm"

	"github.com/quantview/quantview/model"
)

const candleBatchSize = 500

// CandleRow is the persisted form of one OHLC bar, partitioned by symbol id.
type CandleRow struct {
	ID     uint   `gorm:"primaryKey"`
	Symbol string `gorm:"index:idx_symbol_time"`
	Time   int64  `gorm:"index:idx_symbol_time"`
	Open   float64
	High   float64
	Low    float64
	Close  float64
	Volume float64
}

// SQL is the persistent candle tier backed by a gorm-supported database.
type SQL struct {
	db *gorm.DB
}

// FromSQL opens the candle store on the given dialect and migrates the
// schema. A connection failure here is a hard startup error for callers.
func FromSQL(dialect gorm.Dialector, opts ...gorm.Option) (CandleStorage, error) {
	db, err := gorm.Open(dialect, opts...)
	if err != nil {
		return nil, err
	}

	sqlDB, err := db.DB()
	if err != nil {
		return nil, err
	}
	sqlDB.SetMaxIdleConns(10)
	sqlDB.SetMaxOpenConns(100)
	sqlDB.SetConnMaxLifetime(time.Hour)

	if err := db.AutoMigrate(&CandleRow{}); err != nil {
		return nil, err
	}

	return &SQL{db: db}, nil
}

// Candles returns all persisted bars for a symbol in ascending time order.
func (s *SQL) Candles(symbol string) ([]model.Bar, error) {
	var rows []CandleRow
	result := s.db.Where("symbol = ?", symbol).Order("time asc").Find(&rows)
	if result.Error != nil {
		return nil, result.Error
	}

	bars := make([]model.Bar, len(rows))
	for i, row := range rows {
		bars[i] = model.Bar{
			Time:   time.Unix(row.Time, 0).UTC(),
			Open:   row.Open,
			High:   row.High,
			Low:    row.Low,
			Close:  row.Close,
			Volume: row.Volume,
		}
	}
	return bars, nil
}

// SaveCandles bulk-writes parsed bars for a symbol.
func (s *SQL) SaveCandles(symbol string, bars []model.Bar) error {
	if len(bars) == 0 {
		return nil
	}
	rows := make([]CandleRow, len(bars))
	for i, bar := range bars {
		rows[i] = CandleRow{
			Symbol: symbol,
			Time:   bar.Time.Unix(),
			Open:   bar.Open,
			High:   bar.High,
			Low:    bar.Low,
			Close:  bar.Close,
			Volume: bar.Volume,
		}
	}
	return s.db.CreateInBatches(rows, candleBatchSize).Error
}
