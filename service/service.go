// Package service defines the outward-facing interfaces of the application:
// exchange data sources and user notification channels.
package service

import (
	"context"
	"time"

	"github.com/quantview/quantview/model"
)

// KlineFeeder fetches historical klines from an exchange. Implementations
// return rows in ascending open-time order.
type KlineFeeder interface {
	Klines(ctx context.Context, symbol, timeframe string, start, end time.Time) ([]model.Kline, error)
}

// Notifier delivers a user-facing message. Delivery is best effort:
// implementations log failures instead of returning them.
type Notifier interface {
	Notify(text string)
}
