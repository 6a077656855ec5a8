package exchange

import (
	"context"
	"time"

	"github.com/adshao/go-binance/v2"
	"github.com/adshao/go-binance/v2/futures"

	"github.com/quantview/quantview/model"
	"github.com/quantview/quantview/tools/log"
)

// BinanceFuture fetches klines from the Binance USD-M futures API.
type BinanceFuture struct {
	client *futures.Client

	APIKey    string
	APISecret string
}

// BinanceFutureOption configures a BinanceFuture feeder.
type BinanceFutureOption func(*BinanceFuture)

// WithFutureCredentials sets API credentials.
func WithFutureCredentials(key, secret string) BinanceFutureOption {
	return func(b *BinanceFuture) {
		b.APIKey = key
		b.APISecret = secret
	}
}

// NewBinanceFuture creates the futures feeder and verifies connectivity.
func NewBinanceFuture(ctx context.Context, options ...BinanceFutureOption) (*BinanceFuture, error) {
	exchange := &BinanceFuture{}
	for _, option := range options {
		option(exchange)
	}

	exchange.client = binance.NewFuturesClient(exchange.APIKey, exchange.APISecret)
	if err := exchange.client.NewPingService().Do(ctx); err != nil {
		return nil, err
	}

	log.Info("using binance futures market data")
	return exchange, nil
}

// Klines fetches futures klines for the given range, ascending by open time.
func (b *BinanceFuture) Klines(ctx context.Context, symbol, timeframe string,
	start, end time.Time) ([]model.Kline, error) {
	data, err := b.client.NewKlinesService().
		Symbol(symbol).
		Interval(timeframe).
		StartTime(start.UnixMilli()).
		EndTime(end.UnixMilli()).
		Do(ctx)
	if err != nil {
		return nil, err
	}

	klines := make([]model.Kline, 0, len(data))
	for _, row := range data {
		klines = append(klines, klineFromFuture(row))
	}
	return klines, nil
}

func klineFromFuture(k *futures.Kline) model.Kline {
	return model.Kline{
		OpenTime:            k.OpenTime,
		Open:                parsePrice(k.Open),
		High:                parsePrice(k.High),
		Low:                 parsePrice(k.Low),
		Close:               parsePrice(k.Close),
		Volume:              parsePrice(k.Volume),
		CloseTime:           k.CloseTime,
		QuoteVolume:         parsePrice(k.QuoteAssetVolume),
		TradeCount:          k.TradeNum,
		TakerBuyBaseVolume:  parsePrice(k.TakerBuyBaseAssetVolume),
		TakerBuyQuoteVolume: parsePrice(k.TakerBuyQuoteAssetVolume),
	}
}
