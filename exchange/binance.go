package exchange

import (
	"context"
	"strconv"
	"time"

	"github.com/adshao/go-binance/v2"

	"github.com/quantview/quantview/model"
	"github.com/quantview/quantview/tools/log"
)

// Binance fetches spot klines from the Binance REST API.
type Binance struct {
	client *binance.Client

	APIKey    string
	APISecret string
}

// BinanceOption configures a Binance feeder.
type BinanceOption func(*Binance)

// WithBinanceCredentials sets API credentials. Kline endpoints work without
// them, but authenticated requests get higher rate limits.
func WithBinanceCredentials(key, secret string) BinanceOption {
	return func(b *Binance) {
		b.APIKey = key
		b.APISecret = secret
	}
}

// WithTestNet routes requests to the Binance test network.
func WithTestNet() BinanceOption {
	return func(*Binance) {
		binance.UseTestnet = true
	}
}

// NewBinance creates the spot feeder and verifies connectivity.
func NewBinance(ctx context.Context, options ...BinanceOption) (*Binance, error) {
	exchange := &Binance{}
	for _, option := range options {
		option(exchange)
	}

	exchange.client = binance.NewClient(exchange.APIKey, exchange.APISecret)
	if err := exchange.client.NewPingService().Do(ctx); err != nil {
		return nil, err
	}

	log.Info("using binance spot market data")
	return exchange, nil
}

// Klines fetches klines for the given range, ascending by open time.
func (b *Binance) Klines(ctx context.Context, symbol, timeframe string,
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
		klines = append(klines, klineFromSpot(row))
	}
	return klines, nil
}

func klineFromSpot(k *binance.Kline) model.Kline {
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

func parsePrice(value string) float64 {
	parsed, err := strconv.ParseFloat(value, 64)
	if err != nil {
		log.Warnf("unparsable price value %q: %v", value, err)
		return 0
	}
	return parsed
}
