package download

import (
	"context"
	"encoding/csv"
	"os"
	"time"

	"github.com/jpillora/backoff"
	"github.com/schollz/progressbar/v3"
	"github.com/xhit/go-str2duration/v2"

	"github.com/quantview/quantview/model"
	"github.com/quantview/quantview/service"
	"github.com/quantview/quantview/tools/log"
)

// batchSize is the number of klines requested per API call.
const batchSize = 500

const maxAttempts = 4

// Downloader writes historical klines from an exchange into a source file
// the feed cache can load.
type Downloader struct {
	feeder service.KlineFeeder
}

// NewDownloader creates a downloader over the given feeder.
func NewDownloader(feeder service.KlineFeeder) Downloader {
	return Downloader{feeder: feeder}
}

// Parameters bound the downloaded range.
type Parameters struct {
	Start time.Time
	End   time.Time
}

// Option adjusts download parameters.
type Option func(*Parameters)

// WithInterval downloads the explicit [start, end] range.
func WithInterval(start, end time.Time) Option {
	return func(parameters *Parameters) {
		parameters.Start = start
		parameters.End = end
	}
}

// WithDays downloads the trailing n days.
func WithDays(days int) Option {
	return func(parameters *Parameters) {
		parameters.End = time.Now()
		parameters.Start = parameters.End.AddDate(0, 0, -days)
	}
}

func klineCount(start, end time.Time, timeframe string) (int, time.Duration, error) {
	interval, err := str2duration.ParseDuration(timeframe)
	if err != nil {
		return 0, 0, err
	}
	return int(end.Sub(start) / interval), interval, nil
}

// Download fetches klines batch by batch and writes them as source-file CSV
// rows. Transient fetch errors are retried with exponential backoff before
// giving up.
func (d Downloader) Download(ctx context.Context, symbol, timeframe, output string,
	options ...Option) error {
	recordFile, err := os.Create(output)
	if err != nil {
		return err
	}
	defer recordFile.Close()

	now := time.Now()
	parameters := &Parameters{
		Start: now.AddDate(0, -1, 0),
		End:   now,
	}
	for _, option := range options {
		option(parameters)
	}

	// snap the start to midnight UTC so repeated downloads produce
	// identical row boundaries
	parameters.Start = time.Date(parameters.Start.Year(), parameters.Start.Month(),
		parameters.Start.Day(), 0, 0, 0, 0, time.UTC)
	if parameters.End.After(now) {
		parameters.End = now
	}

	total, interval, err := klineCount(parameters.Start, parameters.End, timeframe)
	if err != nil {
		return err
	}
	log.Infof("downloading %d klines of %s for %s", total, timeframe, symbol)

	writer := csv.NewWriter(recordFile)
	progressBar := progressbar.Default(int64(total))
	missing := 0
	lastBatch := false

	for begin := parameters.Start; begin.Before(parameters.End); begin = begin.Add(interval * batchSize) {
		end := begin.Add(interval * batchSize)
		if end.Before(parameters.End) {
			end = end.Add(-time.Second) // next batch starts where this one ends
		} else {
			end = parameters.End
			lastBatch = true
		}

		klines, err := d.fetchBatch(ctx, symbol, timeframe, begin, end)
		if err != nil {
			return err
		}

		for _, kline := range klines {
			if err := writer.Write(kline.ToRecord()); err != nil {
				return err
			}
		}

		if !lastBatch {
			missing += batchSize - len(klines)
		}
		if err := progressBar.Add(len(klines)); err != nil {
			log.Warnf("progress bar update failed: %v", err)
		}
	}

	if err := progressBar.Close(); err != nil {
		log.Warnf("progress bar close failed: %v", err)
	}
	if missing > 0 {
		log.Warnf("%d missing klines", missing)
	}

	writer.Flush()
	log.Infof("saved %s", output)
	return writer.Error()
}

func (d Downloader) fetchBatch(ctx context.Context, symbol, timeframe string,
	start, end time.Time) ([]model.Kline, error) {
	retry := &backoff.Backoff{
		Min:    500 * time.Millisecond,
		Max:    10 * time.Second,
		Factor: 2,
	}

	var lastErr error
	for attempt := 0; attempt < maxAttempts; attempt++ {
		klines, err := d.feeder.Klines(ctx, symbol, timeframe, start, end)
		if err == nil {
			return klines, nil
		}
		lastErr = err
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		wait := retry.Duration()
		log.Warnf("kline fetch failed, retrying in %s: %v", wait, err)
		select {
		case <-time.After(wait):
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}
	return nil, lastErr
}
