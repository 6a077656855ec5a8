package main

import (
	"bytes"
	"fmt"
	"log"
	"os"
	"strconv"

	"github.com/olekukonko/tablewriter"
	"github.com/urfave/cli/v2"

	"github.com/quantview/quantview"
	"github.com/quantview/quantview/download"
	"github.com/quantview/quantview/exchange"
	"github.com/quantview/quantview/notification"
	"github.com/quantview/quantview/service"
)

func appOptions(c *cli.Context) ([]quantview.Option, error) {
	options := []quantview.Option{
		quantview.WithPort(c.Int("port")),
	}
	if c.Bool("debug") {
		options = append(options, quantview.WithDebug())
	}
	if db := c.String("db"); db != "" {
		options = append(options, quantview.WithCandleDB(db))
	}
	if instances := c.String("instances"); instances != "" {
		options = append(options, quantview.WithInstanceDB(instances))
	}
	if extensions := c.String("extensions"); extensions != "" {
		options = append(options, quantview.WithExtensionsDir(extensions))
	}
	if definitions := c.String("definitions"); definitions != "" {
		options = append(options, quantview.WithDefinitionsDir(definitions))
	}
	if ttl := c.String("cache-ttl"); ttl != "" {
		options = append(options, quantview.WithCacheTTL(ttl))
	}

	if token := c.String("telegram-token"); token != "" {
		chatID := c.Int64("telegram-chat")
		if chatID == 0 {
			return nil, fmt.Errorf("telegram-chat is required with telegram-token")
		}
		notifier, err := notification.NewTelegram(token, chatID)
		if err != nil {
			return nil, err
		}
		options = append(options, quantview.WithNotifier(notifier))
	}
	return options, nil
}

func main() {
	sourceFlags := []cli.Flag{
		&cli.StringFlag{
			Name:     "source",
			Aliases:  []string{"s"},
			Usage:    "eg. ./btcusdt.csv",
			Required: true,
		},
		&cli.StringFlag{
			Name:  "db",
			Usage: "sqlite file for parsed candles (default in-memory)",
		},
		&cli.StringFlag{
			Name:  "instances",
			Usage: "file persisting indicator instances (default in-memory)",
		},
		&cli.StringFlag{
			Name:  "extensions",
			Usage: "directory with indicator plugin .so files",
		},
		&cli.StringFlag{
			Name:  "definitions",
			Usage: "directory with extra indicator definition JSON files",
		},
		&cli.StringFlag{
			Name:  "cache-ttl",
			Usage: "memory cache expiry, eg. 30m",
		},
		&cli.IntFlag{
			Name:    "port",
			Aliases: []string{"p"},
			Value:   8080,
		},
		&cli.BoolFlag{
			Name: "debug",
		},
		&cli.StringFlag{
			Name:  "telegram-token",
			Usage: "bot token for threshold alerts",
		},
		&cli.Int64Flag{
			Name:  "telegram-chat",
			Usage: "chat id receiving alerts",
		},
	}

	app := &cli.App{
		Name:     "quantview",
		HelpName: "quantview",
		Usage:    "OHLC chart server with configurable indicators",
		Commands: []*cli.Command{
			{
				Name:     "serve",
				HelpName: "serve",
				Usage:    "Serve the chart for a source file",
				Flags:    sourceFlags,
				Action: func(c *cli.Context) error {
					options, err := appOptions(c)
					if err != nil {
						return err
					}
					app, err := quantview.NewChartApp(c.String("source"), options...)
					if err != nil {
						return err
					}
					return app.Run(c.Context)
				},
			},
			{
				Name:     "stats",
				HelpName: "stats",
				Usage:    "Print data statistics for a source file",
				Flags:    sourceFlags,
				Action: func(c *cli.Context) error {
					options, err := appOptions(c)
					if err != nil {
						return err
					}
					app, err := quantview.NewChartApp(c.String("source"), options...)
					if err != nil {
						return err
					}
					return app.Summary()
				},
			},
			{
				Name:     "indicators",
				HelpName: "indicators",
				Usage:    "List the built-in indicator catalog",
				Action: func(c *cli.Context) error {
					app, err := quantview.NewChartApp(os.DevNull)
					if err != nil {
						return err
					}

					buffer := bytes.NewBuffer(nil)
					table := tablewriter.NewWriter(buffer)
					table.SetHeader([]string{"ID", "Name", "Kind", "Pane", "Parameters"})
					for _, definition := range app.Definitions() {
						table.Append([]string{
							definition.ID,
							definition.Name,
							string(definition.Kind),
							string(definition.DefaultPane),
							strconv.Itoa(len(definition.Params)),
						})
					}
					table.Render()
					fmt.Println(buffer.String())
					return nil
				},
			},
			{
				Name:     "download",
				HelpName: "download",
				Usage:    "Download historical klines into a source file",
				Flags: []cli.Flag{
					&cli.StringFlag{
						Name:     "symbol",
						Aliases:  []string{"y"},
						Usage:    "eg. BTCUSDT",
						Required: true,
					},
					&cli.IntFlag{
						Name:    "days",
						Aliases: []string{"d"},
						Usage:   "eg. 100 (default 30 days)",
					},
					&cli.TimestampFlag{
						Name:    "start",
						Usage:   "eg. 2021-12-01",
						Layout:  "2006-01-02",
					},
					&cli.TimestampFlag{
						Name:    "end",
						Usage:   "eg. 2021-12-31",
						Layout:  "2006-01-02",
					},
					&cli.StringFlag{
						Name:     "timeframe",
						Aliases:  []string{"t"},
						Usage:    "eg. 1h",
						Required: true,
					},
					&cli.StringFlag{
						Name:     "output",
						Aliases:  []string{"o"},
						Usage:    "eg. ./btcusdt.csv",
						Required: true,
					},
					&cli.BoolFlag{
						Name:    "futures",
						Aliases: []string{"f"},
						Usage:   "use the futures market",
					},
				},
				Action: func(c *cli.Context) error {
					var (
						feeder service.KlineFeeder
						err    error
					)
					if c.Bool("futures") {
						feeder, err = exchange.NewBinanceFuture(c.Context)
					} else {
						feeder, err = exchange.NewBinance(c.Context)
					}
					if err != nil {
						return err
					}

					var options []download.Option
					if days := c.Int("days"); days > 0 {
						options = append(options, download.WithDays(days))
					}

					start := c.Timestamp("start")
					end := c.Timestamp("end")
					if start != nil && end != nil && !start.IsZero() && !end.IsZero() {
						options = append(options, download.WithInterval(*start, *end))
					} else if start != nil || end != nil {
						log.Fatal("START and END must be informed together")
					}

					return download.NewDownloader(feeder).Download(c.Context,
						c.String("symbol"), c.String("timeframe"), c.String("output"), options...)
				},
			},
		},
	}

	if err := app.Run(os.Args); err != nil {
		log.Fatal(err)
	}
}
