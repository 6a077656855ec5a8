package quantview

import (
	"bytes"
	"context"
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/aybabtme/uniplot/histogram"
	"github.com/glebarez/sqlite"
	"github.com/olekukonko/tablewriter"
	"gonum.org/v1/gonum/stat"

	"github.com/quantview/quantview/feed"
	"github.com/quantview/quantview/indicator"
	"github.com/quantview/quantview/instance"
	"github.com/quantview/quantview/model"
	"github.com/quantview/quantview/notification"
	"github.com/quantview/quantview/plot"
	"github.com/quantview/quantview/registry"
	"github.com/quantview/quantview/service"
	"github.com/quantview/quantview/storage"
	"github.com/quantview/quantview/tools/log"
	"github.com/quantview/quantview/tools/metrics"
)

func init() {
	log.SetFormatter(&log.TextFormatter{
		FullTimestamp:   true,
		TimestampFormat: "2006-01-02 15:04",
	})
}

type config struct {
	port           int
	debug          bool
	cacheTTL       string
	candleDB       string
	instanceDB     string
	extensionsDir  string
	definitionsDir string
	notifier       service.Notifier
}

// Option configures a ChartApp.
type Option func(*config)

// WithPort sets the chart server port.
func WithPort(port int) Option {
	return func(c *config) { c.port = port }
}

// WithDebug enables verbose logging and unminified frontend assets.
func WithDebug() Option {
	return func(c *config) { c.debug = true }
}

// WithCacheTTL sets the memory cache expiry, eg. "30m".
func WithCacheTTL(ttl string) Option {
	return func(c *config) { c.cacheTTL = ttl }
}

// WithCandleDB persists parsed candles to the given sqlite file instead of
// an in-memory database.
func WithCandleDB(file string) Option {
	return func(c *config) { c.candleDB = file }
}

// WithInstanceDB persists indicator instances to the given file.
func WithInstanceDB(file string) Option {
	return func(c *config) { c.instanceDB = file }
}

// WithExtensionsDir loads plugin calculation routines from dir.
func WithExtensionsDir(dir string) Option {
	return func(c *config) { c.extensionsDir = dir }
}

// WithDefinitionsDir loads extra indicator definitions from dir.
func WithDefinitionsDir(dir string) Option {
	return func(c *config) { c.definitionsDir = dir }
}

// WithNotifier routes threshold alerts through the given notifier.
func WithNotifier(notifier service.Notifier) Option {
	return func(c *config) { c.notifier = notifier }
}

// ChartApp ties the pipeline together: source file to cache, instances to
// engine, engine to surface.
type ChartApp struct {
	symbol     string
	cache      *feed.Cache
	registry   *registry.Registry
	engine     *indicator.Engine
	controller *instance.Controller
	chart      *plot.Chart
	reconciler *plot.Reconciler
	watcher    *notification.Watcher
}

// NewChartApp builds the application around one OHLC source file.
func NewChartApp(sourceFile string, options ...Option) (*ChartApp, error) {
	cfg := &config{
		port:     8080,
		candleDB: ":memory:",
	}
	for _, option := range options {
		option(cfg)
	}
	if cfg.debug {
		log.SetLevel(log.DebugLevel)
	}

	candleStore, err := storage.FromSQL(sqlite.Open(cfg.candleDB))
	if err != nil {
		return nil, fmt.Errorf("opening candle store: %w", err)
	}

	var instanceStore storage.InstanceStorage
	if cfg.instanceDB != "" {
		instanceStore, err = storage.FromFile(cfg.instanceDB)
	} else {
		instanceStore, err = storage.FromMemory()
	}
	if err != nil {
		return nil, fmt.Errorf("opening instance store: %w", err)
	}

	registryOptions := make([]registry.Option, 0, 1)
	if cfg.definitionsDir != "" {
		registryOptions = append(registryOptions, registry.WithDirectory(cfg.definitionsDir))
	}
	catalog := registry.New(registryOptions...)

	engine := indicator.NewEngine(
		indicator.WithExtensionLoader(indicator.NewPluginLoader(cfg.extensionsDir)),
	)

	cacheOptions := make([]feed.CacheOption, 0, 1)
	if cfg.cacheTTL != "" {
		cacheOptions = append(cacheOptions, feed.WithTTL(cfg.cacheTTL))
	}
	cache := feed.NewCache(candleStore, cacheOptions...)

	app := &ChartApp{
		symbol:     cache.RegisterSource(sourceFile),
		cache:      cache,
		registry:   catalog,
		engine:     engine,
		controller: instance.NewController(catalog, instanceStore),
	}
	if cfg.notifier != nil {
		app.watcher = notification.NewWatcher(cfg.notifier)
	}

	if err := app.controller.LoadPersisted(); err != nil {
		return nil, err
	}

	chartOptions := []plot.Option{
		plot.WithPort(cfg.port),
		plot.WithHooks(app.hooks()),
	}
	if cfg.debug {
		chartOptions = append(chartOptions, plot.WithDebug())
	}
	app.chart, err = plot.NewChart(chartOptions...)
	if err != nil {
		return nil, err
	}
	app.reconciler = plot.NewReconciler(engine, app.chart)

	return app, nil
}

func (a *ChartApp) hooks() plot.Hooks {
	return plot.Hooks{
		Definitions: a.registry.List,
		Instances:   a.controller.List,
		AddInstance: a.AddIndicator,
		RemoveInstance: func(id string) error {
			return a.RemoveIndicator(id)
		},
		SetEnabled: func(id string, enabled bool) error {
			_, err := a.controller.SetEnabled(id, enabled)
			return err
		},
		UpdateParams: func(id string, params map[string]interface{}) error {
			_, err := a.controller.UpdateParameters(id, params)
			return err
		},
		TooltipAt:     a.tooltipAt,
		AfterMutation: a.Reconcile,
	}
}

func (a *ChartApp) tooltipAt(t time.Time) []plot.Tooltip {
	return a.reconciler.ValuesAt(t)
}

// AddIndicator creates an instance of the given definition.
func (a *ChartApp) AddIndicator(definitionID string, params map[string]interface{}) (*model.Instance, error) {
	return a.controller.Add(definitionID, params)
}

// RemoveIndicator drops an instance and any alerts bound to it.
func (a *ChartApp) RemoveIndicator(id string) error {
	if err := a.controller.Remove(id); err != nil {
		return err
	}
	if a.watcher != nil {
		a.watcher.Remove(id)
	}
	return nil
}

// UpdateParameters merges new parameter values into an instance.
func (a *ChartApp) UpdateParameters(id string, params map[string]interface{}) (*model.Instance, error) {
	return a.controller.UpdateParameters(id, params)
}

// SetEnabled toggles an instance without losing its configuration.
func (a *ChartApp) SetEnabled(id string, enabled bool) (*model.Instance, error) {
	return a.controller.SetEnabled(id, enabled)
}

// Definitions lists the indicator catalog.
func (a *ChartApp) Definitions() []model.Definition {
	return a.registry.List()
}

// AddAlert registers a threshold alert. Requires a configured notifier.
func (a *ChartApp) AddAlert(alert notification.Alert) error {
	if a.watcher == nil {
		return fmt.Errorf("no notifier configured")
	}
	a.watcher.Add(alert)
	return nil
}

// Reconcile pushes the current desired state to the chart: fresh candle
// data plus the enabled instances.
func (a *ChartApp) Reconcile() {
	data, err := a.cache.SymbolData(a.symbol)
	if err != nil {
		log.Errorf("loading %s: %v", a.symbol, err)
		return
	}
	a.chart.SetSymbolData(data)

	active := a.controller.ListActive()
	a.reconciler.Sync(active, data.Bars)

	if a.watcher != nil && a.watcher.Len() > 0 {
		for _, inst := range active {
			result := a.engine.Compute(*inst, data.Bars)
			a.watcher.Check(inst.ID, result.Named(inst.DefinitionID))
		}
	}
}

// Run reconciles once and serves the chart until the listener fails or the
// context is canceled.
func (a *ChartApp) Run(ctx context.Context) error {
	a.Reconcile()

	errs := make(chan error, 1)
	go func() {
		errs <- a.chart.Start()
	}()

	select {
	case <-ctx.Done():
		return ctx.Err()
	case err := <-errs:
		return err
	}
}

// Summary prints data statistics for the loaded symbol: a table of the bar
// history, a histogram of daily returns and a bootstrap confidence interval
// for the mean return.
func (a *ChartApp) Summary() error {
	data, err := a.cache.SymbolData(a.symbol)
	if err != nil {
		return err
	}
	if len(data.Bars) == 0 {
		fmt.Printf("no data for %s\n", a.symbol)
		return nil
	}

	first := data.Bars[0]
	last := data.Bars[len(data.Bars)-1]
	closes := make([]float64, len(data.Bars))
	volumes := make([]float64, len(data.Bars))
	for i, bar := range data.Bars {
		closes[i] = bar.Close
		volumes[i] = bar.Volume
	}
	minClose, maxClose := closes[0], closes[0]
	for _, value := range closes {
		if value < minClose {
			minClose = value
		}
		if value > maxClose {
			maxClose = value
		}
	}

	buffer := bytes.NewBuffer(nil)
	table := tablewriter.NewWriter(buffer)
	table.SetHeader([]string{"Symbol", "Bars", "From", "To", "Min Close", "Max Close", "Avg Volume"})
	table.Append([]string{
		a.symbol,
		strconv.Itoa(len(data.Bars)),
		first.Time.Format("2006-01-02"),
		last.Time.Format("2006-01-02"),
		fmt.Sprintf("%.2f", minClose),
		fmt.Sprintf("%.2f", maxClose),
		fmt.Sprintf("%.2f", stat.Mean(volumes, nil)),
	})
	table.Render()
	fmt.Println(buffer.String())

	returns := make([]float64, 0, len(closes)-1)
	for i := 1; i < len(closes); i++ {
		if closes[i-1] != 0 {
			returns = append(returns, (closes[i]-closes[i-1])/closes[i-1]*100)
		}
	}
	if len(returns) == 0 {
		return nil
	}

	fmt.Println("------ RETURNS (%) -------")
	hist := histogram.Hist(15, returns)
	if err := histogram.Fprint(os.Stdout, hist, histogram.Linear(10)); err != nil {
		return err
	}
	fmt.Println()

	fmt.Println("------ CONFIDENCE INTERVAL (95%) -------")
	interval := metrics.Bootstrap(returns, func(samples []float64) float64 {
		return stat.Mean(samples, nil)
	}, 10000, 0.95)
	fmt.Printf("MEAN RETURN: %.3f%% (%.3f%% ~ %.3f%%)\n",
		interval.Mean, interval.Lower, interval.Upper)
	fmt.Println()

	active := a.controller.ListActive()
	if len(active) == 0 {
		return nil
	}

	fmt.Println("------ INDICATORS -------")
	buffer.Reset()
	table = tablewriter.NewWriter(buffer)
	table.SetHeader([]string{"Instance", "Definition", "Series", "Count", "Min", "Mean", "Max"})
	for _, inst := range active {
		result := a.engine.Compute(*inst, data.Bars)
		named := result.Named(inst.DefinitionID)
		for _, name := range result.Names(inst.DefinitionID) {
			points := named[name]
			if len(points) == 0 {
				continue
			}
			values := make([]float64, len(points))
			for i, point := range points {
				values[i] = point.Value
			}
			minValue, maxValue := values[0], values[0]
			for _, value := range values {
				if value < minValue {
					minValue = value
				}
				if value > maxValue {
					maxValue = value
				}
			}
			table.Append([]string{
				inst.ID,
				inst.DefinitionID,
				name,
				strconv.Itoa(len(values)),
				fmt.Sprintf("%.4f", minValue),
				fmt.Sprintf("%.4f", stat.Mean(values, nil)),
				fmt.Sprintf("%.4f", maxValue),
			})
		}
	}
	table.Render()
	fmt.Println(buffer.String())
	return nil
}
