package plot

import (
	"embed"
	"encoding/json"
	"fmt"
	"html/template"
	"net/http"
	"strconv"
	"sync"
	"time"

	"github.com/evanw/esbuild/pkg/api"

	"github.com/quantview/quantview/model"
	"github.com/quantview/quantview/tools/log"
)

//go:embed assets
var staticFiles embed.FS

// Hooks are the callbacks the chart server drives on user actions. All of
// them are optional; missing hooks disable the corresponding endpoint.
type Hooks struct {
	Definitions    func() []model.Definition
	Instances      func() []*model.Instance
	AddInstance    func(definitionID string, params map[string]interface{}) (*model.Instance, error)
	RemoveInstance func(id string) error
	SetEnabled     func(id string, enabled bool) error
	UpdateParams   func(id string, params map[string]interface{}) error
	TooltipAt      func(t time.Time) []Tooltip
	AfterMutation  func()
}

type paneState struct {
	id     PaneID
	series []SeriesSpec
}

type timeRange struct {
	From int64 `json:"from"`
	To   int64 `json:"to"`
}

// Chart is the HTTP side of the application and the concrete Surface the
// reconciler draws on. Series live in memory grouped by pane and are served
// as JSON to the browser.
type Chart struct {
	mu    sync.Mutex
	port  int
	debug bool
	hooks Hooks

	symbol    string
	candles   []model.Bar
	volume    []model.VolumePoint
	panes     map[PaneID]*paneState
	paneOrder []PaneID

	// shared visible range across panes. rangeRev lets clients detect a
	// change; re-posting the current range is ignored so the panes do not
	// feed their own sync back as a new change.
	sharedRange timeRange
	rangeRev    uint64

	scriptContent string
	indexHTML     *template.Template
	lastUpdate    time.Time
}

// Option configures a Chart.
type Option func(*Chart)

// WithPort sets the HTTP listen port.
func WithPort(port int) Option {
	return func(chart *Chart) {
		chart.port = port
	}
}

// WithDebug disables script minification for readable browser output.
func WithDebug() Option {
	return func(chart *Chart) {
		chart.debug = true
	}
}

// WithHooks wires the application callbacks.
func WithHooks(hooks Hooks) Option {
	return func(chart *Chart) {
		chart.hooks = hooks
	}
}

// NewChart creates the chart server and transpiles the frontend script.
func NewChart(options ...Option) (*Chart, error) {
	chart := &Chart{
		port:  8080,
		panes: make(map[PaneID]*paneState),
	}
	for _, option := range options {
		option(chart)
	}

	chart.panes[PaneMain] = &paneState{id: PaneMain}
	chart.paneOrder = []PaneID{PaneMain}

	chartJS, err := staticFiles.ReadFile("assets/chart.js")
	if err != nil {
		return nil, err
	}

	chart.indexHTML, err = template.ParseFS(staticFiles, "assets/chart.html")
	if err != nil {
		return nil, err
	}

	transpiled := api.Transform(string(chartJS), api.TransformOptions{
		Loader:            api.LoaderJS,
		Target:            api.ES2015,
		MinifySyntax:      !chart.debug,
		MinifyIdentifiers: !chart.debug,
		MinifyWhitespace:  !chart.debug,
	})
	if len(transpiled.Errors) > 0 {
		return nil, fmt.Errorf("chart script failed with: %v", transpiled.Errors)
	}
	chart.scriptContent = string(transpiled.Code)

	return chart, nil
}

// SetSymbolData replaces the candle and volume data served to the browser.
func (c *Chart) SetSymbolData(data model.SymbolData) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.symbol = data.Symbol
	c.candles = data.Bars
	c.volume = data.Volume
	c.lastUpdate = time.Now()
}

// AddSeries implements Surface.
func (c *Chart) AddSeries(spec SeriesSpec) (SeriesHandle, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	pane, ok := c.panes[spec.Pane]
	if !ok {
		return SeriesHandle{}, fmt.Errorf("unknown pane %s", spec.Pane)
	}
	pane.series = append(pane.series, spec)
	c.lastUpdate = time.Now()
	return SeriesHandle{ID: spec.ID, Pane: spec.Pane}, nil
}

// RemoveSeries implements Surface.
func (c *Chart) RemoveSeries(handle SeriesHandle) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	pane, ok := c.panes[handle.Pane]
	if !ok {
		return fmt.Errorf("unknown pane %s", handle.Pane)
	}
	for i, spec := range pane.series {
		if spec.ID == handle.ID {
			pane.series = append(pane.series[:i], pane.series[i+1:]...)
			c.lastUpdate = time.Now()
			return nil
		}
	}
	return fmt.Errorf("unknown series %s", handle.ID)
}

// CreatePane implements Surface.
func (c *Chart) CreatePane(id PaneID) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if _, ok := c.panes[id]; ok {
		return nil
	}
	c.panes[id] = &paneState{id: id}
	c.paneOrder = append(c.paneOrder, id)
	return nil
}

// RemovePane implements Surface.
func (c *Chart) RemovePane(id PaneID) error {
	if id == PaneMain {
		return fmt.Errorf("main pane cannot be removed")
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	if _, ok := c.panes[id]; !ok {
		return nil
	}
	delete(c.panes, id)
	for i, existing := range c.paneOrder {
		if existing == id {
			c.paneOrder = append(c.paneOrder[:i], c.paneOrder[i+1:]...)
			break
		}
	}
	return nil
}

func (c *Chart) handleHealth(w http.ResponseWriter, _ *http.Request) {
	w.WriteHeader(http.StatusOK)
}

func (c *Chart) handleIndex(w http.ResponseWriter, r *http.Request) {
	if r.URL.Path != "/" {
		w.WriteHeader(http.StatusNotFound)
		return
	}
	c.mu.Lock()
	symbol := c.symbol
	c.mu.Unlock()
	if err := c.indexHTML.Execute(w, map[string]string{"symbol": symbol}); err != nil {
		log.Errorf("rendering index: %v", err)
	}
}

type paneJSON struct {
	ID     PaneID       `json:"id"`
	Series []SeriesSpec `json:"series"`
}

func (c *Chart) handleData(w http.ResponseWriter, _ *http.Request) {
	c.mu.Lock()
	panes := make([]paneJSON, 0, len(c.paneOrder))
	for _, id := range c.paneOrder {
		pane := c.panes[id]
		series := pane.series
		if series == nil {
			series = []SeriesSpec{}
		}
		panes = append(panes, paneJSON{ID: id, Series: series})
	}
	payload := map[string]interface{}{
		"symbol":  c.symbol,
		"candles": c.candles,
		"volume":  c.volume,
		"panes":   panes,
	}
	c.mu.Unlock()

	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(payload); err != nil {
		log.Errorf("encoding chart data: %v", err)
	}
}

func (c *Chart) handleTooltip(w http.ResponseWriter, r *http.Request) {
	if c.hooks.TooltipAt == nil {
		w.WriteHeader(http.StatusNotFound)
		return
	}
	timestamp, err := strconv.ParseInt(r.URL.Query().Get("time"), 10, 64)
	if err != nil {
		w.WriteHeader(http.StatusBadRequest)
		return
	}

	tooltips := c.hooks.TooltipAt(time.Unix(timestamp, 0).UTC())
	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(tooltips); err != nil {
		log.Errorf("encoding tooltip: %v", err)
	}
}

type addInstanceRequest struct {
	DefinitionID string                 `json:"definitionId"`
	Params       map[string]interface{} `json:"parameterValues"`
}

func (c *Chart) handleIndicators(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodGet:
		c.listIndicators(w)
	case http.MethodPost:
		c.addIndicator(w, r)
	case http.MethodDelete:
		c.removeIndicator(w, r)
	case http.MethodPut:
		c.updateIndicator(w, r)
	default:
		w.WriteHeader(http.StatusMethodNotAllowed)
	}
}

func (c *Chart) listIndicators(w http.ResponseWriter) {
	payload := map[string]interface{}{}
	if c.hooks.Definitions != nil {
		payload["definitions"] = c.hooks.Definitions()
	}
	if c.hooks.Instances != nil {
		payload["instances"] = c.hooks.Instances()
	}
	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(payload); err != nil {
		log.Errorf("encoding indicators: %v", err)
	}
}

func (c *Chart) addIndicator(w http.ResponseWriter, r *http.Request) {
	if c.hooks.AddInstance == nil {
		w.WriteHeader(http.StatusNotFound)
		return
	}
	var request addInstanceRequest
	if err := json.NewDecoder(r.Body).Decode(&request); err != nil || request.DefinitionID == "" {
		w.WriteHeader(http.StatusBadRequest)
		return
	}
	instance, err := c.hooks.AddInstance(request.DefinitionID, request.Params)
	if err != nil {
		http.Error(w, err.Error(), http.StatusUnprocessableEntity)
		return
	}
	c.afterMutation()
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusCreated)
	if err := json.NewEncoder(w).Encode(instance); err != nil {
		log.Errorf("encoding instance: %v", err)
	}
}

func (c *Chart) removeIndicator(w http.ResponseWriter, r *http.Request) {
	if c.hooks.RemoveInstance == nil {
		w.WriteHeader(http.StatusNotFound)
		return
	}
	id := r.URL.Query().Get("id")
	if id == "" {
		w.WriteHeader(http.StatusBadRequest)
		return
	}
	if err := c.hooks.RemoveInstance(id); err != nil {
		http.Error(w, err.Error(), http.StatusUnprocessableEntity)
		return
	}
	c.afterMutation()
	w.WriteHeader(http.StatusNoContent)
}

type updateInstanceRequest struct {
	Params  map[string]interface{} `json:"parameterValues"`
	Enabled *bool                  `json:"enabled"`
}

func (c *Chart) updateIndicator(w http.ResponseWriter, r *http.Request) {
	id := r.URL.Query().Get("id")
	if id == "" {
		w.WriteHeader(http.StatusBadRequest)
		return
	}
	var request updateInstanceRequest
	if err := json.NewDecoder(r.Body).Decode(&request); err != nil {
		w.WriteHeader(http.StatusBadRequest)
		return
	}

	if request.Enabled != nil && c.hooks.SetEnabled != nil {
		if err := c.hooks.SetEnabled(id, *request.Enabled); err != nil {
			http.Error(w, err.Error(), http.StatusUnprocessableEntity)
			return
		}
	}
	if len(request.Params) > 0 && c.hooks.UpdateParams != nil {
		if err := c.hooks.UpdateParams(id, request.Params); err != nil {
			http.Error(w, err.Error(), http.StatusUnprocessableEntity)
			return
		}
	}
	c.afterMutation()
	w.WriteHeader(http.StatusNoContent)
}

func (c *Chart) afterMutation() {
	if c.hooks.AfterMutation != nil {
		c.hooks.AfterMutation()
	}
}

// handleRange keeps the pane time axes in sync. A pane posts its visible
// range when the user scrolls or zooms; the other panes poll and apply it.
// Re-posting the range that is already shared does not bump the revision,
// which stops an applied sync from echoing back as a fresh change.
func (c *Chart) handleRange(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodGet:
		c.mu.Lock()
		payload := map[string]interface{}{
			"from":     c.sharedRange.From,
			"to":       c.sharedRange.To,
			"revision": c.rangeRev,
		}
		c.mu.Unlock()
		w.Header().Set("Content-Type", "application/json")
		if err := json.NewEncoder(w).Encode(payload); err != nil {
			log.Errorf("encoding range: %v", err)
		}
	case http.MethodPost:
		var incoming timeRange
		if err := json.NewDecoder(r.Body).Decode(&incoming); err != nil {
			w.WriteHeader(http.StatusBadRequest)
			return
		}
		c.mu.Lock()
		if incoming != c.sharedRange {
			c.sharedRange = incoming
			c.rangeRev++
		}
		c.mu.Unlock()
		w.WriteHeader(http.StatusOK)
	default:
		w.WriteHeader(http.StatusMethodNotAllowed)
	}
}

// Start blocks serving HTTP until the listener fails.
func (c *Chart) Start() error {
	mux := http.NewServeMux()
	mux.Handle("/assets/", http.FileServer(http.FS(staticFiles)))
	mux.HandleFunc("/assets/chart.js", func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "application/javascript")
		fmt.Fprint(w, c.scriptContent)
	})
	mux.HandleFunc("/health", c.handleHealth)
	mux.HandleFunc("/data", c.handleData)
	mux.HandleFunc("/tooltip", c.handleTooltip)
	mux.HandleFunc("/indicators", c.handleIndicators)
	mux.HandleFunc("/range", c.handleRange)
	mux.HandleFunc("/", c.handleIndex)

	log.Infof("chart server listening on http://localhost:%d", c.port)
	return http.ListenAndServe(fmt.Sprintf(":%d", c.port), mux)
}
