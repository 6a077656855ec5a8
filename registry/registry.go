package registry

import (
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"github.com/quantview/quantview/model"
	"github.com/quantview/quantview/tools/log"
)

// Registry is the catalog of indicator definitions: the built-in set plus
// any JSON definition files found in a configured directory. Definitions are
// immutable after New returns.
type Registry struct {
	mu          sync.RWMutex
	definitions map[string]model.Definition
	order       []string
}

// Option customizes a Registry.
type Option func(*Registry)

// WithDirectory loads *.json definition files from dir on top of the
// built-in catalog. A missing directory is not an error; a malformed file is
// skipped with a warning.
func WithDirectory(dir string) Option {
	return func(registry *Registry) {
		registry.loadDirectory(dir)
	}
}

// New creates a registry pre-loaded with the built-in definitions.
func New(options ...Option) *Registry {
	registry := &Registry{
		definitions: make(map[string]model.Definition),
	}
	for _, definition := range builtinDefinitions() {
		registry.put(definition)
	}
	for _, option := range options {
		option(registry)
	}
	return registry
}

// Get returns the definition for the given id.
func (r *Registry) Get(id string) (model.Definition, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	definition, ok := r.definitions[id]
	return definition, ok
}

// List returns all definitions in stable registration order.
func (r *Registry) List() []model.Definition {
	r.mu.RLock()
	defer r.mu.RUnlock()
	definitions := make([]model.Definition, 0, len(r.order))
	for _, id := range r.order {
		definitions = append(definitions, r.definitions[id])
	}
	return definitions
}

func (r *Registry) put(definition model.Definition) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, exists := r.definitions[definition.ID]; !exists {
		r.order = append(r.order, definition.ID)
	}
	r.definitions[definition.ID] = definition
}

func (r *Registry) loadDirectory(dir string) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		log.Warnf("indicator definition directory unavailable: %v", err)
		return
	}

	for _, entry := range entries {
		if entry.IsDir() || !strings.HasSuffix(entry.Name(), ".json") {
			continue
		}
		path := filepath.Join(dir, entry.Name())
		content, err := os.ReadFile(path)
		if err != nil {
			log.Warnf("skipping definition %s: %v", path, err)
			continue
		}

		var definition model.Definition
		if err := json.Unmarshal(content, &definition); err != nil {
			log.Warnf("skipping malformed definition %s: %v", path, err)
			continue
		}
		if definition.ID == "" {
			log.Warnf("skipping definition %s: missing id", path)
			continue
		}
		r.put(definition)
	}
}

func floatPtr(v float64) *float64 {
	return &v
}

func periodParam(fallback float64) model.ParamSpec {
	return model.ParamSpec{
		Type:    model.ParamNumber,
		Default: fallback,
		Min:     floatPtr(1),
		Max:     floatPtr(500),
		Step:    floatPtr(1),
	}
}

func sourceParam() model.ParamSpec {
	return model.ParamSpec{
		Type:    model.ParamSelect,
		Default: "close",
		Options: []string{"open", "high", "low", "close"},
	}
}

func builtinDefinitions() []model.Definition {
	return []model.Definition{
		{
			ID:          "sma",
			Name:        "Simple Moving Average",
			Description: "Arithmetic mean of the source field over a trailing window",
			Kind:        model.KindOverlay,
			DefaultPane: model.PaneMain,
			Params: map[string]model.ParamSpec{
				"period": periodParam(14),
				"source": sourceParam(),
			},
			DefaultStyle: model.Style{Color: "#2962ff"},
		},
		{
			ID:          "ema",
			Name:        "Exponential Moving Average",
			Description: "Exponentially weighted moving average of the source field",
			Kind:        model.KindOverlay,
			DefaultPane: model.PaneMain,
			Params: map[string]model.ParamSpec{
				"period": periodParam(14),
				"source": sourceParam(),
			},
			DefaultStyle: model.Style{Color: "#f57c00"},
		},
		{
			ID:          "rsi",
			Name:        "Relative Strength Index",
			Description: "Momentum oscillator of close-to-close changes, bounded 0-100",
			Kind:        model.KindOscillator,
			DefaultPane: model.PaneSub,
			Params: map[string]model.ParamSpec{
				"period": periodParam(14),
			},
			DefaultStyle: model.Style{Color: "#7b1fa2"},
		},
		{
			ID:          "macd",
			Name:        "MACD",
			Description: "Moving average convergence divergence with signal and histogram",
			Kind:        model.KindOscillator,
			DefaultPane: model.PaneSub,
			Params: map[string]model.ParamSpec{
				"fastPeriod":   periodParam(12),
				"slowPeriod":   periodParam(26),
				"signalPeriod": periodParam(9),
			},
			DefaultStyle: model.Style{
				Color: "#2962ff",
				Colors: map[string]string{
					"macd":      "#2962ff",
					"signal":    "#f57c00",
					"histogram": "#26a69a",
				},
			},
		},
		{
			ID:          "bbands",
			Name:        "Bollinger Bands",
			Description: "Moving average with bands at a standard deviation multiple",
			Kind:        model.KindOverlay,
			DefaultPane: model.PaneMain,
			Params: map[string]model.ParamSpec{
				"period": periodParam(20),
				"deviation": {
					Type:    model.ParamNumber,
					Default: 2.0,
					Min:     floatPtr(0.1),
					Max:     floatPtr(10),
					Step:    floatPtr(0.1),
				},
			},
			DefaultStyle: model.Style{
				Color: "#607d8b",
				Colors: map[string]string{
					"upper":  "#607d8b",
					"middle": "#2962ff",
					"lower":  "#607d8b",
				},
			},
		},
		{
			ID:          "stoch",
			Name:        "Stochastic",
			Description: "Slow stochastic oscillator",
			Kind:        model.KindOscillator,
			DefaultPane: model.PaneSub,
			Params: map[string]model.ParamSpec{
				"fastK": periodParam(14),
				"slowK": periodParam(3),
				"slowD": periodParam(3),
			},
			DefaultStyle: model.Style{
				Color: "#2962ff",
				Colors: map[string]string{
					"k": "#2962ff",
					"d": "#f57c00",
				},
			},
		},
		{
			ID:          "willr",
			Name:        "Williams %R",
			Description: "Momentum oscillator of close relative to the high-low range",
			Kind:        model.KindOscillator,
			DefaultPane: model.PaneSub,
			Params: map[string]model.ParamSpec{
				"period": periodParam(14),
			},
			DefaultStyle: model.Style{Color: "#d81b60"},
		},
	}
}
