package model

import (
	"encoding/json"
	"strconv"
	"time"
)

// Kind classifies an indicator definition.
type Kind string

const (
	KindOverlay    Kind = "overlay"
	KindOscillator Kind = "oscillator"
)

// Pane is the rendering surface an instance targets: the main price chart or
// a dedicated sub chart.
type Pane string

const (
	PaneMain Pane = "main"
	PaneSub  Pane = "sub"
)

// ParamType enumerates the value types a definition parameter may declare.
type ParamType string

const (
	ParamNumber  ParamType = "number"
	ParamSelect  ParamType = "select"
	ParamBoolean ParamType = "boolean"
	ParamColor   ParamType = "color"
)

// ParamSpec declares one parameter of an indicator definition.
type ParamSpec struct {
	Type    ParamType   `json:"type"`
	Default interface{} `json:"default"`
	Min     *float64    `json:"min,omitempty"`
	Max     *float64    `json:"max,omitempty"`
	Step    *float64    `json:"step,omitempty"`
	Options []string    `json:"options,omitempty"`
}

// Style carries display settings for an instance. Colors maps output series
// names to colors for multi-series indicators; Color is the fallback.
type Style struct {
	Color  string            `json:"color,omitempty"`
	Colors map[string]string `json:"colors,omitempty"`
	Width  int               `json:"width,omitempty"`
}

// Empty reports whether no display settings were provided.
func (s Style) Empty() bool {
	return s.Color == "" && len(s.Colors) == 0 && s.Width == 0
}

// Definition is the immutable template an indicator instance is created
// from. Many instances may reference one definition.
type Definition struct {
	ID           string               `json:"id"`
	Name         string               `json:"name"`
	Description  string               `json:"description"`
	Kind         Kind                 `json:"kind"`
	DefaultPane  Pane                 `json:"defaultPane"`
	Params       map[string]ParamSpec `json:"parameterSchema"`
	DefaultStyle Style                `json:"defaultStyle"`
}

// Instance is a configured, user-added indicator with stable identity. The
// instance store is its sole writer; the render controller only reads.
type Instance struct {
	ID           string                 `json:"id"`
	SymbolScope  string                 `json:"symbolScope,omitempty"`
	DefinitionID string                 `json:"definitionId"`
	Params       map[string]interface{} `json:"parameterValues"`
	Pane         Pane                   `json:"pane"`
	Style        Style                  `json:"style"`
	Enabled      bool                   `json:"enabled"`
	CreatedAt    time.Time              `json:"created_at"`
	UpdatedAt    time.Time              `json:"updated_at"`
}

// SeriesColor resolves the display color for one output series of the
// instance, falling back to the instance base color.
func (i Instance) SeriesColor(name string) string {
	if color, ok := i.Style.Colors[name]; ok {
		return color
	}
	return i.Style.Color
}

// ParamInt reads a numeric parameter, tolerating the types JSON decoding and
// callers produce. Returns fallback when absent or unusable.
func ParamInt(params map[string]interface{}, name string, fallback int) int {
	value, ok := params[name]
	if !ok {
		return fallback
	}
	switch v := value.(type) {
	case int:
		return v
	case int64:
		return int(v)
	case float64:
		return int(v)
	case json.Number:
		if n, err := v.Int64(); err == nil {
			return int(n)
		}
	case string:
		if n, err := strconv.Atoi(v); err == nil {
			return n
		}
	}
	return fallback
}

// ParamFloat reads a float parameter with the same tolerance as ParamInt.
func ParamFloat(params map[string]interface{}, name string, fallback float64) float64 {
	value, ok := params[name]
	if !ok {
		return fallback
	}
	switch v := value.(type) {
	case float64:
		return v
	case int:
		return float64(v)
	case int64:
		return float64(v)
	case json.Number:
		if f, err := v.Float64(); err == nil {
			return f
		}
	case string:
		if f, err := strconv.ParseFloat(v, 64); err == nil {
			return f
		}
	}
	return fallback
}

// ParamString reads a string parameter.
func ParamString(params map[string]interface{}, name, fallback string) string {
	if value, ok := params[name].(string); ok && value != "" {
		return value
	}
	return fallback
}
