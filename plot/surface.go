package plot

import "github.com/quantview/quantview/model"

// PaneID identifies one rendering pane on the surface. The main price pane
// always exists; sub panes are created and removed on demand.
type PaneID string

// PaneMain is the price pane every surface starts with.
const PaneMain PaneID = "main"

// SeriesStyle selects how a series is drawn.
type SeriesStyle string

const (
	StyleLine      SeriesStyle = "line"
	StyleHistogram SeriesStyle = "histogram"
)

// SeriesSpec describes one drawable series: a single output of one indicator
// instance, already aligned to the chart timeline.
type SeriesSpec struct {
	ID    string               `json:"id"`
	Name  string               `json:"name"`
	Color string               `json:"color"`
	Width int                  `json:"width,omitempty"`
	Style SeriesStyle          `json:"style"`
	Pane  PaneID               `json:"pane"`
	Data  []model.AlignedPoint `json:"data"`
}

// SeriesHandle references a series previously added to a surface.
type SeriesHandle struct {
	ID   string
	Pane PaneID
}

// Surface is the drawing side of the chart: the reconciler pushes series
// adds and removes through it and never touches rendering state directly.
type Surface interface {
	AddSeries(spec SeriesSpec) (SeriesHandle, error)
	RemoveSeries(handle SeriesHandle) error
	// CreatePane allocates a sub pane below the main one. Creating an
	// existing pane is a no-op.
	CreatePane(id PaneID) error
	// RemovePane drops an empty sub pane. The main pane cannot be removed.
	RemovePane(id PaneID) error
}
