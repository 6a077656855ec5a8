package quantview

import (
	"github.com/quantview/quantview/model"
)

// Aliases for the model types callers touch most, so embedding applications
// can depend on the root package alone.
type (
	Bar        = model.Bar
	Definition = model.Definition
	Instance   = model.Instance
	Series     = model.Series[float64]
	Style      = model.Style
)

var (
	PaneMain = model.PaneMain
	PaneSub  = model.PaneSub

	KindOverlay    = model.KindOverlay
	KindOscillator = model.KindOscillator
)
