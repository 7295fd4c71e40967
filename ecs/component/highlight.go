package component

import "image/color"

// HighlightPulse drives the shared collision material. Opacity moves by
// Step every tick and turns around once it leaves [Min, Max].
type HighlightPulse struct {
	Color   color.Color
	Opacity float64
	Min     float64
	Max     float64
	Step    float64
	Rising  bool
}

var HighlightPulseComponent = NewComponent[HighlightPulse]()

// Focus hides every block that is not currently colliding while Enabled.
type Focus struct {
	Enabled bool
}

var FocusComponent = NewComponent[Focus]()
