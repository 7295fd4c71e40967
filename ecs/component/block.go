package component

import "image/color"

// Block identifies a collidable unit: a mergeable subtree of the model
// instance ObjectID (0 for the main model, 1..N for attached objects).
type Block struct {
	ObjectID int
	Name     string
}

var BlockComponent = NewComponent[Block]()

// Material is the renderer-facing look of a block. The core only swaps
// whole materials; it never builds geometry.
type Material struct {
	Color     color.Color
	Opacity   float64
	Highlight bool
}

// BlockVisual is what the renderer reads for a block. Material starts as a
// copy of Backup; Backup keeps the original material for rollback.
type BlockVisual struct {
	// Current is true while the block is named in the latest report.
	Current bool
	Visible bool
	// Shown is the visibility outside focus mode.
	Shown bool
	// Highlighted marks Material as the pulsing collision material.
	Highlighted bool
	Material    Material
	Backup      Material
}

var BlockVisualComponent = NewComponent[BlockVisual]()
