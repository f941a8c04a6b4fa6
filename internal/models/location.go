package models

import "math"

// Location is a point in a named world. Y is the vertical axis.
type Location struct {
	World string  `json:"world"`
	X     float64 `json:"x"`
	Y     float64 `json:"y"`
	Z     float64 `json:"z"`
}

// BlockX and BlockZ floor the horizontal coordinates onto the block grid.
func (l Location) BlockX() int {
	return int(math.Floor(l.X))
}

func (l Location) BlockZ() int {
	return int(math.Floor(l.Z))
}
