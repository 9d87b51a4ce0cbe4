package flow

import (
	"math"

	errs "github.com/matzehuels/flowmaker/pkg/errors"
)

// SnapToGrid moves every node to the centre of the grid cell that
// contains it. Nodes are handled independently; connectivity plays no
// part.
func (f *Flow) SnapToGrid(cellWidth, cellHeight float64) error {
	if err := errs.ValidateGrid(cellWidth, cellHeight); err != nil {
		return err
	}
	for _, id := range f.nodeOrder {
		n := f.nodes[id]
		f.setPosition(id, snap(n.x, cellWidth), snap(n.y, cellHeight))
	}
	return nil
}

// CellCenter returns the pixel centre of grid cell (col, row).
func CellCenter(col, row, cellWidth, cellHeight float64) (x, y float64) {
	return col*cellWidth + cellWidth/2, row*cellHeight + cellHeight/2
}

func snap(v, cell float64) float64 {
	return math.Floor(v/cell)*cell + cell/2
}
