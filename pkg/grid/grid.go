// Package grid maps between linear cell indexes and row-major
// (column, row) coordinates.
package grid

// GetGridCoords returns the column and row of cell index in a grid that is
// cols cells wide.
func GetGridCoords(index, cols int) (x, y int) {
	return index % cols, index / cols
}

// Index is the inverse of GetGridCoords.
func Index(x, y, cols int) int {
	return y*cols + x
}
