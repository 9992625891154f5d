package matrix

import "fmt"

// Grid is a rows x cols matrix of float32 stored row-major.
type Grid struct {
	rows int
	cols int
	data []float32
}

// NewGrid wraps row-major data. len(data) must equal rows*cols.
func NewGrid(rows, cols int, data []float32) (*Grid, error) {
	if rows < 0 || cols < 0 {
		return nil, fmt.Errorf("matrix: negative dimensions %dx%d", rows, cols)
	}
	if len(data) != rows*cols {
		return nil, fmt.Errorf("matrix: %dx%d grid needs %d values, got %d", rows, cols, rows*cols, len(data))
	}
	return &Grid{rows: rows, cols: cols, data: data}, nil
}

// FromRows builds a grid from a rectangular slice of rows.
func FromRows(rows [][]float32) (*Grid, error) {
	if len(rows) == 0 {
		return &Grid{}, nil
	}
	cols := len(rows[0])
	data := make([]float32, 0, len(rows)*cols)
	for i, row := range rows {
		if len(row) != cols {
			return nil, fmt.Errorf("matrix: row %d has %d values, expected %d", i, len(row), cols)
		}
		data = append(data, row...)
	}
	return &Grid{rows: len(rows), cols: cols, data: data}, nil
}

// Dimensions returns the number of rows and columns.
func (g *Grid) Dimensions() (rows, cols int) {
	return g.rows, g.cols
}

// Len returns the number of values.
func (g *Grid) Len() int {
	return len(g.data)
}

// At returns the value at row r, column c.
func (g *Grid) At(r, c int) float32 {
	return g.data[r*g.cols+c]
}

// FlattenRowMajor returns a copy of the values in (row, col) order.
func (g *Grid) FlattenRowMajor() []float32 {
	out := make([]float32, len(g.data))
	copy(out, g.data)
	return out
}
