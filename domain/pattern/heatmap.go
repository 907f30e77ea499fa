package pattern

import "math"

// Heatmap is the dense week-of-year x hour-bucket activity surface of one
// signal. Weeks holds the distinct ISO weeks observed in the source series,
// ascending; Hours holds the caller-ordered hour buckets. Values is
// row-major with len(Weeks) rows and len(Hours) columns; cells with no
// observations are 0. Rows and columns are never reordered after
// construction.
type Heatmap struct {
	Name   string      `json:"name"`
	Weeks  []int       `json:"weeks"`
	Hours  []int       `json:"hours"`
	Values [][]float64 `json:"values"`
}

// Rows returns the number of week rows.
func (h *Heatmap) Rows() int {
	return len(h.Values)
}

// Cols returns the number of hour-bucket columns.
func (h *Heatmap) Cols() int {
	if len(h.Values) == 0 {
		return 0
	}
	return len(h.Values[0])
}

// IsEmpty reports whether the surface has no cells.
func (h *Heatmap) IsEmpty() bool {
	return h.Rows() == 0 || h.Cols() == 0
}

// At returns the cell value at row i, column j.
func (h *Heatmap) At(i, j int) float64 {
	return h.Values[i][j]
}

// Crop returns the top-left rows x cols region. The returned view shares
// backing storage with the receiver; neither is mutated by engine code.
func (h *Heatmap) Crop(rows, cols int) *Heatmap {
	return h.Region(0, 0, rows, cols)
}

// Region returns the rows x cols window starting at (rowStart, colStart),
// clamped to the available shape. Week and hour labels travel with the
// window.
func (h *Heatmap) Region(rowStart, colStart, rows, cols int) *Heatmap {
	if rowStart < 0 {
		rowStart = 0
	}
	if colStart < 0 {
		colStart = 0
	}
	if rowStart+rows > h.Rows() {
		rows = h.Rows() - rowStart
	}
	if colStart+cols > h.Cols() {
		cols = h.Cols() - colStart
	}
	if rows < 0 {
		rows = 0
	}
	if cols < 0 {
		cols = 0
	}

	values := make([][]float64, rows)
	for i := 0; i < rows; i++ {
		values[i] = h.Values[rowStart+i][colStart : colStart+cols]
	}

	var weeks []int
	if rowStart+rows <= len(h.Weeks) {
		weeks = h.Weeks[rowStart : rowStart+rows]
	}
	var hours []int
	if colStart+cols <= len(h.Hours) {
		hours = h.Hours[colStart : colStart+cols]
	}

	return &Heatmap{Name: h.Name, Weeks: weeks, Hours: hours, Values: values}
}

// Flatten returns the cells in row-major order.
func (h *Heatmap) Flatten() []float64 {
	flat := make([]float64, 0, h.Rows()*h.Cols())
	for _, row := range h.Values {
		flat = append(flat, row...)
	}
	return flat
}

// CommonShape is the overlapping (rows, cols) of two heatmaps; comparing
// surfaces of unequal shape always crops to this region rather than padding
// or interpolating.
func CommonShape(h1, h2 *Heatmap) (rows, cols int) {
	rows = h1.Rows()
	if h2.Rows() < rows {
		rows = h2.Rows()
	}
	cols = h1.Cols()
	if h2.Cols() < cols {
		cols = h2.Cols()
	}
	return rows, cols
}

// CleanPairs drops every index where either vector is NaN, returning the
// paired survivors. Inputs of unequal length are truncated to the shorter.
func CleanPairs(a, b []float64) ([]float64, []float64) {
	n := len(a)
	if len(b) < n {
		n = len(b)
	}
	x := make([]float64, 0, n)
	y := make([]float64, 0, n)
	for i := 0; i < n; i++ {
		if math.IsNaN(a[i]) || math.IsNaN(b[i]) {
			continue
		}
		x = append(x, a[i])
		y = append(y, b[i])
	}
	return x, y
}
