// Package gridplot renders bucket occupancy of a point grid projected onto
// the XY plane: a PNG heatmap (gonum/plot) and an interactive HTML scatter
// (go-echarts).
package gridplot

import (
	"errors"
	"fmt"
	"slices"

	"github.com/banshee-data/pointgrid/internal/pointgrid"
)

// ErrEmptyGrid is returned when there is nothing to plot.
var ErrEmptyGrid = errors.New("grid has no points")

// MaxHeatmapCells bounds the dense raster built for the heatmap.
const MaxHeatmapCells = 4_000_000

// Column is the occupancy of one (I, J) column summed over K.
type Column struct {
	I, J  int64
	X, Y  float64 // world position of the column centre
	Count int
}

// ProjectXY sums bucket sizes over the K axis. Columns are ordered by I then J.
func ProjectXY[T any](idx pointgrid.Index[T]) []Column {
	params := idx.Params()
	size, off := params.VoxelSize(), params.Offset()

	counts := make(map[[2]int64]int)
	for _, key := range idx.Keys() {
		counts[[2]int64{key.I, key.J}] += len(idx.BucketOf(key))
	}

	cols := make([]Column, 0, len(counts))
	for ij, n := range counts {
		cols = append(cols, Column{
			I:     ij[0],
			J:     ij[1],
			X:     off.X + (float64(ij[0])+0.5)*size,
			Y:     off.Y + (float64(ij[1])+0.5)*size,
			Count: n,
		})
	}
	slices.SortFunc(cols, func(a, b Column) int {
		if a.I != b.I {
			return cmpInt64(a.I, b.I)
		}
		return cmpInt64(a.J, b.J)
	})
	return cols
}

func cmpInt64(a, b int64) int {
	switch {
	case a < b:
		return -1
	case a > b:
		return 1
	}
	return 0
}

// raster is a dense occupancy matrix covering the extent of the columns.
// It satisfies plotter.GridXYZ.
type raster struct {
	minI, minJ int64
	cols, rows int
	z          []float64
	maxZ       float64
	size       float64
	off        pointgrid.Point
}

func newRaster(columns []Column, params pointgrid.Params) (*raster, error) {
	if len(columns) == 0 {
		return nil, ErrEmptyGrid
	}
	minI, maxI := columns[0].I, columns[0].I
	minJ, maxJ := columns[0].J, columns[0].J
	for _, c := range columns[1:] {
		minI, maxI = min(minI, c.I), max(maxI, c.I)
		minJ, maxJ = min(minJ, c.J), max(maxJ, c.J)
	}

	w, h := uint64(maxI)-uint64(minI)+1, uint64(maxJ)-uint64(minJ)+1
	if w == 0 || h == 0 || w > MaxHeatmapCells || h > MaxHeatmapCells || w*h > MaxHeatmapCells {
		return nil, fmt.Errorf("heatmap extent %dx%d exceeds %d cells", w, h, MaxHeatmapCells)
	}

	r := &raster{
		minI: minI,
		minJ: minJ,
		cols: int(w),
		rows: int(h),
		z:    make([]float64, w*h),
		size: params.VoxelSize(),
		off:  params.Offset(),
	}
	for _, c := range columns {
		r.z[int(c.J-minJ)*r.cols+int(c.I-minI)] = float64(c.Count)
		r.maxZ = max(r.maxZ, float64(c.Count))
	}
	return r, nil
}

func (r *raster) Dims() (c, rows int) { return r.cols, r.rows }

func (r *raster) Z(c, row int) float64 { return r.z[row*r.cols+c] }

func (r *raster) X(c int) float64 {
	return r.off.X + (float64(r.minI+int64(c))+0.5)*r.size
}

func (r *raster) Y(row int) float64 {
	return r.off.Y + (float64(r.minJ+int64(row))+0.5)*r.size
}
