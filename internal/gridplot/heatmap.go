package gridplot

import (
	"fmt"
	"io"

	"gonum.org/v1/plot"
	"gonum.org/v1/plot/palette"
	"gonum.org/v1/plot/plotter"
	"gonum.org/v1/plot/vg"

	"github.com/banshee-data/pointgrid/internal/pointgrid"
)

// WriteHeatmap renders XY occupancy of idx as a PNG into w.
func WriteHeatmap[T any](w io.Writer, idx pointgrid.Index[T], title string) error {
	r, err := newRaster(ProjectXY(idx), idx.Params())
	if err != nil {
		return err
	}

	p := plot.New()
	p.Title.Text = title
	p.X.Label.Text = "X (m)"
	p.Y.Label.Text = "Y (m)"

	hm := plotter.NewHeatMap(r, palette.Heat(12, 1))
	// Anchor the scale at zero so a single occupied column still gets a colour.
	hm.Min, hm.Max = 0, r.maxZ
	p.Add(hm)

	wt, err := p.WriterTo(6*vg.Inch, 6*vg.Inch, "png")
	if err != nil {
		return fmt.Errorf("failed to create heatmap writer: %w", err)
	}
	if _, err := wt.WriteTo(w); err != nil {
		return fmt.Errorf("failed to write heatmap: %w", err)
	}
	return nil
}
