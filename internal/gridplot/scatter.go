package gridplot

import (
	"fmt"
	"io"

	"github.com/go-echarts/go-echarts/v2/charts"
	"github.com/go-echarts/go-echarts/v2/opts"

	"github.com/banshee-data/pointgrid/internal/pointgrid"
)

// WriteScatter renders XY occupancy of idx as a standalone HTML page into w.
// Each occupied column is one point coloured by its count.
func WriteScatter[T any](w io.Writer, idx pointgrid.Index[T], title string) error {
	columns := ProjectXY(idx)
	if len(columns) == 0 {
		return ErrEmptyGrid
	}

	data := make([]opts.ScatterData, 0, len(columns))
	maxCount := 1
	for _, c := range columns {
		maxCount = max(maxCount, c.Count)
		data = append(data, opts.ScatterData{Value: []interface{}{c.X, c.Y, c.Count}})
	}

	scatter := charts.NewScatter()
	scatter.SetGlobalOptions(
		charts.WithInitializationOpts(opts.Initialization{PageTitle: title, Theme: "dark", Width: "900px", Height: "900px"}),
		charts.WithTitleOpts(opts.Title{
			Title:    title,
			Subtitle: fmt.Sprintf("voxel=%g columns=%d points=%d", idx.Params().VoxelSize(), len(columns), idx.PointCount()),
		}),
		charts.WithTooltipOpts(opts.Tooltip{Show: opts.Bool(true)}),
		charts.WithXAxisOpts(opts.XAxis{Name: "X (m)", NameLocation: "middle", NameGap: 25}),
		charts.WithYAxisOpts(opts.YAxis{Name: "Y (m)", NameLocation: "middle", NameGap: 30}),
		charts.WithVisualMapOpts(opts.VisualMap{
			Show:       opts.Bool(true),
			Calculable: opts.Bool(true),
			Min:        0,
			Max:        float32(maxCount),
			Dimension:  "2",
			InRange:    &opts.VisualMapInRange{Color: []string{"#440154", "#3e4989", "#26828e", "#35b779", "#fde725"}},
		}),
	)
	scatter.AddSeries("occupancy", data, charts.WithScatterChartOpts(opts.ScatterChart{SymbolSize: 6}))

	if err := scatter.Render(w); err != nil {
		return fmt.Errorf("failed to render chart: %w", err)
	}
	return nil
}
