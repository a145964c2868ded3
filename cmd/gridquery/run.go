package main

import (
	"context"
	"flag"
	"fmt"
	"io"
	"iter"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/google/uuid"

	"github.com/banshee-data/pointgrid/internal/config"
	"github.com/banshee-data/pointgrid/internal/gridplot"
	"github.com/banshee-data/pointgrid/internal/monitoring"
	"github.com/banshee-data/pointgrid/internal/pointgrid"
	"github.com/banshee-data/pointgrid/internal/pointsource"
	"github.com/banshee-data/pointgrid/internal/version"
)

var logf = monitoring.Tagged("gridquery")

type options struct {
	configPath  string
	input       string
	cloudID     string
	importDB    string
	voxel       float64
	offset      string
	shards      int
	box         string
	keys        string
	exact       bool
	heatmap     string
	scatter     string
	printPoints bool
	showVersion bool

	set map[string]bool
}

func parseFlags(args []string, stderr io.Writer) (*options, error) {
	o := &options{set: make(map[string]bool)}
	fs := flag.NewFlagSet("gridquery", flag.ContinueOnError)
	fs.SetOutput(stderr)
	fs.StringVar(&o.configPath, "config", "", "path to a grid config JSON file")
	fs.StringVar(&o.input, "input", "", "point cloud: .csv file or SQLite store (.db, .sqlite)")
	fs.StringVar(&o.cloudID, "cloud", "", "cloud ID to load when -input is a SQLite store")
	fs.StringVar(&o.importDB, "import-db", "", "import the CSV -input into this SQLite store")
	fs.Float64Var(&o.voxel, "voxel", config.DefaultVoxelSize, "voxel edge length (overrides config)")
	fs.StringVar(&o.offset, "offset", "", "grid origin as x,y,z (overrides config)")
	fs.IntVar(&o.shards, "shards", config.DefaultShards, "shard count; 0 uses a single-lock grid (overrides config)")
	fs.StringVar(&o.box, "box", "", "world-space query box as x0,y0,z0,x1,y1,z1")
	fs.StringVar(&o.keys, "keys", "", "key-space query box as i0,j0,k0,i1,j1,k1")
	fs.BoolVar(&o.exact, "exact", false, "drop broad-phase results outside -box")
	fs.StringVar(&o.heatmap, "heatmap", "", "write an XY occupancy heatmap PNG to this path")
	fs.StringVar(&o.scatter, "scatter", "", "write an XY occupancy HTML chart to this path")
	fs.BoolVar(&o.printPoints, "print", false, "print every matching point")
	fs.BoolVar(&o.showVersion, "version", false, "print version and exit")
	if err := fs.Parse(args); err != nil {
		return nil, err
	}
	fs.Visit(func(f *flag.Flag) { o.set[f.Name] = true })

	if o.box != "" && o.keys != "" {
		return nil, fmt.Errorf("-box and -keys are mutually exclusive")
	}
	return o, nil
}

// resolveConfig layers explicit flags over the config file over defaults.
func resolveConfig(o *options) (*config.GridConfig, error) {
	cfg := config.DefaultGridConfig()
	if o.configPath != "" {
		loaded, err := config.LoadGridConfig(o.configPath)
		if err != nil {
			return nil, err
		}
		cfg = loaded
	}

	if o.set["voxel"] {
		cfg.VoxelSize = &o.voxel
	}
	if o.set["offset"] {
		v, err := parseFloats(o.offset, 3)
		if err != nil {
			return nil, fmt.Errorf("-offset: %w", err)
		}
		cfg.Offset = &[3]float64{v[0], v[1], v[2]}
	}
	if o.set["shards"] {
		cfg.Shards = &o.shards
	}
	if o.set["box"] {
		v, err := parseFloats(o.box, 6)
		if err != nil {
			return nil, fmt.Errorf("-box: %w", err)
		}
		cfg.QueryMin = &[3]float64{v[0], v[1], v[2]}
		cfg.QueryMax = &[3]float64{v[3], v[4], v[5]}
	}
	if o.set["exact"] {
		cfg.ExactFilter = &o.exact
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	return cfg, nil
}

func run(ctx context.Context, args []string, stdout io.Writer) error {
	o, err := parseFlags(args, os.Stderr)
	if err != nil {
		return err
	}
	if o.showVersion {
		fmt.Fprintln(stdout, version.String())
		return nil
	}
	if o.input == "" {
		return fmt.Errorf("-input is required")
	}

	cfg, err := resolveConfig(o)
	if err != nil {
		return err
	}

	runID := uuid.NewString()
	logf("Run %s: input=%s voxel=%g shards=%d", runID, o.input, cfg.GetVoxelSize(), cfg.GetShards())

	samples, err := loadSamples(ctx, o)
	if err != nil {
		return err
	}

	if o.importDB != "" {
		id, err := importSamples(ctx, o.importDB, filepath.Base(o.input), samples)
		if err != nil {
			return err
		}
		fmt.Fprintf(stdout, "cloud=%s\n", id)
	}

	idx, err := newIndex(cfg)
	if err != nil {
		return err
	}

	records, skipped := validRecords(samples)
	if skipped > 0 {
		logf("Skipped %d non-finite points", skipped)
	}
	if _, err := idx.InsertBatch(records); err != nil {
		return fmt.Errorf("failed to build grid: %w", err)
	}

	stats, err := pointgrid.ComputeStats(idx, cfg.GetPercentileAccuracy())
	if err != nil {
		return err
	}
	writeStats(stdout, cfg, stats, skipped)

	if err := runQuery(stdout, o, cfg, idx); err != nil {
		return err
	}
	return writePlots(o, idx)
}

func loadSamples(ctx context.Context, o *options) ([]pointsource.Sample, error) {
	switch ext := strings.ToLower(filepath.Ext(o.input)); ext {
	case ".csv":
		f, err := os.Open(o.input)
		if err != nil {
			return nil, fmt.Errorf("failed to open input: %w", err)
		}
		defer f.Close()
		return pointsource.ReadCSV(f)

	case ".db", ".sqlite", ".sqlite3":
		if o.importDB != "" {
			return nil, fmt.Errorf("-import-db requires a CSV -input")
		}
		store, err := pointsource.OpenStore(o.input)
		if err != nil {
			return nil, err
		}
		defer store.Close()

		if o.cloudID == "" {
			clouds, err := store.ListClouds(ctx)
			if err != nil {
				return nil, err
			}
			for _, c := range clouds {
				logf("Available cloud %s %q (%d points)", c.CloudID, c.Name, c.PointCount)
			}
			return nil, fmt.Errorf("-cloud is required with a SQLite input (%d clouds available)", len(clouds))
		}
		return store.LoadPoints(ctx, o.cloudID)

	default:
		return nil, fmt.Errorf("unsupported input extension %q", ext)
	}
}

func importSamples(ctx context.Context, path, name string, samples []pointsource.Sample) (string, error) {
	store, err := pointsource.OpenStore(path)
	if err != nil {
		return "", err
	}
	defer store.Close()

	var finite []pointsource.Sample
	for _, s := range samples {
		if s.Point.Validate() == nil {
			finite = append(finite, s)
		}
	}
	return store.ImportPoints(ctx, name, finite)
}

func newIndex(cfg *config.GridConfig) (pointgrid.Index[string], error) {
	if n := cfg.GetShards(); n > 0 {
		return pointgrid.NewSharded[string](cfg.GetVoxelSize(), cfg.GetOffset(), n)
	}
	return pointgrid.New[string](cfg.GetVoxelSize(), cfg.GetOffset())
}

func validRecords(samples []pointsource.Sample) ([]pointgrid.Record[string], int) {
	records := pointsource.Records(samples)
	valid := records[:0]
	for _, r := range records {
		if r.Point.Validate() == nil {
			valid = append(valid, r)
		}
	}
	return valid, len(records) - len(valid)
}

func writeStats(w io.Writer, cfg *config.GridConfig, s pointgrid.Stats, skipped int) {
	fmt.Fprintf(w, "points=%d buckets=%d skipped=%d voxel=%g shards=%d\n",
		s.Points, s.Buckets, skipped, cfg.GetVoxelSize(), cfg.GetShards())
	if s.Buckets == 0 {
		return
	}
	fmt.Fprintf(w, "occupancy min=%d max=%d mean=%.3f stddev=%.3f p50=%.1f p95=%.1f p99=%.1f\n",
		s.MinOccupancy, s.MaxOccupancy, s.MeanOccupancy, s.StdDevOccupancy,
		s.P50Occupancy, s.P95Occupancy, s.P99Occupancy)
	fmt.Fprintf(w, "extent min=%v max=%v\n", s.MinKey, s.MaxKey)
}

func runQuery(w io.Writer, o *options, cfg *config.GridConfig, idx pointgrid.Index[string]) error {
	var (
		seq        iter.Seq[pointgrid.Record[string]]
		kmin, kmax pointgrid.Key
		err        error
	)
	lo, hi, haveBox := cfg.GetQueryBox()
	switch {
	case o.keys != "":
		kmin, kmax, err = parseKeys(o.keys)
		if err != nil {
			return fmt.Errorf("-keys: %w", err)
		}
		seq, err = idx.QueryBox(kmin, kmax)
	case haveBox:
		kmin, kmax, err = idx.Params().KeyRange(lo, hi)
		if err != nil {
			return fmt.Errorf("query box: %w", err)
		}
		seq, err = idx.QueryBox(kmin, kmax)
	default:
		return nil
	}
	if err != nil {
		return fmt.Errorf("query: %w", err)
	}

	// The grid answers at cell granularity; the exact test is ours to apply.
	exact := haveBox && o.keys == "" && cfg.GetExactFilter()
	var candidates int
	var matches []pointgrid.Record[string]
	for rec := range seq {
		candidates++
		if exact && !pointgrid.Within(rec.Point, lo, hi) {
			continue
		}
		matches = append(matches, rec)
	}

	fmt.Fprintf(w, "query keys=%v..%v candidates=%d matches=%d\n", kmin, kmax, candidates, len(matches))
	if o.printPoints {
		for _, rec := range matches {
			line := fmt.Sprintf("%g %g %g", rec.Point.X, rec.Point.Y, rec.Point.Z)
			if rec.Payload != "" {
				line += " " + rec.Payload
			}
			fmt.Fprintln(w, line)
		}
	}
	return nil
}

func writePlots(o *options, idx pointgrid.Index[string]) error {
	title := "Grid occupancy: " + filepath.Base(o.input)
	if o.heatmap != "" {
		if err := writeFile(o.heatmap, func(w io.Writer) error {
			return gridplot.WriteHeatmap(w, idx, title)
		}); err != nil {
			return fmt.Errorf("heatmap: %w", err)
		}
		logf("Wrote heatmap %s", o.heatmap)
	}
	if o.scatter != "" {
		if err := writeFile(o.scatter, func(w io.Writer) error {
			return gridplot.WriteScatter(w, idx, title)
		}); err != nil {
			return fmt.Errorf("scatter: %w", err)
		}
		logf("Wrote scatter %s", o.scatter)
	}
	return nil
}

func writeFile(path string, render func(io.Writer) error) error {
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return fmt.Errorf("failed to create output dir: %w", err)
		}
	}
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("failed to create %s: %w", path, err)
	}
	if err := render(f); err != nil {
		f.Close()
		return err
	}
	return f.Close()
}

func parseFloats(s string, n int) ([]float64, error) {
	parts := strings.Split(s, ",")
	if len(parts) != n {
		return nil, fmt.Errorf("expected %d comma-separated values, got %d", n, len(parts))
	}
	out := make([]float64, n)
	for i, p := range parts {
		v, err := strconv.ParseFloat(strings.TrimSpace(p), 64)
		if err != nil {
			return nil, fmt.Errorf("invalid value %q: %w", p, err)
		}
		out[i] = v
	}
	return out, nil
}

func parseKeys(s string) (pointgrid.Key, pointgrid.Key, error) {
	parts := strings.Split(s, ",")
	if len(parts) != 6 {
		return pointgrid.Key{}, pointgrid.Key{}, fmt.Errorf("expected 6 comma-separated integers, got %d", len(parts))
	}
	var v [6]int64
	for i, p := range parts {
		n, err := strconv.ParseInt(strings.TrimSpace(p), 10, 64)
		if err != nil {
			return pointgrid.Key{}, pointgrid.Key{}, fmt.Errorf("invalid key %q: %w", p, err)
		}
		v[i] = n
	}
	return pointgrid.Key{I: v[0], J: v[1], K: v[2]}, pointgrid.Key{I: v[3], J: v[4], K: v[5]}, nil
}
