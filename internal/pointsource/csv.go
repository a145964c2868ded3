package pointsource

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/banshee-data/pointgrid/internal/pointgrid"
)

// Sample is one input point with its optional label.
type Sample struct {
	Point pointgrid.Point
	Label string
}

// Records converts samples into grid records carrying the label as payload.
func Records(samples []Sample) []pointgrid.Record[string] {
	out := make([]pointgrid.Record[string], len(samples))
	for i, s := range samples {
		out[i] = pointgrid.Record[string]{Point: s.Point, Payload: s.Label}
	}
	return out
}

// ReadCSV parses rows of x,y,z[,label]. Blank lines and lines starting with
// '#' are ignored. A first row whose x field is not numeric is treated as a
// header. Non-finite coordinates are returned as-is; the grid rejects them.
func ReadCSV(r io.Reader) ([]Sample, error) {
	cr := csv.NewReader(r)
	cr.Comment = '#'
	cr.FieldsPerRecord = -1
	cr.TrimLeadingSpace = true

	var samples []Sample
	first := true
	for {
		row, err := cr.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("failed to read csv: %w", err)
		}
		line, _ := cr.FieldPos(0)

		if first {
			first = false
			if len(row) > 0 {
				if _, err := strconv.ParseFloat(strings.TrimSpace(row[0]), 64); err != nil {
					continue
				}
			}
		}

		s, err := parseRow(row)
		if err != nil {
			return nil, fmt.Errorf("line %d: %w", line, err)
		}
		samples = append(samples, s)
	}
	return samples, nil
}

func parseRow(row []string) (Sample, error) {
	if len(row) < 3 || len(row) > 4 {
		return Sample{}, fmt.Errorf("expected 3 or 4 fields, got %d", len(row))
	}
	var xyz [3]float64
	for i, axis := range [...]string{"x", "y", "z"} {
		v, err := strconv.ParseFloat(strings.TrimSpace(row[i]), 64)
		if err != nil {
			return Sample{}, fmt.Errorf("invalid %s value %q: %w", axis, row[i], err)
		}
		xyz[i] = v
	}
	s := Sample{Point: pointgrid.Point{X: xyz[0], Y: xyz[1], Z: xyz[2]}}
	if len(row) == 4 {
		s.Label = strings.TrimSpace(row[3])
	}
	return s, nil
}
