package pointsource

import (
	"context"
	"math"
	"path/filepath"
	"testing"

	"github.com/banshee-data/pointgrid/internal/monitoring"
	"github.com/banshee-data/pointgrid/internal/pointgrid"
	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func openTestStore(t *testing.T) *Store {
	t.Helper()
	original := monitoring.Logf
	monitoring.SetLogger(nil)
	t.Cleanup(func() { monitoring.Logf = original })

	s, err := OpenStore(filepath.Join(t.TempDir(), "points.db"))
	require.NoError(t, err)
	t.Cleanup(func() { s.Close() })
	return s
}

func TestStore_MigrateIdempotent(t *testing.T) {
	s := openTestStore(t)

	version, dirty, err := s.MigrateVersion()
	require.NoError(t, err)
	assert.Equal(t, uint(1), version)
	assert.False(t, dirty)

	require.NoError(t, s.MigrateUp())
}

func TestStore_ImportAndLoad(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()

	samples := []Sample{
		{Point: pointgrid.Point{X: 61, Y: 330, Z: 450}, Label: "a"},
		{Point: pointgrid.Point{X: 98, Y: 220, Z: 200}},
		{Point: pointgrid.Point{X: -0.5, Y: 1e-9, Z: 1e9}, Label: "c"},
	}
	id, err := s.ImportPoints(ctx, "survey", samples)
	require.NoError(t, err)
	require.NotEmpty(t, id)

	got, err := s.LoadPoints(ctx, id)
	require.NoError(t, err)
	if diff := cmp.Diff(samples, got); diff != "" {
		t.Errorf("round trip mismatch (-want +got):\n%s", diff)
	}

	clouds, err := s.ListClouds(ctx)
	require.NoError(t, err)
	require.Len(t, clouds, 1)
	assert.Equal(t, id, clouds[0].CloudID)
	assert.Equal(t, "survey", clouds[0].Name)
	assert.Equal(t, 3, clouds[0].PointCount)
}

func TestStore_ImportRejectsNonFinite(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()

	_, err := s.ImportPoints(ctx, "bad", []Sample{
		{Point: pointgrid.Point{X: 1}},
		{Point: pointgrid.Point{Z: math.Inf(1)}},
	})
	assert.ErrorIs(t, err, pointgrid.ErrInvalidPoint)

	clouds, err := s.ListClouds(ctx)
	require.NoError(t, err)
	assert.Empty(t, clouds)
}

func TestStore_LoadMissingCloud(t *testing.T) {
	s := openTestStore(t)

	_, err := s.LoadPoints(context.Background(), "does-not-exist")
	assert.ErrorIs(t, err, ErrCloudNotFound)
}

func TestStore_EmptyCloud(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()

	id, err := s.ImportPoints(ctx, "empty", nil)
	require.NoError(t, err)

	got, err := s.LoadPoints(ctx, id)
	require.NoError(t, err)
	assert.Empty(t, got)
}
