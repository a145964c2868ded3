// Package pointgrid owns the uniform spatial hash grid used to bucket 3D
// points into fixed-size voxels.
//
// Responsibilities: voxel key computation, insertion-ordered bucket storage,
// and broad-phase range queries over key cuboids.
// Key types: Point, Key, Params, Grid, ShardedGrid.
//
// Range queries are cell-granular. A query returns every point whose voxel
// key lies inside the key cuboid, including points that sit just outside a
// caller's real-valued box but inside a covering cell. Callers that need an
// exact answer filter the results themselves (see Within).
//
// No file, network or SQL code is allowed in this package.
package pointgrid
