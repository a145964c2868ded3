// Package pointsource reads point clouds for the gridquery tool.
//
// Two sources are supported: CSV files with x,y,z[,label] rows and a SQLite
// store holding named clouds. The store keeps input points only; grids built
// from them are never written back.
package pointsource
