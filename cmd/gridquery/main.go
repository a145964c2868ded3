// Command gridquery loads a point cloud into a voxel grid, reports bucket
// occupancy, and runs a broad-phase box query against it.
//
// Usage:
//
//	gridquery -input points.csv -voxel 0.5 -box 0,0,0,10,10,2 -exact -print
//	gridquery -input points.csv -import-db clouds.db
//	gridquery -input clouds.db -cloud <id> -keys 2,2,2,30,30,30
package main

import (
	"context"
	"errors"
	"flag"
	"log"
	"os"
	"os/signal"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	if err := run(ctx, os.Args[1:], os.Stdout); err != nil {
		if errors.Is(err, flag.ErrHelp) {
			os.Exit(2)
		}
		log.Fatalf("gridquery: %v", err)
	}
}
