// Package main probes a radiance field over a planar grid slice: it
// reports density statistics, optionally renders a heatmap PNG and
// persists the run to a sqlite probe store.
package main

import (
	"encoding/json"
	"flag"
	"fmt"
	"log"

	"github.com/lumen-data/radiance.field/internal/field"
	"github.com/lumen-data/radiance.field/internal/field/monitor"
	fieldsqlite "github.com/lumen-data/radiance.field/internal/field/storage/sqlite"
	"github.com/lumen-data/radiance.field/internal/version"
)

func main() {
	var (
		backend     = flag.String("backend", string(field.BackendFused), "field backend: fused or reference")
		images      = flag.Int("images", 1, "number of images in the embedding tables")
		seed        = flag.Int64("seed", 1, "parameter initialization seed")
		res         = flag.Int("res", 128, "slice resolution (res×res probe points)")
		z           = flag.Float64("z", 0, "slice height")
		contract    = flag.Bool("contract", false, "use scene contraction instead of box bounds")
		output      = flag.String("out", "", "heatmap PNG path (empty: stats only)")
		dbPath      = flag.String("db", "", "sqlite probe store path (empty: do not persist)")
		showVersion = flag.Bool("version", false, "print version and exit")
	)
	flag.Parse()

	if *showVersion {
		fmt.Printf("field-probe %s (%s, built %s)\n", version.Version, version.GitSHA, version.BuildTime)
		return
	}

	cfg := field.DefaultConfig()
	cfg.Backend = field.Backend(*backend)
	cfg.NumImages = *images
	cfg.Seed = *seed
	if *contract {
		cfg.Distortion = field.SceneContraction{}
	}

	f, err := field.New(cfg)
	if err != nil {
		log.Fatalf("build field: %v", err)
	}

	stats, err := monitor.ProbeDensitySlice(f, monitor.SliceConfig{
		Bounds:     cfg.Bounds,
		Z:          *z,
		Resolution: *res,
		Output:     *output,
	})
	if err != nil {
		log.Fatalf("probe slice: %v", err)
	}
	log.Printf("probed %d points: density min=%.6g max=%.6g mean=%.6g",
		stats.Samples, stats.MinDensity, stats.MaxDensity, stats.MeanDensity)

	if *dbPath == "" {
		return
	}
	store, err := fieldsqlite.Open(*dbPath)
	if err != nil {
		log.Fatalf("open probe store: %v", err)
	}
	defer store.Close()

	configJSON, err := json.Marshal(cfg)
	if err != nil {
		log.Fatalf("marshal config: %v", err)
	}
	run := &fieldsqlite.ProbeRun{
		Backend:        string(cfg.Backend),
		WavelengthMode: cfg.WavelengthMode.String(),
		ConfigJSON:     configJSON,
		Samples:        stats.Samples,
		MinDensity:     stats.MinDensity,
		MaxDensity:     stats.MaxDensity,
		MeanDensity:    stats.MeanDensity,
	}
	if err := store.Insert(run); err != nil {
		log.Fatalf("persist probe run: %v", err)
	}
	log.Printf("persisted probe run %s", run.RunID)
}
