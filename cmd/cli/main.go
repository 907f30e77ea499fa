package main

import (
	"context"
	"encoding/csv"
	"fmt"
	"math"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"

	"biophony/adapters/align"
	"biophony/adapters/archive"
	"biophony/adapters/export"
	"biophony/adapters/ingest"
	"biophony/adapters/stats/heatmap"
	"biophony/adapters/stats/shift"
	"biophony/adapters/stats/similarity"
	"biophony/app"
	"biophony/domain/run"
	"biophony/domain/series"
	"biophony/internal"
	"biophony/internal/config"
	"biophony/internal/testkit"
)

func main() {
	// Best-effort: a missing .env just means the environment is already set.
	_ = godotenv.Load()

	rootCmd := &cobra.Command{
		Use:   "biophony",
		Short: "Temporal pattern similarity between biological detections and acoustic indices",
	}

	rootCmd.AddCommand(
		newRankCmd(),
		newHeatmapCmd(),
		newShiftsCmd(),
		newSynthCmd(),
	)

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func newRankCmd() *cobra.Command {
	var detectionsFile, indicesFile, outputDir string
	var synthetic bool
	var seed int64

	cmd := &cobra.Command{
		Use:   "rank",
		Short: "Score every (species, index) pair and write the ranked report",
		Long: `Build week-by-hour activity surfaces for every detection and index series,
score all pairs with the similarity engine and shift search, and write the
ranked pair table as CSV, JSON, and paginated views.

Example: biophony rank --detections detections.xlsx --indices indices.csv --out ./output`,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load()
			if err != nil {
				return err
			}
			if detectionsFile != "" {
				cfg.Data.DetectionsFile = detectionsFile
			}
			if indicesFile != "" {
				cfg.Data.IndicesFile = indicesFile
			}
			if outputDir != "" {
				cfg.Output.Dir = outputDir
			}
			return runRank(cmd.Context(), cfg, synthetic, seed)
		},
	}

	cmd.Flags().StringVar(&detectionsFile, "detections", "", "Detections file (xlsx or csv); overrides DETECTIONS_FILE")
	cmd.Flags().StringVar(&indicesFile, "indices", "", "Acoustic indices file (xlsx or csv); overrides INDICES_FILE")
	cmd.Flags().StringVar(&outputDir, "out", "", "Output directory; overrides OUTPUT_DIR")
	cmd.Flags().BoolVar(&synthetic, "synthetic", false, "Use the seeded synthetic soundscape instead of input files")
	cmd.Flags().Int64Var(&seed, "seed", 42, "Seed for the synthetic soundscape")

	return cmd
}

func runRank(ctx context.Context, cfg *config.Config, synthetic bool, seed int64) error {
	logger := internal.DefaultLogger

	targets, probes, err := loadSignals(cfg, synthetic, seed, logger)
	if err != nil {
		return err
	}

	ranker := app.NewRanker(rankerConfig(cfg), logger)
	report, err := ranker.RankAll(ctx, targets, probes)
	if err != nil {
		return err
	}

	if err := os.MkdirAll(cfg.Output.Dir, 0o755); err != nil {
		return err
	}
	if err := export.WritePairTableCSV(filepath.Join(cfg.Output.Dir, "pair_table.csv"), report); err != nil {
		return err
	}
	if err := export.WriteReportJSON(filepath.Join(cfg.Output.Dir, "report.json"), report); err != nil {
		return err
	}
	if err := export.WriteViews(filepath.Join(cfg.Output.Dir, "views"), report, cfg.Output.PageSize); err != nil {
		return err
	}

	if cfg.Archive.DatabaseURL != "" {
		if err := archiveReport(ctx, cfg.Archive.DatabaseURL, report); err != nil {
			return err
		}
		logger.Info("Run %s archived", report.RunID)
	}

	printSummary(report)
	return nil
}

func newHeatmapCmd() *cobra.Command {
	var file string
	var synthetic bool
	var seed int64

	cmd := &cobra.Command{
		Use:   "heatmap [signal-name]",
		Short: "Build and print one signal's week-by-hour activity surface",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load()
			if err != nil {
				return err
			}
			if file == "" {
				file = cfg.Data.DetectionsFile
			}

			name := args[0]
			var ts *series.TimeSeries
			if synthetic {
				gcfg := testkit.DefaultSoundscapeConfig()
				gcfg.Seed = seed
				gen := testkit.NewSoundscapeGenerator(gcfg)
				signals := gen.GenerateTargets()
				for n, s := range gen.GenerateProbes() {
					signals[n] = s
				}
				ts = signals[name]
			} else {
				if file == "" {
					return fmt.Errorf("a signal file is required (or pass --synthetic)")
				}
				signals, err := ingest.NewReader().ReadFile(file)
				if err != nil {
					return err
				}
				if cfg.Resample.Enabled {
					signals, _ = align.ResampleAll(signals, alignConfig(cfg))
				}
				ts = signals[name]
			}
			if ts == nil {
				return fmt.Errorf("signal %q not found in inputs", name)
			}

			h, err := heatmap.Build(ts, heatmapConfig(cfg))
			if err != nil {
				return err
			}

			fmt.Printf("%s: %d weeks x %d hour buckets\n\n", h.Name, h.Rows(), h.Cols())
			fmt.Printf("week |%s\n", strings.Repeat("-------", h.Cols()))
			for i, week := range h.Weeks {
				row := make([]string, h.Cols())
				for j := range row {
					row[j] = fmt.Sprintf("%6.2f", h.At(i, j))
				}
				fmt.Printf("%4d | %s\n", week, strings.Join(row, " "))
			}
			return nil
		},
	}

	cmd.Flags().StringVar(&file, "file", "", "Input file holding the signal; overrides DETECTIONS_FILE")
	cmd.Flags().BoolVar(&synthetic, "synthetic", false, "Use the seeded synthetic soundscape instead of input files")
	cmd.Flags().Int64Var(&seed, "seed", 42, "Seed for the synthetic soundscape")

	return cmd
}

func newShiftsCmd() *cobra.Command {
	var synthetic bool
	var seed int64

	cmd := &cobra.Command{
		Use:   "shifts [target-name] [probe-name]",
		Short: "Run the shift search for one (target, probe) pair",
		Long: `Find the week and hour-bucket offsets where the two signals' activity
surfaces correlate most strongly. A positive shift means the probe trails
the target.`,
		Args: cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load()
			if err != nil {
				return err
			}

			targets, probes, err := loadSignals(cfg, synthetic, seed, internal.DefaultLogger)
			if err != nil {
				return err
			}

			ts, ok := targets[args[0]]
			if !ok {
				return fmt.Errorf("target %q not found", args[0])
			}
			ps, ok := probes[args[1]]
			if !ok {
				return fmt.Errorf("probe %q not found", args[1])
			}

			hcfg := heatmapConfig(cfg)
			th, err := heatmap.Build(ts, hcfg)
			if err != nil {
				return err
			}
			ph, err := heatmap.Build(ps, hcfg)
			if err != nil {
				return err
			}

			sim := similarity.Compare(th, ph)
			result := shift.FindShifts(th, ph)

			fmt.Printf("%s vs %s\n", args[0], args[1])
			fmt.Printf("  aligned pearson_r:  %+.4f (p=%.4f)\n", sim.PearsonR, sim.PearsonP)
			fmt.Printf("  composite score:    %.4f\n", sim.CompositeScore)
			fmt.Printf("  best week shift:    %+d (r=%+.4f)\n", result.BestWeekShift, result.BestWeekCorrelation)
			fmt.Printf("  best hour shift:    %+d (r=%+.4f)\n", result.BestHourShift, result.BestHourCorrelation)
			return nil
		},
	}

	cmd.Flags().BoolVar(&synthetic, "synthetic", false, "Use the seeded synthetic soundscape instead of input files")
	cmd.Flags().Int64Var(&seed, "seed", 42, "Seed for the synthetic soundscape")

	return cmd
}

func newSynthCmd() *cobra.Command {
	var dir string
	var seed int64
	var weeks int

	cmd := &cobra.Command{
		Use:   "synth",
		Short: "Write synthetic detections and indices CSVs for experimentation",
		RunE: func(cmd *cobra.Command, args []string) error {
			gcfg := testkit.DefaultSoundscapeConfig()
			gcfg.Seed = seed
			if weeks > 0 {
				gcfg.Weeks = weeks
			}
			gen := testkit.NewSoundscapeGenerator(gcfg)

			if err := os.MkdirAll(dir, 0o755); err != nil {
				return err
			}
			if err := writeSeriesCSV(filepath.Join(dir, "detections.csv"), gen.GenerateTargets()); err != nil {
				return err
			}
			if err := writeSeriesCSV(filepath.Join(dir, "indices.csv"), gen.GenerateProbes()); err != nil {
				return err
			}
			fmt.Printf("Wrote detections.csv and indices.csv to %s (seed %d, %d weeks)\n", dir, seed, gcfg.Weeks)
			return nil
		},
	}

	cmd.Flags().StringVar(&dir, "out", "./synth", "Directory for the generated CSVs")
	cmd.Flags().Int64Var(&seed, "seed", 42, "Generator seed")
	cmd.Flags().IntVar(&weeks, "weeks", 0, "Number of weeks to generate (0 keeps the default)")

	return cmd
}

// loadSignals reads or generates the target and probe series, resampling
// them onto the configured grid when enabled.
func loadSignals(cfg *config.Config, synthetic bool, seed int64, logger *internal.Logger) (targets, probes map[string]*series.TimeSeries, err error) {
	if synthetic {
		gcfg := testkit.DefaultSoundscapeConfig()
		gcfg.Seed = seed
		gen := testkit.NewSoundscapeGenerator(gcfg)
		return gen.GenerateTargets(), gen.GenerateProbes(), nil
	}

	if cfg.Data.DetectionsFile == "" || cfg.Data.IndicesFile == "" {
		return nil, nil, fmt.Errorf("detections and indices files are required (or pass --synthetic)")
	}

	reader := ingest.NewReader()
	targets, err = reader.ReadFile(cfg.Data.DetectionsFile)
	if err != nil {
		return nil, nil, err
	}
	probes, err = reader.ReadFile(cfg.Data.IndicesFile)
	if err != nil {
		return nil, nil, err
	}

	if cfg.Resample.Enabled {
		acfg := alignConfig(cfg)
		var skipped []align.SkippedSeries

		targets, skipped = align.ResampleAll(targets, acfg)
		for _, s := range skipped {
			logger.Warn("Skipping target %s: %v", s.Name, s.Reason)
		}
		probes, skipped = align.ResampleAll(probes, acfg)
		for _, s := range skipped {
			logger.Warn("Skipping probe %s: %v", s.Name, s.Reason)
		}
	}
	return targets, probes, nil
}

func archiveReport(ctx context.Context, databaseURL string, report *run.Report) error {
	db, err := archive.Open(databaseURL)
	if err != nil {
		return err
	}
	defer db.Close()

	arch := archive.NewPostgresArchive(db)
	if err := arch.EnsureSchema(ctx); err != nil {
		return err
	}
	return arch.StoreReport(ctx, report)
}

// printSummary prints the top matches and any generalist probes.
func printSummary(report *run.Report) {
	fmt.Printf("\nRun %s: %d pairs ranked in %d ms (fingerprint %.12s)\n\n",
		report.RunID, report.PairCount(), report.RuntimeMs, report.Fingerprint)

	fmt.Println("Top matches:")
	for i, p := range report.TopMatches {
		fmt.Printf("  %2d. %-24s x %-24s composite=%.3f r=%+.3f shift(w=%+d h=%+d)\n",
			i+1, p.TargetName, p.ProbeName,
			p.Similarity.CompositeScore, p.Similarity.PearsonR,
			p.Shift.BestWeekShift, p.Shift.BestHourShift)
	}

	if len(report.MultiMatchProbes) > 0 {
		fmt.Println("\nMulti-match probes:")
		names := make([]string, 0, len(report.MultiMatchProbes))
		for name := range report.MultiMatchProbes {
			names = append(names, name)
		}
		sort.Strings(names)
		for _, name := range names {
			fmt.Printf("  %-24s -> %s\n", name, strings.Join(report.MultiMatchProbes[name], ", "))
		}
	}
}

// writeSeriesCSV writes a wide table: timestamp first, one column per
// signal, signals in name order. Missing values stay blank.
func writeSeriesCSV(path string, all map[string]*series.TimeSeries) error {
	names := make([]string, 0, len(all))
	for name := range all {
		names = append(names, name)
	}
	sort.Strings(names)

	timeSet := make(map[time.Time]bool)
	for _, ts := range all {
		for _, o := range ts.Observations {
			timeSet[o.Timestamp] = true
		}
	}
	times := make([]time.Time, 0, len(timeSet))
	for t := range timeSet {
		times = append(times, t)
	}
	sort.Slice(times, func(i, j int) bool { return times[i].Before(times[j]) })

	lookup := make(map[string]map[time.Time]float64, len(all))
	for name, ts := range all {
		m := make(map[time.Time]float64, ts.Len())
		for _, o := range ts.Observations {
			m[o.Timestamp] = o.Value
		}
		lookup[name] = m
	}

	file, err := os.Create(path)
	if err != nil {
		return err
	}
	defer file.Close()

	w := csv.NewWriter(file)
	if err := w.Write(append([]string{"timestamp"}, names...)); err != nil {
		return err
	}
	for _, t := range times {
		record := make([]string, 0, len(names)+1)
		record = append(record, t.UTC().Format("2006-01-02 15:04:05"))
		for _, name := range names {
			v, ok := lookup[name][t]
			if !ok || math.IsNaN(v) {
				record = append(record, "")
				continue
			}
			record = append(record, strconv.FormatFloat(v, 'g', 12, 64))
		}
		if err := w.Write(record); err != nil {
			return err
		}
	}
	w.Flush()
	return w.Error()
}

func rankerConfig(cfg *config.Config) app.RankerConfig {
	return app.RankerConfig{
		HourBuckets:         cfg.Engine.HourBuckets,
		Aggregation:         heatmap.Aggregation(cfg.Engine.Aggregation),
		MultiMatchThreshold: cfg.Engine.MultiMatchThreshold,
		TopN:                cfg.Engine.TopN,
		Workers:             int64(cfg.Engine.Workers),
	}
}

func heatmapConfig(cfg *config.Config) heatmap.Config {
	return heatmap.Config{
		HourBuckets: cfg.Engine.HourBuckets,
		Aggregation: heatmap.Aggregation(cfg.Engine.Aggregation),
	}
}

func alignConfig(cfg *config.Config) align.Config {
	return align.Config{
		Interval:    cfg.Resample.Interval,
		Aggregate:   align.Aggregate(cfg.Resample.Aggregation),
		Fill:        align.Fill(cfg.Resample.Fill),
		MinPoints:   cfg.Resample.MinPoints,
		MaxGapRatio: cfg.Resample.MaxGapRatio,
	}
}
