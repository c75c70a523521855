package cli

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"sort"
	"time"

	"github.com/spf13/cobra"

	"github.com/ppiankov/gpuscout/internal/logging"
	"github.com/ppiankov/gpuscout/internal/model"
	"github.com/ppiankov/gpuscout/internal/pipeline"
	"github.com/ppiankov/gpuscout/internal/score"
	"github.com/ppiankov/gpuscout/internal/store"
)

var (
	outPath       string
	outFormat     string
	minConfidence float64
	seriesFilter  []string
	showStats     bool
	statsJSON     string
	persist       bool
	storeDriver   string
	storeDSN      string
	workers       int
	noCache       bool
	runTimeout    time.Duration
)

// standardizeCmd represents the standardize command
var standardizeCmd = &cobra.Command{
	Use:   "standardize <file>",
	Short: "Standardize raw GPU listings into structured records",
	Long: `Standardize reads raw marketplace listings and, for each one:
- Identifies the GPU manufacturer, series, model and VRAM
- Detects the board partner
- Normalizes the asking price and condition
- Records quality flags and a transparent confidence score

Input may be JSONL (.jsonl/.ndjson, or "-" for stdin), a JSON array (.json)
or CSV (.csv). Records are written as JSONL or CSV.

Example:
  gpuscout standardize listings.jsonl
  gpuscout standardize listings.csv --format csv -o records.csv
  gpuscout standardize listings.jsonl --min-confidence 0.6 --series "RTX 40" --stats
  gpuscout standardize listings.jsonl --store --dsn gpuscout.db`,
	Args: cobra.ExactArgs(1),
	RunE: runStandardize,
}

func init() {
	rootCmd.AddCommand(standardizeCmd)

	// Output flags
	standardizeCmd.Flags().StringVarP(&outPath, "output", "o", "-", "output path (- for stdout)")
	standardizeCmd.Flags().StringVar(&outFormat, "format", "jsonl", "output format (jsonl, csv)")
	standardizeCmd.Flags().BoolVar(&showStats, "stats", false, "print standardization statistics to stderr")
	standardizeCmd.Flags().StringVar(&statsJSON, "stats-json", "", "write standardization statistics as JSON to this path")

	// Filter flags
	standardizeCmd.Flags().Float64Var(&minConfidence, "min-confidence", 0, "drop records below this confidence score")
	standardizeCmd.Flags().StringSliceVar(&seriesFilter, "series", nil, "keep only these GPU series (repeatable)")

	// Store flags
	standardizeCmd.Flags().BoolVar(&persist, "store", false, "persist records to the database")
	standardizeCmd.Flags().StringVar(&storeDriver, "driver", "sqlite3", "database driver (sqlite3, postgres)")
	standardizeCmd.Flags().StringVar(&storeDSN, "dsn", "", "database DSN (default: gpuscout.db for sqlite3)")

	// Processing flags
	standardizeCmd.Flags().IntVar(&workers, "workers", 0, "number of concurrent workers (default: number of CPUs)")
	standardizeCmd.Flags().BoolVar(&noCache, "no-cache", false, "disable the record cache")
	standardizeCmd.Flags().DurationVar(&runTimeout, "timeout", 10*time.Minute, "total timeout for the run")
}

func runStandardize(cmd *cobra.Command, args []string) error {
	file := args[0]
	ctx, cancel := context.WithTimeout(cmd.Context(), runTimeout)
	defer cancel()

	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	applyStandardizeFlags(cmd, cfg)
	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("invalid configuration: %w", err)
	}

	log, err := newLogger(cfg)
	if err != nil {
		return err
	}
	defer func() { _ = log.Sync() }()

	var opts []pipeline.Option
	if persist {
		st, err := openStore(ctx, cfg.Store, log)
		if err != nil {
			return err
		}
		defer func() { _ = st.Close() }()
		opts = append(opts, pipeline.WithStore(st))
	}

	if cfg.Output.Verbose {
		banner("gpuscout Standardization")
		fmt.Fprintf(os.Stderr, "  Input file:   %s\n", file)
		fmt.Fprintf(os.Stderr, "  Workers:      %d\n", cfg.Concurrency.Workers)
		fmt.Fprintf(os.Stderr, "  Format:       %s\n", cfg.Output.Format)
		fmt.Fprintf(os.Stderr, "  Cache:        %v\n", cfg.Cache.Enabled)
		fmt.Fprintf(os.Stderr, "\n")
	}

	p, err := pipeline.NewPipeline(cfg, log, opts...)
	if err != nil {
		return err
	}

	res, err := p.StandardizeFile(ctx, file, pipeline.Filters{
		MinConfidence: cfg.Output.MinConfidence,
		Series:        cfg.Output.Series,
	})
	if err != nil {
		return fmt.Errorf("standardize failed: %w", err)
	}

	for _, r := range res.Rejected {
		fmt.Fprintf(os.Stderr, "✗ listing %d: %v\n", r.Index+1, r.Error)
	}

	if err := p.Emit(ctx, res.Records, outPath, os.Stdout); err != nil {
		return err
	}

	if statsJSON != "" {
		if err := writeStatsJSON(statsJSON, res.Stats); err != nil {
			return err
		}
	}
	if showStats || cfg.Output.Verbose {
		printStats(res)
	}
	return nil
}

// applyStandardizeFlags lets explicitly set flags override the config file
func applyStandardizeFlags(cmd *cobra.Command, cfg *model.Config) {
	flags := cmd.Flags()
	if flags.Changed("format") {
		cfg.Output.Format = outFormat
	}
	if flags.Changed("min-confidence") {
		cfg.Output.MinConfidence = minConfidence
	}
	if flags.Changed("series") {
		cfg.Output.Series = seriesFilter
	}
	if flags.Changed("driver") {
		cfg.Store.Driver = storeDriver
	}
	if flags.Changed("dsn") {
		cfg.Store.DSN = storeDSN
	}
	if flags.Changed("workers") && workers > 0 {
		cfg.Concurrency.Workers = workers
	}
	if noCache {
		cfg.Cache.Enabled = false
	}
}

func openStore(ctx context.Context, cfg model.StoreConfig, log logging.Logger) (*store.Store, error) {
	st, err := store.Open(cfg)
	if err != nil {
		return nil, err
	}
	if err := st.Migrate(ctx); err != nil {
		_ = st.Close()
		return nil, err
	}
	log.Debug("store ready", logging.String("driver", cfg.Driver))
	return st, nil
}

func writeStatsJSON(path string, s score.Summary) error {
	data, err := json.MarshalIndent(s, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal stats: %w", err)
	}
	if err := os.WriteFile(path, append(data, '\n'), 0644); err != nil {
		return fmt.Errorf("write stats: %w", err)
	}
	return nil
}

func printStats(res *pipeline.RunResult) {
	s := res.Stats

	banner("Standardization Complete")
	fmt.Fprintf(os.Stderr, "  Records:          %d\n", s.Total)
	fmt.Fprintf(os.Stderr, "  Rejected:         %d\n", len(res.Rejected))
	fmt.Fprintf(os.Stderr, "  Filtered out:     %d\n", res.Filtered)
	fmt.Fprintf(os.Stderr, "  Written:          %d\n", len(res.Records))
	fmt.Fprintf(os.Stderr, "  Elapsed:          %v\n", res.Elapsed.Round(time.Millisecond))
	fmt.Fprintf(os.Stderr, "\n")
	fmt.Fprintf(os.Stderr, "  Manufacturer:     %5.1f%%\n", s.ManufacturerRate)
	fmt.Fprintf(os.Stderr, "  Model:            %5.1f%%\n", s.ModelRate)
	fmt.Fprintf(os.Stderr, "  VRAM:             %5.1f%%\n", s.VRAMRate)
	fmt.Fprintf(os.Stderr, "  Board partner:    %5.1f%%\n", s.BoardPartnerRate)
	fmt.Fprintf(os.Stderr, "  Price:            %5.1f%%\n", s.PriceRate)
	fmt.Fprintf(os.Stderr, "  Condition:        %5.1f%%\n", s.ConditionRate)
	fmt.Fprintf(os.Stderr, "\n")
	fmt.Fprintf(os.Stderr, "  Avg confidence:   %.3f (high %d, medium %d, low %d)\n",
		s.AverageConfidence, s.Levels[score.LevelHigh], s.Levels[score.LevelMedium], s.Levels[score.LevelLow])
	if s.Price != nil {
		fmt.Fprintf(os.Stderr, "  Price range:      %.2f - %.2f (avg %.2f)\n", s.Price.Min, s.Price.Max, s.Price.Average)
	}

	if len(s.TopModels) > 0 {
		fmt.Fprintf(os.Stderr, "\n  Top models:\n")
		for _, m := range s.TopModels {
			fmt.Fprintf(os.Stderr, "    %-16s %d\n", m.Model, m.Count)
		}
	}

	if len(s.Flags) > 0 {
		fmt.Fprintf(os.Stderr, "\n  Quality flags:\n")
		names := make([]string, 0, len(s.Flags))
		for name := range s.Flags {
			names = append(names, name)
		}
		sort.Strings(names)
		for _, name := range names {
			fmt.Fprintf(os.Stderr, "    %-28s %d\n", name, s.Flags[name])
		}
	}
	fmt.Fprintf(os.Stderr, "\n")
}
