package cli

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/ppiankov/gpuscout/internal/model"
	"github.com/ppiankov/gpuscout/internal/pipeline"
	"github.com/ppiankov/gpuscout/internal/worker"
)

var (
	marketplace    string
	urlsFile       string
	listingsOut    string
	userAgent      string
	httpProxy      string
	httpsProxy     string
	ignoreRobots   bool
	requestsPerSec float64
	fetchTimeout   time.Duration
	standardizeNow bool
)

// fetchCmd represents the fetch command
var fetchCmd = &cobra.Command{
	Use:   "fetch [url...]",
	Short: "Fetch listings from marketplace result pages",
	Long: `Fetch downloads marketplace search result pages and extracts raw listings:
- Honors robots.txt (including Crawl-delay) unless --ignore-robots is set
- Paces requests per domain
- Retries transient failures (429, 5xx, network errors)

Listings are written as JSONL, ready for 'gpuscout standardize'. With
--standardize they are standardized in the same run instead.

Example:
  gpuscout fetch --marketplace ebay "https://www.ebay.co.uk/sch/i.html?_nkw=rtx+4070"
  gpuscout fetch --marketplace gumtree --urls-file pages.txt -o listings.jsonl
  gpuscout fetch --marketplace ebay --urls-file pages.txt --standardize -o records.jsonl`,
	RunE: runFetch,
}

func init() {
	rootCmd.AddCommand(fetchCmd)

	fetchCmd.Flags().StringVarP(&marketplace, "marketplace", "m", "ebay", "marketplace layout to parse (see config marketplaces)")
	fetchCmd.Flags().StringVar(&urlsFile, "urls-file", "", "file with one result page URL per line")
	fetchCmd.Flags().StringVarP(&listingsOut, "output", "o", "-", "output path (- for stdout)")
	fetchCmd.Flags().BoolVar(&standardizeNow, "standardize", false, "standardize fetched listings and write records instead")

	// HTTP flags
	fetchCmd.Flags().StringVar(&userAgent, "ua", "", "HTTP User-Agent")
	fetchCmd.Flags().StringVar(&httpProxy, "http-proxy", "", "HTTP proxy URL (overrides HTTP_PROXY env var)")
	fetchCmd.Flags().StringVar(&httpsProxy, "https-proxy", "", "HTTPS proxy URL (overrides HTTPS_PROXY env var)")
	fetchCmd.Flags().BoolVar(&ignoreRobots, "ignore-robots", false, "do not consult robots.txt")
	fetchCmd.Flags().Float64Var(&requestsPerSec, "rps", 0, "requests per second per domain")
	fetchCmd.Flags().IntVar(&workers, "workers", 0, "number of concurrent fetches (default: number of CPUs)")
	fetchCmd.Flags().DurationVar(&fetchTimeout, "timeout", 10*time.Minute, "total timeout for the run")
}

func runFetch(cmd *cobra.Command, args []string) error {
	ctx, cancel := context.WithTimeout(cmd.Context(), fetchTimeout)
	defer cancel()

	urls := args
	if urlsFile != "" {
		fromFile, err := worker.ReadURLsFromFile(urlsFile)
		if err != nil {
			return fmt.Errorf("read urls: %w", err)
		}
		urls = append(urls, fromFile...)
	}
	if len(urls) == 0 {
		return fmt.Errorf("no URLs given (pass them as arguments or with --urls-file)")
	}

	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	applyFetchFlags(cmd, cfg)
	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("invalid configuration: %w", err)
	}

	log, err := newLogger(cfg)
	if err != nil {
		return err
	}
	defer func() { _ = log.Sync() }()

	banner("gpuscout Fetch")
	fmt.Fprintf(os.Stderr, "  Marketplace:  %s\n", marketplace)
	fmt.Fprintf(os.Stderr, "  Pages:        %d\n", len(urls))
	fmt.Fprintf(os.Stderr, "  Workers:      %d\n", cfg.Concurrency.Workers)
	fmt.Fprintf(os.Stderr, "  Robots.txt:   %v\n", cfg.HTTP.RespectRobots)
	fmt.Fprintf(os.Stderr, "\n")

	p, err := pipeline.NewPipeline(cfg, log)
	if err != nil {
		return err
	}

	listings, err := p.Fetch(ctx, marketplace, urls)
	if err != nil {
		return fmt.Errorf("fetch failed: %w", err)
	}
	fmt.Fprintf(os.Stderr, "✓ Extracted %d listings\n", len(listings))

	if !standardizeNow {
		return pipeline.WriteListings(listingsOut, listings)
	}

	res := p.Standardize(ctx, listings, pipeline.Filters{
		MinConfidence: cfg.Output.MinConfidence,
		Series:        cfg.Output.Series,
	})
	for _, r := range res.Rejected {
		fmt.Fprintf(os.Stderr, "✗ listing %d: %v\n", r.Index+1, r.Error)
	}
	fmt.Fprintf(os.Stderr, "✓ Standardized %d records (avg confidence %.3f)\n", res.Stats.Total, res.Stats.AverageConfidence)
	return p.Emit(ctx, res.Records, listingsOut, os.Stdout)
}

func applyFetchFlags(cmd *cobra.Command, cfg *model.Config) {
	flags := cmd.Flags()
	if flags.Changed("ua") {
		cfg.HTTP.UserAgent = userAgent
	}
	if flags.Changed("http-proxy") {
		cfg.HTTP.HTTPProxy = httpProxy
	}
	if flags.Changed("https-proxy") {
		cfg.HTTP.HTTPSProxy = httpsProxy
	}
	if ignoreRobots {
		cfg.HTTP.RespectRobots = false
	}
	if flags.Changed("rps") {
		cfg.RateLimiting.RequestsPerSecond = requestsPerSec
	}
	if flags.Changed("workers") && workers > 0 {
		cfg.Concurrency.Workers = workers
	}
}
