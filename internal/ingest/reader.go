// Package ingest turns scraper output into raw listings: JSON, JSONL and CSV
// exports on disk, and marketplace result pages fetched over HTTP.
package ingest

import (
	"bufio"
	"encoding/csv"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/ppiankov/gpuscout/internal/model"
)

// ErrUnsupportedFormat is returned for input files with an unknown extension
var ErrUnsupportedFormat = errors.New("unsupported input format")

// maxLineBytes bounds a single JSONL record
const maxLineBytes = 1 << 20

// ReadFile reads listings from a .jsonl/.ndjson, .json or .csv file.
// A path of "-" reads JSONL from stdin.
func ReadFile(path string) ([]model.RawListing, error) {
	if path == "-" {
		return ReadJSONL(os.Stdin)
	}

	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open input: %w", err)
	}
	defer func() { _ = f.Close() }()

	switch strings.ToLower(filepath.Ext(path)) {
	case ".jsonl", ".ndjson":
		return ReadJSONL(f)
	case ".json":
		return ReadJSON(f)
	case ".csv":
		return ReadCSV(f)
	default:
		return nil, fmt.Errorf("%w: %s", ErrUnsupportedFormat, filepath.Ext(path))
	}
}

// ReadJSONL reads one JSON listing per line, skipping blank lines
func ReadJSONL(r io.Reader) ([]model.RawListing, error) {
	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 64*1024), maxLineBytes)

	var listings []model.RawListing
	line := 0
	for scanner.Scan() {
		line++
		text := strings.TrimSpace(scanner.Text())
		if text == "" {
			continue
		}
		var l model.RawListing
		if err := json.Unmarshal([]byte(text), &l); err != nil {
			return nil, fmt.Errorf("line %d: %w", line, err)
		}
		listings = append(listings, l)
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("scan input: %w", err)
	}
	return listings, nil
}

// ReadJSON reads a JSON array of listings
func ReadJSON(r io.Reader) ([]model.RawListing, error) {
	var listings []model.RawListing
	if err := json.NewDecoder(r).Decode(&listings); err != nil {
		return nil, fmt.Errorf("decode listings: %w", err)
	}
	return listings, nil
}

// csvColumns maps accepted header names to listing fields
var csvColumns = map[string]string{
	"title":          "title",
	"price":          "price",
	"price_text":     "price",
	"condition":      "condition",
	"condition_text": "condition",
	"marketplace":    "marketplace",
	"location":       "location",
	"url":            "url",
	"scraped_at":     "scraped_at",
}

// ReadCSV reads listings from a CSV file with a header row. Header names are
// matched case-insensitively; unknown columns are ignored.
func ReadCSV(r io.Reader) ([]model.RawListing, error) {
	reader := csv.NewReader(r)
	reader.FieldsPerRecord = -1
	reader.TrimLeadingSpace = true

	header, err := reader.Read()
	if err == io.EOF {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("read header: %w", err)
	}

	index := make(map[string]int)
	for i, name := range header {
		key := strings.ToLower(strings.TrimSpace(strings.TrimPrefix(name, "\ufeff")))
		if field, ok := csvColumns[key]; ok {
			if _, dup := index[field]; !dup {
				index[field] = i
			}
		}
	}
	if _, ok := index["title"]; !ok {
		return nil, errors.New("csv header has no title column")
	}

	var listings []model.RawListing
	for row := 2; ; row++ {
		rec, err := reader.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("row %d: %w", row, err)
		}

		get := func(field string) string {
			i, ok := index[field]
			if !ok || i >= len(rec) {
				return ""
			}
			return rec[i]
		}

		l := model.RawListing{
			Title:         get("title"),
			PriceText:     get("price"),
			ConditionText: get("condition"),
			Marketplace:   get("marketplace"),
			Location:      get("location"),
			URL:           get("url"),
		}
		if ts := strings.TrimSpace(get("scraped_at")); ts != "" {
			t, err := parseTimestamp(ts)
			if err != nil {
				return nil, fmt.Errorf("row %d: %w", row, err)
			}
			l.ScrapedAt = t
		}
		listings = append(listings, l)
	}
	return listings, nil
}

var timestampLayouts = []string{
	time.RFC3339Nano,
	"2006-01-02 15:04:05",
	"2006-01-02T15:04:05",
	"2006-01-02",
}

func parseTimestamp(s string) (time.Time, error) {
	for _, layout := range timestampLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t, nil
		}
	}
	return time.Time{}, fmt.Errorf("unrecognized scraped_at %q", s)
}

// WriteJSONL writes listings one per line, readable by ReadJSONL
func WriteJSONL(w io.Writer, listings []model.RawListing) error {
	enc := json.NewEncoder(w)
	enc.SetEscapeHTML(false)
	for i, l := range listings {
		if err := enc.Encode(l); err != nil {
			return fmt.Errorf("encode listing %d: %w", i, err)
		}
	}
	return nil
}
