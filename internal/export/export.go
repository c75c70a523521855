// Package export writes standardized records as JSON Lines or CSV.
package export

import (
	"encoding/csv"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/ppiankov/gpuscout/internal/model"
)

// Formats accepted by Write
const (
	FormatJSONL = "jsonl"
	FormatCSV   = "csv"
)

// CSVHeader is the column order of WriteCSV
var CSVHeader = []string{
	"gpu_manufacturer", "gpu_series", "gpu_model", "vram_gb", "card_manufacturer",
	"standardized_price", "condition", "confidence_score", "quality_flags",
	"title", "price_text", "condition_text", "marketplace", "location", "url", "scraped_at",
}

// Write writes records in the named format
func Write(w io.Writer, format string, records []model.StandardizedRecord) error {
	switch format {
	case FormatJSONL:
		return WriteJSONL(w, records)
	case FormatCSV:
		return WriteCSV(w, records)
	default:
		return fmt.Errorf("unsupported output format %q", format)
	}
}

// WriteFile creates (or truncates) path and writes records to it.
// Intermediate directories are created automatically.
func WriteFile(path, format string, records []model.StandardizedRecord) error {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return fmt.Errorf("create output dir: %w", err)
	}

	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("create file %q: %w", path, err)
	}
	if err := Write(f, format, records); err != nil {
		_ = f.Close()
		return err
	}
	return f.Close()
}

// WriteJSONL writes one JSON record per line
func WriteJSONL(w io.Writer, records []model.StandardizedRecord) error {
	enc := json.NewEncoder(w)
	enc.SetEscapeHTML(false)
	for i, r := range records {
		if err := enc.Encode(r); err != nil {
			return fmt.Errorf("encode record %d: %w", i, err)
		}
	}
	return nil
}

// WriteCSV writes a header row and one row per record. Absent fields are
// empty cells; quality flags are joined with ";".
func WriteCSV(w io.Writer, records []model.StandardizedRecord) error {
	cw := csv.NewWriter(w)
	if err := cw.Write(CSVHeader); err != nil {
		return fmt.Errorf("write header: %w", err)
	}

	for i, r := range records {
		if err := cw.Write(csvRow(r)); err != nil {
			return fmt.Errorf("write row %d: %w", i, err)
		}
	}

	cw.Flush()
	return cw.Error()
}

func csvRow(r model.StandardizedRecord) []string {
	scraped := ""
	if !r.ScrapedAt.IsZero() {
		scraped = r.ScrapedAt.Format(time.RFC3339)
	}
	return []string{
		string(r.GPUManufacturer),
		str(r.GPUSeries),
		str(r.GPUModel),
		optInt(r.VRAMGB),
		str(r.CardManufacturer),
		optFloat(r.StandardizedPrice),
		string(r.Condition),
		strconv.FormatFloat(r.ConfidenceScore, 'f', -1, 64),
		strings.Join(r.QualityFlags, ";"),
		r.Title,
		r.PriceText,
		r.ConditionText,
		r.Marketplace,
		r.Location,
		r.URL,
		scraped,
	}
}

func str(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}

func optInt(v *int) string {
	if v == nil {
		return ""
	}
	return strconv.Itoa(*v)
}

func optFloat(v *float64) string {
	if v == nil {
		return ""
	}
	return strconv.FormatFloat(*v, 'f', 2, 64)
}
