// Package store persists standardized records to SQLite or PostgreSQL.
package store

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/jmoiron/sqlx"
	_ "github.com/lib/pq"           // PostgreSQL driver
	_ "github.com/mattn/go-sqlite3" // SQLite driver

	"github.com/ppiankov/gpuscout/internal/model"
)

const (
	// DefaultSQLiteDSN is used when the sqlite3 driver is selected without a DSN
	DefaultSQLiteDSN = "gpuscout.db"
	// DefaultPingTimeout bounds the connection check in Open
	DefaultPingTimeout = 5 * time.Second
)

// Store writes records to a SQL database
type Store struct {
	db     *sqlx.DB
	driver string
}

// ManufacturerCount is one row of CountByManufacturer
type ManufacturerCount struct {
	Manufacturer string `db:"gpu_manufacturer" json:"gpu_manufacturer"`
	Count        int    `db:"count" json:"count"`
}

// Open connects to the configured database
func Open(cfg model.StoreConfig) (*Store, error) {
	driver := cfg.Driver
	if driver == "" {
		driver = "sqlite3"
	}
	dsn := cfg.DSN
	if dsn == "" {
		if driver != "sqlite3" {
			return nil, fmt.Errorf("store: %s needs a dsn", driver)
		}
		dsn = DefaultSQLiteDSN
	}

	db, err := sqlx.Open(driver, dsn)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}

	if driver == "sqlite3" {
		// One connection keeps an in-memory database alive and serializes writers
		db.SetMaxOpenConns(1)
	} else {
		db.SetMaxOpenConns(10)
		db.SetMaxIdleConns(5)
		db.SetConnMaxLifetime(5 * time.Minute)
	}

	ctx, cancel := context.WithTimeout(context.Background(), DefaultPingTimeout)
	defer cancel()
	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}

	return &Store{db: db, driver: driver}, nil
}

// Close closes the database
func (s *Store) Close() error {
	return s.db.Close()
}

// Migrate creates the records table if it does not exist
func (s *Store) Migrate(ctx context.Context) error {
	id := "INTEGER PRIMARY KEY AUTOINCREMENT"
	if s.driver == "postgres" {
		id = "BIGSERIAL PRIMARY KEY"
	}

	schema := fmt.Sprintf(`
		CREATE TABLE IF NOT EXISTS gpu_records (
			id                 %s,
			gpu_manufacturer   VARCHAR(16)  NOT NULL,
			gpu_series         VARCHAR(32),
			gpu_model          VARCHAR(32),
			vram_gb            INTEGER,
			card_manufacturer  VARCHAR(64),
			standardized_price NUMERIC(10,2),
			condition          VARCHAR(16)  NOT NULL,
			confidence_score   REAL         NOT NULL,
			quality_flags      TEXT         NOT NULL DEFAULT '',
			title              TEXT         NOT NULL,
			price_text         TEXT         NOT NULL DEFAULT '',
			condition_text     TEXT         NOT NULL DEFAULT '',
			marketplace        VARCHAR(50)  NOT NULL DEFAULT '',
			location           TEXT         NOT NULL DEFAULT '',
			url                TEXT         NOT NULL DEFAULT '',
			scraped_at         TIMESTAMP,
			created_at         TIMESTAMP    NOT NULL DEFAULT CURRENT_TIMESTAMP
		);
		CREATE INDEX IF NOT EXISTS idx_gpu_records_manufacturer ON gpu_records(gpu_manufacturer);
		CREATE INDEX IF NOT EXISTS idx_gpu_records_model        ON gpu_records(gpu_model);
		CREATE INDEX IF NOT EXISTS idx_gpu_records_marketplace  ON gpu_records(marketplace);
	`, id)

	for _, stmt := range strings.Split(schema, ";") {
		if strings.TrimSpace(stmt) == "" {
			continue
		}
		if _, err := s.db.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("migrate: %w", err)
		}
	}
	return nil
}

// recordRow is the column mapping of a StandardizedRecord
type recordRow struct {
	GPUManufacturer   string     `db:"gpu_manufacturer"`
	GPUSeries         *string    `db:"gpu_series"`
	GPUModel          *string    `db:"gpu_model"`
	VRAMGB            *int       `db:"vram_gb"`
	CardManufacturer  *string    `db:"card_manufacturer"`
	StandardizedPrice *float64   `db:"standardized_price"`
	Condition         string     `db:"condition"`
	ConfidenceScore   float64    `db:"confidence_score"`
	QualityFlags      string     `db:"quality_flags"`
	Title             string     `db:"title"`
	PriceText         string     `db:"price_text"`
	ConditionText     string     `db:"condition_text"`
	Marketplace       string     `db:"marketplace"`
	Location          string     `db:"location"`
	URL               string     `db:"url"`
	ScrapedAt         *time.Time `db:"scraped_at"`
}

func toRow(r model.StandardizedRecord) recordRow {
	row := recordRow{
		GPUManufacturer:   string(r.GPUManufacturer),
		GPUSeries:         r.GPUSeries,
		GPUModel:          r.GPUModel,
		VRAMGB:            r.VRAMGB,
		CardManufacturer:  r.CardManufacturer,
		StandardizedPrice: r.StandardizedPrice,
		Condition:         string(r.Condition),
		ConfidenceScore:   r.ConfidenceScore,
		QualityFlags:      strings.Join(r.QualityFlags, ";"),
		Title:             r.Title,
		PriceText:         r.PriceText,
		ConditionText:     r.ConditionText,
		Marketplace:       r.Marketplace,
		Location:          r.Location,
		URL:               r.URL,
	}
	if !r.ScrapedAt.IsZero() {
		t := r.ScrapedAt.UTC()
		row.ScrapedAt = &t
	}
	return row
}

const insertRecord = `
	INSERT INTO gpu_records (
		gpu_manufacturer, gpu_series, gpu_model, vram_gb, card_manufacturer,
		standardized_price, condition, confidence_score, quality_flags,
		title, price_text, condition_text, marketplace, location, url, scraped_at
	) VALUES (
		:gpu_manufacturer, :gpu_series, :gpu_model, :vram_gb, :card_manufacturer,
		:standardized_price, :condition, :confidence_score, :quality_flags,
		:title, :price_text, :condition_text, :marketplace, :location, :url, :scraped_at
	)`

// SaveRecords appends records in a single transaction. Nothing is written
// when any insert fails.
func (s *Store) SaveRecords(ctx context.Context, records []model.StandardizedRecord) (err error) {
	if len(records) == 0 {
		return nil
	}

	tx, err := s.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin transaction: %w", err)
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback()
		}
	}()

	stmt, err := tx.PrepareNamedContext(ctx, insertRecord)
	if err != nil {
		return fmt.Errorf("prepare insert: %w", err)
	}
	defer func() { _ = stmt.Close() }()

	for i, r := range records {
		if _, err = stmt.ExecContext(ctx, toRow(r)); err != nil {
			return fmt.Errorf("insert record %d: %w", i, err)
		}
	}

	if err = tx.Commit(); err != nil {
		return fmt.Errorf("commit: %w", err)
	}
	return nil
}

// CountByManufacturer returns the number of stored records per GPU vendor
func (s *Store) CountByManufacturer(ctx context.Context) ([]ManufacturerCount, error) {
	var counts []ManufacturerCount
	query := `
		SELECT gpu_manufacturer, COUNT(*) AS count
		FROM gpu_records
		GROUP BY gpu_manufacturer
		ORDER BY gpu_manufacturer`
	if err := s.db.SelectContext(ctx, &counts, query); err != nil {
		return nil, fmt.Errorf("count by manufacturer: %w", err)
	}
	return counts, nil
}

// Count returns the number of stored records
func (s *Store) Count(ctx context.Context) (int, error) {
	var n int
	if err := s.db.GetContext(ctx, &n, `SELECT COUNT(*) FROM gpu_records`); err != nil {
		return 0, fmt.Errorf("count records: %w", err)
	}
	return n, nil
}

// ListByModel returns stored records for a GPU model at or above a
// confidence floor, cheapest first
func (s *Store) ListByModel(ctx context.Context, gpuModel string, minConfidence float64) ([]model.StandardizedRecord, error) {
	var rows []recordRow
	query := s.db.Rebind(`
		SELECT gpu_manufacturer, gpu_series, gpu_model, vram_gb, card_manufacturer,
		       standardized_price, condition, confidence_score, quality_flags,
		       title, price_text, condition_text, marketplace, location, url, scraped_at
		FROM gpu_records
		WHERE gpu_model = ? AND confidence_score >= ?
		ORDER BY standardized_price IS NULL, standardized_price, id`)
	if err := s.db.SelectContext(ctx, &rows, query, gpuModel, minConfidence); err != nil {
		return nil, fmt.Errorf("select records: %w", err)
	}

	out := make([]model.StandardizedRecord, len(rows))
	for i, row := range rows {
		out[i] = row.record()
	}
	return out, nil
}

func (row recordRow) record() model.StandardizedRecord {
	flags := []string{}
	if row.QualityFlags != "" {
		flags = strings.Split(row.QualityFlags, ";")
	}
	r := model.StandardizedRecord{
		GPUManufacturer:   model.Manufacturer(row.GPUManufacturer),
		GPUSeries:         row.GPUSeries,
		GPUModel:          row.GPUModel,
		VRAMGB:            row.VRAMGB,
		CardManufacturer:  row.CardManufacturer,
		StandardizedPrice: row.StandardizedPrice,
		Condition:         model.Condition(row.Condition),
		ConfidenceScore:   row.ConfidenceScore,
		QualityFlags:      flags,
		Title:             row.Title,
		PriceText:         row.PriceText,
		ConditionText:     row.ConditionText,
		Marketplace:       row.Marketplace,
		Location:          row.Location,
		URL:               row.URL,
	}
	if row.ScrapedAt != nil {
		r.ScrapedAt = row.ScrapedAt.UTC()
	}
	return r
}
