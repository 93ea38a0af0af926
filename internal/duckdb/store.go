// Package duckdb ingests parsed VCF records into DuckDB for ad-hoc querying.
// Each ingestion run is recorded as a source; variants, INFO entries and
// genotypes are bulk-loaded with the Appender API.
package duckdb

import (
	"database/sql"
	"fmt"
	"os"
	"path/filepath"

	_ "github.com/marcboeker/go-duckdb"
)

// Store manages a DuckDB connection holding ingested VCF data.
type Store struct {
	db   *sql.DB
	path string
}

// Open opens or creates a DuckDB database at the given path.
// Use an empty string for an in-memory database.
func Open(path string) (*Store, error) {
	if path != "" {
		dir := filepath.Dir(path)
		if err := os.MkdirAll(dir, 0755); err != nil {
			return nil, fmt.Errorf("create database directory: %w", err)
		}
	}

	db, err := sql.Open("duckdb", path)
	if err != nil {
		return nil, fmt.Errorf("open duckdb: %w", err)
	}

	s := &Store{db: db, path: path}
	if err := s.ensureSchema(); err != nil {
		db.Close()
		return nil, fmt.Errorf("ensure schema: %w", err)
	}

	return s, nil
}

// Close closes the database connection.
func (s *Store) Close() error {
	return s.db.Close()
}

// DB returns the underlying *sql.DB for direct access.
func (s *Store) DB() *sql.DB {
	return s.db
}

// ensureSchema creates tables if they don't exist.
func (s *Store) ensureSchema() error {
	stmts := []string{
		`CREATE TABLE IF NOT EXISTS vcf_sources (
			source_id VARCHAR PRIMARY KEY,
			path VARCHAR,
			size BIGINT,
			mod_time VARCHAR,
			fileformat VARCHAR,
			samples VARCHAR,
			record_count BIGINT,
			complete BOOLEAN,
			ingested_at TIMESTAMP
		)`,
		`CREATE TABLE IF NOT EXISTS vcf_variants (
			source_id VARCHAR,
			record_idx BIGINT,
			chrom VARCHAR,
			pos BIGINT,
			ids VARCHAR,
			ref VARCHAR,
			alt VARCHAR,
			qual DOUBLE,
			filters VARCHAR,
			info VARCHAR,
			format VARCHAR,
			PRIMARY KEY (source_id, record_idx)
		)`,
		`CREATE TABLE IF NOT EXISTS vcf_info (
			source_id VARCHAR,
			record_idx BIGINT,
			key VARCHAR,
			value VARCHAR
		)`,
		`CREATE TABLE IF NOT EXISTS vcf_genotypes (
			source_id VARCHAR,
			record_idx BIGINT,
			sample VARCHAR,
			gt VARCHAR,
			alleles VARCHAR,
			phased BOOLEAN
		)`,
	}
	for _, stmt := range stmts {
		if _, err := s.db.Exec(stmt); err != nil {
			return err
		}
	}
	return nil
}
