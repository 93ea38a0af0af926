package duckdb

import (
	"database/sql"
	"errors"
	"fmt"
	"os"
	"strings"
	"time"
)

// FileFingerprint holds stat-based identity for a file.
type FileFingerprint struct {
	Path    string
	Size    int64
	ModTime time.Time
}

// StatFile creates a FileFingerprint from an on-disk file.
func StatFile(path string) (FileFingerprint, error) {
	info, err := os.Stat(path)
	if err != nil {
		return FileFingerprint{}, err
	}
	return FileFingerprint{
		Path:    path,
		Size:    info.Size(),
		ModTime: info.ModTime(),
	}, nil
}

func (fp FileFingerprint) modTime() string {
	return fp.ModTime.UTC().Format(time.RFC3339Nano)
}

// Source describes one ingestion run.
type Source struct {
	ID          string
	Path        string
	FileFormat  string
	Samples     []string
	RecordCount int64
	Complete    bool
	IngestedAt  time.Time
}

// FindSource returns the id of a completed ingestion of the file described
// by fp, so that unchanged inputs can be skipped.
func (s *Store) FindSource(fp FileFingerprint) (string, bool, error) {
	var id string
	err := s.db.QueryRow(`SELECT source_id FROM vcf_sources
		WHERE path=? AND size=? AND mod_time=? AND complete
		ORDER BY ingested_at DESC LIMIT 1`,
		fp.Path, fp.Size, fp.modTime()).Scan(&id)
	if errors.Is(err, sql.ErrNoRows) {
		return "", false, nil
	}
	if err != nil {
		return "", false, fmt.Errorf("query source: %w", err)
	}
	return id, true, nil
}

// Sources lists all ingestion runs, newest first.
func (s *Store) Sources() ([]Source, error) {
	rows, err := s.db.Query(`SELECT
		source_id, path, fileformat, samples, record_count, complete, ingested_at
		FROM vcf_sources ORDER BY ingested_at DESC`)
	if err != nil {
		return nil, fmt.Errorf("query sources: %w", err)
	}
	defer rows.Close()

	var sources []Source
	for rows.Next() {
		var src Source
		var fileFormat, samples sql.NullString
		if err := rows.Scan(&src.ID, &src.Path, &fileFormat, &samples,
			&src.RecordCount, &src.Complete, &src.IngestedAt); err != nil {
			return nil, fmt.Errorf("scan source: %w", err)
		}
		src.FileFormat = fileFormat.String
		if samples.String != "" {
			src.Samples = strings.Split(samples.String, "\t")
		}
		sources = append(sources, src)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate sources: %w", err)
	}
	return sources, nil
}

// DeleteSource removes an ingestion run and all of its rows.
func (s *Store) DeleteSource(id string) error {
	for _, table := range []string{"vcf_genotypes", "vcf_info", "vcf_variants", "vcf_sources"} {
		if _, err := s.db.Exec("DELETE FROM "+table+" WHERE source_id=?", id); err != nil {
			return fmt.Errorf("delete from %s: %w", table, err)
		}
	}
	return nil
}
