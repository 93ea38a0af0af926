package duckdb

import (
	"context"
	"database/sql"
	"database/sql/driver"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	goduckdb "github.com/marcboeker/go-duckdb"
	"go.uber.org/zap"

	"github.com/inodb/vibe-vcf/internal/vcf"
)

// DefaultBatchSize is the number of records buffered before an Appender flush.
const DefaultBatchSize = 10000

// Ingester is a record sink that bulk-loads records into the store under a
// fresh source id. Call Close to flush the last batch and mark the source
// complete.
type Ingester struct {
	s         *Store
	sourceID  string
	batchSize int
	logger    *zap.Logger

	md        *vcf.Metadata
	next      int64
	pending   int
	variants  [][]driver.Value
	info      [][]driver.Value
	genotypes [][]driver.Value
}

// NewIngester registers a new source for the file described by fp.
func (s *Store) NewIngester(fp FileFingerprint) (*Ingester, error) {
	id := uuid.NewString()
	if _, err := s.db.Exec(`INSERT INTO vcf_sources
		(source_id, path, size, mod_time, record_count, complete, ingested_at)
		VALUES (?, ?, ?, ?, 0, false, ?)`,
		id, fp.Path, fp.Size, fp.modTime(), time.Now().UTC()); err != nil {
		return nil, fmt.Errorf("register source: %w", err)
	}
	return &Ingester{
		s:         s,
		sourceID:  id,
		batchSize: DefaultBatchSize,
		logger:    zap.NewNop(),
	}, nil
}

// SourceID returns the uuid of this ingestion run.
func (in *Ingester) SourceID() string { return in.sourceID }

// SetLogger sets the logger used for batch progress.
func (in *Ingester) SetLogger(l *zap.Logger) { in.logger = l }

// SetBatchSize sets how many records are buffered between flushes.
func (in *Ingester) SetBatchSize(n int) {
	if n > 0 {
		in.batchSize = n
	}
}

// Accept buffers one record, flushing when the batch is full. A record whose
// genotypes do not resolve leaves nothing buffered.
func (in *Ingester) Accept(md *vcf.Metadata, v *vcf.Variant, samples []*vcf.Sample) error {
	idx := in.next

	var genotypes [][]driver.Value
	for i, s := range samples {
		gt, ok := s.ReservedValue(vcf.FormatGenotype)
		if !ok {
			continue
		}
		g, _, err := vcf.GenotypeOf(v, s)
		if err != nil {
			return fmt.Errorf("sample %s at %s:%d: %w", md.SampleName(i), v.Chrom, v.Pos, err)
		}
		genotypes = append(genotypes, []driver.Value{
			in.sourceID, idx, md.SampleName(i), gt, g.String(), g.IsPhased(),
		})
	}

	in.md = md
	in.next++

	var qual any
	if v.Qual != nil {
		qual = v.Qual.InexactFloat64()
	}
	in.variants = append(in.variants, []driver.Value{
		in.sourceID, idx, v.Chrom, v.Pos,
		strings.Join(v.IDs, ";"), v.Ref, strings.Join(v.Alt, ","), qual,
		strings.Join(v.Filters, ";"), v.Info.String(), strings.Join(v.Format, ":"),
	})

	if v.Info != nil {
		for _, key := range v.Info.Keys() {
			values, _ := v.Info.Get(key)
			in.info = append(in.info, []driver.Value{in.sourceID, idx, key, strings.Join(values, ",")})
		}
	}

	in.genotypes = append(in.genotypes, genotypes...)

	in.pending++
	if in.pending >= in.batchSize {
		return in.Flush()
	}
	return nil
}

// Flush writes all buffered rows.
func (in *Ingester) Flush() error {
	if in.pending == 0 {
		return nil
	}
	conn, err := in.s.db.Conn(context.Background())
	if err != nil {
		return fmt.Errorf("get connection: %w", err)
	}
	defer conn.Close()

	for _, batch := range []struct {
		table string
		rows  [][]driver.Value
	}{
		{"vcf_variants", in.variants},
		{"vcf_info", in.info},
		{"vcf_genotypes", in.genotypes},
	} {
		if err := appendRows(conn, batch.table, batch.rows); err != nil {
			return err
		}
	}

	in.logger.Debug("flushed records",
		zap.String("source", in.sourceID),
		zap.Int("records", in.pending),
		zap.Int64("total", in.next))
	in.pending = 0
	in.variants = in.variants[:0]
	in.info = in.info[:0]
	in.genotypes = in.genotypes[:0]
	return nil
}

// Close flushes the remaining rows and marks the source complete.
func (in *Ingester) Close() error {
	if err := in.Flush(); err != nil {
		return err
	}
	var fileFormat, samples string
	if in.md != nil {
		fileFormat = in.md.FileFormat()
		samples = strings.Join(in.md.SampleNames(), "\t")
	}
	_, err := in.s.db.Exec(`UPDATE vcf_sources
		SET fileformat=?, samples=?, record_count=?, complete=true
		WHERE source_id=?`, fileFormat, samples, in.next, in.sourceID)
	if err != nil {
		return fmt.Errorf("complete source: %w", err)
	}
	return nil
}

// appendRows batch-inserts rows into table using the Appender API.
func appendRows(conn *sql.Conn, table string, rows [][]driver.Value) error {
	if len(rows) == 0 {
		return nil
	}
	var appender *goduckdb.Appender
	if err := conn.Raw(func(driverConn any) error {
		var err error
		appender, err = goduckdb.NewAppenderFromConn(driverConn.(driver.Conn), "", table)
		return err
	}); err != nil {
		return fmt.Errorf("create appender for %s: %w", table, err)
	}
	defer appender.Close()

	for _, row := range rows {
		if err := appender.AppendRow(row...); err != nil {
			return fmt.Errorf("append to %s: %w", table, err)
		}
	}
	return appender.Flush()
}

// VariantRow is one ingested data line.
type VariantRow struct {
	SourceID  string
	RecordIdx int64
	Chrom     string
	Pos       int64
	IDs       []string
	Ref       string
	Alt       []string
	Qual      *float64
	Filters   []string
	Info      string
	Format    []string
}

// GenotypeRow is one sample's GT at a record.
type GenotypeRow struct {
	Sample  string
	GT      string
	Alleles string
	Phased  bool
}

const variantColumns = `source_id, record_idx, chrom, pos, ids, ref, alt, qual, filters, info, format`

// LookupLocus returns the records at chrom:pos across all sources.
func (s *Store) LookupLocus(chrom string, pos int64) ([]VariantRow, error) {
	rows, err := s.db.Query(`SELECT `+variantColumns+` FROM vcf_variants
		WHERE chrom=? AND pos=? ORDER BY source_id, record_idx`, chrom, pos)
	if err != nil {
		return nil, fmt.Errorf("query locus: %w", err)
	}
	defer rows.Close()
	return scanVariantRows(rows)
}

// LookupID returns the records carrying id in their ID column.
func (s *Store) LookupID(id string) ([]VariantRow, error) {
	rows, err := s.db.Query(`SELECT `+variantColumns+` FROM vcf_variants
		WHERE list_contains(string_split(ids, ';'), ?) ORDER BY source_id, record_idx`, id)
	if err != nil {
		return nil, fmt.Errorf("query id: %w", err)
	}
	defer rows.Close()
	return scanVariantRows(rows)
}

// Genotypes returns the genotypes recorded for one record of a source.
func (s *Store) Genotypes(sourceID string, recordIdx int64) ([]GenotypeRow, error) {
	rows, err := s.db.Query(`SELECT sample, gt, alleles, phased FROM vcf_genotypes
		WHERE source_id=? AND record_idx=?`, sourceID, recordIdx)
	if err != nil {
		return nil, fmt.Errorf("query genotypes: %w", err)
	}
	defer rows.Close()

	var out []GenotypeRow
	for rows.Next() {
		var g GenotypeRow
		if err := rows.Scan(&g.Sample, &g.GT, &g.Alleles, &g.Phased); err != nil {
			return nil, fmt.Errorf("scan genotype: %w", err)
		}
		out = append(out, g)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate genotypes: %w", err)
	}
	return out, nil
}

// CountByChrom returns the number of records per chromosome for a source.
func (s *Store) CountByChrom(sourceID string) (map[string]int64, error) {
	rows, err := s.db.Query(`SELECT chrom, count(*) FROM vcf_variants
		WHERE source_id=? GROUP BY chrom`, sourceID)
	if err != nil {
		return nil, fmt.Errorf("count by chromosome: %w", err)
	}
	defer rows.Close()

	counts := make(map[string]int64)
	for rows.Next() {
		var chrom string
		var n int64
		if err := rows.Scan(&chrom, &n); err != nil {
			return nil, fmt.Errorf("scan count: %w", err)
		}
		counts[chrom] = n
	}
	return counts, rows.Err()
}

// InfoValues returns the raw values of an INFO key for a source, keyed by
// record index.
func (s *Store) InfoValues(sourceID, key string) (map[int64]string, error) {
	rows, err := s.db.Query(`SELECT record_idx, value FROM vcf_info
		WHERE source_id=? AND key=?`, sourceID, key)
	if err != nil {
		return nil, fmt.Errorf("query info: %w", err)
	}
	defer rows.Close()

	values := make(map[int64]string)
	for rows.Next() {
		var idx int64
		var value string
		if err := rows.Scan(&idx, &value); err != nil {
			return nil, fmt.Errorf("scan info: %w", err)
		}
		values[idx] = value
	}
	return values, rows.Err()
}

// scanVariantRows scans rows into VariantRow slices.
func scanVariantRows(rows interface {
	Next() bool
	Scan(dest ...any) error
	Err() error
}) ([]VariantRow, error) {
	var out []VariantRow
	for rows.Next() {
		var r VariantRow
		var ids, alt, filters, format string
		var qual sql.NullFloat64
		if err := rows.Scan(&r.SourceID, &r.RecordIdx, &r.Chrom, &r.Pos,
			&ids, &r.Ref, &alt, &qual, &filters, &r.Info, &format); err != nil {
			return nil, fmt.Errorf("scan variant: %w", err)
		}
		r.IDs = splitNonEmpty(ids, ";")
		r.Alt = splitNonEmpty(alt, ",")
		r.Filters = splitNonEmpty(filters, ";")
		r.Format = splitNonEmpty(format, ":")
		if qual.Valid {
			q := qual.Float64
			r.Qual = &q
		}
		out = append(out, r)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate variants: %w", err)
	}
	return out, nil
}

func splitNonEmpty(s, sep string) []string {
	if s == "" {
		return nil
	}
	return strings.Split(s, sep)
}
