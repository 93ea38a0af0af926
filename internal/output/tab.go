// Package output writes parsed VCF records: back to VCF text, or as a
// tab-delimited genotype table.
package output

import (
	"bufio"
	"fmt"
	"io"
	"strings"

	"github.com/inodb/vibe-vcf/internal/vcf"
)

// tabColumns are the fixed leading columns of the genotype table.
var tabColumns = []string{
	"#Uploaded_variation",
	"Location",
	"ID",
	"REF",
	"ALT",
	"QUAL",
	"FILTER",
}

// TabWriter writes one row per record with each sample's genotype spelled
// out as alleles. It also works as a vcf.RecordSink.
type TabWriter struct {
	w           *bufio.Writer
	wroteHeader bool
}

// NewTabWriter creates a new tab-delimited writer.
func NewTabWriter(w io.Writer) *TabWriter {
	return &TabWriter{w: bufio.NewWriter(w)}
}

// WriteHeader writes the header line: the fixed columns followed by one
// column per sample.
func (tw *TabWriter) WriteHeader(md *vcf.Metadata) error {
	tw.wroteHeader = true
	cols := append(append([]string(nil), tabColumns...), md.SampleNames()...)
	_, err := tw.w.WriteString(strings.Join(cols, "\t") + "\n")
	return err
}

// Write writes a single record. Samples without a GT value are written as "-".
func (tw *TabWriter) Write(v *vcf.Variant, samples []*vcf.Sample) error {
	// Uploaded variation in chrom_pos_ref/alt form
	alt := dashIfEmpty(strings.Join(v.Alt, ","))
	uploaded := fmt.Sprintf("%s_%d_%s/%s", v.Chrom, v.Pos, v.Ref, alt)

	qual := "-"
	if v.Qual != nil {
		qual = v.QualString()
	}

	filter := vcf.FilterPass
	if len(v.Filters) > 0 {
		filter = strings.Join(v.Filters, ";")
	}

	values := []string{
		uploaded,
		fmt.Sprintf("%s:%d", v.Chrom, v.Pos),
		dashIfEmpty(strings.Join(v.IDs, ";")),
		v.Ref,
		alt,
		qual,
		filter,
	}

	for _, s := range samples {
		g, ok, err := vcf.GenotypeOf(v, s)
		if err != nil {
			return fmt.Errorf("genotype at %s:%d: %w", v.Chrom, v.Pos, err)
		}
		if !ok {
			values = append(values, "-")
			continue
		}
		values = append(values, g.String())
	}

	_, err := tw.w.WriteString(strings.Join(values, "\t") + "\n")
	return err
}

// Accept writes the header before the first record, then the record.
func (tw *TabWriter) Accept(md *vcf.Metadata, v *vcf.Variant, samples []*vcf.Sample) error {
	if !tw.wroteHeader {
		if err := tw.WriteHeader(md); err != nil {
			return err
		}
	}
	return tw.Write(v, samples)
}

// Flush flushes any buffered data to the underlying writer.
func (tw *TabWriter) Flush() error {
	return tw.w.Flush()
}

func dashIfEmpty(s string) string {
	if s == "" {
		return "-"
	}
	return s
}
