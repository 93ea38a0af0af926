package output

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"slices"
	"strconv"
	"strings"

	"go.uber.org/zap"

	"github.com/inodb/vibe-vcf/internal/vcf"
)

// ErrInconsistent is returned by a strict VCFWriter in place of a
// consistency warning.
var ErrInconsistent = errors.New("record is inconsistent with metadata")

// VCFWriter writes a metadata header and records as VCF text.
// Each record is checked against the metadata before it is emitted.
type VCFWriter struct {
	w        *bufio.Writer
	logger   *zap.Logger
	strict   bool
	warnings []vcf.ConsistencyWarning
}

// NewVCFWriter creates a new VCF output writer.
func NewVCFWriter(w io.Writer) *VCFWriter {
	return &VCFWriter{
		w:      bufio.NewWriter(w),
		logger: zap.NewNop(),
	}
}

// SetLogger sets the logger used for consistency warnings.
func (vw *VCFWriter) SetLogger(l *zap.Logger) {
	vw.logger = l
}

// SetStrict makes consistency warnings fail the write.
func (vw *VCFWriter) SetStrict(strict bool) {
	vw.strict = strict
}

// Warnings returns the consistency warnings collected so far.
func (vw *VCFWriter) Warnings() []vcf.ConsistencyWarning {
	return append([]vcf.ConsistencyWarning(nil), vw.warnings...)
}

// WriteHeader writes the ## metadata lines and the #CHROM column line.
func (vw *VCFWriter) WriteHeader(md *vcf.Metadata) error {
	lines := []string{"##fileformat=" + md.FileFormat()}
	for _, t := range vcf.HeaderOrder {
		for _, e := range md.Entries(t) {
			lines = append(lines, e.String())
		}
	}
	for _, p := range md.RawProperties() {
		lines = append(lines, p.String())
	}

	cols := vcf.MandatoryColumns
	if md.SampleCount() > 0 {
		cols = md.Columns()
	}
	lines = append(lines, "#"+strings.Join(cols, "\t"))

	for _, line := range lines {
		if err := checkLine(line); err != nil {
			return err
		}
	}
	for _, line := range lines {
		if _, err := vw.w.WriteString(line + "\n"); err != nil {
			return err
		}
	}
	return nil
}

// Write writes one record and its samples. Samples must follow the
// record's FORMAT keys and match the metadata's sample count. The record is
// normalized in place first.
func (vw *VCFWriter) Write(md *vcf.Metadata, v *vcf.Variant, samples []*vcf.Sample) error {
	if len(v.Filters) == 1 && v.Filters[0] == vcf.FilterPass {
		vw.logger.Warn("normalizing PASS filter",
			zap.String("chrom", v.Chrom),
			zap.Int64("pos", v.Pos))
	}
	if err := v.Normalize(); err != nil {
		return err
	}
	if err := vw.checkRecord(md, v, samples); err != nil {
		return err
	}

	var lb strings.Builder
	lb.WriteString(v.Chrom)
	lb.WriteByte('\t')
	lb.WriteString(strconv.FormatInt(v.Pos, 10))
	lb.WriteByte('\t')
	lb.WriteString(joinOr(v.IDs, ";", "."))
	lb.WriteByte('\t')
	lb.WriteString(v.Ref)
	lb.WriteByte('\t')
	lb.WriteString(joinOr(v.Alt, ",", "."))
	lb.WriteByte('\t')
	lb.WriteString(v.QualString())
	lb.WriteByte('\t')
	lb.WriteString(joinOr(v.Filters, ";", vcf.FilterPass))
	lb.WriteByte('\t')
	lb.WriteString(v.Info.String())

	// FORMAT is only emitted under a header that declares samples.
	if len(samples) > 0 {
		lb.WriteByte('\t')
		lb.WriteString(strings.Join(v.Format, ":"))
		for _, s := range samples {
			lb.WriteByte('\t')
			for i, key := range v.Format {
				if i > 0 {
					lb.WriteByte(':')
				}
				value, _ := s.Get(key)
				lb.WriteString(value)
			}
		}
	}

	line := lb.String()
	if err := checkLine(line); err != nil {
		return err
	}
	_, err := vw.w.WriteString(line + "\n")
	return err
}

// Flush flushes the underlying writer.
func (vw *VCFWriter) Flush() error {
	return vw.w.Flush()
}

func (vw *VCFWriter) checkRecord(md *vcf.Metadata, v *vcf.Variant, samples []*vcf.Sample) error {
	for _, f := range v.Filters {
		if f == "." || md.Filter(f) != nil {
			continue
		}
		if err := vw.warn(v, vcf.WarnUnknownFilter, f, "not declared in metadata"); err != nil {
			return err
		}
	}

	if v.Info != nil {
		for _, key := range v.Info.Keys() {
			entry := md.Info(key)
			if entry == nil {
				if err := vw.warn(v, vcf.WarnUnknownInfo, key, "not declared in metadata"); err != nil {
					return err
				}
				continue
			}
			values, _ := v.Info.Get(key)
			if _, err := entry.Convert(strings.Join(values, ",")); err != nil {
				return &vcf.FormatError{Message: fmt.Sprintf("INFO %s at %s:%d", key, v.Chrom, v.Pos), Err: err}
			}
		}
	}

	if len(samples) != md.SampleCount() {
		return &vcf.FormatError{Message: fmt.Sprintf("record at %s:%d has %d samples, metadata declares %d",
			v.Chrom, v.Pos, len(samples), md.SampleCount())}
	}
	if len(samples) > 0 && len(v.Format) == 0 {
		return &vcf.FormatError{Message: fmt.Sprintf("record at %s:%d has samples but no FORMAT", v.Chrom, v.Pos)}
	}

	for _, key := range v.Format {
		if md.Format(key) != nil {
			continue
		}
		if err := vw.warn(v, vcf.WarnUnknownFormat, key, "not declared in metadata"); err != nil {
			return err
		}
	}

	for i, s := range samples {
		name := md.SampleName(i)
		for _, key := range s.Keys() {
			if !slices.Contains(v.Format, key) {
				return &vcf.FormatError{Message: fmt.Sprintf("sample %s at %s:%d has %s which is not in FORMAT",
					name, v.Chrom, v.Pos, key)}
			}
		}
		for _, key := range v.Format {
			value, ok := s.Get(key)
			if !ok {
				return &vcf.FormatError{Message: fmt.Sprintf("sample %s at %s:%d is missing FORMAT key %s",
					name, v.Chrom, v.Pos, key)}
			}
			entry := md.Format(key)
			if entry == nil {
				continue
			}
			if _, err := entry.Convert(value); err != nil {
				return &vcf.FormatError{Message: fmt.Sprintf("sample %s FORMAT %s at %s:%d", name, key, v.Chrom, v.Pos), Err: err}
			}
		}
	}
	return nil
}

func (vw *VCFWriter) warn(v *vcf.Variant, kind vcf.WarningKind, key, msg string) error {
	w := vcf.ConsistencyWarning{Kind: kind, Key: key, Chrom: v.Chrom, Pos: v.Pos, Message: msg}
	if vw.strict {
		return fmt.Errorf("%s: %w", w, ErrInconsistent)
	}
	vw.warnings = append(vw.warnings, w)
	vw.logger.Warn("metadata consistency",
		zap.String("kind", string(kind)),
		zap.String("key", key),
		zap.String("chrom", v.Chrom),
		zap.Int64("pos", v.Pos))
	return nil
}

// checkLine rejects text that would break the one-line-per-record layout.
func checkLine(line string) error {
	if strings.ContainsAny(line, "\r\n") {
		return &vcf.FormatError{Message: fmt.Sprintf("refusing to write line with embedded newline: %q", line)}
	}
	return nil
}

func joinOr(values []string, sep, missing string) string {
	if len(values) == 0 {
		return missing
	}
	return strings.Join(values, sep)
}
