package vcf

import (
	"errors"
	"fmt"
)

// Section names the part of a VCF file an error was found in.
type Section string

// Sections of a VCF file.
const (
	SectionMetadata Section = "metadata"
	SectionHeader   Section = "column (# header)"
	SectionData     Section = "data"
)

// Programming errors. These indicate misuse of the API, not bad input.
var (
	ErrParserExhausted = errors.New("vcf: parser already exhausted")
	ErrMetadataParsed  = errors.New("vcf: metadata has already been parsed")
	ErrNotVCFFile      = errors.New("vcf: not a VCF file (doesn't end with .vcf extension)")
	ErrNilSink         = errors.New("vcf: record sink is nil")
)

// FormatError reports input that violates the VCF grammar.
// Line and Section are zero until the parser attaches them.
type FormatError struct {
	Line    int
	Section Section
	Message string
	Err     error
}

func (e *FormatError) Error() string {
	msg := e.Message
	if e.Err != nil {
		if msg == "" {
			msg = e.Err.Error()
		} else {
			msg += ": " + e.Err.Error()
		}
	}
	if e.Section == "" {
		return "vcf format error: " + msg
	}
	return fmt.Sprintf("vcf parse error at line %d (%s): %s", e.Line, e.Section, msg)
}

func (e *FormatError) Unwrap() error {
	return e.Err
}

func formatErrorf(format string, args ...any) *FormatError {
	return &FormatError{Message: fmt.Sprintf(format, args...)}
}

// locate attaches a line number and section to err. FormatErrors that
// already carry a location are returned unchanged.
func locate(err error, line int, section Section) error {
	var fe *FormatError
	if errors.As(err, &fe) {
		if fe.Section != "" {
			return err
		}
		return &FormatError{Line: line, Section: section, Message: fe.Message, Err: fe.Err}
	}
	return &FormatError{Line: line, Section: section, Err: err}
}

// WarningKind classifies a ConsistencyWarning.
type WarningKind string

// Kinds of metadata consistency warnings.
const (
	WarnUnknownFilter WarningKind = "unknown FILTER"
	WarnUnknownInfo   WarningKind = "unknown INFO"
	WarnUnknownFormat WarningKind = "unknown FORMAT"
)

// ConsistencyWarning is a non-fatal mismatch between a record and the
// metadata it is written against.
type ConsistencyWarning struct {
	Kind    WarningKind
	Key     string
	Chrom   string
	Pos     int64
	Message string
}

func (w ConsistencyWarning) String() string {
	return fmt.Sprintf("%s:%d: %s %q: %s", w.Chrom, w.Pos, w.Kind, w.Key, w.Message)
}
