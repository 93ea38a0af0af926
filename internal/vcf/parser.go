package vcf

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"os"
	"regexp"
	"strconv"
	"strings"

	"go.uber.org/zap"
	"golang.org/x/text/cases"
)

var rsidPattern = regexp.MustCompile(`rs\d+`)

type parserState int

const (
	awaitingHeader parserState = iota
	awaitingColumnLine
	readingData
	finished
	exhausted
)

// Parser reads a VCF file: first the metadata, then one record per call.
type Parser struct {
	reader     *bufio.Reader
	file       *os.File
	logger     *zap.Logger
	lineNumber int
	rsidsOnly  bool
	state      parserState
	metadata   *Metadata
	headerErr  error
}

// NewParser creates a parser for a .vcf file. "-" reads stdin.
func NewParser(path string) (*Parser, error) {
	if path == "-" {
		return NewParserFromReader(os.Stdin), nil
	}
	if !strings.HasSuffix(path, ".vcf") {
		return nil, fmt.Errorf("%w: %s", ErrNotVCFFile, path)
	}

	file, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open vcf file: %w", err)
	}

	p := NewParserFromReader(file)
	p.file = file
	return p, nil
}

// NewParserFromReader creates a parser from an io.Reader (e.g., stdin).
func NewParserFromReader(r io.Reader) *Parser {
	return &Parser{
		reader: bufio.NewReader(r),
		logger: zap.NewNop(),
	}
}

// SetLogger sets the logger for metadata and normalization messages.
func (p *Parser) SetLogger(l *zap.Logger) {
	p.logger = l
}

// SetRSIDsOnly makes the parser skip records whose ID column has no rs ID.
func (p *Parser) SetRSIDsOnly(only bool) {
	p.rsidsOnly = only
}

// readLine returns the next line without its terminator. ok is false at EOF.
func (p *Parser) readLine() (line string, ok bool, err error) {
	line, err = p.reader.ReadString('\n')
	if err != nil {
		if err != io.EOF {
			return "", false, fmt.Errorf("read vcf line: %w", err)
		}
		if line == "" {
			return "", false, nil
		}
	}
	p.lineNumber++
	return strings.TrimRight(line, "\r\n"), true, nil
}

// ParseMetadata reads every header line up to and including the #CHROM
// line. It may only be called once.
func (p *Parser) ParseMetadata() (*Metadata, error) {
	if p.state != awaitingHeader {
		return nil, ErrMetadataParsed
	}
	p.state = awaitingColumnLine
	md, err := p.parseHeader()
	if err != nil {
		p.headerErr = err
		return nil, err
	}
	p.metadata = md
	p.state = readingData
	return md, nil
}

// Metadata returns the parsed metadata, parsing it first if needed.
func (p *Parser) Metadata() (*Metadata, error) {
	if p.state == awaitingHeader {
		return p.ParseMetadata()
	}
	if p.headerErr != nil {
		return nil, p.headerErr
	}
	return p.metadata, nil
}

func (p *Parser) parseHeader() (*Metadata, error) {
	b := NewMetadataBuilder()
	for {
		line, ok, err := p.readLine()
		if err != nil {
			return nil, err
		}
		if !ok {
			return nil, &FormatError{Line: p.lineNumber, Section: SectionHeader, Message: "no #CHROM header line found"}
		}

		switch {
		case strings.HasPrefix(line, "##"):
			if err := p.parseMetadataLine(b, line); err != nil {
				return nil, locate(err, p.lineNumber, SectionMetadata)
			}
		case strings.HasPrefix(line, "#"):
			if err := b.SetColumns(strings.Split(line[1:], "\t")); err != nil {
				return nil, locate(err, p.lineNumber, SectionHeader)
			}
			md, err := b.Build()
			if err != nil {
				return nil, locate(err, p.lineNumber, SectionHeader)
			}
			return md, nil
		default:
			return nil, &FormatError{Line: p.lineNumber, Section: SectionMetadata, Message: "expected #CHROM header line"}
		}
	}
}

// parseMetadataLine handles one ## line.
func (p *Parser) parseMetadataLine(b *MetadataBuilder, line string) error {
	name, value, found := strings.Cut(line[2:], "=")
	name = strings.TrimSpace(name)
	value = strings.TrimSpace(value)
	if name == "" {
		return formatErrorf("metadata line has no name")
	}

	p.logger.Debug("metadata", zap.String("name", name), zap.String("value", value))

	if !found {
		return b.AddRaw(name, "")
	}
	if foldName(name) == "fileformat" {
		return b.SetFileFormat(value)
	}
	if t, ok := lookupMetadataType(name); ok {
		e, err := ParseMetadataEntry(t, value)
		if err != nil {
			return err
		}
		return b.Add(e)
	}
	return b.AddRaw(name, value)
}

// foldName case-folds a metadata name for dispatch.
func foldName(name string) string {
	return cases.Fold().String(name)
}

// Next reads the next record and its samples.
// Returns nil, nil, nil once when there are no more records; calling
// Next again after that returns ErrParserExhausted.
func (p *Parser) Next() (*Variant, []*Sample, error) {
	if p.headerErr != nil {
		return nil, nil, p.headerErr
	}
	switch p.state {
	case finished, exhausted:
		p.state = exhausted
		return nil, nil, ErrParserExhausted
	case awaitingHeader:
		if _, err := p.ParseMetadata(); err != nil {
			return nil, nil, err
		}
	}

	for {
		line, ok, err := p.readLine()
		if err != nil {
			return nil, nil, err
		}
		if !ok {
			p.state = finished
			return nil, nil, nil
		}
		v, samples, skip, err := p.parseDataLine(line)
		if err != nil {
			return nil, nil, locate(err, p.lineNumber, SectionData)
		}
		if skip {
			continue
		}
		return v, samples, nil
	}
}

// ParseNext reads one record and hands it to sink. It returns false when
// there are no more records.
func (p *Parser) ParseNext(sink RecordSink) (bool, error) {
	if sink == nil {
		return false, ErrNilSink
	}
	v, samples, err := p.Next()
	if err != nil {
		return false, err
	}
	if v == nil {
		return false, nil
	}
	if err := sink.Accept(p.metadata, v, samples); err != nil {
		return false, fmt.Errorf("vcf record sink failed at line %d: %w", p.lineNumber, err)
	}
	return true, nil
}

// Parse hands every remaining record to sink.
func (p *Parser) Parse(sink RecordSink) error {
	for {
		more, err := p.ParseNext(sink)
		if err != nil {
			return err
		}
		if !more {
			return nil
		}
	}
}

// parseDataLine parses a single data line. skip is true when the record is
// filtered out by SetRSIDsOnly.
func (p *Parser) parseDataLine(line string) (v *Variant, samples []*Sample, skip bool, err error) {
	if line == "" {
		return nil, nil, false, formatErrorf("empty data line")
	}
	fields := strings.Split(line, "\t")
	if want := len(p.metadata.columns); len(fields) != want {
		return nil, nil, false, formatErrorf("expected %d columns, found %d", want, len(fields))
	}

	if p.rsidsOnly && (fields[2] == "." || !rsidPattern.MatchString(fields[2])) {
		return nil, nil, true, nil
	}

	pos, err := strconv.ParseInt(fields[1], 10, 64)
	if err != nil {
		return nil, nil, false, formatErrorf("position %q is not numerical", fields[1])
	}

	v = &Variant{
		Chrom: fields[0],
		Pos:   pos,
		Ref:   fields[3],
	}

	if fields[2] != "." {
		v.IDs = strings.FieldsFunc(fields[2], func(r rune) bool { return r == ';' || r == ',' })
		if len(v.IDs) == 0 {
			return nil, nil, false, formatErrorf("ID column %q has no identifiers", fields[2])
		}
	}

	if fields[4] != "." {
		v.Alt = strings.Split(fields[4], ",")
	}

	if err := v.SetQualText(fields[5]); err != nil {
		return nil, nil, false, err
	}

	if fields[6] != FilterPass {
		v.Filters = strings.Split(fields[6], ";")
	}

	if v.Info, err = ParseInfo(fields[7]); err != nil {
		return nil, nil, false, err
	}

	if len(fields) > len(MandatoryColumns) {
		v.Format = strings.Split(fields[8], ":")
		samples = make([]*Sample, 0, len(fields)-firstSampleColumn)
		for i := firstSampleColumn; i < len(fields); i++ {
			s, err := ParseSample(v.Format, fields[i])
			if err != nil {
				var fe *FormatError
				if errors.As(err, &fe) {
					fe.Message = "sample " + p.metadata.columns[i] + ": " + fe.Message
				}
				return nil, nil, false, err
			}
			samples = append(samples, s)
		}
	}

	if err := v.Normalize(); err != nil {
		return nil, nil, false, err
	}
	return v, samples, false, nil
}

// LineNumber returns the current line number being processed.
func (p *Parser) LineNumber() int {
	return p.lineNumber
}

// Close closes the parser and underlying file.
func (p *Parser) Close() error {
	if p.file == nil {
		return nil
	}
	err := p.file.Close()
	p.file = nil
	if errors.Is(err, os.ErrClosed) {
		return nil
	}
	return err
}
