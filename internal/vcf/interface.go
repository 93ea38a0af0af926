package vcf

// RecordSink receives each parsed data line in file order, after the
// metadata is complete. It may modify the record and samples in place.
// A returned error stops parsing.
type RecordSink interface {
	Accept(md *Metadata, v *Variant, samples []*Sample) error
}

// SinkFunc adapts a function to RecordSink.
type SinkFunc func(md *Metadata, v *Variant, samples []*Sample) error

// Accept calls f.
func (f SinkFunc) Accept(md *Metadata, v *Variant, samples []*Sample) error {
	return f(md, v, samples)
}

// RecordReader is the pull side of a parser.
type RecordReader interface {
	// Metadata returns the header, parsing it first if needed.
	Metadata() (*Metadata, error)

	// Next reads the next record.
	// Returns nil, nil, nil once when there are no more records.
	Next() (*Variant, []*Sample, error)

	// Close closes the reader and releases resources.
	Close() error

	// LineNumber returns the current line number being processed.
	LineNumber() int
}
