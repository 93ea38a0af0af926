package vcf

import (
	"regexp"
	"strings"
)

// Column names of the #CHROM line.
var MandatoryColumns = []string{"CHROM", "POS", "ID", "REF", "ALT", "QUAL", "FILTER", "INFO"}

// FormatColumn is the ninth column, present only when there are samples.
const FormatColumn = "FORMAT"

// firstSampleColumn is the index of the first sample column.
const firstSampleColumn = 9

// Raw property keys with helpers on Metadata.
const (
	RawAssembly   = "assembly"
	RawPedigreeDB = "pedigreeDB"
)

var fileFormatPattern = regexp.MustCompile(`^VCFv\d+\.\d+$`)

// Metadata is the header of a VCF file: the file format, structured entries
// in registration order, raw ##key=value properties and the column names.
//
// No two entries of the same type may share an ID.
type Metadata struct {
	fileFormat string
	entries    map[MetadataType][]*MetadataEntry
	raw        []RawProperty
	columns    []string
}

// NewMetadata creates metadata with the given file format and the eight
// mandatory columns.
func NewMetadata(fileFormat string) (*Metadata, error) {
	md := newMetadata()
	if err := md.SetFileFormat(fileFormat); err != nil {
		return nil, err
	}
	return md, nil
}

func newMetadata() *Metadata {
	return &Metadata{
		entries: make(map[MetadataType][]*MetadataEntry),
		columns: append([]string(nil), MandatoryColumns...),
	}
}

// FileFormat returns the version string, e.g. VCFv4.2.
func (md *Metadata) FileFormat() string { return md.fileFormat }

// SetFileFormat sets the version string. It must look like VCFv4.2.
func (md *Metadata) SetFileFormat(format string) error {
	if !fileFormatPattern.MatchString(format) {
		return formatErrorf("fileformat must look like VCFv4.2; was %q", format)
	}
	md.fileFormat = format
	return nil
}

// Add registers an entry. Adding a second entry with the same type and ID
// is a FormatError.
func (md *Metadata) Add(e *MetadataEntry) error {
	if md.Entry(e.Type(), e.ID()) != nil {
		return formatErrorf("duplicate ID %s for %s", e.ID(), e.Type())
	}
	md.entries[e.Type()] = append(md.entries[e.Type()], e)
	return nil
}

// Remove unregisters the entry with the given type and ID. It reports
// whether an entry was removed.
func (md *Metadata) Remove(t MetadataType, id string) bool {
	list := md.entries[t]
	for i, e := range list {
		if e.ID() == id {
			md.entries[t] = append(list[:i:i], list[i+1:]...)
			return true
		}
	}
	return false
}

// Entry returns the entry with the given type and ID, or nil.
func (md *Metadata) Entry(t MetadataType, id string) *MetadataEntry {
	for _, e := range md.entries[t] {
		if e.ID() == id {
			return e
		}
	}
	return nil
}

// Entries returns the entries of type t in registration order.
func (md *Metadata) Entries(t MetadataType) []*MetadataEntry {
	return append([]*MetadataEntry(nil), md.entries[t]...)
}

// Info returns the INFO entry for id, or nil.
func (md *Metadata) Info(id string) *MetadataEntry { return md.Entry(MetaInfo, id) }

// Format returns the FORMAT entry for id, or nil.
func (md *Metadata) Format(id string) *MetadataEntry { return md.Entry(MetaFormat, id) }

// Filter returns the FILTER entry for id, or nil.
func (md *Metadata) Filter(id string) *MetadataEntry { return md.Entry(MetaFilter, id) }

// Alt returns the ALT entry for id. The id may be given as <DEL> or DEL.
func (md *Metadata) Alt(id string) *MetadataEntry {
	if isAngleWrapped(id) {
		id = id[1 : len(id)-1]
	}
	return md.Entry(MetaAlt, id)
}

// Contig returns the contig entry for id, or nil.
func (md *Metadata) Contig(id string) *MetadataEntry { return md.Entry(MetaContig, id) }

// Sample returns the SAMPLE entry for id, or nil.
func (md *Metadata) Sample(id string) *MetadataEntry { return md.Entry(MetaSample, id) }

// Pedigrees returns the PEDIGREE entries.
func (md *Metadata) Pedigrees() []*MetadataEntry { return md.Entries(MetaPedigree) }

// RawProperties returns the unstructured ## lines in order.
func (md *Metadata) RawProperties() []RawProperty {
	return append([]RawProperty(nil), md.raw...)
}

// RawValues returns the values of every raw property named key.
func (md *Metadata) RawValues(key string) []string {
	var values []string
	for _, p := range md.raw {
		if p.Key == key {
			values = append(values, p.Value)
		}
	}
	return values
}

// AddRaw appends an unstructured ##key=value line. Keys may repeat.
func (md *Metadata) AddRaw(key, value string) error {
	if key == "" {
		return formatErrorf("raw metadata key is empty")
	}
	if strings.ContainsAny(key, "=\r\n") || strings.ContainsAny(value, "\r\n") {
		return formatErrorf("raw metadata %q contains '=' in its key or a newline", key)
	}
	if _, ok := lookupMetadataType(key); ok || strings.EqualFold(key, "fileformat") {
		return formatErrorf("%s is not a raw metadata key", key)
	}
	md.raw = append(md.raw, RawProperty{Key: key, Value: value})
	return nil
}

// RemoveRaw removes raw properties named key. An empty value removes every
// one of them; otherwise only those with that exact value. It returns the
// number removed.
func (md *Metadata) RemoveRaw(key, value string) int {
	kept := md.raw[:0]
	removed := 0
	for _, p := range md.raw {
		if p.Key == key && (value == "" || p.Value == value) {
			removed++
			continue
		}
		kept = append(kept, p)
	}
	md.raw = kept
	return removed
}

// Assemblies returns the ##assembly values.
func (md *Metadata) Assemblies() []string { return md.RawValues(RawAssembly) }

// AddAssembly adds an ##assembly=url line.
func (md *Metadata) AddAssembly(url string) error { return md.AddRaw(RawAssembly, url) }

// PedigreeDatabases returns the ##pedigreeDB values.
func (md *Metadata) PedigreeDatabases() []string { return md.RawValues(RawPedigreeDB) }

// AddPedigreeDatabase adds a ##pedigreeDB=<url> line. The value must be
// enclosed in angle brackets.
func (md *Metadata) AddPedigreeDatabase(url string) error {
	if !isAngleWrapped(url) {
		return formatErrorf("pedigreeDB %q should be enclosed in angle brackets", url)
	}
	return md.AddRaw(RawPedigreeDB, url)
}

// Columns returns the column names of the #CHROM line, without the '#'.
func (md *Metadata) Columns() []string {
	return append([]string(nil), md.columns...)
}

// ColumnIndex returns the index of a column, or -1.
func (md *Metadata) ColumnIndex(name string) int {
	for i, c := range md.columns {
		if c == name {
			return i
		}
	}
	return -1
}

// SampleCount returns the number of sample columns.
func (md *Metadata) SampleCount() int {
	if len(md.columns) <= firstSampleColumn {
		return 0
	}
	return len(md.columns) - firstSampleColumn
}

// SampleName returns the name of sample i (0-based).
func (md *Metadata) SampleName(i int) string {
	return md.columns[firstSampleColumn+i]
}

// SampleNames returns the sample column names.
func (md *Metadata) SampleNames() []string {
	if md.SampleCount() == 0 {
		return nil
	}
	return append([]string(nil), md.columns[firstSampleColumn:]...)
}

// SampleIndex returns the 0-based index of the named sample, or -1.
func (md *Metadata) SampleIndex(name string) int {
	for i := firstSampleColumn; i < len(md.columns); i++ {
		if md.columns[i] == name {
			return i - firstSampleColumn
		}
	}
	return -1
}

// SetSampleNames replaces the sample columns. FORMAT is added when there is
// at least one sample and dropped otherwise.
func (md *Metadata) SetSampleNames(names []string) error {
	seen := make(map[string]bool, len(names))
	for _, n := range names {
		if n == "" || strings.ContainsAny(n, "\t\r\n") {
			return formatErrorf("invalid sample name %q", n)
		}
		if seen[n] {
			return formatErrorf("duplicate sample name %q", n)
		}
		seen[n] = true
	}
	cols := append([]string(nil), MandatoryColumns...)
	if len(names) > 0 {
		cols = append(cols, FormatColumn)
		cols = append(cols, names...)
	}
	md.columns = cols
	return nil
}

// setColumns validates and stores the names from a #CHROM line.
func (md *Metadata) setColumns(cols []string) error {
	if len(cols) < len(MandatoryColumns) {
		return formatErrorf("column line has %d columns; at least %d are required", len(cols), len(MandatoryColumns))
	}
	for i, want := range MandatoryColumns {
		if cols[i] != want {
			return formatErrorf("column %d is %q; expected %q", i+1, cols[i], want)
		}
	}
	if len(cols) > len(MandatoryColumns) && cols[len(MandatoryColumns)] != FormatColumn {
		return formatErrorf("column %d is %q; expected %q", len(MandatoryColumns)+1, cols[len(MandatoryColumns)], FormatColumn)
	}
	md.columns = append([]string(nil), cols...)
	return nil
}

// Clone returns a deep copy. Transformations that edit the header work on
// their own copy.
func (md *Metadata) Clone() *Metadata {
	c := &Metadata{
		fileFormat: md.fileFormat,
		entries:    make(map[MetadataType][]*MetadataEntry, len(md.entries)),
		raw:        append([]RawProperty(nil), md.raw...),
		columns:    append([]string(nil), md.columns...),
	}
	for t, list := range md.entries {
		copied := make([]*MetadataEntry, len(list))
		for i, e := range list {
			copied[i] = &MetadataEntry{typ: e.typ, id: e.id, props: e.Properties()}
		}
		c.entries[t] = copied
	}
	return c
}

// MetadataBuilder accumulates header lines while a file is read.
type MetadataBuilder struct {
	md         *Metadata
	haveFormat bool
}

// NewMetadataBuilder returns an empty builder.
func NewMetadataBuilder() *MetadataBuilder {
	return &MetadataBuilder{md: newMetadata()}
}

// SetFileFormat records the ##fileformat value.
func (b *MetadataBuilder) SetFileFormat(format string) error {
	if err := b.md.SetFileFormat(format); err != nil {
		return err
	}
	b.haveFormat = true
	return nil
}

// Add registers a structured entry.
func (b *MetadataBuilder) Add(e *MetadataEntry) error { return b.md.Add(e) }

// AddRaw records an unstructured property.
func (b *MetadataBuilder) AddRaw(key, value string) error { return b.md.AddRaw(key, value) }

// SetColumns records the #CHROM line's column names.
func (b *MetadataBuilder) SetColumns(cols []string) error {
	return b.md.setColumns(cols)
}

// Build returns the accumulated metadata. A file format is required; when no
// column line was seen the mandatory columns are used.
func (b *MetadataBuilder) Build() (*Metadata, error) {
	if !b.haveFormat {
		return nil, formatErrorf("missing ##fileformat line")
	}
	return b.md, nil
}

// lookupMetadataType maps a ## name to a structured type, ignoring case.
func lookupMetadataType(name string) (MetadataType, bool) {
	switch foldName(name) {
	case "alt":
		return MetaAlt, true
	case "filter":
		return MetaFilter, true
	case "info":
		return MetaInfo, true
	case "format":
		return MetaFormat, true
	case "contig":
		return MetaContig, true
	case "sample":
		return MetaSample, true
	case "pedigree":
		return MetaPedigree, true
	}
	return 0, false
}
