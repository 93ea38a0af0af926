// Package vcf parses, models and validates Variant Call Format text.
package vcf

import (
	"strings"
	"unicode"

	"github.com/shopspring/decimal"
)

// FilterPass is the FILTER value of a record that passed all filters.
const FilterPass = "PASS"

// Variant is one data line of a VCF file: the eight mandatory columns plus
// the FORMAT keys shared by its samples.
type Variant struct {
	Chrom   string           // Chromosome name (e.g., "12", "chr12"); no whitespace or colons
	Pos     int64            // 1-based position; 0 and below are telomeres
	IDs     []string         // Identifiers such as rs IDs
	Ref     string           // Reference bases
	Alt     []string         // Alternate alleles, possibly empty
	Qual    *decimal.Decimal // Phred-scaled quality, nil when missing
	Filters []string         // Failed filters; empty when the record passes
	Info    *Info            // INFO key/value pairs in file order
	Format  []string         // FORMAT keys; empty only when there are no samples

	// QUAL exactly as read, kept while Qual still holds the value it parsed to
	qualText string
	qualRead decimal.Decimal
}

// SetQualText parses a QUAL column value and remembers its text so the
// record is written back unchanged. "." clears the quality.
func (v *Variant) SetQualText(s string) error {
	if s == "." {
		v.Qual, v.qualText = nil, ""
		return nil
	}
	q, err := ParseDecimal(s)
	if err != nil {
		return err
	}
	v.Qual, v.qualText, v.qualRead = &q, s, q
	return nil
}

// QualString returns the QUAL column text: the input text when Qual is
// unchanged since parsing, otherwise Qual with its scale kept, or "." when
// missing.
func (v *Variant) QualString() string {
	if v.Qual == nil {
		return "."
	}
	if v.qualText != "" && v.Qual.Equal(v.qualRead) && v.Qual.Exponent() == v.qualRead.Exponent() {
		return v.qualText
	}
	return FormatDecimal(*v.Qual)
}

// NewVariant builds a record and normalizes it.
func NewVariant(chrom string, pos int64, ids []string, ref string, alt []string,
	qual *decimal.Decimal, filters []string, info *Info, format []string) (*Variant, error) {
	v := &Variant{
		Chrom:   chrom,
		Pos:     pos,
		IDs:     ids,
		Ref:     ref,
		Alt:     alt,
		Qual:    qual,
		Filters: filters,
		Info:    info,
		Format:  format,
	}
	if err := v.Normalize(); err != nil {
		return nil, err
	}
	return v, nil
}

// Normalize validates every field and rewrites a lone PASS filter to an
// empty list. PASS together with other filters is an error.
func (v *Variant) Normalize() error {
	if v.Chrom == "" || hasSpace(v.Chrom) || strings.ContainsRune(v.Chrom, ':') {
		return formatErrorf("CHROM %q is empty or contains whitespace or colons", v.Chrom)
	}
	for _, id := range v.IDs {
		if id == "" || hasSpace(id) || strings.ContainsRune(id, ';') {
			return formatErrorf("ID %q is empty or contains whitespace or semicolons", id)
		}
	}
	if !refPattern.MatchString(v.Ref) {
		return formatErrorf("invalid reference bases %q", v.Ref)
	}
	for _, alt := range v.Alt {
		if !IsAllele(alt) {
			return formatErrorf("invalid alternate allele %q", alt)
		}
	}
	for _, f := range v.Filters {
		if f == "" || hasSpace(f) || strings.ContainsRune(f, ';') {
			return formatErrorf("FILTER entry %q is empty or contains whitespace or semicolons", f)
		}
		if f == "0" {
			return formatErrorf("FILTER entry must not be 0")
		}
		if f == FilterPass && len(v.Filters) > 1 {
			return formatErrorf("FILTER contains PASS along with other filters")
		}
	}
	if len(v.Filters) == 1 && v.Filters[0] == FilterPass {
		v.Filters = nil
	}
	if v.Info != nil {
		for _, key := range v.Info.keys {
			if key == "" || hasSpace(key) || strings.ContainsAny(key, ";=") {
				return formatErrorf("INFO key %q is empty or contains whitespace, '=' or ';'", key)
			}
			for _, value := range v.Info.values[key] {
				if hasSpace(value) || strings.ContainsRune(value, ';') {
					return formatErrorf("INFO value %s=%q contains whitespace or semicolons", key, value)
				}
			}
		}
	}
	for _, f := range v.Format {
		if f == "" || hasSpace(f) || strings.ContainsRune(f, ':') {
			return formatErrorf("FORMAT key %q is empty or contains whitespace or colons", f)
		}
	}
	return nil
}

// Allele returns allele i, where 0 is REF and 1..len(Alt) are the ALT alleles.
func (v *Variant) Allele(i int) string {
	if i == 0 {
		return v.Ref
	}
	return v.Alt[i-1]
}

// Alleles returns REF followed by the ALT alleles.
func (v *Variant) Alleles() []string {
	return append([]string{v.Ref}, v.Alt...)
}

// IsPassingAllFilters reports whether FILTER is PASS or missing (".").
func (v *Variant) IsPassingAllFilters() bool {
	return len(v.Filters) == 0 || (len(v.Filters) == 1 && v.Filters[0] == ".")
}

// HasRSID reports whether any identifier looks like a dbSNP rs ID.
func (v *Variant) HasRSID() bool {
	for _, id := range v.IDs {
		if rsidPattern.MatchString(id) {
			return true
		}
	}
	return false
}

// HasInfo reports whether key is present in INFO.
func (v *Variant) HasInfo(key string) bool {
	return v.Info != nil && v.Info.Has(key)
}

// InfoValue converts the value of a reserved INFO key. Flags that are present
// convert to true. ok is false when the key is absent.
func (v *Variant) InfoValue(r ReservedInfo) (value any, ok bool, err error) {
	if v.Info == nil {
		return nil, false, nil
	}
	values, ok := v.Info.Get(r.ID())
	if !ok {
		return nil, false, nil
	}
	value, err = r.Convert(strings.Join(values, ","))
	return value, true, err
}

// IsSNV returns true if REF and every ALT allele are single bases.
func (v *Variant) IsSNV() bool {
	if len(v.Ref) != 1 || len(v.Alt) == 0 {
		return false
	}
	for _, alt := range v.Alt {
		if len(alt) != 1 || alt == "*" || alt == "." {
			return false
		}
	}
	return true
}

// IsIndel returns true if any simple ALT allele differs in length from REF.
func (v *Variant) IsIndel() bool {
	for _, alt := range v.Alt {
		a := Allele{s: alt}
		if n, err := a.Length(); err == nil && n != len(v.Ref) {
			return true
		}
	}
	return false
}

// NormalizeChrom returns the chromosome name without "chr" prefix.
func (v *Variant) NormalizeChrom() string {
	if len(v.Chrom) > 3 && v.Chrom[:3] == "chr" {
		return v.Chrom[3:]
	}
	return v.Chrom
}

// Clone returns a deep copy of the record.
func (v *Variant) Clone() *Variant {
	c := *v
	c.IDs = cloneStrings(v.IDs)
	c.Alt = cloneStrings(v.Alt)
	c.Filters = cloneStrings(v.Filters)
	c.Format = cloneStrings(v.Format)
	if v.Qual != nil {
		q := *v.Qual
		c.Qual = &q
	}
	if v.Info != nil {
		c.Info = v.Info.Clone()
	}
	return &c
}

func cloneStrings(s []string) []string {
	if s == nil {
		return nil
	}
	return append([]string(nil), s...)
}

func hasSpace(s string) bool {
	return strings.IndexFunc(s, unicode.IsSpace) >= 0
}

// Info is the INFO column: an ordered multimap from key to values.
// A key without "=value" holds a single empty string. The zero value is an
// empty Info.
type Info struct {
	keys   []string
	values map[string][]string
}

// NewInfo returns an empty Info.
func NewInfo() *Info {
	return &Info{values: make(map[string][]string)}
}

// Add appends values to key, adding the key if needed. With no values the
// key is recorded as a flag.
func (in *Info) Add(key string, values ...string) {
	if len(values) == 0 {
		values = []string{""}
	}
	if in.values == nil {
		in.values = make(map[string][]string)
	}
	if _, ok := in.values[key]; !ok {
		in.keys = append(in.keys, key)
	}
	in.values[key] = append(in.values[key], values...)
}

// Set replaces the values of key.
func (in *Info) Set(key string, values ...string) {
	in.Remove(key)
	in.Add(key, values...)
}

// Get returns a copy of the values of key.
func (in *Info) Get(key string) ([]string, bool) {
	values, ok := in.values[key]
	if !ok {
		return nil, false
	}
	return cloneStrings(values), true
}

// Has reports whether key is present.
func (in *Info) Has(key string) bool {
	_, ok := in.values[key]
	return ok
}

// IsFlag reports whether key is present without a value.
func (in *Info) IsFlag(key string) bool {
	values := in.values[key]
	return len(values) == 1 && values[0] == ""
}

// Keys returns the keys in insertion order.
func (in *Info) Keys() []string { return cloneStrings(in.keys) }

// Remove deletes key and reports whether it was present.
func (in *Info) Remove(key string) bool {
	if _, ok := in.values[key]; !ok {
		return false
	}
	delete(in.values, key)
	for i, k := range in.keys {
		if k == key {
			in.keys = append(in.keys[:i], in.keys[i+1:]...)
			break
		}
	}
	return true
}

// Len returns the number of keys.
func (in *Info) Len() int { return len(in.keys) }

// Clone returns a deep copy.
func (in *Info) Clone() *Info {
	c := &Info{keys: cloneStrings(in.keys), values: make(map[string][]string, len(in.values))}
	for k, v := range in.values {
		c.values[k] = cloneStrings(v)
	}
	return c
}

// ParseInfo parses an INFO column. "." and "" mean no entries.
func ParseInfo(column string) (*Info, error) {
	info := NewInfo()
	if column == "." || column == "" {
		return info, nil
	}
	for _, entry := range strings.Split(column, ";") {
		if entry == "" {
			return nil, formatErrorf("INFO column %q has an empty entry", column)
		}
		key, value, found := strings.Cut(entry, "=")
		if key == "" {
			return nil, formatErrorf("INFO entry %q has no key", entry)
		}
		if !found {
			info.Add(key)
			continue
		}
		info.Add(key, strings.Split(value, ",")...)
	}
	return info, nil
}

// String renders the INFO column, "." when empty.
func (in *Info) String() string {
	if in == nil || len(in.keys) == 0 {
		return "."
	}
	var b strings.Builder
	for i, key := range in.keys {
		if i > 0 {
			b.WriteByte(';')
		}
		b.WriteString(key)
		values := in.values[key]
		if len(values) == 1 && values[0] == "" {
			continue
		}
		b.WriteByte('=')
		b.WriteString(strings.Join(values, ","))
	}
	return b.String()
}

// Sample holds one sample column: FORMAT key to raw value, in FORMAT order.
// The zero value is an empty Sample.
type Sample struct {
	keys   []string
	values map[string]string
}

// NewSample pairs FORMAT keys with a sample's values. The counts must match.
func NewSample(keys, values []string) (*Sample, error) {
	if len(keys) != len(values) {
		return nil, formatErrorf("sample has %d values for %d FORMAT keys", len(values), len(keys))
	}
	s := &Sample{keys: make([]string, 0, len(keys)), values: make(map[string]string, len(keys))}
	for i, k := range keys {
		if _, dup := s.values[k]; dup {
			return nil, formatErrorf("sample repeats FORMAT key %q", k)
		}
		if err := checkSampleText(k, values[i]); err != nil {
			return nil, err
		}
		s.keys = append(s.keys, k)
		s.values[k] = values[i]
	}
	return s, nil
}

// ParseSample splits a sample column by the record's FORMAT keys.
func ParseSample(format []string, column string) (*Sample, error) {
	return NewSample(format, strings.Split(column, ":"))
}

func checkSampleText(key, value string) error {
	if key == "" || strings.ContainsAny(key, ":\t\r\n") {
		return formatErrorf("invalid sample key %q", key)
	}
	if strings.ContainsAny(value, ":\t\r\n") {
		return formatErrorf("sample value %s=%q contains a colon, tab or newline", key, value)
	}
	return nil
}

// Get returns the raw value of key.
func (s *Sample) Get(key string) (string, bool) {
	v, ok := s.values[key]
	return v, ok
}

// Set adds or replaces a value. New keys are appended.
func (s *Sample) Set(key, value string) error {
	if err := checkSampleText(key, value); err != nil {
		return err
	}
	if s.values == nil {
		s.values = make(map[string]string)
	}
	if _, ok := s.values[key]; !ok {
		s.keys = append(s.keys, key)
	}
	s.values[key] = value
	return nil
}

// Remove deletes key and reports whether it was present.
func (s *Sample) Remove(key string) bool {
	if _, ok := s.values[key]; !ok {
		return false
	}
	delete(s.values, key)
	for i, k := range s.keys {
		if k == key {
			s.keys = append(s.keys[:i], s.keys[i+1:]...)
			break
		}
	}
	return true
}

// Keys returns the keys in order.
func (s *Sample) Keys() []string { return cloneStrings(s.keys) }

// Len returns the number of keys.
func (s *Sample) Len() int { return len(s.keys) }

// ReservedValue returns the raw value of a reserved FORMAT key.
func (s *Sample) ReservedValue(r ReservedFormat) (string, bool) {
	return s.Get(r.ID())
}

// Clone returns a deep copy.
func (s *Sample) Clone() *Sample {
	c := &Sample{keys: cloneStrings(s.keys), values: make(map[string]string, len(s.values))}
	for k, v := range s.values {
		c.values[k] = v
	}
	return c
}
