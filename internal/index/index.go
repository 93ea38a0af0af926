// Package index provides an in-memory random-access view of a parsed VCF.
package index

import (
	"errors"
	"fmt"
	"sort"

	"github.com/inodb/vibe-vcf/internal/vcf"
)

// DuplicatePolicy decides what happens when a second record arrives for a key
// that is already indexed.
type DuplicatePolicy int

const (
	// Fail rejects the duplicate record and aborts parsing.
	Fail DuplicatePolicy = iota
	// KeepFirst ignores the duplicate.
	KeepFirst
	// KeepLast replaces the indexed record with the duplicate.
	KeepLast
)

func (p DuplicatePolicy) String() string {
	switch p {
	case Fail:
		return "fail"
	case KeepFirst:
		return "keep-first"
	case KeepLast:
		return "keep-last"
	}
	return fmt.Sprintf("DuplicatePolicy(%d)", int(p))
}

// ParseDuplicatePolicy parses "fail", "keep-first" or "keep-last".
func ParseDuplicatePolicy(s string) (DuplicatePolicy, error) {
	for _, p := range []DuplicatePolicy{Fail, KeepFirst, KeepLast} {
		if p.String() == s {
			return p, nil
		}
	}
	return Fail, fmt.Errorf("unknown duplicate policy %q", s)
}

// ErrDuplicate is returned under the Fail policy.
var ErrDuplicate = errors.New("duplicate record")

// Locus is a (chromosome, position) pair.
type Locus struct {
	Chrom string
	Pos   int64
}

func (l Locus) String() string {
	return fmt.Sprintf("%s:%d", l.Chrom, l.Pos)
}

// Record is a data line with its samples.
type Record struct {
	Variant *vcf.Variant
	Samples []*vcf.Sample
}

// Sample returns the i-th sample, or nil when out of range.
func (r *Record) Sample(i int) *vcf.Sample {
	if i < 0 || i >= len(r.Samples) {
		return nil
	}
	return r.Samples[i]
}

// MemoryIndex is a record sink that keeps every record reachable by ID and
// by locus. It is not safe for concurrent use while parsing.
type MemoryIndex struct {
	idPolicy    DuplicatePolicy
	locusPolicy DuplicatePolicy

	md      *vcf.Metadata
	byID    map[string]*Record
	byLocus map[Locus]*Record
	loci    []Locus // insertion order of byLocus
	spans   map[string]*spanTree
}

// New creates an empty index with the given duplicate policies.
func New(idPolicy, locusPolicy DuplicatePolicy) *MemoryIndex {
	return &MemoryIndex{
		idPolicy:    idPolicy,
		locusPolicy: locusPolicy,
		byID:        make(map[string]*Record),
		byLocus:     make(map[Locus]*Record),
	}
}

// Accept indexes one record. Under the Fail policy a duplicate leaves the
// index unchanged.
func (m *MemoryIndex) Accept(md *vcf.Metadata, v *vcf.Variant, samples []*vcf.Sample) error {
	m.md = md
	rec := &Record{Variant: v, Samples: samples}
	locus := Locus{Chrom: v.Chrom, Pos: v.Pos}

	_, haveLocus := m.byLocus[locus]
	if haveLocus && m.locusPolicy == Fail {
		return fmt.Errorf("%w for position %s", ErrDuplicate, locus)
	}
	if m.idPolicy == Fail {
		for _, id := range v.IDs {
			if _, ok := m.byID[id]; ok {
				return fmt.Errorf("%w for ID %s", ErrDuplicate, id)
			}
		}
	}

	if !haveLocus {
		m.loci = append(m.loci, locus)
	}
	delete(m.spans, locus.Chrom)
	if !haveLocus || m.locusPolicy == KeepLast {
		m.byLocus[locus] = rec
	}
	for _, id := range v.IDs {
		if _, ok := m.byID[id]; !ok || m.idPolicy == KeepLast {
			m.byID[id] = rec
		}
	}
	return nil
}

// Metadata returns the metadata of the indexed file, or nil before the
// first record.
func (m *MemoryIndex) Metadata() *vcf.Metadata {
	return m.md
}

// Len returns the number of indexed loci.
func (m *MemoryIndex) Len() int {
	return len(m.loci)
}

// ByID returns the record with the given ID.
func (m *MemoryIndex) ByID(id string) (*Record, bool) {
	rec, ok := m.byID[id]
	return rec, ok
}

// AtLocus returns the record at chrom:pos.
func (m *MemoryIndex) AtLocus(chrom string, pos int64) (*Record, bool) {
	rec, ok := m.byLocus[Locus{Chrom: chrom, Pos: pos}]
	return rec, ok
}

// All returns the records indexed by locus in file order.
func (m *MemoryIndex) All() []*Record {
	out := make([]*Record, 0, len(m.loci))
	for _, l := range m.loci {
		out = append(out, m.byLocus[l])
	}
	return out
}

// Chromosomes returns a sorted list of indexed chromosomes.
func (m *MemoryIndex) Chromosomes() []string {
	seen := make(map[string]bool)
	var chroms []string
	for _, l := range m.loci {
		if !seen[l.Chrom] {
			seen[l.Chrom] = true
			chroms = append(chroms, l.Chrom)
		}
	}
	sort.Strings(chroms)
	return chroms
}

// SampleByID returns the named sample of the record with the given ID.
func (m *MemoryIndex) SampleByID(id, sample string) (*vcf.Sample, bool) {
	rec, ok := m.ByID(id)
	if !ok {
		return nil, false
	}
	return m.sample(rec, sample)
}

// SampleAtLocus returns the named sample of the record at chrom:pos.
func (m *MemoryIndex) SampleAtLocus(chrom string, pos int64, sample string) (*vcf.Sample, bool) {
	rec, ok := m.AtLocus(chrom, pos)
	if !ok {
		return nil, false
	}
	return m.sample(rec, sample)
}

func (m *MemoryIndex) sample(rec *Record, name string) (*vcf.Sample, bool) {
	if m.md == nil {
		return nil, false
	}
	s := rec.Sample(m.md.SampleIndex(name))
	return s, s != nil
}

// GenotypeByID resolves the GT of the named sample of the record with the
// given ID. ok is false when the record, the sample or its GT is missing.
func (m *MemoryIndex) GenotypeByID(id, sample string) (g vcf.Genotype, ok bool, err error) {
	rec, found := m.ByID(id)
	if !found {
		return vcf.Genotype{}, false, nil
	}
	return m.genotype(rec, sample)
}

// GenotypeAtLocus resolves the GT of the named sample of the record at
// chrom:pos.
func (m *MemoryIndex) GenotypeAtLocus(chrom string, pos int64, sample string) (g vcf.Genotype, ok bool, err error) {
	rec, found := m.AtLocus(chrom, pos)
	if !found {
		return vcf.Genotype{}, false, nil
	}
	return m.genotype(rec, sample)
}

func (m *MemoryIndex) genotype(rec *Record, sample string) (vcf.Genotype, bool, error) {
	s, ok := m.sample(rec, sample)
	if !ok {
		return vcf.Genotype{}, false, nil
	}
	return vcf.GenotypeOf(rec.Variant, s)
}
