package vcf

import (
	"strconv"
	"strings"
)

const noCall = "."

// Genotype is a haploid or diploid call such as A|ATG or G/T.
// A nil allele is a no-call.
type Genotype struct {
	allele1 *Allele
	allele2 *Allele
	phased  bool // delimiter was '|'
	haploid bool
}

// NewGenotype builds a diploid genotype. Either allele may be nil.
func NewGenotype(allele1, allele2 *Allele, phased bool) Genotype {
	return Genotype{allele1: allele1, allele2: allele2, phased: phased}
}

// ParseGenotype parses a genotype written with literal alleles, e.g. "A/TT",
// "C|<DEL>" or the haploid "A". A "." side is a no-call.
func ParseGenotype(token string) (Genotype, error) {
	return parseGenotype(token, func(s string) (*Allele, error) {
		if s == noCall {
			return nil, nil
		}
		a, err := ParseAllele(s)
		if err != nil {
			return nil, err
		}
		return &a, nil
	})
}

// ParseGenotypeIndices parses a GT value such as "0/1", "1|2", "./." or "1",
// resolving each index against the REF and ALT alleles of v.
func ParseGenotypeIndices(v *Variant, token string) (Genotype, error) {
	return parseGenotype(token, func(s string) (*Allele, error) {
		return alleleAtIndex(v, s)
	})
}

// GenotypeOf reads the GT value of sample and resolves it against v.
// ok is false when the sample has no GT.
func GenotypeOf(v *Variant, sample *Sample) (g Genotype, ok bool, err error) {
	gt, ok := sample.ReservedValue(FormatGenotype)
	if !ok {
		return Genotype{}, false, nil
	}
	g, err = ParseGenotypeIndices(v, gt)
	if err != nil {
		return Genotype{}, false, err
	}
	return g, true, nil
}

func parseGenotype(token string, resolve func(string) (*Allele, error)) (Genotype, error) {
	i := strings.IndexAny(token, "|/")
	if i < 0 {
		a, err := resolve(token)
		if err != nil {
			return Genotype{}, formatErrorf("genotype %q is invalid: %v", token, err)
		}
		return Genotype{allele1: a, allele2: a, phased: true, haploid: true}, nil
	}
	left, right := token[:i], token[i+1:]
	if strings.ContainsAny(right, "|/") {
		return Genotype{}, formatErrorf("genotype %q has more than two alleles", token)
	}
	a1, err := resolve(left)
	if err != nil {
		return Genotype{}, formatErrorf("genotype %q is invalid: %v", token, err)
	}
	a2, err := resolve(right)
	if err != nil {
		return Genotype{}, formatErrorf("genotype %q is invalid: %v", token, err)
	}
	return Genotype{allele1: a1, allele2: a2, phased: token[i] == '|'}, nil
}

func alleleAtIndex(v *Variant, s string) (*Allele, error) {
	if s == noCall {
		return nil, nil
	}
	if s == "" || strings.TrimLeft(s, "0123456789") != "" {
		return nil, formatErrorf("allele index %q is not a number", s)
	}
	idx, err := strconv.Atoi(s)
	if err != nil || idx < 0 || idx > len(v.Alt) {
		return nil, formatErrorf("allele index %s is out of range: it should be between 0 and %d, inclusive", s, len(v.Alt))
	}
	a, err := ParseAllele(v.Allele(idx))
	if err != nil {
		return nil, err
	}
	return &a, nil
}

// MakeGT renders the genotype as allele indices against v, e.g. "0/1".
// Every called allele must exactly match REF or one of the ALT alleles.
func (g Genotype) MakeGT(v *Variant) (string, error) {
	first, err := indexOf(v, g.allele1)
	if err != nil {
		return "", err
	}
	if g.haploid {
		return first, nil
	}
	second, err := indexOf(v, g.allele2)
	if err != nil {
		return "", err
	}
	return first + g.delimiter() + second, nil
}

func indexOf(v *Variant, a *Allele) (string, error) {
	if a == nil {
		return noCall, nil
	}
	if v.Ref == a.s {
		return "0", nil
	}
	for i, alt := range v.Alt {
		if alt == a.s {
			return strconv.Itoa(i + 1), nil
		}
	}
	return "", formatErrorf("allele %s does not exist at %s:%d", a.s, v.Chrom, v.Pos)
}

// Allele1 returns the first allele; ok is false for a no-call.
func (g Genotype) Allele1() (a Allele, ok bool) {
	if g.allele1 == nil {
		return Allele{}, false
	}
	return *g.allele1, true
}

// Allele2 returns the second allele; ok is false for a no-call.
func (g Genotype) Allele2() (a Allele, ok bool) {
	if g.allele2 == nil {
		return Allele{}, false
	}
	return *g.allele2, true
}

// IsPhased reports whether the genotype is effectively phased: written with
// '|', haploid, or homozygous (including a double no-call).
func (g Genotype) IsPhased() bool {
	return g.phased || g.IsHomozygous()
}

// IsHaploid reports whether the genotype was written with a single allele.
func (g Genotype) IsHaploid() bool { return g.haploid }

// IsHomozygous reports whether both alleles are equal or both are no-calls.
func (g Genotype) IsHomozygous() bool {
	return sameAllele(g.allele1, g.allele2)
}

// IsNoCall reports whether neither allele is called.
func (g Genotype) IsNoCall() bool {
	return g.allele1 == nil && g.allele2 == nil
}

// AlleleSet returns the distinct called alleles.
func (g Genotype) AlleleSet() []Allele {
	var set []Allele
	if g.allele1 != nil {
		set = append(set, *g.allele1)
	}
	if g.allele2 != nil && !sameAllele(g.allele1, g.allele2) {
		set = append(set, *g.allele2)
	}
	return set
}

// Equal reports whether two genotypes have the same alleles in the same
// order and the same effective phasing.
func (g Genotype) Equal(other Genotype) bool {
	return sameAllele(g.allele1, other.allele1) &&
		sameAllele(g.allele2, other.allele2) &&
		g.IsPhased() == other.IsPhased()
}

// String renders the genotype with literal alleles, e.g. A|ATGC or ./.
func (g Genotype) String() string {
	if g.haploid {
		return alleleText(g.allele1)
	}
	return alleleText(g.allele1) + g.delimiter() + alleleText(g.allele2)
}

func (g Genotype) delimiter() string {
	// called homozygotes are written phased; a double no-call keeps its delimiter
	if g.phased || (g.IsHomozygous() && !g.IsNoCall()) {
		return "|"
	}
	return "/"
}

func alleleText(a *Allele) string {
	if a == nil {
		return noCall
	}
	return a.s
}

func sameAllele(a, b *Allele) bool {
	if a == nil || b == nil {
		return a == b
	}
	return a.s == b.s
}
