package vcf

import (
	"regexp"
	"strings"
)

// Allele grammar for REF and ALT tokens.
const (
	simpleAllele  = `(?:(?:[ACGTNacgtn]+|<[^<>]+>)+|\*)`
	breakendMate  = `(?:\w[\w.]*|<[^<>]+>)(?::\d+)?`
	breakendShape = `(?:` +
		simpleAllele + `?\[` + breakendMate + `\[|` +
		simpleAllele + `?\]` + breakendMate + `\]|` +
		`\]` + breakendMate + `\]` + simpleAllele + `?|` +
		`\[` + breakendMate + `\[` + simpleAllele + `?)`
)

var (
	allelePattern = regexp.MustCompile(`^(?:\.|\.?` + simpleAllele + `|` + simpleAllele + `\.?|\.?` + breakendShape + `\.?)$`)
	refPattern    = regexp.MustCompile(`^[ACGTNacgtn]+$`)
)

// PrimaryType classifies an allele by its shape.
type PrimaryType int

// Allele shapes.
const (
	SingleBase PrimaryType = iota
	MultiBase
	Symbolic
	Breakpoint
	Deleted
	NoVariation
)

func (t PrimaryType) String() string {
	switch t {
	case SingleBase:
		return "single base"
	case MultiBase:
		return "multiple bases"
	case Symbolic:
		return "symbolic"
	case Breakpoint:
		return "breakpoint"
	case Deleted:
		return "deleted"
	}
	return "no variation"
}

// Allele is a validated REF or ALT token, e.g. "A", "<DEL>", "]13:123456]T" or "*".
type Allele struct {
	s string
}

// ParseAllele validates token against the allele grammar.
func ParseAllele(token string) (Allele, error) {
	if !IsAllele(token) {
		return Allele{}, formatErrorf("%q does not look like an allele", token)
	}
	return Allele{s: token}, nil
}

// MustParseAllele is like ParseAllele but panics on invalid input.
func MustParseAllele(token string) Allele {
	a, err := ParseAllele(token)
	if err != nil {
		panic(err)
	}
	return a
}

// IsAllele reports whether token is a valid REF or ALT token.
func IsAllele(token string) bool {
	return allelePattern.MatchString(token)
}

func (a Allele) String() string { return a.s }

// IsBreakpoint reports whether the allele uses breakend notation.
func (a Allele) IsBreakpoint() bool { return strings.ContainsAny(a.s, "[]") }

// IsSymbolic reports whether the allele contains a symbolic name like <DEL>.
func (a Allele) IsSymbolic() bool { return strings.ContainsRune(a.s, '<') }

// IsDeleted reports whether the allele is "*", a deletion upstream.
func (a Allele) IsDeleted() bool { return a.s == "*" }

// IsSimple reports whether the allele is plain bases.
func (a Allele) IsSimple() bool {
	return !a.IsBreakpoint() && !a.IsSymbolic() && !a.IsDeleted()
}

// IsAmbiguous reports whether the allele has an N base.
func (a Allele) IsAmbiguous() bool { return a.ContainsBase('N', 'n') }

// Length returns the number of bases. Truncation dots are not counted.
// It fails for symbolic, breakpoint and deleted alleles.
func (a Allele) Length() (int, error) {
	if !a.IsSimple() {
		return 0, formatErrorf("length of allele %q is undefined: it is symbolic, deleted upstream, or a breakpoint", a.s)
	}
	return len(a.s) - strings.Count(a.s, "."), nil
}

// PrimaryType classifies the allele.
func (a Allele) PrimaryType() PrimaryType {
	switch {
	case a.IsBreakpoint():
		return Breakpoint
	case a.IsDeleted():
		return Deleted
	case a.IsSymbolic():
		return Symbolic
	}
	n, _ := a.Length()
	switch n {
	case 0:
		return NoVariation
	case 1:
		return SingleBase
	}
	return MultiBase
}

// WithLowercaseBases lowercases everything outside <...> names.
func (a Allele) WithLowercaseBases() string {
	var b strings.Builder
	b.Grow(len(a.s))
	inside := false
	for i := 0; i < len(a.s); i++ {
		c := a.s[i]
		switch c {
		case '<':
			inside = true
		case '>':
			inside = false
		}
		if !inside && 'A' <= c && c <= 'Z' {
			c += 'a' - 'A'
		}
		b.WriteByte(c)
	}
	return b.String()
}

// EqualFold compares two alleles ignoring the case of their bases.
func (a Allele) EqualFold(other Allele) bool {
	return a.WithLowercaseBases() == other.WithLowercaseBases()
}

// ContainsBase reports whether any of bases occurs outside <...> names.
// The comparison is case-sensitive.
func (a Allele) ContainsBase(bases ...byte) bool {
	inside := false
	for i := 0; i < len(a.s); i++ {
		c := a.s[i]
		switch {
		case c == '<':
			inside = true
		case c == '>':
			inside = false
		case !inside:
			for _, base := range bases {
				if c == base {
					return true
				}
			}
		}
	}
	return false
}
