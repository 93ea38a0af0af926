package vcf

import (
	"strconv"
	"strings"
	"unicode/utf8"

	"github.com/shopspring/decimal"
)

// FieldType is the Type attribute of INFO and FORMAT metadata.
type FieldType int

// Field types. Flag is only valid for INFO.
const (
	TypeString FieldType = iota
	TypeInteger
	TypeFloat
	TypeFlag
	TypeCharacter
)

func (t FieldType) String() string {
	switch t {
	case TypeInteger:
		return "Integer"
	case TypeFloat:
		return "Float"
	case TypeFlag:
		return "Flag"
	case TypeCharacter:
		return "Character"
	default:
		return "String"
	}
}

// ParseFieldType parses a Type attribute. Matching is case-sensitive.
func ParseFieldType(s string) (FieldType, error) {
	switch s {
	case "String":
		return TypeString, nil
	case "Integer":
		return TypeInteger, nil
	case "Float":
		return TypeFloat, nil
	case "Flag":
		return TypeFlag, nil
	case "Character":
		return TypeCharacter, nil
	}
	return TypeString, formatErrorf("unknown Type %q", s)
}

// NumberKind distinguishes literal counts from the reserved Number markers.
type NumberKind int

// Number kinds.
const (
	NumberFixed   NumberKind = iota
	NumberPerAlt             // A
	NumberPerAllele          // R
	NumberPerGenotype        // G
	NumberUnknown            // .
)

// Number is the Number attribute of INFO and FORMAT metadata.
type Number struct {
	Kind  NumberKind
	Count int // only meaningful for NumberFixed
}

// ParseNumber parses a Number attribute: an unsigned integer or one of A, R, G, ".".
func ParseNumber(s string) (Number, error) {
	switch s {
	case "A":
		return Number{Kind: NumberPerAlt}, nil
	case "R":
		return Number{Kind: NumberPerAllele}, nil
	case "G":
		return Number{Kind: NumberPerGenotype}, nil
	case ".":
		return Number{Kind: NumberUnknown}, nil
	}
	if s == "" || strings.TrimLeft(s, "0123456789") != "" {
		return Number{}, formatErrorf("Number %q is not a count or one of A, R, G, .", s)
	}
	n, err := strconv.Atoi(s)
	if err != nil {
		return Number{}, &FormatError{Message: "Number " + s + " is out of range", Err: err}
	}
	return Number{Kind: NumberFixed, Count: n}, nil
}

func (n Number) String() string {
	switch n.Kind {
	case NumberPerAlt:
		return "A"
	case NumberPerAllele:
		return "R"
	case NumberPerGenotype:
		return "G"
	case NumberUnknown:
		return "."
	}
	return strconv.Itoa(n.Count)
}

// IsList reports whether values with this Number are comma-separated lists.
func (n Number) IsList() bool {
	return n.Kind != NumberFixed || n.Count > 1
}

// ExpectedCount returns how many values a field with this Number should hold
// for a record with altCount ALT alleles and the given ploidy. ok is false
// for ".", which has no fixed count.
func (n Number) ExpectedCount(altCount, ploidy int) (count int, ok bool) {
	switch n.Kind {
	case NumberFixed:
		return n.Count, true
	case NumberPerAlt:
		return altCount, true
	case NumberPerAllele:
		return altCount + 1, true
	case NumberPerGenotype:
		// binomial(alleles + ploidy - 1, ploidy)
		alleles := altCount + 1
		c := 1
		for i := 1; i <= ploidy; i++ {
			c = c * (alleles + i - 1) / i
		}
		return c, true
	}
	return 0, false
}

// ConvertValue converts raw according to a field's type and cardinality.
// A missing value (".") converts to nil. For lists, each comma-separated
// element is converted on its own and missing elements become nil.
//
// The concrete types returned are string, rune, int64, decimal.Decimal,
// bool, or []any of those.
func ConvertValue(t FieldType, isList bool, raw string) (any, error) {
	if raw == "." {
		return nil, nil
	}
	if !isList {
		return convertElement(t, raw)
	}
	parts := strings.Split(raw, ",")
	list := make([]any, 0, len(parts))
	for _, part := range parts {
		v, err := convertElement(t, part)
		if err != nil {
			return nil, err
		}
		list = append(list, v)
	}
	return list, nil
}

func convertElement(t FieldType, value string) (any, error) {
	if value == "." {
		return nil, nil
	}
	switch t {
	case TypeString:
		return value, nil
	case TypeCharacter:
		r, size := utf8.DecodeRuneInString(value)
		if size == 0 || size != len(value) || r == utf8.RuneError {
			return nil, formatErrorf("expected a single character; got %q", value)
		}
		return r, nil
	case TypeInteger:
		n, err := strconv.ParseInt(value, 10, 64)
		if err != nil {
			return nil, formatErrorf("expected integer; got %q", value)
		}
		return n, nil
	case TypeFloat:
		d, err := decimal.NewFromString(value)
		if err != nil {
			return nil, formatErrorf("expected float; got %q", value)
		}
		return d, nil
	case TypeFlag:
		return parseFlag(value)
	}
	return nil, formatErrorf("unsupported type %v", t)
}

func parseFlag(value string) (bool, error) {
	value = strings.TrimSpace(value)
	switch {
	case value == "":
		return true, nil
	case value == "0" || strings.EqualFold(value, "false"):
		return false, nil
	case value == "1" || strings.EqualFold(value, "true"):
		return true, nil
	}
	return false, formatErrorf("invalid boolean value %q", value)
}

// ParseDecimal parses an arbitrary-precision decimal such as a QUAL value.
func ParseDecimal(s string) (decimal.Decimal, error) {
	d, err := decimal.NewFromString(s)
	if err != nil {
		return decimal.Decimal{}, formatErrorf("expected decimal; got %q", s)
	}
	return d, nil
}

// FormatDecimal renders d keeping its fractional digits, so 12.50 stays
// 12.50 rather than 12.5.
func FormatDecimal(d decimal.Decimal) string {
	if exp := d.Exponent(); exp < 0 {
		return d.StringFixed(-exp)
	}
	return d.String()
}

func parseInt(s string) (int64, error) {
	return strconv.ParseInt(s, 10, 64)
}

func formatInt(n int64) string {
	return strconv.FormatInt(n, 10)
}
