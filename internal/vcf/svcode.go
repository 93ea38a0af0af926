package vcf

import "strings"

// SVCode is a reserved structural variant code.
type SVCode int

// Reserved structural variant codes.
const (
	SVDeletion SVCode = iota + 1
	SVInsertion
	SVDuplication
	SVInversion
	SVCopyNumber
	SVTandem
	SVMobileElement
)

// LookupSVCode finds the reserved code for id. Codes are case-sensitive.
func LookupSVCode(id string) (SVCode, bool) {
	switch id {
	case "DEL":
		return SVDeletion, true
	case "INS":
		return SVInsertion, true
	case "DUP":
		return SVDuplication, true
	case "INV":
		return SVInversion, true
	case "CNV":
		return SVCopyNumber, true
	case "TANDEM":
		return SVTandem, true
	case "ME":
		return SVMobileElement, true
	}
	return 0, false
}

func (c SVCode) String() string {
	switch c {
	case SVDeletion:
		return "DEL"
	case SVInsertion:
		return "INS"
	case SVDuplication:
		return "DUP"
	case SVInversion:
		return "INV"
	case SVCopyNumber:
		return "CNV"
	case SVTandem:
		return "TANDEM"
	case SVMobileElement:
		return "ME"
	}
	return ""
}

// Level is the position at which c must appear in a code.
func (c SVCode) Level() int {
	switch c {
	case SVTandem, SVMobileElement:
		return 1
	}
	return 0
}

// Parents lists the codes allowed directly before c.
func (c SVCode) Parents() []SVCode {
	switch c {
	case SVTandem:
		return []SVCode{SVDuplication}
	case SVMobileElement:
		return []SVCode{SVInsertion, SVDeletion}
	}
	return nil
}

func (c SVCode) hasParent(p SVCode) bool {
	for _, parent := range c.Parents() {
		if parent == p {
			return true
		}
	}
	return false
}

// StructuralVariant is a validated colon-delimited ALT code such as
// DEL, CNV or INS:ME:LINE. The first component is always a reserved code.
type StructuralVariant struct {
	components []string
}

// ParseStructuralVariant validates code against the reserved hierarchy.
func ParseStructuralVariant(code string) (StructuralVariant, error) {
	if code == "" {
		return StructuralVariant{}, formatErrorf("structural variant code must not be empty")
	}
	components := strings.Split(code, ":")
	for level, comp := range components {
		reserved, ok := LookupSVCode(comp)
		if !ok {
			if level == 0 {
				return StructuralVariant{}, formatErrorf("top-level structural variant code was %s but must be a top-level reserved code (e.g. DEL or CNV)", comp)
			}
			continue
		}
		if reserved.Level() != level {
			return StructuralVariant{}, formatErrorf("structural variant code %s is a reserved code of level %d, not %d", comp, reserved.Level(), level)
		}
		if level == 0 {
			continue
		}
		if parent, ok := LookupSVCode(components[level-1]); ok && !reserved.hasParent(parent) {
			return StructuralVariant{}, formatErrorf("structural variant code %s is not a child of reserved code %s", comp, parent)
		}
	}
	return StructuralVariant{components: components}, nil
}

// Components returns the codes from level 0 down, e.g. [INS ME LINE].
func (sv StructuralVariant) Components() []string {
	out := make([]string, len(sv.components))
	copy(out, sv.components)
	return out
}

// Len returns the number of levels.
func (sv StructuralVariant) Len() int { return len(sv.components) }

// Component returns the code at level. It panics if level is out of range.
func (sv StructuralVariant) Component(level int) string {
	return sv.components[level]
}

// ReservedComponent returns the reserved code at level, if it is one.
func (sv StructuralVariant) ReservedComponent(level int) (SVCode, bool) {
	if level < 0 || level >= len(sv.components) {
		return 0, false
	}
	return LookupSVCode(sv.components[level])
}

func (sv StructuralVariant) String() string {
	return strings.Join(sv.components, ":")
}
